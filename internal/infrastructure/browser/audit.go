package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/performance"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/khanhnv2901/domain-insight/internal/domain/report"
	sharederrors "github.com/khanhnv2901/domain-insight/internal/shared/errors"
	"go.uber.org/zap"
)

// RawAudit holds the timings observed in the renderer. Durations are in
// milliseconds relative to navigation start.
type RawAudit struct {
	RequestedURL string
	FinalURL     string
	FetchTime    time.Time

	FirstContentfulPaint   float64
	LargestContentfulPaint float64
	TotalBlockingTime      float64
	CumulativeLayoutShift  float64
	TimeToInteractive      float64
	ServerResponseTime     float64

	// Diagnostics carries renderer counters (Nodes, JSHeapUsedSize, ...)
	// and navigation timings that are not scored.
	Diagnostics map[string]float64
}

// pageTimings is the JSON object returned by collectScript.
type pageTimings struct {
	FinalURL         string  `json:"finalUrl"`
	FCP              float64 `json:"fcp"`
	LCP              float64 `json:"lcp"`
	CLS              float64 `json:"cls"`
	TBT              float64 `json:"tbt"`
	TTI              float64 `json:"tti"`
	TTFB             float64 `json:"ttfb"`
	DOMContentLoaded float64 `json:"domContentLoaded"`
	Load             float64 `json:"load"`
	TransferSize     float64 `json:"transferSize"`
	Resources        float64 `json:"resources"`
}

// observerScript runs before any page script and buffers the entries that
// are not queryable after the fact.
const observerScript = `(() => {
  const s = window.__insight = {lcp: 0, cls: 0, longTasks: []};
  const watch = (type, fn) => {
    try { new PerformanceObserver(l => l.getEntries().forEach(fn)).observe({type, buffered: true}); } catch (e) {}
  };
  watch('largest-contentful-paint', e => { s.lcp = e.renderTime || e.loadTime || e.startTime; });
  watch('layout-shift', e => { if (!e.hadRecentInput) s.cls += e.value; });
  watch('longtask', e => { s.longTasks.push([e.startTime, e.duration]); });
})();`

// collectScript waits for load plus a settle period, then reports timings.
// Blocking time counts the part of each long task above 50ms after first paint.
const collectScript = `new Promise(resolve => {
  const collect = () => {
    const s = window.__insight || {lcp: 0, cls: 0, longTasks: []};
    const nav = performance.getEntriesByType('navigation')[0] || {};
    const paint = performance.getEntriesByName('first-contentful-paint')[0];
    const fcp = paint ? paint.startTime : 0;
    let tbt = 0, lastLong = 0;
    for (const [start, dur] of s.longTasks) {
      if (start >= fcp) tbt += Math.max(0, dur - 50);
      lastLong = Math.max(lastLong, start + dur);
    }
    resolve({
      finalUrl: location.href,
      fcp: fcp,
      lcp: s.lcp || fcp,
      cls: s.cls,
      tbt: tbt,
      tti: fcp ? Math.max(fcp, nav.domContentLoadedEventEnd || 0, lastLong) : 0,
      ttfb: nav.responseStart ? nav.responseStart - (nav.requestStart || 0) : 0,
      domContentLoaded: nav.domContentLoadedEventEnd || 0,
      load: nav.loadEventEnd || 0,
      transferSize: nav.transferSize || 0,
      resources: performance.getEntriesByType('resource').length,
    });
  };
  const settle = () => setTimeout(collect, %d);
  if (document.readyState === 'complete') settle();
  else window.addEventListener('load', settle, {once: true});
})`

func awaitPromise(p *runtime.EvaluateParams) *runtime.EvaluateParams {
	return p.WithAwaitPromise(true)
}

// Audit loads url in the browser and collects paint, layout and
// main-thread timings. It does not close the browser.
func (h *Handle) Audit(ctx context.Context, url string) (*RawAudit, error) {
	if h.Closed() {
		return nil, report.NewSourceError(report.KindProcessError, "browser is not running", sharederrors.ErrBrowserClosed)
	}

	runCtx, cancel := context.WithCancel(h.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	raw := &RawAudit{RequestedURL: url, FetchTime: time.Now().UTC()}

	err := chromedp.Run(runCtx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(observerScript).Do(ctx)
			return err
		}),
		performance.Enable(),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return nil, h.classify(ctx, "navigation failed", report.KindConnectionError, err)
	}

	var timings pageTimings
	var counters []*performance.Metric
	err = chromedp.Run(runCtx,
		chromedp.Evaluate(fmt.Sprintf(collectScript, h.settle.Milliseconds()), &timings, awaitPromise),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			counters, err = performance.GetMetrics().Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, h.classify(ctx, "collecting page metrics failed", report.KindUpstreamError, err)
	}

	raw.FinalURL = timings.FinalURL
	raw.FirstContentfulPaint = timings.FCP
	raw.LargestContentfulPaint = timings.LCP
	raw.TotalBlockingTime = timings.TBT
	raw.CumulativeLayoutShift = timings.CLS
	raw.TimeToInteractive = timings.TTI
	raw.ServerResponseTime = timings.TTFB

	raw.Diagnostics = map[string]float64{
		"domContentLoaded": timings.DOMContentLoaded,
		"load":             timings.Load,
		"transferSize":     timings.TransferSize,
		"resources":        timings.Resources,
	}
	for _, m := range counters {
		if m != nil {
			raw.Diagnostics[m.Name] = m.Value
		}
	}

	h.logger.Debug("page audited",
		zap.String("url", url),
		zap.Float64("fcp_ms", raw.FirstContentfulPaint),
		zap.Float64("lcp_ms", raw.LargestContentfulPaint),
	)
	return raw, nil
}

// classify maps a chromedp failure to a source error. Network failures
// reported by the renderer surface as net::ERR_* codes.
func (h *Handle) classify(ctx context.Context, msg string, fallback report.ErrorKind, err error) error {
	if ctx.Err() != nil {
		return report.NewSourceError(report.KindTimeout, "audit timed out", ctx.Err())
	}
	if h.Closed() {
		return report.NewSourceError(report.KindProcessError, "browser terminated during audit", err)
	}
	kind := fallback
	if strings.Contains(err.Error(), "net::ERR_") {
		kind = report.KindConnectionError
	}
	return report.NewSourceError(kind, fmt.Sprintf("%s: %v", msg, err), nil)
}
