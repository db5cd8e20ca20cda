package checker

import (
	"context"
	"fmt"
	"time"

	"github.com/khanhnv2901/domain-insight/internal/domain/report"
	"github.com/khanhnv2901/domain-insight/internal/infrastructure/browser"
	sharederrors "github.com/khanhnv2901/domain-insight/internal/shared/errors"
	"go.uber.org/zap"
)

const performanceCategory = "performance"

// AuditChecker runs a performance audit in a fresh browser per call.
type AuditChecker struct {
	Launcher browser.Launcher
	Timeout  time.Duration
	Logger   *zap.Logger
}

// Audit launches a browser, audits https://<domain> and always terminates
// the browser before returning, including on timeout or panic.
func (a *AuditChecker) Audit(ctx context.Context, domain string) (result *report.AuditReport, err error) {
	if a.Launcher == nil {
		return nil, report.NewSourceError(report.KindProcessError, "no browser launcher configured", sharederrors.ErrSourceNotConfigured)
	}
	logger := a.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if a.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.Timeout)
		defer cancel()
	}

	b, err := a.Launcher.Launch(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := b.Close(); cerr != nil {
			logger.Warn("browser close failed", zap.String("domain", domain), zap.Error(cerr))
		}
	}()

	raw, err := b.Audit(ctx, "https://"+domain)
	if err != nil {
		if ctx.Err() != nil {
			return nil, report.NewSourceError(report.KindTimeout, "audit timed out", ctx.Err())
		}
		return nil, err
	}
	return NormalizeAudit(raw)
}

// NormalizeAudit scores raw renderer timings into an AuditReport.
func NormalizeAudit(raw *browser.RawAudit) (*report.AuditReport, error) {
	if raw == nil {
		return nil, report.NewSourceError(report.KindUpstreamError, "empty audit result", sharederrors.ErrMissingCategory)
	}
	if _, ok := raw.Value(browser.MetricFCP); !ok {
		return nil, report.NewSourceError(report.KindUpstreamError, "performance category missing", sharederrors.ErrMissingCategory)
	}

	audits := make(map[string]report.AuditMetric, len(browser.Metrics))
	metrics := make(map[string]string, len(browser.Metrics))
	scores := make(map[string]float64, len(browser.Metrics))

	for _, m := range browser.Metrics {
		value, ok := raw.Value(m.ID)
		if !ok {
			continue
		}
		score := m.Score(value)
		display := m.Display(value)
		scores[m.ID] = score
		metrics[m.ID] = display
		audits[m.ID] = report.AuditMetric{
			ID:           m.ID,
			Title:        m.Title,
			Score:        score,
			NumericValue: value,
			NumericUnit:  m.Unit,
			DisplayValue: display,
		}
	}

	score := browser.PerformanceScore(scores)
	if score < 0 || score > 1 {
		return nil, report.NewSourceError(report.KindUpstreamError,
			fmt.Sprintf("performance score out of range: %v", score), sharederrors.ErrMissingCategory)
	}

	return &report.AuditReport{
		Score:   score,
		Metrics: metrics,
		AuditDetail: &report.AuditDetail{
			RequestedURL: raw.RequestedURL,
			FinalURL:     raw.FinalURL,
			FetchTime:    raw.FetchTime,
			Categories: map[string]report.AuditCategory{
				performanceCategory: {ID: performanceCategory, Title: "Performance", Score: score},
			},
			Audits:      audits,
			Diagnostics: raw.Diagnostics,
		},
	}, nil
}
