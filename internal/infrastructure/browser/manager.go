package browser

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/khanhnv2901/domain-insight/internal/domain/report"
	"github.com/khanhnv2901/domain-insight/internal/metrics"
	sharederrors "github.com/khanhnv2901/domain-insight/internal/shared/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Browser is a running renderer that can audit one page.
type Browser interface {
	Audit(ctx context.Context, url string) (*RawAudit, error)
	Close() error
}

// Launcher starts renderers.
type Launcher interface {
	Launch(ctx context.Context) (Browser, error)
}

// Options configures the renderer processes started by a Manager.
type Options struct {
	ExecPath      string
	Headless      bool
	NoSandbox     bool
	MaxConcurrent int
	WindowWidth   int
	WindowHeight  int
	// Settle is how long the page is observed after load before metrics are read.
	Settle time.Duration
}

// DefaultOptions returns headless desktop settings.
func DefaultOptions() Options {
	return Options{
		Headless:      true,
		MaxConcurrent: 2,
		WindowWidth:   1350,
		WindowHeight:  940,
		Settle:        time.Second,
	}
}

// Manager launches one Chrome process per audit and caps how many run at once.
type Manager struct {
	opts   Options
	sem    *semaphore.Weighted
	logger *zap.Logger
}

// NewManager creates a Manager. A nil logger disables logging.
func NewManager(opts Options, logger *zap.Logger) *Manager {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 1
	}
	if opts.WindowWidth <= 0 || opts.WindowHeight <= 0 {
		opts.WindowWidth, opts.WindowHeight = 1350, 940
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		opts:   opts,
		sem:    semaphore.NewWeighted(int64(opts.MaxConcurrent)),
		logger: logger,
	}
}

func (m *Manager) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", m.opts.Headless),
		chromedp.WindowSize(m.opts.WindowWidth, m.opts.WindowHeight),
	)
	if m.opts.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	if m.opts.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(m.opts.ExecPath))
	}
	return opts
}

// Launch starts a new renderer process. The caller must Close the returned
// Browser. ctx bounds the launch only; the process lives until Close.
func (m *Manager) Launch(ctx context.Context) (Browser, error) {
	if err := m.sem.Acquire(ctx, 1); err != nil {
		return nil, report.NewSourceError(report.KindTimeout, "timed out waiting for a free browser", err)
	}
	var releaseOnce sync.Once
	release := func() { releaseOnce.Do(func() { m.sem.Release(1) }) }

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), m.allocatorOptions()...)
	sugar := m.logger.Sugar()
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(sugar.Debugf),
		chromedp.WithErrorf(sugar.Debugf),
	)

	// Abort the launch if the caller gives up while Chrome is starting.
	stop := context.AfterFunc(ctx, browserCancel)
	err := chromedp.Run(browserCtx)
	stop()
	metrics.RecordLaunch(err)

	if err != nil {
		browserCancel()
		allocCancel()
		release()
		if ctx.Err() != nil {
			return nil, report.NewSourceError(report.KindTimeout, "browser launch timed out", ctx.Err())
		}
		m.logger.Warn("browser launch failed", zap.Error(err))
		return nil, report.NewSourceError(report.KindProcessError, "failed to launch browser",
			fmt.Errorf("%w: %v", sharederrors.ErrBrowserLaunch, err))
	}

	metrics.BrowsersActive.Inc()
	m.logger.Debug("browser launched")

	return &Handle{
		ctx:         browserCtx,
		cancel:      browserCancel,
		allocCancel: allocCancel,
		release:     release,
		settle:      m.opts.Settle,
		logger:      m.logger,
		onClose:     metrics.BrowsersActive.Dec,
	}, nil
}

// Handle is one running Chrome process.
type Handle struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	release     func()
	settle      time.Duration
	logger      *zap.Logger
	onClose     func()

	once   sync.Once
	closed atomic.Bool
}

// Close terminates the browser and waits for the process to exit. It is
// safe to call more than once; only the first call does anything.
func (h *Handle) Close() error {
	h.once.Do(func() {
		h.closed.Store(true)
		start := time.Now()
		// Closing the tab context shuts the browser down gracefully, the
		// allocator cancel kills whatever is left and waits for exit.
		if h.cancel != nil {
			h.cancel()
		}
		if h.allocCancel != nil {
			h.allocCancel()
		}
		if h.release != nil {
			h.release()
		}
		if h.onClose != nil {
			h.onClose()
		}
		if h.logger != nil {
			h.logger.Debug("browser terminated", zap.Duration("duration", time.Since(start)))
		}
	})
	return nil
}

// Closed reports whether Close has been called.
func (h *Handle) Closed() bool {
	return h.closed.Load()
}
