package analysis

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/khanhnv2901/domain-insight/internal/checker"
	"github.com/khanhnv2901/domain-insight/internal/domain/report"
	"github.com/khanhnv2901/domain-insight/internal/metrics"
	sharederrors "github.com/khanhnv2901/domain-insight/internal/shared/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Source contracts. The checker package provides the production adapters.
type (
	RegistrySource interface {
		Lookup(ctx context.Context, domain string) (report.RegistryRecord, error)
	}
	CertificateSource interface {
		Inspect(ctx context.Context, domain string) (*report.Certificate, error)
	}
	ResolutionSource interface {
		Resolve(ctx context.Context, domain string) (*report.ServerInfo, error)
	}
	GradeSource interface {
		Grade(ctx context.Context, domain string) (string, error)
	}
	AuditSource interface {
		Audit(ctx context.Context, domain string) (*report.AuditReport, error)
	}
)

// Sources bundles the five adapters an Orchestrator queries.
type Sources struct {
	Registry    RegistrySource
	Certificate CertificateSource
	Resolution  ResolutionSource
	Grade       GradeSource
	Audit       AuditSource
}

// Timeouts bounds each source call. Zero means no orchestrator-side limit.
type Timeouts struct {
	Registry    time.Duration
	Certificate time.Duration
	Resolution  time.Duration
	Grade       time.Duration
	Audit       time.Duration
}

// Config holds the immutable orchestration settings.
type Config struct {
	Timeouts Timeouts
	// Deadline bounds a whole analysis. Zero disables it.
	Deadline time.Duration
}

// Request is one analysis request.
type Request struct {
	Domain string
}

// Observer is told about every slot as soon as it settles. Observers run
// on the source goroutine and must not block.
type Observer func(domain string, slot report.SlotStatus, elapsed time.Duration)

// Orchestrator fans a request out to every source and assembles the
// composite report. It holds no per-request state and is safe for
// concurrent use.
type Orchestrator struct {
	sources  Sources
	config   Config
	logger   *zap.Logger
	observer Observer
	now      func() time.Time
}

// NewOrchestrator creates a new analysis orchestrator.
func NewOrchestrator(sources Sources, config Config, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		sources: sources,
		config:  config,
		logger:  logger,
		now:     time.Now,
	}
}

// WithObserver returns a copy of o that reports settled slots to obs.
func (o *Orchestrator) WithObserver(obs Observer) *Orchestrator {
	cp := *o
	cp.observer = obs
	return &cp
}

// Ready reports whether every source is wired.
func (o *Orchestrator) Ready() error {
	var missing []string
	if isNil(o.sources.Registry) {
		missing = append(missing, report.SlotRegistry)
	}
	if isNil(o.sources.Certificate) {
		missing = append(missing, report.SlotCertificate)
	}
	if isNil(o.sources.Resolution) {
		missing = append(missing, report.SlotResolution)
	}
	if isNil(o.sources.Grade) {
		missing = append(missing, report.SlotGrade)
	}
	if isNil(o.sources.Audit) {
		missing = append(missing, report.SlotAudit)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", sharederrors.ErrSourceNotConfigured, strings.Join(missing, ", "))
	}
	return nil
}

// Analyze queries all five sources concurrently and returns a report with
// every slot settled. Source failures never fail the call; only an invalid
// request (ValidationError) or a broken orchestrator (OrchestrationError)
// return an error.
func (o *Orchestrator) Analyze(ctx context.Context, req Request) (rep *report.CompositeReport, err error) {
	domain, err := checker.NormalizeDomain(req.Domain)
	if err != nil {
		return nil, &ValidationError{Field: "domain", Err: err}
	}

	if err := o.Ready(); err != nil {
		return nil, &OrchestrationError{Op: "analyze", Err: err}
	}

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("analysis panicked", zap.String("domain", domain), zap.Any("panic", r))
			rep = nil
			err = &OrchestrationError{Op: "analyze", Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	if o.config.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.config.Deadline)
		defer cancel()
	}

	start := o.now()
	rep = &report.CompositeReport{
		ID:         uuid.NewString(),
		Domain:     domain,
		AnalyzedAt: start.UTC(),
	}

	o.logger.Info("analysis started", zap.String("id", rep.ID), zap.String("domain", domain))

	// Tasks never return an error so a failing source cannot cancel its
	// siblings; each one writes only its own slot.
	var g errgroup.Group
	t := o.config.Timeouts

	g.Go(func() error {
		rep.Registry = settle(ctx, o, domain, report.SlotRegistry, t.Registry, o.sources.Registry.Lookup)
		return nil
	})
	g.Go(func() error {
		rep.Certificate = settle(ctx, o, domain, report.SlotCertificate, t.Certificate, nonNil(o.sources.Certificate.Inspect))
		return nil
	})
	g.Go(func() error {
		rep.Resolution = settle(ctx, o, domain, report.SlotResolution, t.Resolution, nonNil(o.sources.Resolution.Resolve))
		return nil
	})
	g.Go(func() error {
		rep.Grade = settle(ctx, o, domain, report.SlotGrade, t.Grade, o.sources.Grade.Grade)
		return nil
	})
	g.Go(func() error {
		rep.Audit = settle(ctx, o, domain, report.SlotAudit, t.Audit, nonNil(o.sources.Audit.Audit))
		return nil
	})

	_ = g.Wait()

	elapsed := o.now().Sub(start)
	rep.DurationMS = elapsed.Milliseconds()
	failed := rep.FailedCount()
	metrics.RecordAnalysis(failed)

	o.logger.Info("analysis completed",
		zap.String("id", rep.ID),
		zap.String("domain", domain),
		zap.Int("failed_sources", failed),
		zap.Duration("duration", elapsed),
	)
	return rep, nil
}

// settle runs one source under its timeout, converting errors and panics
// into a failed slot. It waits for the source to return so that sources
// holding external processes have released them before the slot settles.
func settle[T any](ctx context.Context, o *Orchestrator, domain, name string, timeout time.Duration, call func(context.Context, string) (T, error)) report.SourceResult[T] {
	start := time.Now()

	value, err := func() (value T, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = report.NewSourceError(report.KindUnknown, fmt.Sprintf("source panicked: %v", r), nil)
			}
		}()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		return call(ctx, domain)
	}()

	result := report.FromError(value, err)
	elapsed := time.Since(start)

	status := report.SlotStatus{Name: name, OK: result.OK(), Failure: result.Failure()}
	kind := ""
	if status.Failure != nil {
		kind = string(status.Failure.Kind)
		o.logger.Warn("source failed",
			zap.String("source", name),
			zap.String("domain", domain),
			zap.String("kind", kind),
			zap.String("message", status.Failure.Message),
			zap.Duration("duration", elapsed),
		)
	} else {
		o.logger.Debug("source settled",
			zap.String("source", name),
			zap.String("domain", domain),
			zap.Duration("duration", elapsed),
		)
	}
	metrics.RecordSource(name, kind, elapsed)

	o.notify(domain, status, elapsed)
	return result
}

func (o *Orchestrator) notify(domain string, status report.SlotStatus, elapsed time.Duration) {
	if o.observer == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("observer panicked", zap.String("source", status.Name), zap.Any("panic", r))
		}
	}()
	o.observer(domain, status, elapsed)
}

// nonNil turns a nil pointer result without an error into an upstream failure.
func nonNil[T any](call func(context.Context, string) (*T, error)) func(context.Context, string) (*T, error) {
	return func(ctx context.Context, domain string) (*T, error) {
		v, err := call(ctx, domain)
		if err == nil && v == nil {
			return nil, report.NewSourceError(report.KindUpstreamError, "source returned no data", nil)
		}
		return v, err
	}
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	return rv.Kind() == reflect.Pointer && rv.IsNil()
}
