package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/khanhnv2901/domain-insight/internal/domain/report"
	sharederrors "github.com/khanhnv2901/domain-insight/internal/shared/errors"
	"go.uber.org/zap/zaptest"
)

type fakeSources struct {
	calls atomic.Int32

	mu      sync.Mutex
	domains []string

	registry    func(ctx context.Context) (report.RegistryRecord, error)
	certificate func(ctx context.Context) (*report.Certificate, error)
	resolution  func(ctx context.Context) (*report.ServerInfo, error)
	grade       func(ctx context.Context) (string, error)
	audit       func(ctx context.Context) (*report.AuditReport, error)
}

func (f *fakeSources) record(domain string) {
	f.calls.Add(1)
	f.mu.Lock()
	f.domains = append(f.domains, domain)
	f.mu.Unlock()
}

func (f *fakeSources) Lookup(ctx context.Context, domain string) (report.RegistryRecord, error) {
	f.record(domain)
	return f.registry(ctx)
}

func (f *fakeSources) Inspect(ctx context.Context, domain string) (*report.Certificate, error) {
	f.record(domain)
	return f.certificate(ctx)
}

func (f *fakeSources) Resolve(ctx context.Context, domain string) (*report.ServerInfo, error) {
	f.record(domain)
	return f.resolution(ctx)
}

func (f *fakeSources) Grade(ctx context.Context, domain string) (string, error) {
	f.record(domain)
	return f.grade(ctx)
}

func (f *fakeSources) Audit(ctx context.Context, domain string) (*report.AuditReport, error) {
	f.record(domain)
	return f.audit(ctx)
}

func (f *fakeSources) bundle() Sources {
	return Sources{Registry: f, Certificate: f, Resolution: f, Grade: f, Audit: f}
}

// exampleSources answers like a healthy example.com.
func exampleSources() *fakeSources {
	return &fakeSources{
		registry: func(context.Context) (report.RegistryRecord, error) {
			return report.RegistryRecord{"domainName": "EXAMPLE.COM", "registrar": "RESERVED-Internet Assigned Numbers Authority"}, nil
		},
		certificate: func(context.Context) (*report.Certificate, error) {
			return &report.Certificate{
				Subject:    report.DistinguishedName{"CN": "example.com"},
				Issuer:     report.DistinguishedName{"CN": "DigiCert Global G2 TLS RSA SHA256 2020 CA1"},
				Authorized: true,
			}, nil
		},
		resolution: func(context.Context) (*report.ServerInfo, error) {
			return &report.ServerInfo{IPAddress: "93.184.216.34", Location: report.Location{Country: "US", City: "Norwell"}}, nil
		},
		grade: func(context.Context) (string, error) {
			return "A", nil
		},
		audit: func(context.Context) (*report.AuditReport, error) {
			return &report.AuditReport{Score: 0.98, Metrics: map[string]string{"first-contentful-paint": "0.8 s"}}, nil
		},
	}
}

func newTestOrchestrator(t *testing.T, f *fakeSources, cfg Config) *Orchestrator {
	t.Helper()
	return NewOrchestrator(f.bundle(), cfg, zaptest.NewLogger(t))
}

func TestAnalyzeExampleDomain(t *testing.T) {
	f := exampleSources()
	o := newTestOrchestrator(t, f, Config{})

	rep, err := o.Analyze(context.Background(), Request{Domain: "example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, slot := range rep.Slots() {
		if !slot.OK {
			t.Fatalf("slot %s failed: %v", slot.Name, slot.Failure)
		}
	}

	cert, _ := rep.Certificate.Value()
	if cert.Subject["CN"] != "example.com" {
		t.Errorf("unexpected subject %v", cert.Subject)
	}
	info, _ := rep.Resolution.Value()
	if info.IPAddress != "93.184.216.34" {
		t.Errorf("unexpected ip %s", info.IPAddress)
	}
	if grade, _ := rep.Grade.Value(); grade != "A" {
		t.Errorf("unexpected grade %s", grade)
	}
	audit, _ := rep.Audit.Value()
	if audit.Score < 0 || audit.Score > 1 {
		t.Errorf("score out of range: %v", audit.Score)
	}
	if rep.ID == "" || rep.Domain != "example.com" {
		t.Errorf("unexpected metadata id=%q domain=%q", rep.ID, rep.Domain)
	}
	if f.calls.Load() != 5 {
		t.Errorf("expected 5 source calls, got %d", f.calls.Load())
	}
}

func TestAnalyzeReportHasFiveSlots(t *testing.T) {
	f := exampleSources()
	f.grade = func(context.Context) (string, error) {
		return "", report.NewSourceError(report.KindUpstreamError, "grading service returned HTTP 529", nil)
	}
	o := newTestOrchestrator(t, f, Config{})

	rep, err := o.Analyze(context.Background(), Request{Domain: "example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	raw, err := json.Marshal(rep)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var generic map[string]json.RawMessage
	if err := json.Unmarshal(raw, &generic); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	decoded := make(map[string]map[string]json.RawMessage)
	for _, key := range []string{"domainInfo", "sslCertificate", "serverInfo", "securityGrade", "lighthouseResult"} {
		v, ok := generic[key]
		if !ok {
			t.Fatalf("missing slot %s in %s", key, raw)
		}
		var slot map[string]json.RawMessage
		if err := json.Unmarshal(v, &slot); err != nil {
			t.Fatalf("slot %s is not an object: %s", key, v)
		}
		if len(slot) != 1 {
			t.Fatalf("slot %s must be exactly one of ok/failed: %s", key, v)
		}
		decoded[key] = slot
	}
	if _, ok := decoded["securityGrade"]["failed"]; !ok {
		t.Fatalf("grade slot should be failed: %s", generic["securityGrade"])
	}
	if _, ok := decoded["domainInfo"]["ok"]; !ok {
		t.Fatalf("registry slot should be ok: %s", generic["domainInfo"])
	}
}

func TestAnalyzeRejectsEmptyDomain(t *testing.T) {
	for _, input := range []string{"", "   ", "\t\n"} {
		f := exampleSources()
		o := newTestOrchestrator(t, f, Config{})

		rep, err := o.Analyze(context.Background(), Request{Domain: input})
		if rep != nil {
			t.Fatalf("expected no report for %q", input)
		}
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("expected ValidationError for %q, got %v", input, err)
		}
		if !errors.Is(err, sharederrors.ErrValidation) || !errors.Is(err, sharederrors.ErrDomainRequired) {
			t.Fatalf("expected validation sentinels, got %v", err)
		}
		if err.Error() != "Domain is required" {
			t.Fatalf("unexpected message %q", err.Error())
		}
		if f.calls.Load() != 0 {
			t.Fatalf("no source should be contacted, got %d calls", f.calls.Load())
		}
	}
}

func TestAnalyzeNormalizesDomain(t *testing.T) {
	f := exampleSources()
	o := newTestOrchestrator(t, f, Config{})

	rep, err := o.Analyze(context.Background(), Request{Domain: "  https://Example.COM/path "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Domain != "example.com" {
		t.Fatalf("expected normalized domain, got %s", rep.Domain)
	}
	for _, d := range f.domains {
		if d != "example.com" {
			t.Fatalf("source received %q", d)
		}
	}
}

func TestAnalyzeLeavesDomainGrammarToSources(t *testing.T) {
	for _, input := range []string{"foo_bar.example.com", "not a domain", "https://"} {
		f := exampleSources()
		f.resolution = func(context.Context) (*report.ServerInfo, error) {
			return nil, report.NewSourceError(report.KindConnectionError, "DNS lookup failed", nil)
		}
		o := newTestOrchestrator(t, f, Config{})

		rep, err := o.Analyze(context.Background(), Request{Domain: input})
		if err != nil {
			t.Fatalf("%q: non-empty domain must not fail the request: %v", input, err)
		}
		if got := len(rep.Slots()); got != 5 {
			t.Fatalf("%q: expected 5 slots, got %d", input, got)
		}
		if f.calls.Load() != 5 {
			t.Fatalf("%q: expected every source to be called, got %d", input, f.calls.Load())
		}
		if failure := rep.Resolution.Failure(); failure == nil || failure.Kind != report.KindConnectionError {
			t.Fatalf("%q: expected the resolution slot to carry its own failure, got %+v", input, failure)
		}
	}
}

func TestAnalyzeIsolatesCertificateFailure(t *testing.T) {
	f := exampleSources()
	f.certificate = func(context.Context) (*report.Certificate, error) {
		return nil, report.NewSourceError(report.KindConnectionError, "SSL Certificate Error", errors.New("connection refused"))
	}
	o := newTestOrchestrator(t, f, Config{})

	rep, err := o.Analyze(context.Background(), Request{Domain: "example.com"})
	if err != nil {
		t.Fatalf("source failure must not fail the request: %v", err)
	}

	failure := rep.Certificate.Failure()
	if failure == nil || failure.Kind != report.KindConnectionError || failure.Message != "SSL Certificate Error" {
		t.Fatalf("unexpected certificate slot: %+v", failure)
	}
	if !rep.Registry.OK() || !rep.Resolution.OK() || !rep.Grade.OK() || !rep.Audit.OK() {
		t.Fatal("other slots must be unaffected")
	}
	if rep.FailedCount() != 1 {
		t.Fatalf("expected 1 failed slot, got %d", rep.FailedCount())
	}
}

func TestAnalyzeRecoversSourcePanic(t *testing.T) {
	f := exampleSources()
	f.registry = func(context.Context) (report.RegistryRecord, error) {
		panic("parser blew up")
	}
	o := newTestOrchestrator(t, f, Config{})

	rep, err := o.Analyze(context.Background(), Request{Domain: "example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := rep.Registry.Failure(); got == nil || got.Kind != report.KindUnknown {
		t.Fatalf("expected Unknown failure, got %+v", got)
	}
	if !rep.Certificate.OK() {
		t.Fatal("sibling slot should be ok")
	}
}

func TestAnalyzeRunsSourcesConcurrently(t *testing.T) {
	const delay = 150 * time.Millisecond
	f := exampleSources()
	wrap := func(next func(context.Context) (string, error)) func(context.Context) (string, error) {
		return func(ctx context.Context) (string, error) {
			time.Sleep(delay)
			return next(ctx)
		}
	}
	f.grade = wrap(f.grade)
	reg, cert, res, aud := f.registry, f.certificate, f.resolution, f.audit
	f.registry = func(ctx context.Context) (report.RegistryRecord, error) { time.Sleep(delay); return reg(ctx) }
	f.certificate = func(ctx context.Context) (*report.Certificate, error) { time.Sleep(delay); return cert(ctx) }
	f.resolution = func(ctx context.Context) (*report.ServerInfo, error) { time.Sleep(delay); return res(ctx) }
	f.audit = func(ctx context.Context) (*report.AuditReport, error) { time.Sleep(delay); return aud(ctx) }

	o := newTestOrchestrator(t, f, Config{})

	start := time.Now()
	if _, err := o.Analyze(context.Background(), Request{Domain: "example.com"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 3*delay {
		t.Fatalf("sources ran sequentially: %v", elapsed)
	}
}

func TestAnalyzePerSourceTimeoutWaitsForAudit(t *testing.T) {
	f := exampleSources()
	var terminated atomic.Bool
	f.audit = func(ctx context.Context) (*report.AuditReport, error) {
		<-ctx.Done()
		// Simulate process teardown after the deadline.
		time.Sleep(30 * time.Millisecond)
		terminated.Store(true)
		return nil, report.NewSourceError(report.KindTimeout, "audit timed out", ctx.Err())
	}
	o := newTestOrchestrator(t, f, Config{Timeouts: Timeouts{Audit: 20 * time.Millisecond}})

	rep, err := o.Analyze(context.Background(), Request{Domain: "example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !terminated.Load() {
		t.Fatal("audit slot settled before the browser was terminated")
	}
	if got := rep.Audit.Failure(); got == nil || got.Kind != report.KindTimeout {
		t.Fatalf("expected Timeout, got %+v", got)
	}
	if !rep.Grade.OK() {
		t.Fatal("grade should not be affected by the audit timeout")
	}
}

func TestAnalyzeGlobalDeadline(t *testing.T) {
	block := func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}
	f := exampleSources()
	f.grade = block
	f.registry = func(ctx context.Context) (report.RegistryRecord, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	o := newTestOrchestrator(t, f, Config{Deadline: 30 * time.Millisecond})

	rep, err := o.Analyze(context.Background(), Request{Domain: "example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, slot := range []*report.ErrorDescriptor{rep.Grade.Failure(), rep.Registry.Failure()} {
		if slot == nil || slot.Kind != report.KindTimeout {
			t.Fatalf("expected Timeout, got %+v", slot)
		}
	}
	if !rep.Certificate.OK() {
		t.Fatal("fast sources should still succeed")
	}
}

func TestAnalyzeNilResultIsUpstreamError(t *testing.T) {
	f := exampleSources()
	f.resolution = func(context.Context) (*report.ServerInfo, error) { return nil, nil }
	o := newTestOrchestrator(t, f, Config{})

	rep, err := o.Analyze(context.Background(), Request{Domain: "example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := rep.Resolution.Failure(); got == nil || got.Kind != report.KindUpstreamError {
		t.Fatalf("expected UpstreamError, got %+v", got)
	}
}

func TestAnalyzeObserverSeesEverySlot(t *testing.T) {
	f := exampleSources()
	f.grade = func(context.Context) (string, error) { return "", errors.New("boom") }

	var mu sync.Mutex
	seen := map[string]bool{}
	o := newTestOrchestrator(t, f, Config{}).WithObserver(func(domain string, slot report.SlotStatus, _ time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		seen[slot.Name] = slot.OK
	})

	if _, err := o.Analyze(context.Background(), Request{Domain: "example.com"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(seen) != len(report.SlotNames) {
		t.Fatalf("expected %d notifications, got %v", len(report.SlotNames), seen)
	}
	if seen[report.SlotGrade] {
		t.Fatal("grade should be reported as failed")
	}
}

func TestAnalyzeMissingSource(t *testing.T) {
	f := exampleSources()
	sources := f.bundle()
	sources.Audit = nil
	o := NewOrchestrator(sources, Config{}, zaptest.NewLogger(t))

	_, err := o.Analyze(context.Background(), Request{Domain: "example.com"})
	var oerr *OrchestrationError
	if !errors.As(err, &oerr) {
		t.Fatalf("expected OrchestrationError, got %v", err)
	}
	if !errors.Is(err, sharederrors.ErrOrchestration) || !errors.Is(err, sharederrors.ErrSourceNotConfigured) {
		t.Fatalf("expected orchestration sentinels, got %v", err)
	}
	if f.calls.Load() != 0 {
		t.Fatal("no source should run when wiring is incomplete")
	}
}

func TestAnalyzeConcurrentRequests(t *testing.T) {
	o := newTestOrchestrator(t, exampleSources(), Config{})

	var wg sync.WaitGroup
	ids := make(chan string, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rep, err := o.Analyze(context.Background(), Request{Domain: "example.com"})
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			ids <- rep.ID
		}()
	}
	wg.Wait()
	close(ids)

	unique := map[string]bool{}
	for id := range ids {
		unique[id] = true
	}
	if len(unique) != 10 {
		t.Fatalf("expected 10 distinct report ids, got %d", len(unique))
	}
}
