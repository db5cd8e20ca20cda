package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/khanhnv2901/domain-insight/internal/application/analysis"
	"github.com/khanhnv2901/domain-insight/internal/domain/report"
	sharederrors "github.com/khanhnv2901/domain-insight/internal/shared/errors"
)

func TestRunAnalyzeJSON(t *testing.T) {
	orch := newTestOrchestrator(t, &stubSources{})

	var out bytes.Buffer
	if err := runAnalyze(context.Background(), &out, orch, "Example.COM", analyzeOptions{JSON: true, Progress: true}); err != nil {
		t.Fatalf("runAnalyze failed: %v", err)
	}

	var body map[string]json.RawMessage
	if err := json.Unmarshal(out.Bytes(), &body); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out.String())
	}
	for _, key := range []string{"domainInfo", "sslCertificate", "serverInfo", "securityGrade", "lighthouseResult"} {
		if _, ok := body[key]; !ok {
			t.Fatalf("missing slot %q in %s", key, out.String())
		}
	}
	var domain string
	if err := json.Unmarshal(body["domain"], &domain); err != nil || domain != "example.com" {
		t.Fatalf("expected normalized domain, got %s (%v)", body["domain"], err)
	}
	if strings.Contains(out.String(), "Sources:") {
		t.Fatal("progress line must not be mixed into JSON output")
	}
}

func TestRunAnalyzeText(t *testing.T) {
	disableColor(t)
	orch := newTestOrchestrator(t, &stubSources{
		certificateErr: report.NewSourceError(report.KindConnectionError, "connect: connection refused", nil),
	})

	var out bytes.Buffer
	if err := runAnalyze(context.Background(), &out, orch, "example.com", analyzeOptions{}); err != nil {
		t.Fatalf("runAnalyze failed: %v", err)
	}

	text := out.String()
	for _, want := range []string{
		"Domain: example.com",
		"registrar=Example Registrar, Inc.",
		"93.184.216.34 (US, Norwell)",
		"A+",
		"score 97",
		"first-contentful-paint=0.6 s largest-contentful-paint=0.9 s",
		"FAILED",
		"ConnectionError",
	} {
		if !strings.Contains(text, want) {
			t.Fatalf("expected output to contain %q, got:\n%s", want, text)
		}
	}
}

func TestRunAnalyzeProgress(t *testing.T) {
	disableColor(t)
	orch := newTestOrchestrator(t, &stubSources{})

	var out syncBuffer
	if err := runAnalyze(context.Background(), &out, orch, "example.com", analyzeOptions{Progress: true}); err != nil {
		t.Fatalf("runAnalyze failed: %v", err)
	}

	text := out.String()
	progressAt := strings.LastIndex(text, "Sources: 5/5")
	reportAt := strings.Index(text, "Domain:")
	if progressAt < 0 {
		t.Fatalf("expected final progress line, got:\n%s", text)
	}
	if reportAt < progressAt {
		t.Fatalf("report must be rendered after the progress line stops, got:\n%s", text)
	}
}

func TestRunAnalyzeStrict(t *testing.T) {
	disableColor(t)
	orch := newTestOrchestrator(t, &stubSources{
		gradeErr: report.NewSourceError(report.KindUpstreamError, "grading service returned HTTP 529", nil),
		auditErr: context.DeadlineExceeded,
	})

	var out bytes.Buffer
	err := runAnalyze(context.Background(), &out, orch, "example.com", analyzeOptions{Strict: true})

	var degraded *DegradedReportError
	if !errors.As(err, &degraded) {
		t.Fatalf("expected DegradedReportError, got %v", err)
	}
	if strings.Join(degraded.Failed, ",") != "grade,audit" {
		t.Fatalf("unexpected failed slots %v", degraded.Failed)
	}
	if exitCode(err) != exitDegraded {
		t.Fatalf("expected exit code %d, got %d", exitDegraded, exitCode(err))
	}
	if !strings.Contains(out.String(), "Domain: example.com") {
		t.Fatal("degraded report should still be printed")
	}

	// Without --strict a degraded report is still a success.
	out.Reset()
	if err := runAnalyze(context.Background(), &out, orch, "example.com", analyzeOptions{}); err != nil {
		t.Fatalf("expected success without strict, got %v", err)
	}
}

func TestRunAnalyzeRejectsEmptyDomain(t *testing.T) {
	orch := newTestOrchestrator(t, &stubSources{})

	for _, domain := range []string{"", "   "} {
		var out bytes.Buffer
		err := runAnalyze(context.Background(), &out, orch, domain, analyzeOptions{})

		var verr *analysis.ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("%q: expected ValidationError, got %v", domain, err)
		}
		if !errors.Is(err, sharederrors.ErrValidation) {
			t.Fatalf("%q: expected ErrValidation in chain", domain)
		}
		if exitCode(err) != exitUsage {
			t.Fatalf("%q: expected usage exit code, got %d", domain, exitCode(err))
		}
		if out.Len() != 0 {
			t.Fatalf("%q: nothing should be printed, got %q", domain, out.String())
		}
	}
}

func TestRunAnalyzePassesMalformedDomainToSources(t *testing.T) {
	disableColor(t)
	orch := newTestOrchestrator(t, &stubSources{
		resolutionErr: report.NewSourceError(report.KindConnectionError, "DNS lookup failed", nil),
	})

	var out bytes.Buffer
	if err := runAnalyze(context.Background(), &out, orch, "not a domain", analyzeOptions{}); err != nil {
		t.Fatalf("expected a report for a malformed domain, got %v", err)
	}
	if !strings.Contains(out.String(), "Domain: not a domain") {
		t.Fatalf("expected the raw domain in the report, got:\n%s", out.String())
	}
}

func TestDescribeAuditOrdersKnownMetricsFirst(t *testing.T) {
	disableColor(t)
	got := describeAudit(&report.AuditReport{
		Score: 0.5,
		Metrics: map[string]string{
			"zeta":                   "1",
			"total-blocking-time":    "200 ms",
			"first-contentful-paint": "1.2 s",
			"alpha":                  "2",
		},
	})
	want := "score 50  first-contentful-paint=1.2 s total-blocking-time=200 ms alpha=2 zeta=1"
	if got != want {
		t.Fatalf("describeAudit = %q, want %q", got, want)
	}
}

func TestDescribeHelpersHandleNil(t *testing.T) {
	if describeCertificate(nil) != "" || describeServer(nil) != "" || describeAudit(nil) != "" || describeRegistry(nil) != "" {
		t.Fatal("nil payloads should render empty")
	}
	if got := describeRegistry(report.RegistryRecord{"domainName": "EXAMPLE.COM"}); got != "1 fields" {
		t.Fatalf("unexpected registry fallback %q", got)
	}
}
