package cmd

import (
	"context"
	"testing"

	"github.com/khanhnv2901/domain-insight/internal/application/analysis"
	"github.com/khanhnv2901/domain-insight/internal/domain/report"
	"go.uber.org/zap/zaptest"
)

// stubSources answers every source from fixed values. A non-nil error
// field makes that source fail.
type stubSources struct {
	registryErr    error
	certificateErr error
	resolutionErr  error
	gradeErr       error
	auditErr       error
}

func (s *stubSources) Lookup(context.Context, string) (report.RegistryRecord, error) {
	if s.registryErr != nil {
		return nil, s.registryErr
	}
	return report.RegistryRecord{"registrar": "Example Registrar, Inc.", "creationDate": "1995-08-14T04:00:00Z"}, nil
}

func (s *stubSources) Inspect(context.Context, string) (*report.Certificate, error) {
	if s.certificateErr != nil {
		return nil, s.certificateErr
	}
	return &report.Certificate{
		Subject:         report.DistinguishedName{"CN": "example.com"},
		Issuer:          report.DistinguishedName{"O": "DigiCert Inc"},
		ValidTo:         "Mar  1 23:59:59 2027 GMT",
		DaysUntilExpiry: 120,
		TLSVersion:      "TLSv1.3",
		Authorized:      true,
	}, nil
}

func (s *stubSources) Resolve(context.Context, string) (*report.ServerInfo, error) {
	if s.resolutionErr != nil {
		return nil, s.resolutionErr
	}
	return &report.ServerInfo{IPAddress: "93.184.216.34", Location: report.Location{Country: "US", City: "Norwell"}}, nil
}

func (s *stubSources) Grade(context.Context, string) (string, error) {
	if s.gradeErr != nil {
		return "", s.gradeErr
	}
	return "A+", nil
}

func (s *stubSources) Audit(context.Context, string) (*report.AuditReport, error) {
	if s.auditErr != nil {
		return nil, s.auditErr
	}
	return &report.AuditReport{
		Score: 0.97,
		Metrics: map[string]string{
			"first-contentful-paint":   "0.6 s",
			"largest-contentful-paint": "0.9 s",
		},
		AuditDetail: &report.AuditDetail{RequestedURL: "https://example.com"},
	}, nil
}

// newTestOrchestrator wires s into every slot of a fresh orchestrator.
func newTestOrchestrator(t *testing.T, s *stubSources) *analysis.Orchestrator {
	t.Helper()
	return analysis.NewOrchestrator(
		analysis.Sources{Registry: s, Certificate: s, Resolution: s, Grade: s, Audit: s},
		analysis.Config{},
		zaptest.NewLogger(t),
	)
}
