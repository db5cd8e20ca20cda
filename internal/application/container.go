package application

import (
	"fmt"
	"time"

	"github.com/khanhnv2901/domain-insight/internal/application/analysis"
	"github.com/khanhnv2901/domain-insight/internal/checker"
	"github.com/khanhnv2901/domain-insight/internal/infrastructure/browser"
	"github.com/khanhnv2901/domain-insight/internal/infrastructure/geo"
	consts "github.com/khanhnv2901/domain-insight/internal/shared/constants"
	"go.uber.org/zap"
)

// Config is everything needed to build the analysis services.
type Config struct {
	Timeouts analysis.Timeouts
	Deadline time.Duration

	Fingerprint    string   // TLS ClientHello profile for the certificate source
	NameServers    []string // optional resolver override, host:port
	GeoIPDatabase  string   // MaxMind City database; empty disables geolocation
	GradeEndpoint  string
	GradeRateLimit int

	Browser browser.Options
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		Timeouts: analysis.Timeouts{
			Registry:    consts.DefaultRegistryTimeout,
			Certificate: consts.DefaultCertificateTimeout,
			Resolution:  consts.DefaultResolutionTimeout,
			Grade:       consts.DefaultGradeTimeout,
			Audit:       consts.DefaultAuditTimeout,
		},
		Fingerprint:    string(checker.ProfileGo),
		GradeEndpoint:  consts.DefaultGradeEndpoint,
		GradeRateLimit: consts.DefaultGradeRateLimit,
		Browser:        browser.DefaultOptions(),
	}
}

// Container holds all application services and adapters
// This is a simple dependency injection container
type Container struct {
	// Adapters
	Registry    *checker.RegistryChecker
	Certificate *checker.CertificateChecker
	Resolution  *checker.ResolutionChecker
	Grade       *checker.GradeChecker
	Audit       *checker.AuditChecker

	// Infrastructure
	Locator  *geo.Locator
	Browsers *browser.Manager

	// Services
	Orchestrator *analysis.Orchestrator
}

// NewContainer creates a new application service container
func NewContainer(cfg Config, logger *zap.Logger) (*Container, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	profile, err := checker.ParseProfile(cfg.Fingerprint)
	if err != nil {
		return nil, fmt.Errorf("failed to configure certificate source: %w", err)
	}

	locator, err := geo.Open(cfg.GeoIPDatabase)
	if err != nil {
		return nil, fmt.Errorf("failed to open geolocation database: %w", err)
	}
	if cfg.GeoIPDatabase == "" {
		logger.Info("geolocation database not configured, locations will be Unknown")
	}

	browsers := browser.NewManager(cfg.Browser, logger.Named("browser"))

	c := &Container{
		Registry: checker.NewRegistryChecker(cfg.Timeouts.Registry),
		Certificate: &checker.CertificateChecker{
			Timeout: cfg.Timeouts.Certificate,
			Port:    consts.HTTPSPort,
			Profile: profile,
		},
		Resolution: &checker.ResolutionChecker{
			Timeout:     cfg.Timeouts.Resolution,
			NameServers: cfg.NameServers,
			Locator:     locator,
		},
		Grade: checker.NewGradeChecker(cfg.GradeEndpoint, cfg.Timeouts.Grade, cfg.GradeRateLimit),
		Audit: &checker.AuditChecker{
			Launcher: browsers,
			Timeout:  cfg.Timeouts.Audit,
			Logger:   logger.Named("audit"),
		},
		Locator:  locator,
		Browsers: browsers,
	}

	c.Orchestrator = analysis.NewOrchestrator(analysis.Sources{
		Registry:    c.Registry,
		Certificate: c.Certificate,
		Resolution:  c.Resolution,
		Grade:       c.Grade,
		Audit:       c.Audit,
	}, analysis.Config{
		Timeouts: cfg.Timeouts,
		Deadline: cfg.Deadline,
	}, logger.Named("analysis"))

	return c, nil
}

// Close releases long-lived resources.
func (c *Container) Close() error {
	if c.Locator != nil {
		return c.Locator.Close()
	}
	return nil
}
