package constants

import "time"

const (
	// DefaultListenAddr listens on every interface on the port the web UI expects.
	DefaultListenAddr = ":8080"
	// DefaultShutdownTimeout bounds graceful HTTP shutdown.
	DefaultShutdownTimeout = 30 * time.Second
)

// Per-source timeouts. The grading service and the renderer are the slow ones.
const (
	DefaultRegistryTimeout    = 15 * time.Second
	DefaultCertificateTimeout = 10 * time.Second
	DefaultResolutionTimeout  = 10 * time.Second
	DefaultGradeTimeout       = 30 * time.Second
	DefaultAuditTimeout       = 60 * time.Second
)

const (
	// HTTPSPort is where the certificate adapter connects.
	HTTPSPort = "443"
	// DefaultGradeEndpoint is the SSL Labs assessment API.
	DefaultGradeEndpoint = "https://api.ssllabs.com/api/v3/analyze"
	// DefaultGradeRateLimit is requests per second sent to the grading service.
	DefaultGradeRateLimit = 1
	// DefaultMaxBrowsers caps concurrently running renderer processes.
	DefaultMaxBrowsers = 2
	// TLSSoonExpiryWindow flags certificates expiring inside this window.
	TLSSoonExpiryWindow = 14 * 24 * time.Hour
	// UserAgent is sent to HTTP upstreams.
	UserAgent = "domain-insight/1.0"
)
