package cmd

import (
	"strings"
	"time"

	"github.com/khanhnv2901/domain-insight/internal/application"
	"github.com/khanhnv2901/domain-insight/internal/application/analysis"
	"github.com/khanhnv2901/domain-insight/internal/infrastructure/browser"
	consts "github.com/khanhnv2901/domain-insight/internal/shared/constants"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	defaultRateLimit = 10
	defaultRateBurst = 20
	defaultLogLevel  = "info"
	defaultLogFormat = "json"
)

// CLIConfig captures runtime configuration shared across commands.
type CLIConfig struct {
	Server   ServerConfig
	Analysis AnalysisConfig
	Log      LogConfig
}

// ServerConfig groups the serve command settings.
type ServerConfig struct {
	Addr            string
	CORSOrigins     []string
	RateLimit       int
	RateBurst       int
	ShutdownTimeout time.Duration
}

// AnalysisConfig groups source, timeout and browser settings.
type AnalysisConfig struct {
	Timeouts       analysis.Timeouts
	Deadline       time.Duration
	Fingerprint    string
	NameServers    []string
	GeoIPDatabase  string
	GradeEndpoint  string
	GradeRateLimit int
	Browser        browser.Options
}

// LogConfig selects zap level and encoding.
type LogConfig struct {
	Level  string
	Format string
}

var cliConfig = newCLIConfig()

func newCLIConfig() *CLIConfig {
	defaults := application.DefaultConfig()
	return &CLIConfig{
		Server: ServerConfig{
			Addr:            consts.DefaultListenAddr,
			CORSOrigins:     []string{},
			RateLimit:       defaultRateLimit,
			RateBurst:       defaultRateBurst,
			ShutdownTimeout: consts.DefaultShutdownTimeout,
		},
		Analysis: AnalysisConfig{
			Timeouts:       defaults.Timeouts,
			Deadline:       defaults.Deadline,
			Fingerprint:    defaults.Fingerprint,
			NameServers:    []string{},
			GradeEndpoint:  defaults.GradeEndpoint,
			GradeRateLimit: defaults.GradeRateLimit,
			Browser:        defaults.Browser,
		},
		Log: LogConfig{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}

// applicationConfig converts the CLI view into the container configuration.
func (c *CLIConfig) applicationConfig() application.Config {
	return application.Config{
		Timeouts:       c.Analysis.Timeouts,
		Deadline:       c.Analysis.Deadline,
		Fingerprint:    c.Analysis.Fingerprint,
		NameServers:    append([]string(nil), c.Analysis.NameServers...),
		GeoIPDatabase:  c.Analysis.GeoIPDatabase,
		GradeEndpoint:  c.Analysis.GradeEndpoint,
		GradeRateLimit: c.Analysis.GradeRateLimit,
		Browser:        c.Analysis.Browser,
	}
}

// longestSourceTimeout is the upper bound of one analysis when no deadline is set.
func (c *CLIConfig) longestSourceTimeout() time.Duration {
	if c.Analysis.Deadline > 0 {
		return c.Analysis.Deadline
	}
	t := c.Analysis.Timeouts
	longest := t.Registry
	for _, d := range []time.Duration{t.Certificate, t.Resolution, t.Grade, t.Audit} {
		if d > longest {
			longest = d
		}
	}
	return longest
}

// registerAnalysisFlags binds the source and browser flags shared by serve and analyze.
func registerAnalysisFlags(flags *pflag.FlagSet, cfg *CLIConfig) {
	a := &cfg.Analysis
	flags.DurationVar(&a.Timeouts.Registry, "registry-timeout", a.Timeouts.Registry, "WHOIS lookup timeout")
	flags.DurationVar(&a.Timeouts.Certificate, "certificate-timeout", a.Timeouts.Certificate, "TLS certificate fetch timeout")
	flags.DurationVar(&a.Timeouts.Resolution, "resolution-timeout", a.Timeouts.Resolution, "DNS resolution timeout")
	flags.DurationVar(&a.Timeouts.Grade, "grade-timeout", a.Timeouts.Grade, "Security grade request timeout")
	flags.DurationVar(&a.Timeouts.Audit, "audit-timeout", a.Timeouts.Audit, "Performance audit timeout, including browser startup")
	flags.DurationVar(&a.Deadline, "deadline", a.Deadline, "Overall analysis deadline (0 = disabled)")
	flags.StringVar(&a.Fingerprint, "fingerprint", a.Fingerprint, "TLS ClientHello profile: go, chrome, firefox, safari, random")
	flags.StringSliceVar(&a.NameServers, "nameserver", a.NameServers, "Custom DNS server host:port (repeatable)")
	flags.StringVar(&a.GeoIPDatabase, "geoip-db", a.GeoIPDatabase, "Path to a MaxMind GeoLite2/GeoIP2 City database")
	flags.StringVar(&a.GradeEndpoint, "grade-endpoint", a.GradeEndpoint, "Security grading API endpoint")
	flags.IntVar(&a.GradeRateLimit, "grade-rate-limit", a.GradeRateLimit, "Requests per second sent to the grading API (0 = unlimited)")
	flags.StringVar(&a.Browser.ExecPath, "chrome-path", a.Browser.ExecPath, "Chrome/Chromium executable (default: auto-detect)")
	flags.BoolVar(&a.Browser.Headless, "headless", a.Browser.Headless, "Run the browser headless")
	flags.BoolVar(&a.Browser.NoSandbox, "no-sandbox", a.Browser.NoSandbox, "Disable the Chrome sandbox (containers)")
	flags.IntVar(&a.Browser.MaxConcurrent, "max-browsers", a.Browser.MaxConcurrent, "Maximum concurrently running browsers")
}

type durationSetting struct {
	key    string
	flag   string
	target *time.Duration
}

// applyConfigDefaults merges config file and environment values into the runtime
// config when the user did not explicitly override the corresponding flag.
func applyConfigDefaults(cmd *cobra.Command, cfg *CLIConfig) {
	flags := cmd.Flags()

	setString := func(key, flag string, target *string) {
		if viper.IsSet(key) {
			applyStringDefault(flags, flag, viper.GetString(key), func(v string) { *target = v })
		}
	}
	setInt := func(key, flag string, target *int) {
		if viper.IsSet(key) {
			applyIntDefault(flags, flag, viper.GetInt(key), func(v int) { *target = v })
		}
	}
	setBool := func(key, flag string, target *bool) {
		if viper.IsSet(key) {
			applyBoolDefault(flags, flag, viper.GetBool(key), func(v bool) { *target = v })
		}
	}
	setSlice := func(key, flag string, target *[]string) {
		if viper.IsSet(key) {
			applyStringSliceDefault(flags, flag, splitList(viper.GetStringSlice(key)), func(v []string) { *target = v })
		}
	}

	a := &cfg.Analysis
	for _, d := range []durationSetting{
		{key: "server.shutdown_timeout", flag: "shutdown-timeout", target: &cfg.Server.ShutdownTimeout},
		{key: "analysis.deadline", flag: "deadline", target: &a.Deadline},
		{key: "sources.registry.timeout", flag: "registry-timeout", target: &a.Timeouts.Registry},
		{key: "sources.certificate.timeout", flag: "certificate-timeout", target: &a.Timeouts.Certificate},
		{key: "sources.resolution.timeout", flag: "resolution-timeout", target: &a.Timeouts.Resolution},
		{key: "sources.grade.timeout", flag: "grade-timeout", target: &a.Timeouts.Grade},
		{key: "sources.audit.timeout", flag: "audit-timeout", target: &a.Timeouts.Audit},
	} {
		if viper.IsSet(d.key) {
			target := d.target
			applyDurationDefault(flags, d.flag, viper.GetDuration(d.key), func(v time.Duration) { *target = v })
		}
	}

	setString("server.addr", "addr", &cfg.Server.Addr)
	setSlice("server.cors_origins", "cors-origins", &cfg.Server.CORSOrigins)
	setInt("server.rate_limit", "rate-limit", &cfg.Server.RateLimit)
	setInt("server.rate_burst", "rate-burst", &cfg.Server.RateBurst)

	setString("sources.certificate.fingerprint", "fingerprint", &a.Fingerprint)
	setSlice("sources.resolution.nameservers", "nameserver", &a.NameServers)
	setString("sources.resolution.geoip_db", "geoip-db", &a.GeoIPDatabase)
	setString("sources.grade.endpoint", "grade-endpoint", &a.GradeEndpoint)
	setInt("sources.grade.rate_limit", "grade-rate-limit", &a.GradeRateLimit)

	setString("browser.exec_path", "chrome-path", &a.Browser.ExecPath)
	setBool("browser.headless", "headless", &a.Browser.Headless)
	setBool("browser.no_sandbox", "no-sandbox", &a.Browser.NoSandbox)
	setInt("browser.max_concurrent", "max-browsers", &a.Browser.MaxConcurrent)

	setString("log.level", "log-level", &cfg.Log.Level)
	setString("log.format", "log-format", &cfg.Log.Format)
}

// splitList accepts both YAML lists and comma separated environment values.
func splitList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func flagChanged(flags *pflag.FlagSet, name string) bool {
	if flags == nil {
		return false
	}
	flag := flags.Lookup(name)
	return flag != nil && flag.Changed
}

func applyIntDefault(flags *pflag.FlagSet, name string, value int, setter func(int)) {
	if setter == nil || flagChanged(flags, name) {
		return
	}
	setter(value)
}

func applyBoolDefault(flags *pflag.FlagSet, name string, value bool, setter func(bool)) {
	if setter == nil || flagChanged(flags, name) {
		return
	}
	setter(value)
}

func applyDurationDefault(flags *pflag.FlagSet, name string, value time.Duration, setter func(time.Duration)) {
	if setter == nil || flagChanged(flags, name) {
		return
	}
	setter(value)
}

func applyStringDefault(flags *pflag.FlagSet, name, value string, setter func(string)) {
	if setter == nil || flagChanged(flags, name) {
		return
	}
	setter(value)
}

func applyStringSliceDefault(flags *pflag.FlagSet, name string, value []string, setter func([]string)) {
	if setter == nil || flagChanged(flags, name) {
		return
	}
	setter(value)
}
