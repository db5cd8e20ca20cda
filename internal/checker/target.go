package checker

import (
	"net/url"
	"strings"

	sharederrors "github.com/khanhnv2901/domain-insight/internal/shared/errors"
	"golang.org/x/net/idna"
)

// ExtractHost returns the hostname of a target given as a bare host, a
// host:port, or a URL. It returns "" when the input names no host.
func ExtractHost(target string) string {
	target = strings.TrimSpace(target)
	if target == "" {
		return ""
	}

	// Only bare hosts get a scheme added; "https://" alone has no host.
	raw := target
	if !strings.Contains(target, "://") {
		raw = "https://" + target
	}
	if parsed, err := url.Parse(raw); err == nil {
		return parsed.Hostname()
	}

	// Fallback: extract host manually
	host := target
	if _, rest, ok := strings.Cut(host, "://"); ok {
		host = rest
	}
	host, _, _ = strings.Cut(host, "/")
	host, _, _ = strings.Cut(host, ":")
	return host
}

// NormalizeDomain reduces user input to a lower-case hostname for every
// source: scheme, path, and port are dropped and internationalized names are
// converted to punycode. Only empty input is rejected. Input that is not a
// valid DNS name is passed through lower-cased so each source fails its own
// slot.
func NormalizeDomain(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", sharederrors.ErrDomainRequired
	}

	host := strings.TrimSuffix(ExtractHost(raw), ".")
	if host == "" {
		return strings.ToLower(raw), nil
	}

	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return strings.ToLower(host), nil
	}
	return strings.ToLower(ascii), nil
}
