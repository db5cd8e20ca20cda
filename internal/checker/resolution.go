package checker

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/khanhnv2901/domain-insight/internal/domain/report"
)

// HostResolver resolves a hostname to addresses. *net.Resolver satisfies it.
type HostResolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// Locator maps an address to a location. A miss and a lookup error are the
// same thing to callers: ok=false.
type Locator interface {
	Lookup(ip net.IP) (report.Location, bool)
}

// ResolutionChecker resolves the domain and geolocates the first address.
type ResolutionChecker struct {
	Timeout     time.Duration
	NameServers []string // Optional custom nameservers
	Resolver    HostResolver
	Locator     Locator
}

func (d *ResolutionChecker) resolver() HostResolver {
	if d.Resolver != nil {
		return d.Resolver
	}

	resolver := &net.Resolver{
		PreferGo: true,
	}

	// If custom nameservers provided, use them
	if len(d.NameServers) > 0 {
		dialer := &net.Dialer{
			Timeout: d.Timeout,
		}
		servers := d.NameServers
		resolver.Dial = func(ctx context.Context, network, address string) (net.Conn, error) {
			var lastErr error
			for _, ns := range servers {
				if _, _, err := net.SplitHostPort(ns); err != nil {
					ns = net.JoinHostPort(ns, "53")
				}
				conn, err := dialer.DialContext(ctx, network, ns)
				if err == nil {
					return conn, nil
				}
				lastErr = err
			}
			return nil, lastErr
		}
	}
	return resolver
}

// Resolve looks up the domain, then its location. DNS failure fails the
// source; a geolocation miss yields an Unknown location.
func (d *ResolutionChecker) Resolve(ctx context.Context, domain string) (*report.ServerInfo, error) {
	if d.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}

	addrs, err := d.resolver().LookupHost(ctx, domain)
	if err != nil {
		return nil, fmt.Errorf("DNS lookup failed: %w", err)
	}

	address := preferredAddress(addrs)
	if address == "" {
		return nil, report.NewSourceError(report.KindConnectionError, "no A or AAAA records found", nil)
	}

	return &report.ServerInfo{
		IPAddress: address,
		Location:  d.locate(address),
	}, nil
}

func (d *ResolutionChecker) locate(address string) report.Location {
	ip := net.ParseIP(address)
	if d.Locator == nil || ip == nil {
		return report.UnknownLocation()
	}
	loc, ok := d.Locator.Lookup(ip)
	if !ok {
		return report.UnknownLocation()
	}
	return loc.Normalize()
}

// preferredAddress returns the first IPv4 address, else the first parseable one.
func preferredAddress(addrs []string) string {
	first := ""
	for _, a := range addrs {
		ip := net.ParseIP(a)
		if ip == nil {
			continue
		}
		if ip.To4() != nil {
			return a
		}
		if first == "" {
			first = a
		}
	}
	return first
}
