package checker

import (
	"bufio"
	"context"
	"strings"
	"time"
	"unicode"

	"github.com/khanhnv2901/domain-insight/internal/domain/report"
	"github.com/likexian/whois"
)

// WhoisQuerier performs a raw WHOIS query. *whois.Client satisfies it.
type WhoisQuerier interface {
	Whois(domain string, servers ...string) (string, error)
}

// RegistryChecker looks up registration data for a domain.
type RegistryChecker struct {
	Client  WhoisQuerier
	Timeout time.Duration
}

// NewRegistryChecker returns a checker backed by a WHOIS client that follows
// registrar referrals.
func NewRegistryChecker(timeout time.Duration) *RegistryChecker {
	return &RegistryChecker{
		Client:  whois.NewClient().SetTimeout(timeout),
		Timeout: timeout,
	}
}

type whoisReply struct {
	raw string
	err error
}

// Lookup queries WHOIS and returns the parsed record.
func (r *RegistryChecker) Lookup(ctx context.Context, domain string) (report.RegistryRecord, error) {
	if r.Client == nil {
		return nil, report.NewSourceError(report.KindUnknown, "registry client not configured", nil)
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	// The WHOIS client has no context support; its own dial/read timeout
	// bounds the goroutine after we stop waiting.
	replies := make(chan whoisReply, 1)
	go func() {
		raw, err := r.Client.Whois(domain)
		replies <- whoisReply{raw: raw, err: err}
	}()

	var reply whoisReply
	select {
	case <-ctx.Done():
		return nil, report.NewSourceError(report.KindTimeout, "registry lookup timed out", ctx.Err())
	case reply = <-replies:
	}

	if reply.err != nil {
		desc := report.Describe(reply.err)
		if desc.Kind == report.KindUnknown {
			desc.Kind = report.KindUpstreamError
		}
		return nil, report.NewSourceError(desc.Kind, "registry lookup failed", reply.err)
	}

	record := ParseWhois(reply.raw)
	if len(record) == 0 {
		if notFound(reply.raw) {
			return nil, report.NewSourceError(report.KindUpstreamError, "domain not found in registry", nil)
		}
		return nil, report.NewSourceError(report.KindUpstreamError, "registry returned no data", nil)
	}
	return record, nil
}

var notFoundMarkers = []string{
	"no match for",
	"not found",
	"no data found",
	"no entries found",
	"status: free",
}

// notFound reports whether an unparseable reply is a registry miss.
func notFound(raw string) bool {
	head := strings.ToLower(raw)
	if len(head) > 512 {
		head = head[:512]
	}
	for _, marker := range notFoundMarkers {
		if strings.Contains(head, marker) {
			return true
		}
	}
	return false
}

// ParseWhois turns "Key: Value" lines into a record keyed by camelCase names.
// The first value of a repeated key wins. Parsing stops at the ">>>" footer
// that precedes registry legal notices.
func ParseWhois(raw string) report.RegistryRecord {
	record := report.RegistryRecord{}

	scanner := bufio.NewScanner(strings.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "%") || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, ">>>") {
			break
		}

		idx := strings.Index(line, ":")
		if idx <= 0 {
			continue
		}
		key := camelCase(line[:idx])
		value := strings.TrimSpace(line[idx+1:])
		if key == "" || value == "" {
			continue
		}

		if _, ok := record[key]; !ok {
			record[key] = value
		}
	}

	return record
}

func camelCase(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	var b strings.Builder
	for i, w := range words {
		w = strings.ToLower(w)
		if i == 0 {
			b.WriteString(w)
			continue
		}
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		b.WriteString(string(runes))
	}
	return b.String()
}
