package checker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/khanhnv2901/domain-insight/internal/domain/report"
	consts "github.com/khanhnv2901/domain-insight/internal/shared/constants"
	"golang.org/x/time/rate"
)

// maxGradeBody caps how much of the grading response is decoded.
const maxGradeBody = 4 << 20

// gradeResponse is the subset of the assessment payload we read.
type gradeResponse struct {
	Host      string `json:"host"`
	Status    string `json:"status"`
	Endpoints []struct {
		IPAddress string `json:"ipAddress"`
		Grade     string `json:"grade"`
	} `json:"endpoints"`
}

// GradeChecker asks a third-party grading service for the host's TLS grade.
type GradeChecker struct {
	Endpoint string
	Timeout  time.Duration
	Client   *http.Client
	Limiter  *rate.Limiter // shared throttle towards the grading service
}

// NewGradeChecker builds a checker that sends at most rps requests per second.
func NewGradeChecker(endpoint string, timeout time.Duration, rps int) *GradeChecker {
	if endpoint == "" {
		endpoint = consts.DefaultGradeEndpoint
	}
	var limiter *rate.Limiter
	if rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(rps), rps)
	}
	return &GradeChecker{
		Endpoint: endpoint,
		Timeout:  timeout,
		Client:   &http.Client{Timeout: timeout},
		Limiter:  limiter,
	}
}

// Grade returns the first endpoint's grade, or "Unknown" when the service
// answered without one.
func (g *GradeChecker) Grade(ctx context.Context, domain string) (string, error) {
	if g.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.Timeout)
		defer cancel()
	}

	if g.Limiter != nil {
		if err := g.Limiter.Wait(ctx); err != nil {
			return "", report.NewSourceError(report.KindTimeout, "grading request throttled past deadline", err)
		}
	}

	endpoint := g.Endpoint
	if endpoint == "" {
		endpoint = consts.DefaultGradeEndpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", report.NewSourceError(report.KindUnknown, "invalid grading endpoint", err)
	}
	q := u.Query()
	q.Set("host", domain)
	q.Set("all", "done")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", report.NewSourceError(report.KindUnknown, "create grading request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", consts.UserAgent)

	client := g.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("grading request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxGradeBody))
		return "", report.NewSourceError(report.KindUpstreamError,
			fmt.Sprintf("grading service returned HTTP %d", resp.StatusCode), nil)
	}

	var payload gradeResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxGradeBody)).Decode(&payload); err != nil {
		return "", report.NewSourceError(report.KindUpstreamError, "invalid grading response", err)
	}

	return firstGrade(payload), nil
}

func firstGrade(payload gradeResponse) string {
	if len(payload.Endpoints) == 0 {
		return report.Unknown
	}
	if grade := strings.TrimSpace(payload.Endpoints[0].Grade); grade != "" {
		return grade
	}
	return report.Unknown
}
