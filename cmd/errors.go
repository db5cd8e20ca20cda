package cmd

import (
	"errors"
	"fmt"
	"strings"

	sharederrors "github.com/khanhnv2901/domain-insight/internal/shared/errors"
)

const (
	exitFailure  = 1
	exitUsage    = 2
	exitDegraded = 3
)

// DegradedReportError is returned by analyze --strict when some sources failed.
type DegradedReportError struct {
	Domain string
	Failed []string
}

func (e *DegradedReportError) Error() string {
	return fmt.Sprintf("%s: %d source(s) failed: %s", e.Domain, len(e.Failed), strings.Join(e.Failed, ", "))
}

func exitCode(err error) int {
	var degraded *DegradedReportError
	switch {
	case errors.As(err, &degraded):
		return exitDegraded
	case errors.Is(err, sharederrors.ErrValidation):
		return exitUsage
	default:
		return exitFailure
	}
}
