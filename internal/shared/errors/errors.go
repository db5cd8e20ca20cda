package errors

import "errors"

// Domain errors
var (
	// Request errors
	ErrValidation     = errors.New("validation error")
	ErrDomainRequired = errors.New("Domain is required")

	// Orchestration errors
	ErrOrchestration       = errors.New("orchestration error")
	ErrSourceNotConfigured = errors.New("source not configured")

	// Browser errors
	ErrBrowserLaunch   = errors.New("browser launch failed")
	ErrBrowserClosed   = errors.New("browser already closed")
	ErrMissingCategory = errors.New("performance category missing from audit result")
)
