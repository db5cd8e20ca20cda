package report

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorKind classifies why a source slot failed.
type ErrorKind string

const (
	KindTimeout         ErrorKind = "Timeout"
	KindConnectionError ErrorKind = "ConnectionError"
	KindUpstreamError   ErrorKind = "UpstreamError"
	KindProcessError    ErrorKind = "ProcessError"
	KindUnknown         ErrorKind = "Unknown"
)

// ErrorDescriptor is the normalized failure carried by a failed slot.
type ErrorDescriptor struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (d ErrorDescriptor) String() string {
	return fmt.Sprintf("%s: %s", d.Kind, d.Message)
}

// SourceError is returned by adapters so the orchestrator can keep the
// adapter's own classification instead of guessing from the cause.
type SourceError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

// NewSourceError builds a SourceError. An empty message falls back to the cause.
func NewSourceError(kind ErrorKind, message string, cause error) *SourceError {
	return &SourceError{Kind: kind, Message: message, Err: cause}
}

func (e *SourceError) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}

// Describe converts any error returned across a source boundary into an
// ErrorDescriptor. A nil error yields a zero descriptor.
func Describe(err error) ErrorDescriptor {
	if err == nil {
		return ErrorDescriptor{}
	}

	var srcErr *SourceError
	if errors.As(err, &srcErr) {
		msg := srcErr.Message
		if msg == "" && srcErr.Err != nil {
			msg = srcErr.Err.Error()
		}
		return ErrorDescriptor{Kind: srcErr.Kind, Message: msg}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrorDescriptor{Kind: KindTimeout, Message: err.Error()}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrorDescriptor{Kind: KindTimeout, Message: err.Error()}
	}

	var dnsErr *net.DNSError
	var opErr *net.OpError
	if errors.As(err, &dnsErr) || errors.As(err, &opErr) {
		return ErrorDescriptor{Kind: KindConnectionError, Message: err.Error()}
	}

	return ErrorDescriptor{Kind: KindUnknown, Message: err.Error()}
}
