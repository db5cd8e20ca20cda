package report

import "encoding/json"

// SourceResult holds the outcome of one source: either a value or a failure.
// The zero value is an unsettled slot and renders as an Unknown failure so a
// report never serializes a missing or null slot.
type SourceResult[T any] struct {
	value   T
	failure *ErrorDescriptor
	settled bool
}

// Succeeded returns an ok result.
func Succeeded[T any](value T) SourceResult[T] {
	return SourceResult[T]{value: value, settled: true}
}

// Failed returns a failed result.
func Failed[T any](failure ErrorDescriptor) SourceResult[T] {
	if failure.Kind == "" {
		failure.Kind = KindUnknown
	}
	return SourceResult[T]{failure: &failure, settled: true}
}

// FromError returns Failed(Describe(err)) when err is non-nil, otherwise Succeeded(value).
func FromError[T any](value T, err error) SourceResult[T] {
	if err != nil {
		return Failed[T](Describe(err))
	}
	return Succeeded(value)
}

// OK reports whether the slot settled successfully.
func (r SourceResult[T]) OK() bool {
	return r.settled && r.failure == nil
}

// Settled reports whether the slot was populated at all.
func (r SourceResult[T]) Settled() bool {
	return r.settled
}

// Value returns the payload and whether the slot is ok.
func (r SourceResult[T]) Value() (T, bool) {
	return r.value, r.OK()
}

// Failure returns the failure descriptor, or nil for an ok slot.
func (r SourceResult[T]) Failure() *ErrorDescriptor {
	if !r.settled {
		return &ErrorDescriptor{Kind: KindUnknown, Message: "source did not settle"}
	}
	return r.failure
}

type okEnvelope[T any] struct {
	OK T `json:"ok"`
}

type failedEnvelope struct {
	Failed *ErrorDescriptor `json:"failed"`
}

// MarshalJSON renders {"ok": value} or {"failed": {"kind": ..., "message": ...}}.
func (r SourceResult[T]) MarshalJSON() ([]byte, error) {
	if r.OK() {
		return json.Marshal(okEnvelope[T]{OK: r.value})
	}
	return json.Marshal(failedEnvelope{Failed: r.Failure()})
}
