// Package probe defines the tagged result every metric probe returns.
// A probe never fails: it yields either a measured value or its documented
// degraded default, together with a Reason the logging layer uses to decide
// whether the degradation is worth reporting.
package probe

import (
	"context"
	"errors"
	"io/fs"
	"math"
	"net"
	"os"
	"os/exec"
	"syscall"
)

// Reason classifies why a probe produced its value.
type Reason string

const (
	// ReasonOK means the value was measured.
	ReasonOK Reason = "ok"
	// ReasonUnavailable means the underlying facility is absent
	// (binary missing, file or table absent, service unreachable).
	ReasonUnavailable Reason = "unavailable"
	// ReasonUnsupported means the facility does not exist on this platform
	// or for this driver.
	ReasonUnsupported Reason = "unsupported"
	// ReasonDenied means access was refused (permission or authentication).
	ReasonDenied Reason = "denied"
	// ReasonFault is anything unanticipated: malformed output, unexpected errors.
	ReasonFault Reason = "fault"
)

// Expected reports whether a degradation with this reason is part of normal
// operation on reduced-privilege or partial hosts and must stay silent.
func (r Reason) Expected() bool {
	return r != ReasonFault
}

var (
	// ErrUnavailable marks a missing facility.
	ErrUnavailable = errors.New("facility unavailable")
	// ErrUnsupported marks a facility not implemented for the platform or driver.
	ErrUnsupported = errors.New("not supported")
	// ErrDenied marks a permission or authentication refusal.
	ErrDenied = errors.New("access denied")
)

// Result is the outcome of a single probe invocation.
type Result[T any] struct {
	Value  T
	Reason Reason
	Err    error
}

// OK wraps a measured value.
func OK[T any](v T) Result[T] {
	return Result[T]{Value: v, Reason: ReasonOK}
}

// Degrade returns the degraded default with the reason derived from err.
func Degrade[T any](def T, err error) Result[T] {
	return Result[T]{Value: def, Reason: Classify(err), Err: err}
}

// DegradeWith returns the degraded default with an explicit reason.
func DegradeWith[T any](def T, reason Reason, err error) Result[T] {
	return Result[T]{Value: def, Reason: reason, Err: err}
}

// Degraded reports whether the value is a fallback.
func (r Result[T]) Degraded() bool {
	return r.Reason != ReasonOK
}

// Classify maps an error onto a Reason. A nil error is ReasonOK.
func Classify(err error) Reason {
	switch {
	case err == nil:
		return ReasonOK
	case errors.Is(err, ErrUnsupported):
		return ReasonUnsupported
	case errors.Is(err, ErrDenied), errors.Is(err, fs.ErrPermission):
		return ReasonDenied
	case errors.Is(err, ErrUnavailable), errors.Is(err, fs.ErrNotExist), errors.Is(err, exec.ErrNotFound):
		return ReasonUnavailable
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, os.ErrDeadlineExceeded):
		return ReasonUnavailable
	case errors.Is(err, syscall.ECONNREFUSED), isDNSError(err):
		return ReasonUnavailable
	default:
		return ReasonFault
	}
}

func isDNSError(err error) bool {
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

// severity orders reasons so Join reports the one most worth surfacing.
var severity = map[Reason]int{
	ReasonOK:          0,
	ReasonUnsupported: 1,
	ReasonUnavailable: 2,
	ReasonDenied:      3,
	ReasonFault:       4,
}

// Join builds a result for a probe made of several independent reads. Nil
// errors are ignored; the most severe remaining reason wins.
func Join[T any](v T, errs ...error) Result[T] {
	var (
		kept   []error
		reason = ReasonOK
	)
	for _, err := range errs {
		if err == nil {
			continue
		}
		kept = append(kept, err)
		if r := Classify(err); severity[r] > severity[reason] {
			reason = r
		}
	}
	if len(kept) == 0 {
		return OK(v)
	}
	return Result[T]{Value: v, Reason: reason, Err: errors.Join(kept...)}
}

// Round2 rounds to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ClampPercent bounds a percentage to [0, 100]. NaN becomes 0.
func ClampPercent(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
