package utils

import (
	"errors"
	"fmt"
)

// FaultKind classifies recoverable dependency failures. Every kind is
// absorbed at the boundary where it occurs and replaced by a documented
// fallback value; none propagates past the stage or fetch that raised it.
type FaultKind string

const (
	// KindExternalUnavailable marks a provider that is not configured or
	// not reachable.
	KindExternalUnavailable FaultKind = "external_unavailable"
	// KindGeneration marks model output that could not be parsed as JSON.
	KindGeneration FaultKind = "generation_error"
	// KindValidation marks parsed JSON that does not satisfy a stage schema.
	KindValidation FaultKind = "validation_failure"
	// KindModelUnavailable marks a forecasting model that could not be loaded.
	KindModelUnavailable FaultKind = "model_unavailable"
)

// Fault wraps an operation, a fault kind, and the underlying error.
type Fault struct {
	Op   string
	Kind FaultKind
	Err  error
}

func (f *Fault) Error() string {
	if f.Err == nil {
		return fmt.Sprintf("%s: %s", f.Op, f.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", f.Op, f.Kind, f.Err)
}

func (f *Fault) Unwrap() error {
	return f.Err
}

// NewFault constructs a Fault.
func NewFault(op string, kind FaultKind, err error) error {
	return &Fault{Op: op, Kind: kind, Err: err}
}

// KindOf extracts the FaultKind from an error chain, or "" when the error
// carries no kind.
func KindOf(err error) FaultKind {
	var f *Fault
	if errors.As(err, &f) {
		return f.Kind
	}
	return ""
}
