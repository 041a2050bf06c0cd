// Package exception provides the error taxonomy used across the plan capture pipeline.
// Every failure raised by a pipeline stage is a *BatchError carrying the stage (module)
// it came from, the Kind of failure and the wrapped driver or parser error.
package exception

import (
	"errors"
	"fmt"
	"runtime"
)

// Kind classifies a BatchError.
type Kind int

const (
	// KindUnknown is used for errors that have not been classified.
	KindUnknown Kind = iota
	// KindConnectivity covers failures to reach or keep a database session.
	KindConnectivity
	// KindStatement covers a candidate statement that failed under EXPLAIN.
	KindStatement
	// KindPlanFormat covers plan text without a parsable cost annotation.
	KindPlanFormat
	// KindPersistence covers failures while inserting results.
	KindPersistence
	// KindConfiguration covers invalid or missing configuration.
	KindConfiguration
)

// String returns the lower-case name of the kind, used in logs and metric labels.
func (k Kind) String() string {
	switch k {
	case KindConnectivity:
		return "connectivity"
	case KindStatement:
		return "statement"
	case KindPlanFormat:
		return "plan_format"
	case KindPersistence:
		return "persistence"
	case KindConfiguration:
		return "configuration"
	default:
		return "unknown"
	}
}

// BatchError is the error type raised by pipeline stages.
type BatchError struct {
	// Module indicates where the error occurred (e.g., "reader", "executor", "extractor", "writer", "config").
	Module string
	// Message is a concise description of the error.
	Message string
	// OriginalErr is the wrapped original error.
	OriginalErr error
	// Kind is the failure category.
	Kind Kind
	// isSkippable reports whether a skip policy may drop the affected candidate.
	isSkippable bool
	// StackTrace is the stack trace at the time of the error (for debugging).
	StackTrace string
}

// NewBatchError creates a new BatchError instance.
// Statement and plan format failures are skippable; the remaining kinds are not.
func NewBatchError(module, message string, originalErr error, kind Kind) *BatchError {
	buf := make([]byte, 2048)
	n := runtime.Stack(buf, false)

	return &BatchError{
		Module:      module,
		Message:     message,
		OriginalErr: originalErr,
		Kind:        kind,
		isSkippable: kind == KindStatement || kind == KindPlanFormat,
		StackTrace:  string(buf[:n]),
	}
}

// NewBatchErrorf creates a new BatchError using a format string.
// If the last element of a is an error it becomes OriginalErr and is not used for formatting.
//
// Example:
//
//	NewBatchErrorf("reader", KindConnectivity, "failed to query %s", table, err)
func NewBatchErrorf(module string, kind Kind, format string, a ...interface{}) *BatchError {
	var originalErr error
	args := a
	if len(args) > 0 {
		if err, ok := args[len(args)-1].(error); ok {
			originalErr = err
			args = args[:len(args)-1]
		}
	}
	return NewBatchError(module, fmt.Sprintf(format, args...), originalErr, kind)
}

// Error implements the error interface.
func (e *BatchError) Error() string {
	if e.OriginalErr != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Module, e.Message, e.OriginalErr)
	}
	return fmt.Sprintf("[%s] %s", e.Module, e.Message)
}

// Unwrap returns the original error for errors.Unwrap.
func (e *BatchError) Unwrap() error {
	return e.OriginalErr
}

// IsSkippable returns whether this error is skippable.
func (e *BatchError) IsSkippable() bool {
	return e.isSkippable
}

// AsBatchError finds the first BatchError in err's chain.
func AsBatchError(err error) (*BatchError, bool) {
	var be *BatchError
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}

// KindOf returns the Kind of the first BatchError in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	if be, ok := AsBatchError(err); ok {
		return be.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given Kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsSkippable reports whether err may be dropped by a skip policy.
// Errors outside the taxonomy are never skippable.
func IsSkippable(err error) bool {
	if be, ok := AsBatchError(err); ok {
		return be.IsSkippable()
	}
	return false
}

// IsFatal reports whether err must abort the run regardless of policy.
func IsFatal(err error) bool {
	return err != nil && !IsSkippable(err)
}

// ExtractErrorMessage returns the Message of a BatchError, or err.Error() otherwise.
func ExtractErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	if be, ok := AsBatchError(err); ok {
		return be.Message
	}
	return err.Error()
}
