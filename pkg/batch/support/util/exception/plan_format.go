package exception

import (
	"errors"
	"fmt"
)

// ErrCostNotFound is returned when a plan's top line has no "cost=<min>..<max> rows=" annotation.
var ErrCostNotFound = errors.New("cost annotation not found")

// PlanFormatError reports plan text that could not be parsed into cost bounds.
type PlanFormatError struct {
	// Line is the plan line that was inspected (empty if the plan had no lines).
	Line string
	// Err is ErrCostNotFound or the decimal parse error.
	Err error
}

// NewPlanFormatError creates a PlanFormatError for line.
func NewPlanFormatError(line string, err error) *PlanFormatError {
	return &PlanFormatError{Line: line, Err: err}
}

func (e *PlanFormatError) Error() string {
	return fmt.Sprintf("malformed plan line %q: %v", e.Line, e.Err)
}

func (e *PlanFormatError) Unwrap() error {
	return e.Err
}
