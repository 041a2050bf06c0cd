// Package skip decides whether a failing item may be skipped instead of aborting the run.
package skip

import (
	"github.com/tigerroll/qplan/pkg/batch/support/util/exception"
)

// Unlimited is the skip limit that never runs out.
const Unlimited = -1

// SkipPolicy is an interface that defines the logic for determining whether to skip an error that occurred during item processing.
type SkipPolicy interface {
	// ShouldSkip reports whether err may be skipped given the current count.
	ShouldSkip(err error) bool
	// IncrementSkipCount records one skipped item.
	IncrementSkipCount()
	// GetSkipCount returns the total number of items skipped so far.
	GetSkipCount() int
	// GetSkipLimit returns the configured limit.
	GetSkipLimit() int
}

// NewSkipPolicy creates a policy that allows up to skipLimit skips.
// A limit of 0 allows none and Unlimited allows any number.
func NewSkipPolicy(skipLimit int) SkipPolicy {
	return &defaultSkipPolicy{skipLimit: skipLimit}
}

type defaultSkipPolicy struct {
	skipLimit        int
	currentSkipCount int
}

// ShouldSkip only accepts BatchErrors marked skippable (statement and plan format failures).
// Connectivity, persistence and configuration errors always abort.
func (p *defaultSkipPolicy) ShouldSkip(err error) bool {
	if err == nil || p.skipLimit == 0 {
		return false
	}
	if p.skipLimit > 0 && p.currentSkipCount >= p.skipLimit {
		return false
	}
	return exception.IsSkippable(err)
}

func (p *defaultSkipPolicy) IncrementSkipCount() {
	p.currentSkipCount++
}

func (p *defaultSkipPolicy) GetSkipCount() int {
	return p.currentSkipCount
}

func (p *defaultSkipPolicy) GetSkipLimit() int {
	return p.skipLimit
}

var _ SkipPolicy = (*defaultSkipPolicy)(nil)
