package models

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

// Priorities is the ranked priority vocabulary, most urgent first.
var Priorities = []string{"Essential", "High", "Medium", "Low", "Undefined"}

// Implementations is the ranked implementation-status vocabulary, most
// complete first.
var Implementations = []string{
	"Implemented", "Deployment", "Needs Code Review",
	"Beta Available", "Good progress", "Slow progress",
	"Blocked", "Needs Infrastructure", "Started",
	"Not started", "Unknown", "Deferred", "Informational",
}

// Implementation labels referenced by the health rules and report partitioning.
const (
	ImplementationImplemented     = "Implemented"
	ImplementationNeedsCodeReview = "Needs Code Review"
	ImplementationUnknown         = "Unknown"
)

// StartedThreshold is the implementation index of "Started". Anything ranked
// after it has not been started yet.
const StartedThreshold = 8

const (
	// GaugeOrigin aligns day zero one week before the first phase.
	GaugeOrigin = -7

	// MinScheduleEntries is the number of phases the gauge thresholds need.
	MinScheduleEntries = 3

	// DefaultReviewMaxAge bounds review queries to recent changes.
	DefaultReviewMaxAge = "2mon"

	// DefaultReviewHost is the code review host mined in whiteboards.
	DefaultReviewHost = "review.openstack.org"

	// TentativeOpen and TentativeClose wrap the display name of an owner
	// taken from the drafter rather than the assignee.
	TentativeOpen  = "<i>"
	TentativeClose = "</i>"
)

// FarFuture is the milestone date used when a blueprint has no milestone or
// its milestone has no target date, so unscheduled work sorts last.
var FarFuture = time.Date(2099, time.December, 31, 0, 0, 0, 0, time.UTC)

// UnknownEnumValueError reports a label that is missing from a closed vocabulary.
type UnknownEnumValueError struct {
	Field string
	Value string
}

func (e *UnknownEnumValueError) Error() string {
	return fmt.Sprintf("unknown %s value %q", e.Field, e.Value)
}

// ErrUnknownEnumValue matches any *UnknownEnumValueError via errors.Is.
var ErrUnknownEnumValue = errors.New("unknown enum value")

func (e *UnknownEnumValueError) Is(target error) bool {
	return target == ErrUnknownEnumValue
}

// PriorityIndex returns the rank of a priority label.
func PriorityIndex(label string) (int, error) {
	return indexOf("priority", Priorities, label)
}

// ImplementationIndex returns the rank of an implementation-status label.
func ImplementationIndex(label string) (int, error) {
	return indexOf("implementation", Implementations, label)
}

func indexOf(field string, vocab []string, label string) (int, error) {
	i := slices.Index(vocab, label)
	if i < 0 {
		return 0, &UnknownEnumValueError{Field: field, Value: label}
	}
	return i, nil
}
