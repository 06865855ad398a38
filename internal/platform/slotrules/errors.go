package slotrules

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. The carrier types below match them via errors.Is
// and expose their payload via errors.As.
var (
	ErrInvalidInterval        = errors.New("invalid interval")
	ErrOverlap                = errors.New("interval overlaps an existing interval")
	ErrQuotaExceeded          = errors.New("quota exceeded")
	ErrInvalidQuota           = errors.New("invalid quota")
	ErrWeekdayAlreadyAssigned = errors.New("weekday already assigned")
	ErrEmptyAssignment        = errors.New("at least one weekday is required")
	ErrInvalidWeekday         = errors.New("invalid weekday")
	ErrInvalidPolicy          = errors.New("invalid booking policy")
)

// InvalidIntervalError reports a candidate whose start is not before its end.
type InvalidIntervalError struct {
	Interval Interval
}

func (e *InvalidIntervalError) Error() string {
	return fmt.Sprintf("invalid interval [%s, %s): start must be before end", e.Interval.Start, e.Interval.End)
}

func (e *InvalidIntervalError) Is(target error) bool { return target == ErrInvalidInterval }

// OverlapError carries the existing intervals a candidate conflicts with.
type OverlapError struct {
	Candidate Interval
	Conflicts []Interval
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("interval [%s, %s) overlaps %d existing interval(s)", e.Candidate.Start, e.Candidate.End, len(e.Conflicts))
}

func (e *OverlapError) Is(target error) bool { return target == ErrOverlap }

// QuotaExceededError reports a commitment larger than the capacity left.
type QuotaExceededError struct {
	Requested   int
	Remaining   int
	MaxCapacity int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("requested quota %d exceeds remaining capacity %d (max %d)", e.Requested, e.Remaining, e.MaxCapacity)
}

func (e *QuotaExceededError) Is(target error) bool { return target == ErrQuotaExceeded }

// WeekdayAlreadyAssignedError lists the proposed weekdays that are already
// claimed by another service day of the same vaccine.
type WeekdayAlreadyAssignedError struct {
	Weekdays WeekdaySet
}

func (e *WeekdayAlreadyAssignedError) Error() string {
	return fmt.Sprintf("weekdays %v already assigned", e.Weekdays.Days())
}

func (e *WeekdayAlreadyAssignedError) Is(target error) bool { return target == ErrWeekdayAlreadyAssigned }

// InvalidPolicyError names the booking policy field that failed.
type InvalidPolicyError struct {
	Field  string
	Reason string
}

func (e *InvalidPolicyError) Error() string {
	return fmt.Sprintf("invalid booking policy: %s %s", e.Field, e.Reason)
}

func (e *InvalidPolicyError) Is(target error) bool { return target == ErrInvalidPolicy }
