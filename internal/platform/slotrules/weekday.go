package slotrules

import (
	"encoding/json"
	"fmt"
	"math/bits"
	"time"
)

// WeekdaySet is a set of weekdays using time.Weekday numbering
// (0 = Sunday .. 6 = Saturday), stored as a 7-bit mask.
type WeekdaySet uint8

// EveryDay is the set of all seven weekdays.
const EveryDay WeekdaySet = 1<<7 - 1

// NewWeekdaySet builds a set from weekday numbers. Duplicates collapse; any
// value outside 0..6 is rejected with ErrInvalidWeekday.
func NewWeekdaySet(days ...int) (WeekdaySet, error) {
	var s WeekdaySet
	for _, d := range days {
		if d < int(time.Sunday) || d > int(time.Saturday) {
			return 0, fmt.Errorf("%w: %d", ErrInvalidWeekday, d)
		}
		s |= 1 << uint(d)
	}
	return s, nil
}

// WeekdaysOf is NewWeekdaySet for values already known to be in range.
func WeekdaysOf(days ...time.Weekday) WeekdaySet {
	var s WeekdaySet
	for _, d := range days {
		s |= 1 << uint(d%7)
	}
	return s
}

func (s WeekdaySet) Has(d time.Weekday) bool { return s&(1<<uint(d)) != 0 }

func (s WeekdaySet) Union(o WeekdaySet) WeekdaySet { return (s | o) & EveryDay }

func (s WeekdaySet) Intersect(o WeekdaySet) WeekdaySet { return s & o & EveryDay }

func (s WeekdaySet) Minus(o WeekdaySet) WeekdaySet { return s &^ o & EveryDay }

func (s WeekdaySet) Len() int { return bits.OnesCount8(uint8(s & EveryDay)) }

func (s WeekdaySet) Empty() bool { return s&EveryDay == 0 }

// IsEveryDay reports whether all seven days are present.
func (s WeekdaySet) IsEveryDay() bool { return s&EveryDay == EveryDay }

// Days returns the members in ascending order.
func (s WeekdaySet) Days() []int {
	days := make([]int, 0, s.Len())
	for d := 0; d < 7; d++ {
		if s&(1<<uint(d)) != 0 {
			days = append(days, d)
		}
	}
	return days
}

// Int16s returns the members for a SMALLINT[] column.
func (s WeekdaySet) Int16s() []int16 {
	days := s.Days()
	out := make([]int16, len(days))
	for i, d := range days {
		out[i] = int16(d)
	}
	return out
}

// WeekdaySetFromInt16s converts a scanned SMALLINT[] column.
func WeekdaySetFromInt16s(values []int16) (WeekdaySet, error) {
	days := make([]int, len(values))
	for i, v := range values {
		days[i] = int(v)
	}
	return NewWeekdaySet(days...)
}

func (s WeekdaySet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Days())
}

func (s *WeekdaySet) UnmarshalJSON(data []byte) error {
	var days []int
	if err := json.Unmarshal(data, &days); err != nil {
		return fmt.Errorf("weekdays must be an array of integers: %w", err)
	}
	set, err := NewWeekdaySet(days...)
	if err != nil {
		return err
	}
	*s = set
	return nil
}

// ValidateAssignment checks a proposed weekday set for a new service day
// against the days already used by the vaccine's other service days. On
// update the caller removes the edited record's own days from used first.
func ValidateAssignment(proposed, used WeekdaySet) error {
	if proposed.Empty() {
		return ErrEmptyAssignment
	}
	if dup := proposed.Intersect(used); !dup.Empty() {
		return &WeekdayAlreadyAssignedError{Weekdays: dup}
	}
	return nil
}
