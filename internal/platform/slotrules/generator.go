package slotrules

import (
	"iter"

	"github.com/vaxadmin/vaxadmin/pkg/timeofday"
)

// CandidateStarts yields the times from serviceStart to serviceEnd inclusive,
// stepped by stepMinutes, in ascending order. The sequence is empty when the
// window is degenerate (serviceEnd <= serviceStart) or the step is not
// positive. It can be ranged over any number of times.
func CandidateStarts(serviceStart, serviceEnd timeofday.TimeOfDay, stepMinutes int) iter.Seq[timeofday.TimeOfDay] {
	return func(yield func(timeofday.TimeOfDay) bool) {
		if stepMinutes <= 0 || serviceEnd <= serviceStart {
			return
		}
		for t := serviceStart; t <= serviceEnd; t = t.Add(stepMinutes) {
			if !yield(t) {
				return
			}
		}
	}
}

// AvailableStarts filters candidates down to the starts whose slot
// [start, start+stepMinutes) ends no later than serviceEnd and does not
// conflict with any existing interval.
func AvailableStarts(candidates iter.Seq[timeofday.TimeOfDay], stepMinutes int, serviceEnd timeofday.TimeOfDay, existing []Interval) iter.Seq[timeofday.TimeOfDay] {
	return func(yield func(timeofday.TimeOfDay) bool) {
		if stepMinutes <= 0 {
			return
		}
		for c := range candidates {
			if c.Add(stepMinutes) > serviceEnd {
				continue
			}
			conflicts, err := FindConflicts(Interval{Start: c, End: c.Add(stepMinutes)}, existing, "")
			if err != nil || len(conflicts) > 0 {
				continue
			}
			if !yield(c) {
				return
			}
		}
	}
}

// AvailableEnds yields the candidates after start that can close a slot
// opened at start, i.e. [start, end) does not conflict with an existing
// interval. Candidates are expected in ascending order: once [start, c)
// conflicts every later candidate does too, so enumeration stops there.
func AvailableEnds(candidates iter.Seq[timeofday.TimeOfDay], start timeofday.TimeOfDay, existing []Interval) iter.Seq[timeofday.TimeOfDay] {
	return func(yield func(timeofday.TimeOfDay) bool) {
		for c := range candidates {
			if c <= start {
				continue
			}
			conflicts, err := FindConflicts(Interval{Start: start, End: c}, existing, "")
			if err != nil {
				continue
			}
			if len(conflicts) > 0 {
				return
			}
			if !yield(c) {
				return
			}
		}
	}
}
