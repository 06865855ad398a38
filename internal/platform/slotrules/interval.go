// Package slotrules holds the pure scheduling rules shared by every caller
// that edits vaccine availability: interval overlap, candidate slot
// generation, capacity accounting, weekday assignment and the booking window.
//
// Nothing in this package performs I/O or keeps state, so every function is
// safe for concurrent use.
package slotrules

import "github.com/vaxadmin/vaxadmin/pkg/timeofday"

// Interval is a half-open range [Start, End) on a vaccine's daily schedule.
// ID identifies the persisted slot it came from and may be empty for a
// candidate that has not been written yet.
type Interval struct {
	ID    string              `json:"id,omitempty"`
	Start timeofday.TimeOfDay `json:"start"`
	End   timeofday.TimeOfDay `json:"end"`
	Quota int                 `json:"quota"`
}

// Valid reports whether Start < End.
func (i Interval) Valid() bool { return i.Start < i.End }

// Minutes returns the interval length.
func (i Interval) Minutes() int { return i.End.Sub(i.Start) }

// Overlaps reports whether two half-open intervals share at least one minute.
// Intervals that merely touch (one ends where the other starts) do not
// overlap, and a zero-length interval never overlaps anything.
func Overlaps(a, b Interval) bool {
	if !a.Valid() || !b.Valid() {
		return false
	}
	return a.Start < b.End && b.Start < a.End
}

// FindConflicts returns the members of existing that overlap candidate, in
// input order. Entries whose ID equals excludeID are ignored so that an
// update does not conflict with the record being edited; an empty excludeID
// excludes nothing.
//
// A candidate with Start >= End yields no conflicts and an
// *InvalidIntervalError.
func FindConflicts(candidate Interval, existing []Interval, excludeID string) ([]Interval, error) {
	if !candidate.Valid() {
		return nil, &InvalidIntervalError{Interval: candidate}
	}
	var conflicts []Interval
	for _, e := range existing {
		if excludeID != "" && e.ID == excludeID {
			continue
		}
		if Overlaps(candidate, e) {
			conflicts = append(conflicts, e)
		}
	}
	return conflicts, nil
}

// CheckOverlap is FindConflicts folded into a single error: nil when the
// candidate is valid and free, *OverlapError when it conflicts.
func CheckOverlap(candidate Interval, existing []Interval, excludeID string) error {
	conflicts, err := FindConflicts(candidate, existing, excludeID)
	if err != nil {
		return err
	}
	if len(conflicts) > 0 {
		return &OverlapError{Candidate: candidate, Conflicts: conflicts}
	}
	return nil
}
