package slotrules

import (
	"errors"
	"testing"

	"github.com/vaxadmin/vaxadmin/pkg/timeofday"
)

func iv(id, start, end string) Interval {
	return Interval{ID: id, Start: timeofday.MustParse(start), End: timeofday.MustParse(end)}
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name string
		a, b Interval
		want bool
	}{
		{"partial overlap", iv("", "09:00", "10:30"), iv("", "10:00", "11:00"), true},
		{"touching end to start", iv("", "09:00", "10:00"), iv("", "10:00", "11:00"), false},
		{"touching start to end", iv("", "11:00", "12:00"), iv("", "10:00", "11:00"), false},
		{"contained", iv("", "09:15", "09:45"), iv("", "09:00", "10:00"), true},
		{"identical", iv("", "09:00", "10:00"), iv("", "09:00", "10:00"), true},
		{"disjoint", iv("", "08:00", "09:00"), iv("", "13:00", "14:00"), false},
		{"zero length inside", iv("", "09:30", "09:30"), iv("", "09:00", "10:00"), false},
		{"inverted", iv("", "10:00", "09:00"), iv("", "09:00", "10:00"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Overlaps(tt.a, tt.b); got != tt.want {
				t.Errorf("Overlaps(a, b) = %v, want %v", got, tt.want)
			}
			if got := Overlaps(tt.b, tt.a); got != tt.want {
				t.Errorf("Overlaps(b, a) = %v, want %v (symmetry)", got, tt.want)
			}
		})
	}
}

func TestOverlaps_SymmetryExhaustive(t *testing.T) {
	// Every pair of quarter-hour bounded intervals between 08:00 and 10:00.
	var all []Interval
	for s := 480; s <= 600; s += 15 {
		for e := 480; e <= 600; e += 15 {
			all = append(all, Interval{Start: timeofday.TimeOfDay(s), End: timeofday.TimeOfDay(e)})
		}
	}
	for _, a := range all {
		for _, b := range all {
			if Overlaps(a, b) != Overlaps(b, a) {
				t.Fatalf("asymmetric overlap for %v and %v", a, b)
			}
		}
	}
}

func TestFindConflicts(t *testing.T) {
	existing := []Interval{
		iv("a", "08:00", "09:00"),
		iv("b", "10:00", "11:00"),
		iv("c", "10:30", "12:00"),
	}

	conflicts, err := FindConflicts(iv("", "09:00", "10:30"), existing, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(conflicts) != 1 || conflicts[0].ID != "b" {
		t.Errorf("expected conflict with b only, got %v", conflicts)
	}

	conflicts, err = FindConflicts(iv("", "09:00", "10:00"), existing, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(conflicts) != 0 {
		t.Errorf("expected no conflicts for touching intervals, got %v", conflicts)
	}

	conflicts, _ = FindConflicts(iv("", "10:15", "11:15"), existing, "")
	if len(conflicts) != 2 || conflicts[0].ID != "b" || conflicts[1].ID != "c" {
		t.Errorf("expected conflicts b and c in input order, got %v", conflicts)
	}
}

func TestFindConflicts_ExcludeID(t *testing.T) {
	existing := []Interval{iv("a", "09:00", "10:00"), iv("b", "10:00", "11:00")}

	conflicts, err := FindConflicts(iv("a", "09:00", "10:00"), existing, "a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(conflicts) != 0 {
		t.Errorf("expected the edited record to be excluded, got %v", conflicts)
	}

	conflicts, _ = FindConflicts(iv("a", "09:00", "10:30"), existing, "a")
	if len(conflicts) != 1 || conflicts[0].ID != "b" {
		t.Errorf("expected conflict with b, got %v", conflicts)
	}
}

func TestFindConflicts_InvalidCandidate(t *testing.T) {
	existing := []Interval{iv("a", "09:00", "10:00")}
	for _, c := range []Interval{iv("", "10:00", "09:00"), iv("", "09:30", "09:30")} {
		conflicts, err := FindConflicts(c, existing, "")
		if !errors.Is(err, ErrInvalidInterval) {
			t.Errorf("expected ErrInvalidInterval for %v, got %v", c, err)
		}
		if len(conflicts) != 0 {
			t.Errorf("expected empty result for invalid candidate, got %v", conflicts)
		}
	}
}

func TestFindConflicts_ZeroLengthExisting(t *testing.T) {
	existing := []Interval{iv("z", "09:30", "09:30")}
	conflicts, err := FindConflicts(iv("", "09:00", "10:00"), existing, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(conflicts) != 0 {
		t.Errorf("zero-length existing interval must never match, got %v", conflicts)
	}
}

func TestCheckOverlap(t *testing.T) {
	existing := []Interval{iv("a", "10:00", "11:00")}

	err := CheckOverlap(iv("", "09:00", "10:30"), existing, "")
	var overlap *OverlapError
	if !errors.As(err, &overlap) {
		t.Fatalf("expected *OverlapError, got %v", err)
	}
	if !errors.Is(err, ErrOverlap) {
		t.Error("expected errors.Is(err, ErrOverlap)")
	}
	if len(overlap.Conflicts) != 1 || overlap.Conflicts[0].ID != "a" {
		t.Errorf("unexpected conflicts: %v", overlap.Conflicts)
	}

	if err := CheckOverlap(iv("", "11:00", "12:00"), existing, ""); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}
