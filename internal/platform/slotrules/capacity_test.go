package slotrules

import (
	"errors"
	"testing"
)

func quotas(values ...int) []Interval {
	out := make([]Interval, len(values))
	for i, q := range values {
		out[i] = Interval{Quota: q}
	}
	return out
}

func TestRemainingCapacity(t *testing.T) {
	tests := []struct {
		capacity  int
		committed []Interval
		want      int
	}{
		{30, nil, 30},
		{30, quotas(10, 15), 5},
		{20, quotas(5, 15), 0},
		{10, quotas(8, 8), 0},
		{0, quotas(1), 0},
		{0, nil, 0},
	}
	for _, tt := range tests {
		if got := RemainingCapacity(tt.capacity, tt.committed); got != tt.want {
			t.Errorf("RemainingCapacity(%d, %v) = %d, want %d", tt.capacity, tt.committed, got, tt.want)
		}
	}
}

func TestRemainingCapacity_NeverNegative(t *testing.T) {
	for capacity := 0; capacity <= 50; capacity += 5 {
		for q := 0; q <= 100; q += 7 {
			if got := RemainingCapacity(capacity, quotas(q, q)); got < 0 {
				t.Fatalf("RemainingCapacity(%d, [%d %d]) = %d, want >= 0", capacity, q, q, got)
			}
		}
	}
}

func TestQuotaAdditivity(t *testing.T) {
	const capacity = 30
	var committed []Interval

	for _, q := range []int{10, 15} {
		if err := ValidateCommitment(q, capacity, RemainingCapacity(capacity, committed)); err != nil {
			t.Fatalf("unexpected error committing %d: %v", q, err)
		}
		committed = append(committed, Interval{Quota: q})
	}

	remaining := RemainingCapacity(capacity, committed)
	if remaining != 5 {
		t.Fatalf("expected remaining 5, got %d", remaining)
	}

	err := ValidateCommitment(10, capacity, remaining)
	var exceeded *QuotaExceededError
	if !errors.As(err, &exceeded) {
		t.Fatalf("expected *QuotaExceededError, got %v", err)
	}
	if exceeded.Requested != 10 || exceeded.Remaining != 5 {
		t.Errorf("unexpected payload: %+v", exceeded)
	}
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Error("expected errors.Is(err, ErrQuotaExceeded)")
	}
}

func TestValidateCommitment(t *testing.T) {
	if err := ValidateCommitment(5, 20, 5); err != nil {
		t.Errorf("expected exact fit to pass, got %v", err)
	}
	if err := ValidateCommitment(0, 0, 0); err != nil {
		t.Errorf("expected zero quota to pass, got %v", err)
	}
	if err := ValidateCommitment(25, 20, 30); !errors.Is(err, ErrQuotaExceeded) {
		t.Errorf("expected ErrQuotaExceeded above max capacity, got %v", err)
	}
	if err := ValidateCommitment(-1, 20, 20); !errors.Is(err, ErrInvalidQuota) {
		t.Errorf("expected ErrInvalidQuota for negative request, got %v", err)
	}
}
