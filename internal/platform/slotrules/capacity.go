package slotrules

// CommittedQuota sums the quota of the given intervals.
func CommittedQuota(committed []Interval) int {
	total := 0
	for _, c := range committed {
		total += c.Quota
	}
	return total
}

// RemainingCapacity is maxCapacity minus the committed quota, floored at zero.
func RemainingCapacity(maxCapacity int, committed []Interval) int {
	remaining := maxCapacity - CommittedQuota(committed)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ValidateCommitment checks a requested quota against the vaccine's maximum
// capacity and the capacity still available. It must be re-run whenever a
// sibling slot is added or resized since remaining changes with them.
func ValidateCommitment(requested, maxCapacity, remaining int) error {
	if requested < 0 {
		return ErrInvalidQuota
	}
	if requested > maxCapacity || requested > remaining {
		return &QuotaExceededError{
			Requested:   requested,
			Remaining:   remaining,
			MaxCapacity: maxCapacity,
		}
	}
	return nil
}
