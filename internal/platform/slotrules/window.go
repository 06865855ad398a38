package slotrules

import "time"

const minutesPerDay = 24 * 60

// Policy is a vaccine's booking window policy.
type Policy struct {
	// AdvanceDays is how many days past today a consumer may book.
	AdvanceDays int `json:"advance_days"`
	// LeadMinutes is the minimum time between booking and appointment start.
	LeadMinutes int `json:"lead_minutes"`
	// SlotDurationMinutes carves the service window when the vaccine does
	// not use explicit time slots.
	SlotDurationMinutes int `json:"slot_duration_minutes"`
}

// Validate rejects negative windows, a non-positive slot duration, and a lead
// time so long that no appointment could ever fall inside the horizon.
func (p Policy) Validate() error {
	if p.AdvanceDays < 0 {
		return &InvalidPolicyError{Field: "advance_days", Reason: "must not be negative"}
	}
	if p.LeadMinutes < 0 {
		return &InvalidPolicyError{Field: "lead_minutes", Reason: "must not be negative"}
	}
	if p.SlotDurationMinutes <= 0 {
		return &InvalidPolicyError{Field: "slot_duration_minutes", Reason: "must be positive"}
	}
	if p.LeadMinutes >= (p.AdvanceDays+1)*minutesPerDay {
		return &InvalidPolicyError{Field: "lead_minutes", Reason: "leaves no bookable time within the advance window"}
	}
	return nil
}

// Horizon is the closed window [Earliest, Latest] in which an appointment may
// start for a booking made at a given instant.
type Horizon struct {
	Earliest time.Time `json:"earliest_bookable"`
	Latest   time.Time `json:"latest_bookable"`
}

// Empty reports whether no instant can satisfy the horizon.
func (h Horizon) Empty() bool { return h.Earliest.After(h.Latest) }

// Contains reports whether t lies within the horizon, bounds included.
func (h Horizon) Contains(t time.Time) bool {
	return !t.Before(h.Earliest) && !t.After(h.Latest)
}

// Clip narrows the horizon to [from, to]. Zero bounds are ignored.
func (h Horizon) Clip(from, to time.Time) Horizon {
	if !from.IsZero() && from.After(h.Earliest) {
		h.Earliest = from
	}
	if !to.IsZero() && to.Before(h.Latest) {
		h.Latest = to
	}
	return h
}

// BookingHorizon computes the bookable window for a booking made at now.
// Earliest is now plus the lead time; Latest is the last instant of the day
// advanceDays after now's calendar day, in now's location.
func BookingHorizon(now time.Time, advanceDays, leadMinutes int) (Horizon, error) {
	if advanceDays < 0 {
		return Horizon{}, &InvalidPolicyError{Field: "advance_days", Reason: "must not be negative"}
	}
	if leadMinutes < 0 {
		return Horizon{}, &InvalidPolicyError{Field: "lead_minutes", Reason: "must not be negative"}
	}
	y, m, d := now.Date()
	lastDay := time.Date(y, m, d+advanceDays+1, 0, 0, 0, 0, now.Location())
	return Horizon{
		Earliest: now.Add(time.Duration(leadMinutes) * time.Minute),
		Latest:   lastDay.Add(-time.Nanosecond),
	}, nil
}

// Horizon is BookingHorizon for a validated policy.
func (p Policy) Horizon(now time.Time) (Horizon, error) {
	if err := p.Validate(); err != nil {
		return Horizon{}, err
	}
	return BookingHorizon(now, p.AdvanceDays, p.LeadMinutes)
}
