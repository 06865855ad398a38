package vaccine

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vaxadmin/vaxadmin/internal/platform/slotrules"
	"github.com/vaxadmin/vaxadmin/pkg/timeofday"
)

// DateLayout is the wire format of booking open/close dates.
const DateLayout = "2006-01-02"

type Gender string

const (
	GenderAny    Gender = "any"
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

func (g Gender) Valid() bool {
	switch g {
	case GenderAny, GenderMale, GenderFemale:
		return true
	}
	return false
}

// Vaccine is the bookable resource. Its service window and booking policy
// bound every time slot and service day attached to it.
type Vaccine struct {
	ID            uuid.UUID           `db:"id" json:"id"`
	Title         string              `db:"title" json:"title"`
	MinAge        int                 `db:"min_age" json:"min_age"`
	MaxAge        int                 `db:"max_age" json:"max_age"`
	Gender        Gender              `db:"gender" json:"gender"`
	MaxCapacity   int                 `db:"max_capacity" json:"max_capacity"`
	UsesTimeSlots bool                `db:"uses_time_slots" json:"uses_time_slots"`
	ServiceStart  timeofday.TimeOfDay `db:"service_start" json:"service_start"`
	ServiceEnd    timeofday.TimeOfDay `db:"service_end" json:"service_end"`

	slotrules.Policy `json:"booking_policy"`

	BookingOpens  *time.Time `db:"booking_opens" json:"booking_opens,omitempty"`
	BookingCloses *time.Time `db:"booking_closes" json:"booking_closes,omitempty"`
	Active        bool       `db:"active" json:"active"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// Validate checks the vaccine's own fields. A degenerate service window is
// allowed and simply yields no start times.
func (v *Vaccine) Validate() error {
	if v.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if v.MinAge < 0 || v.MaxAge < v.MinAge {
		return fmt.Errorf("%w: age range %d-%d", ErrInvalidInput, v.MinAge, v.MaxAge)
	}
	if !v.Gender.Valid() {
		return fmt.Errorf("%w: gender %q", ErrInvalidInput, v.Gender)
	}
	if v.MaxCapacity < 0 {
		return fmt.Errorf("%w: max_capacity must not be negative", ErrInvalidInput)
	}
	if !v.ServiceStart.Valid() || !v.ServiceEnd.Valid() {
		return fmt.Errorf("%w: service window %s-%s", ErrInvalidInput, v.ServiceStart, v.ServiceEnd)
	}
	if v.BookingOpens != nil && v.BookingCloses != nil && v.BookingCloses.Before(*v.BookingOpens) {
		return fmt.Errorf("%w: booking_closes is before booking_opens", ErrInvalidInput)
	}
	return v.Policy.Validate()
}

// bookingBounds converts the optional open/close dates into instants in loc:
// the first instant of the opening day and the last instant of the closing
// day. Missing dates come back as zero times.
func (v *Vaccine) bookingBounds(loc *time.Location) (from, to time.Time) {
	if v.BookingOpens != nil {
		y, m, d := v.BookingOpens.Date()
		from = time.Date(y, m, d, 0, 0, 0, 0, loc)
	}
	if v.BookingCloses != nil {
		y, m, d := v.BookingCloses.Date()
		to = time.Date(y, m, d+1, 0, 0, 0, 0, loc).Add(-time.Nanosecond)
	}
	return from, to
}

// ServiceDay assigns a set of weekdays to a vaccine.
type ServiceDay struct {
	ID        uuid.UUID            `db:"id" json:"id"`
	VaccineID uuid.UUID            `db:"vaccine_id" json:"vaccine_id"`
	Weekdays  slotrules.WeekdaySet `db:"weekdays" json:"weekdays"`
	CreatedAt time.Time            `db:"created_at" json:"created_at"`
	UpdatedAt time.Time            `db:"updated_at" json:"updated_at"`
}

// TimeSlot is a bookable [Start, End) range with its own quota.
type TimeSlot struct {
	ID        uuid.UUID           `db:"id" json:"id"`
	VaccineID uuid.UUID           `db:"vaccine_id" json:"vaccine_id"`
	Start     timeofday.TimeOfDay `db:"start_time" json:"start"`
	End       timeofday.TimeOfDay `db:"end_time" json:"end"`
	Quota     int                 `db:"quota" json:"quota"`
	Enabled   bool                `db:"enabled" json:"enabled"`
	CreatedAt time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt time.Time           `db:"updated_at" json:"updated_at"`
}

func (s *TimeSlot) Interval() slotrules.Interval {
	id := ""
	if s.ID != uuid.Nil {
		id = s.ID.String()
	}
	return slotrules.Interval{ID: id, Start: s.Start, End: s.End, Quota: s.Quota}
}

// enabledIntervals returns the intervals of enabled slots other than exclude.
func enabledIntervals(slots []*TimeSlot, exclude uuid.UUID) []slotrules.Interval {
	out := make([]slotrules.Interval, 0, len(slots))
	for _, s := range slots {
		if !s.Enabled || (exclude != uuid.Nil && s.ID == exclude) {
			continue
		}
		out = append(out, s.Interval())
	}
	return out
}

// Capacity summarizes how much of a vaccine's capacity enabled slots commit.
type Capacity struct {
	MaxCapacity int `json:"max_capacity"`
	Committed   int `json:"committed"`
	Remaining   int `json:"remaining"`
}

// -- Requests --

type VaccineRequest struct {
	Title         string              `json:"title" validate:"required,max=200"`
	MinAge        int                 `json:"min_age" validate:"gte=0,lte=150"`
	MaxAge        int                 `json:"max_age" validate:"gtefield=MinAge,lte=150"`
	Gender        Gender              `json:"gender" validate:"omitempty,oneof=any male female"`
	MaxCapacity   int                 `json:"max_capacity" validate:"gte=0"`
	UsesTimeSlots bool                `json:"uses_time_slots"`
	ServiceStart  timeofday.TimeOfDay `json:"service_start"`
	ServiceEnd    timeofday.TimeOfDay `json:"service_end"`
	BookingPolicy slotrules.Policy    `json:"booking_policy"`
	BookingOpens  string              `json:"booking_opens" validate:"omitempty,datetime=2006-01-02"`
	BookingCloses string              `json:"booking_closes" validate:"omitempty,datetime=2006-01-02"`
	Active        *bool               `json:"active"`
}

// Vaccine converts the request. Gender defaults to any and Active to true.
func (r *VaccineRequest) Vaccine() (*Vaccine, error) {
	v := &Vaccine{
		Title:         r.Title,
		MinAge:        r.MinAge,
		MaxAge:        r.MaxAge,
		Gender:        r.Gender,
		MaxCapacity:   r.MaxCapacity,
		UsesTimeSlots: r.UsesTimeSlots,
		ServiceStart:  r.ServiceStart,
		ServiceEnd:    r.ServiceEnd,
		Policy:        r.BookingPolicy,
		Active:        true,
	}
	if v.Gender == "" {
		v.Gender = GenderAny
	}
	if r.Active != nil {
		v.Active = *r.Active
	}
	var err error
	if v.BookingOpens, err = parseDate("booking_opens", r.BookingOpens); err != nil {
		return nil, err
	}
	if v.BookingCloses, err = parseDate("booking_closes", r.BookingCloses); err != nil {
		return nil, err
	}
	return v, nil
}

func parseDate(field, s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidInput, field, err)
	}
	return &t, nil
}

type ServiceDayRequest struct {
	Weekdays slotrules.WeekdaySet `json:"weekdays"`
}

type TimeSlotRequest struct {
	Start   timeofday.TimeOfDay `json:"start"`
	End     timeofday.TimeOfDay `json:"end"`
	Quota   int                 `json:"quota" validate:"gte=0"`
	Enabled *bool               `json:"enabled"`
}

func (r *TimeSlotRequest) enabled() bool {
	return r.Enabled == nil || *r.Enabled
}
