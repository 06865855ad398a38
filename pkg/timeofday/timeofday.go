// Package timeofday provides a wall-clock time without a date, used for
// service windows and time slot boundaries.
package timeofday

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// TimeOfDay is the number of minutes since midnight. Valid values are in
// [0, EndOfDay]; EndOfDay ("24:00") only makes sense as an upper bound.
type TimeOfDay int

const (
	Midnight TimeOfDay = 0
	EndOfDay TimeOfDay = 24 * 60
)

// New builds a TimeOfDay from hours and minutes.
func New(hour, minute int) (TimeOfDay, error) {
	if hour < 0 || minute < 0 || minute > 59 || hour > 24 || (hour == 24 && minute != 0) {
		return 0, fmt.Errorf("invalid time of day %02d:%02d", hour, minute)
	}
	return TimeOfDay(hour*60 + minute), nil
}

// MustParse is like Parse but panics on error. Intended for tests and constants.
func MustParse(s string) TimeOfDay {
	t, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return t
}

// Parse accepts "HH:MM" or "HH:MM:SS" (seconds must be zero).
func Parse(s string) (TimeOfDay, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid time of day %q: want HH:MM", s)
	}
	nums := make([]int, len(parts))
	for i, p := range parts {
		if len(p) != 2 || !isDigit(p[0]) || !isDigit(p[1]) {
			return 0, fmt.Errorf("invalid time of day %q: want HH:MM", s)
		}
		nums[i] = int(p[0]-'0')*10 + int(p[1]-'0')
	}
	if len(nums) == 3 && nums[2] != 0 {
		return 0, fmt.Errorf("invalid time of day %q: seconds are not supported", s)
	}
	return New(nums[0], nums[1])
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func (t TimeOfDay) Hour() int { return int(t) / 60 }

func (t TimeOfDay) Minute() int { return int(t) % 60 }

// Valid reports whether t is within [Midnight, EndOfDay].
func (t TimeOfDay) Valid() bool { return t >= Midnight && t <= EndOfDay }

// Add returns t shifted by the given number of minutes. The result is not
// clamped; callers compare it against their own bounds.
func (t TimeOfDay) Add(minutes int) TimeOfDay { return t + TimeOfDay(minutes) }

// Sub returns t-u in minutes.
func (t TimeOfDay) Sub(u TimeOfDay) int { return int(t - u) }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// On returns the instant at t on the calendar day of d, in d's location.
func (t TimeOfDay) On(d time.Time) time.Time {
	y, m, day := d.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, d.Location()).Add(time.Duration(t) * time.Minute)
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("time of day must be a string: %w", err)
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// UnmarshalParam lets echo bind query and path parameters.
func (t *TimeOfDay) UnmarshalParam(param string) error {
	parsed, err := Parse(param)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// PG converts t into a value for a PostgreSQL TIME column.
func (t TimeOfDay) PG() pgtype.Time {
	return pgtype.Time{Microseconds: int64(t) * int64(time.Minute/time.Microsecond), Valid: true}
}

// FromPG converts a scanned TIME column. NULL maps to Midnight.
func FromPG(v pgtype.Time) TimeOfDay {
	if !v.Valid {
		return Midnight
	}
	return TimeOfDay(v.Microseconds / int64(time.Minute/time.Microsecond))
}
