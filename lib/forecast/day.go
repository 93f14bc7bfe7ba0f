package forecast

import (
	"errors"
	"fmt"
	"time"
)

const (
	// MinDay is the first day offset that can be queried (today)
	MinDay = 0
	// MaxDay is the last day offset that can be queried (inclusive)
	MaxDay = 7
	// Days is the size of the day offset domain
	Days = MaxDay - MinDay + 1

	// DateLayout is the textual date format used on the wire
	DateLayout = "2006-01-02"
)

var (
	ErrInvalidDate   = errors.New("invalid date")
	ErrDayOutOfRange = errors.New("day out of range")
)

// ParseDate parses a YYYY-MM-DD date in the local time zone
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// CivilDate builds a local date from its components. Components that time.Date would
// normalize (month 13, February 30, ...) are rejected.
func CivilDate(year, month, day int) (time.Time, error) {
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.Local)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return time.Time{}, fmt.Errorf("%w: %04d-%02d-%02d", ErrInvalidDate, year, month, day)
	}
	return t, nil
}

// DaysBetween returns the number of calendar days from a to b, ignoring the time of day
// and DST shifts
func DaysBetween(a, b time.Time) int {
	ua := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}

// DayOffset returns the offset of date relative to the day of now and checks it against
// the [MinDay, MaxDay] domain
func DayOffset(date, now time.Time) (int, error) {
	day := DaysBetween(now.In(time.Local), date)
	if day < MinDay || day > MaxDay {
		return day, fmt.Errorf("%w: %d not in [%d, %d]", ErrDayOutOfRange, day, MinDay, MaxDay)
	}
	return day, nil
}
