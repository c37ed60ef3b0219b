package appointments

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseClock converts a 12-hour "H:MM AM" or "H:MM PM" string into a 24-hour
// hour and minute. The string must hold exactly two tokens separated by a
// single space.
func ParseClock(value string) (hour, minute int, err error) {
	parts := strings.Split(value, " ")
	if len(parts) != 2 {
		return 0, 0, ErrInvalidTimeFormat
	}
	clock := strings.Split(parts[0], ":")
	if len(clock) != 2 || !digits(clock[0]) || len(clock[1]) != 2 || !digits(clock[1]) {
		return 0, 0, ErrInvalidTimeFormat
	}
	hour, err = strconv.Atoi(clock[0])
	if err != nil || hour < 1 || hour > 12 {
		return 0, 0, ErrInvalidTimeFormat
	}
	minute, err = strconv.Atoi(clock[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, ErrInvalidTimeFormat
	}

	switch strings.ToUpper(parts[1]) {
	case "AM":
		if hour == 12 {
			hour = 0
		}
	case "PM":
		if hour != 12 {
			hour += 12
		}
	default:
		return 0, 0, ErrInvalidTimeFormat
	}
	return hour, minute, nil
}

// digits reports whether s is non-empty and holds only ASCII digits.
func digits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// ParseDate accepts a calendar date (2006-01-02) or an RFC3339 timestamp and
// returns its year, month and day. Only the calendar date of an RFC3339 value
// is used.
func ParseDate(value string) (year int, month time.Month, day int, err error) {
	value = strings.TrimSpace(value)
	if t, perr := time.Parse(time.DateOnly, value); perr == nil {
		return t.Year(), t.Month(), t.Day(), nil
	}
	if t, perr := time.Parse(time.RFC3339, value); perr == nil {
		return t.Year(), t.Month(), t.Day(), nil
	}
	return 0, 0, 0, ErrInvalidDate
}

// NormalizeSlot builds the appointment instant from the date and clock strings
// in loc. loc must not be nil.
func NormalizeSlot(date, clock string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		return time.Time{}, fmt.Errorf("appointments: %w", ErrInvalidTimezone)
	}
	year, month, day, err := ParseDate(date)
	if err != nil {
		return time.Time{}, err
	}
	hour, minute, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(year, month, day, hour, minute, 0, 0, loc), nil
}

// ResolveLocation returns the zone named by tz, or fallback when tz is blank.
func ResolveLocation(tz string, fallback *time.Location) (*time.Location, error) {
	tz = strings.TrimSpace(tz)
	if tz == "" {
		if fallback == nil {
			return time.UTC, nil
		}
		return fallback, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTimezone, tz)
	}
	return loc, nil
}
