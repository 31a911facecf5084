package utils

import (
	"fmt"
	"time"

	"github.com/julianstephens/rhythm/internal/constants"
)

// LoadLocation loads a timezone location from an IANA timezone name.
// If the timezone is "Local" or empty, it returns the system's local timezone.
func LoadLocation(timezone string) (*time.Location, error) {
	if timezone == "" || timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(timezone)
}

// NowInTimezone returns the current time in the specified timezone.
func NowInTimezone(timezone string) (time.Time, error) {
	loc, err := LoadLocation(timezone)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}
	return time.Now().In(loc), nil
}

// GetTodayInTimezone returns today's date string (YYYY-MM-DD) in the specified timezone.
func GetTodayInTimezone(timezone string) (string, error) {
	now, err := NowInTimezone(timezone)
	if err != nil {
		return "", err
	}
	return now.Format(constants.DateFormat), nil
}

// ParseClock parses an HH:MM string into minutes from midnight.
// "24:00" is accepted as the end of the day.
func ParseClock(s string) (int, error) {
	if s == "24:00" {
		return constants.MinutesPerDay, nil
	}
	t, err := time.Parse(constants.TimeFormat, s)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q (expected HH:MM): %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatClock formats minutes from midnight as HH:MM.
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// ValidateClock reports whether s is a valid HH:MM (or 24:00) string.
func ValidateClock(s string) bool {
	_, err := ParseClock(s)
	return err == nil
}

// ParseDate parses a YYYY-MM-DD string at midnight UTC.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(constants.DateFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD): %w", s, err)
	}
	return d, nil
}

// ParseDateInLocation parses a date string (YYYY-MM-DD) in the specified timezone.
func ParseDateInLocation(dateStr string, loc *time.Location) (time.Time, error) {
	t, err := ParseDate(dateStr)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc), nil
}

// WeekStart returns the Sunday on or before the given date.
func WeekStart(date time.Time) time.Time {
	d := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	return d.AddDate(0, 0, -int(d.Weekday()))
}

// WeekDates returns the seven YYYY-MM-DD dates starting at weekStart.
func WeekDates(weekStart time.Time) []string {
	dates := make([]string, constants.DaysPerWeek)
	for i := range dates {
		dates[i] = weekStart.AddDate(0, 0, i).Format(constants.DateFormat)
	}
	return dates
}

// ResolveDate turns "today" or a YYYY-MM-DD string into a date string.
func ResolveDate(s, timezone string) (string, error) {
	if s == "" || s == "today" {
		return GetTodayInTimezone(timezone)
	}
	d, err := ParseDate(s)
	if err != nil {
		return "", err
	}
	return d.Format(constants.DateFormat), nil
}

// ValidateTimezone checks if the timezone name is valid.
func ValidateTimezone(timezone string) bool {
	if timezone == "" || timezone == "Local" {
		return true
	}
	_, err := time.LoadLocation(timezone)
	return err == nil
}
