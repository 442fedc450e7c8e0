package pattern

import (
	"fmt"
	"strconv"
	"time"
)

// utcDate builds a UTC instant and rejects values that time.Date would
// normalize, such as month 13 or February 30.
func utcDate(year, month, day, hour, minute, second int) (time.Time, error) {
	if month < 1 || month > 12 || day < 1 || hour < 0 || hour > 23 ||
		minute < 0 || minute > 59 || second < 0 || second > 59 {
		return time.Time{}, fmt.Errorf("invalid date %04d-%02d-%02dT%02d:%02d:%02d", year, month, day, hour, minute, second)
	}
	t := time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return time.Time{}, fmt.Errorf("invalid date %04d-%02d-%02d", year, month, day)
	}
	return t, nil
}

// dayOfYear returns midnight UTC of a 1-based day of year.
func dayOfYear(year, doy int) (time.Time, error) {
	if doy < 1 || doy > daysIn(year) {
		return time.Time{}, fmt.Errorf("invalid day of year %d for %d", doy, year)
	}
	return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, doy-1), nil
}

func daysIn(year int) int {
	if year%4 == 0 && (year%100 != 0 || year%400 == 0) {
		return 366
	}
	return 365
}

// clock splits an HHMMSS or HHMM string. Seconds are zero for HHMM.
func clock(s string) (hour, minute, second int, err error) {
	if len(s) != 6 && len(s) != 4 {
		return 0, 0, 0, fmt.Errorf("invalid time of day %q", s)
	}
	parts := make([]int, 0, 3)
	for i := 0; i < len(s); i += 2 {
		n, err := strconv.Atoi(s[i : i+2])
		if err != nil {
			return 0, 0, 0, fmt.Errorf("invalid time of day %q: %w", s, err)
		}
		parts = append(parts, n)
	}
	if len(parts) == 2 {
		parts = append(parts, 0)
	}
	return parts[0], parts[1], parts[2], nil
}

// compactDate parses YYYYMMDD or YYMMDD (20YY).
func compactDate(s string) (time.Time, error) {
	var year, month, day int
	var err error
	switch len(s) {
	case 8:
		year, err = strconv.Atoi(s[0:4])
		if err == nil {
			month, err = strconv.Atoi(s[4:6])
		}
		if err == nil {
			day, err = strconv.Atoi(s[6:8])
		}
	case 6:
		year, err = strconv.Atoi(s[0:2])
		year += 2000
		if err == nil {
			month, err = strconv.Atoi(s[2:4])
		}
		if err == nil {
			day, err = strconv.Atoi(s[4:6])
		}
	default:
		return time.Time{}, fmt.Errorf("invalid compact date %q", s)
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid compact date %q: %w", s, err)
	}
	return utcDate(year, month, day, 0, 0, 0)
}

// doySpan resolves a start and end day of year. An end day before the start
// day belongs to the following year.
func doySpan(year, startDOY, endDOY int) (time.Time, time.Time, error) {
	start, err := dayOfYear(year, startDOY)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	endYear := year
	if endDOY < startDOY {
		endYear++
	}
	end, err := dayOfYear(endYear, endDOY)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}
