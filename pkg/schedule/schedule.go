// Package schedule maps calendar dates and clock times onto the tariff
// calendar: season, day type, and the two independent time-of-use period
// taxonomies. Everything here is a pure function of its inputs.
package schedule

import (
	"errors"
	"fmt"
	"time"

	"github.com/digienergy/simulation/pkg/types"
)

// ErrInvalidDate indicates malformed or out-of-range calendar input.
var ErrInvalidDate = errors.New("invalid date")

// Summer runs May 16 through October 15, inclusive on both ends.
const (
	summerStartMonth = time.May
	summerStartDay   = 16
	summerEndMonth   = time.October
	summerEndDay     = 15
)

// SeasonOf returns the tariff season for a calendar date. It depends only on
// month and day.
func SeasonOf(month time.Month, day int) types.Season {
	afterStart := month > summerStartMonth || (month == summerStartMonth && day >= summerStartDay)
	beforeEnd := month < summerEndMonth || (month == summerEndMonth && day <= summerEndDay)
	if afterStart && beforeEnd {
		return types.SeasonSummer
	}
	return types.SeasonNonSummer
}

// DayTypeOf classifies a date as Weekday, Saturday or Sunday and also returns
// the ISO weekday index (0=Monday .. 6=Sunday). It returns ErrInvalidDate if
// the inputs do not name a real calendar date.
func DayTypeOf(year int, month time.Month, day int) (types.DayType, int, error) {
	if month < time.January || month > time.December || day < 1 || day > 31 {
		return "", 0, fmt.Errorf("%w: %04d-%02d-%02d", ErrInvalidDate, year, month, day)
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes out-of-range days (Feb 30 becomes Mar 2), so a
	// round-trip mismatch means the date never existed.
	if t.Year() != year || t.Month() != month || t.Day() != day {
		return "", 0, fmt.Errorf("%w: %04d-%02d-%02d", ErrInvalidDate, year, month, day)
	}

	// convert Go's Sunday=0 to ISO Monday=0
	weekday := (int(t.Weekday()) + 6) % 7
	switch {
	case weekday < 5:
		return types.DayTypeWeekday, weekday, nil
	case weekday == 5:
		return types.DayTypeSaturday, weekday, nil
	default:
		return types.DayTypeSunday, weekday, nil
	}
}

// ParseDate parses an ISO "2006-01-02" date and validates it.
func ParseDate(date string) (int, time.Month, int, error) {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	return t.Year(), t.Month(), t.Day(), nil
}

// MinuteOfDay converts a "15:04" clock string to minutes after midnight.
func MinuteOfDay(clock string) (int, error) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return 0, fmt.Errorf("%w: bad clock time %q", ErrInvalidDate, clock)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// CapacityPeriodAt classifies a minute of the day under the capacity-period
// boundary table. This taxonomy drives demand limits and capacity statistics;
// it is NOT the one used for energy pricing.
//
// Weekday Summer:    Peak 16:00-22:00, Half_Peak 09:00-16:00 and 22:00-24:00,
// Off_Peak otherwise. Weekday NonSummer: Half_Peak 09:00-24:00. Saturday:
// Saturday_Half_Peak 09:00-24:00. Sunday: Off_Peak all day.
func CapacityPeriodAt(dayType types.DayType, season types.Season, minuteOfDay int) types.CapacityPeriod {
	switch dayType {
	case types.DayTypeWeekday:
		if season == types.SeasonSummer {
			switch {
			case minuteOfDay >= 16*60 && minuteOfDay < 22*60:
				return types.CapacityPeriodPeak
			case (minuteOfDay >= 9*60 && minuteOfDay < 16*60) || minuteOfDay >= 22*60:
				return types.CapacityPeriodHalfPeak
			default:
				return types.CapacityPeriodOffPeak
			}
		}
		if minuteOfDay >= 9*60 {
			return types.CapacityPeriodHalfPeak
		}
		return types.CapacityPeriodOffPeak
	case types.DayTypeSaturday:
		if minuteOfDay >= 9*60 {
			return types.CapacityPeriodSatHalfPeak
		}
		return types.CapacityPeriodOffPeak
	default: // Sunday
		return types.CapacityPeriodOffPeak
	}
}

// RatePeriodAt classifies a minute of the day under the energy-rate boundary
// table. The half-peak window starts at 06:00 here (not 09:00) and excludes
// 11:00-14:00 on weekdays, so this can disagree with CapacityPeriodAt for the
// same clock time. The disagreement is part of the tariff rules.
func RatePeriodAt(dayType types.DayType, season types.Season, minuteOfDay int) types.RatePeriod {
	switch dayType {
	case types.DayTypeWeekday:
		if season == types.SeasonSummer && minuteOfDay >= 16*60 && minuteOfDay < 22*60 {
			return types.RatePeriodPeak
		}
		if (minuteOfDay >= 6*60 && minuteOfDay < 11*60) || minuteOfDay >= 14*60 {
			return types.RatePeriodHalfPeak
		}
		return types.RatePeriodOffPeak
	case types.DayTypeSaturday:
		if minuteOfDay >= 6*60 {
			return types.RatePeriodHalfPeak
		}
		return types.RatePeriodOffPeak
	default: // Sunday
		return types.RatePeriodOffPeak
	}
}

// ClockRange is an inclusive [Start, End] window of minutes within a day,
// used for the low-demand generation override.
type ClockRange struct {
	Start int
	End   int
}

// NewClockRange parses "15:04" bounds into a ClockRange.
func NewClockRange(start, end string) (ClockRange, error) {
	s, err := MinuteOfDay(start)
	if err != nil {
		return ClockRange{}, err
	}
	e, err := MinuteOfDay(end)
	if err != nil {
		return ClockRange{}, err
	}
	if e < s {
		return ClockRange{}, fmt.Errorf("%w: clock range %s-%s ends before it starts", ErrInvalidDate, start, end)
	}
	return ClockRange{Start: s, End: e}, nil
}

// Contains reports whether the minute falls inside the window, inclusive on
// both ends.
func (r ClockRange) Contains(minuteOfDay int) bool {
	return minuteOfDay >= r.Start && minuteOfDay <= r.End
}
