package domain

import (
	"errors"
	"strings"
)

var ErrInvalidTimeRange = errors.New("invalid time range (must be 7D, 30D, 90D or ALL)")

type TimeRange string

const (
	TimeRange7D  TimeRange = "7D"
	TimeRange30D TimeRange = "30D"
	TimeRange90D TimeRange = "90D"
	TimeRangeAll TimeRange = "ALL"

	// allTimeWindowDays is the window ALL is evaluated over.
	allTimeWindowDays = 365
)

func ParseTimeRange(s string) (TimeRange, error) {
	switch tr := TimeRange(strings.ToUpper(strings.TrimSpace(s))); tr {
	case TimeRange7D, TimeRange30D, TimeRange90D, TimeRangeAll:
		return tr, nil
	}
	return "", ErrInvalidTimeRange
}

func (tr TimeRange) Days() int {
	switch tr {
	case TimeRange7D:
		return 7
	case TimeRange30D:
		return 30
	case TimeRange90D:
		return 90
	default:
		return allTimeWindowDays
	}
}

// DateWindow is an inclusive range of calendar days.
type DateWindow struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

func (w DateWindow) Contains(d Date) bool {
	return !d.Before(w.Start) && !d.After(w.End)
}

// Window returns the Days()-long window ending on today.
func (tr TimeRange) Window(today Date) DateWindow {
	return DateWindow{Start: today.AddDays(-(tr.Days() - 1)), End: today}
}

// PreviousWindow returns the equally sized window immediately before Window(today).
func (tr TimeRange) PreviousWindow(today Date) DateWindow {
	return tr.Window(today.AddDays(-tr.Days()))
}
