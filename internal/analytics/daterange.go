package analytics

import (
	"errors"
	"time"
)

// ErrInvalidRange is returned when a date range ends before it starts.
var ErrInvalidRange = errors.New("start date is after end date")

// Window is one bounded date sub-range accepted by a single upstream
// analytics call. Bounds are inclusive.
type Window struct {
	Start time.Time
	End   time.Time
}

// Days returns the number of calendar days the window spans.
func (w Window) Days() int {
	return int(w.End.Sub(w.Start).Hours()/24) + 1
}

// SplitRange partitions an inclusive date range into consecutive windows of
// at most windowDays calendar days each. Windows are contiguous,
// non-overlapping, ordered ascending, and together cover exactly
// [start, end]. A single-day range yields one single-day window.
func SplitRange(start, end time.Time, windowDays int) ([]Window, error) {
	start = truncateToDay(start)
	end = truncateToDay(end)

	if start.After(end) {
		return nil, ErrInvalidRange
	}
	if windowDays <= 0 {
		windowDays = 7
	}

	var windows []Window
	for current := start; !current.After(end); {
		windowEnd := current.AddDate(0, 0, windowDays-1)
		if windowEnd.After(end) {
			windowEnd = end
		}
		windows = append(windows, Window{Start: current, End: windowEnd})
		current = windowEnd.AddDate(0, 0, 1)
	}

	return windows, nil
}

// truncateToDay drops sub-day precision and pins the time to UTC midnight,
// so window arithmetic is immune to time zones and DST.
func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
