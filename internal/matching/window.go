package matching

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

const minutesPerDay = 24 * 60

var dayNames = [...]string{"", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

var dayIndex = map[string]int{
	"monday": 1, "mon": 1,
	"tuesday": 2, "tue": 2, "tues": 2,
	"wednesday": 3, "wed": 3,
	"thursday": 4, "thu": 4, "thurs": 4,
	"friday": 5, "fri": 5,
	"saturday": 6, "sat": 6,
	"sunday": 7, "sun": 7,
}

// Window is a weekly availability block. Day runs 1 (Monday) to 7 (Sunday);
// Start and End are minutes from midnight with Start < End.
type Window struct {
	Day   int `json:"day"`
	Start int `json:"start"`
	End   int `json:"end"`
}

// Duration returns the window length in minutes.
func (w Window) Duration() int {
	return w.End - w.Start
}

// Overlap returns the intersection of two windows. Windows on different days or
// touching only at an endpoint do not overlap.
func (w Window) Overlap(other Window) (Window, bool) {
	if w.Day != other.Day {
		return Window{}, false
	}
	start := max(w.Start, other.Start)
	end := min(w.End, other.End)
	if start >= end {
		return Window{}, false
	}
	return Window{Day: w.Day, Start: start, End: end}, true
}

// Before orders windows by day, then start, then end.
func (w Window) Before(other Window) bool {
	if w.Day != other.Day {
		return w.Day < other.Day
	}
	if w.Start != other.Start {
		return w.Start < other.Start
	}
	return w.End < other.End
}

// DayName returns the weekday name of the window.
func (w Window) DayName() string {
	return DayName(w.Day)
}

func (w Window) String() string {
	return fmt.Sprintf("%s %s-%s", w.DayName(), FormatClock(w.Start), FormatClock(w.End))
}

// DayName maps 1..7 to Monday..Sunday.
func DayName(day int) string {
	if day < 1 || day > 7 {
		return ""
	}
	return dayNames[day]
}

// ParseDay accepts full or abbreviated English weekday names in any case.
func ParseDay(raw string) (int, bool) {
	day, ok := dayIndex[strings.ToLower(strings.TrimSpace(raw))]
	return day, ok
}

// ParseClock parses a 24h "HH:MM" time into minutes from midnight. "24:00" is
// accepted as the end of the day.
func ParseClock(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	hh, mm, ok := strings.Cut(raw, ":")
	if !ok {
		return 0, fmt.Errorf("time %q must be HH:MM", raw)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil || len(hh) == 0 || len(hh) > 2 {
		return 0, fmt.Errorf("time %q has an invalid hour", raw)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || len(mm) != 2 {
		return 0, fmt.Errorf("time %q has an invalid minute", raw)
	}
	if hour < 0 || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("time %q is out of range", raw)
	}
	total := hour*60 + minute
	if total > minutesPerDay {
		return 0, fmt.Errorf("time %q is out of range", raw)
	}
	return total, nil
}

// FormatClock renders minutes from midnight as "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// ParseWindow validates a raw {day, start, end} triple.
func ParseWindow(raw RawWindow) (Window, error) {
	day, ok := ParseDay(raw.Day)
	if !ok {
		return Window{}, fmt.Errorf("unknown day %q", raw.Day)
	}
	start, err := ParseClock(raw.Start)
	if err != nil {
		return Window{}, fmt.Errorf("start: %w", err)
	}
	end, err := ParseClock(raw.End)
	if err != nil {
		return Window{}, fmt.Errorf("end: %w", err)
	}
	if start >= end {
		return Window{}, fmt.Errorf("start %s must be before end %s", FormatClock(start), FormatClock(end))
	}
	return Window{Day: day, Start: start, End: end}, nil
}

// MergeWindows returns the union of the given windows, sorted, with overlapping
// or touching windows on the same day combined.
func MergeWindows(windows []Window) []Window {
	if len(windows) == 0 {
		return nil
	}
	sorted := make([]Window, len(windows))
	copy(sorted, windows)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	merged := make([]Window, 0, len(sorted))
	current := sorted[0]
	for _, next := range sorted[1:] {
		if next.Day == current.Day && next.Start <= current.End {
			if next.End > current.End {
				current.End = next.End
			}
			continue
		}
		merged = append(merged, current)
		current = next
	}
	return append(merged, current)
}
