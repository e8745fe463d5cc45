// Package dates holds the calendar-day helpers shared by the replay and the
// performance grid. All values are normalized to midnight UTC.
package dates

import (
	"fmt"
	"time"

	"github.com/GooferByte/portfolio-engine/internal/models"
)

// Week is the spacing of the performance grid.
const Week = 7 * 24 * time.Hour

// DaysPerYear is used to annualize returns.
const DaysPerYear = 365.25

// Day truncates t to its calendar day at midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Parse reads a "2006-01-02" day.
func Parse(s string) (time.Time, error) {
	t, err := time.Parse(models.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q want format %q: %w", s, models.DateLayout, err)
	}
	return Day(t), nil
}

// Format renders a day as "2006-01-02".
func Format(t time.Time) string {
	return t.Format(models.DateLayout)
}

// IsWeekend reports whether t falls on Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// PreviousWeekday returns the last weekday strictly before the day of now.
func PreviousWeekday(now time.Time) time.Time {
	d := Day(now).AddDate(0, 0, -1)
	for IsWeekend(d) {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

// WeeklyGrid returns start, start+1w, ... up to end, and end itself when it
// is not already on the grid. An end before start yields only start.
func WeeklyGrid(start, end time.Time) []time.Time {
	start, end = Day(start), Day(end)
	if end.Before(start) {
		return []time.Time{start}
	}
	var grid []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 7) {
		grid = append(grid, d)
	}
	if last := grid[len(grid)-1]; !last.Equal(end) {
		grid = append(grid, end)
	}
	return grid
}

// YearsBetween is the fractional number of years from a to b.
func YearsBetween(a, b time.Time) float64 {
	return Day(b).Sub(Day(a)).Hours() / 24 / DaysPerYear
}
