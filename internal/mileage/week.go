package mileage

import (
	"fmt"
	"math"
	"time"
)

// WeekStart returns Monday 00:00:00 of the calendar week containing t, in
// t's location. Weeks run Monday through Sunday.
func WeekStart(t time.Time) time.Time {
	daysFromMonday := (int(t.Weekday()) + 6) % 7
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return midnight.AddDate(0, 0, -daysFromMonday)
}

// WeekEnd returns Sunday 23:59:59.999 of the calendar week containing t.
func WeekEnd(t time.Time) time.Time {
	return WeekStart(t).AddDate(0, 0, 6).
		Add(23*time.Hour + 59*time.Minute + 59*time.Second + 999*time.Millisecond)
}

// WeekID buckets t into its calendar-week identifier, formatted as
// "YYYY-W<NN>" (e.g. "2025-W03"). The week number is
// ceil((weekStart - Jan 1 of weekStart's year) / 7 days), so the year rolls
// over with the Monday that starts the week, not with January 1 itself.
func WeekID(t time.Time) string {
	weekStart := WeekStart(t)
	jan1 := time.Date(weekStart.Year(), time.January, 1, 0, 0, 0, 0, weekStart.Location())
	weekNumber := int(math.Ceil(weekStart.Sub(jan1).Hours() / (24 * 7)))
	return fmt.Sprintf("%d-W%02d", weekStart.Year(), weekNumber)
}
