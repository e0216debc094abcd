package lesson

import (
	"time"
)

// searchHorizonDays bounds the forward walk in NextLessonDates: if no lesson
// day at all is found within this many days the weekday set is empty (or
// effectively so) and the walk gives up instead of looping forever.
const searchHorizonDays = 60

// Calendar answers which calendar dates count as lesson days. All arithmetic
// is calendar-day granular in UTC so DST shifts and server locale never move
// a lesson date.
type Calendar struct {
	weekdays map[time.Weekday]bool
}

// NewCalendar builds a calendar holding lessons on the given weekdays.
func NewCalendar(weekdays ...time.Weekday) *Calendar {
	set := make(map[time.Weekday]bool, len(weekdays))
	for _, wd := range weekdays {
		set[wd] = true
	}
	return &Calendar{weekdays: set}
}

// Truncate drops the time-of-day part, yielding the UTC midnight of t's UTC
// calendar date.
func Truncate(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// IsLessonDay reports whether t's UTC calendar date is a lesson day.
func (c *Calendar) IsLessonDay(t time.Time) bool {
	return c.weekdays[t.UTC().Weekday()]
}

// NextLessonDates walks forward day by day from `from` (inclusive) and
// returns the first `count` lesson dates, ascending. When no lesson day is
// found within the search horizon the result is empty.
func (c *Calendar) NextLessonDates(count int, from time.Time) []time.Time {
	if count <= 0 {
		return nil
	}
	day := Truncate(from)
	dates := make([]time.Time, 0, count)
	for offset := 0; len(dates) < count; offset++ {
		if offset >= searchHorizonDays && len(dates) == 0 {
			return nil
		}
		if c.IsLessonDay(day) {
			dates = append(dates, day)
		}
		day = day.AddDate(0, 0, 1)
	}
	return dates
}

// LessonDatesInRange returns every lesson date in the closed interval
// [from, to], ascending. An inverted interval yields an empty result.
func (c *Calendar) LessonDatesInRange(from, to time.Time) []time.Time {
	start := Truncate(from)
	end := Truncate(to)
	var dates []time.Time
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		if c.IsLessonDay(day) {
			dates = append(dates, day)
		}
	}
	return dates
}

// MonthRange returns the first and last calendar date of t's UTC month.
func MonthRange(t time.Time) (time.Time, time.Time) {
	u := t.UTC()
	first := time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)
	return first, last
}
