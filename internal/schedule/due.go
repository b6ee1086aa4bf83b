package schedule

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Period is the recurrence cadence of a task.
type Period string

const (
	Daily   Period = "d"
	Weekly  Period = "w"
	Monthly Period = "m"
)

// WeeklyAnchor is the weekday every weekly task is due on.
const WeeklyAnchor = time.Saturday

var ErrUnknownPeriod = errors.New("unknown period")

// ParsePeriod accepts both the short tags and their long names.
func ParsePeriod(raw string) (Period, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "d", "daily":
		return Daily, nil
	case "w", "weekly":
		return Weekly, nil
	case "m", "monthly":
		return Monthly, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPeriod, raw)
	}
}

func (p Period) Valid() bool {
	return p == Daily || p == Weekly || p == Monthly
}

func (p Period) String() string {
	switch p {
	case Daily:
		return "daily"
	case Weekly:
		return "weekly"
	case Monthly:
		return "monthly"
	default:
		return string(p)
	}
}

// EndOfDay keeps the calendar date of t and moves the clock to 23:59:59.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, 0, t.Location())
}

// InitialDue returns the first due date of a task created at reference.
func InitialDue(p Period, reference time.Time) time.Time {
	ref := EndOfDay(reference)
	switch p {
	case Daily:
		return ref
	case Weekly:
		return ref.AddDate(0, 0, daysUntil(ref.Weekday(), WeeklyAnchor))
	case Monthly:
		if ref.Day() == 1 {
			return ref
		}
		return firstOfMonth(ref.Year(), ref.Month()+1, ref.Location())
	}
	panic(fmt.Sprintf("schedule: initial due for unknown period %q", string(p)))
}

// Advance rolls a due date forward after the task was completed at reference.
// Overdue weekly and monthly tasks catch up onto their anchor instead of
// stepping a single period from the stale date.
func Advance(p Period, due, reference time.Time) time.Time {
	ref := EndOfDay(reference)
	switch p {
	case Daily:
		return ref.AddDate(0, 0, 1)
	case Weekly:
		// Compare calendar dates so a DST shift inside the week is ignored.
		next := EndOfDay(due)
		for next.Before(ref.AddDate(0, 0, 7)) {
			next = next.AddDate(0, 0, 7)
		}
		return next
	case Monthly:
		// Always two calendar months past the completion month; time.Date
		// normalises month 13 and 14 into the following year.
		return firstOfMonth(ref.Year(), ref.Month()+2, ref.Location())
	}
	panic(fmt.Sprintf("schedule: advance for unknown period %q", string(p)))
}

func daysUntil(from, to time.Weekday) int {
	return (int(to) - int(from) + 7) % 7
}

func firstOfMonth(year int, month time.Month, loc *time.Location) time.Time {
	return time.Date(year, month, 1, 23, 59, 59, 0, loc)
}
