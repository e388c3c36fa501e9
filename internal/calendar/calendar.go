// Package calendar decides which dates host bookable sessions and which batch
// owns them. Every function is pure; a Calendar only carries configuration
// (the facility time zone and the holiday sets).
package calendar

import (
	"fmt"
	"strings"
	"time"

	"seatrotation/internal/domain"
)

const (
	// AdvanceWindowDays is how far ahead a seat may be booked, inclusive.
	AdvanceWindowDays = 14
	// FloatingOpenHour is the hour on the previous day when floating seats open.
	FloatingOpenHour = 15

	dateLayout     = "2006-01-02"
	monthDayLayout = "01-02"
)

// DefaultRecurringHolidays are month/day holidays observed every year.
var DefaultRecurringHolidays = []string{
	"01-01", // New Year's Day
	"01-26", // Republic Day
	"08-15", // Independence Day
	"10-02", // Gandhi Jayanti
	"12-25", // Christmas
}

// DefaultDatedHolidays are one-off holidays for specific years.
var DefaultDatedHolidays = []string{
	"2026-03-25", // Holi
	"2026-04-10", // Good Friday
	"2026-04-14", // Ambedkar Jayanti
	"2026-05-01", // Labour Day
	"2026-06-07", // Eid ul-Adha
	"2026-10-20", // Dussehra
	"2026-11-14", // Diwali
}

// Calendar resolves date rules in one canonical facility time zone.
type Calendar struct {
	loc       *time.Location
	recurring map[string]struct{}
	dated     map[string]struct{}
}

// New builds a Calendar. recurring holds MM-DD values and dated holds
// YYYY-MM-DD values; malformed entries are rejected.
func New(loc *time.Location, recurring, dated []string) (*Calendar, error) {
	if loc == nil {
		loc = time.UTC
	}
	c := &Calendar{
		loc:       loc,
		recurring: make(map[string]struct{}, len(recurring)),
		dated:     make(map[string]struct{}, len(dated)),
	}
	for _, md := range recurring {
		md = strings.TrimSpace(md)
		if md == "" {
			continue
		}
		if _, err := time.Parse(monthDayLayout, md); err != nil {
			return nil, fmt.Errorf("recurring holiday %q: %w", md, err)
		}
		c.recurring[md] = struct{}{}
	}
	for _, d := range dated {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		if _, err := time.Parse(dateLayout, d); err != nil {
			return nil, fmt.Errorf("dated holiday %q: %w", d, err)
		}
		c.dated[d] = struct{}{}
	}
	return c, nil
}

// Default returns a Calendar with the built-in holiday sets.
func Default(loc *time.Location) *Calendar {
	c, _ := New(loc, DefaultRecurringHolidays, DefaultDatedHolidays)
	return c
}

// Location returns the facility time zone.
func (c *Calendar) Location() *time.Location {
	return c.loc
}

// DateOf returns the civil date of t (its own year, month and day) at
// midnight in the facility zone. Stored session dates go through here.
func (c *Calendar) DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, c.loc)
}

// Today returns the facility-local date of the instant now.
func (c *Calendar) Today(now time.Time) time.Time {
	return c.DateOf(now.In(c.loc))
}

// ParseDate parses a YYYY-MM-DD value as a facility-local date.
func (c *Calendar) ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, s, c.loc)
}

// IsBookableWeekday reports whether date falls Monday through Friday.
func IsBookableWeekday(date time.Time) bool {
	wd := date.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// IsHoliday reports whether date is in the recurring or the dated holiday set.
func (c *Calendar) IsHoliday(date time.Time) bool {
	if _, ok := c.recurring[date.Format(monthDayLayout)]; ok {
		return true
	}
	_, ok := c.dated[date.Format(dateLayout)]
	return ok
}

// IsSessionBookable reports whether date is a weekday that is not a holiday.
func (c *Calendar) IsSessionBookable(date time.Time) bool {
	return IsBookableWeekday(date) && !c.IsHoliday(date)
}

// OwnerBatch returns the batch owning date under the biweekly rotation.
// In odd ISO weeks Monday to Wednesday belong to BatchA and Thursday to
// Friday to BatchB; even weeks flip the assignment.
func OwnerBatch(date time.Time) domain.Batch {
	_, week := date.ISOWeek()
	early := date.Weekday() >= time.Monday && date.Weekday() <= time.Wednesday
	owner := domain.BatchB
	if early {
		owner = domain.BatchA
	}
	if week%2 == 0 {
		return owner.Other()
	}
	return owner
}

// DaysUntil returns the number of civil days from today to date. It ignores
// clock time and DST shifts.
func DaysUntil(today, date time.Time) int {
	ty, tm, td := today.Date()
	dy, dm, dd := date.Date()
	from := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC)
	to := time.Date(dy, dm, dd, 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}

// FloatingCutoff returns 15:00 facility time on the day before date.
func (c *Calendar) FloatingCutoff(date time.Time) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d-1, FloatingOpenHour, 0, 0, 0, c.loc)
}
