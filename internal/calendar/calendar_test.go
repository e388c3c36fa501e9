package calendar

import (
	"testing"
	"time"

	"seatrotation/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustLoc(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	require.NoError(t, err)
	return loc
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestIsBookableWeekday(t *testing.T) {
	tests := []struct {
		name string
		date time.Time
		want bool
	}{
		{"monday", date(2026, 10, 19), true},
		{"friday", date(2026, 10, 16), true},
		{"saturday", date(2026, 10, 17), false},
		{"sunday", date(2026, 10, 18), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsBookableWeekday(tt.date))
		})
	}
}

func TestCalendar_IsHoliday(t *testing.T) {
	c := Default(time.UTC)

	assert.True(t, c.IsHoliday(date(2031, 1, 26)), "recurring holiday in any year")
	assert.True(t, c.IsHoliday(date(2026, 3, 25)), "dated holiday")
	assert.False(t, c.IsHoliday(date(2027, 3, 25)), "dated holiday does not recur")
	assert.False(t, c.IsHoliday(date(2026, 10, 16)))
}

func TestCalendar_IsSessionBookable(t *testing.T) {
	c := Default(time.UTC)

	assert.True(t, c.IsSessionBookable(date(2026, 10, 16)))
	assert.False(t, c.IsSessionBookable(date(2026, 10, 17)), "weekend")
	assert.False(t, c.IsSessionBookable(date(2026, 10, 20)), "dated holiday on a tuesday")
}

func TestNew_rejectsMalformedHolidays(t *testing.T) {
	_, err := New(time.UTC, []string{"13-45"}, nil)
	require.Error(t, err)

	_, err = New(time.UTC, nil, []string{"2026/01/01"})
	require.Error(t, err)

	c, err := New(time.UTC, []string{" 05-05 ", ""}, []string{"2027-02-02"})
	require.NoError(t, err)
	assert.True(t, c.IsHoliday(date(2030, 5, 5)))
	assert.True(t, c.IsHoliday(date(2027, 2, 2)))
}

func TestOwnerBatch(t *testing.T) {
	tests := []struct {
		name string
		date time.Time
		want domain.Batch
	}{
		{"even week tuesday flips to B", date(2026, 10, 13), domain.BatchB},
		{"even week thursday flips to A", date(2026, 10, 15), domain.BatchA},
		{"odd week monday", date(2026, 10, 19), domain.BatchA},
		{"odd week thursday", date(2026, 10, 22), domain.BatchB},
		{"iso week 53 monday", date(2026, 12, 28), domain.BatchA},
		{"iso week 53 thursday", date(2026, 12, 31), domain.BatchB},
		{"jan 1 still in week 53", date(2027, 1, 1), domain.BatchB},
		{"first iso week of new year", date(2027, 1, 4), domain.BatchA},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OwnerBatch(tt.date))
		})
	}
}

func TestDaysUntil(t *testing.T) {
	today := date(2026, 10, 16)
	assert.Equal(t, 0, DaysUntil(today, today))
	assert.Equal(t, 14, DaysUntil(today, date(2026, 10, 30)))
	assert.Equal(t, -1, DaysUntil(today, date(2026, 10, 15)))

	// across a DST change the civil difference is still whole days
	ny := mustLoc(t, "America/New_York")
	before := time.Date(2026, 10, 30, 0, 0, 0, 0, ny)
	after := time.Date(2026, 11, 2, 0, 0, 0, 0, ny)
	assert.Equal(t, 3, DaysUntil(before, after))
}

func TestCalendar_TodayUsesFacilityZone(t *testing.T) {
	kolkata := mustLoc(t, "Asia/Kolkata")
	c := Default(kolkata)

	// 20:00 UTC is already the next day in Kolkata (UTC+05:30)
	now := time.Date(2026, 10, 15, 20, 0, 0, 0, time.UTC)
	today := c.Today(now)
	assert.Equal(t, 16, today.Day())
	assert.Equal(t, kolkata, today.Location())
}

func TestCalendar_FloatingCutoff(t *testing.T) {
	kolkata := mustLoc(t, "Asia/Kolkata")
	c := Default(kolkata)

	cutoff := c.FloatingCutoff(c.DateOf(date(2026, 11, 2)))
	assert.Equal(t, time.Date(2026, 11, 1, 15, 0, 0, 0, kolkata), cutoff)

	// first of month rolls back into the previous month
	cutoff = c.FloatingCutoff(c.DateOf(date(2026, 12, 1)))
	assert.Equal(t, time.Date(2026, 11, 30, 15, 0, 0, 0, kolkata), cutoff)
}

func TestCalendar_ParseDate(t *testing.T) {
	c := Default(time.UTC)
	d, err := c.ParseDate("2026-10-16")
	require.NoError(t, err)
	assert.Equal(t, date(2026, 10, 16), d)

	_, err = c.ParseDate("16/10/2026")
	assert.Error(t, err)
}
