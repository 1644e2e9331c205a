package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func at(y int, m time.Month, d, h, min int) time.Time {
	return time.Date(y, m, d, h, min, 0, 0, time.UTC)
}

func TestGenerateWeeklyExactSet(t *testing.T) {
	// 2024-01-01 is a Monday.
	rule := RecurrenceRule{
		Frequency:  FreqWeekly,
		Interval:   1,
		DaysOfWeek: []time.Weekday{time.Monday},
		StartDate:  date(2024, time.January, 1),
		StartTime:  "09:00",
	}

	now := date(2024, time.January, 1)
	got, err := Generate(rule, now, 1)
	require.NoError(t, err)

	want := []time.Time{
		at(2024, time.January, 1, 9, 0),
		at(2024, time.January, 8, 9, 0),
		at(2024, time.January, 15, 9, 0),
		at(2024, time.January, 22, 9, 0),
		at(2024, time.January, 29, 9, 0),
	}
	require.Equal(t, want, got)
}

func TestGenerateWeeklyTwoMonths(t *testing.T) {
	rule := RecurrenceRule{
		Frequency:  FreqWeekly,
		Interval:   1,
		DaysOfWeek: []time.Weekday{time.Monday},
		StartDate:  date(2024, time.January, 1),
		StartTime:  "09:00",
	}

	now := date(2024, time.January, 1)
	got, err := Generate(rule, now, 2)
	require.NoError(t, err)
	require.Len(t, got, 9) // 5 Mondays in January, 4 in February

	prev := time.Time{}
	for _, occ := range got {
		require.Equal(t, time.Monday, occ.Weekday())
		require.Equal(t, 9, occ.Hour())
		require.Equal(t, 0, occ.Minute())
		require.False(t, occ.Before(rule.StartDate))
		if !prev.IsZero() {
			require.Equal(t, prev.AddDate(0, 0, 7), occ, "exactly one occurrence per week")
		}
		prev = occ
	}
}

func TestGenerateWeeklyStartDateNotOnWeekday(t *testing.T) {
	// Anchor on a Tuesday, rule wants Mondays: the day-by-day scan must
	// land on the following Monday, not shift the weekday.
	rule := RecurrenceRule{
		Frequency:  FreqWeekly,
		Interval:   1,
		DaysOfWeek: []time.Weekday{time.Monday},
		StartDate:  date(2024, time.January, 2),
		StartTime:  "10:30",
	}

	got, err := Generate(rule, date(2024, time.January, 2), 1)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	require.Equal(t, at(2024, time.January, 8, 10, 30), got[0])
}

func TestGenerateBiweeklyParity(t *testing.T) {
	rule := RecurrenceRule{
		Frequency:  FreqBiweekly,
		Interval:   1,
		DaysOfWeek: []time.Weekday{time.Monday},
		StartDate:  date(2024, time.January, 1),
		StartTime:  "09:00",
	}

	now := date(2024, time.January, 1)
	got, err := Generate(rule, now, 2)
	require.NoError(t, err)

	want := []time.Time{
		at(2024, time.January, 1, 9, 0),
		at(2024, time.January, 15, 9, 0),
		at(2024, time.January, 29, 9, 0),
		at(2024, time.February, 12, 9, 0),
		at(2024, time.February, 26, 9, 0),
	}
	require.Equal(t, want, got)

	for _, occ := range got {
		require.Zero(t, wholeWeeksBetween(rule.StartDate, occ)%2, "occurrence %s on odd week", occ)
	}
}

func TestGenerateMonthlySkipsShortMonths(t *testing.T) {
	// Anchored on the 31st: February (and every month without a 31st) must
	// be skipped outright, never clamped to month end.
	rule := RecurrenceRule{
		Frequency: FreqMonthly,
		Interval:  1,
		StartDate: date(2024, time.January, 31),
		StartTime: "09:00",
	}

	now := date(2024, time.January, 1)
	got, err := Generate(rule, now, 5)
	require.NoError(t, err)

	want := []time.Time{
		at(2024, time.January, 31, 9, 0),
		at(2024, time.March, 31, 9, 0),
		at(2024, time.May, 31, 9, 0),
	}
	require.Equal(t, want, got)

	for _, occ := range got {
		require.NotEqual(t, time.February, occ.Month())
		require.NotEqual(t, time.April, occ.Month())
		require.Equal(t, 31, occ.Day())
	}
}

func TestGenerateMonthlyMidMonthDay(t *testing.T) {
	rule := RecurrenceRule{
		Frequency: FreqMonthly,
		Interval:  1,
		StartDate: date(2024, time.January, 15),
		StartTime: "14:00",
	}

	got, err := Generate(rule, date(2024, time.January, 1), 3)
	require.NoError(t, err)

	want := []time.Time{
		at(2024, time.January, 15, 14, 0),
		at(2024, time.February, 15, 14, 0),
		at(2024, time.March, 15, 14, 0),
	}
	require.Equal(t, want, got)
}

func TestGenerateDailyInterval(t *testing.T) {
	rule := RecurrenceRule{
		Frequency: FreqDaily,
		Interval:  3,
		StartDate: date(2024, time.January, 1),
		StartTime: "08:00",
	}

	got, err := Generate(rule, date(2024, time.January, 1), 1)
	require.NoError(t, err)
	// Jan 1 .. Feb 1 horizon, every 3rd day: Jan 1, 4, ..., 31.
	require.Len(t, got, 11)
	require.Equal(t, at(2024, time.January, 1, 8, 0), got[0])
	for i := 1; i < len(got); i++ {
		require.Equal(t, got[i-1].AddDate(0, 0, 3), got[i])
	}
}

func TestGenerateCustomWeekdayFilter(t *testing.T) {
	// Interval-2 scan over Mon/Wed/Fri: positions landing on other
	// weekdays produce nothing.
	rule := RecurrenceRule{
		Frequency:  FreqCustom,
		Interval:   2,
		DaysOfWeek: []time.Weekday{time.Monday, time.Wednesday, time.Friday},
		StartDate:  date(2024, time.January, 1),
		StartTime:  "09:00",
	}

	got, err := Generate(rule, date(2023, time.December, 14), 1)
	require.NoError(t, err)

	// Horizon 2024-01-14; the cursor lands on Sun 7th, Tue 9th, Thu 11th
	// and Sat 13th, none of which pass the weekday filter.
	want := []time.Time{
		at(2024, time.January, 1, 9, 0), // Monday
		at(2024, time.January, 3, 9, 0), // Wednesday
		at(2024, time.January, 5, 9, 0), // Friday
	}
	require.Equal(t, want, got)
	for _, occ := range got {
		require.Contains(t, rule.DaysOfWeek, occ.Weekday())
	}
}

func TestGenerateRollingWindow(t *testing.T) {
	rule := RecurrenceRule{
		Frequency:  FreqWeekly,
		Interval:   1,
		DaysOfWeek: []time.Weekday{time.Monday},
		StartDate:  date(2024, time.January, 1),
		StartTime:  "09:00",
	}

	jan, err := Generate(rule, date(2024, time.January, 1), 1)
	require.NoError(t, err)
	mar, err := Generate(rule, date(2024, time.March, 1), 1)
	require.NoError(t, err)

	// Same rule, later clock: the horizon rolls forward and the result
	// set grows.
	require.Greater(t, len(mar), len(jan))
}

func TestGenerateRejectsInvalidRule(t *testing.T) {
	rule := RecurrenceRule{
		Frequency: FreqWeekly,
		Interval:  1,
		StartDate: date(2024, time.January, 1),
		StartTime: "09:00",
	}

	_, err := Generate(rule, date(2024, time.January, 1), 1)
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	require.Equal(t, "days_of_week", vErr.Field)
}
