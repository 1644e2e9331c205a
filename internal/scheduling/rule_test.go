package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func validWeeklyRule() RecurrenceRule {
	return RecurrenceRule{
		Frequency:  FreqWeekly,
		Interval:   1,
		DaysOfWeek: []time.Weekday{time.Monday},
		StartDate:  date(2024, time.January, 1),
		StartTime:  "09:00",
	}
}

func TestRuleValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*RecurrenceRule)
		wantField string
	}{
		{
			name:   "valid weekly",
			mutate: func(r *RecurrenceRule) {},
		},
		{
			name: "valid monthly without weekdays",
			mutate: func(r *RecurrenceRule) {
				r.Frequency = FreqMonthly
				r.DaysOfWeek = nil
			},
		},
		{
			name: "valid custom with several weekdays",
			mutate: func(r *RecurrenceRule) {
				r.Frequency = FreqCustom
				r.Interval = 2
				r.DaysOfWeek = []time.Weekday{time.Monday, time.Thursday}
			},
		},
		{
			name:      "unknown frequency",
			mutate:    func(r *RecurrenceRule) { r.Frequency = "yearly" },
			wantField: "frequency",
		},
		{
			name:      "zero interval",
			mutate:    func(r *RecurrenceRule) { r.Interval = 0 },
			wantField: "interval",
		},
		{
			name:      "negative interval",
			mutate:    func(r *RecurrenceRule) { r.Interval = -2 },
			wantField: "interval",
		},
		{
			name:      "weekly without weekday",
			mutate:    func(r *RecurrenceRule) { r.DaysOfWeek = nil },
			wantField: "days_of_week",
		},
		{
			name: "weekly with two weekdays",
			mutate: func(r *RecurrenceRule) {
				r.DaysOfWeek = []time.Weekday{time.Monday, time.Tuesday}
			},
			wantField: "days_of_week",
		},
		{
			name: "biweekly with two weekdays",
			mutate: func(r *RecurrenceRule) {
				r.Frequency = FreqBiweekly
				r.DaysOfWeek = []time.Weekday{time.Monday, time.Tuesday}
			},
			wantField: "days_of_week",
		},
		{
			name: "custom without weekdays",
			mutate: func(r *RecurrenceRule) {
				r.Frequency = FreqCustom
				r.DaysOfWeek = nil
			},
			wantField: "days_of_week",
		},
		{
			name:      "weekday out of range",
			mutate:    func(r *RecurrenceRule) { r.DaysOfWeek = []time.Weekday{7} },
			wantField: "days_of_week",
		},
		{
			name:      "zero start date",
			mutate:    func(r *RecurrenceRule) { r.StartDate = time.Time{} },
			wantField: "start_date",
		},
		{
			name:      "garbage start time",
			mutate:    func(r *RecurrenceRule) { r.StartTime = "9am" },
			wantField: "start_time",
		},
		{
			name:      "empty start time",
			mutate:    func(r *RecurrenceRule) { r.StartTime = "" },
			wantField: "start_time",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := validWeeklyRule()
			tt.mutate(&rule)

			err := rule.Validate()
			if tt.wantField == "" {
				require.NoError(t, err)
				return
			}

			var vErr *ValidationError
			require.ErrorAs(t, err, &vErr)
			require.Equal(t, tt.wantField, vErr.Field)
		})
	}
}

func TestStartDateTimeCombinesDateAndTime(t *testing.T) {
	rule := validWeeklyRule()
	rule.StartTime = "16:45"

	got := rule.startDateTime()
	require.Equal(t, at(2024, time.January, 1, 16, 45), got)
}
