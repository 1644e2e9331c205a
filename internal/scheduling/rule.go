package scheduling

import (
	"fmt"
	"time"
)

// ValidationError reports a malformed RecurrenceRule. It is returned before
// any I/O happens.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid recurrence rule: %s %s", e.Field, e.Reason)
}

// Validate checks the frequency-specific requirements of the rule.
func (r RecurrenceRule) Validate() error {
	switch r.Frequency {
	case FreqDaily, FreqWeekly, FreqBiweekly, FreqMonthly, FreqCustom:
	default:
		return &ValidationError{Field: "frequency", Reason: fmt.Sprintf("unknown value %q", r.Frequency)}
	}

	if r.Interval < 1 {
		return &ValidationError{Field: "interval", Reason: "must be >= 1"}
	}

	switch r.Frequency {
	case FreqWeekly, FreqBiweekly:
		if len(r.DaysOfWeek) != 1 {
			return &ValidationError{Field: "days_of_week", Reason: "must contain exactly one weekday"}
		}
	case FreqCustom:
		if len(r.DaysOfWeek) == 0 {
			return &ValidationError{Field: "days_of_week", Reason: "must not be empty"}
		}
	}

	for _, wd := range r.DaysOfWeek {
		if wd < time.Sunday || wd > time.Saturday {
			return &ValidationError{Field: "days_of_week", Reason: fmt.Sprintf("invalid weekday %d", wd)}
		}
	}

	if r.StartDate.IsZero() {
		return &ValidationError{Field: "start_date", Reason: "is required"}
	}
	if _, _, err := parseStartTime(r.StartTime); err != nil {
		return &ValidationError{Field: "start_time", Reason: err.Error()}
	}

	return nil
}

func (r RecurrenceRule) hasWeekday(wd time.Weekday) bool {
	for _, d := range r.DaysOfWeek {
		if d == wd {
			return true
		}
	}
	return false
}

// startDateTime combines StartDate and StartTime in StartDate's location.
func (r RecurrenceRule) startDateTime() time.Time {
	h, m, _ := parseStartTime(r.StartTime)
	return time.Date(r.StartDate.Year(), r.StartDate.Month(), r.StartDate.Day(), h, m, 0, 0, r.StartDate.Location())
}

func parseStartTime(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("must be HH:MM, got %q", s)
	}
	return t.Hour(), t.Minute(), nil
}
