package scheduling

import "time"

// Clock abstracts wall-clock time so generation and drift detection can be
// pinned in tests.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// NewRealClock returns a Clock backed by time.Now.
func NewRealClock() Clock { return realClock{} }

// Generate expands rule into concrete occurrence datetimes from the rule's
// anchor up to monthsAhead months past now. Pure and deterministic: the
// horizon rolls with the caller-supplied now, so repeated calls on different
// days yield different windows.
func Generate(rule RecurrenceRule, now time.Time, monthsAhead int) ([]time.Time, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}

	horizon := now.AddDate(0, monthsAhead, 0)
	start := rule.startDateTime()

	var out []time.Time

	switch rule.Frequency {
	case FreqDaily:
		for cur := start; !cur.After(horizon); cur = cur.AddDate(0, 0, rule.Interval) {
			out = append(out, cur)
		}

	case FreqCustom:
		// Same weekday membership test as weekly, but the cursor jumps
		// Interval days at a time.
		for cur := start; !cur.After(horizon); cur = cur.AddDate(0, 0, rule.Interval) {
			if !rule.hasWeekday(cur.Weekday()) {
				continue
			}
			out = append(out, cur)
		}

	case FreqWeekly, FreqBiweekly:
		// Day-by-day scan so the first occurrence lands on the right
		// weekday even when StartDate itself does not.
		for cur := start; !cur.After(horizon); cur = cur.AddDate(0, 0, 1) {
			if !rule.hasWeekday(cur.Weekday()) {
				continue
			}
			if rule.Frequency == FreqBiweekly && wholeWeeksBetween(rule.StartDate, cur)%2 != 0 {
				continue
			}
			out = append(out, cur)
		}

	case FreqMonthly:
		// The anchor's day-of-month is preserved exactly. time.Date
		// normalizes overflow (Feb 31 -> Mar 2/3), so a changed Day
		// means the month lacks that day and is skipped outright.
		day := rule.StartDate.Day()
		h, m, _ := parseStartTime(rule.StartTime)
		loc := rule.StartDate.Location()
		for i := 0; ; i += rule.Interval {
			occ := time.Date(rule.StartDate.Year(), rule.StartDate.Month()+time.Month(i), day, h, m, 0, 0, loc)
			if occ.After(horizon) {
				break
			}
			if occ.Day() != day {
				continue
			}
			out = append(out, occ)
		}
	}

	return out, nil
}

// wholeWeeksBetween counts complete weeks from a's date to b's date, ignoring
// time of day.
func wholeWeeksBetween(a, b time.Time) int {
	return (civilDays(b) - civilDays(a)) / 7
}

// civilDays maps a calendar date to a day count independent of location and
// DST shifts.
func civilDays(t time.Time) int {
	return int(time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).Unix() / 86400)
}
