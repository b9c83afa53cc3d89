package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// PeriodUnit is the granularity of a view range.
type PeriodUnit string

const (
	Daily      PeriodUnit = "day"
	Weekly     PeriodUnit = "week"
	Monthly    PeriodUnit = "month"
	Quarterly  PeriodUnit = "quarter"
	HalfYearly PeriodUnit = "half-year"
	Yearly     PeriodUnit = "year"
	CustomDays PeriodUnit = "custom-days"
)

// DateKeyFormat is the machine-readable key format for period start dates.
const DateKeyFormat = "2006-01-02"

// ViewRange is a named period granularity controlling how dates are
// bucketed into periods. Days is only set for CustomDays ranges.
type ViewRange struct {
	Unit PeriodUnit
	Days int
}

// ParseViewRange parses a view-range token. Supported tokens are
// "1D", "1W", "1M", "3M", "6M", "1Y" and "custom-N" for a period of N
// days. Unknown tokens return ErrInvalidRange.
func ParseViewRange(token string) (ViewRange, error) {
	switch token {
	case "1D":
		return ViewRange{Unit: Daily}, nil
	case "1W":
		return ViewRange{Unit: Weekly}, nil
	case "1M":
		return ViewRange{Unit: Monthly}, nil
	case "3M":
		return ViewRange{Unit: Quarterly}, nil
	case "6M":
		return ViewRange{Unit: HalfYearly}, nil
	case "1Y":
		return ViewRange{Unit: Yearly}, nil
	}
	if rest, ok := strings.CutPrefix(token, "custom-"); ok {
		days, err := strconv.Atoi(rest)
		if err != nil || days < 1 {
			return ViewRange{}, fmt.Errorf("%w: %q", ErrInvalidRange, token)
		}
		return ViewRange{Unit: CustomDays, Days: days}, nil
	}
	return ViewRange{}, fmt.Errorf("%w: %q", ErrInvalidRange, token)
}

// String returns the token form accepted by ParseViewRange.
func (r ViewRange) String() string {
	switch r.Unit {
	case Daily:
		return "1D"
	case Weekly:
		return "1W"
	case Monthly:
		return "1M"
	case Quarterly:
		return "3M"
	case HalfYearly:
		return "6M"
	case Yearly:
		return "1Y"
	case CustomDays:
		return fmt.Sprintf("custom-%d", r.Days)
	}
	return string(r.Unit)
}

// DateOnly normalizes a timestamp to UTC midnight. All period arithmetic
// works on date granularity.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// customEpoch anchors custom-N-day periods so the same date always falls
// in the same bucket regardless of the query.
var customEpoch = time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)

// StartOfPeriod floors a date to the first day of its enclosing period.
// Weeks start on Monday (ISO convention).
func StartOfPeriod(t time.Time, r ViewRange) (time.Time, error) {
	d := DateOnly(t)
	switch r.Unit {
	case Daily:
		return d, nil
	case Weekly:
		offset := (int(d.Weekday()) + 6) % 7
		return d.AddDate(0, 0, -offset), nil
	case Monthly:
		return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC), nil
	case Quarterly:
		month := time.Month((int(d.Month())-1)/3*3 + 1)
		return time.Date(d.Year(), month, 1, 0, 0, 0, 0, time.UTC), nil
	case HalfYearly:
		month := time.January
		if d.Month() > time.June {
			month = time.July
		}
		return time.Date(d.Year(), month, 1, 0, 0, 0, 0, time.UTC), nil
	case Yearly:
		return time.Date(d.Year(), time.January, 1, 0, 0, 0, 0, time.UTC), nil
	case CustomDays:
		days := int(d.Sub(customEpoch).Hours() / 24)
		rem := ((days % r.Days) + r.Days) % r.Days
		return d.AddDate(0, 0, -rem), nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidRange, r.Unit)
}

// EndOfPeriod ceils a date to the last day of its enclosing period.
func EndOfPeriod(t time.Time, r ViewRange) (time.Time, error) {
	start, err := StartOfPeriod(t, r)
	if err != nil {
		return time.Time{}, err
	}
	switch r.Unit {
	case Daily:
		return start, nil
	case Weekly:
		return start.AddDate(0, 0, 6), nil
	case Monthly:
		return start.AddDate(0, 1, -1), nil
	case Quarterly:
		return start.AddDate(0, 3, -1), nil
	case HalfYearly:
		return start.AddDate(0, 6, -1), nil
	case Yearly:
		return start.AddDate(1, 0, -1), nil
	case CustomDays:
		return start.AddDate(0, 0, r.Days-1), nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidRange, r.Unit)
}

// SubtractPeriod steps a date backward by n periods. Month-based units
// clamp to the last day of shorter months (Mar 31 minus one month is
// Feb 28, or Feb 29 in leap years).
func SubtractPeriod(t time.Time, r ViewRange, n int) (time.Time, error) {
	d := DateOnly(t)
	switch r.Unit {
	case Daily:
		return d.AddDate(0, 0, -n), nil
	case Weekly:
		return d.AddDate(0, 0, -7*n), nil
	case Monthly:
		return addMonthsClamped(d, -n), nil
	case Quarterly:
		return addMonthsClamped(d, -3*n), nil
	case HalfYearly:
		return addMonthsClamped(d, -6*n), nil
	case Yearly:
		return addMonthsClamped(d, -12*n), nil
	case CustomDays:
		return d.AddDate(0, 0, -n*r.Days), nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidRange, r.Unit)
}

// EndOfPeriodsAgo computes the end of the period count periods before
// the one containing ref. A count of zero (or less) means the end of the
// current period.
func EndOfPeriodsAgo(ref time.Time, r ViewRange, count int) (time.Time, error) {
	if count <= 0 {
		return EndOfPeriod(ref, r)
	}
	start, err := StartOfPeriod(ref, r)
	if err != nil {
		return time.Time{}, err
	}
	back, err := SubtractPeriod(start, r, count)
	if err != nil {
		return time.Time{}, err
	}
	return EndOfPeriod(back, r)
}

// PeriodLabel renders a neutral, locale-free label for the period
// containing t. Localized display belongs to the presentation layer.
func PeriodLabel(t time.Time, r ViewRange) (string, error) {
	start, err := StartOfPeriod(t, r)
	if err != nil {
		return "", err
	}
	switch r.Unit {
	case Daily:
		return start.Format(DateKeyFormat), nil
	case Weekly:
		year, week := start.ISOWeek()
		return fmt.Sprintf("%d-W%02d", year, week), nil
	case Monthly:
		return start.Format("January 2006"), nil
	case Quarterly:
		return fmt.Sprintf("%d Q%d", start.Year(), (int(start.Month())-1)/3+1), nil
	case HalfYearly:
		half := 1
		if start.Month() >= time.July {
			half = 2
		}
		return fmt.Sprintf("%d H%d", start.Year(), half), nil
	case Yearly:
		return start.Format("2006"), nil
	case CustomDays:
		return fmt.Sprintf("%s (%dd)", start.Format(DateKeyFormat), r.Days), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRange, r.Unit)
}

// PeriodKey is the machine-readable key for the period containing t:
// the period start date in YYYY-MM-DD form.
func PeriodKey(t time.Time, r ViewRange) (string, error) {
	start, err := StartOfPeriod(t, r)
	if err != nil {
		return "", err
	}
	return start.Format(DateKeyFormat), nil
}

// addMonthsClamped shifts a date by delta months, clamping the day of
// month instead of letting overflow spill into the next month.
func addMonthsClamped(t time.Time, delta int) time.Time {
	months := t.Year()*12 + int(t.Month()) - 1 + delta
	year := months / 12
	month := time.Month(months%12 + 1)
	if months < 0 {
		// floor division for dates before year zero
		year = (months - 11) / 12
		month = time.Month(((months%12)+12)%12 + 1)
	}
	day := t.Day()
	if last := daysInMonth(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
