package core

import (
	"errors"
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestParseViewRange(t *testing.T) {
	tests := []struct {
		token   string
		want    ViewRange
		wantErr bool
	}{
		{token: "1D", want: ViewRange{Unit: Daily}},
		{token: "1W", want: ViewRange{Unit: Weekly}},
		{token: "1M", want: ViewRange{Unit: Monthly}},
		{token: "3M", want: ViewRange{Unit: Quarterly}},
		{token: "6M", want: ViewRange{Unit: HalfYearly}},
		{token: "1Y", want: ViewRange{Unit: Yearly}},
		{token: "custom-14", want: ViewRange{Unit: CustomDays, Days: 14}},
		{token: "custom-1", want: ViewRange{Unit: CustomDays, Days: 1}},
		{token: "custom-0", wantErr: true},
		{token: "custom--3", wantErr: true},
		{token: "custom-abc", wantErr: true},
		{token: "2W", wantErr: true},
		{token: "monthly", wantErr: true},
		{token: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got, err := ParseViewRange(tt.token)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidRange) {
					t.Fatalf("ParseViewRange(%q) error = %v, want ErrInvalidRange", tt.token, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseViewRange(%q) unexpected error: %v", tt.token, err)
			}
			if got != tt.want {
				t.Errorf("ParseViewRange(%q) = %+v, want %+v", tt.token, got, tt.want)
			}
		})
	}
}

func TestViewRangeStringRoundTrip(t *testing.T) {
	for _, token := range []string{"1D", "1W", "1M", "3M", "6M", "1Y", "custom-30"} {
		rng, err := ParseViewRange(token)
		if err != nil {
			t.Fatalf("ParseViewRange(%q): %v", token, err)
		}
		if got := rng.String(); got != token {
			t.Errorf("String() = %q, want %q", got, token)
		}
	}
}

func TestStartOfPeriod(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		rng  ViewRange
		want time.Time
	}{
		{"day is identity", date(2020, time.March, 10), ViewRange{Unit: Daily}, date(2020, time.March, 10)},
		{"week floors to monday", date(2020, time.March, 11), ViewRange{Unit: Weekly}, date(2020, time.March, 9)},
		{"monday stays monday", date(2020, time.March, 9), ViewRange{Unit: Weekly}, date(2020, time.March, 9)},
		{"sunday floors back six days", date(2020, time.March, 15), ViewRange{Unit: Weekly}, date(2020, time.March, 9)},
		{"month floors to first", date(2020, time.March, 10), ViewRange{Unit: Monthly}, date(2020, time.March, 1)},
		{"quarter floors to quarter start", date(2020, time.May, 20), ViewRange{Unit: Quarterly}, date(2020, time.April, 1)},
		{"half-year first half", date(2020, time.June, 30), ViewRange{Unit: HalfYearly}, date(2020, time.January, 1)},
		{"half-year second half", date(2020, time.July, 1), ViewRange{Unit: HalfYearly}, date(2020, time.July, 1)},
		{"year floors to january first", date(2020, time.October, 5), ViewRange{Unit: Yearly}, date(2020, time.January, 1)},
		{"custom buckets from epoch", date(1970, time.January, 9), ViewRange{Unit: CustomDays, Days: 7}, date(1970, time.January, 8)},
		{"time of day is dropped", time.Date(2020, time.March, 10, 23, 59, 0, 0, time.UTC), ViewRange{Unit: Monthly}, date(2020, time.March, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := StartOfPeriod(tt.in, tt.rng)
			if err != nil {
				t.Fatalf("StartOfPeriod: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("StartOfPeriod(%v, %v) = %v, want %v", tt.in, tt.rng, got, tt.want)
			}
		})
	}
}

func TestEndOfPeriod(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		rng  ViewRange
		want time.Time
	}{
		{"day is identity", date(2020, time.March, 10), ViewRange{Unit: Daily}, date(2020, time.March, 10)},
		{"week ends sunday", date(2020, time.March, 11), ViewRange{Unit: Weekly}, date(2020, time.March, 15)},
		{"31-day month", date(2020, time.March, 10), ViewRange{Unit: Monthly}, date(2020, time.March, 31)},
		{"leap february", date(2020, time.February, 10), ViewRange{Unit: Monthly}, date(2020, time.February, 29)},
		{"non-leap february", date(2021, time.February, 10), ViewRange{Unit: Monthly}, date(2021, time.February, 28)},
		{"quarter end", date(2020, time.May, 20), ViewRange{Unit: Quarterly}, date(2020, time.June, 30)},
		{"year end", date(2020, time.March, 10), ViewRange{Unit: Yearly}, date(2020, time.December, 31)},
		{"custom period end", date(1970, time.January, 9), ViewRange{Unit: CustomDays, Days: 7}, date(1970, time.January, 14)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EndOfPeriod(tt.in, tt.rng)
			if err != nil {
				t.Fatalf("EndOfPeriod: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("EndOfPeriod(%v, %v) = %v, want %v", tt.in, tt.rng, got, tt.want)
			}
		})
	}
}

// Every date must fall inside its own period, and consecutive periods
// must tile the timeline without gaps or overlaps.
func TestPeriodsTileWithoutGaps(t *testing.T) {
	ranges := []ViewRange{
		{Unit: Daily},
		{Unit: Weekly},
		{Unit: Monthly},
		{Unit: Quarterly},
		{Unit: HalfYearly},
		{Unit: Yearly},
		{Unit: CustomDays, Days: 13},
	}

	for _, rng := range ranges {
		t.Run(rng.String(), func(t *testing.T) {
			d := date(2019, time.November, 17)
			for i := 0; i < 200; i++ {
				start, err := StartOfPeriod(d, rng)
				if err != nil {
					t.Fatalf("StartOfPeriod: %v", err)
				}
				end, err := EndOfPeriod(d, rng)
				if err != nil {
					t.Fatalf("EndOfPeriod: %v", err)
				}
				if d.Before(start) || d.After(end) {
					t.Fatalf("%v not within its period [%v, %v]", d, start, end)
				}
				// the day before the start belongs to the previous period
				prevEnd, err := EndOfPeriod(start.AddDate(0, 0, -1), rng)
				if err != nil {
					t.Fatalf("EndOfPeriod: %v", err)
				}
				if !prevEnd.Equal(start.AddDate(0, 0, -1)) {
					t.Fatalf("gap before %v: previous period ends %v", start, prevEnd)
				}
				d = d.AddDate(0, 0, 3)
			}
		})
	}
}

func TestSubtractPeriod(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		rng  ViewRange
		n    int
		want time.Time
	}{
		{"one day", date(2020, time.March, 1), ViewRange{Unit: Daily}, 1, date(2020, time.February, 29)},
		{"one week", date(2020, time.March, 9), ViewRange{Unit: Weekly}, 1, date(2020, time.March, 2)},
		{"month clamps to leap feb", date(2020, time.March, 31), ViewRange{Unit: Monthly}, 1, date(2020, time.February, 29)},
		{"month clamps to non-leap feb", date(2021, time.March, 31), ViewRange{Unit: Monthly}, 1, date(2021, time.February, 28)},
		{"month without clamping", date(2020, time.March, 15), ViewRange{Unit: Monthly}, 1, date(2020, time.February, 15)},
		{"across year boundary", date(2020, time.January, 15), ViewRange{Unit: Monthly}, 2, date(2019, time.November, 15)},
		{"quarter steps three months", date(2020, time.May, 31), ViewRange{Unit: Quarterly}, 1, date(2020, time.February, 29)},
		{"year clamps leap day", date(2020, time.February, 29), ViewRange{Unit: Yearly}, 1, date(2019, time.February, 28)},
		{"custom days", date(2020, time.March, 10), ViewRange{Unit: CustomDays, Days: 10}, 2, date(2020, time.February, 19)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SubtractPeriod(tt.in, tt.rng, tt.n)
			if err != nil {
				t.Fatalf("SubtractPeriod: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("SubtractPeriod(%v, %v, %d) = %v, want %v", tt.in, tt.rng, tt.n, got, tt.want)
			}
		})
	}
}

func TestEndOfPeriodsAgo(t *testing.T) {
	monthly := ViewRange{Unit: Monthly}
	ref := date(2020, time.March, 10)

	tests := []struct {
		name  string
		count int
		want  time.Time
	}{
		{"zero means current period end", 0, date(2020, time.March, 31)},
		{"negative treated as zero", -3, date(2020, time.March, 31)},
		{"one period back", 1, date(2020, time.February, 29)},
		{"two periods back", 2, date(2020, time.January, 31)},
		{"across year boundary", 3, date(2019, time.December, 31)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EndOfPeriodsAgo(ref, monthly, tt.count)
			if err != nil {
				t.Fatalf("EndOfPeriodsAgo: %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("EndOfPeriodsAgo(%v, 1M, %d) = %v, want %v", ref, tt.count, got, tt.want)
			}
		})
	}
}

func TestPeriodLabel(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		rng  ViewRange
		want string
	}{
		{"daily", date(2020, time.March, 10), ViewRange{Unit: Daily}, "2020-03-10"},
		{"weekly uses iso week", date(2020, time.March, 11), ViewRange{Unit: Weekly}, "2020-W11"},
		{"monthly", date(2020, time.March, 10), ViewRange{Unit: Monthly}, "March 2020"},
		{"quarterly", date(2020, time.May, 20), ViewRange{Unit: Quarterly}, "2020 Q2"},
		{"half-yearly", date(2020, time.August, 1), ViewRange{Unit: HalfYearly}, "2020 H2"},
		{"yearly", date(2020, time.March, 10), ViewRange{Unit: Yearly}, "2020"},
		{"custom", date(1970, time.January, 9), ViewRange{Unit: CustomDays, Days: 7}, "1970-01-08 (7d)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PeriodLabel(tt.in, tt.rng)
			if err != nil {
				t.Fatalf("PeriodLabel: %v", err)
			}
			if got != tt.want {
				t.Errorf("PeriodLabel(%v, %v) = %q, want %q", tt.in, tt.rng, got, tt.want)
			}
		})
	}
}

func TestPeriodKey(t *testing.T) {
	got, err := PeriodKey(date(2020, time.March, 10), ViewRange{Unit: Monthly})
	if err != nil {
		t.Fatalf("PeriodKey: %v", err)
	}
	if got != "2020-03-01" {
		t.Errorf("PeriodKey = %q, want %q", got, "2020-03-01")
	}
}

func TestUnknownUnitFails(t *testing.T) {
	bad := ViewRange{Unit: PeriodUnit("fortnight")}
	in := date(2020, time.March, 10)

	if _, err := StartOfPeriod(in, bad); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("StartOfPeriod error = %v, want ErrInvalidRange", err)
	}
	if _, err := EndOfPeriod(in, bad); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("EndOfPeriod error = %v, want ErrInvalidRange", err)
	}
	if _, err := SubtractPeriod(in, bad, 1); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("SubtractPeriod error = %v, want ErrInvalidRange", err)
	}
	if _, err := PeriodLabel(in, bad); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("PeriodLabel error = %v, want ErrInvalidRange", err)
	}
}
