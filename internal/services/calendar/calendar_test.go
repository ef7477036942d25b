package calendar

import (
	"testing"
	"time"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestPaydayFifteenth(t *testing.T) {
	for m := time.January; m <= time.December; m++ {
		if !IsPayday(day(2024, m, 15)) {
			t.Fatalf("expected payday on 2024-%02d-15", m)
		}
	}
}

func TestPaydayMonthEnd(t *testing.T) {
	// 2025-01-31 is a Friday
	if !IsPayday(day(2025, time.January, 31)) {
		t.Fatalf("expected payday on month end")
	}
	if IsPayday(day(2025, time.January, 16)) {
		t.Fatalf("unexpected payday on the 16th")
	}
}

func TestPaydayWeekendMonthEndMovesToFriday(t *testing.T) {
	// 2025-08-31 is a Sunday; the preceding Friday is the 29th.
	if !IsPayday(day(2025, time.August, 29)) {
		t.Fatalf("expected payday on preceding Friday")
	}
	if !IsPayday(day(2025, time.August, 31)) {
		t.Fatalf("month end itself remains a payday")
	}
	// 2025-05-31 is a Saturday; Friday the 30th.
	if !IsPayday(day(2025, time.May, 30)) {
		t.Fatalf("expected payday on Friday before Saturday month end")
	}
}

func TestMegaSaleDoubleDigit(t *testing.T) {
	for m := 1; m <= 12; m++ {
		if !IsMegaSaleDay(day(2026, time.Month(m), m)) {
			t.Fatalf("expected mega sale on %d/%d", m, m)
		}
	}
	if !IsMegaSaleDay(day(2026, time.November, 1)) {
		t.Fatalf("expected Nov 1 promo date")
	}
	if IsMegaSaleDay(day(2026, time.March, 17)) {
		t.Fatalf("unexpected mega sale on 3/17")
	}
}

func TestBlackFridayAndCyberMonday(t *testing.T) {
	// 2024: last Friday of November is the 29th, last Thursday the 28th,
	// Cyber Monday December 2nd.
	if !IsMegaSaleDay(day(2024, time.November, 29)) {
		t.Fatalf("expected Black Friday 2024-11-29")
	}
	if !IsMegaSaleDay(day(2024, time.December, 2)) {
		t.Fatalf("expected Cyber Monday 2024-12-02")
	}
	// 2025: Black Friday 11-28, Cyber Monday 12-01.
	if !IsMegaSaleDay(day(2025, time.November, 28)) {
		t.Fatalf("expected Black Friday 2025-11-28")
	}
	if !IsMegaSaleDay(day(2025, time.December, 1)) {
		t.Fatalf("expected Cyber Monday 2025-12-01")
	}
	// Latest possible spills: last Thursday Nov 29 (2018) and Nov 30 (2023).
	if !IsMegaSaleDay(day(2018, time.December, 3)) {
		t.Fatalf("expected Cyber Monday 2018-12-03")
	}
	if !IsMegaSaleDay(day(2023, time.December, 4)) {
		t.Fatalf("expected Cyber Monday 2023-12-04")
	}
	if IsMegaSaleDay(day(2024, time.December, 3)) {
		t.Fatalf("unexpected mega sale on 2024-12-03")
	}
}

func TestOracleDeterministic(t *testing.T) {
	o := New(MonthDay{time.July, 4})
	d := day(2030, time.July, 4)
	if !o.IsMegaSaleDay(d) || !o.IsMegaSaleDay(d) {
		t.Fatalf("expected configured promo date to be stable")
	}
	f1 := o.Flags(d)
	f2 := o.Flags(d)
	if f1 != f2 {
		t.Fatalf("flags not deterministic: %+v vs %+v", f1, f2)
	}
}

func TestFutureFlagsContiguous(t *testing.T) {
	o := New()
	last := day(2025, time.December, 28)
	flags := o.FutureFlags(last, 10)
	if len(flags) != 10 {
		t.Fatalf("expected 10 flag rows, got %d", len(flags))
	}
	for i, f := range flags {
		want := last.AddDate(0, 0, i+1)
		if !f.Date.Equal(want) {
			t.Fatalf("row %d: got %v want %v", i, f.Date, want)
		}
	}
}
