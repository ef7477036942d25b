package calendar

import "time"

// MonthDay is a recurring promotional date.
type MonthDay struct {
	Month time.Month
	Day   int
}

// defaultPromos are the named promotional dates observed across the
// marketplaces, on top of the double-digit sale days.
var defaultPromos = []MonthDay{
	{time.February, 14},
	{time.May, 1},
	{time.June, 12},
	{time.August, 21},
	{time.November, 1},
	{time.December, 24},
	{time.December, 25},
	{time.December, 30},
}

// Oracle answers event-day questions for any calendar date. It is pure and
// deterministic; the promo list is fixed at construction.
type Oracle struct {
	promos map[MonthDay]bool
}

// New builds an Oracle with the default promo dates plus any extras.
func New(extra ...MonthDay) *Oracle {
	o := &Oracle{promos: make(map[MonthDay]bool, len(defaultPromos)+len(extra))}
	for _, md := range defaultPromos {
		o.promos[md] = true
	}
	for _, md := range extra {
		o.promos[md] = true
	}
	return o
}

var std = New()

// IsPayday reports whether d is a payday: the 15th, the last calendar day of
// the month, or the preceding Friday when the last day falls on a weekend.
func IsPayday(d time.Time) bool {
	day := d.Day()
	last := lastDayOfMonth(d)

	if day == 15 || day == last.Day() {
		return true
	}

	// Salary moves to the Friday before a weekend month-end.
	switch last.Weekday() {
	case time.Saturday:
		return sameDay(d, last.AddDate(0, 0, -1))
	case time.Sunday:
		return sameDay(d, last.AddDate(0, 0, -2))
	}
	return false
}

// IsMegaSaleDay reports whether d is a mega-sale day using the default
// promotional calendar.
func IsMegaSaleDay(d time.Time) bool { return std.IsMegaSaleDay(d) }

// IsMegaSaleDay reports whether d is a double-digit sale day, a configured
// promotional date, Black Friday, or Cyber Monday.
func (o *Oracle) IsMegaSaleDay(d time.Time) bool {
	m, day := d.Month(), d.Day()

	if int(m) == day && day <= 12 {
		return true
	}
	if o.promos[MonthDay{m, day}] {
		return true
	}

	if m == time.November {
		if sameDay(d, lastWeekdayOfNovember(d.Year(), time.Friday)) {
			return true
		}
		// Cyber Monday: four days after the last Thursday of November.
		cyber := lastWeekdayOfNovember(d.Year(), time.Thursday).AddDate(0, 0, 4)
		if sameDay(d, cyber) {
			return true
		}
	}
	// Cyber Monday can spill into December, as late as the 4th when the
	// last Thursday of November is the 30th.
	if m == time.December && day <= 4 {
		cyber := lastWeekdayOfNovember(d.Year(), time.Thursday).AddDate(0, 0, 4)
		if sameDay(d, cyber) {
			return true
		}
	}
	return false
}

// DayFlags holds the precomputed calendar flags for one date.
type DayFlags struct {
	Date     time.Time
	Weekend  bool
	Payday   bool
	MegaSale bool
}

// Event reports whether the date is a payday or a mega-sale day.
func (f DayFlags) Event() bool { return f.Payday || f.MegaSale }

// Flags computes all calendar flags for d.
func (o *Oracle) Flags(d time.Time) DayFlags {
	wd := d.Weekday()
	return DayFlags{
		Date:     d,
		Weekend:  wd == time.Saturday || wd == time.Sunday,
		Payday:   IsPayday(d),
		MegaSale: o.IsMegaSaleDay(d),
	}
}

// FutureFlags generates flags for the `horizon` days after last.
func (o *Oracle) FutureFlags(last time.Time, horizon int) []DayFlags {
	out := make([]DayFlags, 0, horizon)
	for i := 1; i <= horizon; i++ {
		out = append(out, o.Flags(last.AddDate(0, 0, i)))
	}
	return out
}

func lastDayOfMonth(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month()+1, 0, 0, 0, 0, 0, d.Location())
}

func lastWeekdayOfNovember(year int, wd time.Weekday) time.Time {
	d := time.Date(year, time.November, 30, 0, 0, 0, 0, time.UTC)
	for d.Weekday() != wd {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}
