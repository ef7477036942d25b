package features

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"SalesCast/internal/domain/models"
	"SalesCast/internal/services/calendar"
	applogger "SalesCast/pkg/logger"

	"gonum.org/v1/gonum/stat"
)

// Exogenous column names carried on every ObservationRow.
const (
	ColPaidPrice    = "avg_paid_price"
	ColDiscountRate = "avg_discount_rate"
)

// Config controls which feature columns the builder produces.
type Config struct {
	Target        string
	LagOffsets    []int
	RollingWindow int
	ExogLags      map[string][]int
	Harmonics     int // Fourier harmonics, default 5
}

// Builder derives the full model feature set from a daily series. It is a
// pure function of its inputs: usable for a full-history batch pass or for an
// incremental extension with one appended row.
type Builder struct {
	oracle *calendar.Oracle
	l      *applogger.Logger
}

func NewBuilder(oracle *calendar.Oracle, l *applogger.Logger) *Builder {
	if oracle == nil {
		oracle = calendar.New()
	}
	return &Builder{oracle: oracle, l: l}
}

// Build adds calendar, lag, rolling, Fourier and interaction columns for
// every row, including placeholder future rows whose target is NaN. Lag and
// rolling columns for future rows draw only from earlier values; remaining
// gaps are closed by the fill pass.
func (b *Builder) Build(rows []models.ObservationRow, cfg Config) (*Frame, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("empty series: %w", models.ErrData)
	}

	n := len(rows)
	dates := make([]time.Time, n)
	target := make([]float64, n)
	price := make([]float64, n)
	discount := make([]float64, n)
	for i, r := range rows {
		dates[i] = r.Date
		target[i] = r.Target
		price[i] = r.PaidPrice
		discount[i] = r.DiscountRate
	}

	f := NewFrame(dates)
	f.Set(cfg.Target, target)
	f.Set(ColPaidPrice, price)
	f.Set(ColDiscountRate, discount)

	b.calendarColumns(f, rows)
	b.lagColumns(f, cfg)
	b.rollingColumns(f, cfg)
	b.fourierColumns(f, cfg)
	b.derivedColumns(f, cfg)

	flags, continuous := fillPass(f, cfg.Target)
	if b.l != nil {
		b.l.Info("feature build complete",
			applogger.Int("rows", f.Len()),
			applogger.Int("flag_columns", flags),
			applogger.Int("continuous_columns", continuous),
		)
	}
	return f, nil
}

func validateConfig(cfg Config) error {
	if cfg.Target == "" {
		return fmt.Errorf("target column required: %w", models.ErrConfiguration)
	}
	for _, k := range cfg.LagOffsets {
		if k <= 0 {
			return fmt.Errorf("lag offset %d must be positive: %w", k, models.ErrConfiguration)
		}
	}
	if cfg.RollingWindow <= 0 {
		return fmt.Errorf("rolling window %d must be positive: %w", cfg.RollingWindow, models.ErrConfiguration)
	}
	for col, lags := range cfg.ExogLags {
		for _, k := range lags {
			if k <= 0 {
				return fmt.Errorf("exogenous lag %d for %s must be positive: %w", k, col, models.ErrConfiguration)
			}
		}
	}
	return nil
}

func (b *Builder) calendarColumns(f *Frame, rows []models.ObservationRow) {
	n := len(rows)
	year := make([]float64, n)
	month := make([]float64, n)
	day := make([]float64, n)
	dow := make([]float64, n)
	doy := make([]float64, n)
	week := make([]float64, n)
	quarter := make([]float64, n)
	weekend := make([]float64, n)
	sinceStart := make([]float64, n)
	payday := make([]float64, n)
	megaSale := make([]float64, n)
	event := make([]float64, n)

	for i, r := range rows {
		d := r.Date
		year[i] = float64(d.Year())
		month[i] = float64(d.Month())
		day[i] = float64(d.Day())
		// Monday=0 to match the training pipeline.
		dow[i] = float64((int(d.Weekday()) + 6) % 7)
		doy[i] = float64(d.YearDay())
		_, isoWeek := d.ISOWeek()
		week[i] = float64(isoWeek)
		quarter[i] = float64((int(d.Month())-1)/3 + 1)
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			weekend[i] = 1
		}
		sinceStart[i] = float64(i)
		if r.Payday {
			payday[i] = 1
		}
		if r.MegaSale {
			megaSale[i] = 1
		}
		if r.Event() {
			event[i] = 1
		}
	}

	before := make([]float64, n)
	after := make([]float64, n)
	for i := 0; i < n; i++ {
		if i+1 < n {
			before[i] = event[i+1]
		}
		if i > 0 {
			after[i] = event[i-1]
		}
	}

	f.Set("year", year)
	f.Set("month", month)
	f.Set("day", day)
	f.Set("dayofweek", dow)
	f.Set("dayofyear", doy)
	f.Set("weekofyear", week)
	f.Set("quarter", quarter)
	f.Set("is_weekend", weekend)
	f.Set("days_since_start", sinceStart)
	f.Set("is_payday", payday)
	f.Set("is_mega_sale_day", megaSale)
	f.Set("is_event", event)
	f.Set("day_before_event", before)
	f.Set("day_after_event", after)
}

func (b *Builder) lagColumns(f *Frame, cfg Config) {
	target, _ := f.Column(cfg.Target)
	for _, k := range cfg.LagOffsets {
		f.Set(LagName(cfg.Target, k), shift(target, k))
	}
	for _, col := range sortedKeys(cfg.ExogLags) {
		src, ok := f.Column(col)
		if !ok {
			continue
		}
		for _, k := range cfg.ExogLags[col] {
			f.Set(LagName(col, k), shift(src, k))
		}
	}
}

// rollingColumns computes trailing statistics anchored one day back: the
// statistic at row t never includes row t's own value. min-periods is 1.
func (b *Builder) rollingColumns(f *Frame, cfg Config) {
	target, _ := f.Column(cfg.Target)
	n := len(target)
	w := cfg.RollingWindow

	mean := make([]float64, n)
	std := make([]float64, n)
	median := make([]float64, n)
	scratch := make([]float64, 0, w)

	for t := 0; t < n; t++ {
		lo := t - w
		if lo < 0 {
			lo = 0
		}
		scratch = scratch[:0]
		for _, v := range target[lo:t] {
			if !math.IsNaN(v) {
				scratch = append(scratch, v)
			}
		}
		switch len(scratch) {
		case 0:
			mean[t], std[t], median[t] = math.NaN(), math.NaN(), math.NaN()
		case 1:
			mean[t], median[t] = scratch[0], scratch[0]
			std[t] = math.NaN() // sample std undefined for one observation
		default:
			mean[t] = stat.Mean(scratch, nil)
			std[t] = stat.StdDev(scratch, nil)
			sort.Float64s(scratch)
			median[t] = stat.Quantile(0.5, stat.LinInterp, scratch, nil)
		}
	}

	f.Set(RollingMeanName(cfg.Target, w), mean)
	f.Set(RollingStdName(cfg.Target, w), std)
	f.Set(RollingMedianName(cfg.Target, w), median)
}

// fourierColumns adds sin/cos pairs of a year-continuous phase so annual
// seasonality stays smooth across calendar-year boundaries.
func (b *Builder) fourierColumns(f *Frame, cfg Config) {
	n := f.Len()
	years := make(map[int]struct{}, 4)
	for _, d := range f.Dates {
		years[d.Year()] = struct{}{}
	}
	span := float64(len(years))

	harmonics := cfg.Harmonics
	if harmonics <= 0 {
		harmonics = 5
	}
	for k := 1; k <= harmonics; k++ {
		sin := make([]float64, n)
		cos := make([]float64, n)
		for i, d := range f.Dates {
			phase := 2 * math.Pi * (float64(d.Year())*366 + float64(d.YearDay())) / (366 * span)
			sin[i] = math.Sin(float64(k) * phase)
			cos[i] = math.Cos(float64(k) * phase)
		}
		f.Set(fmt.Sprintf("fourier_sin_%d", k), sin)
		f.Set(fmt.Sprintf("fourier_cos_%d", k), cos)
	}
}

// derivedColumns adds the growth and interaction terms. All of them are
// functions of columns already present, so the forecaster can refresh them
// from updated primitives at every recursive step.
func (b *Builder) derivedColumns(f *Frame, cfg Config) {
	n := f.Len()
	lag1, _ := f.Column(LagName(cfg.Target, 1))
	if lag1 == nil {
		// lag-1 not configured; growth falls back to the rolling mean only
		lag1, _ = f.Column(RollingMeanName(cfg.Target, cfg.RollingWindow))
	}
	mean, _ := f.Column(RollingMeanName(cfg.Target, cfg.RollingWindow))
	event, _ := f.Column("is_event")
	payday, _ := f.Column("is_payday")
	megaSale, _ := f.Column("is_mega_sale_day")
	weekend, _ := f.Column("is_weekend")
	price, _ := f.Column(ColPaidPrice)
	discount, _ := f.Column(ColDiscountRate)

	growth := make([]float64, n)
	discEvent := make([]float64, n)
	discPayday := make([]float64, n)
	priceMega := make([]float64, n)
	weekendMean := make([]float64, n)
	for i := 0; i < n; i++ {
		growth[i] = Growth(lag1[i], mean[i])
		discEvent[i] = event[i] * discount[i]
		discPayday[i] = payday[i] * discount[i]
		priceMega[i] = megaSale[i] * price[i]
		weekendMean[i] = weekend[i] * mean[i]
	}
	f.Set(ColGrowth, growth)
	f.Set("discount_on_event", discEvent)
	f.Set("discount_on_payday", discPayday)
	f.Set("price_on_mega_sale", priceMega)
	f.Set("weekend_rolling_mean", weekendMean)
}

// ColGrowth is the smoothed growth-rate column: how far the latest value
// sits above or below the trailing mean.
const ColGrowth = "rolling_growth"

// Growth computes the smoothed growth rate from its two primitives.
func Growth(lag1, mean float64) float64 {
	if mean == 0 || math.IsNaN(mean) || math.IsNaN(lag1) {
		return math.NaN()
	}
	return (lag1 - mean) / mean
}

// fillPass closes NaN gaps once, after all columns exist: indicator columns
// are zero-filled, continuous columns forward- then backward-filled, and any
// leftover infinities become 0. The target column is left untouched so future
// rows stay recognizably synthetic. Returns flag/continuous column counts.
func fillPass(f *Frame, target string) (flags, continuous int) {
	for _, name := range f.Columns() {
		if name == target {
			continue
		}
		col, _ := f.Column(name)
		if IsFlagColumn(name) {
			flags++
			for i, v := range col {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					col[i] = 0
				}
			}
			continue
		}
		continuous++
		// forward fill
		last := math.NaN()
		for i, v := range col {
			if math.IsNaN(v) {
				col[i] = last
			} else {
				last = v
			}
		}
		// backward fill
		next := math.NaN()
		for i := len(col) - 1; i >= 0; i-- {
			if math.IsNaN(col[i]) {
				col[i] = next
			} else {
				next = col[i]
			}
		}
		for i, v := range col {
			if math.IsInf(v, 0) || math.IsNaN(v) {
				col[i] = 0
			}
		}
	}
	return flags, continuous
}

// IsFlagColumn classifies indicator-style columns for the fill pass.
func IsFlagColumn(name string) bool {
	return strings.HasPrefix(name, "is_") || strings.Contains(name, "event")
}

// LagName is the canonical name of a lag column.
func LagName(col string, k int) string { return fmt.Sprintf("%s_lag_%d", col, k) }

// RollingMeanName is the canonical name of the trailing-mean column.
func RollingMeanName(col string, w int) string { return fmt.Sprintf("%s_rolling_mean_%d", col, w) }

// RollingStdName is the canonical name of the trailing-std column.
func RollingStdName(col string, w int) string { return fmt.Sprintf("%s_rolling_std_%d", col, w) }

// RollingMedianName is the canonical name of the trailing-median column.
func RollingMedianName(col string, w int) string { return fmt.Sprintf("%s_rolling_median_%d", col, w) }

// shift moves a column k rows forward; the first k rows become NaN.
func shift(src []float64, k int) []float64 {
	out := make([]float64, len(src))
	for i := range out {
		if i < k {
			out[i] = math.NaN()
			continue
		}
		out[i] = src[i-k]
	}
	return out
}

func sortedKeys(m map[string][]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
