package forecast

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"SalesCast/internal/domain/models"
	domrepo "SalesCast/internal/domain/repository"
	domsvc "SalesCast/internal/domain/service"
	"SalesCast/internal/services/calendar"
	"SalesCast/internal/services/features"
	applogger "SalesCast/pkg/logger"

	"gonum.org/v1/gonum/stat"
)

// Config is the per-run configuration of a recursive forecast.
type Config struct {
	Platform      string
	Model         string
	Target        string
	Horizon       int
	LagOffsets    []int
	RollingWindow int
	ExogLags      map[string][]int

	// Start is the aligned first future date shared by all runs of a batch.
	// Zero means the day after the last history row.
	Start time.Time
}

// Forecaster drives the recursive multi-step loop: assemble the feature
// vector for a step, predict, clip, record, advance the rolling state.
// A single run is strictly sequential; independent runs share nothing and
// may execute concurrently.
type Forecaster struct {
	builder *features.Builder
	oracle  *calendar.Oracle
	metrics domrepo.Metrics
	l       *applogger.Logger
}

func New(builder *features.Builder, oracle *calendar.Oracle, metrics domrepo.Metrics, l *applogger.Logger) *Forecaster {
	if oracle == nil {
		oracle = calendar.New()
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &Forecaster{builder: builder, oracle: oracle, metrics: metrics, l: l}
}

// nopMetrics keeps the forecaster usable without a recorder wired in.
type nopMetrics struct{}

func (nopMetrics) RecordForecastStep(string, string)         {}
func (nopMetrics) RecordClip(string, string)                 {}
func (nopMetrics) RecordError(string)                        {}
func (nopMetrics) RecordLastForecast(string, string, float64) {}
func (nopMetrics) RecordLatency(string, float64)             {}
func (nopMetrics) RecordMessageSent(string, string)          {}

// Forecast projects the series `cfg.Horizon` days past the end of history,
// feeding each step's clipped prediction back in as history for the next.
// Validation happens before any state is built; a predictor failure aborts
// the whole run, since step t+1 is causally dependent on step t.
func (f *Forecaster) Forecast(ctx context.Context, pred domsvc.Predictor, history []models.ObservationRow, cfg Config, pol Policy) ([]models.ForecastRecord, error) {
	start := time.Now()
	if err := f.validate(pred, history, cfg); err != nil {
		return nil, err
	}

	lastReal := history[len(history)-1].Date
	futureFlags := f.oracle.FutureFlags(lastReal, cfg.Horizon)

	// One builder pass over history plus placeholders keeps future calendar
	// and Fourier columns consistent with how the predictor was trained.
	full := make([]models.ObservationRow, 0, len(history)+cfg.Horizon)
	full = append(full, history...)
	for _, fl := range futureFlags {
		full = append(full, models.ObservationRow{
			Date:         fl.Date,
			Platform:     cfg.Platform,
			Target:       math.NaN(),
			PaidPrice:    pol.Price(fl.Event()),
			DiscountRate: pol.Discount(fl.Event()),
			Payday:       fl.Payday,
			MegaSale:     fl.MegaSale,
		})
	}

	frame, err := f.builder.Build(full, features.Config{
		Target:        cfg.Target,
		LagOffsets:    cfg.LagOffsets,
		RollingWindow: cfg.RollingWindow,
		ExogLags:      cfg.ExogLags,
	})
	if err != nil {
		return nil, err
	}

	schema := pred.Features()
	lastIdx := len(history) - 1
	// Projecting the last real row validates the whole schema up front, so
	// feature-shape mismatches surface here and not mid-loop.
	if _, err := frame.Row(lastIdx, schema); err != nil {
		return nil, err
	}
	inSchema := make(map[string]bool, len(schema))
	for _, name := range schema {
		inSchema[name] = true
	}

	maxHist := maxHistTarget(history)

	capacity := cfg.RollingWindow
	for _, k := range cfg.LagOffsets {
		if k > capacity {
			capacity = k
		}
	}
	seed := make([]float64, 0, len(history))
	for _, r := range history {
		if !math.IsNaN(r.Target) {
			seed = append(seed, r.Target)
		}
	}
	targetQ := newHistoryQueue(seed, capacity)

	exogQ := make(map[string]*historyQueue, len(cfg.ExogLags))
	for _, col := range sortedExogCols(cfg.ExogLags) {
		maxLag := 1
		for _, k := range cfg.ExogLags[col] {
			if k > maxLag {
				maxLag = k
			}
		}
		src, ok := frame.Column(col)
		if !ok {
			continue
		}
		exogQ[col] = newHistoryQueue(src[:len(history)], maxLag)
	}

	records := make([]models.ForecastRecord, 0, cfg.Horizon)
	clips := 0

	for step, fl := range futureFlags {
		vec, err := frame.Row(lastIdx+1+step, schema)
		if err != nil {
			return nil, err
		}

		event := fl.Event()
		price := pol.Price(event)
		discount := pol.Discount(event)
		f.refreshVector(vec, inSchema, cfg, targetQ, exogQ, fl, price, discount)

		raw, err := pred.Predict(ctx, vec)
		if err != nil {
			f.metrics.RecordError("predict")
			return nil, fmt.Errorf("predict %s/%s at %s: %v: %w",
				cfg.Platform, cfg.Model, fl.Date.Format("2006-01-02"), err, models.ErrPrediction)
		}

		// One-sided clip against the historical maximum: an unclipped high
		// prediction becomes the next step's lag input and compounds into an
		// exponential blow-up in log space.
		safe := raw
		if raw > maxHist {
			safe = maxHist
			clips++
			f.metrics.RecordClip(cfg.Platform, cfg.Model)
			if f.l != nil {
				f.l.Debug("prediction clipped",
					applogger.String("platform", cfg.Platform),
					applogger.String("model", cfg.Model),
					applogger.String("date", fl.Date.Format("2006-01-02")),
					applogger.Any("raw", raw),
					applogger.Any("max_hist", maxHist),
				)
			}
		}

		records = append(records, models.ForecastRecord{
			Date:     fl.Date,
			Platform: cfg.Platform,
			Model:    cfg.Model,
			Value:    safe,
		})
		f.metrics.RecordForecastStep(cfg.Platform, cfg.Model)

		// Advance state: the clipped value enters the target queue; exogenous
		// queues take the value actually assumed for this date, since prices
		// and discounts are assumed rather than forecast.
		targetQ.Push(safe)
		if q, ok := exogQ[features.ColPaidPrice]; ok {
			q.Push(price)
		}
		if q, ok := exogQ[features.ColDiscountRate]; ok {
			q.Push(discount)
		}
	}

	if len(records) > 0 {
		f.metrics.RecordLastForecast(cfg.Platform, cfg.Model, records[len(records)-1].Value)
	}
	f.metrics.RecordLatency("forecast_run", time.Since(start).Seconds())
	if f.l != nil {
		f.l.Info("forecast run complete",
			applogger.String("platform", cfg.Platform),
			applogger.String("model", cfg.Model),
			applogger.Int("horizon", cfg.Horizon),
			applogger.Int("clips", clips),
		)
	}
	return records, nil
}

// refreshVector rewrites every queue-derived and policy-derived feature for
// the next prediction. All derived interaction terms are rebuilt from the
// updated primitives, never left stale from initialization.
func (f *Forecaster) refreshVector(vec models.FeatureVector, inSchema map[string]bool, cfg Config, targetQ *historyQueue, exogQ map[string]*historyQueue, fl calendar.DayFlags, price, discount float64) {
	set := func(name string, v float64) {
		if inSchema[name] {
			vec[name] = v
		}
	}

	set(features.ColPaidPrice, price)
	set(features.ColDiscountRate, discount)

	for _, k := range cfg.LagOffsets {
		set(features.LagName(cfg.Target, k), targetQ.Lag(k))
	}
	for col, q := range exogQ {
		for _, k := range cfg.ExogLags[col] {
			set(features.LagName(col, k), q.Lag(k))
		}
	}

	w := cfg.RollingWindow
	window := append([]float64(nil), targetQ.Tail(w)...)
	mean := stat.Mean(window, nil)
	set(features.RollingMeanName(cfg.Target, w), mean)
	if len(window) > 1 {
		set(features.RollingStdName(cfg.Target, w), stat.StdDev(window, nil))
	}
	sort.Float64s(window)
	set(features.RollingMedianName(cfg.Target, w), stat.Quantile(0.5, stat.LinInterp, window, nil))

	var ev, payday, mega, weekend float64
	if fl.Event() {
		ev = 1
	}
	if fl.Payday {
		payday = 1
	}
	if fl.MegaSale {
		mega = 1
	}
	if fl.Weekend {
		weekend = 1
	}
	growth := features.Growth(targetQ.Lag(1), mean)
	if math.IsNaN(growth) {
		growth = 0
	}
	set(features.ColGrowth, growth)
	set("discount_on_event", ev*discount)
	set("discount_on_payday", payday*discount)
	set("price_on_mega_sale", mega*price)
	set("weekend_rolling_mean", weekend*mean)
}

func (f *Forecaster) validate(pred domsvc.Predictor, history []models.ObservationRow, cfg Config) error {
	if pred == nil {
		return fmt.Errorf("predictor required: %w", models.ErrConfiguration)
	}
	if cfg.Target == "" {
		return fmt.Errorf("target column required: %w", models.ErrConfiguration)
	}
	if cfg.Horizon <= 0 {
		return fmt.Errorf("horizon %d must be positive: %w", cfg.Horizon, models.ErrConfiguration)
	}
	if cfg.RollingWindow <= 0 {
		return fmt.Errorf("rolling window %d must be positive: %w", cfg.RollingWindow, models.ErrConfiguration)
	}
	if len(history) == 0 {
		return fmt.Errorf("empty history: %w", models.ErrData)
	}
	for i := 1; i < len(history); i++ {
		// Calendar-day step, not a fixed duration; DST days are 23 or 25 hours.
		if !history[i].Date.Equal(history[i-1].Date.AddDate(0, 0, 1)) {
			return fmt.Errorf("history not daily-contiguous at %s: %w",
				history[i].Date.Format("2006-01-02"), models.ErrData)
		}
	}
	hasReal := false
	for _, r := range history {
		if !math.IsNaN(r.Target) {
			hasReal = true
			break
		}
	}
	if !hasReal {
		return fmt.Errorf("all-null target history: %w", models.ErrData)
	}
	if !cfg.Start.IsZero() {
		want := history[len(history)-1].Date.AddDate(0, 0, 1)
		if !cfg.Start.Equal(want) {
			return fmt.Errorf("history for %s ends at %s but aligned start is %s: %w",
				cfg.Platform, history[len(history)-1].Date.Format("2006-01-02"),
				cfg.Start.Format("2006-01-02"), models.ErrData)
		}
	}
	return nil
}

func maxHistTarget(history []models.ObservationRow) float64 {
	max := math.Inf(-1)
	for _, r := range history {
		if !math.IsNaN(r.Target) && r.Target > max {
			max = r.Target
		}
	}
	return max
}

func sortedExogCols(m map[string][]int) []string {
	cols := make([]string, 0, len(m))
	for c := range m {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}
