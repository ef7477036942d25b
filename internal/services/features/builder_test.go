package features

import (
	"errors"
	"math"
	"testing"
	"time"

	"SalesCast/internal/domain/models"
)

func genRows(start time.Time, n int, val func(i int) float64) []models.ObservationRow {
	rows := make([]models.ObservationRow, n)
	for i := range rows {
		rows[i] = models.ObservationRow{
			Date:         start.AddDate(0, 0, i),
			Platform:     "lazada",
			Target:       val(i),
			PaidPrice:    100 + float64(i%5),
			DiscountRate: 0.1,
			Payday:       start.AddDate(0, 0, i).Day() == 15,
		}
	}
	return rows
}

func baseConfig() Config {
	return Config{
		Target:        "revenue",
		LagOffsets:    []int{1, 7},
		RollingWindow: 7,
		ExogLags:      map[string][]int{ColPaidPrice: {1}},
	}
}

func TestBuildLagColumns(t *testing.T) {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := genRows(start, 30, func(i int) float64 { return float64(i + 1) })
	b := NewBuilder(nil, nil)

	f, err := b.Build(rows, baseConfig())
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	lag1, ok := f.Column(LagName("revenue", 1))
	if !ok {
		t.Fatalf("missing lag column")
	}
	for i := 1; i < len(rows); i++ {
		if lag1[i] != rows[i-1].Target {
			t.Fatalf("lag_1 at %d = %v, want %v", i, lag1[i], rows[i-1].Target)
		}
	}
	lag7, _ := f.Column(LagName("revenue", 7))
	for i := 7; i < len(rows); i++ {
		if lag7[i] != rows[i-7].Target {
			t.Fatalf("lag_7 at %d = %v, want %v", i, lag7[i], rows[i-7].Target)
		}
	}
}

func TestRollingExcludesCurrentRow(t *testing.T) {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := genRows(start, 20, func(i int) float64 {
		if i == 10 {
			return 100
		}
		return 1
	})
	cfg := baseConfig()
	cfg.RollingWindow = 3

	f, err := NewBuilder(nil, nil).Build(rows, cfg)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	mean, _ := f.Column(RollingMeanName("revenue", 3))

	// row 10's spike must not leak into its own trailing statistic
	if mean[10] != 1 {
		t.Fatalf("mean at spike row = %v, want 1", mean[10])
	}
	want := (1.0 + 1.0 + 100.0) / 3.0
	if math.Abs(mean[11]-want) > 1e-9 {
		t.Fatalf("mean after spike = %v, want %v", mean[11], want)
	}
}

func TestRollingStdZeroOnConstantSeries(t *testing.T) {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := genRows(start, 20, func(int) float64 { return 42 })
	cfg := baseConfig()
	cfg.RollingWindow = 7

	f, err := NewBuilder(nil, nil).Build(rows, cfg)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	std, ok := f.Column(RollingStdName("revenue", 7))
	if !ok {
		t.Fatalf("missing rolling std column")
	}
	for i := cfg.RollingWindow; i < len(rows); i++ {
		if std[i] != 0 {
			t.Fatalf("std at %d = %v, want 0 for zero-variance series", i, std[i])
		}
	}
}

func TestFillPassClosesGaps(t *testing.T) {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := genRows(start, 15, func(i int) float64 { return float64(i) })

	f, err := NewBuilder(nil, nil).Build(rows, baseConfig())
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	for _, name := range f.Columns() {
		if name == "revenue" {
			continue
		}
		col, _ := f.Column(name)
		for i, v := range col {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Fatalf("column %s row %d not filled: %v", name, i, v)
			}
		}
	}

	flags, _ := f.Column("is_payday")
	for i, v := range flags {
		if v != 0 && v != 1 {
			t.Fatalf("is_payday row %d = %v, want 0 or 1", i, v)
		}
	}
}

func TestDayOfWeekMondayZero(t *testing.T) {
	// 2025-06-02 is a Monday
	start := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	rows := genRows(start, 7, func(i int) float64 { return 1 })

	f, err := NewBuilder(nil, nil).Build(rows, baseConfig())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	dow, _ := f.Column("dayofweek")
	for i := 0; i < 7; i++ {
		if dow[i] != float64(i) {
			t.Fatalf("dayofweek at %d = %v, want %d", i, dow[i], i)
		}
	}
	weekend, _ := f.Column("is_weekend")
	if weekend[4] != 0 || weekend[5] != 1 || weekend[6] != 1 {
		t.Fatalf("is_weekend fri/sat/sun = %v/%v/%v", weekend[4], weekend[5], weekend[6])
	}
}

func TestFourierContinuousAcrossYearBoundary(t *testing.T) {
	start := time.Date(2024, 12, 28, 0, 0, 0, 0, time.UTC)
	rows := genRows(start, 10, func(i int) float64 { return 1 })

	f, err := NewBuilder(nil, nil).Build(rows, baseConfig())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	sin1, _ := f.Column("fourier_sin_1")
	boundary := f.IndexOf(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	if boundary <= 0 {
		t.Fatalf("boundary row not found")
	}
	jump := math.Abs(sin1[boundary] - sin1[boundary-1])
	if jump > 0.1 {
		t.Fatalf("fourier_sin_1 jumps %v across year boundary", jump)
	}
}

func TestBuildDeterministic(t *testing.T) {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := genRows(start, 40, func(i int) float64 { return math.Sin(float64(i)) * 50 })
	b := NewBuilder(nil, nil)

	f1, err := b.Build(rows, baseConfig())
	if err != nil {
		t.Fatalf("first build: %v", err)
	}
	f2, err := b.Build(rows, baseConfig())
	if err != nil {
		t.Fatalf("second build: %v", err)
	}
	for _, name := range f1.Columns() {
		c1, _ := f1.Column(name)
		c2, ok := f2.Column(name)
		if !ok {
			t.Fatalf("column %s missing in second build", name)
		}
		for i := range c1 {
			if c1[i] != c2[i] && !(math.IsNaN(c1[i]) && math.IsNaN(c2[i])) {
				t.Fatalf("column %s row %d differs: %v vs %v", name, i, c1[i], c2[i])
			}
		}
	}
}

func TestBuildConfigValidation(t *testing.T) {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	rows := genRows(start, 10, func(i int) float64 { return 1 })
	b := NewBuilder(nil, nil)

	cases := []struct {
		name string
		cfg  Config
	}{
		{"missing target", Config{RollingWindow: 7}},
		{"zero window", Config{Target: "revenue"}},
		{"negative lag", Config{Target: "revenue", RollingWindow: 7, LagOffsets: []int{-1}}},
		{"zero exog lag", Config{Target: "revenue", RollingWindow: 7, ExogLags: map[string][]int{ColPaidPrice: {0}}}},
	}
	for _, tc := range cases {
		if _, err := b.Build(rows, tc.cfg); !errors.Is(err, models.ErrConfiguration) {
			t.Fatalf("%s: got %v, want configuration error", tc.name, err)
		}
	}

	if _, err := b.Build(nil, baseConfig()); !errors.Is(err, models.ErrData) {
		t.Fatalf("empty series: got %v, want data error", err)
	}
}

func TestIsFlagColumn(t *testing.T) {
	for _, name := range []string{"is_payday", "is_event", "day_before_event", "discount_on_event"} {
		if !IsFlagColumn(name) {
			t.Fatalf("%s should be a flag column", name)
		}
	}
	for _, name := range []string{"avg_paid_price", "revenue_lag_1", "weekend_rolling_mean"} {
		if IsFlagColumn(name) {
			t.Fatalf("%s should not be a flag column", name)
		}
	}
}
