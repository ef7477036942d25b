package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"SalesCast/internal/domain/models"
	drepo "SalesCast/internal/domain/repository"
	svccache "SalesCast/internal/service/cache"
	"SalesCast/internal/services/forecast"
	"SalesCast/internal/services/predictor"
	pkgcache "SalesCast/pkg/cache"
	"SalesCast/pkg/config"
	applogger "SalesCast/pkg/logger"
)

// historyLookbackDays bounds how much history feeds a run. Two years covers
// every lag, rolling window and Fourier span the builders use.
const historyLookbackDays = 730

// ForecastOrchestrator runs forecasts per platform/model pair, caches the
// results, and fans batch runs out over a bounded worker pool with a start
// date aligned across all platforms.
type ForecastOrchestrator struct {
	store      drepo.SalesStore
	pub        drepo.Publisher
	forecaster *forecast.Forecaster
	factory    *predictor.Factory
	cache      *svccache.TTLCache
	shared     svccache.BytesCache // optional cross-instance cache (Redis)
	rows       pkgcache.Service    // history row cache, memory or layered
	metrics    drepo.Metrics
	l          *applogger.Logger
	cfg        *config.Config
}

func NewForecastOrchestrator(
	store drepo.SalesStore,
	pub drepo.Publisher,
	fc *forecast.Forecaster,
	factory *predictor.Factory,
	cache *svccache.TTLCache,
	shared svccache.BytesCache,
	rows pkgcache.Service,
	metrics drepo.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) *ForecastOrchestrator {
	if cache == nil {
		cache = svccache.NewTTLCache()
	}
	if rows == nil {
		rows = pkgcache.NewMemoryCache()
	}
	return &ForecastOrchestrator{
		store:      store,
		pub:        pub,
		forecaster: fc,
		factory:    factory,
		cache:      cache,
		shared:     shared,
		rows:       rows,
		metrics:    metrics,
		l:          l,
		cfg:        cfg,
	}
}

// Run produces one platform/model forecast, serving from cache unless refresh
// is set. Results are persisted and published before being returned.
func (o *ForecastOrchestrator) Run(ctx context.Context, platform, model string, horizon int, refresh bool) (*models.ForecastResult, error) {
	if horizon <= 0 {
		horizon = o.cfg.Forecast.Horizon
	}
	key := fmt.Sprintf("forecast:%s:%s:%d", platform, model, horizon)
	if !refresh {
		if v, ok := o.cache.Get(key); ok {
			if res, ok := v.(*models.ForecastResult); ok {
				return res, nil
			}
		}
		if res := o.sharedGet(key); res != nil {
			o.cache.Set(key, res, o.cfg.ModelService.CacheTTL.Forecast)
			return res, nil
		}
	}

	history, err := o.store.GetLatestNDays(ctx, platform, historyLookbackDays)
	if err != nil {
		return nil, fmt.Errorf("load history for %s: %w", platform, err)
	}
	res, err := o.run(ctx, platform, model, horizon, history, time.Time{})
	if err != nil {
		return nil, err
	}
	o.cacheResult(key, res)
	return res, nil
}

func (o *ForecastOrchestrator) run(ctx context.Context, platform, model string, horizon int, history []models.ObservationRow, start time.Time) (*models.ForecastResult, error) {
	if len(history) == 0 {
		return nil, fmt.Errorf("no history for %s: %w", platform, models.ErrData)
	}

	pol, err := forecast.ResolvePolicy(history)
	if err != nil {
		return nil, err
	}
	pred, err := o.factory.For(ctx, platform, model)
	if err != nil {
		return nil, err
	}

	records, err := o.forecaster.Forecast(ctx, pred, history, forecast.Config{
		Platform:      platform,
		Model:         model,
		Target:        o.cfg.Forecast.Target,
		Horizon:       horizon,
		LagOffsets:    o.cfg.Forecast.LagOffsets,
		RollingWindow: o.cfg.Forecast.RollingWindow,
		ExogLags:      o.cfg.Forecast.ExogLags,
		Start:         start,
	}, pol)
	if err != nil {
		return nil, err
	}

	if err := o.store.StoreForecast(ctx, records); err != nil {
		o.metrics.RecordError("store_forecast")
		return nil, fmt.Errorf("store forecast %s/%s: %w", platform, model, err)
	}
	if o.pub != nil {
		if err := o.pub.PublishForecast(ctx, records); err != nil {
			// persisted already; publication is best-effort
			o.metrics.RecordError("publish_forecast")
			if o.l != nil {
				o.l.Warn("forecast publish failed",
					applogger.String("platform", platform),
					applogger.String("model", model),
					applogger.Error(err),
				)
			}
		}
	}

	return &models.ForecastResult{
		Platform:  platform,
		Model:     model,
		Horizon:   horizon,
		Start:     records[0].Date,
		Records:   records,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// RunAll fans out every configured platform/model pair. Each platform's
// history is trimmed to the latest date all platforms share, so every run
// starts its horizon on the same day.
func (o *ForecastOrchestrator) RunAll(ctx context.Context, horizon int) ([]*models.ForecastResult, error) {
	if horizon <= 0 {
		horizon = o.cfg.Forecast.Horizon
	}
	platforms := o.cfg.SellerStream.Platforms
	histories := make(map[string][]models.ObservationRow, len(platforms))
	var common time.Time
	for _, p := range platforms {
		h, err := o.store.GetLatestNDays(ctx, p, historyLookbackDays)
		if err != nil {
			return nil, fmt.Errorf("load history for %s: %w", p, err)
		}
		if len(h) == 0 {
			return nil, fmt.Errorf("no history for %s: %w", p, models.ErrData)
		}
		last := h[len(h)-1].Date
		if common.IsZero() || last.Before(common) {
			common = last
		}
		histories[p] = h
	}
	for p, h := range histories {
		for len(h) > 0 && h[len(h)-1].Date.After(common) {
			h = h[:len(h)-1]
		}
		if len(h) == 0 {
			return nil, fmt.Errorf("history for %s ends before aligned date %s: %w",
				p, common.Format("2006-01-02"), models.ErrData)
		}
		histories[p] = h
	}
	start := common.AddDate(0, 0, 1)

	type task struct{ platform, model string }
	tasks := make([]task, 0, len(platforms)*len(o.cfg.Forecast.Models))
	for _, p := range platforms {
		for _, m := range o.cfg.Forecast.Models {
			tasks = append(tasks, task{p, m})
		}
	}

	workers := o.cfg.Forecast.Workers
	if workers <= 0 {
		workers = 4
	}
	if workers > len(tasks) {
		workers = len(tasks)
	}

	taskCh := make(chan task)
	results := make([]*models.ForecastResult, 0, len(tasks))
	var mu sync.Mutex
	var firstErr error
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range taskCh {
				res, err := o.run(ctx, t.platform, t.model, horizon, histories[t.platform], start)
				mu.Lock()
				if err != nil {
					if firstErr == nil {
						firstErr = fmt.Errorf("%s/%s: %w", t.platform, t.model, err)
					}
				} else {
					results = append(results, res)
					o.cacheResult(fmt.Sprintf("forecast:%s:%s:%d", t.platform, t.model, horizon), res)
				}
				mu.Unlock()
			}
		}()
	}
	for _, t := range tasks {
		taskCh <- t
	}
	close(taskCh)
	wg.Wait()

	if firstErr != nil {
		return results, firstErr
	}
	if o.l != nil {
		o.l.Info("batch forecast complete",
			applogger.Int("runs", len(results)),
			applogger.String("start", start.Format("2006-01-02")),
			applogger.Int("horizon", horizon),
		)
	}
	return results, nil
}

func (o *ForecastOrchestrator) cacheResult(key string, res *models.ForecastResult) {
	ttl := o.cfg.ModelService.CacheTTL.Forecast
	o.cache.Set(key, res, ttl)
	if o.shared != nil {
		if b, err := json.Marshal(res); err == nil {
			_ = o.shared.SetBytes(key, b, ttl)
		}
	}
}

func (o *ForecastOrchestrator) sharedGet(key string) *models.ForecastResult {
	if o.shared == nil {
		return nil
	}
	b, ok, err := o.shared.GetBytes(key)
	if err != nil || !ok {
		return nil
	}
	var res models.ForecastResult
	if err := json.Unmarshal(b, &res); err != nil {
		return nil
	}
	return &res
}

// Policy resolves the exogenous assumption policy for a platform, cached.
func (o *ForecastOrchestrator) Policy(ctx context.Context, platform string) (forecast.Policy, error) {
	key := "policy:" + platform
	if v, ok := o.cache.Get(key); ok {
		if pol, ok := v.(forecast.Policy); ok {
			return pol, nil
		}
	}
	history, err := o.store.GetLatestNDays(ctx, platform, historyLookbackDays)
	if err != nil {
		return forecast.Policy{}, fmt.Errorf("load history for %s: %w", platform, err)
	}
	pol, err := forecast.ResolvePolicy(history)
	if err != nil {
		return forecast.Policy{}, err
	}
	o.cache.Set(key, pol, o.cfg.ModelService.CacheTTL.Policy)
	return pol, nil
}

// History returns the latest n aggregate rows for a platform. Rows are
// served from the row cache for a minute to keep dashboard polling off
// ClickHouse.
func (o *ForecastOrchestrator) History(ctx context.Context, platform string, n int) ([]models.ObservationRow, error) {
	if n <= 0 {
		n = o.cfg.Forecast.RollingWindow
	}
	key := fmt.Sprintf("history:%s:%d", platform, n)
	var cached []models.ObservationRow
	if err := o.rows.Get(ctx, key, &cached); err == nil {
		return cached, nil
	}
	rows, err := o.store.GetLatestNDays(ctx, platform, n)
	if err != nil {
		return nil, err
	}
	_ = o.rows.Set(ctx, key, rows, time.Minute)
	return rows, nil
}
