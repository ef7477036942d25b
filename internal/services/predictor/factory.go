package predictor

import (
	"context"

	domsvc "SalesCast/internal/domain/service"
	"SalesCast/pkg/config"
)

// Factory binds model names to predictor implementations. The naive baselines
// run locally; everything else goes through the model service.
type Factory struct {
	cfg *config.Config
}

func NewFactory(cfg *config.Config) *Factory { return &Factory{cfg: cfg} }

// For returns a predictor for the platform/model pair. HTTP-backed models
// take their feature schema from config when declared, otherwise from the
// service itself.
func (f *Factory) For(ctx context.Context, platform, model string) (domsvc.Predictor, error) {
	target := f.cfg.Forecast.Target
	switch model {
	case "naive":
		return NewPersistence(target), nil
	case "snaive":
		return NewSeasonalNaive(target), nil
	}

	p := NewHTTPPredictor(f.cfg, platform, model, f.cfg.Forecast.Features[model])
	if len(p.Features()) == 0 {
		if err := p.LoadFeatures(ctx); err != nil {
			return nil, err
		}
	}
	return p, nil
}
