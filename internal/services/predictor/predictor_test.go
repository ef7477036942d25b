package predictor

import (
	"context"
	"errors"
	"testing"

	"SalesCast/internal/domain/models"
	"SalesCast/pkg/config"
)

func TestNaiveEchoesLag(t *testing.T) {
	p := NewPersistence("revenue")
	if got := p.Features(); len(got) != 1 || got[0] != "revenue_lag_1" {
		t.Fatalf("unexpected schema %v", got)
	}
	v, err := p.Predict(context.Background(), models.FeatureVector{"revenue_lag_1": 4.2})
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if v != 4.2 {
		t.Fatalf("expected 4.2, got %v", v)
	}
}

func TestSeasonalNaiveUsesWeeklyLag(t *testing.T) {
	p := NewSeasonalNaive("revenue")
	if got := p.Features()[0]; got != "revenue_lag_7" {
		t.Fatalf("unexpected feature %q", got)
	}
}

func TestNaiveMissingFeature(t *testing.T) {
	p := NewPersistence("revenue")
	_, err := p.Predict(context.Background(), models.FeatureVector{"other": 1})
	if !errors.Is(err, models.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestFactorySelectsBaselines(t *testing.T) {
	cfg := &config.Config{}
	cfg.Forecast.Target = "revenue"
	f := NewFactory(cfg)

	p, err := f.For(context.Background(), "lazada", "naive")
	if err != nil {
		t.Fatalf("factory naive: %v", err)
	}
	if p.Features()[0] != "revenue_lag_1" {
		t.Fatalf("naive bound to %q", p.Features()[0])
	}

	p, err = f.For(context.Background(), "lazada", "snaive")
	if err != nil {
		t.Fatalf("factory snaive: %v", err)
	}
	if p.Features()[0] != "revenue_lag_7" {
		t.Fatalf("snaive bound to %q", p.Features()[0])
	}
}

func TestFactoryUsesConfiguredSchema(t *testing.T) {
	cfg := &config.Config{}
	cfg.Forecast.Target = "revenue"
	cfg.ModelService.URL = "http://model-service"
	cfg.Forecast.Features = map[string][]string{
		"xgboost": {"revenue_lag_1", "is_payday"},
	}
	f := NewFactory(cfg)

	p, err := f.For(context.Background(), "shopee", "xgboost")
	if err != nil {
		t.Fatalf("factory xgboost: %v", err)
	}
	got := p.Features()
	if len(got) != 2 || got[0] != "revenue_lag_1" || got[1] != "is_payday" {
		t.Fatalf("unexpected schema %v", got)
	}
}
