package predictor

import (
	"context"
	"fmt"

	"SalesCast/internal/domain/models"
	domsvc "SalesCast/internal/domain/service"
	"SalesCast/pkg/config"
)

// HTTPPredictor binds a model hosted by the external model service. The
// service loads the persisted regressor (XGBoost or LightGBM) per platform
// and exposes a single point-prediction endpoint.
type HTTPPredictor struct {
	base     *HTTPServiceBase
	platform string
	model    string
	features []string
}

// NewHTTPPredictor builds a predictor for one platform/model pair. The
// ordered feature list must match training-time column order: the native
// bindings behind the service are position-sensitive even though this API
// is name-keyed.
func NewHTTPPredictor(cfg *config.Config, platform, model string, features []string) *HTTPPredictor {
	return &HTTPPredictor{
		base:     NewHTTPServiceBase(cfg),
		platform: platform,
		model:    model,
		features: features,
	}
}

// LoadFeatures fetches the model's declared feature list from the service,
// replacing any list supplied at construction.
func (p *HTTPPredictor) LoadFeatures(ctx context.Context) error {
	var resp struct {
		Features []string `json:"features"`
	}
	path := fmt.Sprintf("/models/%s/%s/features", p.platform, p.model)
	if err := p.base.GetJSON(ctx, path, &resp); err != nil {
		return fmt.Errorf("load features: %w", err)
	}
	if len(resp.Features) == 0 {
		return fmt.Errorf("model %s/%s declares no features: %w", p.platform, p.model, models.ErrConfiguration)
	}
	p.features = resp.Features
	return nil
}

func (p *HTTPPredictor) Features() []string { return p.features }

type predictReq struct {
	Platform string    `json:"platform"`
	Model    string    `json:"model"`
	Names    []string  `json:"names"`
	Values   []float64 `json:"values"`
}

type predictResp struct {
	Prediction float64 `json:"prediction"`
}

// Predict projects the vector onto the training-time order and posts it.
func (p *HTTPPredictor) Predict(ctx context.Context, vec models.FeatureVector) (float64, error) {
	values := make([]float64, len(p.features))
	for i, name := range p.features {
		v, ok := vec[name]
		if !ok {
			return 0, fmt.Errorf("feature %q missing from vector: %w", name, models.ErrConfiguration)
		}
		values[i] = v
	}
	var resp predictResp
	err := p.base.PostJSON(ctx, "/predict", predictReq{
		Platform: p.platform,
		Model:    p.model,
		Names:    p.features,
		Values:   values,
	}, &resp)
	if err != nil {
		return 0, fmt.Errorf("predict %s/%s: %w", p.platform, p.model, err)
	}
	return resp.Prediction, nil
}

var _ domsvc.Predictor = (*HTTPPredictor)(nil)
