package predictor

import (
	"context"
	"fmt"
	"time"

	svcmetrics "SalesCast/internal/service/metrics"
	"SalesCast/pkg/config"
	xhttp "SalesCast/pkg/http"
)

// HTTPServiceBase provides a DRY foundation for model-service HTTP clients.
// It centralizes client construction and JSON POST request handling.
type HTTPServiceBase struct {
	baseURL string
	client  *xhttp.Client
}

// NewHTTPServiceBase builds an HTTP client with timeout and base URL from config.
func NewHTTPServiceBase(cfg *config.Config) *HTTPServiceBase {
	svcmetrics.Register()
	timeout := cfg.ModelService.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &HTTPServiceBase{
		baseURL: cfg.ModelService.URL,
		client:  xhttp.NewClient(xhttp.WithTimeout(timeout)),
	}
}

// PostJSON posts the given payload to `path` under baseURL and decodes JSON into dest.
func (b *HTTPServiceBase) PostJSON(ctx context.Context, path string, payload interface{}, dest interface{}) error {
	if b.client == nil || b.baseURL == "" {
		return fmt.Errorf("model service http client not initialized")
	}
	start := time.Now()
	err := b.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    b.baseURL + path,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
		Body: payload,
	}, dest)
	svcmetrics.ModelServiceLatency.WithLabelValues(path).Observe(time.Since(start).Seconds())
	if err != nil {
		svcmetrics.ModelServiceErrors.WithLabelValues(path).Inc()
		return fmt.Errorf("post %s: %w", path, err)
	}
	return nil
}

// GetJSON fetches `path` under baseURL and decodes JSON into dest.
func (b *HTTPServiceBase) GetJSON(ctx context.Context, path string, dest interface{}) error {
	if b.client == nil || b.baseURL == "" {
		return fmt.Errorf("model service http client not initialized")
	}
	start := time.Now()
	err := b.client.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    b.baseURL + path,
	}, dest)
	svcmetrics.ModelServiceLatency.WithLabelValues(path).Observe(time.Since(start).Seconds())
	if err != nil {
		svcmetrics.ModelServiceErrors.WithLabelValues(path).Inc()
		return fmt.Errorf("get %s: %w", path, err)
	}
	return nil
}
