package usecase

import (
	"context"
	"fmt"

	pkgqueue "SalesCast/pkg/queue"
)

// ForecastRunPayload is the queued request for a batch forecast run.
type ForecastRunPayload struct {
	Horizon int `json:"horizon"`
}

// ForecastRunJob triggers a batch forecast run from a queued message, so
// scheduled runs survive restarts and retry through the queue's backoff.
type ForecastRunJob struct {
	orch *ForecastOrchestrator
}

func NewForecastRunJob(orch *ForecastOrchestrator) *ForecastRunJob {
	return &ForecastRunJob{orch: orch}
}

func (j *ForecastRunJob) Name() string { return "batch-forecast" }

func (j *ForecastRunJob) Type() string { return "forecast.run_all" }

func (j *ForecastRunJob) Handle(ctx context.Context, payload interface{}) error {
	req, err := pkgqueue.ParsePayload[ForecastRunPayload](payload)
	if err != nil {
		return fmt.Errorf("forecast run payload: %w", err)
	}
	if _, err := j.orch.RunAll(ctx, req.Horizon); err != nil {
		return fmt.Errorf("batch forecast run: %w", err)
	}
	return nil
}
