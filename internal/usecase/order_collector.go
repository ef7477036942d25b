package usecase

import (
	"context"
	"time"

	drepo "SalesCast/internal/domain/repository"
	mid "SalesCast/internal/middleware"
)

// OrderCollector collects order events from the seller stream and processes them.
type OrderCollector struct {
	stream  drepo.OrderStream
	proc    *OrderProcessor
	metrics drepo.Metrics
	pipe    *mid.RealtimePipeline
}

// NewOrderCollector creates a new OrderCollector instance.
func NewOrderCollector(stream drepo.OrderStream, proc *OrderProcessor, metrics drepo.Metrics, pipe *mid.RealtimePipeline) *OrderCollector {
	return &OrderCollector{stream: stream, proc: proc, metrics: metrics, pipe: pipe}
}

// IsConnected returns true if the order stream is connected.
func (c *OrderCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

func (c *OrderCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	if c.pipe != nil {
		c.pipe.Start(ctx)
	}
	evCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, evCh, errCh)
	go c.flushDaily(ctx)
	return nil
}

// flushDaily seals open aggregates shortly after each UTC midnight, so quiet
// platforms still emit their day without waiting for the next event.
func (c *OrderCollector) flushDaily(ctx context.Context) {
	for {
		now := time.Now().UTC()
		next := now.Truncate(24 * time.Hour).Add(24*time.Hour + time.Minute)
		select {
		case <-ctx.Done():
			return
		case <-time.After(next.Sub(now)):
			today := time.Now().UTC().Truncate(24 * time.Hour)
			_ = c.proc.FlushBefore(ctx, today)
		}
	}
}

func (c *OrderCollector) consume(ctx context.Context, evCh <-chan *drepo.OrderEvent, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errCh:
			if err != nil {
				c.metrics.RecordError("stream")
				_ = c.stream.Reconnect(ctx)
			}
		case ev := <-evCh:
			if ev == nil {
				continue
			}
			if c.pipe != nil {
				_ = c.pipe.Process(ctx, ev)
			} else {
				_ = c.proc.Process(ctx, ev)
			}
		}
	}
}

func (c *OrderCollector) Stop() error { return c.stream.Close() }

// Processor returns the underlying OrderProcessor for lifecycle management.
func (c *OrderCollector) Processor() *OrderProcessor { return c.proc }

// Shutdown seals open aggregates, stops the pipeline and closes the stream.
func (c *OrderCollector) Shutdown(ctx context.Context) error {
	if c.pipe != nil {
		c.pipe.Stop()
	}
	_ = c.proc.Flush(ctx)
	return c.stream.Close()
}
