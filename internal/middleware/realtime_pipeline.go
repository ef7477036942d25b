package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	domrepo "SalesCast/internal/domain/repository"
)

// Proc is the minimal processor interface the pipeline needs.
type Proc interface {
	Process(ctx context.Context, ev *domrepo.OrderEvent) error
}

// RealtimePipeline is a middleware between the order WebSocket and the backend.
// It validates, filters/throttles, optionally transforms, and buffers when downstream is unavailable.
type RealtimePipeline struct {
	proc     Proc
	metrics  domrepo.Metrics
	maxRPS   int
	bufSize  int
	bufCh    chan *domrepo.OrderEvent
	stopCh   chan struct{}
	started  bool
	mu       sync.Mutex
	lastSeen map[string]time.Time // per-platform last accepted time
	// simple format transform hook (optional)
	transform func(*domrepo.OrderEvent) *domrepo.OrderEvent
	// metrics
	bufDepthGauge func(int)
	throttleWarn  func(string)
}

type PipelineOption func(*RealtimePipeline)

// WithMaxRPS sets the max order events per second per platform.
func WithMaxRPS(n int) PipelineOption {
	return func(p *RealtimePipeline) {
		if n > 0 {
			p.maxRPS = n
		}
	}
}

// WithBufferSize sets the temporary buffer size when downstream is unavailable.
func WithBufferSize(n int) PipelineOption {
	return func(p *RealtimePipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// NewRealtimePipeline creates a new pipeline.
func NewRealtimePipeline(proc Proc, metrics domrepo.Metrics, opts ...PipelineOption) *RealtimePipeline {
	p := &RealtimePipeline{
		proc:     proc,
		metrics:  metrics,
		maxRPS:   20,   // default throttle per platform
		bufSize:  1000, // default buffer
		bufCh:    make(chan *domrepo.OrderEvent, 1000),
		stopCh:   make(chan struct{}),
		lastSeen: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufSize != cap(p.bufCh) {
		p.bufCh = make(chan *domrepo.OrderEvent, p.bufSize)
	}
	// metrics hooks using domain metrics if available
	p.bufDepthGauge = func(n int) { p.metrics.RecordLatency("pipeline_buffer_depth", float64(n)) }
	p.throttleWarn = func(platform string) { p.metrics.RecordError("pipeline_throttle_" + platform) }
	return p
}

// Start launches background flushing of buffered order events.
func (p *RealtimePipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				return
			case ev := <-p.bufCh:
				if ev == nil {
					continue
				}
				if err := p.proc.Process(ctx, ev); err != nil {
					// exponential backoff with cap
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.metrics.RecordError("pipeline_flush")
					time.Sleep(backoff)
					// requeue if space; drop otherwise
					select {
					case p.bufCh <- ev:
					default:
						p.metrics.RecordError("pipeline_buffer_drop")
					}
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop stops the background flushing.
func (p *RealtimePipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
}

// Process validates, throttles, and forwards the event downstream, buffering on errors.
func (p *RealtimePipeline) Process(ctx context.Context, ev *domrepo.OrderEvent) error {
	start := time.Now()
	if err := validateOrder(ev); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	if p.transform != nil {
		ev = p.transform(ev)
		if err := validateOrder(ev); err != nil {
			p.metrics.RecordError("pipeline_transform_invalid")
			return err
		}
	}
	if !p.allow(ev.Platform, start) {
		// throttled; record and drop silently
		p.metrics.RecordError("pipeline_throttle")
		if p.throttleWarn != nil {
			p.throttleWarn(ev.Platform)
		}
		return nil
	}

	if err := p.proc.Process(ctx, ev); err != nil {
		p.metrics.RecordError("pipeline_process")
		// buffer non-blocking
		select {
		case p.bufCh <- ev:
			if p.bufDepthGauge != nil {
				p.bufDepthGauge(len(p.bufCh))
			}
		default:
			p.metrics.RecordError("pipeline_buffer_full")
		}
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	p.metrics.RecordLatency("pipeline_process", time.Since(start).Seconds())
	return nil
}

// WithTransform sets a transformation hook to modify order event format.
func WithTransform(fn func(*domrepo.OrderEvent) *domrepo.OrderEvent) PipelineOption {
	return func(p *RealtimePipeline) { p.transform = fn }
}

func validateOrder(ev *domrepo.OrderEvent) error {
	if ev == nil {
		return fmt.Errorf("order event nil")
	}
	if ev.Platform == "" {
		return fmt.Errorf("platform empty")
	}
	if ev.Timestamp <= 0 {
		return fmt.Errorf("timestamp invalid")
	}
	if ev.Paid < 0 || ev.Original < 0 || ev.Items < 0 {
		return fmt.Errorf("negative paid/original/items")
	}
	return nil
}

func (p *RealtimePipeline) allow(platform string, now time.Time) bool {
	if p.maxRPS <= 0 {
		return true
	}
	// simple throttle: ensure at most maxRPS per second
	last := p.lastSeen[platform]
	if last.IsZero() {
		p.lastSeen[platform] = now
		return true
	}
	// compute elapsed events per second window
	if now.Sub(last) < time.Second/time.Duration(p.maxRPS) {
		return false
	}
	p.lastSeen[platform] = now
	return true
}
