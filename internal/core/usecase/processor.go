package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/smarteducator/aidetector/internal/core/domain"
	"github.com/smarteducator/aidetector/internal/core/ports"
)

var ErrProcessorRunning = errors.New("batch processor already running")

type ProcessorConfig struct {
	// PollInterval is the idle wait after a cycle that found no queued batch.
	PollInterval    time.Duration
	// PollMaxInterval caps the idle wait when PollBackoff grows it.
	PollMaxInterval time.Duration
	PollBackoff     float64

	// DocumentRate paces document processing in documents per second; 0 disables pacing.
	DocumentRate    float64
	// DocumentTimeout bounds a single document; 0 means no deadline.
	DocumentTimeout time.Duration
}

func DefaultProcessorConfig() ProcessorConfig {
	return ProcessorConfig{
		PollInterval:    10 * time.Second,
		PollMaxInterval: 10 * time.Second,
		PollBackoff:     1.0,
	}
}

func (c ProcessorConfig) normalize() ProcessorConfig {
	out := c
	def := DefaultProcessorConfig()

	if out.PollInterval <= 0 {
		out.PollInterval = def.PollInterval
	}
	if out.PollMaxInterval < out.PollInterval {
		out.PollMaxInterval = out.PollInterval
	}
	if out.PollBackoff < 1.0 {
		out.PollBackoff = def.PollBackoff
	}
	if out.DocumentRate < 0 {
		out.DocumentRate = 0
	}
	if out.DocumentTimeout < 0 {
		out.DocumentTimeout = 0
	}
	return out
}

type ProcessorOption func(*BatchProcessorUseCase)

func WithLogger(logger *slog.Logger) ProcessorOption {
	return func(p *BatchProcessorUseCase) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func WithMetrics(metrics ports.ProcessorMetrics) ProcessorOption {
	return func(p *BatchProcessorUseCase) {
		if metrics != nil {
			p.metrics = metrics
		}
	}
}

func WithEventPublisher(events ports.BatchEventPublisher) ProcessorOption {
	return func(p *BatchProcessorUseCase) {
		p.events = events
	}
}

func WithClock(now func() time.Time) ProcessorOption {
	return func(p *BatchProcessorUseCase) {
		if now != nil {
			p.now = now
		}
	}
}

// BatchProcessorUseCase is the single-goroutine claim loop. All per-batch state
// lives on the call stack of the goroutine running Start.
type BatchProcessorUseCase struct {
	store     ports.RecordStore
	blobs     ports.BlobStore
	extractor ports.TextExtractor
	events    ports.BatchEventPublisher
	metrics   ports.ProcessorMetrics
	logger    *slog.Logger

	cfg     ProcessorConfig
	limiter *rate.Limiter
	now     func() time.Time

	// active is held by the goroutine inside Start for its whole life;
	// running only carries the stop request.
	active  atomic.Bool
	running atomic.Bool
}

func NewBatchProcessorUseCase(
	store ports.RecordStore,
	blobs ports.BlobStore,
	extractor ports.TextExtractor,
	cfg ProcessorConfig,
	opts ...ProcessorOption,
) *BatchProcessorUseCase {
	p := &BatchProcessorUseCase{
		store:     store,
		blobs:     blobs,
		extractor: extractor,
		metrics:   noopMetrics{},
		logger:    slog.Default(),
		cfg:       cfg.normalize(),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.cfg.DocumentRate > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(p.cfg.DocumentRate), 1)
	}
	return p
}

// Start runs the claim loop until Stop is called or ctx is cancelled. A panic
// inside a cycle ends the loop and is returned so the host can exit. Start is
// refused until a previous loop has fully exited, even after Stop.
func (p *BatchProcessorUseCase) Start(ctx context.Context) (err error) {
	if !p.active.CompareAndSwap(false, true) {
		return ErrProcessorRunning
	}
	defer p.active.Store(false)
	p.running.Store(true)
	defer p.running.Store(false)
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("batch_processor_crashed", "panic", r)
			err = fmt.Errorf("batch processor crashed: %v", r)
		}
	}()

	p.logger.Info("batch_processor_started",
		"poll_interval", p.cfg.PollInterval.String(),
		"poll_max_interval", p.cfg.PollMaxInterval.String(),
	)

	idleCycles := 0
	for p.running.Load() && ctx.Err() == nil {
		if p.ProcessNext(ctx) {
			idleCycles = 0
			continue
		}
		if !sleepContext(ctx, p.idleWait(idleCycles)) {
			break
		}
		idleCycles++
	}

	p.logger.Info("batch_processor_stopped")
	return nil
}

// Stop asks the loop to exit at the top of its next iteration. An in-flight
// batch is finished first.
func (p *BatchProcessorUseCase) Stop() {
	p.running.Store(false)
}

func (p *BatchProcessorUseCase) Running() bool {
	return p.running.Load()
}

// ProcessNext claims at most one batch and processes it to a terminal status.
// It reports whether a batch was claimed.
func (p *BatchProcessorUseCase) ProcessNext(ctx context.Context) bool {
	batch := p.claimNextBatch(ctx)
	if batch == nil {
		return false
	}
	p.processBatch(context.WithoutCancel(ctx), batch)
	return true
}

func (p *BatchProcessorUseCase) claimNextBatch(ctx context.Context) *domain.Batch {
	batch, err := p.store.ClaimNextBatch(ctx)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Error("batch_claim_failed", "error", err)
		}
		p.metrics.ClaimFailed()
		return nil
	}
	if batch == nil {
		return nil
	}

	p.metrics.BatchClaimed(p.now().Sub(batch.CreatedAt))
	p.logger.Info("batch_claimed",
		"batch_id", batch.ID,
		"teacher_id", batch.TeacherID,
		"priority", batch.Priority,
		"total_files", batch.TotalFiles,
	)
	return batch
}

func (p *BatchProcessorUseCase) idleWait(idleCycles int) time.Duration {
	wait := p.cfg.PollInterval
	for i := 0; i < idleCycles && wait < p.cfg.PollMaxInterval; i++ {
		wait = time.Duration(float64(wait) * p.cfg.PollBackoff)
	}
	if wait > p.cfg.PollMaxInterval {
		wait = p.cfg.PollMaxInterval
	}
	return wait
}

func sleepContext(ctx context.Context, wait time.Duration) bool {
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

type noopMetrics struct{}

func (noopMetrics) BatchClaimed(time.Duration) {}

func (noopMetrics) BatchFinished(domain.BatchStatus, time.Duration) {}

func (noopMetrics) DocumentStarted() {}

func (noopMetrics) DocumentFinished(time.Duration, bool) {}

func (noopMetrics) ClaimFailed() {}
