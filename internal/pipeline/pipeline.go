package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/merra2-etl/internal/domain"
	"github.com/couchcryptid/merra2-etl/internal/grid"
	"github.com/couchcryptid/merra2-etl/internal/observability"
	"github.com/couchcryptid/storm-data-shared/retry"
)

// Retry delays after a failed extract or load. The delay doubles per failure
// and resets once a batch arrives.
const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// BatchExtractor reads up to batchSize raw requests from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error)
}

// Transformer turns a raw request into an extracted profile.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawEvent) (domain.Profile, error)
}

// BatchLoader writes multiple profiles to a destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, profiles []domain.Profile) error
}

// Pipeline consumes sample requests, extracts a profile for each and loads
// the results.
type Pipeline struct {
	extractor   BatchExtractor
	transformer Transformer
	loader      BatchLoader
	logger      *slog.Logger
	metrics     *observability.Metrics
	ready       atomic.Bool
	batchSize   int
}

// New creates a Pipeline with the given stages and observability.
func New(e BatchExtractor, t Transformer, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		logger:      logger,
		metrics:     metrics,
		batchSize:   batchSize,
	}
}

// CheckReadiness reports ready once a batch of profiles has been loaded.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not produced any profiles yet")
	}
	return nil
}

// Run processes batches until the context is cancelled.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize)
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	backoff := initialBackoff
	for ctx.Err() == nil {
		if !p.processBatch(ctx, &backoff) {
			break
		}
	}
	p.logger.Info("pipeline stopping", "reason", ctx.Err())
	return nil
}

// processBatch runs one consume, extract and load cycle. It returns false
// when the pipeline should stop.
func (p *Pipeline) processBatch(ctx context.Context, backoff *time.Duration) bool {
	start := time.Now()

	batch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("read request batch failed", "error", err)
		return p.backoffOrStop(ctx, backoff)
	}
	if len(batch) == 0 {
		return ctx.Err() == nil
	}

	p.metrics.RequestsConsumed.Add(float64(len(batch)))
	p.metrics.BatchSize.Observe(float64(len(batch)))
	*backoff = initialBackoff

	profiles, served := p.extractProfiles(ctx, batch)
	if len(profiles) == 0 {
		return true
	}

	if err := p.loader.LoadBatch(ctx, profiles); err != nil {
		p.logger.Error("load profiles failed", "error", err, "batch_size", len(profiles))
		return p.backoffOrStop(ctx, backoff)
	}
	p.metrics.ProfilesProduced.Add(float64(len(profiles)))
	for _, raw := range served {
		p.commitOffset(ctx, raw)
	}

	p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
	p.ready.Store(true)
	return true
}

// extractProfiles samples every request in the batch. Requests that fail are
// counted by reason and committed at once so a bad request cannot block the
// partition. The returned raws are the requests behind the profiles; their
// offsets are committed only after a successful load.
func (p *Pipeline) extractProfiles(ctx context.Context, batch []domain.RawEvent) ([]domain.Profile, []domain.RawEvent) {
	profiles := make([]domain.Profile, 0, len(batch))
	served := make([]domain.RawEvent, 0, len(batch))

	for _, raw := range batch {
		profile, err := p.transformer.Transform(ctx, raw)
		if err != nil {
			p.skipRequest(ctx, raw, err)
			continue
		}
		p.metrics.Samples.WithLabelValues(string(profile.Method)).Inc()
		profiles = append(profiles, profile)
		served = append(served, raw)
	}
	return profiles, served
}

func (p *Pipeline) skipRequest(ctx context.Context, raw domain.RawEvent, err error) {
	reason := errorReason(err)
	p.metrics.ExtractErrors.WithLabelValues(reason).Inc()
	p.logger.Warn("skipping request",
		"error", err,
		"reason", reason,
		"topic", raw.Topic,
		"partition", raw.Partition,
		"offset", raw.Offset,
	)
	p.commitOffset(ctx, raw)
}

// errorReason maps an extraction failure to its extract_errors_total label.
func errorReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, grid.ErrAxisLookup):
		return "axis_lookup"
	case errors.Is(err, domain.ErrMissingData):
		return "missing_data"
	case errors.Is(err, grid.ErrDegenerate), errors.Is(err, grid.ErrSeriesLength):
		return "degenerate"
	default:
		return "source"
	}
}

// backoffOrStop waits out the current delay and doubles it. It returns false
// if the context ends first.
func (p *Pipeline) backoffOrStop(ctx context.Context, backoff *time.Duration) bool {
	if ctx.Err() != nil || !retry.SleepWithContext(ctx, *backoff) {
		return false
	}
	*backoff = retry.NextBackoff(*backoff, maxBackoff)
	return true
}

func (p *Pipeline) commitOffset(ctx context.Context, raw domain.RawEvent) {
	if raw.Commit == nil {
		return
	}
	if err := raw.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
}
