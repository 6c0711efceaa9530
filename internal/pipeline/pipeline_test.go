package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/couchcryptid/merra2-etl/internal/domain"
	"github.com/couchcryptid/merra2-etl/internal/grid"
	"github.com/couchcryptid/merra2-etl/internal/observability"
	"github.com/couchcryptid/merra2-etl/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

// mockExtractor hands out its events in one batch, then blocks until the
// context is cancelled to simulate an idle topic.
type mockExtractor struct {
	events []domain.RawEvent
	served atomic.Bool
}

func (m *mockExtractor) ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawEvent, error) {
	if !m.served.Swap(true) && len(m.events) > 0 {
		n := min(batchSize, len(m.events))
		return m.events[:n], nil
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

type mockTransformer struct {
	failKeys map[string]error
}

func (m *mockTransformer) Transform(_ context.Context, raw domain.RawEvent) (domain.Profile, error) {
	if err := m.failKeys[string(raw.Key)]; err != nil {
		return domain.Profile{}, err
	}
	return domain.Profile{ID: string(raw.Key), Method: grid.MethodBilinear}, nil
}

type mockLoader struct {
	mu     sync.Mutex
	loaded []domain.Profile
	err    error
	calls  int
}

func (m *mockLoader) LoadBatch(_ context.Context, profiles []domain.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return m.err
	}
	m.loaded = append(m.loaded, profiles...)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func runFor(t *testing.T, p *pipeline.Pipeline, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	require.NoError(t, p.Run(ctx))
}

// --- tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	raw := makeRawRequest(t, "req-1")

	ext := &mockExtractor{events: []domain.RawEvent{raw}}
	ldr := &mockLoader{}
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), metrics, 10)
	runFor(t, p, 300*time.Millisecond)

	require.Len(t, ldr.loaded, 1)
	assert.Equal(t, "req-1", ldr.loaded[0].ID)
	require.NoError(t, p.CheckReadiness(context.Background()))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RequestsConsumed))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ProfilesProduced))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Samples.WithLabelValues("bilinear")))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.PipelineRunning))
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	ldr := &mockLoader{}
	p := pipeline.New(&mockExtractor{}, &mockTransformer{}, ldr, discardLogger(), observability.NewMetricsForTesting(), 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, p.Run(ctx))
	assert.Empty(t, ldr.loaded)
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_FailedRequestDoesNotBlockOthers(t *testing.T) {
	var committed []string
	var mu sync.Mutex
	commit := func(key string) func(context.Context) error {
		return func(context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			committed = append(committed, key)
			return nil
		}
	}

	bad := makeRawRequest(t, "orkney")
	bad.Commit = commit("orkney")
	good := makeRawRequest(t, "southampton")
	good.Commit = commit("southampton")

	ext := &mockExtractor{events: []domain.RawEvent{bad, good}}
	tfm := &mockTransformer{failKeys: map[string]error{
		"orkney": grid.ErrAxisLookup,
	}}
	ldr := &mockLoader{}
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(ext, tfm, ldr, discardLogger(), metrics, 10)
	runFor(t, p, 300*time.Millisecond)

	require.Len(t, ldr.loaded, 1)
	assert.Equal(t, "southampton", ldr.loaded[0].ID)
	assert.ElementsMatch(t, []string{"orkney", "southampton"}, committed)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ExtractErrors.WithLabelValues("axis_lookup")))
}

func TestPipeline_Run_AllFailedStaysNotReady(t *testing.T) {
	ext := &mockExtractor{events: []domain.RawEvent{makeRawRequest(t, "bad")}}
	tfm := &mockTransformer{failKeys: map[string]error{"bad": domain.ErrInvalidRequest}}
	ldr := &mockLoader{}
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(ext, tfm, ldr, discardLogger(), metrics, 10)
	runFor(t, p, 300*time.Millisecond)

	assert.Empty(t, ldr.loaded)
	assert.Zero(t, ldr.calls)
	assert.Error(t, p.CheckReadiness(context.Background()))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.ExtractErrors.WithLabelValues("invalid_request")))
}

func TestPipeline_Run_LoadErrorSkipsCommit(t *testing.T) {
	commitCalled := false
	raw := makeRawRequest(t, "req-2")
	raw.Commit = func(context.Context) error {
		commitCalled = true
		return nil
	}

	ldr := &mockLoader{err: errors.New("broker down")}
	p := pipeline.New(&mockExtractor{events: []domain.RawEvent{raw}}, &mockTransformer{}, ldr, discardLogger(), observability.NewMetricsForTesting(), 10)
	runFor(t, p, 300*time.Millisecond)

	assert.Equal(t, 1, ldr.calls)
	assert.False(t, commitCalled, "offsets must not be committed when loading fails")
	assert.Error(t, p.CheckReadiness(context.Background()))
}

func TestPipeline_Run_CommitsAfterLoad(t *testing.T) {
	commitCalled := false
	raw := makeRawRequest(t, "req-3")
	raw.Topic = "merra2-extract-requests"
	raw.Commit = func(context.Context) error {
		commitCalled = true
		return nil
	}

	p := pipeline.New(&mockExtractor{events: []domain.RawEvent{raw}}, &mockTransformer{}, &mockLoader{}, discardLogger(), observability.NewMetricsForTesting(), 10)
	runFor(t, p, 300*time.Millisecond)

	assert.True(t, commitCalled)
}

func TestMultiLoader(t *testing.T) {
	first := &mockLoader{}
	second := &mockLoader{}
	profiles := []domain.Profile{{ID: "a"}, {ID: "b"}}

	require.NoError(t, pipeline.MultiLoader{first, second}.LoadBatch(context.Background(), profiles))
	assert.Equal(t, profiles, first.loaded)
	assert.Equal(t, profiles, second.loaded)

	failing := &mockLoader{err: errors.New("disk full")}
	third := &mockLoader{}
	err := pipeline.MultiLoader{failing, third}.LoadBatch(context.Background(), profiles)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loader 0")
	assert.Zero(t, third.calls)
}

// --- helpers ---

func makeRawRequest(t *testing.T, key string) domain.RawEvent {
	t.Helper()
	data, err := json.Marshal(domain.Request{
		Location: domain.Location{Name: key, Lat: 51.2, Lon: 0.3},
		Day:      "20180222",
	})
	require.NoError(t, err)
	return domain.RawEvent{Key: []byte(key), Value: data}
}
