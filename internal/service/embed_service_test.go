package service

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/embedgate/internal/model"
	"github.com/xxxsen/embedgate/internal/pkg/errs"
	"github.com/xxxsen/embedgate/internal/vecstore"
)

type fakeEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

func (f *fakeEmbedder) ModelName() string {
	return "fake-model"
}

type stalledEmbedder struct{}

func (stalledEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (stalledEmbedder) ModelName() string {
	return "stalled-model"
}

type stalledStore struct {
	collection string
	dimension  int
}

func (s *stalledStore) Upsert(ctx context.Context, p *model.Point) error {
	<-ctx.Done()
	return ctx.Err()
}

func (s *stalledStore) Get(ctx context.Context, id uint64) (*model.Point, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (s *stalledStore) Search(ctx context.Context, vector []float32, topK int) ([]model.SearchHit, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (s *stalledStore) Count(ctx context.Context) (int64, error) {
	<-ctx.Done()
	return 0, ctx.Err()
}

func (s *stalledStore) MaxID(ctx context.Context) (uint64, error) {
	<-ctx.Done()
	return 0, ctx.Err()
}

func (s *stalledStore) Reset(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func (s *stalledStore) Dimension() int {
	return s.dimension
}

func (s *stalledStore) Collection() string {
	return s.collection
}

func TestEmbedService_EmptyTextRejected(t *testing.T) {
	svc := NewEmbedService(&fakeEmbedder{vector: []float32{1}}, nil, 1, time.Second)
	_, _, err := svc.Embed(context.Background(), "   ", 0, nil)
	require.ErrorIs(t, err, errs.ErrInvalidRequest)
}

func TestEmbedService_EmbedWithoutStore(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{0.1, 0.2, 0.3}}
	svc := NewEmbedService(embedder, nil, 3, time.Second)
	id, vec, err := svc.Embed(context.Background(), "hello world", 0, nil)
	require.NoError(t, err)
	require.Zero(t, id)
	require.Len(t, vec, 3)
}

func TestEmbedService_DimensionMismatchFromModel(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{1, 2}}
	svc := NewEmbedService(embedder, nil, 3, time.Second)
	_, _, err := svc.Embed(context.Background(), "hello", 0, nil)
	require.ErrorIs(t, err, errs.ErrInvalidDimension)
}

func TestEmbedService_EmbedStoreSearchScenario(t *testing.T) {
	vector := []float32{0.3, 0.4, 0.5}
	embedder := &fakeEmbedder{vector: vector}
	store := vecstore.NewMemoryStore("documents", 3)
	svc := NewEmbedService(embedder, store, 3, time.Second)

	id, vec, err := svc.Embed(context.Background(), "hello world", 1, map[string]interface{}{"source": "test"})
	require.NoError(t, err)
	require.Equal(t, uint64(1), id)
	require.InDeltaSlice(t, vector, vec, 1e-6)

	hits, err := svc.Search(context.Background(), vec, "", 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, uint64(1), hits[0].ID)
	require.Equal(t, "hello world", hits[0].Payload["text"])
	require.Equal(t, "test", hits[0].Payload["source"])
}

func TestEmbedService_AssignsSequentialIDs(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{1, 0}}
	store := vecstore.NewMemoryStore("documents", 2)
	svc := NewEmbedService(embedder, store, 2, time.Second)

	id1, _, err := svc.Embed(context.Background(), "first", 0, nil)
	require.NoError(t, err)
	id2, _, err := svc.Embed(context.Background(), "second", 0, nil)
	require.NoError(t, err)
	require.Equal(t, id1+1, id2)

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(2), count)
}

func TestEmbedService_ExplicitIDOverwrites(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{1, 0}}
	store := vecstore.NewMemoryStore("documents", 2)
	svc := NewEmbedService(embedder, store, 2, time.Second)

	_, _, err := svc.Embed(context.Background(), "first", 9, nil)
	require.NoError(t, err)
	_, _, err = svc.Embed(context.Background(), "second", 9, nil)
	require.NoError(t, err)

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(1), count)

	point, err := store.Get(context.Background(), 9)
	require.NoError(t, err)
	require.Equal(t, "second", point.Payload["text"])
}

func TestEmbedService_SearchEmbedsQueryText(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{0, 1}}
	store := vecstore.NewMemoryStore("documents", 2)
	svc := NewEmbedService(embedder, store, 2, time.Second)

	_, _, err := svc.Embed(context.Background(), "doc", 1, nil)
	require.NoError(t, err)

	hits, err := svc.Search(context.Background(), nil, "query", 5)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	require.Equal(t, 2, embedder.calls)
}

func TestEmbedService_SearchRequiresVectorOrText(t *testing.T) {
	svc := NewEmbedService(&fakeEmbedder{vector: []float32{1}}, vecstore.NewMemoryStore("documents", 1), 1, time.Second)
	_, err := svc.Search(context.Background(), nil, "", 5)
	require.ErrorIs(t, err, errs.ErrInvalidRequest)
}

func TestEmbedService_SearchWithoutStoreRejected(t *testing.T) {
	svc := NewEmbedService(&fakeEmbedder{vector: []float32{1}}, nil, 1, time.Second)
	_, err := svc.Search(context.Background(), []float32{1}, "", 5)
	require.ErrorIs(t, err, errs.ErrInvalidRequest)
}

func TestEmbedService_TimeoutSurfaces(t *testing.T) {
	svc := NewEmbedService(stalledEmbedder{}, nil, 1, 20*time.Millisecond)
	done := make(chan error, 1)
	go func() {
		_, _, err := svc.Embed(context.Background(), "hello", 0, nil)
		done <- err
	}()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(2 * time.Second):
		t.Fatal("embed call hung past its timeout")
	}
}

func TestEmbedService_OversizedIDRejected(t *testing.T) {
	svc := NewEmbedService(&fakeEmbedder{vector: []float32{1}}, vecstore.NewMemoryStore("documents", 1), 1, time.Second)
	_, _, err := svc.Embed(context.Background(), "hello", math.MaxUint64, nil)
	require.ErrorIs(t, err, errs.ErrInvalidRequest)
	_, _, err = svc.Embed(context.Background(), "hello", math.MaxInt64, nil)
	require.NoError(t, err)
}

func TestEmbedService_StalledStoreClassifiedUnavailable(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{1, 0}}
	store := &stalledStore{collection: "documents", dimension: 2}
	svc := NewEmbedService(embedder, store, 2, 20*time.Millisecond)

	done := make(chan error, 1)
	go func() {
		_, _, err := svc.Embed(context.Background(), "hello", 5, nil)
		done <- err
	}()
	select {
	case err := <-done:
		require.ErrorIs(t, err, errs.ErrStoreUnavailable)
	case <-time.After(2 * time.Second):
		t.Fatal("embed call hung on a stalled store")
	}

	_, err := svc.Search(context.Background(), []float32{1, 0}, "", 5)
	require.ErrorIs(t, err, errs.ErrStoreUnavailable)

	require.ErrorIs(t, svc.Reset(context.Background()), errs.ErrStoreUnavailable)

	_, err = svc.Stats(context.Background())
	require.ErrorIs(t, err, errs.ErrStoreUnavailable)
}

func TestEmbedService_ResetAndStats(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{1, 0}}
	store := vecstore.NewMemoryStore("documents", 2)
	svc := NewEmbedService(embedder, store, 2, time.Second)

	_, _, err := svc.Embed(context.Background(), "doc", 1, nil)
	require.NoError(t, err)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, "documents", stats.Collection)
	require.Equal(t, int64(1), stats.Points)
	require.Equal(t, 2, stats.Dimension)

	require.NoError(t, svc.Reset(context.Background()))
	stats, err = svc.Stats(context.Background())
	require.NoError(t, err)
	require.Zero(t, stats.Points)
}
