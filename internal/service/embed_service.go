package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/embedgate/internal/ai"
	"github.com/xxxsen/embedgate/internal/model"
	"github.com/xxxsen/embedgate/internal/pkg/errs"
	"github.com/xxxsen/embedgate/internal/vecstore"
)

const (
	defaultTopK = 10
	maxTopK     = 100
)

// EmbedService runs the embed flow: validate, call the embedding
// provider under a bounded timeout, then upsert the vector into the
// store when one is configured.
type EmbedService struct {
	embedder  ai.IEmbedder
	store     vecstore.Store
	dimension int
	timeout   time.Duration

	idMu   sync.Mutex
	seeded bool
	idSeq  uint64
}

func NewEmbedService(embedder ai.IEmbedder, store vecstore.Store, dimension int, timeout time.Duration) *EmbedService {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &EmbedService{
		embedder:  embedder,
		store:     store,
		dimension: dimension,
		timeout:   timeout,
	}
}

// Embed returns the stored point id and the vector. A zero id asks the
// service to assign one from a process sequence seeded past the store's
// current max id. Calling twice with the same id overwrites the point.
func (s *EmbedService) Embed(ctx context.Context, text string, id uint64, metadata map[string]interface{}) (uint64, []float32, error) {
	if strings.TrimSpace(text) == "" {
		return 0, nil, fmt.Errorf("%w: text cannot be empty", errs.ErrInvalidRequest)
	}
	// ids live in a signed BIGINT column
	if id > math.MaxInt64 {
		return 0, nil, fmt.Errorf("%w: id must not exceed %d", errs.ErrInvalidRequest, uint64(math.MaxInt64))
	}
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	vector, err := s.embedder.Embed(callCtx, text)
	if err != nil {
		return 0, nil, err
	}
	if s.dimension > 0 && len(vector) != s.dimension {
		return 0, nil, fmt.Errorf("%w: model returned %d, configured %d", errs.ErrInvalidDimension, len(vector), s.dimension)
	}
	if s.store == nil {
		return id, vector, nil
	}
	storeCtx, cancelStore := context.WithTimeout(ctx, s.timeout)
	defer cancelStore()
	if id == 0 {
		id, err = s.nextID(storeCtx)
		if err != nil {
			return 0, nil, err
		}
	}
	payload := map[string]interface{}{
		"text": text,
	}
	for k, v := range metadata {
		payload[k] = v
	}
	point := &model.Point{
		ID:      id,
		Vector:  vector,
		Payload: payload,
		Mtime:   time.Now().Unix(),
	}
	if err := s.store.Upsert(storeCtx, point); err != nil {
		return 0, nil, wrapStoreErr(err)
	}
	logutil.GetLogger(ctx).Debug("point stored",
		zap.Uint64("id", id),
		zap.Int("dimension", len(vector)),
	)
	return id, vector, nil
}

// Search ranks stored points against a query vector. When the vector is
// absent the query text is embedded first.
func (s *EmbedService) Search(ctx context.Context, vector []float32, text string, topK int) ([]model.SearchHit, error) {
	if s.store == nil {
		return nil, fmt.Errorf("%w: vector store not configured", errs.ErrInvalidRequest)
	}
	if len(vector) == 0 {
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("%w: either vector or text is required", errs.ErrInvalidRequest)
		}
		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		embedded, err := s.embedder.Embed(callCtx, text)
		if err != nil {
			return nil, err
		}
		vector = embedded
	}
	if topK <= 0 {
		topK = defaultTopK
	}
	if topK > maxTopK {
		topK = maxTopK
	}
	storeCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	hits, err := s.store.Search(storeCtx, vector, topK)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	return hits, nil
}

func (s *EmbedService) Reset(ctx context.Context) error {
	if s.store == nil {
		return fmt.Errorf("%w: vector store not configured", errs.ErrInvalidRequest)
	}
	storeCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return wrapStoreErr(s.store.Reset(storeCtx))
}

type StoreStats struct {
	Collection string `json:"collection"`
	Points     int64  `json:"points"`
	Dimension  int    `json:"dimension"`
}

func (s *EmbedService) Stats(ctx context.Context) (*StoreStats, error) {
	if s.store == nil {
		return nil, fmt.Errorf("%w: vector store not configured", errs.ErrInvalidRequest)
	}
	storeCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	count, err := s.store.Count(storeCtx)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	return &StoreStats{
		Collection: s.store.Collection(),
		Points:     count,
		Dimension:  s.store.Dimension(),
	}, nil
}

func (s *EmbedService) nextID(ctx context.Context) (uint64, error) {
	s.idMu.Lock()
	defer s.idMu.Unlock()
	if !s.seeded {
		maxID, err := s.store.MaxID(ctx)
		if err != nil {
			return 0, wrapStoreErr(err)
		}
		s.idSeq = maxID
		s.seeded = true
	}
	s.idSeq++
	return s.idSeq, nil
}

// wrapStoreErr turns a store call that ran out its deadline into the
// unavailable classification instead of letting the raw deadline error
// read as a provider timeout.
func wrapStoreErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", errs.ErrStoreUnavailable, err)
	}
	return err
}
