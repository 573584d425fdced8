package vecstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/xxxsen/embedgate/internal/config"
	"github.com/xxxsen/embedgate/internal/model"
	"github.com/xxxsen/embedgate/internal/pkg/errs"
)

// memoryStore keeps points in a map guarded by a RWMutex. It backs local
// development and tests; ranking uses cosine similarity like the postgres
// backend's <=> operator.
type memoryStore struct {
	mu         sync.RWMutex
	points     map[uint64]*model.Point
	order      []uint64
	collection string
	dimension  int
}

func NewMemoryStore(collection string, dimension int) Store {
	return &memoryStore{
		points:     make(map[uint64]*model.Point),
		collection: collection,
		dimension:  dimension,
	}
}

func createMemoryFactory(cfg config.VectorStoreConfig, dimension int) (Store, error) {
	return NewMemoryStore(cfg.Collection, dimension), nil
}

func (s *memoryStore) Upsert(ctx context.Context, p *model.Point) error {
	if len(p.Vector) != s.dimension {
		return fmt.Errorf("%w: got %d, collection has %d", errs.ErrInvalidDimension, len(p.Vector), s.dimension)
	}
	clone := &model.Point{
		ID:     p.ID,
		Vector: append([]float32(nil), p.Vector...),
		Mtime:  p.Mtime,
	}
	if clone.Mtime == 0 {
		clone.Mtime = time.Now().Unix()
	}
	if p.Payload != nil {
		clone.Payload = make(map[string]interface{}, len(p.Payload))
		for k, v := range p.Payload {
			clone.Payload[k] = v
		}
	}
	s.mu.Lock()
	if _, exists := s.points[p.ID]; !exists {
		s.order = append(s.order, p.ID)
	}
	s.points[p.ID] = clone
	s.mu.Unlock()
	return nil
}

func (s *memoryStore) Get(ctx context.Context, id uint64) (*model.Point, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.points[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return p, nil
}

func (s *memoryStore) Search(ctx context.Context, vector []float32, topK int) ([]model.SearchHit, error) {
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: got %d, collection has %d", errs.ErrInvalidDimension, len(vector), s.dimension)
	}
	if topK <= 0 {
		topK = 10
	}
	s.mu.RLock()
	hits := make([]model.SearchHit, 0, len(s.order))
	// Insertion order is kept so equal scores tie-break deterministically.
	for _, id := range s.order {
		p := s.points[id]
		hits = append(hits, model.SearchHit{
			ID:      p.ID,
			Score:   cosineSimilarity(vector, p.Vector),
			Payload: p.Payload,
		})
	}
	s.mu.RUnlock()
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if topK > len(hits) {
		topK = len(hits)
	}
	return hits[:topK], nil
}

func (s *memoryStore) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.points)), nil
}

func (s *memoryStore) MaxID(ctx context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var maxID uint64
	for id := range s.points {
		if id > maxID {
			maxID = id
		}
	}
	return maxID, nil
}

func (s *memoryStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	s.points = make(map[uint64]*model.Point)
	s.order = nil
	s.mu.Unlock()
	return nil
}

func (s *memoryStore) Dimension() int {
	return s.dimension
}

func (s *memoryStore) Collection() string {
	return s.collection
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

func init() {
	Register("memory", createMemoryFactory)
}
