package vecstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xxxsen/embedgate/internal/config"
	"github.com/xxxsen/embedgate/internal/model"
)

// Store is the narrow surface the rest of the gateway sees of the vector
// database. Upsert is idempotent by point id.
type Store interface {
	Upsert(ctx context.Context, p *model.Point) error
	Get(ctx context.Context, id uint64) (*model.Point, error)
	Search(ctx context.Context, vector []float32, topK int) ([]model.SearchHit, error)
	Count(ctx context.Context) (int64, error)
	MaxID(ctx context.Context) (uint64, error)
	Reset(ctx context.Context) error
	Dimension() int
	Collection() string
}

type Factory func(cfg config.VectorStoreConfig, dimension int) (Store, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

func Register(name string, factory Factory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registryMu.Lock()
	registry[key] = factory
	registryMu.Unlock()
}

// New builds the configured backend. Type "none" disables storage and
// yields a nil Store.
func New(cfg config.VectorStoreConfig, dimension int) (Store, error) {
	key := strings.ToLower(strings.TrimSpace(cfg.Type))
	if key == "" || key == "none" {
		return nil, nil
	}
	registryMu.RLock()
	factory := registry[key]
	registryMu.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("unsupported vector store type: %s", cfg.Type)
	}
	return factory(cfg, dimension)
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return fmt.Errorf("store config is required")
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode store config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode store config: %w", err)
	}
	return nil
}
