package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/embedgate/internal/vecstore"
)

// StoreStatsJob periodically logs the collection size, doubling as a
// liveness probe of the vector database.
type StoreStatsJob struct {
	store vecstore.Store
}

func NewStoreStatsJob(store vecstore.Store) *StoreStatsJob {
	return &StoreStatsJob{store: store}
}

func (j *StoreStatsJob) Name() string {
	return "store_stats"
}

func (j *StoreStatsJob) Run(ctx context.Context) error {
	if j.store == nil {
		return nil
	}
	count, err := j.store.Count(ctx)
	if err != nil {
		return err
	}
	logutil.GetLogger(ctx).Info("vector store stats",
		zap.String("collection", j.store.Collection()),
		zap.Int64("points", count),
		zap.Int("dimension", j.store.Dimension()),
	)
	return nil
}
