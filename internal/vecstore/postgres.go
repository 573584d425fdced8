package vecstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/didi/gendry/builder"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/xxxsen/embedgate/internal/config"
	"github.com/xxxsen/embedgate/internal/db"
	"github.com/xxxsen/embedgate/internal/model"
	"github.com/xxxsen/embedgate/internal/pkg/dbutil"
	"github.com/xxxsen/embedgate/internal/pkg/errs"
)

var collectionNameRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

type postgresStore struct {
	db         *sql.DB
	collection string
	dimension  int
}

func createPostgresFactory(cfg config.VectorStoreConfig, dimension int) (Store, error) {
	dbCfg := &config.DatabaseConfig{}
	if err := decodeConfig(cfg.Data, dbCfg); err != nil {
		return nil, err
	}
	if !collectionNameRegex.MatchString(cfg.Collection) {
		return nil, fmt.Errorf("invalid collection name: %s", cfg.Collection)
	}
	conn, err := db.Open(*dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open vector db: %w", err)
	}
	if err := db.ApplyMigrations(conn); err != nil {
		return nil, fmt.Errorf("vector db migrations: %w", err)
	}
	store := &postgresStore{db: conn, collection: cfg.Collection, dimension: dimension}
	if err := store.ensureCollection(context.Background()); err != nil {
		return nil, err
	}
	return store, nil
}

// ensureCollection lazily creates the collection table. IF NOT EXISTS
// keeps concurrent first-writers idempotent.
func (s *postgresStore) ensureCollection(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGINT PRIMARY KEY,
			embedding vector(%d) NOT NULL,
			payload JSONB,
			mtime BIGINT NOT NULL
		)
	`, pq.QuoteIdentifier(s.collection), s.dimension)
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return s.wrapErr("ensure collection", err)
	}
	return nil
}

func (s *postgresStore) Upsert(ctx context.Context, p *model.Point) error {
	if len(p.Vector) != s.dimension {
		return fmt.Errorf("%w: got %d, collection has %d", errs.ErrInvalidDimension, len(p.Vector), s.dimension)
	}
	var payload []byte
	if p.Payload != nil {
		blob, err := json.Marshal(p.Payload)
		if err != nil {
			return err
		}
		payload = blob
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (id, embedding, payload, mtime)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			payload = EXCLUDED.payload,
			mtime = EXCLUDED.mtime
	`, pq.QuoteIdentifier(s.collection))
	_, err := s.db.ExecContext(ctx, query,
		int64(p.ID),
		pgvector.NewVector(p.Vector),
		payload,
		p.Mtime,
	)
	return s.wrapErr("upsert point", err)
}

func (s *postgresStore) Get(ctx context.Context, id uint64) (*model.Point, error) {
	where := map[string]interface{}{
		"id": int64(id),
	}
	sqlStr, args, err := builder.BuildSelect(s.collection, where, []string{"id", "embedding", "payload", "mtime"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	row := s.db.QueryRowContext(ctx, sqlStr, args...)
	var (
		pid       int64
		embedding pgvector.Vector
		payload   []byte
		mtime     int64
	)
	if err := row.Scan(&pid, &embedding, &payload, &mtime); err != nil {
		if err == sql.ErrNoRows {
			return nil, errs.ErrNotFound
		}
		return nil, s.wrapErr("get point", err)
	}
	point := &model.Point{
		ID:     uint64(pid),
		Vector: embedding.Slice(),
		Mtime:  mtime,
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &point.Payload); err != nil {
			return nil, err
		}
	}
	return point, nil
}

func (s *postgresStore) Search(ctx context.Context, vector []float32, topK int) ([]model.SearchHit, error) {
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: got %d, collection has %d", errs.ErrInvalidDimension, len(vector), s.dimension)
	}
	if topK <= 0 {
		topK = 10
	}
	query := fmt.Sprintf(`
		SELECT id, payload, 1 - (embedding <=> $1) AS score
		FROM %s
		ORDER BY embedding <=> $1
		LIMIT $2
	`, pq.QuoteIdentifier(s.collection))
	rows, err := s.db.QueryContext(ctx, query, pgvector.NewVector(vector), topK)
	if err != nil {
		return nil, s.wrapErr("search points", err)
	}
	defer rows.Close()
	var hits []model.SearchHit
	for rows.Next() {
		var (
			id      int64
			payload []byte
			score   float64
		)
		if err := rows.Scan(&id, &payload, &score); err != nil {
			return nil, s.wrapErr("scan hit", err)
		}
		hit := model.SearchHit{ID: uint64(id), Score: float32(score)}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &hit.Payload); err != nil {
				return nil, err
			}
		}
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

func (s *postgresStore) Count(ctx context.Context) (int64, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, pq.QuoteIdentifier(s.collection))
	var count int64
	if err := s.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, s.wrapErr("count points", err)
	}
	return count, nil
}

func (s *postgresStore) MaxID(ctx context.Context) (uint64, error) {
	query := fmt.Sprintf(`SELECT COALESCE(MAX(id), 0) FROM %s`, pq.QuoteIdentifier(s.collection))
	var maxID int64
	if err := s.db.QueryRowContext(ctx, query).Scan(&maxID); err != nil {
		return 0, s.wrapErr("max point id", err)
	}
	return uint64(maxID), nil
}

func (s *postgresStore) Reset(ctx context.Context) error {
	query := fmt.Sprintf(`TRUNCATE TABLE %s`, pq.QuoteIdentifier(s.collection))
	_, err := s.db.ExecContext(ctx, query)
	return s.wrapErr("reset collection", err)
}

func (s *postgresStore) Dimension() int {
	return s.dimension
}

func (s *postgresStore) Collection() string {
	return s.collection
}

func (s *postgresStore) wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if dbutil.IsUnavailable(err) {
		return fmt.Errorf("%w: %s: %v", errs.ErrStoreUnavailable, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func init() {
	Register("postgres", createPostgresFactory)
}
