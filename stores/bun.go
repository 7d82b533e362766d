package stores

import (
	"context"
	"database/sql"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

type kvEntry struct {
	bun.BaseModel `bun:"table:auth_store,alias:kv"`

	Key       string    `bun:"key,pk"`
	Value     string    `bun:"value,notnull"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,default:current_timestamp"`
}

// BunStore keeps the durable tier in SQLite through bun, for hosts that
// already carry a database instead of a plain state file. It satisfies the
// KeyValue contract but not WatchableStore; pair it with a FileStore-backed
// broadcaster when cross-process signaling is needed.
type BunStore struct {
	db      *bun.DB
	timeout time.Duration
}

// NewBunStore opens (or creates) the backing database at dsn.
func NewBunStore(dsn string) (*BunStore, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, err
	}

	db := bun.NewDB(sqldb, sqlitedialect.New())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.NewCreateTable().
		Model((*kvEntry)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return &BunStore{db: db, timeout: 5 * time.Second}, nil
}

// Get treats every database error as a miss; storage anomalies never escape
// the persistence layer.
func (s *BunStore) Get(key string) (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	entry := &kvEntry{}
	err := s.db.NewSelect().
		Model(entry).
		Where("key = ?", key).
		Scan(ctx)
	if err != nil {
		return "", false
	}
	return entry.Value, true
}

func (s *BunStore) Set(key, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	entry := &kvEntry{Key: key, Value: value, UpdatedAt: time.Now()}
	_, err := s.db.NewInsert().
		Model(entry).
		On("CONFLICT (key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (s *BunStore) Delete(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	_, err := s.db.NewDelete().
		Model((*kvEntry)(nil)).
		Where("key = ?", key).
		Exec(ctx)
	return err
}

func (s *BunStore) Close() error {
	return s.db.Close()
}
