// Package postgres provides a Postgres-backed draft cache that mirrors the
// in-memory semantics. Shared deployments keep many drafts in one table, one
// row per (draft key, bucket).
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"curricore/internal/infra/persistence/memory"
	"curricore/internal/platform/logger"
	"curricore/pkg/domain"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.DraftStore = (*Store)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/curricore?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store persists a draft to Postgres while reusing the in-memory implementation for transactions.
type Store struct {
	*memory.Store
	db  *sql.DB
	mu  sync.Mutex
	key string
	log *logger.Logger
}

// NewStore opens a Postgres-backed store using the provided DSN (falls back to
// defaultDSN), ensures the drafts table exists and hydrates the draft stored
// under draftKey.
func NewStore(ctx context.Context, dsn, draftKey string, engine *domain.RulesEngine, log *logger.Logger) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	if draftKey == "" {
		draftKey = "default"
	}
	if log == nil {
		log = logger.Nop()
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := ensureDraftsTable(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	s := &Store{
		Store: memory.NewStore(engine),
		db:    db,
		key:   draftKey,
		log:   log.With("component", "postgres_draft_store", "draft_key", draftKey),
	}
	if err := s.load(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func ensureDraftsTable(ctx context.Context, db *sql.DB) error {
	ddl := `CREATE TABLE IF NOT EXISTS drafts (
		draft_key TEXT NOT NULL,
		bucket TEXT NOT NULL,
		payload JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (draft_key, bucket)
	)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure drafts table: %w", err)
	}
	return nil
}

func (s *Store) load(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT bucket, payload FROM drafts WHERE draft_key = $1`, s.key)
	if err != nil {
		return fmt.Errorf("select drafts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	buckets := make(map[string][]byte)
	for rows.Next() {
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			return fmt.Errorf("scan drafts: %w", err)
		}
		buckets[bucket] = payload
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate drafts: %w", err)
	}

	snapshot, found, err := memory.DecodeBuckets(buckets)
	if !found {
		return nil
	}
	if err == nil {
		err = s.ImportState(snapshot)
	}
	if err != nil {
		s.log.Warn("discarding stored draft", "error", err)
		return s.remove(ctx)
	}
	return nil
}

func (s *Store) persist(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	buckets, err := s.ExportState().EncodeBuckets()
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	for _, bucket := range memory.Buckets() {
		if _, err := tx.ExecContext(ctx, `INSERT INTO drafts(draft_key,bucket,payload) VALUES($1,$2,$3) ON CONFLICT(draft_key,bucket) DO UPDATE SET payload=EXCLUDED.payload, updated_at=now()`, s.key, bucket, buckets[bucket]); err != nil {
			return fmt.Errorf("upsert %s: %w", bucket, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	committed = true
	return nil
}

func (s *Store) remove(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, `DELETE FROM drafts WHERE draft_key = $1`, s.key); err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	return nil
}

// RunInTransaction applies the provided function within a transaction, then snapshots to Postgres if successful.
func (s *Store) RunInTransaction(ctx context.Context, fn func(domain.Transaction) error) (domain.Result, error) {
	res, err := s.Store.RunInTransaction(ctx, fn)
	if err != nil {
		return res, err
	}
	if err := s.persist(ctx); err != nil {
		return res, err
	}
	return res, nil
}

// ResetSection restores a section from the baseline and snapshots the result.
func (s *Store) ResetSection(ctx context.Context, section domain.Section) (domain.Result, error) {
	res, err := s.Store.ResetSection(ctx, section)
	if err != nil {
		return res, err
	}
	return res, s.persist(ctx)
}

// Initialize seeds the draft from baseline and snapshots it.
func (s *Store) Initialize(ctx context.Context, baseline domain.State) error {
	if err := s.Store.Initialize(ctx, baseline); err != nil {
		return err
	}
	return s.persist(ctx)
}

// Clear drops the draft from memory and from Postgres.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.Store.Clear(ctx); err != nil {
		return err
	}
	return s.remove(ctx)
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
