// Package sqlite provides the durable local draft cache. It reuses the
// in-memory store for transactions and snapshots the draft into a single
// SQLite table after every committed mutation.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"curricore/internal/infra/persistence/memory"
	"curricore/internal/platform/logger"
	"curricore/pkg/domain"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.DraftStore = (*Store)(nil)

const defaultPath = "curricore.db"

// Store persists one draft (identified by its draft key) to SQLite as JSON buckets.
type Store struct {
	*memory.Store
	db   *sql.DB
	mu   sync.Mutex
	path string
	key  string
	log  *logger.Logger
}

// NewStore opens (creating when needed) the SQLite file at path and hydrates
// the draft stored under draftKey. A stored snapshot from another schema
// version is discarded and logged.
func NewStore(path, draftKey string, engine *domain.RulesEngine, log *logger.Logger) (*Store, error) {
	if path == "" {
		path = defaultPath
	}
	if draftKey == "" {
		draftKey = "default"
	}
	if log == nil {
		log = logger.Nop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS drafts (
		draft_key TEXT NOT NULL,
		bucket TEXT NOT NULL,
		payload BLOB NOT NULL,
		PRIMARY KEY (draft_key, bucket)
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create drafts table: %w", err)
	}
	s := &Store{
		Store: memory.NewStore(engine),
		db:    db,
		path:  path,
		key:   draftKey,
		log:   log.With("component", "sqlite_draft_store", "draft_key", draftKey),
	}
	if err := s.load(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) load(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT bucket, payload FROM drafts WHERE draft_key = ?`, s.key)
	if err != nil {
		return fmt.Errorf("select drafts: %w", err)
	}
	defer func() { _ = rows.Close() }()
	buckets := make(map[string][]byte)
	for rows.Next() {
		var bucket string
		var payload []byte
		if err := rows.Scan(&bucket, &payload); err != nil {
			return fmt.Errorf("scan: %w", err)
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

func (s *Store) persist(ctx context.Context) (retErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	buckets, err := s.ExportState().EncodeBuckets()
	if err != nil {
		return err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = tx.Rollback()
		}
	}()
	for _, bucket := range memory.Buckets() {
		if _, err := tx.ExecContext(ctx, `INSERT INTO drafts(draft_key,bucket,payload) VALUES(?,?,?) ON CONFLICT(draft_key,bucket) DO UPDATE SET payload=excluded.payload`, s.key, bucket, buckets[bucket]); err != nil {
			return fmt.Errorf("upsert %s: %w", bucket, err)
		}
	}
	return tx.Commit()
}

func (s *Store) remove(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, `DELETE FROM drafts WHERE draft_key = ?`, s.key); err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	return nil
}

// RunInTransaction applies the provided function within a transaction, then snapshots the draft to SQLite if successful.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx domain.Transaction) error) (domain.Result, error) {
	res, err := s.Store.RunInTransaction(ctx, fn)
	if err != nil {
		return res, err
	}
	if pErr := s.persist(ctx); pErr != nil {
		return res, pErr
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

// Clear drops the draft from memory and from the database.
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

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }
