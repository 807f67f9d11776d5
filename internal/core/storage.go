package core

import (
	"context"
	"fmt"

	"curricore/internal/config"
	"curricore/internal/infra/persistence/memory"
	"curricore/internal/infra/persistence/postgres"
	"curricore/internal/infra/persistence/sqlite"
	"curricore/internal/platform/logger"
	"curricore/pkg/domain"
)

// StorageDriver identifies a draft store implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// OpenDraftStore selects the draft store named by cfg.StorageDriver
// (default sqlite). Durable stores hydrate the draft saved under
// cfg.DraftKey. Callers close stores that implement io.Closer.
func OpenDraftStore(ctx context.Context, cfg config.Config, engine *domain.RulesEngine, log *logger.Logger) (domain.DraftStore, error) {
	driver := StorageDriver(cfg.StorageDriver)
	if driver == "" {
		driver = StorageSQLite
	}
	switch driver {
	case StorageMemory:
		return memory.NewStore(engine), nil
	case StorageSQLite:
		return sqlite.NewStore(cfg.SQLitePath, cfg.DraftKey, engine, log)
	case StoragePostgres:
		return postgres.NewStore(ctx, cfg.PostgresDSN, cfg.DraftKey, engine, log)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
