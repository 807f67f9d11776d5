package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"curricore/internal/infra/persistence/memory"
	"curricore/pkg/domain"
)

func seed() domain.State {
	return domain.State{
		PEOs:     []domain.PEO{{ID: domain.Persisted(70), Statement: "Lead"}},
		Missions: []domain.Mission{{ID: domain.Persisted(3), MissionNo: 1}},
	}
}

func openStore(t *testing.T, path, key string) *Store {
	t.Helper()
	store, err := NewStore(path, key, nil, nil)
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStorePersistAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drafts.db")
	ctx := context.Background()
	store := openStore(t, path, "proposal-1")
	if err := store.Initialize(ctx, seed()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	var created domain.PEO
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		var err error
		if created, err = tx.CreatePEO(domain.PEO{Statement: "Serve"}); err != nil {
			return err
		}
		_, err = tx.TogglePEOMission(created.ID, domain.Persisted(3))
		return err
	}); err != nil {
		t.Fatalf("mutate: %v", err)
	}

	reloaded := openStore(t, path, "proposal-1")
	st := reloaded.State()
	if len(st.PEOs) != 2 || st.PEOs[1].ID != domain.Pending(71) {
		t.Fatalf("expected pending PEO restored, got %+v", st.PEOs)
	}
	if !st.IsMapped(domain.EntityPEOMission, created.ID, domain.Persisted(3)) {
		t.Fatalf("expected mapping restored")
	}
	if !reloaded.IsModified(domain.SectionPEOs) || !reloaded.IsModified(domain.SectionPEOMissionMappings) {
		t.Fatalf("modified set not restored: %v", reloaded.ModifiedSections().Sorted())
	}
	if len(reloaded.Baseline().PEOs) != 1 {
		t.Fatalf("baseline not restored")
	}

	other := openStore(t, path, "proposal-2")
	if len(other.State().PEOs) != 0 {
		t.Fatalf("draft keys must be isolated")
	}
}

func TestSQLiteStoreResetAndClearPersist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drafts.db")
	ctx := context.Background()
	store := openStore(t, path, "")
	if err := store.Initialize(ctx, seed()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		return tx.DeletePEO(domain.Persisted(70))
	}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.ResetSection(ctx, domain.SectionPEOs); err != nil {
		t.Fatalf("reset: %v", err)
	}
	reloaded := openStore(t, path, "")
	if reloaded.IsModified(domain.SectionPEOs) || len(reloaded.State().PEOs) != 1 {
		t.Fatalf("reset not persisted: %+v", reloaded.State().PEOs)
	}

	if err := reloaded.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	var rows int
	if err := reloaded.DB().QueryRow(`SELECT COUNT(*) FROM drafts`).Scan(&rows); err != nil {
		t.Fatalf("count: %v", err)
	}
	if rows != 0 {
		t.Fatalf("expected draft rows removed, got %d", rows)
	}
}

func TestSQLiteStoreDiscardsOtherSchemaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drafts.db")
	store := openStore(t, path, "stale")
	if err := store.Initialize(context.Background(), seed()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if _, err := store.DB().Exec(`UPDATE drafts SET payload = ? WHERE bucket = ?`, []byte("1"), memory.BucketVersion); err != nil {
		t.Fatalf("downgrade version: %v", err)
	}
	reloaded := openStore(t, path, "stale")
	if len(reloaded.State().PEOs) != 0 {
		t.Fatalf("stale snapshot must be discarded")
	}
	var rows int
	if err := reloaded.DB().QueryRow(`SELECT COUNT(*) FROM drafts WHERE draft_key = ?`, "stale").Scan(&rows); err != nil {
		t.Fatalf("count: %v", err)
	}
	if rows != 0 {
		t.Fatalf("stale rows must be deleted, got %d", rows)
	}
	if reloaded.Path() != path {
		t.Fatalf("unexpected path %s", reloaded.Path())
	}
}
