package postgres_test

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"curricore/internal/infra/persistence/memory"
	"curricore/internal/infra/persistence/postgres"
	"curricore/internal/infra/persistence/postgres/testutil"
	"curricore/pkg/domain"
)

func stubOpen(t *testing.T) *testutil.StubConn {
	t.Helper()
	db, conn := testutil.NewStubDB()
	restore := postgres.OverrideSQLOpen(func(string, string) (*sql.DB, error) { return db, nil })
	t.Cleanup(restore)
	return conn
}

func TestPostgresStoreClosesDBOnSetupFailure(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name string
		fail func(*testutil.StubConn)
	}{
		{name: "ping", fail: func(c *testutil.StubConn) { c.FailPing = true }},
		{name: "ensure table", fail: func(c *testutil.StubConn) { c.FailExec = true }},
		{name: "load", fail: func(c *testutil.StubConn) { c.FailQuery = true }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db, conn := testutil.NewStubDB()
			restore := postgres.OverrideSQLOpen(func(string, string) (*sql.DB, error) { return db, nil })
			defer restore()
			tc.fail(conn)
			if _, err := postgres.NewStore(ctx, "", "", nil, nil); err == nil {
				t.Fatalf("expected %s failure", tc.name)
			}
			conn.FailPing = false
			if err := db.PingContext(ctx); err == nil || !strings.Contains(err.Error(), "closed") {
				t.Fatalf("expected db closed after %s failure, got %v", tc.name, err)
			}
		})
	}
}

func seed() domain.State {
	return domain.State{
		ProgramOutcomes:    []domain.ProgramOutcome{{ID: domain.Persisted(1), Statement: "Apply"}},
		GraduateAttributes: []domain.GraduateAttribute{{ID: domain.Persisted(4)}},
	}
}

func TestPostgresStorePersistsAndReloads(t *testing.T) {
	conn := stubOpen(t)
	ctx := context.Background()
	store, err := postgres.NewStore(ctx, "", "proposal-7", nil, nil)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := store.Initialize(ctx, seed()); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.TogglePOGA(domain.Persisted(1), domain.Persisted(4))
		return err
	}); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if got := len(conn.Tables["drafts"]); got != len(memory.Buckets()) {
		t.Fatalf("expected one row per bucket, got %d", got)
	}

	reloaded, err := postgres.NewStore(ctx, "", "proposal-7", nil, nil)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !reloaded.State().IsMapped(domain.EntityPOGA, domain.Persisted(1), domain.Persisted(4)) {
		t.Fatalf("mapping not restored")
	}
	if !reloaded.IsModified(domain.SectionPOGAMappings) {
		t.Fatalf("modified set not restored")
	}

	if err := reloaded.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if got := len(conn.Tables["drafts"]); got != 0 {
		t.Fatalf("expected rows deleted, got %d", got)
	}
}

func TestPostgresStoreDiscardsStaleSnapshot(t *testing.T) {
	conn := stubOpen(t)
	conn.Tables["drafts"] = []map[string]any{
		{"draft_key": "default", "bucket": memory.BucketVersion, "payload": []byte("1")},
		{"draft_key": "default", "bucket": memory.BucketState, "payload": []byte(`{"pos":[{"id":1}]}`)},
	}
	store, err := postgres.NewStore(context.Background(), "", "", nil, nil)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if len(store.State().ProgramOutcomes) != 0 {
		t.Fatalf("stale snapshot must not be imported")
	}
	if len(conn.Tables["drafts"]) != 0 {
		t.Fatalf("stale rows must be deleted")
	}
}

func TestPostgresStoreFailures(t *testing.T) {
	ctx := context.Background()

	conn := stubOpen(t)
	conn.FailPing = true
	if _, err := postgres.NewStore(ctx, "", "", nil, nil); err == nil {
		t.Fatalf("expected ping failure")
	}

	conn = stubOpen(t)
	conn.FailQuery = true
	if _, err := postgres.NewStore(ctx, "", "", nil, nil); err == nil {
		t.Fatalf("expected load failure")
	}

	conn = stubOpen(t)
	store, err := postgres.NewStore(ctx, "", "", nil, nil)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	conn.FailCommit = true
	if err := store.Initialize(ctx, seed()); err == nil {
		t.Fatalf("expected commit failure")
	}
	conn.FailCommit = false
	conn.FailBegin = true
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.CreatePEO(domain.PEO{Statement: "x"})
		return err
	}); err == nil {
		t.Fatalf("expected begin failure")
	}

	restore := postgres.OverrideSQLOpen(func(string, string) (*sql.DB, error) { return nil, errors.New("dial") })
	defer restore()
	if _, err := postgres.NewStore(ctx, "", "", nil, nil); err == nil {
		t.Fatalf("expected open failure")
	}
}
