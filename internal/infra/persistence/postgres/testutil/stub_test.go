package testutil

import (
	"context"
	"database/sql/driver"
	"io"
	"testing"
)

func TestStubDBUpsertsOnCompositeKey(t *testing.T) {
	ctx := context.Background()
	_, conn := NewStubDB()
	if err := conn.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	upsert := "INSERT INTO drafts(draft_key,bucket,payload) VALUES($1,$2,$3) ON CONFLICT(draft_key,bucket) DO UPDATE SET payload=EXCLUDED.payload"
	for _, args := range [][]driver.NamedValue{
		{{Value: "a"}, {Value: "state"}, {Value: "1"}},
		{{Value: "a"}, {Value: "modified"}, {Value: "2"}},
		{{Value: "b"}, {Value: "state"}, {Value: "3"}},
		{{Value: "a"}, {Value: "state"}, {Value: "4"}},
	} {
		if _, err := conn.ExecContext(ctx, upsert, args); err != nil {
			t.Fatalf("ExecContext upsert: %v", err)
		}
	}
	if got := len(conn.Tables["drafts"]); got != 3 {
		t.Fatalf("expected 3 rows after upserts, got %d", got)
	}

	rows, err := conn.QueryContext(ctx, "SELECT bucket, payload FROM drafts WHERE draft_key = $1", []driver.NamedValue{{Value: "a"}})
	if err != nil {
		t.Fatalf("QueryContext: %v", err)
	}
	seen := map[any]any{}
	dest := make([]driver.Value, 2)
	for {
		if err := rows.Next(dest); err == io.EOF {
			break
		} else if err != nil {
			t.Fatalf("Next: %v", err)
		}
		seen[dest[0]] = dest[1]
	}
	if len(seen) != 2 || seen["state"] != "4" {
		t.Fatalf("unexpected rows for draft a: %v", seen)
	}

	if _, err := conn.ExecContext(ctx, "DELETE FROM drafts WHERE draft_key = $1", []driver.NamedValue{{Value: "a"}}); err != nil {
		t.Fatalf("ExecContext delete: %v", err)
	}
	if got := len(conn.Tables["drafts"]); got != 1 {
		t.Fatalf("expected only draft b left, got %d", got)
	}
}

func TestStubDBParseErrors(t *testing.T) {
	_, conn := NewStubDB()
	ctx := context.Background()
	if _, err := conn.QueryContext(ctx, "UPDATE x", nil); err == nil {
		t.Fatalf("expected select parse error")
	}
	if _, err := conn.ExecContext(ctx, "DELETE FROM drafts", []driver.NamedValue{{Value: "a"}}); err == nil {
		t.Fatalf("expected delete parse error")
	}
	if _, err := conn.ExecContext(ctx, "INSERT INTO drafts(a,b) VALUES($1)", []driver.NamedValue{{Value: "a"}}); err == nil {
		t.Fatalf("expected column/arg mismatch")
	}
	conn.FailExec = true
	if _, err := conn.ExecContext(ctx, "CREATE TABLE x (a TEXT)", nil); err == nil {
		t.Fatalf("expected exec failure")
	}
}
