package optimistic_test

import (
	"context"
	"errors"
	"slices"
	"testing"

	"curricore/internal/optimistic"
)

type list struct{ items []string }

func removeUpdate(l *list, item string, commit error, rollback error) optimistic.Update[[]string] {
	return optimistic.Update[[]string]{
		Snapshot: func(context.Context) ([]string, error) { return slices.Clone(l.items), nil },
		Apply: func(_ context.Context, prev []string) error {
			l.items = slices.DeleteFunc(slices.Clone(prev), func(s string) bool { return s == item })
			return nil
		},
		Commit: func(context.Context) error { return commit },
		Rollback: func(_ context.Context, prev []string) error {
			if rollback != nil {
				return rollback
			}
			l.items = prev
			return nil
		},
	}
}

func TestRun(t *testing.T) {
	boom := errors.New("backend down")
	stuck := errors.New("cache write failed")
	cases := []struct {
		name      string
		commit    error
		rollback  error
		wantItems []string
		wantErr   error
	}{
		{"commit", nil, nil, []string{"a", "c"}, nil},
		{"rollback", boom, nil, []string{"a", "b", "c"}, boom},
		{"rollback fails", boom, stuck, []string{"a", "c"}, stuck},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l := &list{items: []string{"a", "b", "c"}}
			err := optimistic.Run(context.Background(), removeUpdate(l, "b", tc.commit, tc.rollback))
			if tc.wantErr == nil && err != nil {
				t.Fatalf("unexpected error %v", err)
			}
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
			if !slices.Equal(l.items, tc.wantItems) {
				t.Fatalf("items: got %v want %v", l.items, tc.wantItems)
			}
		})
	}
}

func TestRunRollsBackAfterCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	l := &list{items: []string{"a", "b"}}
	u := removeUpdate(l, "a", nil, nil)
	u.Commit = func(context.Context) error { cancel(); return context.Canceled }
	rollback := u.Rollback
	u.Rollback = func(ctx context.Context, prev []string) error {
		if ctx.Err() != nil {
			t.Fatalf("rollback must not inherit cancellation")
		}
		return rollback(ctx, prev)
	}
	if err := optimistic.Run(ctx, u); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if !slices.Equal(l.items, []string{"a", "b"}) {
		t.Fatalf("expected restored list, got %v", l.items)
	}
}

func TestRunRejectsIncompleteUpdate(t *testing.T) {
	if err := optimistic.Run(context.Background(), optimistic.Update[int]{}); err == nil {
		t.Fatalf("expected error")
	}
}
