// Package optimistic applies a local change ahead of the remote request that
// makes it durable, and restores the captured snapshot if that request fails.
package optimistic

import (
	"context"
	"errors"
	"fmt"
)

// Update describes one optimistic change over a snapshot of type S.
type Update[S any] struct {
	// Snapshot captures the state Rollback restores.
	Snapshot func(ctx context.Context) (S, error)
	// Apply makes the speculative local change.
	Apply func(ctx context.Context, prev S) error
	// Commit performs the authoritative remote request.
	Commit func(ctx context.Context) error
	// Rollback restores prev after a failed Commit.
	Rollback func(ctx context.Context, prev S) error
}

// RollbackError reports a failed Commit whose Rollback also failed. The
// local state may be inconsistent and should be refetched.
type RollbackError struct {
	Commit   error
	Rollback error
}

func (e *RollbackError) Error() string {
	return fmt.Sprintf("%v (rollback failed: %v)", e.Commit, e.Rollback)
}

func (e *RollbackError) Unwrap() []error { return []error{e.Commit, e.Rollback} }

// Run snapshots, applies, commits, and rolls back on a Commit failure. The
// Commit error is returned unchanged when the rollback succeeds.
func Run[S any](ctx context.Context, u Update[S]) error {
	if u.Snapshot == nil || u.Apply == nil || u.Commit == nil || u.Rollback == nil {
		return errors.New("optimistic: incomplete update")
	}
	prev, err := u.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}
	if err := u.Apply(ctx, prev); err != nil {
		return fmt.Errorf("apply: %w", err)
	}
	commitErr := u.Commit(ctx)
	if commitErr == nil {
		return nil
	}
	// The caller's context may be what failed the commit.
	if rbErr := u.Rollback(context.WithoutCancel(ctx), prev); rbErr != nil {
		return &RollbackError{Commit: commitErr, Rollback: rbErr}
	}
	return commitErr
}
