// Package memory provides the in-memory transactional draft store. The
// durable sqlite and postgres stores embed it and snapshot its state after
// every committed mutation.
package memory

import (
	"context"
	"fmt"
	"sync"

	"curricore/pkg/domain"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain draft store interface.
var _ domain.DraftStore = (*Store)(nil)

// Store provides an in-memory transactional store for one proposal draft.
type Store struct {
	mu       sync.RWMutex
	state    domain.State
	baseline domain.State
	modified domain.SectionSet
	engine   *domain.RulesEngine
	frozen   bool
}

// NewStore constructs an in-memory store backed by the provided rules engine.
// A nil engine selects the default draft invariants.
func NewStore(engine *domain.RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewDefaultRulesEngine()
	}
	return &Store{
		modified: domain.NewSectionSet(),
		engine:   engine,
	}
}

// RulesEngine exposes the configured engine.
func (s *Store) RulesEngine() *domain.RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// Initialize seeds the draft from baseline, captures the baseline for reset
// and clears the modified set. Dangling references in baseline are dropped.
func (s *Store) Initialize(_ context.Context, baseline domain.State) error {
	cleaned := migrateState(baseline)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frozen {
		return domain.ErrDraftFrozen
	}
	s.state = cleaned.Clone()
	s.baseline = cleaned.Clone()
	s.modified = domain.NewSectionSet()
	return nil
}

// Clear drops the draft entirely. Called once the server owns the submitted state.
func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = domain.State{}
	s.baseline = domain.State{}
	s.modified = domain.NewSectionSet()
	return nil
}

// Freeze blocks edits until release runs. Freezing an already frozen draft
// fails with ErrDraftFrozen. release is idempotent.
func (s *Store) Freeze() (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frozen {
		return nil, domain.ErrDraftFrozen
	}
	s.frozen = true
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.frozen = false
			s.mu.Unlock()
		})
	}, nil
}

// IsModified reports whether the section changed since the baseline was loaded.
func (s *Store) IsModified(section domain.Section) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.modified.Has(section)
}

// ModifiedSections returns a copy of the modified set.
func (s *Store) ModifiedSections() domain.SectionSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.modified.Clone()
}

// Baseline returns a copy of the state captured at initialization.
func (s *Store) Baseline() domain.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.baseline.Clone()
}

// State returns a copy of the live draft.
func (s *Store) State() domain.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// RunInTransaction executes fn within a transactional copy of the draft. The
// copy replaces the live draft only if fn succeeds and no blocking rule fires;
// the sections named by the recorded changes are then marked modified.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx domain.Transaction) error) (domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frozen {
		return domain.Result{}, domain.ErrDraftFrozen
	}

	tx := &transaction{state: s.state.Clone()}
	if err := fn(tx); err != nil {
		return domain.Result{}, err
	}
	result, err := s.evaluate(ctx, tx)
	if err != nil {
		return result, err
	}

	s.state = tx.state
	for _, change := range tx.changes {
		s.modified.Add(change.Section)
	}
	return result, nil
}

// View executes fn against a read-only copy of the draft.
func (s *Store) View(_ context.Context, fn func(domain.State) error) error {
	s.mu.RLock()
	snapshot := s.state.Clone()
	s.mu.RUnlock()
	return fn(snapshot)
}

// ResetSection restores the section's collections to the baseline and clears
// its modified flag. Pending records that disappear take their dependents
// with them (those sections become modified). A restored section that would
// reference missing records is blocked by the rules engine. Category codes on
// placements always follow the live categories.
func (s *Store) ResetSection(ctx context.Context, section domain.Section) (domain.Result, error) {
	if !section.Valid() {
		return domain.Result{}, fmt.Errorf("%w %q", domain.ErrUnknownSection, section)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frozen {
		return domain.Result{}, domain.ErrDraftFrozen
	}

	tx := &transaction{state: s.state.Clone()}
	if err := tx.state.RestoreSection(section, s.baseline); err != nil {
		return domain.Result{}, err
	}
	cascaded := tx.state.PruneDangling(func(ref domain.Reference) bool {
		return ref.Section == section
	})
	for _, dependent := range cascaded.Sorted() {
		tx.recordChange(domain.Change{Section: dependent, Action: domain.ActionDelete})
	}
	tx.syncCategoryCodes()
	result, err := s.evaluate(ctx, tx)
	if err != nil {
		return result, err
	}

	s.state = tx.state
	for _, change := range tx.changes {
		s.modified.Add(change.Section)
	}
	delete(s.modified, section)
	return result, nil
}

func (s *Store) evaluate(ctx context.Context, tx *transaction) (domain.Result, error) {
	if s.engine == nil {
		return domain.Result{}, nil
	}
	res, err := s.engine.Evaluate(ctx, tx.state, tx.changes)
	if err != nil {
		return domain.Result{}, err
	}
	if res.HasBlocking() {
		return res, domain.RuleViolationError{Result: res}
	}
	return res, nil
}
