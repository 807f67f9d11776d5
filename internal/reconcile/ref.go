// Package reconcile turns a draft into the payload the backend accepts:
// only modified sections, with every locally created identifier (and every
// reference to one) rewritten as "new_<n>" so the backend can tell creates
// from updates without guessing.
package reconcile

import (
	"fmt"
	"strconv"

	"curricore/pkg/domain"
)

// NewPrefix marks identifiers of records the backend has never seen.
const NewPrefix = domain.PendingPrefix

// Ref is a reconciled identifier: a persisted number or a "new_<n>" token.
type Ref struct {
	id domain.ID
}

// ID returns the draft identifier behind the reference.
func (r Ref) ID() domain.ID { return r.id }

// IsNew reports whether the reference points at a record pending creation.
func (r Ref) IsNew() bool { return r.id.IsPending() }

func (r Ref) String() string { return r.id.Text() }

// MarshalJSON emits persisted references as bare numbers and new ones as
// strings. An unset reference is null.
func (r Ref) MarshalJSON() ([]byte, error) {
	if r.id.IsZero() {
		return []byte("null"), nil
	}
	if r.id.IsPending() {
		return []byte(strconv.Quote(r.String())), nil
	}
	return []byte(r.String()), nil
}

// IntegrityError reports an identifier that resolves neither to a baseline
// record nor to a record pending creation.
type IntegrityError struct {
	Section domain.Section
	Index   int
	Field   string
	Target  domain.EntityType
	ID      domain.ID
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("reconcile %s[%d].%s: %s %s does not resolve", e.Section, e.Index, e.Field, e.Target, e.ID)
}
