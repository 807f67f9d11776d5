package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"curricore/pkg/domain"
)

// DraftSchemaVersion identifies the shape of Snapshot. Bump it whenever the
// allow-listed buckets or record fields change incompatibly; snapshots
// carrying another version are discarded on import.
const DraftSchemaVersion = 2

// ErrSnapshotVersion is returned by ImportState for snapshots written under a
// different schema version.
var ErrSnapshotVersion = errors.New("draft snapshot schema version mismatch")

// Snapshot is the serialisable draft: the allow-listed live collections, the
// baseline they were initialised from and the modified section tags.
type Snapshot struct {
	Version  int              `json:"version"`
	State    domain.State     `json:"state"`
	Baseline domain.State     `json:"baseline"`
	Modified []domain.Section `json:"modified"`
}

// Persistence bucket names; durable stores write one row per bucket.
const (
	BucketVersion  = "version"
	BucketState    = "state"
	BucketBaseline = "baseline"
	BucketModified = "modified"
)

// Buckets lists the allow-listed bucket names in write order.
func Buckets() []string {
	return []string{BucketVersion, BucketState, BucketBaseline, BucketModified}
}

// EncodeBuckets splits the snapshot into its persistence buckets.
func (s Snapshot) EncodeBuckets() (map[string][]byte, error) {
	out := make(map[string][]byte, 4)
	out[BucketVersion] = []byte(strconv.Itoa(s.Version))
	for bucket, value := range map[string]any{
		BucketState:    s.State,
		BucketBaseline: s.Baseline,
		BucketModified: s.Modified,
	} {
		data, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", bucket, err)
		}
		out[bucket] = data
	}
	return out, nil
}

// DecodeBuckets rebuilds a snapshot from persisted buckets. It reports false
// when no version bucket exists, i.e. nothing was ever persisted. Unknown
// buckets are ignored.
func DecodeBuckets(buckets map[string][]byte) (Snapshot, bool, error) {
	rawVersion, ok := buckets[BucketVersion]
	if !ok {
		return Snapshot{}, false, nil
	}
	var snapshot Snapshot
	version, err := strconv.Atoi(string(rawVersion))
	if err != nil {
		return Snapshot{}, true, fmt.Errorf("decode version: %w", err)
	}
	snapshot.Version = version
	targets := map[string]any{
		BucketState:    &snapshot.State,
		BucketBaseline: &snapshot.Baseline,
		BucketModified: &snapshot.Modified,
	}
	for bucket, target := range targets {
		payload := buckets[bucket]
		if len(payload) == 0 {
			continue
		}
		if err := json.Unmarshal(payload, target); err != nil {
			return Snapshot{}, true, fmt.Errorf("decode %s: %w", bucket, err)
		}
	}
	return snapshot, true, nil
}

// ExportState clones the current draft for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Version:  DraftSchemaVersion,
		State:    s.state.Clone(),
		Baseline: s.baseline.Clone(),
		Modified: s.modified.Sorted(),
	}
}

// ImportState replaces the draft with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) error {
	if snapshot.Version != DraftSchemaVersion {
		return fmt.Errorf("%w: got %d want %d", ErrSnapshotVersion, snapshot.Version, DraftSchemaVersion)
	}
	state := migrateState(snapshot.State)
	baseline := migrateState(snapshot.Baseline)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	s.baseline = baseline
	s.modified = domain.SectionSetFrom(snapshot.Modified)
	return nil
}

// migrateState drops records that can no longer be trusted after a load:
// course-to-PO mappings without levels and anything with a dangling reference.
// Placement category codes are re-derived from their categories.
func migrateState(in domain.State) domain.State {
	st := in.Clone()
	kept := st.CourseToPOs[:0]
	for _, m := range st.CourseToPOs {
		if len(m.ContributionLevels) > 0 {
			kept = append(kept, m)
		}
	}
	st.CourseToPOs = kept
	st.PruneDangling(nil)
	tx := &transaction{state: st}
	tx.syncCategoryCodes()
	return tx.state
}
