package blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"curricore/pkg/domain"
)

// SubmissionPrefix roots every archived submission.
const SubmissionPrefix = "submissions/"

// Archive keeps a copy of every payload accepted by the backend.
type Archive struct {
	store Store
}

// NewArchive wraps store.
func NewArchive(store Store) *Archive { return &Archive{store: store} }

// SubmissionKey returns submissions/<resource>/<id|new>/<submissionID>.json.
// Creation submissions have no record id yet and use "new".
func SubmissionKey(resource string, id domain.ID, submissionID string) string {
	owner := "new"
	if id.IsPersisted() {
		owner = id.String()
	}
	return path.Join(strings.TrimSuffix(SubmissionPrefix, "/"), resource, owner, submissionID+".json")
}

// Save writes payload as JSON under SubmissionKey.
func (a *Archive) Save(ctx context.Context, resource string, id domain.ID, submissionID string, payload any) (Info, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Info{}, fmt.Errorf("encode submission: %w", err)
	}
	key := SubmissionKey(resource, id, submissionID)
	info, err := a.store.Put(ctx, key, bytes.NewReader(raw), PutOptions{
		ContentType: "application/json",
		Metadata:    map[string]string{"submission-id": submissionID, "resource": resource},
	})
	if err != nil {
		return Info{}, fmt.Errorf("archive %s: %w", key, err)
	}
	return info, nil
}

// List returns the archived submissions for resource, oldest key first.
func (a *Archive) List(ctx context.Context, resource string) ([]Info, error) {
	return a.store.List(ctx, SubmissionPrefix+resource+"/")
}

// Load decodes one archived payload into out.
func (a *Archive) Load(ctx context.Context, key string, out any) error {
	_, body, err := a.store.Get(ctx, key)
	if err != nil {
		return err
	}
	defer func() { _ = body.Close() }()
	if err := json.NewDecoder(body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}
