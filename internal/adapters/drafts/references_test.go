package drafts_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"curricore/internal/adapters/drafts"
	"curricore/internal/client"
	"curricore/internal/refcache"
	"curricore/pkg/domain"
)

type refAPI struct {
	list      string
	lists     int
	deleteErr error
	deleted   []domain.ID
}

func (a *refAPI) List(_ context.Context, _ string, out any) error {
	a.lists++
	return json.Unmarshal([]byte(a.list), out)
}

func (a *refAPI) Delete(_ context.Context, _ string, id domain.ID, _ ...client.RequestOption) error {
	a.deleted = append(a.deleted, id)
	return a.deleteErr
}

func TestReferenceRoutes(t *testing.T) {
	api := &refAPI{list: `[{"id":1,"name":"Ada"},{"id":2,"name":"Grace"}]`}
	refs := refcache.New(nil, api, "department")
	r, _ := setup(t, &stubAPI{}, drafts.WithReferences(refs))
	path := drafts.BasePath + "/refs/faculties"

	code, body := do(t, r, http.MethodGet, path, "")
	if code != http.StatusOK || len(body["items"].([]any)) != 2 {
		t.Fatalf("list: %d %v", code, body)
	}
	if code, body = do(t, r, http.MethodDelete, path+"/1", ""); code != http.StatusOK || body["deleted"] != float64(1) {
		t.Fatalf("delete: %d %v", code, body)
	}
	if _, body = do(t, r, http.MethodGet, path, ""); len(body["items"].([]any)) != 1 || api.lists != 1 {
		t.Fatalf("cached list must drop the deleted item without refetching, got %v after %d lists", body, api.lists)
	}

	api.deleteErr = &client.APIError{Status: http.StatusConflict, Message: "Faculty has assignments"}
	code, body = do(t, r, http.MethodDelete, path+"/2", "")
	if code != http.StatusBadGateway || body["error"] != "Faculty has assignments" {
		t.Fatalf("expected backend refusal, got %d %v", code, body)
	}
	if _, body = do(t, r, http.MethodGet, path, ""); len(body["items"].([]any)) != 1 {
		t.Fatalf("refused delete must restore the list, got %v", body)
	}

	if code, _ = do(t, r, http.MethodDelete, path+"/new_2", ""); code != http.StatusBadRequest {
		t.Fatalf("pending reference id must be rejected, got %d", code)
	}
	if len(api.deleted) != 2 {
		t.Fatalf("expected two backend deletes, got %v", api.deleted)
	}

	if code, body = do(t, r, http.MethodPost, path+"/refetch", ""); code != http.StatusOK || len(body["items"].([]any)) != 2 || api.lists != 2 {
		t.Fatalf("refetch: %d %v", code, body)
	}
}
