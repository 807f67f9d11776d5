package drafts_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"curricore/internal/adapters/drafts"
	"curricore/internal/wizard"
)

func position(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	pos, ok := body["position"].(map[string]any)
	if !ok {
		t.Fatalf("missing position in %v", body)
	}
	return pos
}

func TestWizardRoutes(t *testing.T) {
	r, _ := setup(t, &stubAPI{}, drafts.WithWizard(wizard.ForCreation()))
	path := drafts.BasePath + "/wizard"

	code, body := do(t, r, http.MethodGet, path, "")
	pos := position(t, body)
	if code != http.StatusOK || pos["index"] != float64(0) || pos["total"] != float64(12) || pos["title"] != "Program Details" {
		t.Fatalf("unexpected start %d %v", code, body)
	}
	if _, body = do(t, r, http.MethodPost, path+"/previous", ""); body["transition"] != "exited" || position(t, body)["index"] != float64(0) {
		t.Fatalf("previous on the first step must exit in place, got %v", body)
	}
	if _, body = do(t, r, http.MethodPost, path+"/next", ""); body["transition"] != "moved" || position(t, body)["section"] != "peos" {
		t.Fatalf("next: %v", body)
	}

	code, body = do(t, r, http.MethodPost, path+"/restore", `{"index":40,"review":false}`)
	if code != http.StatusOK || position(t, body)["index"] != float64(11) || position(t, body)["section"] != "committee_assignments" {
		t.Fatalf("restore must clamp, got %d %v", code, body)
	}
	if _, body = do(t, r, http.MethodPost, path+"/next", ""); body["transition"] != "entered_review" || position(t, body)["review"] != true {
		t.Fatalf("expected review, got %v", body)
	}
	if _, ok := position(t, body)["section"]; ok {
		t.Fatalf("review has no current section, got %v", body)
	}
	if _, body = do(t, r, http.MethodPost, path+"/next", ""); body["transition"] != "stayed" {
		t.Fatalf("next in review must stay, got %v", body)
	}
	if _, body = do(t, r, http.MethodPost, path+"/previous", ""); body["transition"] != "moved" || position(t, body)["index"] != float64(11) {
		t.Fatalf("previous from review: %v", body)
	}
}

func TestWizardRoutesNeedASequencer(t *testing.T) {
	r, _ := setup(t, &stubAPI{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, drafts.BasePath+"/wizard", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without a wizard, got %d", w.Code)
	}
}
