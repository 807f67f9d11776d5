package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"curricore/internal/client"
	"curricore/pkg/domain"
)

func newClient(t *testing.T, srv *httptest.Server, retries int) *client.Client {
	t.Helper()
	c, err := client.New(client.Config{
		BaseURL:      srv.URL + "/api/",
		Role:         "department",
		Tokens:       client.StaticToken("tok"),
		HTTPClient:   srv.Client(),
		ReadRetries:  retries,
		RetryBackoff: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestClientRoutesAndHeaders(t *testing.T) {
	type seen struct{ method, path, auth, sid, body string }
	var got []seen
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		got = append(got, seen{r.Method, r.URL.Path, r.Header.Get("Authorization"), r.Header.Get("X-Submission-ID"), string(raw)})
		switch {
		case r.URL.Path == "/api/department/curricula/9/revisions":
			_, _ = w.Write([]byte(`[{"id":1,"section":"pos","comment":"tighten wording","status":"pending"}]`))
		case r.Method == http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		default:
			_, _ = w.Write([]byte(`{"id":9}`))
		}
	}))
	defer srv.Close()
	c := newClient(t, srv, 0)
	ctx := context.Background()

	var list []map[string]any
	if err := c.List(ctx, "curricula", &list); err == nil {
		t.Fatalf("expected decode error for object into slice")
	}
	var rec struct {
		ID domain.ID `json:"id"`
	}
	if err := c.Get(ctx, "curricula", domain.Persisted(9), &rec); err != nil || rec.ID != domain.Persisted(9) {
		t.Fatalf("get: %v %+v", err, rec)
	}
	if err := c.Create(ctx, "curricula", map[string]any{"pos": []any{}}, &rec, client.WithHeader("X-Submission-ID", "sid-1")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := c.Update(ctx, "curricula", domain.Persisted(9), map[string]any{}, nil); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := c.Revise(ctx, "curricula", domain.Persisted(9), map[string]any{"peos": []any{}}, nil); err != nil {
		t.Fatalf("revise: %v", err)
	}
	if err := c.Delete(ctx, "curricula", domain.Persisted(9)); err != nil {
		t.Fatalf("delete: %v", err)
	}
	revisions, err := c.Revisions(ctx, "curricula", domain.Persisted(9))
	if err != nil || len(revisions) != 1 || revisions[0].Section != domain.SectionPOs || revisions[0].Status != domain.RevisionPending {
		t.Fatalf("revisions: %v %+v", err, revisions)
	}

	want := []struct{ method, path string }{
		{http.MethodGet, "/api/department/curricula"},
		{http.MethodGet, "/api/department/curricula/9"},
		{http.MethodPost, "/api/department/curricula"},
		{http.MethodPut, "/api/department/curricula/9"},
		{http.MethodPatch, "/api/department/curricula/9/revise"},
		{http.MethodDelete, "/api/department/curricula/9"},
		{http.MethodGet, "/api/department/curricula/9/revisions"},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d requests, got %d", len(want), len(got))
	}
	for i, w := range want {
		if got[i].method != w.method || got[i].path != w.path {
			t.Fatalf("request %d: got %s %s want %s %s", i, got[i].method, got[i].path, w.method, w.path)
		}
		if got[i].auth != "Bearer tok" {
			t.Fatalf("request %d missing bearer token", i)
		}
	}
	if got[2].sid != "sid-1" || got[2].body != `{"pos":[]}` {
		t.Fatalf("create request lost header or body: %+v", got[2])
	}
}

func TestClientRejectsPendingIDs(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()
	c := newClient(t, srv, 0)
	if err := c.Revise(context.Background(), "curricula", domain.Pending(1), nil, nil); !errors.Is(err, client.ErrNotPersisted) {
		t.Fatalf("expected ErrNotPersisted, got %v", err)
	}
}

func TestClientRetriesReadsOnly(t *testing.T) {
	var reads, writes atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			if reads.Add(1) < 3 {
				w.WriteHeader(http.StatusBadGateway)
				return
			}
			_, _ = w.Write([]byte(`[]`))
			return
		}
		writes.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()
	c := newClient(t, srv, 3)
	ctx := context.Background()

	var out []any
	if err := c.List(ctx, "faculties", &out); err != nil {
		t.Fatalf("list after retries: %v", err)
	}
	if reads.Load() != 3 {
		t.Fatalf("expected 3 read attempts, got %d", reads.Load())
	}
	var apiErr *client.APIError
	if err := c.Create(ctx, "curricula", map[string]any{}, nil); !errors.As(err, &apiErr) || apiErr.Status != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 api error, got %v", err)
	}
	if writes.Load() != 1 {
		t.Fatalf("writes must not retry, got %d attempts", writes.Load())
	}
}

func TestClientGivesUpAfterReadRetries(t *testing.T) {
	var reads atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		reads.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	c := newClient(t, srv, 2)
	if err := c.List(context.Background(), "faculties", nil); err == nil {
		t.Fatalf("expected failure")
	}
	if reads.Load() != 3 {
		t.Fatalf("expected 1 attempt + 2 retries, got %d", reads.Load())
	}

	reads.Store(0)
	notFound := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		reads.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer notFound.Close()
	if err := newClient(t, notFound, 2).List(context.Background(), "faculties", nil); err == nil {
		t.Fatalf("expected 404")
	}
	if reads.Load() != 1 {
		t.Fatalf("4xx must not retry, got %d attempts", reads.Load())
	}
}

func TestAPIErrorDisplayMessage(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"field list", `{"message":"Invalid","errors":{"statement":["The statement field is required."],"code":"Taken"}}`, "code: Taken; statement: The statement field is required."},
		{"message", `{"message":"Curriculum locked"}`, "Curriculum locked"},
		{"detail", `{"detail":"Not allowed"}`, "Not allowed"},
		{"garbage", `<html>`, client.DefaultErrorMessage},
		{"empty", ``, client.DefaultErrorMessage},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusUnprocessableEntity)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()
			err := newClient(t, srv, 0).Create(context.Background(), "peos", map[string]any{}, nil)
			var apiErr *client.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected APIError, got %v", err)
			}
			if got := apiErr.DisplayMessage(); got != tc.want {
				t.Fatalf("got %q want %q", got, tc.want)
			}
		})
	}
}

func TestNewValidatesConfig(t *testing.T) {
	if _, err := client.New(client.Config{Role: "x"}); err == nil {
		t.Fatalf("expected base url error")
	}
	if _, err := client.New(client.Config{BaseURL: "http://x"}); err == nil {
		t.Fatalf("expected role error")
	}
	c, err := client.New(client.Config{BaseURL: "http://x", Role: "/qa/"})
	if err != nil || c.Role() != "qa" {
		t.Fatalf("unexpected client %v %v", c, err)
	}
}

func TestDecodeResponseIntoRawJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"id":5,"status":"submitted"}`))
	}))
	defer srv.Close()
	var raw json.RawMessage
	if err := newClient(t, srv, 0).Create(context.Background(), "curricula", struct{}{}, &raw); err != nil {
		t.Fatalf("create: %v", err)
	}
	if string(raw) != `{"id":5,"status":"submitted"}` {
		t.Fatalf("unexpected body %s", raw)
	}
}
