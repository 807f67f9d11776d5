// Package client talks to the curriculum backend's role scoped REST API:
// {role}/{resource}[/{id}] plus the /revisions and /revise sub-resources.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"curricore/internal/platform/logger"
	"curricore/pkg/domain"
)

const defaultRetryBackoff = 250 * time.Millisecond

// Config configures a Client.
type Config struct {
	BaseURL    string
	Role       string
	Tokens     TokenSource
	HTTPClient *http.Client
	// ReadRetries bounds the extra attempts for GET requests on transport
	// errors and 5xx responses. Writes are never retried.
	ReadRetries  int
	RetryBackoff time.Duration
	Logger       *logger.Logger
}

// Client is safe for concurrent use.
type Client struct {
	base    *url.URL
	role    string
	tokens  TokenSource
	http    *http.Client
	retries int
	backoff time.Duration
	log     *logger.Logger
}

// New validates cfg and returns a client.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("client: base url required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("client: parse base url: %w", err)
	}
	if strings.TrimSpace(cfg.Role) == "" {
		return nil, fmt.Errorf("client: role required")
	}
	if cfg.Tokens == nil {
		cfg.Tokens = StaticToken("")
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.ReadRetries < 0 {
		cfg.ReadRetries = 0
	}
	if cfg.RetryBackoff == 0 {
		cfg.RetryBackoff = defaultRetryBackoff
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}
	return &Client{
		base:    base,
		role:    strings.Trim(cfg.Role, "/"),
		tokens:  cfg.Tokens,
		http:    cfg.HTTPClient,
		retries: cfg.ReadRetries,
		backoff: cfg.RetryBackoff,
		log:     cfg.Logger.With("client", "CurriculumAPI", "role", cfg.Role),
	}, nil
}

// Role returns the role prefix used in every path.
func (c *Client) Role() string { return c.role }

// RequestOption adjusts an outgoing request.
type RequestOption func(*http.Request)

// WithHeader sets a request header.
func WithHeader(key, value string) RequestOption {
	return func(r *http.Request) { r.Header.Set(key, value) }
}

func (c *Client) path(resource string, id *domain.ID, sub string) (string, error) {
	parts := []string{c.role, strings.Trim(resource, "/")}
	if id != nil {
		if !id.IsPersisted() {
			return "", fmt.Errorf("%w: %s %s", ErrNotPersisted, resource, id)
		}
		parts = append(parts, id.String())
	}
	if sub != "" {
		parts = append(parts, sub)
	}
	return strings.Join(parts, "/"), nil
}

// List fetches {role}/{resource} into out.
func (c *Client) List(ctx context.Context, resource string, out any) error {
	p, err := c.path(resource, nil, "")
	if err != nil {
		return err
	}
	return c.read(ctx, p, out)
}

// Get fetches {role}/{resource}/{id} into out.
func (c *Client) Get(ctx context.Context, resource string, id domain.ID, out any) error {
	p, err := c.path(resource, &id, "")
	if err != nil {
		return err
	}
	return c.read(ctx, p, out)
}

// Revisions fetches the revision requests raised against a record.
func (c *Client) Revisions(ctx context.Context, resource string, id domain.ID) ([]domain.RevisionRequest, error) {
	p, err := c.path(resource, &id, "revisions")
	if err != nil {
		return nil, err
	}
	var out []domain.RevisionRequest
	if err := c.read(ctx, p, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Create POSTs body to {role}/{resource}.
func (c *Client) Create(ctx context.Context, resource string, body, out any, opts ...RequestOption) error {
	p, err := c.path(resource, nil, "")
	if err != nil {
		return err
	}
	return c.write(ctx, http.MethodPost, p, body, out, opts)
}

// Update PUTs body to {role}/{resource}/{id}.
func (c *Client) Update(ctx context.Context, resource string, id domain.ID, body, out any, opts ...RequestOption) error {
	p, err := c.path(resource, &id, "")
	if err != nil {
		return err
	}
	return c.write(ctx, http.MethodPut, p, body, out, opts)
}

// Delete removes {role}/{resource}/{id}.
func (c *Client) Delete(ctx context.Context, resource string, id domain.ID, opts ...RequestOption) error {
	p, err := c.path(resource, &id, "")
	if err != nil {
		return err
	}
	return c.write(ctx, http.MethodDelete, p, nil, nil, opts)
}

// Revise PATCHes a revision payload to {role}/{resource}/{id}/revise.
func (c *Client) Revise(ctx context.Context, resource string, id domain.ID, body, out any, opts ...RequestOption) error {
	p, err := c.path(resource, &id, "revise")
	if err != nil {
		return err
	}
	return c.write(ctx, http.MethodPatch, p, body, out, opts)
}

func (c *Client) read(ctx context.Context, p string, out any) error {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			c.log.Debug("retrying read", "path", p, "attempt", attempt, "error", lastErr)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.backoff):
			}
		}
		err := c.do(ctx, http.MethodGet, p, nil, out, nil)
		if err == nil || !retryable(err) {
			return err
		}
		lastErr = err
	}
	return lastErr
}

func (c *Client) write(ctx context.Context, method, p string, body, out any, opts []RequestOption) error {
	err := c.do(ctx, method, p, body, out, opts)
	if err != nil {
		c.log.Warn("write failed", "method", method, "path", p, "error", err)
	}
	return err
}

// transportError marks failures before a response arrived.
type transportError struct{ err error }

func (e *transportError) Error() string { return e.err.Error() }
func (e *transportError) Unwrap() error { return e.err }

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var te *transportError
	if errors.As(err, &te) {
		return true
	}
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status >= 500
}

func (c *Client) do(ctx context.Context, method, p string, body, out any, opts []RequestOption) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", p, err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+"/"+p, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for _, opt := range opts {
		opt(req)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &transportError{err: fmt.Errorf("%s %s: %w", method, p, err)}
	}
	defer func() { _ = resp.Body.Close() }()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &transportError{err: fmt.Errorf("read %s response: %w", p, err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseAPIError(method, p, resp.StatusCode, raw)
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s response: %w", p, err)
	}
	return nil
}
