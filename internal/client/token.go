package client

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenSource supplies the bearer token for each request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken always returns the same token. An empty token sends no
// Authorization header.
type StaticToken string

// Token implements TokenSource.
func (t StaticToken) Token(context.Context) (string, error) { return string(t), nil }

// JWTTokenSource refuses tokens whose exp claim has passed, so an expired
// session fails locally instead of as a 401 halfway through a submission.
// The signature is not checked; the backend does that.
type JWTTokenSource struct {
	Source TokenSource
	Leeway time.Duration
	Now    func() time.Time
}

// Token implements TokenSource.
func (s JWTTokenSource) Token(ctx context.Context) (string, error) {
	raw, err := s.Source.Token(ctx)
	if err != nil {
		return "", err
	}
	raw = strings.TrimSpace(strings.TrimPrefix(raw, "Bearer "))
	if raw == "" {
		return "", nil
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return "", fmt.Errorf("parse access token: %w", err)
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	if claims.ExpiresAt != nil && now().After(claims.ExpiresAt.Add(s.Leeway)) {
		return "", ErrTokenExpired
	}
	return raw, nil
}
