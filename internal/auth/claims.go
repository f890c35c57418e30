// Package auth adapts the platform token validation to the garden API.
package auth

import (
	"context"
	"time"

	authlib "example.com/gardenlog/internal/platform/auth"
)

// Claims mirrors the platform claims type for handler convenience.
type Claims = authlib.Claims

// Config mirrors the platform auth config.
type Config = authlib.Config

// Sign delegates to the platform signer; the subject is the gardener id.
func Sign(cfg Config, userID string, scopes []string, ttl time.Duration) (string, error) {
	return authlib.Sign(cfg, userID, scopes, ttl)
}

// FromContext retrieves claims from context.
func FromContext(ctx context.Context) (*Claims, bool) {
	return authlib.FromContext(ctx)
}

// UserID returns the authenticated gardener, or "" when the request carries no claims.
func UserID(ctx context.Context) string {
	claims, ok := FromContext(ctx)
	if !ok {
		return ""
	}
	return claims.Subject
}
