package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestSignAndParse(t *testing.T) {
	cfg := Config{Secret: "s3cret", Issuer: "identity"}

	token, err := Sign(cfg, "gardener-1", []string{"garden:read", "garden:write"}, time.Minute)
	require.NoError(t, err)

	claims, err := Parse(token, cfg)
	require.NoError(t, err)
	require.Equal(t, "gardener-1", claims.Subject)
	require.True(t, claims.HasScope("garden:write"))
	require.True(t, claims.HasAnyScope("admin", "garden:read"))
	require.False(t, claims.HasScope("admin"))
	require.WithinDuration(t, time.Now().Add(time.Minute), claims.ExpiresAt, 2*time.Second)
}

func TestParseRejectsBadTokens(t *testing.T) {
	cfg := Config{Secret: "s3cret", Issuer: "identity"}

	_, err := Parse("  ", cfg)
	require.ErrorIs(t, err, ErrMissingToken)

	wrongSecret, err := Sign(Config{Secret: "other", Issuer: "identity"}, "u", nil, time.Minute)
	require.NoError(t, err)
	_, err = Parse(wrongSecret, cfg)
	require.ErrorIs(t, err, ErrInvalidToken)

	wrongIssuer, err := Sign(Config{Secret: "s3cret", Issuer: "elsewhere"}, "u", nil, time.Minute)
	require.NoError(t, err)
	_, err = Parse(wrongIssuer, cfg)
	require.ErrorIs(t, err, ErrInvalidToken)

	expired, err := Sign(cfg, "u", nil, -time.Minute)
	require.NoError(t, err)
	_, err = Parse(expired, cfg)
	require.ErrorIs(t, err, ErrInvalidToken)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"exp": time.Now().Add(time.Minute).Unix(), "iss": "identity"}).SignedString([]byte("s3cret"))
	require.NoError(t, err)
	_, err = Parse(noSubject, cfg)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestScopesAcceptListClaim(t *testing.T) {
	cfg := Config{Secret: "s3cret"}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":    "u",
		"exp":    time.Now().Add(time.Minute).Unix(),
		"scopes": []string{"garden:read", " "},
	}).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	claims, err := Parse(token, cfg)
	require.NoError(t, err)
	require.Len(t, claims.Scopes, 1)
	require.True(t, claims.HasScope("garden:read"))

	var nilClaims *Claims
	require.False(t, nilClaims.HasScope("garden:read"))
}

func TestMiddleware(t *testing.T) {
	cfg := Config{Secret: "s3cret"}
	var seen *Claims
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	mw := NewMiddleware(cfg, func(r *http.Request) bool { return r.URL.Path == "/healthz" })
	handler := mw.Wrap(next)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/feed", nil))
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.JSONEq(t, `{"type":"unauthorized","detail":"missing bearer token"}`, rr.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/v1/feed", nil)
	req.Header.Set("Authorization", "Token abc")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Nil(t, seen)

	token, err := Sign(cfg, "gardener-1", []string{"garden:read"}, time.Minute)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/v1/feed", nil)
	req.Header.Set("Authorization", "bearer "+token)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.NotNil(t, seen)
	require.Equal(t, "gardener-1", seen.Subject)
}
