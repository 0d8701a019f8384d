package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signHS256(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestSupabaseVerifier_ValidToken(t *testing.T) {
	verifier, err := NewVerifier(Config{Mode: ModeSupabase, JWTSecret: "s3cret", Audience: "authenticated"})
	if err != nil {
		t.Fatalf("NewVerifier returned error: %v", err)
	}

	token := signHS256(t, "s3cret", jwt.MapClaims{
		"sub":   "user-123",
		"email": "drinker@example.com",
		"aud":   "authenticated",
		"exp":   float64(time.Now().Add(time.Hour).Unix()),
	})

	user, err := verifier.Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if user.UserID != "user-123" || user.Email != "drinker@example.com" {
		t.Fatalf("unexpected user: %+v", user)
	}
}

func TestSupabaseVerifier_RejectsWrongSecretAndMissingSubject(t *testing.T) {
	verifier, err := NewVerifier(Config{Mode: ModeSupabase, JWTSecret: "s3cret"})
	if err != nil {
		t.Fatalf("NewVerifier returned error: %v", err)
	}

	exp := float64(time.Now().Add(time.Hour).Unix())
	if _, err := verifier.Verify(context.Background(), signHS256(t, "other", jwt.MapClaims{"sub": "u", "exp": exp})); err == nil {
		t.Fatalf("expected signature error")
	}
	if _, err := verifier.Verify(context.Background(), signHS256(t, "s3cret", jwt.MapClaims{"exp": exp})); err == nil {
		t.Fatalf("expected missing subject error")
	}
}

func TestNewVerifier_Validation(t *testing.T) {
	if _, err := NewVerifier(Config{Mode: ModeSupabase}); err == nil {
		t.Fatalf("expected error for missing secret")
	}
	if _, err := NewVerifier(Config{Mode: ModeJWKS}); err == nil {
		t.Fatalf("expected error for missing JWKS URL")
	}
	if _, err := NewVerifier(Config{Mode: "basic"}); err == nil {
		t.Fatalf("expected error for unsupported mode")
	}
}

func TestMiddleware_NoopStoresUser(t *testing.T) {
	verifier, err := NewVerifier(Config{Mode: ModeNoop})
	if err != nil {
		t.Fatalf("NewVerifier returned error: %v", err)
	}

	var got AuthenticatedUser
	handler := Middleware(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = UserFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer user-abc")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if got.UserID != "user-abc" {
		t.Fatalf("expected user-abc in context, got %q", got.UserID)
	}
}

func TestMiddleware_MissingHeader(t *testing.T) {
	handler := Middleware(noopVerifier{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler should not be called")
	}))

	for _, header := range []string{"", "Basic abc", "Bearer   "} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: expected 401, got %d", header, rec.Code)
		}
	}
}
