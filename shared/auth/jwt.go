package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
)

var errMissingSubject = errors.New("token missing subject claim")

// jwtVerifier validates signed JWTs and maps their claims onto AuthenticatedUser.
type jwtVerifier struct {
	keyFunc  jwt.Keyfunc
	methods  []string
	audience string
	issuer   string
}

func newSupabaseVerifier(cfg Config) (Verifier, error) {
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("supabase JWT secret is required")
	}

	secret := []byte(cfg.JWTSecret)
	return &jwtVerifier{
		keyFunc: func(*jwt.Token) (any, error) {
			return secret, nil
		},
		methods:  []string{jwt.SigningMethodHS256.Alg()},
		audience: cfg.Audience,
		issuer:   cfg.Issuer,
	}, nil
}

func newJWKSVerifier(cfg Config) (Verifier, error) {
	if cfg.JWKSURL == "" {
		return nil, fmt.Errorf("JWKS URL is required")
	}

	options := keyfunc.Options{
		RefreshInterval:   10 * time.Minute,
		RefreshUnknownKID: true,
		RefreshErrorHandler: func(err error) {
			// Refresh errors surface as verification failures on the next request.
		},
	}

	jwks, err := keyfunc.Get(cfg.JWKSURL, options)
	if err != nil {
		return nil, fmt.Errorf("failed to load JWKS: %w", err)
	}

	return &jwtVerifier{
		keyFunc:  jwks.Keyfunc,
		methods:  []string{"RS256", "ES256"},
		audience: cfg.Audience,
		issuer:   cfg.Issuer,
	}, nil
}

func (v *jwtVerifier) Verify(_ context.Context, token string) (AuthenticatedUser, error) {
	options := []jwt.ParserOption{jwt.WithLeeway(5 * time.Second), jwt.WithValidMethods(v.methods)}
	if v.audience != "" {
		options = append(options, jwt.WithAudience(v.audience))
	}
	if v.issuer != "" {
		options = append(options, jwt.WithIssuer(v.issuer))
	}

	t, err := jwt.Parse(token, v.keyFunc, options...)
	if err != nil {
		return AuthenticatedUser{}, fmt.Errorf("token verification failed: %w", err)
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return AuthenticatedUser{}, errors.New("unexpected claims type")
	}

	subjectRaw, ok := claims["sub"].(string)
	if !ok || subjectRaw == "" {
		return AuthenticatedUser{}, errMissingSubject
	}

	email, _ := claims["email"].(string)

	expiresAt := int64(0)
	if expRaw, ok := claims["exp"].(float64); ok {
		expiresAt = int64(expRaw)
	}

	return AuthenticatedUser{
		UserID:    subjectRaw,
		Email:     email,
		ExpiresAt: expiresAt,
		Token:     token,
	}, nil
}
