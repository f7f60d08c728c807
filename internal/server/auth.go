package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/lestrrat-go/httprc/v3"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

// TokenVerifier checks access tokens issued by the auth service and
// returns the caller's user id. Tokens are verified either with a shared
// HS256 secret or against a cached JWKS.
type TokenVerifier struct {
	secret  []byte
	cache   *jwk.Cache
	jwksURL string
	issuer  string
}

func NewHMACVerifier(secret []byte, issuer string) (*TokenVerifier, error) {
	if len(secret) == 0 {
		return nil, errors.New("jwt secret is empty")
	}
	return &TokenVerifier{secret: secret, issuer: issuer}, nil
}

func NewJWKSVerifier(ctx context.Context, jwksURL, issuer string) (*TokenVerifier, error) {
	cache, err := jwk.NewCache(ctx, httprc.NewClient())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize jwk cache: %w", err)
	}

	if err := cache.Register(ctx, jwksURL); err != nil {
		return nil, fmt.Errorf("failed to register jwks url with cache: %w", err)
	}

	return &TokenVerifier{cache: cache, jwksURL: jwksURL, issuer: issuer}, nil
}

func (v *TokenVerifier) Verify(ctx context.Context, raw string) (string, error) {
	options := []jwt.ParseOption{jwt.WithValidate(true)}
	if v.issuer != "" {
		options = append(options, jwt.WithIssuer(v.issuer))
	}

	if v.cache != nil {
		set, err := v.cache.Lookup(ctx, v.jwksURL)
		if err != nil {
			return "", fmt.Errorf("failed to fetch jwks: %w", err)
		}
		options = append(options, jwt.WithKeySet(set))
	} else {
		options = append(options, jwt.WithKey(jwa.HS256(), v.secret))
	}

	token, err := jwt.Parse([]byte(raw), options...)
	if err != nil {
		return "", fmt.Errorf("failed to parse jwt: %w", err)
	}

	if userID, ok := token.Subject(); ok && userID != "" {
		return userID, nil
	}

	// Some issuers carry the user id as a private "id" claim instead of sub.
	var userID string
	if err := token.Get("id", &userID); err != nil || userID == "" {
		return "", errors.New("no user id in jwt")
	}

	return userID, nil
}
