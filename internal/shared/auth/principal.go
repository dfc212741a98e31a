package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Principal is the authenticated identity attached to a request.
type Principal struct {
	ID          string
	Username    string
	Email       string
	IsActive    bool
	IsSuperuser bool
	TokenID     string
	Scopes      []string
}

// PrincipalLoader loads the current state of a user by id. It returns
// ErrPrincipalNotFound when no such user exists.
type PrincipalLoader interface {
	LoadPrincipal(ctx context.Context, id string) (Principal, error)
}

// TokenVerifier is the subset of TokenService the resolver needs.
type TokenVerifier interface {
	Verify(raw string, want TokenType) (*Claims, error)
}

// Resolver turns an Authorization header into an active Principal.
type Resolver struct {
	tokens TokenVerifier
	loader PrincipalLoader
}

func NewResolver(tokens TokenVerifier, loader PrincipalLoader) *Resolver {
	return &Resolver{tokens: tokens, loader: loader}
}

// Resolve verifies the bearer access token in header and loads its subject.
// Authentication failures wrap ErrUnauthenticated together with the cause;
// a disabled account yields ErrInactivePrincipal.
func (r *Resolver) Resolve(ctx context.Context, header string) (Principal, error) {
	raw, err := BearerToken(header)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}
	claims, err := r.tokens.Verify(raw, AccessToken)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}

	p, err := r.loader.LoadPrincipal(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrPrincipalNotFound) {
			return Principal{}, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
		}
		return Principal{}, fmt.Errorf("load principal: %w", err)
	}
	if !p.IsActive {
		return Principal{}, ErrInactivePrincipal
	}
	p.TokenID = claims.ID
	p.Scopes = claims.Scopes
	return p, nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" value.
func BearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", ErrMissingCredentials
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", fmt.Errorf("%w: expected Bearer scheme", ErrTokenMalformed)
	}
	return parts[1], nil
}
