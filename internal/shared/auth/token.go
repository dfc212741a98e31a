package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenType distinguishes short-lived access tokens from refresh tokens.
type TokenType string

const (
	AccessToken  TokenType = "access"
	RefreshToken TokenType = "refresh"
)

// Claims is the signed payload of every token.
type Claims struct {
	Type   TokenType `json:"type"`
	Scopes []string  `json:"scopes,omitempty"`
	jwt.RegisteredClaims
}

// IssuedToken is a signed token plus the metadata callers hand to clients.
type IssuedToken struct {
	Value     string
	ID        string
	ExpiresAt time.Time
}

// TokenConfig configures a TokenService.
type TokenConfig struct {
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Issuer     string
}

// TokenService issues and verifies HS256 tokens. It holds no mutable state
// and is safe for concurrent use.
type TokenService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	issuer     string
	now        func() time.Time
	parser     *jwt.Parser
}

// NewTokenService validates cfg and builds a service. now defaults to time.Now.
func NewTokenService(cfg TokenConfig, now func() time.Time) (*TokenService, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("token secret is required")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("token ttls must be positive")
	}
	if now == nil {
		now = time.Now
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(now),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	return &TokenService{
		secret:     cfg.Secret,
		accessTTL:  cfg.AccessTTL,
		refreshTTL: cfg.RefreshTTL,
		issuer:     cfg.Issuer,
		now:        now,
		parser:     jwt.NewParser(opts...),
	}, nil
}

// Issue signs a token of typ for subject.
func (s *TokenService) Issue(subject string, typ TokenType, scopes ...string) (IssuedToken, error) {
	if subject == "" {
		return IssuedToken{}, errors.New("token subject is required")
	}
	var ttl time.Duration
	switch typ {
	case AccessToken:
		ttl = s.accessTTL
	case RefreshToken:
		ttl = s.refreshTTL
	default:
		return IssuedToken{}, fmt.Errorf("unknown token type %q", typ)
	}

	now := s.now().UTC().Truncate(time.Second)
	claims := Claims{
		Type:   typ,
		Scopes: scopes,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return IssuedToken{}, fmt.Errorf("sign token: %w", err)
	}
	return IssuedToken{Value: signed, ID: claims.ID, ExpiresAt: claims.ExpiresAt.Time}, nil
}

// Verify checks signature and time claims, then the token type when want is
// non-empty. Errors are one of ErrBadSignature, ErrTokenExpired,
// ErrTokenNotYetValid, ErrTokenMalformed or ErrWrongTokenType.
func (s *TokenService) Verify(raw string, want TokenType) (*Claims, error) {
	claims := &Claims{}
	_, err := s.parser.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, classifyTokenError(err)
	}

	if claims.Subject == "" || claims.ID == "" || claims.IssuedAt == nil || claims.NotBefore == nil {
		return nil, fmt.Errorf("%w: missing required claims", ErrTokenMalformed)
	}
	if !claims.ExpiresAt.After(claims.IssuedAt.Time) || claims.NotBefore.After(claims.IssuedAt.Time) {
		return nil, fmt.Errorf("%w: inconsistent time claims", ErrTokenMalformed)
	}
	switch claims.Type {
	case AccessToken, RefreshToken:
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrTokenMalformed, claims.Type)
	}
	if want != "" && claims.Type != want {
		return nil, fmt.Errorf("%w: got %s, want %s", ErrWrongTokenType, claims.Type, want)
	}
	return claims, nil
}

func classifyTokenError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrTokenExpired, err)
	case errors.Is(err, jwt.ErrTokenNotValidYet), errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return fmt.Errorf("%w: %v", ErrTokenNotYetValid, err)
	default:
		return fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}
}
