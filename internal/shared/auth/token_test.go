package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func newTestTokens(t *testing.T) (*TokenService, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	svc, err := NewTokenService(TokenConfig{
		Secret:     []byte("test-secret-test-secret-test-secret"),
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 30 * 24 * time.Hour,
	}, clock.Now)
	require.NoError(t, err)
	return svc, clock
}

func TestIssueAndVerifyAccessToken(t *testing.T) {
	svc, clock := newTestTokens(t)

	tok, err := svc.Issue("user-1", AccessToken, "documents:read")
	require.NoError(t, err)
	assert.Equal(t, clock.now.Add(15*time.Minute), tok.ExpiresAt)

	claims, err := svc.Verify(tok.Value, AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, AccessToken, claims.Type)
	assert.Equal(t, []string{"documents:read"}, claims.Scopes)
	assert.Equal(t, tok.ID, claims.ID)
	assert.True(t, claims.ExpiresAt.After(claims.IssuedAt.Time))
	assert.False(t, claims.NotBefore.After(claims.IssuedAt.Time))
}

func TestIssueUsesFreshTokenIDs(t *testing.T) {
	svc, _ := newTestTokens(t)

	a, err := svc.Issue("user-1", AccessToken)
	require.NoError(t, err)
	b, err := svc.Issue("user-1", AccessToken)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
	assert.NotEqual(t, a.Value, b.Value)
}

func TestRefreshTokenUsesLongerTTL(t *testing.T) {
	svc, clock := newTestTokens(t)

	tok, err := svc.Issue("user-1", RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, clock.now.Add(30*24*time.Hour), tok.ExpiresAt)
}

func TestVerifyExpired(t *testing.T) {
	svc, clock := newTestTokens(t)

	tok, err := svc.Issue("user-1", AccessToken)
	require.NoError(t, err)

	clock.now = clock.now.Add(15*time.Minute + time.Second)
	_, err = svc.Verify(tok.Value, AccessToken)
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.NotErrorIs(t, err, ErrBadSignature)
}

func TestVerifyAlteredSignature(t *testing.T) {
	svc, _ := newTestTokens(t)

	tok, err := svc.Issue("user-1", AccessToken)
	require.NoError(t, err)

	parts := strings.Split(tok.Value, ".")
	require.Len(t, parts, 3)
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	_, err = svc.Verify(tampered, AccessToken)
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestVerifyExpiredAndTamperedIsBadSignature(t *testing.T) {
	svc, clock := newTestTokens(t)

	tok, err := svc.Issue("user-1", AccessToken)
	require.NoError(t, err)
	parts := strings.Split(tok.Value, ".")
	tampered := parts[0] + "." + parts[1] + "." + strings.Repeat("A", len(parts[2]))

	clock.now = clock.now.Add(time.Hour)
	_, err = svc.Verify(tampered, AccessToken)
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestVerifyForeignSecret(t *testing.T) {
	svc, clock := newTestTokens(t)
	other, err := NewTokenService(TokenConfig{
		Secret:     []byte("another-secret-another-secret-xx"),
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
	}, clock.Now)
	require.NoError(t, err)

	tok, err := other.Issue("user-1", AccessToken)
	require.NoError(t, err)

	_, err = svc.Verify(tok.Value, AccessToken)
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestVerifyRejectsNoneAlgorithm(t *testing.T) {
	svc, clock := newTestTokens(t)
	claims := Claims{
		Type: AccessToken,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ID:        "jti",
			IssuedAt:  jwt.NewNumericDate(clock.now),
			NotBefore: jwt.NewNumericDate(clock.now),
			ExpiresAt: jwt.NewNumericDate(clock.now.Add(time.Minute)),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.Verify(raw, AccessToken)
	assert.ErrorIs(t, err, ErrBadSignature)
}

func TestVerifyWrongType(t *testing.T) {
	svc, _ := newTestTokens(t)

	refresh, err := svc.Issue("user-1", RefreshToken)
	require.NoError(t, err)
	_, err = svc.Verify(refresh.Value, AccessToken)
	assert.ErrorIs(t, err, ErrWrongTokenType)

	access, err := svc.Issue("user-1", AccessToken)
	require.NoError(t, err)
	_, err = svc.Verify(access.Value, RefreshToken)
	assert.ErrorIs(t, err, ErrWrongTokenType)

	_, err = svc.Verify(refresh.Value, "")
	assert.NoError(t, err, "type check is skipped when no type is required")
}

func TestVerifyMalformed(t *testing.T) {
	svc, _ := newTestTokens(t)

	for _, raw := range []string{"", "abc", "a.b.c", "....."} {
		_, err := svc.Verify(raw, AccessToken)
		assert.ErrorIs(t, err, ErrTokenMalformed, "raw=%q", raw)
	}
}

func TestVerifyNotYetValid(t *testing.T) {
	svc, clock := newTestTokens(t)
	issuedAt := clock.now

	clock.now = issuedAt.Add(10 * time.Minute)
	tok, err := svc.Issue("user-1", AccessToken)
	require.NoError(t, err)

	clock.now = issuedAt
	_, err = svc.Verify(tok.Value, AccessToken)
	assert.ErrorIs(t, err, ErrTokenNotYetValid)
}

func TestIssueRejectsUnknownType(t *testing.T) {
	svc, _ := newTestTokens(t)

	_, err := svc.Issue("user-1", TokenType("session"))
	assert.Error(t, err)
	_, err = svc.Issue("", AccessToken)
	assert.Error(t, err)
}

func TestNewTokenServiceValidatesConfig(t *testing.T) {
	_, err := NewTokenService(TokenConfig{AccessTTL: time.Minute, RefreshTTL: time.Hour}, nil)
	assert.Error(t, err)
	_, err = NewTokenService(TokenConfig{Secret: []byte("s"), AccessTTL: 0, RefreshTTL: time.Hour}, nil)
	assert.Error(t, err)
}
