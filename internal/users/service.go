package users

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"

	"dochub-backend/internal/shared/auth"
	"dochub-backend/internal/shared/metrics"
)

const (
	MinPasswordLen = 8
	MaxPasswordLen = 100
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,50}$`)

// ValidUsername reports whether s matches the username rules.
func ValidUsername(s string) bool {
	return usernamePattern.MatchString(s)
}

// Session is the token pair handed out on login and refresh.
type Session struct {
	User    User
	Access  auth.IssuedToken
	Refresh auth.IssuedToken
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

// ProfileUpdate carries optional changes; nil fields are left alone.
type ProfileUpdate struct {
	Email    *string
	Password *string
}

type Service struct {
	Repo   Repo
	Hasher *auth.PasswordHasher
	Tokens *auth.TokenService

	dummyOnce sync.Once
	dummyHash string
}

func NewService(repo Repo, hasher *auth.PasswordHasher, tokens *auth.TokenService) *Service {
	return &Service{Repo: repo, Hasher: hasher, Tokens: tokens}
}

// Register creates an active, non-superuser account.
func (s *Service) Register(ctx context.Context, in RegisterInput) (User, error) {
	username := strings.TrimSpace(in.Username)
	email := normalizeEmail(in.Email)
	if !ValidUsername(username) {
		return User{}, fmt.Errorf("%w: username", ErrInvalidInput)
	}
	if email == "" || !strings.Contains(email, "@") {
		return User{}, fmt.Errorf("%w: email", ErrInvalidInput)
	}
	if err := validatePassword(in.Password); err != nil {
		return User{}, err
	}

	hash, err := s.Hasher.Hash(in.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidPassword) {
			return User{}, fmt.Errorf("%w: password", ErrInvalidInput)
		}
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	return s.Repo.Create(ctx, User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
	})
}

// Login checks credentials and issues a session. Unknown users and wrong
// passwords are indistinguishable; an inactive account is reported only
// after the password matched.
func (s *Service) Login(ctx context.Context, username, password string) (Session, error) {
	user, err := s.Repo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.Hasher.Verify(password, s.timingHash())
			metrics.IncAuthFailure("bad_credentials")
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, err
	}
	if !s.Hasher.Verify(password, user.PasswordHash) {
		metrics.IncAuthFailure("bad_credentials")
		return Session{}, ErrInvalidCredentials
	}
	if !user.IsActive {
		metrics.IncAuthFailure("inactive")
		return Session{}, ErrInactive
	}
	return s.IssueSession(user)
}

// Refresh exchanges a valid refresh token for a new session.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	claims, err := s.Tokens.Verify(refreshToken, auth.RefreshToken)
	if err != nil {
		metrics.IncAuthFailure("bad_refresh")
		return Session{}, fmt.Errorf("%w: %w", ErrInvalidRefresh, err)
	}
	user, err := s.Repo.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Session{}, ErrInvalidRefresh
		}
		return Session{}, err
	}
	if !user.IsActive {
		return Session{}, ErrInactive
	}
	return s.IssueSession(user)
}

// IssueSession signs an access and a refresh token for user.
func (s *Service) IssueSession(user User) (Session, error) {
	access, err := s.Tokens.Issue(user.ID, auth.AccessToken)
	if err != nil {
		return Session{}, err
	}
	refresh, err := s.Tokens.Issue(user.ID, auth.RefreshToken)
	if err != nil {
		return Session{}, err
	}
	return Session{User: user, Access: access, Refresh: refresh}, nil
}

func (s *Service) GetByID(ctx context.Context, userID string) (User, error) {
	if strings.TrimSpace(userID) == "" {
		return User{}, ErrNotFound
	}
	return s.Repo.GetByID(ctx, userID)
}

// UpdateProfile changes email and/or password.
func (s *Service) UpdateProfile(ctx context.Context, userID string, in ProfileUpdate) (User, error) {
	user, err := s.Repo.GetByID(ctx, userID)
	if err != nil {
		return User{}, err
	}
	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		if email == "" || !strings.Contains(email, "@") {
			return User{}, fmt.Errorf("%w: email", ErrInvalidInput)
		}
		user.Email = email
	}
	if in.Password != nil {
		if err := validatePassword(*in.Password); err != nil {
			return User{}, err
		}
		hash, err := s.Hasher.Hash(*in.Password)
		if err != nil {
			return User{}, fmt.Errorf("%w: password", ErrInvalidInput)
		}
		user.PasswordHash = hash
	}
	return s.Repo.Update(ctx, user)
}

// SetActive flips the active flag of userID.
func (s *Service) SetActive(ctx context.Context, userID string, active bool) (User, error) {
	user, err := s.Repo.GetByID(ctx, userID)
	if err != nil {
		return User{}, err
	}
	user.IsActive = active
	return s.Repo.Update(ctx, user)
}

// LoadPrincipal implements auth.PrincipalLoader.
func (s *Service) LoadPrincipal(ctx context.Context, userID string) (auth.Principal, error) {
	user, err := s.Repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return auth.Principal{}, auth.ErrPrincipalNotFound
		}
		return auth.Principal{}, err
	}
	return auth.Principal{
		ID:          user.ID,
		Username:    user.Username,
		Email:       user.Email,
		IsActive:    user.IsActive,
		IsSuperuser: user.IsSuperuser,
	}, nil
}

// LinkExternal returns the user owning email, creating one with an unusable
// random password when none exists. usernameHint seeds the new username.
func (s *Service) LinkExternal(ctx context.Context, email, usernameHint string) (User, error) {
	email = normalizeEmail(email)
	if email == "" {
		return User{}, fmt.Errorf("%w: email", ErrInvalidInput)
	}
	user, err := s.Repo.GetByEmail(ctx, email)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return User{}, err
	}

	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return User{}, err
	}
	hash, err := s.Hasher.Hash(hex.EncodeToString(secret))
	if err != nil {
		return User{}, err
	}

	base := usernameFromHint(usernameHint, email)
	for attempt := 0; attempt < 5; attempt++ {
		username := base
		if attempt > 0 {
			username = fmt.Sprintf("%s-%s", truncate(base, 41), uuid.NewString()[:8])
		}
		user, err = s.Repo.Create(ctx, User{
			ID:           uuid.NewString(),
			Username:     username,
			Email:        email,
			PasswordHash: hash,
			IsActive:     true,
		})
		if !errors.Is(err, ErrUsernameTaken) {
			return user, err
		}
	}
	return User{}, err
}

func (s *Service) timingHash() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.Hasher.Hash("timing-equalizer-password")
	})
	return s.dummyHash
}

func validatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	if n < MinPasswordLen || n > MaxPasswordLen {
		return fmt.Errorf("%w: password must be %d-%d characters", ErrInvalidInput, MinPasswordLen, MaxPasswordLen)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func usernameFromHint(hint, email string) string {
	if hint == "" {
		hint = strings.SplitN(email, "@", 2)[0]
	}
	var b strings.Builder
	for _, r := range hint {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		case r == '.' || r == ' ':
			b.WriteRune('_')
		}
	}
	name := truncate(b.String(), 50)
	for len(name) < 3 {
		name += "_"
	}
	return name
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
