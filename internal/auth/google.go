package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"dochub-backend/internal/shared/server/respond"
	"dochub-backend/internal/shared/telemetry"
	"dochub-backend/internal/users"
)

const stateCookie = "oauth_state"

// Accounts links an external identity to a local user and issues our own
// token pair for it.
type Accounts interface {
	LinkExternal(ctx context.Context, email, usernameHint string) (users.User, error)
	IssueSession(user users.User) (users.Session, error)
}

// GoogleService handles Google OAuth flows.
type GoogleService struct {
	oauthConfig *oauth2.Config
	uiRedirect  string
	stateTTL    time.Duration
	stateStore  *stateStore
	accounts    Accounts
	userInfoURL string
}

// NewGoogleService builds a GoogleService.
func NewGoogleService(clientID, clientSecret, redirectURL, uiRedirect string, accounts Accounts) *GoogleService {
	return &GoogleService{
		oauthConfig: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
		uiRedirect:  uiRedirect,
		stateTTL:    5 * time.Minute,
		stateStore:  newStateStore(nil),
		accounts:    accounts,
		userInfoURL: "https://www.googleapis.com/oauth2/v2/userinfo",
	}
}

// Enabled reports whether client credentials are configured.
func (s *GoogleService) Enabled() bool {
	return s.oauthConfig.ClientID != "" && s.oauthConfig.ClientSecret != "" && s.oauthConfig.RedirectURL != ""
}

// RegisterRoutes attaches Google auth routes to the /auth group.
func (s *GoogleService) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/google/login", s.start)
	rg.GET("/google/callback", s.callback)
}

func (s *GoogleService) start(c *gin.Context) {
	if !s.Enabled() {
		respond.Error(c, http.StatusInternalServerError, "auth_not_configured", "Google auth not configured", nil)
		return
	}

	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()
	if !s.stateStore.put(state, verifier, s.stateTTL) {
		respond.Error(c, http.StatusServiceUnavailable, "auth_busy", "Too many pending sign-ins", nil)
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookie, state, int(s.stateTTL.Seconds()), "/", "", c.Request.TLS != nil, true)

	c.Redirect(http.StatusFound, s.oauthConfig.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier)))
}

func (s *GoogleService) callback(c *gin.Context) {
	state := c.Query("state")
	code := c.Query("code")
	if state == "" || code == "" {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "missing state or code", nil)
		return
	}

	if cookie, err := c.Cookie(stateCookie); err != nil || cookie != state {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "state mismatch", nil)
		return
	}
	c.SetCookie(stateCookie, "", -1, "/", "", c.Request.TLS != nil, true)
	verifier, ok := s.stateStore.consume(state)
	if !ok {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "invalid or expired state", nil)
		return
	}

	ctx := c.Request.Context()
	token, err := s.oauthConfig.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "failed to exchange code", nil)
		return
	}

	userInfo, err := s.fetchUserInfo(ctx, token)
	if err != nil {
		respond.Error(c, http.StatusBadGateway, "auth_failed", "failed to fetch user profile", nil)
		return
	}

	if userInfo.Sub == "" || userInfo.Email == "" || !userInfo.VerifiedEmail {
		respond.Error(c, http.StatusBadGateway, "auth_failed", "google account has no verified email", nil)
		return
	}

	user, err := s.accounts.LinkExternal(ctx, userInfo.Email, userInfo.Name)
	if err != nil {
		respond.Internal(c, "auth.google.link", err)
		return
	}
	if !user.IsActive {
		respond.Error(c, http.StatusForbidden, "inactive_user", "User account is inactive", nil)
		return
	}
	session, err := s.accounts.IssueSession(user)
	if err != nil {
		respond.Internal(c, "auth.google.issue", err)
		return
	}

	redirectURL, err := appendTokens(s.uiRedirect, session.Access.Value, session.Refresh.Value)
	if err != nil {
		respond.Internal(c, "auth.google.redirect", err)
		return
	}

	telemetry.Info("auth.google.login", map[string]any{"user_id": user.ID})
	c.Redirect(http.StatusFound, redirectURL)
}

type googleUserInfo struct {
	Sub           string `json:"sub"`
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

func (s *GoogleService) fetchUserInfo(ctx context.Context, token *oauth2.Token) (googleUserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.userInfoURL, nil)
	if err != nil {
		return googleUserInfo{}, err
	}
	resp, err := s.oauthConfig.Client(ctx, token).Do(req)
	if err != nil {
		return googleUserInfo{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return googleUserInfo{}, fmt.Errorf("userinfo status %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return googleUserInfo{}, err
	}

	// The v2 endpoint reports the subject as "id".
	if info.Sub == "" {
		info.Sub = info.ID
	}
	return info, nil
}

// appendTokens puts the token pair in the URL fragment so it never reaches
// server logs or Referer headers.
func appendTokens(rawURL, access, refresh string) (string, error) {
	if rawURL == "" {
		return "", errors.New("redirect url required")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	frag := url.Values{}
	frag.Set("access_token", access)
	frag.Set("refresh_token", refresh)
	frag.Set("token_type", "bearer")
	u.Fragment = ""
	u.RawFragment = ""
	return u.String() + "#" + frag.Encode(), nil
}
