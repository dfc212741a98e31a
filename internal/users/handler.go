package users

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"dochub-backend/internal/shared/server/middleware"
	"dochub-backend/internal/shared/server/respond"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterAuthRoutes mounts the unauthenticated /auth endpoints.
func (h *Handler) RegisterAuthRoutes(rg *gin.RouterGroup) {
	rg.POST("/register", h.register)
	rg.POST("/login", h.login)
	rg.POST("/refresh", h.refresh)
}

// RegisterRoutes mounts endpoints that need a resolved principal.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/users/me", h.me)
	rg.PUT("/users/me", h.updateMe)
}

func (h *Handler) register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Validation(c, err)
		return
	}
	user, err := h.Svc.Register(c.Request.Context(), RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(c, "users.register", err)
		return
	}
	respond.Created(c, ToResponse(user))
}

func (h *Handler) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Validation(c, err)
		return
	}
	session, err := h.Svc.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		writeError(c, "users.login", err)
		return
	}
	c.Set("userId", session.User.ID)
	respond.OK(c, toTokenResponse(session))
}

func (h *Handler) refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Validation(c, err)
		return
	}
	session, err := h.Svc.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		writeError(c, "users.refresh", err)
		return
	}
	respond.OK(c, toTokenResponse(session))
}

func (h *Handler) me(c *gin.Context) {
	user, err := h.Svc.GetByID(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		writeError(c, "users.me", err)
		return
	}
	respond.OK(c, ToResponse(user))
}

func (h *Handler) updateMe(c *gin.Context) {
	var req UpdateMeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Validation(c, err)
		return
	}
	user, err := h.Svc.UpdateProfile(c.Request.Context(), middleware.UserIDFromContext(c), ProfileUpdate{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(c, "users.update_me", err)
		return
	}
	respond.OK(c, ToResponse(user))
}

func writeError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, ErrUsernameTaken):
		respond.Error(c, http.StatusBadRequest, "username_taken", "Username already registered", nil)
	case errors.Is(err, ErrEmailTaken):
		respond.Error(c, http.StatusBadRequest, "email_taken", "Email already registered", nil)
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusUnprocessableEntity, "validation_error", err.Error(), nil)
	case errors.Is(err, ErrInvalidCredentials):
		respond.Error(c, http.StatusBadRequest, "invalid_credentials", "Incorrect username or password", nil)
	case errors.Is(err, ErrInactive):
		respond.Error(c, http.StatusBadRequest, "inactive_user", "User account is inactive", nil)
	case errors.Is(err, ErrInvalidRefresh):
		c.Header("WWW-Authenticate", `Bearer error="invalid_token"`)
		respond.Error(c, http.StatusUnauthorized, "invalid_token", "Invalid refresh token", nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "User not found", nil)
	default:
		respond.Internal(c, op, err)
	}
}
