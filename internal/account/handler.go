package account

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"dochub-backend/internal/shared/server/middleware"
	"dochub-backend/internal/shared/server/respond"
	"dochub-backend/internal/users"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes mounts routes for the authenticated user.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.DELETE("/users/me", h.deleteMe)
}

// RegisterAdminRoutes mounts superuser routes.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.PUT("/users/:id/active", h.setActive)
}

type setActiveRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

func (h *Handler) deleteMe(c *gin.Context) {
	if _, err := h.Svc.DeleteAccount(c.Request.Context(), middleware.UserIDFromContext(c)); err != nil {
		writeError(c, "account.delete", err)
		return
	}
	respond.NoContent(c)
}

func (h *Handler) setActive(c *gin.Context) {
	var req setActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Validation(c, err)
		return
	}
	actor, ok := middleware.PrincipalFromContext(c)
	if !ok {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "Not authenticated", nil)
		return
	}
	user, err := h.Svc.SetActive(c.Request.Context(), actor, c.Param("id"), *req.IsActive)
	if err != nil {
		writeError(c, "account.set_active", err)
		return
	}
	respond.OK(c, users.ToResponse(user))
}

func writeError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, ErrForbidden):
		respond.Error(c, http.StatusForbidden, "forbidden", "Not enough privileges", nil)
	case errors.Is(err, ErrSelfDeactivate):
		respond.Error(c, http.StatusBadRequest, "cannot_deactivate_self", "Superusers cannot deactivate themselves", nil)
	case errors.Is(err, users.ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", "User not found", nil)
	default:
		respond.Internal(c, op, err)
	}
}
