package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/uninet-dev/campus-hub-api/internal/models"
	appErrors "github.com/uninet-dev/campus-hub-api/pkg/errors"
	"github.com/uninet-dev/campus-hub-api/pkg/response"
)

type moderationService interface {
	DeleteForumPost(ctx context.Context, postID string, actor *models.JWTClaims) error
	BanUser(ctx context.Context, userID string, actor *models.JWTClaims) error
}

// ModerationHandler exposes the administrator moderation actions.
type ModerationHandler struct {
	service moderationService
}

// NewModerationHandler constructs the handler.
func NewModerationHandler(service moderationService) *ModerationHandler {
	return &ModerationHandler{service: service}
}

// DeleteForumPost godoc
// @Summary Delete an offending forum post
// @Tags Moderation
// @Param id path string true "Forum post ID"
// @Success 204
// @Router /forum-posts/{id} [delete]
func (h *ModerationHandler) DeleteForumPost(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.service.DeleteForumPost(c.Request.Context(), c.Param("id"), claims); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// BanUser godoc
// @Summary Deactivate an account and revoke its sessions
// @Tags Moderation
// @Param id path string true "User ID"
// @Success 204
// @Router /users/{id}/ban [post]
func (h *ModerationHandler) BanUser(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.service.BanUser(c.Request.Context(), c.Param("id"), claims); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
