package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uninet-dev/campus-hub-api/internal/models"
	appErrors "github.com/uninet-dev/campus-hub-api/pkg/errors"
)

type moderationServiceMock struct {
	err          error
	deletedPosts []string
	bannedUsers  []string
}

func (m *moderationServiceMock) DeleteForumPost(ctx context.Context, postID string, actor *models.JWTClaims) error {
	if m.err != nil {
		return m.err
	}
	m.deletedPosts = append(m.deletedPosts, postID)
	return nil
}

func (m *moderationServiceMock) BanUser(ctx context.Context, userID string, actor *models.JWTClaims) error {
	if m.err != nil {
		return m.err
	}
	m.bannedUsers = append(m.bannedUsers, userID)
	return nil
}

func TestModerationHandlerDeleteForumPost(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &moderationServiceMock{}
	handler := NewModerationHandler(mockSvc)

	c, w := authedContext(http.MethodDelete, "/forum-posts/post-1", nil, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})
	c.Params = gin.Params{{Key: "id", Value: "post-1"}}
	handler.DeleteForumPost(c)
	c.Writer.WriteHeaderNow()

	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []string{"post-1"}, mockSvc.deletedPosts)
}

func TestModerationHandlerBanUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &moderationServiceMock{}
	handler := NewModerationHandler(mockSvc)

	c, w := authedContext(http.MethodPost, "/users/user-9/ban", nil, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})
	c.Params = gin.Params{{Key: "id", Value: "user-9"}}
	handler.BanUser(c)
	c.Writer.WriteHeaderNow()

	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []string{"user-9"}, mockSvc.bannedUsers)
}

func TestModerationHandlerBanUserConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &moderationServiceMock{err: appErrors.Clone(appErrors.ErrConflict, "account is already inactive")}
	handler := NewModerationHandler(mockSvc)

	c, w := authedContext(http.MethodPost, "/users/user-9/ban", nil, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})
	c.Params = gin.Params{{Key: "id", Value: "user-9"}}
	handler.BanUser(c)

	require.Equal(t, http.StatusConflict, w.Code)
}
