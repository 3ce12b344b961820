package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rohit-patil-code/AI-Blog-Editor/internal/apperrors"
	"github.com/rohit-patil-code/AI-Blog-Editor/internal/models"
	"github.com/rohit-patil-code/AI-Blog-Editor/internal/security"
	"gorm.io/gorm"
)

// ProfileHandler handles user profile endpoints.
type ProfileHandler struct {
	db *gorm.DB
}

// NewProfileHandler constructs a ProfileHandler.
func NewProfileHandler(db *gorm.DB) *ProfileHandler {
	return &ProfileHandler{db: db}
}

// Get returns the current user's profile.
func (h *ProfileHandler) Get(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		RenderError(c, apperrors.Unauthenticated("unauthorized"))
		return
	}

	var user models.User
	if errFind := h.db.WithContext(c.Request.Context()).First(&user, userID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			RenderError(c, apperrors.NotFound("user not found"))
			return
		}
		RenderError(c, apperrors.Internal("query failed", errFind))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":         user.ID,
		"username":   user.Username,
		"email":      user.Email,
		"tier":       user.Tier(),
		"disabled":   user.Disabled,
		"created_at": user.CreatedAt,
		"updated_at": user.UpdatedAt,
	})
}

// changePasswordRequest defines the request body for password changes.
type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// ChangePassword verifies and updates the user's password.
func (h *ProfileHandler) ChangePassword(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		RenderError(c, apperrors.Unauthenticated("unauthorized"))
		return
	}

	var body changePasswordRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		RenderError(c, apperrors.Validation("invalid json"))
		return
	}
	oldPassword := strings.TrimSpace(body.OldPassword)
	newPassword := strings.TrimSpace(body.NewPassword)
	if oldPassword == "" || newPassword == "" {
		RenderError(c, apperrors.Validation("missing password"))
		return
	}

	var user models.User
	if errFind := h.db.WithContext(c.Request.Context()).First(&user, userID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			RenderError(c, apperrors.NotFound("user not found"))
			return
		}
		RenderError(c, apperrors.Internal("query failed", errFind))
		return
	}

	if !security.CheckPassword(user.Password, oldPassword) {
		RenderError(c, apperrors.Unauthenticated("old password incorrect"))
		return
	}

	hash, errHash := security.HashPassword(newPassword)
	if errHash != nil {
		RenderError(c, apperrors.Internal("hash password failed", errHash))
		return
	}

	if errUpdate := h.db.WithContext(c.Request.Context()).Model(&user).Updates(map[string]any{
		"password":   hash,
		"updated_at": time.Now().UTC(),
	}).Error; errUpdate != nil {
		RenderError(c, apperrors.Internal("change password failed", errUpdate))
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}
