package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pquerna/otp/totp"
	"github.com/rohit-patil-code/AI-Blog-Editor/internal/apperrors"
	"github.com/rohit-patil-code/AI-Blog-Editor/internal/config"
	"github.com/rohit-patil-code/AI-Blog-Editor/internal/models"
	"github.com/rohit-patil-code/AI-Blog-Editor/internal/security"
	"gorm.io/gorm"
)

// AuthHandler handles user authentication endpoints.
type AuthHandler struct {
	db     *gorm.DB
	jwtCfg config.JWTConfig
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(db *gorm.DB, jwtCfg config.JWTConfig) *AuthHandler {
	return &AuthHandler{db: db, jwtCfg: jwtCfg}
}

// registerRequest defines the request body for user registration.
type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates a new user account on the free tier.
func (h *AuthHandler) Register(c *gin.Context) {
	var body registerRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		RenderError(c, apperrors.Validation("invalid json"))
		return
	}
	username := strings.TrimSpace(body.Username)
	if username == "" {
		RenderError(c, apperrors.Validation("missing username"))
		return
	}
	password := strings.TrimSpace(body.Password)
	if len(password) < 8 {
		RenderError(c, apperrors.Validation("password must be at least 8 characters"))
		return
	}

	var exists models.User
	if errCheck := h.db.WithContext(c.Request.Context()).Where("username = ?", username).First(&exists).Error; errCheck == nil {
		c.JSON(http.StatusConflict, gin.H{
			"error": gin.H{"code": "conflict", "message": "username already exists"},
		})
		return
	}

	hash, errHash := security.HashPassword(password)
	if errHash != nil {
		RenderError(c, apperrors.Internal("hash password failed", errHash))
		return
	}

	now := time.Now().UTC()
	user := models.User{
		Username:         username,
		Email:            strings.TrimSpace(body.Email),
		Password:         hash,
		SubscriptionTier: models.TierFree,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&user).Error; errCreate != nil {
		RenderError(c, apperrors.Internal("create user failed", errCreate))
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":       user.ID,
		"username": user.Username,
		"email":    user.Email,
		"tier":     user.SubscriptionTier,
	})
}

// loginRequest defines the request body for login.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login authenticates a user and issues a JWT if TOTP is not enabled.
func (h *AuthHandler) Login(c *gin.Context) {
	var body loginRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		RenderError(c, apperrors.Validation("invalid json"))
		return
	}
	username := strings.TrimSpace(body.Username)
	password := strings.TrimSpace(body.Password)
	if username == "" || password == "" {
		RenderError(c, apperrors.Validation("missing username or password"))
		return
	}

	var user models.User
	if errFind := h.db.WithContext(c.Request.Context()).Where("username = ?", username).First(&user).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			RenderError(c, apperrors.Unauthenticated("invalid credentials"))
			return
		}
		RenderError(c, apperrors.Internal("query failed", errFind))
		return
	}

	if user.Disabled {
		RenderError(c, apperrors.Forbidden("user disabled"))
		return
	}

	if !security.CheckPassword(user.Password, password) {
		RenderError(c, apperrors.Unauthenticated("invalid credentials"))
		return
	}

	if strings.TrimSpace(user.TOTPSecret) != "" {
		RenderError(c, apperrors.Forbidden("mfa required"))
		return
	}

	h.respondWithUserToken(c, user)
}

// loginTotpRequest defines the request body for TOTP login.
type loginTotpRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Code     string `json:"code"`
}

// LoginTOTP authenticates a user with password and TOTP code.
func (h *AuthHandler) LoginTOTP(c *gin.Context) {
	var body loginTotpRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		RenderError(c, apperrors.Validation("invalid json"))
		return
	}
	username := strings.TrimSpace(body.Username)
	password := strings.TrimSpace(body.Password)
	code := strings.TrimSpace(body.Code)
	if username == "" || password == "" || code == "" {
		RenderError(c, apperrors.Validation("username, password and code are required"))
		return
	}

	var user models.User
	if errFind := h.db.WithContext(c.Request.Context()).Where("username = ?", username).First(&user).Error; errFind != nil {
		RenderError(c, apperrors.Unauthenticated("invalid credentials"))
		return
	}
	if user.Disabled {
		RenderError(c, apperrors.Forbidden("user disabled"))
		return
	}
	if !security.CheckPassword(user.Password, password) {
		RenderError(c, apperrors.Unauthenticated("invalid credentials"))
		return
	}
	if strings.TrimSpace(user.TOTPSecret) == "" {
		RenderError(c, apperrors.Unauthenticated("totp not enabled"))
		return
	}
	if !totp.Validate(code, user.TOTPSecret) {
		RenderError(c, apperrors.Unauthenticated("invalid code"))
		return
	}

	h.respondWithUserToken(c, user)
}

// resetPasswordRequest defines the request body for password resets.
type resetPasswordRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	NewPassword string `json:"new_password"`
}

// ResetPassword updates a user's password after username/email verification.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var body resetPasswordRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		RenderError(c, apperrors.Validation("invalid json"))
		return
	}
	username := strings.TrimSpace(body.Username)
	email := strings.TrimSpace(body.Email)
	newPassword := strings.TrimSpace(body.NewPassword)
	if username == "" || email == "" || newPassword == "" {
		RenderError(c, apperrors.Validation("missing required fields"))
		return
	}

	var user models.User
	if errFind := h.db.WithContext(c.Request.Context()).Where("username = ? AND email = ?", username, email).First(&user).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			RenderError(c, apperrors.NotFound("user not found"))
			return
		}
		RenderError(c, apperrors.Internal("query failed", errFind))
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
		RenderError(c, apperrors.Internal("reset password failed", errUpdate))
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// respondWithUserToken generates a JWT and responds with user info.
func (h *AuthHandler) respondWithUserToken(c *gin.Context, user models.User) {
	token, errToken := security.GenerateToken(h.jwtCfg.Secret, user.ID, user.Username, user.Email, h.jwtCfg.Expiry)
	if errToken != nil {
		RenderError(c, apperrors.Internal("generate token failed", errToken))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":  user.ID,
		"username": user.Username,
		"email":    user.Email,
		"tier":     user.SubscriptionTier,
		"token":    token,
	})
}
