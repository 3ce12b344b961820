package handlers

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image/png"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pquerna/otp/totp"
	"github.com/rohit-patil-code/AI-Blog-Editor/internal/apperrors"
	"github.com/rohit-patil-code/AI-Blog-Editor/internal/models"
	"gorm.io/gorm"
)

// totpIssuer is the issuer shown in authenticator apps.
const totpIssuer = "AI Blog Editor"

// MFAHandler handles TOTP enrollment endpoints.
type MFAHandler struct {
	db *gorm.DB
}

// NewMFAHandler constructs an MFAHandler.
func NewMFAHandler(db *gorm.DB) *MFAHandler {
	return &MFAHandler{db: db}
}

// secretEntry stores a TOTP secret with expiry.
type secretEntry struct {
	secret  string
	expires time.Time
}

// secretStore keeps pending TOTP secrets in memory until confirmed.
type secretStore struct {
	mu    sync.Mutex
	items map[string]secretEntry
}

// newSecretStore creates an empty secret store.
func newSecretStore() *secretStore {
	return &secretStore{items: make(map[string]secretEntry)}
}

// Set stores a secret with a 10 minute expiry.
func (s *secretStore) Set(key, secret string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = secretEntry{secret: secret, expires: time.Now().Add(10 * time.Minute)}
}

// Get returns a secret if present and not expired.
func (s *secretStore) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.items[key]
	if !ok {
		return "", false
	}
	if time.Now().After(entry.expires) {
		delete(s.items, key)
		return "", false
	}
	return entry.secret, true
}

// Delete removes a secret entry.
func (s *secretStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
}

// totpPendingSecrets stores pending TOTP secrets for confirmation.
var totpPendingSecrets = newSecretStore()

// Status returns MFA enablement status for the user.
func (h *MFAHandler) Status(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		RenderError(c, apperrors.Unauthenticated("unauthorized"))
		return
	}

	var user models.User
	if errFind := h.db.WithContext(c.Request.Context()).Select("id", "totp_secret").First(&user, userID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			RenderError(c, apperrors.NotFound("user not found"))
			return
		}
		RenderError(c, apperrors.Internal("query failed", errFind))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"totp_enabled": strings.TrimSpace(user.TOTPSecret) != "",
	})
}

// PrepareTOTP generates a new TOTP secret and QR code.
func (h *MFAHandler) PrepareTOTP(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		RenderError(c, apperrors.Unauthenticated("unauthorized"))
		return
	}

	var user models.User
	if errFind := h.db.WithContext(c.Request.Context()).Select("id", "username").First(&user, userID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			RenderError(c, apperrors.NotFound("user not found"))
			return
		}
		RenderError(c, apperrors.Internal("query failed", errFind))
		return
	}

	key, errGenerate := totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: user.Username,
	})
	if errGenerate != nil {
		RenderError(c, apperrors.Internal("generate totp secret failed", errGenerate))
		return
	}

	totpPendingSecrets.Set(fmt.Sprintf("%d", user.ID), key.Secret())
	qrImage := ""
	if img, errImage := key.Image(220, 220); errImage == nil {
		var buf bytes.Buffer
		if errEncode := png.Encode(&buf, img); errEncode == nil {
			qrImage = "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"secret":      key.Secret(),
		"otpauth_url": key.URL(),
		"qr_image":    qrImage,
	})
}

// totpConfirmRequest defines the request body for confirming TOTP.
type totpConfirmRequest struct {
	Code string `json:"code"`
}

// ConfirmTOTP validates the pending secret and enables TOTP for the user.
func (h *MFAHandler) ConfirmTOTP(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		RenderError(c, apperrors.Unauthenticated("unauthorized"))
		return
	}
	var body totpConfirmRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		RenderError(c, apperrors.Validation("invalid json"))
		return
	}
	code := strings.TrimSpace(body.Code)
	if code == "" {
		RenderError(c, apperrors.Validation("missing code"))
		return
	}

	secret, ok := totpPendingSecrets.Get(fmt.Sprintf("%d", userID))
	if !ok {
		RenderError(c, apperrors.Validation("totp setup expired"))
		return
	}

	if !totp.Validate(code, secret) {
		RenderError(c, apperrors.Unauthenticated("invalid code"))
		return
	}

	if errUpdate := h.db.WithContext(c.Request.Context()).Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{"totp_secret": secret, "updated_at": time.Now().UTC()}).Error; errUpdate != nil {
		RenderError(c, apperrors.Internal("update failed", errUpdate))
		return
	}

	totpPendingSecrets.Delete(fmt.Sprintf("%d", userID))
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// DisableTOTP removes the user's TOTP secret.
func (h *MFAHandler) DisableTOTP(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		RenderError(c, apperrors.Unauthenticated("unauthorized"))
		return
	}

	res := h.db.WithContext(c.Request.Context()).Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"totp_secret": "",
			"updated_at":  time.Now().UTC(),
		})
	if res.Error != nil {
		RenderError(c, apperrors.Internal("update failed", res.Error))
		return
	}
	if res.RowsAffected == 0 {
		RenderError(c, apperrors.NotFound("user not found"))
		return
	}

	totpPendingSecrets.Delete(fmt.Sprintf("%d", userID))
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
