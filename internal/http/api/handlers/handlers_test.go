package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/rohit-patil-code/AI-Blog-Editor/internal/config"
	"github.com/rohit-patil-code/AI-Blog-Editor/internal/models"
	"github.com/rohit-patil-code/AI-Blog-Editor/internal/security"
	"gorm.io/gorm"
)

func setupHandlerDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:handlers_%d?mode=memory&cache=shared", time.Now().UnixNano())
	conn, errOpen := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := conn.AutoMigrate(&models.User{}, &models.Post{}, &models.AIUsage{}); errMigrate != nil {
		t.Fatalf("migrate db: %v", errMigrate)
	}
	return conn
}

func createTestUser(t *testing.T, conn *gorm.DB, username, password string) models.User {
	t.Helper()
	hash, errHash := security.HashPassword(password)
	if errHash != nil {
		t.Fatalf("hash password: %v", errHash)
	}
	now := time.Now().UTC()
	user := models.User{
		Username:         username,
		Email:            username + "@example.com",
		Password:         hash,
		SubscriptionTier: models.TierFree,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if errCreate := conn.Create(&user).Error; errCreate != nil {
		t.Fatalf("create user: %v", errCreate)
	}
	return user
}

// asUser injects the user ID the way the auth middleware does.
func asUser(userID uint64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userID", userID)
		c.Next()
	}
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, errMarshal := json.Marshal(body)
		if errMarshal != nil {
			t.Fatalf("marshal body: %v", errMarshal)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "test-secret", ExpiryHours: 1, Expiry: time.Hour}
}

func TestRegisterAndLogin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	conn := setupHandlerDB(t)
	handler := NewAuthHandler(conn, testJWTConfig())

	router := gin.New()
	router.POST("/v0/auth/register", handler.Register)
	router.POST("/v0/auth/login", handler.Login)

	w := doJSON(t, router, http.MethodPost, "/v0/auth/register", gin.H{
		"username": "alice", "email": "alice@example.com", "password": "hunter2hunter2",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var created struct {
		Tier string `json:"tier"`
	}
	if errDecode := json.Unmarshal(w.Body.Bytes(), &created); errDecode != nil {
		t.Fatalf("decode register response: %v", errDecode)
	}
	if created.Tier != models.TierFree {
		t.Fatalf("expected free tier, got %q", created.Tier)
	}

	// Duplicate username.
	w = doJSON(t, router, http.MethodPost, "/v0/auth/register", gin.H{
		"username": "alice", "password": "hunter2hunter2",
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate register: expected 409, got %d", w.Code)
	}

	// Short password.
	w = doJSON(t, router, http.MethodPost, "/v0/auth/register", gin.H{
		"username": "bob", "password": "short",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("short password: expected 400, got %d", w.Code)
	}

	w = doJSON(t, router, http.MethodPost, "/v0/auth/login", gin.H{
		"username": "alice", "password": "hunter2hunter2",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var login struct {
		Token string `json:"token"`
	}
	if errDecode := json.Unmarshal(w.Body.Bytes(), &login); errDecode != nil {
		t.Fatalf("decode login response: %v", errDecode)
	}
	if login.Token == "" {
		t.Fatalf("expected a token")
	}
	claims, errParse := security.ParseToken("test-secret", login.Token)
	if errParse != nil {
		t.Fatalf("parse issued token: %v", errParse)
	}
	if claims.Username != "alice" {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	w = doJSON(t, router, http.MethodPost, "/v0/auth/login", gin.H{
		"username": "alice", "password": "wrong",
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad password: expected 401, got %d", w.Code)
	}
}

func TestLoginRequiresTOTPWhenEnabled(t *testing.T) {
	gin.SetMode(gin.TestMode)
	conn := setupHandlerDB(t)
	user := createTestUser(t, conn, "mfa-user", "hunter2hunter2")
	if errUpdate := conn.Model(&models.User{}).Where("id = ?", user.ID).
		Update("totp_secret", "JBSWY3DPEHPK3PXP").Error; errUpdate != nil {
		t.Fatalf("enable totp: %v", errUpdate)
	}

	handler := NewAuthHandler(conn, testJWTConfig())
	router := gin.New()
	router.POST("/v0/auth/login", handler.Login)

	w := doJSON(t, router, http.MethodPost, "/v0/auth/login", gin.H{
		"username": "mfa-user", "password": "hunter2hunter2",
	})
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 mfa required, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if errDecode := json.Unmarshal(w.Body.Bytes(), &resp); errDecode != nil {
		t.Fatalf("decode response: %v", errDecode)
	}
	if resp.Error.Message != "mfa required" {
		t.Fatalf("expected mfa required, got %q", resp.Error.Message)
	}
}

func TestPostsCRUDOwnerScoped(t *testing.T) {
	gin.SetMode(gin.TestMode)
	conn := setupHandlerDB(t)
	owner := createTestUser(t, conn, "owner", "hunter2hunter2")
	stranger := createTestUser(t, conn, "stranger", "hunter2hunter2")

	handler := NewPostHandler(conn)
	newRouter := func(userID uint64) *gin.Engine {
		router := gin.New()
		router.Use(asUser(userID))
		router.GET("/v0/posts", handler.List)
		router.POST("/v0/posts", handler.Create)
		router.GET("/v0/posts/:id", handler.Get)
		router.PUT("/v0/posts/:id", handler.Update)
		router.DELETE("/v0/posts/:id", handler.Delete)
		return router
	}
	ownerRouter := newRouter(owner.ID)
	strangerRouter := newRouter(stranger.ID)

	w := doJSON(t, ownerRouter, http.MethodPost, "/v0/posts", gin.H{
		"title": "First draft", "content": "hello world",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var post struct {
		ID          uint64     `json:"id"`
		Status      string     `json:"status"`
		PublishedAt *time.Time `json:"published_at"`
	}
	if errDecode := json.Unmarshal(w.Body.Bytes(), &post); errDecode != nil {
		t.Fatalf("decode post: %v", errDecode)
	}
	if post.Status != models.PostStatusDraft || post.PublishedAt != nil {
		t.Fatalf("expected unpublished draft, got %+v", post)
	}

	// Another user cannot see it.
	w = doJSON(t, strangerRouter, http.MethodGet, fmt.Sprintf("/v0/posts/%d", post.ID), nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("stranger get: expected 404, got %d", w.Code)
	}

	// Publishing sets published_at.
	w = doJSON(t, ownerRouter, http.MethodPut, fmt.Sprintf("/v0/posts/%d", post.ID), gin.H{
		"status": models.PostStatusPublished,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("publish: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if errDecode := json.Unmarshal(w.Body.Bytes(), &post); errDecode != nil {
		t.Fatalf("decode updated post: %v", errDecode)
	}
	if post.Status != models.PostStatusPublished || post.PublishedAt == nil {
		t.Fatalf("expected published post with timestamp, got %+v", post)
	}

	// List filters by status.
	w = doJSON(t, ownerRouter, http.MethodGet, "/v0/posts?status=published", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", w.Code)
	}
	var list struct {
		Posts []json.RawMessage `json:"posts"`
	}
	if errDecode := json.Unmarshal(w.Body.Bytes(), &list); errDecode != nil {
		t.Fatalf("decode list: %v", errDecode)
	}
	if len(list.Posts) != 1 {
		t.Fatalf("expected 1 published post, got %d", len(list.Posts))
	}

	// Stranger cannot delete; owner can.
	w = doJSON(t, strangerRouter, http.MethodDelete, fmt.Sprintf("/v0/posts/%d", post.ID), nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("stranger delete: expected 404, got %d", w.Code)
	}
	w = doJSON(t, ownerRouter, http.MethodDelete, fmt.Sprintf("/v0/posts/%d", post.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("owner delete: expected 200, got %d", w.Code)
	}
}

func TestMFAPrepareAndConfirm(t *testing.T) {
	gin.SetMode(gin.TestMode)
	conn := setupHandlerDB(t)
	user := createTestUser(t, conn, "enroll", "hunter2hunter2")

	handler := NewMFAHandler(conn)
	router := gin.New()
	router.Use(asUser(user.ID))
	router.GET("/v0/mfa/status", handler.Status)
	router.POST("/v0/mfa/totp/prepare", handler.PrepareTOTP)
	router.POST("/v0/mfa/totp/confirm", handler.ConfirmTOTP)

	w := doJSON(t, router, http.MethodGet, "/v0/mfa/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: expected 200, got %d", w.Code)
	}
	var status struct {
		TOTPEnabled bool `json:"totp_enabled"`
	}
	if errDecode := json.Unmarshal(w.Body.Bytes(), &status); errDecode != nil {
		t.Fatalf("decode status: %v", errDecode)
	}
	if status.TOTPEnabled {
		t.Fatalf("expected totp disabled initially")
	}

	w = doJSON(t, router, http.MethodPost, "/v0/mfa/totp/prepare", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("prepare: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var prepared struct {
		Secret     string `json:"secret"`
		OtpauthURL string `json:"otpauth_url"`
	}
	if errDecode := json.Unmarshal(w.Body.Bytes(), &prepared); errDecode != nil {
		t.Fatalf("decode prepare: %v", errDecode)
	}
	if prepared.Secret == "" || prepared.OtpauthURL == "" {
		t.Fatalf("expected secret and otpauth url")
	}

	// A wrong code does not enable TOTP.
	w = doJSON(t, router, http.MethodPost, "/v0/mfa/totp/confirm", gin.H{"code": "000000"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad code: expected 401, got %d", w.Code)
	}
	var reloaded models.User
	if errFind := conn.First(&reloaded, user.ID).Error; errFind != nil {
		t.Fatalf("reload user: %v", errFind)
	}
	if reloaded.TOTPSecret != "" {
		t.Fatalf("totp should remain disabled after failed confirm")
	}
}
