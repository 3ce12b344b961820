package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rohit-patil-code/AI-Blog-Editor/internal/apperrors"
	"github.com/rohit-patil-code/AI-Blog-Editor/internal/models"
	"gorm.io/gorm"
)

// PostHandler handles owner-scoped blog post CRUD.
type PostHandler struct {
	db *gorm.DB
}

// NewPostHandler constructs a PostHandler.
func NewPostHandler(db *gorm.DB) *PostHandler {
	return &PostHandler{db: db}
}

// postRequest defines the request body for creating and updating posts.
type postRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Status  string `json:"status"`
}

// postResponse shapes a post for JSON output.
func postResponse(post models.Post) gin.H {
	return gin.H{
		"id":           post.ID,
		"title":        post.Title,
		"content":      post.Content,
		"status":       post.Status,
		"published_at": post.PublishedAt,
		"created_at":   post.CreatedAt,
		"updated_at":   post.UpdatedAt,
	}
}

// parsePostID parses the :id path parameter.
func parsePostID(c *gin.Context) (uint64, bool) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil || id == 0 {
		RenderError(c, apperrors.Validation("invalid post id"))
		return 0, false
	}
	return id, true
}

// validStatus reports whether a post status value is accepted.
func validStatus(status string) bool {
	return status == models.PostStatusDraft || status == models.PostStatusPublished
}

// List returns the user's posts, newest first.
func (h *PostHandler) List(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		RenderError(c, apperrors.Unauthenticated("unauthorized"))
		return
	}

	query := h.db.WithContext(c.Request.Context()).
		Where("author_id = ?", userID).
		Order("created_at DESC")
	if status := strings.TrimSpace(c.Query("status")); status != "" {
		if !validStatus(status) {
			RenderError(c, apperrors.Validation("unknown status: "+status))
			return
		}
		query = query.Where("status = ?", status)
	}

	var posts []models.Post
	if errFind := query.Find(&posts).Error; errFind != nil {
		RenderError(c, apperrors.Internal("query posts failed", errFind))
		return
	}

	items := make([]gin.H, 0, len(posts))
	for _, post := range posts {
		items = append(items, postResponse(post))
	}
	c.JSON(http.StatusOK, gin.H{"posts": items})
}

// Create stores a new post owned by the user.
func (h *PostHandler) Create(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		RenderError(c, apperrors.Unauthenticated("unauthorized"))
		return
	}

	var body postRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		RenderError(c, apperrors.Validation("invalid json"))
		return
	}
	title := strings.TrimSpace(body.Title)
	if title == "" {
		RenderError(c, apperrors.Validation("missing title"))
		return
	}
	status := body.Status
	if status == "" {
		status = models.PostStatusDraft
	}
	if !validStatus(status) {
		RenderError(c, apperrors.Validation("unknown status: "+status))
		return
	}

	now := time.Now().UTC()
	post := models.Post{
		AuthorID:  userID,
		Title:     title,
		Content:   body.Content,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if status == models.PostStatusPublished {
		post.PublishedAt = &now
	}
	if errCreate := h.db.WithContext(c.Request.Context()).Create(&post).Error; errCreate != nil {
		RenderError(c, apperrors.Internal("create post failed", errCreate))
		return
	}
	c.JSON(http.StatusCreated, postResponse(post))
}

// Get returns one of the user's posts.
func (h *PostHandler) Get(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		RenderError(c, apperrors.Unauthenticated("unauthorized"))
		return
	}
	postID, ok := parsePostID(c)
	if !ok {
		return
	}

	var post models.Post
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("id = ? AND author_id = ?", postID, userID).
		First(&post).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			RenderError(c, apperrors.NotFound("post not found"))
			return
		}
		RenderError(c, apperrors.Internal("query failed", errFind))
		return
	}
	c.JSON(http.StatusOK, postResponse(post))
}

// Update edits one of the user's posts. Publishing sets published_at once.
func (h *PostHandler) Update(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		RenderError(c, apperrors.Unauthenticated("unauthorized"))
		return
	}
	postID, ok := parsePostID(c)
	if !ok {
		return
	}

	var body postRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		RenderError(c, apperrors.Validation("invalid json"))
		return
	}

	var post models.Post
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("id = ? AND author_id = ?", postID, userID).
		First(&post).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			RenderError(c, apperrors.NotFound("post not found"))
			return
		}
		RenderError(c, apperrors.Internal("query failed", errFind))
		return
	}

	updates := map[string]any{"updated_at": time.Now().UTC()}
	if title := strings.TrimSpace(body.Title); title != "" {
		updates["title"] = title
	}
	if body.Content != "" {
		updates["content"] = body.Content
	}
	if body.Status != "" {
		if !validStatus(body.Status) {
			RenderError(c, apperrors.Validation("unknown status: "+body.Status))
			return
		}
		updates["status"] = body.Status
		if body.Status == models.PostStatusPublished && post.PublishedAt == nil {
			now := time.Now().UTC()
			updates["published_at"] = &now
		}
	}

	if errUpdate := h.db.WithContext(c.Request.Context()).Model(&post).Updates(updates).Error; errUpdate != nil {
		RenderError(c, apperrors.Internal("update post failed", errUpdate))
		return
	}

	var updated models.Post
	if errReload := h.db.WithContext(c.Request.Context()).First(&updated, post.ID).Error; errReload != nil {
		RenderError(c, apperrors.Internal("query failed", errReload))
		return
	}
	c.JSON(http.StatusOK, postResponse(updated))
}

// Delete removes one of the user's posts.
func (h *PostHandler) Delete(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		RenderError(c, apperrors.Unauthenticated("unauthorized"))
		return
	}
	postID, ok := parsePostID(c)
	if !ok {
		return
	}

	res := h.db.WithContext(c.Request.Context()).
		Where("id = ? AND author_id = ?", postID, userID).
		Delete(&models.Post{})
	if res.Error != nil {
		RenderError(c, apperrors.Internal("delete post failed", res.Error))
		return
	}
	if res.RowsAffected == 0 {
		RenderError(c, apperrors.NotFound("post not found"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
