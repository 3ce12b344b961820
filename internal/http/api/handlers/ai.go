package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rohit-patil-code/AI-Blog-Editor/internal/apperrors"
	"github.com/rohit-patil-code/AI-Blog-Editor/internal/generation"
	"github.com/rohit-patil-code/AI-Blog-Editor/internal/ratelimit"
	"github.com/rohit-patil-code/AI-Blog-Editor/internal/usage"
	"gorm.io/gorm"
)

// AIHandler handles the AI writing endpoints. Every request passes the
// quota governor before reaching the generation facade, and every
// provider-served success is recorded to the usage ledger.
type AIHandler struct {
	db       *gorm.DB
	governor *ratelimit.Governor
	svc      *generation.Service
	recorder *usage.Recorder
}

// NewAIHandler constructs an AIHandler.
func NewAIHandler(db *gorm.DB, governor *ratelimit.Governor, svc *generation.Service, recorder *usage.Recorder) *AIHandler {
	return &AIHandler{db: db, governor: governor, svc: svc, recorder: recorder}
}

// allow runs the per-user quota check. Returns false after rendering the
// breach response.
func (h *AIHandler) allow(c *gin.Context, userID uint64) bool {
	if h.governor == nil {
		return true
	}
	if errAllow := h.governor.AllowUser(c.Request.Context(), userID, c.FullPath()); errAllow != nil {
		RenderError(c, errAllow)
		return false
	}
	return true
}

// record enqueues a ledger entry for a provider-served result.
func (h *AIHandler) record(userID uint64, postID *uint64, feature string, out *generation.Output, options map[string]any) {
	if h.recorder == nil || out == nil || out.Provider == "" {
		return
	}
	h.recorder.Enqueue(usage.Record{
		UserID:      userID,
		PostID:      postID,
		Feature:     feature,
		Provider:    out.Provider,
		Model:       out.Model,
		TokensUsed:  out.TokensUsed,
		Options:     options,
		RequestedAt: out.Timestamp,
	})
}

// generateRequest defines the request body for content generation.
type generateRequest struct {
	Prompt     string   `json:"prompt"`
	Tone       string   `json:"tone"`
	Length     string   `json:"length"`
	Creativity *float64 `json:"creativity"`
	PostID     *uint64  `json:"post_id"`
}

// Generate writes a blog post from a prompt.
func (h *AIHandler) Generate(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		RenderError(c, apperrors.Unauthenticated("unauthorized"))
		return
	}

	var body generateRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		RenderError(c, apperrors.Validation("invalid json"))
		return
	}

	if !h.allow(c, userID) {
		return
	}

	out, errGenerate := h.svc.GenerateContent(c.Request.Context(), body.Prompt, generation.ContentParams{
		Tone:       body.Tone,
		Length:     body.Length,
		Creativity: body.Creativity,
	})
	if errGenerate != nil {
		RenderError(c, errGenerate)
		return
	}

	options := map[string]any{"tone": body.Tone, "length": body.Length}
	if body.Creativity != nil {
		options["creativity"] = *body.Creativity
	}
	h.record(userID, body.PostID, generation.FeatureContentGeneration, out, options)

	c.JSON(http.StatusOK, gin.H{
		"content":     out.Text,
		"tokens_used": out.TokensUsed,
		"provider":    out.Provider,
		"model":       out.Model,
		"timestamp":   out.Timestamp,
	})
}

// grammarRequest defines the request body for grammar correction.
type grammarRequest struct {
	Text   string  `json:"text"`
	PostID *uint64 `json:"post_id"`
}

// Grammar returns the corrected text. The changes list is always empty;
// clients diff the corrected text against their input.
func (h *AIHandler) Grammar(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		RenderError(c, apperrors.Unauthenticated("unauthorized"))
		return
	}

	var body grammarRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		RenderError(c, apperrors.Validation("invalid json"))
		return
	}

	if !h.allow(c, userID) {
		return
	}

	out, errCorrect := h.svc.CorrectGrammar(c.Request.Context(), body.Text)
	if errCorrect != nil {
		RenderError(c, errCorrect)
		return
	}

	h.record(userID, body.PostID, generation.FeatureGrammarCorrection, out, nil)

	c.JSON(http.StatusOK, gin.H{
		"corrected_text": out.Text,
		"changes":        []gin.H{},
		"tokens_used":    out.TokensUsed,
		"provider":       out.Provider,
		"model":          out.Model,
		"timestamp":      out.Timestamp,
	})
}

// enhanceRequest defines the request body for content enhancement.
type enhanceRequest struct {
	Text   string  `json:"text"`
	Type   string  `json:"type"`
	PostID *uint64 `json:"post_id"`
}

// Enhance rewrites text per the requested enhancement type.
func (h *AIHandler) Enhance(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		RenderError(c, apperrors.Unauthenticated("unauthorized"))
		return
	}

	var body enhanceRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		RenderError(c, apperrors.Validation("invalid json"))
		return
	}

	if !h.allow(c, userID) {
		return
	}

	out, errEnhance := h.svc.EnhanceContent(c.Request.Context(), body.Text, body.Type)
	if errEnhance != nil {
		RenderError(c, errEnhance)
		return
	}

	h.record(userID, body.PostID, generation.EnhanceFeature(body.Type), out, map[string]any{"type": body.Type})

	c.JSON(http.StatusOK, gin.H{
		"enhanced_text": out.Text,
		"type":          body.Type,
		"tokens_used":   out.TokensUsed,
		"provider":      out.Provider,
		"model":         out.Model,
		"timestamp":     out.Timestamp,
	})
}

// titlesRequest defines the request body for title suggestions.
type titlesRequest struct {
	Content string  `json:"content"`
	Count   int     `json:"count"`
	PostID  *uint64 `json:"post_id"`
}

// defaultTitleCount applies when the caller omits count.
const defaultTitleCount = 5

// Titles suggests post titles for the given content.
func (h *AIHandler) Titles(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		RenderError(c, apperrors.Unauthenticated("unauthorized"))
		return
	}

	var body titlesRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		RenderError(c, apperrors.Validation("invalid json"))
		return
	}
	count := body.Count
	if count == 0 {
		count = defaultTitleCount
	}

	if !h.allow(c, userID) {
		return
	}

	out, errTitles := h.svc.GenerateTitles(c.Request.Context(), body.Content, count)
	if errTitles != nil {
		RenderError(c, errTitles)
		return
	}

	if h.recorder != nil {
		h.recorder.Enqueue(usage.Record{
			UserID:      userID,
			PostID:      body.PostID,
			Feature:     generation.FeatureTitleSuggestion,
			Provider:    out.Provider,
			Model:       out.Model,
			TokensUsed:  out.TokensUsed,
			Options:     map[string]any{"count": count},
			RequestedAt: out.Timestamp,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"titles":      out.Titles,
		"tokens_used": out.TokensUsed,
		"provider":    out.Provider,
		"model":       out.Model,
		"timestamp":   out.Timestamp,
	})
}

// Usage returns the caller's windowed usage summary.
func (h *AIHandler) Usage(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		RenderError(c, apperrors.Unauthenticated("unauthorized"))
		return
	}

	periodDays := 30
	if raw := strings.TrimSpace(c.Query("period")); raw != "" {
		parsed, errParse := strconv.Atoi(raw)
		if errParse != nil {
			RenderError(c, apperrors.InvalidPeriod("period must be an integer number of days"))
			return
		}
		periodDays = parsed
	}

	summary, errSummarize := usage.Summarize(c.Request.Context(), h.db, userID, periodDays)
	if errSummarize != nil {
		RenderError(c, errSummarize)
		return
	}
	c.JSON(http.StatusOK, summary)
}
