package usage

import (
	"context"
	"time"

	"github.com/rohit-patil-code/AI-Blog-Editor/internal/apperrors"
	"github.com/rohit-patil-code/AI-Blog-Editor/internal/db"
	"github.com/rohit-patil-code/AI-Blog-Editor/internal/models"
	"gorm.io/gorm"
)

// Window bounds for Summarize, in days.
const (
	minWindowDays = 1
	maxWindowDays = 365
)

// FeatureStat is the aggregate for one feature within the window.
type FeatureStat struct {
	Feature   string `json:"feature"`
	Requests  int64  `json:"requests"`
	Tokens    int64  `json:"tokens"`
	AvgTokens int64  `json:"avg_tokens"`
}

// DailyStat is the aggregate for one calendar day within the window.
type DailyStat struct {
	Date     string `json:"date"` // YYYY-MM-DD.
	Requests int64  `json:"requests"`
	Tokens   int64  `json:"tokens"`
}

// Summary is the windowed usage report for one user.
type Summary struct {
	PeriodDays    int           `json:"period_days"`
	TotalRequests int64         `json:"total_requests"`
	TotalTokens   int64         `json:"total_tokens"`
	ByFeature     []FeatureStat `json:"by_feature"`
	Daily         []DailyStat   `json:"daily"`
}

// Summarize aggregates a user's ledger over the trailing windowDays days.
// Days without records are absent from the daily series.
func Summarize(ctx context.Context, conn *gorm.DB, userID uint64, windowDays int) (*Summary, error) {
	if windowDays < minWindowDays || windowDays > maxWindowDays {
		return nil, apperrors.InvalidPeriod("period must be between 1 and 365 days")
	}

	since := time.Now().UTC().AddDate(0, 0, -windowDays)
	base := conn.WithContext(ctx).Model(&models.AIUsage{}).
		Where("user_id = ? AND requested_at >= ?", userID, since)

	summary := &Summary{
		PeriodDays: windowDays,
		ByFeature:  []FeatureStat{},
		Daily:      []DailyStat{},
	}

	var totals struct {
		Requests int64
		Tokens   int64
	}
	if errTotals := base.Session(&gorm.Session{}).
		Select("COUNT(*) AS requests, COALESCE(SUM(tokens_used), 0) AS tokens").
		Scan(&totals).Error; errTotals != nil {
		return nil, apperrors.Internal("aggregate usage totals failed", errTotals)
	}
	summary.TotalRequests = totals.Requests
	summary.TotalTokens = totals.Tokens

	var features []FeatureStat
	if errFeatures := base.Session(&gorm.Session{}).
		Select("feature, COUNT(*) AS requests, COALESCE(SUM(tokens_used), 0) AS tokens").
		Group("feature").
		Order("requests DESC").
		Scan(&features).Error; errFeatures != nil {
		return nil, apperrors.Internal("aggregate usage by feature failed", errFeatures)
	}
	for i := range features {
		if features[i].Requests > 0 {
			features[i].AvgTokens = features[i].Tokens / features[i].Requests
		}
	}
	summary.ByFeature = features
	if summary.ByFeature == nil {
		summary.ByFeature = []FeatureStat{}
	}

	bucket := db.DateBucketExpr(conn, "requested_at")
	var daily []DailyStat
	if errDaily := base.Session(&gorm.Session{}).
		Select(bucket + " AS date, COUNT(*) AS requests, COALESCE(SUM(tokens_used), 0) AS tokens").
		Group(bucket).
		Order("date ASC").
		Scan(&daily).Error; errDaily != nil {
		return nil, apperrors.Internal("aggregate daily usage failed", errDaily)
	}
	summary.Daily = daily
	if summary.Daily == nil {
		summary.Daily = []DailyStat{}
	}

	return summary, nil
}
