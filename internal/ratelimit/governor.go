// Package ratelimit enforces per-caller request ceilings over rolling
// windows. Buckets are keyed by authenticated user ID or, before identity
// resolution, by client IP.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/rohit-patil-code/AI-Blog-Editor/internal/apperrors"
	"github.com/rohit-patil-code/AI-Blog-Editor/internal/models"
	"github.com/rohit-patil-code/AI-Blog-Editor/internal/settings"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Rolling window durations.
const (
	// UserWindow is the rolling window for authenticated tiers.
	UserWindow = 24 * time.Hour
	// IPWindow is the shorter rolling window for anonymous traffic.
	IPWindow = time.Hour
)

// TierSource resolves a user's quota tier. Injected so the governor stays
// agnostic of where subscription state lives.
type TierSource interface {
	TierFor(ctx context.Context, userID uint64) (string, error)
}

// DBTierSource resolves tiers from the users table.
type DBTierSource struct {
	db *gorm.DB
}

// NewDBTierSource constructs a DBTierSource.
func NewDBTierSource(db *gorm.DB) *DBTierSource { return &DBTierSource{db: db} }

// TierFor reads the user's subscription tier, defaulting to free.
func (s *DBTierSource) TierFor(ctx context.Context, userID uint64) (string, error) {
	var user models.User
	if errFind := s.db.WithContext(ctx).Select("id", "subscription_tier").First(&user, userID).Error; errFind != nil {
		return "", errFind
	}
	return user.Tier(), nil
}

// Limits holds the configured request ceilings.
type Limits struct {
	FreeDaily       int // Free-tier ceiling per UserWindow.
	PremiumDaily    int // Premium-tier ceiling per UserWindow.
	AnonymousHourly int // Per-IP ceiling per IPWindow.
}

// Governor admits or rejects requests against per-bucket ceilings. When a
// redis store is configured it is authoritative; on redis errors the
// in-process store counts instead of failing open.
type Governor struct {
	redis  Store
	memory Store
	tiers  TierSource
	limits Limits
}

// NewGovernor constructs a Governor. redisStore may be nil.
func NewGovernor(redisStore Store, tiers TierSource, limits Limits) *Governor {
	return &Governor{
		redis:  redisStore,
		memory: NewMemoryStore(),
		tiers:  tiers,
		limits: limits,
	}
}

// AllowUser admits one request for an authenticated user, resolving the
// ceiling from the user's tier. Breaches return a retryable
// RateLimitExceeded and do not consume a generation call.
func (g *Governor) AllowUser(ctx context.Context, userID uint64, endpoint string) error {
	tier, errTier := g.tiers.TierFor(ctx, userID)
	if errTier != nil {
		return apperrors.Internal("resolve subscription tier failed", errTier)
	}

	ceiling := g.ceilingFor(tier)
	key := fmt.Sprintf("user:%d", userID)
	allowed, errTake := g.take(ctx, key, UserWindow, ceiling)
	if errTake != nil {
		return apperrors.Internal("quota check failed", errTake)
	}
	if !allowed {
		log.WithFields(log.Fields{
			"user_id":  userID,
			"tier":     tier,
			"ceiling":  ceiling,
			"endpoint": endpoint,
		}).Warn("user request ceiling exceeded")
		return apperrors.RateLimitExceeded("daily AI request limit reached, retry after the window resets")
	}
	return nil
}

// AllowIP admits one request for an unauthenticated client IP. Applied
// before identity resolution.
func (g *Governor) AllowIP(ctx context.Context, ip, endpoint string) error {
	allowed, errTake := g.take(ctx, "ip:"+ip, IPWindow, g.limits.AnonymousHourly)
	if errTake != nil {
		return apperrors.Internal("quota check failed", errTake)
	}
	if !allowed {
		log.WithFields(log.Fields{
			"ip":       ip,
			"ceiling":  g.limits.AnonymousHourly,
			"endpoint": endpoint,
		}).Warn("ip request ceiling exceeded")
		return apperrors.RateLimitExceeded("too many requests from this address, retry later")
	}
	return nil
}

// ceilingFor returns the ceiling for a tier, honoring DB setting overrides.
func (g *Governor) ceilingFor(tier string) int {
	switch tier {
	case models.TierPremium:
		return settings.IntValue(settings.PremiumTierDailyLimitKey, g.limits.PremiumDaily)
	default:
		return settings.IntValue(settings.FreeTierDailyLimitKey, g.limits.FreeDaily)
	}
}

// take routes to redis when available, falling back to the memory store on
// transport errors so counting continues.
func (g *Governor) take(ctx context.Context, key string, window time.Duration, ceiling int) (bool, error) {
	if g.redis != nil {
		allowed, errRedis := g.redis.Take(ctx, key, window, ceiling)
		if errRedis == nil {
			return allowed, nil
		}
		log.WithError(errRedis).WithField("key", key).Warn("redis quota check failed, using in-memory counter")
	}
	return g.memory.Take(ctx, key, window, ceiling)
}
