package ratelimit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"github.com/rohit-patil-code/AI-Blog-Editor/internal/apperrors"
	"github.com/rohit-patil-code/AI-Blog-Editor/internal/models"
	"gorm.io/gorm"
)

func TestMemoryStoreEnforcesCeiling(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, errTake := store.Take(ctx, "user:1", time.Hour, 3)
		if errTake != nil {
			t.Fatalf("take %d: %v", i, errTake)
		}
		if !allowed {
			t.Fatalf("request %d should be allowed", i)
		}
	}
	allowed, errTake := store.Take(ctx, "user:1", time.Hour, 3)
	if errTake != nil {
		t.Fatalf("take over ceiling: %v", errTake)
	}
	if allowed {
		t.Fatalf("request over ceiling should be rejected")
	}

	// Other keys are unaffected.
	allowed, _ = store.Take(ctx, "user:2", time.Hour, 3)
	if !allowed {
		t.Fatalf("distinct key should be allowed")
	}
}

func TestMemoryStoreRejectionDoesNotOccupyWindow(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, _ = store.Take(ctx, "ip:10.0.0.1", time.Hour, 2)
	}
	// Two admitted entries remain; the three rejections added nothing.
	if got := len(store.buckets["ip:10.0.0.1"]); got != 2 {
		t.Fatalf("expected 2 recorded entries, got %d", got)
	}
}

func TestMemoryStoreWindowReset(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	allowed, _ := store.Take(ctx, "user:9", 50*time.Millisecond, 1)
	if !allowed {
		t.Fatalf("first request should be allowed")
	}
	allowed, _ = store.Take(ctx, "user:9", 50*time.Millisecond, 1)
	if allowed {
		t.Fatalf("second request inside window should be rejected")
	}

	time.Sleep(60 * time.Millisecond)
	allowed, _ = store.Take(ctx, "user:9", 50*time.Millisecond, 1)
	if !allowed {
		t.Fatalf("request after window expiry should be allowed")
	}
}

func newMiniredisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStoreFromClient(client), mr
}

func TestRedisStoreEnforcesCeiling(t *testing.T) {
	store, _ := newMiniredisStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, errTake := store.Take(ctx, "user:1", time.Hour, 3)
		if errTake != nil {
			t.Fatalf("take %d: %v", i, errTake)
		}
		if !allowed {
			t.Fatalf("request %d should be allowed", i)
		}
	}
	allowed, errTake := store.Take(ctx, "user:1", time.Hour, 3)
	if errTake != nil {
		t.Fatalf("take over ceiling: %v", errTake)
	}
	if allowed {
		t.Fatalf("request over ceiling should be rejected")
	}
}

func TestRedisStoreRejectionDoesNotOccupyWindow(t *testing.T) {
	store, mr := newMiniredisStore(t)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, _ = store.Take(ctx, "ip:10.0.0.1", time.Hour, 2)
	}
	members, errMembers := mr.ZMembers("ratelimit:ip:10.0.0.1")
	if errMembers != nil {
		t.Fatalf("read sorted set: %v", errMembers)
	}
	if len(members) != 2 {
		t.Fatalf("expected 2 members after rejections, got %d", len(members))
	}
}

func TestRedisStoreWindowReset(t *testing.T) {
	store, _ := newMiniredisStore(t)
	ctx := context.Background()

	allowed, _ := store.Take(ctx, "user:7", 50*time.Millisecond, 1)
	if !allowed {
		t.Fatalf("first request should be allowed")
	}
	allowed, _ = store.Take(ctx, "user:7", 50*time.Millisecond, 1)
	if allowed {
		t.Fatalf("second request inside window should be rejected")
	}

	// Entries older than the window are pruned on the next take.
	time.Sleep(60 * time.Millisecond)
	allowed, _ = store.Take(ctx, "user:7", 50*time.Millisecond, 1)
	if !allowed {
		t.Fatalf("request after window expiry should be allowed")
	}
}

func setupTierDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:ratelimit_%d?mode=memory&cache=shared", time.Now().UnixNano())
	conn, errOpen := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := conn.AutoMigrate(&models.User{}); errMigrate != nil {
		t.Fatalf("migrate db: %v", errMigrate)
	}
	return conn
}

func TestGovernorAppliesTierCeilings(t *testing.T) {
	conn := setupTierDB(t)
	now := time.Now().UTC()
	free := models.User{Username: "free-user", Password: "x", SubscriptionTier: models.TierFree, CreatedAt: now, UpdatedAt: now}
	premium := models.User{Username: "premium-user", Password: "x", SubscriptionTier: models.TierPremium, CreatedAt: now, UpdatedAt: now}
	if errCreate := conn.Create(&free).Error; errCreate != nil {
		t.Fatalf("create free user: %v", errCreate)
	}
	if errCreate := conn.Create(&premium).Error; errCreate != nil {
		t.Fatalf("create premium user: %v", errCreate)
	}

	governor := NewGovernor(nil, NewDBTierSource(conn), Limits{FreeDaily: 2, PremiumDaily: 4, AnonymousHourly: 1})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if errAllow := governor.AllowUser(ctx, free.ID, "/v0/ai/generate"); errAllow != nil {
			t.Fatalf("free request %d: %v", i, errAllow)
		}
	}
	errBreach := governor.AllowUser(ctx, free.ID, "/v0/ai/generate")
	if errBreach == nil {
		t.Fatalf("expected free-tier breach")
	}
	appErr := apperrors.From(errBreach)
	if appErr.Code != "rate_limit_exceeded" || !appErr.Retryable() {
		t.Fatalf("expected retryable rate_limit_exceeded, got %+v", appErr)
	}

	// Premium ceiling is independent and higher.
	for i := 0; i < 4; i++ {
		if errAllow := governor.AllowUser(ctx, premium.ID, "/v0/ai/generate"); errAllow != nil {
			t.Fatalf("premium request %d: %v", i, errAllow)
		}
	}
	if errAllow := governor.AllowUser(ctx, premium.ID, "/v0/ai/generate"); errAllow == nil {
		t.Fatalf("expected premium-tier breach")
	}
}

func TestGovernorAllowIP(t *testing.T) {
	governor := NewGovernor(nil, NewDBTierSource(setupTierDB(t)), Limits{FreeDaily: 5, PremiumDaily: 5, AnonymousHourly: 2})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if errAllow := governor.AllowIP(ctx, "203.0.113.9", "/v0/ai/generate"); errAllow != nil {
			t.Fatalf("ip request %d: %v", i, errAllow)
		}
	}
	errBreach := governor.AllowIP(ctx, "203.0.113.9", "/v0/ai/generate")
	if errBreach == nil {
		t.Fatalf("expected ip breach")
	}
	if apperrors.From(errBreach).Status != 429 {
		t.Fatalf("expected 429, got %d", apperrors.From(errBreach).Status)
	}

	// A different address has its own bucket.
	if errAllow := governor.AllowIP(ctx, "203.0.113.10", "/v0/ai/generate"); errAllow != nil {
		t.Fatalf("distinct ip should be allowed: %v", errAllow)
	}
}

func TestGovernorFallsBackToMemoryOnRedisError(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStoreFromClient(client)
	mr.Close()

	governor := NewGovernor(store, NewDBTierSource(setupTierDB(t)), Limits{FreeDaily: 5, PremiumDaily: 5, AnonymousHourly: 1})
	ctx := context.Background()

	if errAllow := governor.AllowIP(ctx, "198.51.100.1", "/v0/ai/grammar"); errAllow != nil {
		t.Fatalf("memory fallback should admit first request: %v", errAllow)
	}
	if errAllow := governor.AllowIP(ctx, "198.51.100.1", "/v0/ai/grammar"); errAllow == nil {
		t.Fatalf("memory fallback should enforce the ceiling")
	}
}
