package ratelimit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/adcopysurge/backend/internal/credits"
	"github.com/adcopysurge/backend/internal/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestManager_MemoryFixedWindow(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	manager := NewManager(func() SettingsConfig { return SettingsConfig{} }, func() time.Time { return now }, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, err := manager.Allow(ctx, "u:alice", 2)
		if err != nil {
			t.Fatalf("allow %d: %v", i, err)
		}
		if !res.Allowed {
			t.Fatalf("expected request %d allowed", i)
		}
	}
	res, err := manager.Allow(ctx, "u:alice", 2)
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if res.Allowed || res.Remaining != 0 {
		t.Fatalf("expected third request rejected, got %+v", res)
	}
	if !res.Reset.Equal(now.Add(time.Second)) {
		t.Fatalf("unexpected reset %s", res.Reset)
	}

	if other, _ := manager.Allow(ctx, "u:bob", 2); !other.Allowed {
		t.Fatalf("expected other key to be independent")
	}

	now = now.Add(time.Second)
	if next, _ := manager.Allow(ctx, "u:alice", 2); !next.Allowed || next.Remaining != 1 {
		t.Fatalf("expected fresh window, got %+v", next)
	}
}

func TestManager_UnlimitedWhenNoLimit(t *testing.T) {
	manager := NewManager(nil, nil, nil)
	for i := 0; i < 100; i++ {
		res, err := manager.Allow(context.Background(), "u:alice", 0)
		if err != nil || !res.Allowed {
			t.Fatalf("expected unlimited, got %+v err=%v", res, err)
		}
	}
}

func TestManager_RedisFailurePausesRedis(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := SettingsConfig{RedisEnabled: true, RedisAddr: "127.0.0.1:1"}
	manager := NewManager(func() SettingsConfig { return cfg }, func() time.Time { return now }, nil)
	defer func() { _ = manager.Close() }()

	before := testutil.ToFloat64(metrics.RateLimitFallbacks)
	res, err := manager.Allow(context.Background(), "u:alice", 1)
	if err != nil || !res.Allowed {
		t.Fatalf("expected memory fallback to allow, got %+v err=%v", res, err)
	}
	if got := testutil.ToFloat64(metrics.RateLimitFallbacks); got != before+1 {
		t.Fatalf("expected one fallback, got %v", got-before)
	}
	if !manager.redis.paused(now.Add(time.Second)) {
		t.Fatalf("expected redis to be paused")
	}

	res, _ = manager.Allow(context.Background(), "u:alice", 1)
	if res.Allowed {
		t.Fatalf("expected memory limiter to enforce the limit while redis is down")
	}
	if got := testutil.ToFloat64(metrics.RateLimitFallbacks); got != before+1 {
		t.Fatalf("expected the pause to suppress repeated fallbacks")
	}
	if manager.redis.paused(now.Add(redisCooldown + time.Second)) {
		t.Fatalf("expected redis to resume after the cooldown")
	}
}

func TestMemoryLimiter_SweepsStaleWindows(t *testing.T) {
	limiter := NewMemoryLimiter()
	start := time.Unix(1_700_000_000, 0)
	for i := 0; i <= sweepThreshold; i++ {
		_, _ = limiter.Allow(context.Background(), fmt.Sprintf("k%d", i), 1, start)
	}
	_, _ = limiter.Allow(context.Background(), "fresh", 1, start.Add(time.Second))
	if n := limiter.Len(); n != 1 {
		t.Fatalf("expected stale keys swept, %d remain", n)
	}
}

func TestKeyForDecision(t *testing.T) {
	cases := []struct {
		user     string
		decision Decision
		want     string
	}{
		{"alice", Decision{Limit: 2, Scope: ScopeUser}, "u:alice"},
		{"alice", Decision{Limit: 2, Scope: ScopeOperation, Operation: "AI_ALTERNATIVES"}, "u:alice:op:AI_ALTERNATIVES"},
		{"alice", Decision{Limit: 2, Scope: ScopeOperation}, ""},
		{"alice", Decision{Limit: 0, Scope: ScopeUser}, ""},
		{" ", Decision{Limit: 2, Scope: ScopeUser}, ""},
	}
	for _, tc := range cases {
		if got := KeyForDecision(tc.user, tc.decision); got != tc.want {
			t.Fatalf("KeyForDecision(%q, %+v)=%q, want %q", tc.user, tc.decision, got, tc.want)
		}
	}
}

func TestResolver_PriorityOrder(t *testing.T) {
	cfg := SettingsConfig{
		Limit:      1,
		TierLimits: map[string]int{"Growth": 5},
		OpLimits:   map[string]int{"ai_alternatives": 2},
	}
	tiers := map[string]credits.Tier{"paid": credits.TierGrowth, "free": credits.TierFree}
	resolver := NewResolver(func() SettingsConfig { return cfg }, func(_ context.Context, userID string) (credits.Tier, error) {
		return tiers[userID], nil
	})
	ctx := context.Background()

	cases := []struct {
		user string
		op   credits.Operation
		want Decision
	}{
		{"paid", credits.OpAIAlternatives, Decision{Limit: 2, Scope: ScopeOperation, Operation: "AI_ALTERNATIVES"}},
		{"paid", credits.OpBasicAnalysis, Decision{Limit: 5, Scope: ScopeUser}},
		{"free", credits.OpBasicAnalysis, Decision{Limit: 1, Scope: ScopeUser}},
		{"", credits.OpBasicAnalysis, Decision{}},
	}
	for _, tc := range cases {
		got, err := resolver.ResolveLimit(ctx, tc.user, tc.op)
		if err != nil {
			t.Fatalf("resolve %s/%s: %v", tc.user, tc.op, err)
		}
		if got != tc.want {
			t.Fatalf("resolve %s/%s=%+v, want %+v", tc.user, tc.op, got, tc.want)
		}
	}
}
