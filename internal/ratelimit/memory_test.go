package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestMemoryLimiter_FixedWindow(t *testing.T) {
	l := NewMemoryLimiter()
	ctx := context.Background()
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		res, err := l.Allow(ctx, "u1", 3, time.Minute, now)
		if err != nil {
			t.Fatalf("allow %d: %v", i, err)
		}
		if !res.Allowed {
			t.Fatalf("request %d should be allowed", i)
		}
		if res.Remaining != 3-i-1 {
			t.Fatalf("request %d: remaining = %d, want %d", i, res.Remaining, 3-i-1)
		}
	}

	res, err := l.Allow(ctx, "u1", 3, time.Minute, now)
	if err != nil {
		t.Fatalf("allow over limit: %v", err)
	}
	if res.Allowed {
		t.Fatalf("request over limit should be blocked")
	}
	if res.Reset.Before(now) {
		t.Fatalf("reset %v must not precede now %v", res.Reset, now)
	}
}

func TestMemoryLimiter_WindowRollsOver(t *testing.T) {
	l := NewMemoryLimiter()
	ctx := context.Background()
	now := time.Date(2026, 3, 14, 9, 0, 30, 0, time.UTC)

	if res, _ := l.Allow(ctx, "u1", 1, time.Minute, now); !res.Allowed {
		t.Fatalf("first request should be allowed")
	}
	if res, _ := l.Allow(ctx, "u1", 1, time.Minute, now); res.Allowed {
		t.Fatalf("second request in same window should be blocked")
	}

	later := now.Add(time.Minute)
	if res, _ := l.Allow(ctx, "u1", 1, time.Minute, later); !res.Allowed {
		t.Fatalf("request in next window should be allowed")
	}
}

func TestMemoryLimiter_KeysAreIndependent(t *testing.T) {
	l := NewMemoryLimiter()
	ctx := context.Background()
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	if res, _ := l.Allow(ctx, "u1", 1, time.Minute, now); !res.Allowed {
		t.Fatalf("u1 first request should be allowed")
	}
	if res, _ := l.Allow(ctx, "u2", 1, time.Minute, now); !res.Allowed {
		t.Fatalf("u2 must not share u1's bucket")
	}
}

func TestMemoryLimiter_ZeroLimitDisables(t *testing.T) {
	l := NewMemoryLimiter()
	res, err := l.Allow(context.Background(), "u1", 0, time.Minute, time.Now())
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if !res.Allowed {
		t.Fatalf("limit <= 0 must disable the check")
	}
}

func TestManager_FallsBackToMemory(t *testing.T) {
	provider := func() SettingsConfig {
		return SettingsConfig{Limit: 2}
	}
	clock := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	m := NewManager(provider, func() time.Time { return clock }, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, err := m.Allow(ctx, "u1")
		if err != nil {
			t.Fatalf("allow %d: %v", i, err)
		}
		if !res.Allowed {
			t.Fatalf("request %d should be allowed", i)
		}
	}
	res, err := m.Allow(ctx, "u1")
	if err != nil {
		t.Fatalf("allow over limit: %v", err)
	}
	if res.Allowed {
		t.Fatalf("third request should be blocked at limit 2")
	}
}

func TestManager_DisabledWhenLimitZero(t *testing.T) {
	provider := func() SettingsConfig {
		return SettingsConfig{Limit: 0}
	}
	m := NewManager(provider, nil, nil)

	for i := 0; i < 100; i++ {
		res, err := m.Allow(context.Background(), "u1")
		if err != nil {
			t.Fatalf("allow %d: %v", i, err)
		}
		if !res.Allowed {
			t.Fatalf("limit 0 must never block")
		}
	}
}

func TestManager_NilAndEmptyKeyAlwaysAllowed(t *testing.T) {
	var m *Manager
	if res, err := m.Allow(context.Background(), "u1"); err != nil || !res.Allowed {
		t.Fatalf("nil manager must allow: res=%+v err=%v", res, err)
	}

	active := NewManager(func() SettingsConfig { return SettingsConfig{Limit: 1} }, nil, nil)
	if res, err := active.Allow(context.Background(), ""); err != nil || !res.Allowed {
		t.Fatalf("empty key must allow: res=%+v err=%v", res, err)
	}
}
