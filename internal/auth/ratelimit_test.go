package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
)

func TestRedisSignInLimiter(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	limiter := NewRedisSignInLimiter(client, 3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow(ctx, "user@example.com")
		if err != nil {
			t.Fatalf("Allow #%d: %v", i+1, err)
		}
		if !allowed {
			t.Fatalf("Allow #%d = false, want true", i+1)
		}
	}
	allowed, err := limiter.Allow(ctx, "user@example.com")
	if err != nil {
		t.Fatalf("Allow #4: %v", err)
	}
	if allowed {
		t.Fatal("Allow #4 = true, want false")
	}

	// Other keys are unaffected.
	allowed, err = limiter.Allow(ctx, "other@example.com")
	if err != nil || !allowed {
		t.Fatalf("Allow(other) = %v, %v, want true, nil", allowed, err)
	}
}

func TestRedisSignInLimiterErrorsWhenDown(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	mr.Close()

	limiter := NewRedisSignInLimiter(client, 3, time.Minute)
	if _, err := limiter.Allow(context.Background(), "user@example.com"); err == nil {
		t.Fatal("Allow with redis down = nil error, want error")
	}
}

func TestWindowLimiter(t *testing.T) {
	current := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	limiter := NewWindowLimiter(2, time.Minute)
	limiter.now = func() time.Time { return current }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, err := limiter.Allow(ctx, "k")
		if err != nil || !allowed {
			t.Fatalf("Allow #%d = %v, %v", i+1, allowed, err)
		}
	}
	if allowed, _ := limiter.Allow(ctx, "k"); allowed {
		t.Fatal("Allow over limit = true, want false")
	}

	current = current.Add(time.Minute)
	if allowed, _ := limiter.Allow(ctx, "k"); !allowed {
		t.Fatal("Allow in new window = false, want true")
	}
}
