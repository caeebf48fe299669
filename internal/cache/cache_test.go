package cache

import (
	"context"
	"testing"
	"time"

	"github.com/linkledger/internal/models"
)

func TestBuildKeyUsesPrefix(t *testing.T) {
	if got := BuildKey("link:slug:abc"); got != "ll:link:slug:abc" {
		t.Fatalf("unexpected key: %s", got)
	}
	if got := BuildKey("  "); got != "ll" {
		t.Fatalf("blank key should fall back to prefix, got %s", got)
	}
}

func TestRedisLinkCacheDisabledIsMiss(t *testing.T) {
	c := NewRedisLinkCache(0)
	if c.TTL != 5*time.Minute {
		t.Fatalf("unexpected default ttl: %s", c.TTL)
	}
	affiliate := uint(3)
	snapshot := BuildLinkSnapshot(&models.Link{ID: 1, Slug: "abc", MerchantID: 2, AffiliateID: &affiliate, DestinationURL: "https://x.example", IsActive: true})
	if err := c.Set(context.Background(), snapshot); err != nil {
		t.Fatalf("set with redis disabled should be a no-op: %v", err)
	}
	got, err := c.Get(context.Background(), "abc")
	if err != nil || got != nil {
		t.Fatalf("expected miss with redis disabled, got=%+v err=%v", got, err)
	}
	if *snapshot.AffiliateID != 3 || snapshot.DestinationURL != "https://x.example" {
		t.Fatalf("unexpected snapshot: %+v", snapshot)
	}
}

func TestDisabledCacheHelpersAreNoops(t *testing.T) {
	if err := InitRedis(nil); err != nil {
		t.Fatalf("init with nil config failed: %v", err)
	}
	if Enabled() || Client() != nil {
		t.Fatalf("cache should be disabled")
	}
	ctx := context.Background()
	if err := Ping(ctx); err != nil {
		t.Fatalf("ping on disabled cache should succeed: %v", err)
	}
	if err := Del(ctx, "a", "b"); err != nil {
		t.Fatalf("del on disabled cache should succeed: %v", err)
	}
	value, err := GetJSON[LinkSnapshot](ctx, "missing")
	if err != nil || value != nil {
		t.Fatalf("expected nil value, got %+v %v", value, err)
	}
	if err := Close(); err != nil {
		t.Fatalf("close on disabled cache failed: %v", err)
	}
}
