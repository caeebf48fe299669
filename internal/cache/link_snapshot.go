package cache

import (
	"context"
	"time"

	"github.com/linkledger/internal/models"
)

// LinkSnapshot 短链跳转所需的最小字段
// 计数器不进入缓存，始终以数据库原子更新为准
type LinkSnapshot struct {
	ID             uint   `json:"id"`
	Slug           string `json:"slug"`
	MerchantID     uint   `json:"merchant_id"`
	AffiliateID    *uint  `json:"affiliate_id,omitempty"`
	DestinationURL string `json:"destination_url"`
	IsActive       bool   `json:"is_active"`
}

// BuildLinkSnapshot 从短链模型构建快照
func BuildLinkSnapshot(link *models.Link) *LinkSnapshot {
	if link == nil {
		return nil
	}
	return &LinkSnapshot{
		ID:             link.ID,
		Slug:           link.Slug,
		MerchantID:     link.MerchantID,
		AffiliateID:    link.AffiliateID,
		DestinationURL: link.DestinationURL,
		IsActive:       link.IsActive,
	}
}

func linkSnapshotKey(slug string) string {
	return "link:slug:" + slug
}

// RedisLinkCache 基于 Redis 的短链快照缓存
type RedisLinkCache struct {
	TTL time.Duration
}

// NewRedisLinkCache 创建短链快照缓存
func NewRedisLinkCache(ttl time.Duration) *RedisLinkCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisLinkCache{TTL: ttl}
}

// Get 读取快照，未命中返回 nil
func (c *RedisLinkCache) Get(ctx context.Context, slug string) (*LinkSnapshot, error) {
	return GetJSON[LinkSnapshot](ctx, linkSnapshotKey(slug))
}

// Set 写入快照
func (c *RedisLinkCache) Set(ctx context.Context, snapshot *LinkSnapshot) error {
	if snapshot == nil || snapshot.Slug == "" {
		return nil
	}
	return SetJSON(ctx, linkSnapshotKey(snapshot.Slug), snapshot, c.TTL)
}

// Invalidate 删除快照
func (c *RedisLinkCache) Invalidate(ctx context.Context, slug string) error {
	return Del(ctx, linkSnapshotKey(slug))
}
