package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/linkledger/internal/cache"
	"github.com/linkledger/internal/logger"
	"github.com/linkledger/internal/metrics"
	"github.com/linkledger/internal/models"
	"github.com/linkledger/internal/repository"

	"gorm.io/gorm"
)

// LinkCache 短链快照缓存
type LinkCache interface {
	Get(ctx context.Context, slug string) (*cache.LinkSnapshot, error)
	Set(ctx context.Context, snapshot *cache.LinkSnapshot) error
	Invalidate(ctx context.Context, slug string) error
}

// ClickMeta 点击时的客户端信息，核心不解析其内容
type ClickMeta struct {
	IP                string
	UserAgent         string
	Referrer          string
	SessionID         string
	AffiliateCodeHint string
	UTM               map[string]string
}

// ResolveResult 短链解析结果
type ResolveResult struct {
	DestinationURL string
	LinkID         uint
	ClickID        uint
	AffiliateID    *uint
}

// AttributionService 短链解析与点击记录
type AttributionService struct {
	linkRepo    repository.LinkRepository
	accountRepo repository.AffiliateAccountRepository
	linkCache   LinkCache
	metrics     *metrics.LedgerMetrics
}

// NewAttributionService 创建归因服务，linkCache 可为 nil
func NewAttributionService(
	linkRepo repository.LinkRepository,
	accountRepo repository.AffiliateAccountRepository,
	linkCache LinkCache,
	ledgerMetrics *metrics.LedgerMetrics,
) *AttributionService {
	return &AttributionService{
		linkRepo:    linkRepo,
		accountRepo: accountRepo,
		linkCache:   linkCache,
		metrics:     ledgerMetrics,
	}
}

// Resolve 解析 slug，原子递增点击数并追加点击记录
func (s *AttributionService) Resolve(ctx context.Context, slug string, meta ClickMeta) (*ResolveResult, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, ErrLinkNotFound
	}
	snapshot, err := s.lookup(ctx, slug)
	if err != nil {
		return nil, err
	}
	if snapshot == nil || !snapshot.IsActive {
		return nil, ErrLinkNotFound
	}

	click := &models.Click{
		LinkID:            snapshot.ID,
		AffiliateID:       snapshot.AffiliateID,
		MerchantID:        snapshot.MerchantID,
		IPAddress:         truncate(meta.IP, 64),
		UserAgent:         truncate(meta.UserAgent, 1024),
		Referrer:          truncate(meta.Referrer, 1024),
		UTM:               utmJSON(meta.UTM),
		AffiliateCodeHint: truncate(meta.AffiliateCodeHint, 128),
		SessionID:         truncate(meta.SessionID, 128),
	}
	err = s.linkRepo.Transaction(func(tx *gorm.DB) error {
		linkTx := s.linkRepo.WithTx(tx)
		ok, err := linkTx.IncrementClicks(snapshot.ID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrLinkNotFound
		}
		if err := linkTx.CreateClick(click); err != nil {
			return err
		}
		if snapshot.AffiliateID != nil {
			return s.accountRepo.WithTx(tx).IncrementClicks(*snapshot.AffiliateID)
		}
		return nil
	})
	if errors.Is(err, ErrLinkNotFound) {
		s.invalidate(ctx, slug)
		return nil, ErrLinkNotFound
	}
	if err != nil {
		return nil, storageError(err)
	}

	s.metrics.IncClick()
	logger.Debugw("link_resolved",
		"slug", slug,
		"link_id", snapshot.ID,
		"click_id", click.ID,
		"affiliate_code_hint", click.AffiliateCodeHint,
	)
	return &ResolveResult{
		DestinationURL: snapshot.DestinationURL,
		LinkID:         snapshot.ID,
		ClickID:        click.ID,
		AffiliateID:    snapshot.AffiliateID,
	}, nil
}

func (s *AttributionService) lookup(ctx context.Context, slug string) (*cache.LinkSnapshot, error) {
	if s.linkCache != nil {
		snapshot, err := s.linkCache.Get(ctx, slug)
		if err != nil {
			logger.Warnw("link_cache_get_failed", "slug", slug, "error", err)
		} else if snapshot != nil {
			return snapshot, nil
		}
	}
	link, err := s.linkRepo.GetBySlug(slug)
	if err != nil {
		return nil, storageError(err)
	}
	if link == nil {
		return nil, nil
	}
	snapshot := cache.BuildLinkSnapshot(link)
	if s.linkCache != nil {
		if err := s.linkCache.Set(ctx, snapshot); err != nil {
			logger.Warnw("link_cache_set_failed", "slug", slug, "error", err)
		}
	}
	return snapshot, nil
}

func (s *AttributionService) invalidate(ctx context.Context, slug string) {
	if s.linkCache == nil {
		return
	}
	if err := s.linkCache.Invalidate(ctx, slug); err != nil {
		logger.Warnw("link_cache_invalidate_failed", "slug", slug, "error", err)
	}
}

func utmJSON(values map[string]string) models.JSON {
	if len(values) == 0 {
		return nil
	}
	out := make(models.JSON, len(values))
	for key, value := range values {
		out[key] = truncate(value, 255)
	}
	return out
}

func truncate(value string, max int) string {
	value = strings.TrimSpace(value)
	if len(value) <= max {
		return value
	}
	// 按字节截断时退回到字符边界，避免写入非法 UTF-8
	for max > 0 && !utf8.RuneStart(value[max]) {
		max--
	}
	return value[:max]
}
