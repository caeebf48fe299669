package service

import (
	"context"
	"net/url"
	"strings"

	"github.com/linkledger/internal/constants"
	"github.com/linkledger/internal/ids"
	"github.com/linkledger/internal/logger"
	"github.com/linkledger/internal/models"
	"github.com/linkledger/internal/repository"

	"github.com/gosimple/slug"
)

const maxSlugLength = 64

// LinkService 短链管理（供链接管理端调用）
type LinkService struct {
	linkRepo     repository.LinkRepository
	merchantRepo repository.MerchantRepository
	linkCache    LinkCache
}

// NewLinkService 创建短链管理服务
func NewLinkService(linkRepo repository.LinkRepository, merchantRepo repository.MerchantRepository, linkCache LinkCache) *LinkService {
	return &LinkService{
		linkRepo:     linkRepo,
		merchantRepo: merchantRepo,
		linkCache:    linkCache,
	}
}

// CreateLinkInput 创建短链输入
type CreateLinkInput struct {
	MerchantID     uint              `json:"merchant_id" validate:"required"`
	AffiliateID    *uint             `json:"affiliate_id"`
	Type           string            `json:"type" validate:"omitempty,oneof=store product offer custom"`
	TargetID       string            `json:"target_id" validate:"max=128"`
	DestinationURL string            `json:"destination_url" validate:"required,max=2048"`
	Title          string            `json:"title" validate:"max=255"`
	Slug           string            `json:"slug" validate:"max=128"`
	UTMParams      map[string]string `json:"utm_params"`
}

// Create 创建短链，未指定 slug 时生成随机 slug
func (s *LinkService) Create(ctx context.Context, input CreateLinkInput) (*models.Link, error) {
	input.Type = strings.ToLower(strings.TrimSpace(input.Type))
	input.DestinationURL = strings.TrimSpace(input.DestinationURL)
	if err := validateStruct(input); err != nil {
		return nil, err
	}
	if input.Type == "" {
		input.Type = constants.LinkTypeCustom
	}
	if err := checkDestinationURL(input.DestinationURL); err != nil {
		return nil, err
	}
	if input.AffiliateID != nil && *input.AffiliateID == 0 {
		input.AffiliateID = nil
	}

	merchant, err := s.merchantRepo.GetByID(input.MerchantID)
	if err != nil {
		return nil, storageError(err)
	}
	if merchant == nil {
		return nil, ErrMerchantNotFound
	}

	linkSlug := ids.NewSlug()
	if raw := strings.TrimSpace(input.Slug); raw != "" {
		linkSlug = slug.Make(raw)
		if linkSlug == "" || len(linkSlug) > maxSlugLength {
			return nil, payloadError("slug %q cannot be normalized", raw)
		}
	}

	utm := models.JSON{}
	for key, value := range input.UTMParams {
		utm[key] = value
	}
	link := &models.Link{
		Slug:           linkSlug,
		MerchantID:     merchant.ID,
		AffiliateID:    input.AffiliateID,
		Type:           input.Type,
		TargetID:       strings.TrimSpace(input.TargetID),
		DestinationURL: input.DestinationURL,
		Title:          strings.TrimSpace(input.Title),
		UTMParams:      utm,
		IsActive:       true,
	}
	if err := s.linkRepo.Create(link); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, ErrSlugTaken
		}
		return nil, storageError(err)
	}
	logger.Infow("link_created", "link_id", link.ID, "slug", link.Slug, "merchant_id", link.MerchantID)
	return link, nil
}

// Get 按ID获取短链
func (s *LinkService) Get(ctx context.Context, id uint) (*models.Link, error) {
	link, err := s.linkRepo.GetByID(id)
	if err != nil {
		return nil, storageError(err)
	}
	if link == nil {
		return nil, ErrLinkNotFound
	}
	return link, nil
}

// SetActive 启用或停用短链并清除缓存快照；slug 不会释放
func (s *LinkService) SetActive(ctx context.Context, id uint, active bool) (*models.Link, error) {
	ok, err := s.linkRepo.UpdateActive(id, active)
	if err != nil {
		return nil, storageError(err)
	}
	if !ok {
		return nil, ErrLinkNotFound
	}
	link, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.linkCache != nil {
		if err := s.linkCache.Invalidate(ctx, link.Slug); err != nil {
			logger.Warnw("link_cache_invalidate_failed", "slug", link.Slug, "error", err)
		}
	}
	logger.Infow("link_active_changed", "link_id", link.ID, "is_active", active)
	return link, nil
}

func checkDestinationURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return payloadError("destination_url must be absolute")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return payloadError("destination_url must use http or https")
	}
	return nil
}
