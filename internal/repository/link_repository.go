package repository

import (
	"errors"
	"time"

	"github.com/linkledger/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LinkRepository 短链与点击数据访问接口
type LinkRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) LinkRepository

	GetBySlug(slug string) (*models.Link, error)
	GetByID(id uint) (*models.Link, error)
	GetByIDForUpdate(id uint) (*models.Link, error)
	Create(link *models.Link) error
	UpdateActive(id uint, active bool) (bool, error)
	IncrementClicks(id uint) (bool, error)
	IncrementConversions(id uint) error
	ListIDs(afterID uint, limit int) ([]uint, error)
	OverwriteAggregate(id uint, agg LinkAggregate) error

	CreateClick(click *models.Click) error
	CountClicksByLink(linkID uint) (int64, error)
	CountClicksByAffiliate(affiliateID uint) (int64, error)
}

// GormLinkRepository GORM 短链仓储
type GormLinkRepository struct {
	db *gorm.DB
}

// NewLinkRepository 创建短链仓储
func NewLinkRepository(db *gorm.DB) *GormLinkRepository {
	return &GormLinkRepository{db: db}
}

// WithTx 绑定事务
func (r *GormLinkRepository) WithTx(tx *gorm.DB) LinkRepository {
	if tx == nil {
		return r
	}
	return &GormLinkRepository{db: tx}
}

// Transaction 执行事务
func (r *GormLinkRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// GetBySlug 按 slug 获取短链（含已停用）
func (r *GormLinkRepository) GetBySlug(slug string) (*models.Link, error) {
	if slug == "" {
		return nil, nil
	}
	var link models.Link
	if err := r.db.Where("slug = ?", slug).First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &link, nil
}

// GetByID 按ID获取短链
func (r *GormLinkRepository) GetByID(id uint) (*models.Link, error) {
	return r.first(r.db, id)
}

// GetByIDForUpdate 按ID锁定查询短链
func (r *GormLinkRepository) GetByIDForUpdate(id uint) (*models.Link, error) {
	return r.first(r.db.Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GormLinkRepository) first(query *gorm.DB, id uint) (*models.Link, error) {
	if id == 0 {
		return nil, nil
	}
	var link models.Link
	if err := query.First(&link, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &link, nil
}

// Create 创建短链
func (r *GormLinkRepository) Create(link *models.Link) error {
	return r.db.Create(link).Error
}

// UpdateActive 启用或停用短链，返回是否命中记录
func (r *GormLinkRepository) UpdateActive(id uint, active bool) (bool, error) {
	result := r.db.Model(&models.Link{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_active":  active,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// IncrementClicks 原子递增点击数，仅对启用中的短链生效
func (r *GormLinkRepository) IncrementClicks(id uint) (bool, error) {
	result := r.db.Model(&models.Link{}).
		Where("id = ? AND is_active = ?", id, true).
		UpdateColumn("click_count", gorm.Expr("click_count + ?", 1))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// IncrementConversions 原子递增转化数
func (r *GormLinkRepository) IncrementConversions(id uint) error {
	return r.db.Model(&models.Link{}).
		Where("id = ?", id).
		UpdateColumn("conversion_count", gorm.Expr("conversion_count + ?", 1)).Error
}

// ListIDs 按ID升序分批列出短链
func (r *GormLinkRepository) ListIDs(afterID uint, limit int) ([]uint, error) {
	var ids []uint
	query := r.db.Model(&models.Link{}).Where("id > ?", afterID).Order("id asc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// OverwriteAggregate 覆盖短链计数
func (r *GormLinkRepository) OverwriteAggregate(id uint, agg LinkAggregate) error {
	return r.db.Model(&models.Link{}).
		Where("id = ?", id).
		UpdateColumns(map[string]interface{}{
			"click_count":      agg.ClickCount,
			"conversion_count": agg.ConversionCount,
		}).Error
}

// CreateClick 写入点击记录
func (r *GormLinkRepository) CreateClick(click *models.Click) error {
	return r.db.Create(click).Error
}

// CountClicksByLink 统计短链点击记录数
func (r *GormLinkRepository) CountClicksByLink(linkID uint) (int64, error) {
	var total int64
	if err := r.db.Model(&models.Click{}).Where("link_id = ?", linkID).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// CountClicksByAffiliate 统计推广者点击记录数
func (r *GormLinkRepository) CountClicksByAffiliate(affiliateID uint) (int64, error) {
	var total int64
	if err := r.db.Model(&models.Click{}).Where("affiliate_id = ?", affiliateID).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}
