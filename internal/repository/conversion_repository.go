package repository

import (
	"errors"
	"strings"

	"github.com/linkledger/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ConversionRepository 转化数据访问接口
type ConversionRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) ConversionRepository

	GetByID(id uint) (*models.Conversion, error)
	GetByIDForUpdate(id uint) (*models.Conversion, error)
	GetByOrderAndMerchant(orderID string, merchantID uint) (*models.Conversion, error)
	Create(conversion *models.Conversion) error
	Update(conversion *models.Conversion) error
	List(filter ConversionListFilter) ([]models.Conversion, int64, error)
	CountByLink(linkID uint) (int64, error)
	CountByAffiliate(affiliateID uint) (int64, error)
}

// GormConversionRepository GORM 转化仓储
type GormConversionRepository struct {
	db *gorm.DB
}

// NewConversionRepository 创建转化仓储
func NewConversionRepository(db *gorm.DB) *GormConversionRepository {
	return &GormConversionRepository{db: db}
}

// WithTx 绑定事务
func (r *GormConversionRepository) WithTx(tx *gorm.DB) ConversionRepository {
	if tx == nil {
		return r
	}
	return &GormConversionRepository{db: tx}
}

// Transaction 执行事务
func (r *GormConversionRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// GetByID 按ID获取转化
func (r *GormConversionRepository) GetByID(id uint) (*models.Conversion, error) {
	return r.first(r.db, id)
}

// GetByIDForUpdate 按ID锁定查询转化
func (r *GormConversionRepository) GetByIDForUpdate(id uint) (*models.Conversion, error) {
	return r.first(r.db.Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GormConversionRepository) first(query *gorm.DB, id uint) (*models.Conversion, error) {
	if id == 0 {
		return nil, nil
	}
	var row models.Conversion
	if err := query.First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// GetByOrderAndMerchant 按商户订单号获取转化（幂等键）
func (r *GormConversionRepository) GetByOrderAndMerchant(orderID string, merchantID uint) (*models.Conversion, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" || merchantID == 0 {
		return nil, nil
	}
	var row models.Conversion
	if err := r.db.Where("order_id = ? AND merchant_id = ?", orderID, merchantID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// Create 创建转化
func (r *GormConversionRepository) Create(conversion *models.Conversion) error {
	return r.db.Create(conversion).Error
}

// Update 更新转化
func (r *GormConversionRepository) Update(conversion *models.Conversion) error {
	return r.db.Save(conversion).Error
}

// List 查询转化列表
func (r *GormConversionRepository) List(filter ConversionListFilter) ([]models.Conversion, int64, error) {
	query := r.db.Model(&models.Conversion{})
	if filter.MerchantID != 0 {
		query = query.Where("merchant_id = ?", filter.MerchantID)
	}
	if filter.AffiliateID != 0 {
		query = query.Where("affiliate_id = ?", filter.AffiliateID)
	}
	if filter.LinkID != 0 {
		query = query.Where("link_id = ?", filter.LinkID)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	if orderID := strings.TrimSpace(filter.OrderID); orderID != "" {
		query = query.Where("order_id = ?", orderID)
	}
	if keyword := strings.TrimSpace(filter.Keyword); keyword != "" {
		condition, argCount := buildKeywordCondition(r.db, []string{"order_id", "customer_email"}, "metadata", conversionMetadataSearchKeys)
		like := "%" + escapeLike(keyword) + "%"
		query = query.Where(condition, repeatLikeArgs(like, argCount)...)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var rows []models.Conversion
	if err := query.Order("id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// CountByLink 统计短链归因的转化数
func (r *GormConversionRepository) CountByLink(linkID uint) (int64, error) {
	var total int64
	if err := r.db.Model(&models.Conversion{}).Where("link_id = ?", linkID).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// CountByAffiliate 统计推广者归因的转化数
func (r *GormConversionRepository) CountByAffiliate(affiliateID uint) (int64, error) {
	var total int64
	if err := r.db.Model(&models.Conversion{}).Where("affiliate_id = ?", affiliateID).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}
