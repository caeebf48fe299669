package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/linkledger/internal/constants"
	"github.com/linkledger/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CommissionRepository 佣金数据访问接口
type CommissionRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) CommissionRepository

	GetByID(id uint) (*models.Commission, error)
	GetByConversionID(conversionID uint) (*models.Commission, error)
	GetByConversionIDForUpdate(conversionID uint) (*models.Commission, error)
	Create(commission *models.Commission) error
	Update(commission *models.Commission) error
	SumByAffiliate(affiliateID uint, currency string, statuses []string) (decimal.Decimal, error)
	ListUnpaidForUpdate(affiliateID uint, currency string) ([]models.Commission, error)
	MarkPaid(ids []uint, payoutID uint, paidAt time.Time) (int64, error)
	ListByPayout(payoutID uint) ([]models.Commission, error)
}

// GormCommissionRepository GORM 佣金仓储
type GormCommissionRepository struct {
	db *gorm.DB
}

// NewCommissionRepository 创建佣金仓储
func NewCommissionRepository(db *gorm.DB) *GormCommissionRepository {
	return &GormCommissionRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCommissionRepository) WithTx(tx *gorm.DB) CommissionRepository {
	if tx == nil {
		return r
	}
	return &GormCommissionRepository{db: tx}
}

// Transaction 执行事务
func (r *GormCommissionRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// GetByID 按ID获取佣金
func (r *GormCommissionRepository) GetByID(id uint) (*models.Commission, error) {
	if id == 0 {
		return nil, nil
	}
	var row models.Commission
	if err := r.db.First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// GetByConversionID 按转化获取佣金
func (r *GormCommissionRepository) GetByConversionID(conversionID uint) (*models.Commission, error) {
	return r.byConversion(r.db, conversionID)
}

// GetByConversionIDForUpdate 按转化锁定查询佣金
func (r *GormCommissionRepository) GetByConversionIDForUpdate(conversionID uint) (*models.Commission, error) {
	return r.byConversion(r.db.Clauses(clause.Locking{Strength: "UPDATE"}), conversionID)
}

func (r *GormCommissionRepository) byConversion(query *gorm.DB, conversionID uint) (*models.Commission, error) {
	if conversionID == 0 {
		return nil, nil
	}
	var row models.Commission
	if err := query.Where("conversion_id = ?", conversionID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// Create 创建佣金
func (r *GormCommissionRepository) Create(commission *models.Commission) error {
	return r.db.Create(commission).Error
}

// Update 更新佣金
func (r *GormCommissionRepository) Update(commission *models.Commission) error {
	return r.db.Save(commission).Error
}

// SumByAffiliate 汇总推广者指定状态的佣金金额，currency 为空时不限币种
func (r *GormCommissionRepository) SumByAffiliate(affiliateID uint, currency string, statuses []string) (decimal.Decimal, error) {
	if affiliateID == 0 || len(statuses) == 0 {
		return decimal.Zero, nil
	}
	query := r.db.Model(&models.Commission{}).
		Where("affiliate_id = ? AND status IN ?", affiliateID, statuses)
	if currency = strings.TrimSpace(currency); currency != "" {
		query = query.Where("currency = ?", currency)
	}
	return sumColumn(query, "amount")
}

// ListUnpaidForUpdate 按创建时间升序锁定推广者未结算佣金
func (r *GormCommissionRepository) ListUnpaidForUpdate(affiliateID uint, currency string) ([]models.Commission, error) {
	if affiliateID == 0 {
		return []models.Commission{}, nil
	}
	var rows []models.Commission
	if err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("affiliate_id = ? AND currency = ? AND status = ? AND payout_id IS NULL",
			affiliateID, currency, constants.CommissionStatusUnpaid).
		Order("created_at asc").
		Order("id asc").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// MarkPaid 将仍处于未结算状态的佣金标记为已结算
func (r *GormCommissionRepository) MarkPaid(ids []uint, payoutID uint, paidAt time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.Model(&models.Commission{}).
		Where("id IN ? AND status = ?", ids, constants.CommissionStatusUnpaid).
		Updates(map[string]interface{}{
			"status":     constants.CommissionStatusPaid,
			"payout_id":  payoutID,
			"paid_at":    paidAt,
			"updated_at": paidAt,
		})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// ListByPayout 查询提现结算的佣金
func (r *GormCommissionRepository) ListByPayout(payoutID uint) ([]models.Commission, error) {
	if payoutID == 0 {
		return []models.Commission{}, nil
	}
	var rows []models.Commission
	if err := r.db.Where("payout_id = ?", payoutID).Order("id asc").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
