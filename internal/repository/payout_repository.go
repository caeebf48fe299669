package repository

import (
	"errors"
	"strings"

	"github.com/linkledger/internal/constants"
	"github.com/linkledger/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// openPayoutStatuses 仍占用可提现余额的提现状态
var openPayoutStatuses = []string{
	constants.PayoutStatusRequested,
	constants.PayoutStatusApproved,
	constants.PayoutStatusProcessing,
}

// PayoutRepository 提现数据访问接口
type PayoutRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) PayoutRepository

	GetByID(id uint) (*models.Payout, error)
	GetByIDForUpdate(id uint) (*models.Payout, error)
	Create(payout *models.Payout) error
	Update(payout *models.Payout) error
	SumOpenAmount(affiliateID uint, currency string) (decimal.Decimal, error)
	List(filter PayoutListFilter) ([]models.Payout, int64, error)
}

// GormPayoutRepository GORM 提现仓储
type GormPayoutRepository struct {
	db *gorm.DB
}

// NewPayoutRepository 创建提现仓储
func NewPayoutRepository(db *gorm.DB) *GormPayoutRepository {
	return &GormPayoutRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPayoutRepository) WithTx(tx *gorm.DB) PayoutRepository {
	if tx == nil {
		return r
	}
	return &GormPayoutRepository{db: tx}
}

// Transaction 执行事务
func (r *GormPayoutRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// GetByID 按ID获取提现
func (r *GormPayoutRepository) GetByID(id uint) (*models.Payout, error) {
	return r.first(r.db, id)
}

// GetByIDForUpdate 按ID锁定查询提现
func (r *GormPayoutRepository) GetByIDForUpdate(id uint) (*models.Payout, error) {
	return r.first(r.db.Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GormPayoutRepository) first(query *gorm.DB, id uint) (*models.Payout, error) {
	if id == 0 {
		return nil, nil
	}
	var row models.Payout
	if err := query.First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// Create 创建提现
func (r *GormPayoutRepository) Create(payout *models.Payout) error {
	return r.db.Create(payout).Error
}

// Update 更新提现
func (r *GormPayoutRepository) Update(payout *models.Payout) error {
	return r.db.Save(payout).Error
}

// SumOpenAmount 汇总推广者处理中的提现金额
func (r *GormPayoutRepository) SumOpenAmount(affiliateID uint, currency string) (decimal.Decimal, error) {
	if affiliateID == 0 {
		return decimal.Zero, nil
	}
	query := r.db.Model(&models.Payout{}).
		Where("affiliate_id = ? AND currency = ? AND status IN ?", affiliateID, currency, openPayoutStatuses)
	return sumColumn(query, "amount")
}

// List 查询提现列表
func (r *GormPayoutRepository) List(filter PayoutListFilter) ([]models.Payout, int64, error) {
	query := r.db.Model(&models.Payout{})
	if filter.AffiliateID != 0 {
		query = query.Where("affiliate_id = ?", filter.AffiliateID)
	}
	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}
	if currency := strings.TrimSpace(filter.Currency); currency != "" {
		query = query.Where("currency = ?", strings.ToUpper(currency))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var rows []models.Payout
	if err := query.Order("id desc").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
