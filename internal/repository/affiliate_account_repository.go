package repository

import (
	"errors"
	"time"

	"github.com/linkledger/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AffiliateAccountRepository 推广者汇总账户数据访问接口
type AffiliateAccountRepository interface {
	Transaction(fn func(tx *gorm.DB) error) error
	WithTx(tx *gorm.DB) AffiliateAccountRepository

	Ensure(affiliateID uint) error
	GetByID(affiliateID uint) (*models.AffiliateAccount, error)
	GetForUpdate(affiliateID uint) (*models.AffiliateAccount, error)
	IncrementClicks(affiliateID uint) error
	IncrementConversions(affiliateID uint) error
	AddEarnings(affiliateID uint, delta decimal.Decimal) error
	AddPaid(affiliateID uint, delta decimal.Decimal) error
	ListIDs(afterID uint, limit int) ([]uint, error)
	OverwriteAggregate(affiliateID uint, agg AccountAggregate) error
}

// GormAffiliateAccountRepository GORM 推广者账户仓储
type GormAffiliateAccountRepository struct {
	db *gorm.DB
}

// NewAffiliateAccountRepository 创建推广者账户仓储
func NewAffiliateAccountRepository(db *gorm.DB) *GormAffiliateAccountRepository {
	return &GormAffiliateAccountRepository{db: db}
}

// WithTx 绑定事务
func (r *GormAffiliateAccountRepository) WithTx(tx *gorm.DB) AffiliateAccountRepository {
	if tx == nil {
		return r
	}
	return &GormAffiliateAccountRepository{db: tx}
}

// Transaction 执行事务
func (r *GormAffiliateAccountRepository) Transaction(fn func(tx *gorm.DB) error) error {
	if fn == nil {
		return nil
	}
	return r.db.Transaction(fn)
}

// Ensure 账户不存在时创建空账户
func (r *GormAffiliateAccountRepository) Ensure(affiliateID uint) error {
	if affiliateID == 0 {
		return nil
	}
	now := time.Now()
	account := models.AffiliateAccount{
		ID:            affiliateID,
		TotalEarnings: models.ZeroMoney(),
		PaidEarnings:  models.ZeroMoney(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	return r.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&account).Error
}

// GetByID 获取账户，不存在返回 nil
func (r *GormAffiliateAccountRepository) GetByID(affiliateID uint) (*models.AffiliateAccount, error) {
	return r.first(r.db, affiliateID)
}

// GetForUpdate 确保账户存在并加行锁，用于串行化同一推广者的结算操作
func (r *GormAffiliateAccountRepository) GetForUpdate(affiliateID uint) (*models.AffiliateAccount, error) {
	if err := r.Ensure(affiliateID); err != nil {
		return nil, err
	}
	return r.first(r.db.Clauses(clause.Locking{Strength: "UPDATE"}), affiliateID)
}

func (r *GormAffiliateAccountRepository) first(query *gorm.DB, affiliateID uint) (*models.AffiliateAccount, error) {
	if affiliateID == 0 {
		return nil, nil
	}
	var row models.AffiliateAccount
	if err := query.First(&row, affiliateID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// IncrementClicks 原子递增点击数
func (r *GormAffiliateAccountRepository) IncrementClicks(affiliateID uint) error {
	return r.increment(affiliateID, "click_count", 1)
}

// IncrementConversions 原子递增转化数
func (r *GormAffiliateAccountRepository) IncrementConversions(affiliateID uint) error {
	return r.increment(affiliateID, "conversion_count", 1)
}

// AddEarnings 调整累计佣金，delta 可为负
func (r *GormAffiliateAccountRepository) AddEarnings(affiliateID uint, delta decimal.Decimal) error {
	return r.increment(affiliateID, "total_earnings", models.NewMoneyFromDecimal(delta))
}

// AddPaid 调整已结算佣金
func (r *GormAffiliateAccountRepository) AddPaid(affiliateID uint, delta decimal.Decimal) error {
	return r.increment(affiliateID, "paid_earnings", models.NewMoneyFromDecimal(delta))
}

func (r *GormAffiliateAccountRepository) increment(affiliateID uint, column string, delta interface{}) error {
	if affiliateID == 0 {
		return nil
	}
	if err := r.Ensure(affiliateID); err != nil {
		return err
	}
	return r.db.Model(&models.AffiliateAccount{}).
		Where("id = ?", affiliateID).
		Updates(map[string]interface{}{
			column:       gorm.Expr(column+" + ?", delta),
			"updated_at": time.Now(),
		}).Error
}

// ListIDs 按ID升序分批列出账户
func (r *GormAffiliateAccountRepository) ListIDs(afterID uint, limit int) ([]uint, error) {
	var ids []uint
	query := r.db.Model(&models.AffiliateAccount{}).Where("id > ?", afterID).Order("id asc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// OverwriteAggregate 覆盖账户汇总字段
func (r *GormAffiliateAccountRepository) OverwriteAggregate(affiliateID uint, agg AccountAggregate) error {
	return r.db.Model(&models.AffiliateAccount{}).
		Where("id = ?", affiliateID).
		Updates(map[string]interface{}{
			"click_count":      agg.ClickCount,
			"conversion_count": agg.ConversionCount,
			"total_earnings":   models.NewMoneyFromDecimal(agg.TotalEarnings),
			"paid_earnings":    models.NewMoneyFromDecimal(agg.PaidEarnings),
			"updated_at":       time.Now(),
		}).Error
}
