package repository

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ConversionListFilter 查询转化列表的过滤条件
type ConversionListFilter struct {
	Page        int
	PageSize    int
	MerchantID  uint
	AffiliateID uint
	LinkID      uint
	Status      string
	OrderID     string
	Keyword     string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// PayoutListFilter 查询提现列表的过滤条件
type PayoutListFilter struct {
	Page        int
	PageSize    int
	AffiliateID uint
	Status      string
	Currency    string
}

// DeliveryListFilter 查询回调投递日志的过滤条件
type DeliveryListFilter struct {
	Page       int
	PageSize   int
	MerchantID uint
	EventType  string
	Status     string
}

// AccountAggregate 推广者汇总字段（对账时整体覆盖）
type AccountAggregate struct {
	ClickCount      int64
	ConversionCount int64
	TotalEarnings   decimal.Decimal
	PaidEarnings    decimal.Decimal
}

// LinkAggregate 短链计数字段（对账时整体覆盖）
type LinkAggregate struct {
	ClickCount      int64
	ConversionCount int64
}

// applyPagination 应用分页参数，pageSize 非正时不分页
func applyPagination(query *gorm.DB, page, pageSize int) *gorm.DB {
	if query == nil || pageSize <= 0 {
		return query
	}
	if page < 1 {
		page = 1
	}
	return query.Limit(pageSize).Offset((page - 1) * pageSize)
}

// sumColumn 汇总金额列，空结果返回 0
func sumColumn(query *gorm.DB, column string) (decimal.Decimal, error) {
	var row struct {
		Total decimal.Decimal `gorm:"column:total"`
	}
	if err := query.Select("COALESCE(SUM(" + column + "), 0) AS total").Scan(&row).Error; err != nil {
		return decimal.Zero, err
	}
	return row.Total.Round(2), nil
}
