package models

import "time"

// AffiliateAccount 推广者账本汇总行，同时作为单个推广者结算操作的行锁目标
type AffiliateAccount struct {
	ID              uint      `gorm:"primarykey;autoIncrement:false" json:"id"`               // 推广者ID（由身份系统分配）
	ClickCount      int64     `gorm:"not null;default:0" json:"click_count"`                  // 累计点击
	ConversionCount int64     `gorm:"not null;default:0" json:"conversion_count"`             // 累计转化
	TotalEarnings   Money     `gorm:"type:decimal(12,2);not null;default:0" json:"total_earnings"` // 累计佣金（未退款）
	PaidEarnings    Money     `gorm:"type:decimal(12,2);not null;default:0" json:"paid_earnings"`  // 已结算佣金
	CreatedAt       time.Time `json:"created_at"`                                              // 创建时间
	UpdatedAt       time.Time `json:"updated_at"`                                              // 更新时间
}

// TableName 指定表名
func (AffiliateAccount) TableName() string {
	return "affiliate_accounts"
}
