package models

import "time"

// Commission 转化审核通过后产生的佣金
type Commission struct {
	ID           uint       `gorm:"primarykey" json:"id"`                                  // 主键
	ConversionID uint       `gorm:"not null;uniqueIndex" json:"conversion_id"`             // 转化ID（一对一）
	AffiliateID  uint       `gorm:"not null;index:idx_commission_affiliate_status" json:"affiliate_id"` // 推广者ID
	MerchantID   uint       `gorm:"not null;index" json:"merchant_id"`                     // 商户ID
	Amount       Money      `gorm:"type:decimal(12,2);not null" json:"amount"`             // 佣金金额
	Rate         Money      `gorm:"type:decimal(5,2);not null" json:"rate"`                // 创建时的佣金比例快照
	Currency     string     `gorm:"type:varchar(10);not null;default:'USD'" json:"currency"` // 币种
	Status       string     `gorm:"type:varchar(20);not null;index:idx_commission_affiliate_status" json:"status"` // 状态
	PayoutID     *uint      `gorm:"index" json:"payout_id,omitempty"`                      // 结算提现ID
	PaidAt       *time.Time `json:"paid_at,omitempty"`                                     // 结算时间
	RefundedAt   *time.Time `json:"refunded_at,omitempty"`                                 // 退款时间
	CreatedAt    time.Time  `gorm:"index" json:"created_at"`                               // 创建时间
	UpdatedAt    time.Time  `json:"updated_at"`                                            // 更新时间
}

// TableName 指定表名
func (Commission) TableName() string {
	return "commissions"
}
