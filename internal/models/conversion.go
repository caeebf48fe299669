package models

import "time"

// Conversion 商户上报的转化（订单）
type Conversion struct {
	ID              uint       `gorm:"primarykey" json:"id"`                                                                    // 主键
	OrderID         string     `gorm:"type:varchar(128);not null;uniqueIndex:idx_conversion_order_merchant" json:"order_id"`    // 商户订单号
	MerchantID      uint       `gorm:"not null;uniqueIndex:idx_conversion_order_merchant;index" json:"merchant_id"`             // 商户ID
	LinkID          *uint      `gorm:"index" json:"link_id,omitempty"`                                                          // 归因短链
	AffiliateID     *uint      `gorm:"index" json:"affiliate_id,omitempty"`                                                     // 归因推广者
	CustomerEmail   string     `gorm:"type:varchar(255)" json:"customer_email,omitempty"`                                       // 客户邮箱
	Amount          Money      `gorm:"type:decimal(12,2);not null" json:"amount"`                                               // 订单金额
	Currency        string     `gorm:"type:varchar(10);not null;default:'USD'" json:"currency"`                                 // 币种
	Status          string     `gorm:"type:varchar(20);not null;index" json:"status"`                                           // 状态
	RejectionReason string     `gorm:"type:varchar(512)" json:"rejection_reason,omitempty"`                                     // 拒绝原因
	Metadata        JSON       `gorm:"type:text" json:"metadata,omitempty"`                                                     // 附加信息
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`                                                                   // 审核通过时间
	RejectedAt      *time.Time `json:"rejected_at,omitempty"`                                                                   // 拒绝时间
	RefundedAt      *time.Time `json:"refunded_at,omitempty"`                                                                   // 退款时间
	CreatedAt       time.Time  `gorm:"index" json:"created_at"`                                                                 // 创建时间
	UpdatedAt       time.Time  `json:"updated_at"`                                                                              // 更新时间
}

// TableName 指定表名
func (Conversion) TableName() string {
	return "conversions"
}
