package models

import "time"

// Payout 推广者提现申请
type Payout struct {
	ID              uint       `gorm:"primarykey" json:"id"`                                      // 主键
	AffiliateID     uint       `gorm:"not null;index" json:"affiliate_id"`                        // 推广者ID
	Amount          Money      `gorm:"type:decimal(12,2);not null" json:"amount"`                 // 申请金额
	AllocatedAmount Money      `gorm:"type:decimal(12,2);not null;default:0" json:"allocated_amount"` // 实际分配的佣金金额
	Currency        string     `gorm:"type:varchar(10);not null;default:'USD'" json:"currency"`   // 币种
	Method          string     `gorm:"type:varchar(32);not null" json:"method"`                   // 收款方式
	MethodDetails   JSON       `gorm:"type:text" json:"method_details,omitempty"`                 // 收款信息
	Status          string     `gorm:"type:varchar(20);not null;index" json:"status"`             // 状态
	TransactionID   string     `gorm:"type:varchar(255)" json:"transaction_id,omitempty"`         // 外部交易号
	FailureReason   string     `gorm:"type:varchar(512)" json:"failure_reason,omitempty"`         // 失败原因
	CancelReason    string     `gorm:"type:varchar(512)" json:"cancel_reason,omitempty"`          // 取消原因
	RequestedAt     time.Time  `gorm:"index" json:"requested_at"`                                 // 申请时间
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`                                     // 审核时间
	ProcessedAt     *time.Time `json:"processed_at,omitempty"`                                    // 开始打款时间
	CompletedAt     *time.Time `json:"completed_at,omitempty"`                                    // 完成时间
	FailedAt        *time.Time `json:"failed_at,omitempty"`                                       // 失败时间
	CancelledAt     *time.Time `json:"cancelled_at,omitempty"`                                    // 取消时间
	CreatedAt       time.Time  `json:"created_at"`                                                // 创建时间
	UpdatedAt       time.Time  `json:"updated_at"`                                                // 更新时间
}

// TableName 指定表名
func (Payout) TableName() string {
	return "payouts"
}
