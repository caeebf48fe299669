package models

import "time"

// Merchant 商户表（由商户管理端维护，核心账本只读取）
type Merchant struct {
	ID             uint      `gorm:"primarykey" json:"id"`                                        // 主键
	Name           string    `gorm:"type:varchar(255);not null" json:"name"`                      // 商户名称
	APIKey         string    `gorm:"type:varchar(128);uniqueIndex;not null" json:"api_key"`       // 入站 webhook 身份标识
	APISecret      string    `gorm:"type:varchar(255);not null" json:"-"`                         // 签名密钥（不返回给前端）
	CommissionRate Money     `gorm:"type:decimal(5,2);not null;default:10" json:"commission_rate"` // 佣金比例（百分比）
	WebhookURL     string    `gorm:"type:varchar(1024)" json:"webhook_url"`                       // 状态回调地址
	IsActive       bool      `gorm:"not null;default:true;index" json:"is_active"`                // 是否启用
	CreatedAt      time.Time `gorm:"index" json:"created_at"`                                     // 创建时间
	UpdatedAt      time.Time `json:"updated_at"`                                                  // 更新时间
}

// TableName 指定表名
func (Merchant) TableName() string {
	return "merchants"
}
