package models

import "time"

// WebhookDelivery 出站回调投递日志
type WebhookDelivery struct {
	ID             uint      `gorm:"primarykey" json:"id"`                                  // 主键
	DeliveryID     string    `gorm:"type:varchar(32);uniqueIndex;not null" json:"delivery_id"` // 投递ID（ULID）
	MerchantID     *uint     `gorm:"index" json:"merchant_id,omitempty"`                    // 商户ID，提现回调为空
	EventType      string    `gorm:"type:varchar(64);not null;index" json:"event_type"`     // 事件类型
	ResourceID     uint      `gorm:"not null;index" json:"resource_id"`                     // 资源ID
	TargetURL      string    `gorm:"type:varchar(1024)" json:"target_url"`                  // 目标地址
	RequestBody    string    `gorm:"type:text" json:"request_body"`                         // 请求体
	ResponseStatus int       `gorm:"not null;default:0" json:"response_status"`             // 响应状态码
	Status         string    `gorm:"type:varchar(20);not null;index" json:"status"`         // 投递结果
	Error          string    `gorm:"type:varchar(1024)" json:"error,omitempty"`             // 错误信息
	DurationMS     int64     `gorm:"not null;default:0" json:"duration_ms"`                 // 耗时
	CreatedAt      time.Time `gorm:"index" json:"created_at"`                               // 创建时间
}

// TableName 指定表名
func (WebhookDelivery) TableName() string {
	return "webhook_deliveries"
}
