package models

import "time"

// Link 推广短链
type Link struct {
	ID              uint      `gorm:"primarykey" json:"id"`                                    // 主键
	Slug            string    `gorm:"type:varchar(128);uniqueIndex;not null" json:"slug"`      // 短链标识（永不复用）
	MerchantID      uint      `gorm:"not null;index" json:"merchant_id"`                       // 所属商户
	AffiliateID     *uint     `gorm:"index" json:"affiliate_id,omitempty"`                     // 绑定推广者（创建后不可变）
	Type            string    `gorm:"type:varchar(20);not null;default:'custom'" json:"type"`  // 链接类型
	TargetID        string    `gorm:"type:varchar(128)" json:"target_id"`                      // 目标资源ID
	DestinationURL  string    `gorm:"type:varchar(2048);not null" json:"destination_url"`      // 跳转地址
	Title           string    `gorm:"type:varchar(255)" json:"title"`                          // 标题
	UTMParams       JSON      `gorm:"type:text" json:"utm_params"`                             // 预设 UTM 参数
	ClickCount      int64     `gorm:"not null;default:0" json:"click_count"`                   // 点击数
	ConversionCount int64     `gorm:"not null;default:0" json:"conversion_count"`              // 转化数
	IsActive        bool      `gorm:"not null;default:true;index" json:"is_active"`            // 是否启用
	CreatedAt       time.Time `gorm:"index" json:"created_at"`                                 // 创建时间
	UpdatedAt       time.Time `json:"updated_at"`                                              // 更新时间
}

// TableName 指定表名
func (Link) TableName() string {
	return "links"
}

// Click 点击记录（只增不改）
type Click struct {
	ID                uint      `gorm:"primarykey" json:"id"`                                       // 主键
	LinkID            uint      `gorm:"not null;index" json:"link_id"`                              // 短链ID
	AffiliateID       *uint     `gorm:"index" json:"affiliate_id,omitempty"`                        // 推广者ID
	MerchantID        uint      `gorm:"not null;index" json:"merchant_id"`                          // 商户ID
	IPAddress         string    `gorm:"type:varchar(64)" json:"ip_address"`                         // 客户端IP
	UserAgent         string    `gorm:"type:varchar(1024)" json:"user_agent"`                       // 客户端UA
	Referrer          string    `gorm:"type:varchar(1024)" json:"referrer"`                         // 来源地址
	UTM               JSON      `gorm:"type:text" json:"utm"`                                       // 访问时携带的 UTM 参数
	AffiliateCodeHint string    `gorm:"type:varchar(128)" json:"affiliate_code_hint"`               // 推广码提示（仅记录）
	SessionID         string    `gorm:"type:varchar(128);index" json:"session_id"`                  // 会话标识
	CreatedAt         time.Time `gorm:"index;not null;default:CURRENT_TIMESTAMP" json:"created_at"` // 创建时间
}

// TableName 指定表名
func (Click) TableName() string {
	return "clicks"
}
