package notify

import (
	"time"

	"github.com/linkledger/internal/models"
)

// conversionBody 转化状态回调请求体
type conversionBody struct {
	ID       uint         `json:"id"`
	OrderID  string       `json:"orderId"`
	Status   string       `json:"status"`
	Amount   models.Money `json:"amount"`
	Currency string       `json:"currency"`
}

// payoutBody 提现状态回调请求体
type payoutBody struct {
	ID            uint         `json:"id"`
	AffiliateID   uint         `json:"affiliateId"`
	Status        string       `json:"status"`
	Amount        models.Money `json:"amount"`
	Currency      string       `json:"currency"`
	TransactionID string       `json:"transactionId"`
}

// testBody 连通性测试请求体
type testBody struct {
	Event      string    `json:"event"`
	MerchantID uint      `json:"merchantId"`
	SentAt     time.Time `json:"sentAt"`
}
