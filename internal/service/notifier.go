package service

import (
	"context"
	"time"

	"github.com/linkledger/internal/models"
)

// ConversionStatusEvent 转化状态变更事件
type ConversionStatusEvent struct {
	ConversionID uint
	MerchantID   uint
	OrderID      string
	Status       string
	Amount       models.Money
	Currency     string
	OccurredAt   time.Time
}

// PayoutStatusEvent 提现状态变更事件
type PayoutStatusEvent struct {
	PayoutID      uint
	AffiliateID   uint
	Status        string
	Amount        models.Money
	Currency      string
	TransactionID string
	OccurredAt    time.Time
}

// Notifier 出站状态回调，尽力投递，失败不影响调用方
type Notifier interface {
	NotifyConversionStatus(ctx context.Context, event ConversionStatusEvent)
	NotifyPayoutStatus(ctx context.Context, event PayoutStatusEvent)
}

// NopNotifier 不投递任何回调
type NopNotifier struct{}

// NotifyConversionStatus 忽略事件
func (NopNotifier) NotifyConversionStatus(context.Context, ConversionStatusEvent) {}

// NotifyPayoutStatus 忽略事件
func (NopNotifier) NotifyPayoutStatus(context.Context, PayoutStatusEvent) {}

func conversionEvent(row *models.Conversion) ConversionStatusEvent {
	return ConversionStatusEvent{
		ConversionID: row.ID,
		MerchantID:   row.MerchantID,
		OrderID:      row.OrderID,
		Status:       row.Status,
		Amount:       row.Amount,
		Currency:     row.Currency,
		OccurredAt:   time.Now(),
	}
}

func payoutEvent(row *models.Payout) PayoutStatusEvent {
	return PayoutStatusEvent{
		PayoutID:      row.ID,
		AffiliateID:   row.AffiliateID,
		Status:        row.Status,
		Amount:        row.Amount,
		Currency:      row.Currency,
		TransactionID: row.TransactionID,
		OccurredAt:    time.Now(),
	}
}
