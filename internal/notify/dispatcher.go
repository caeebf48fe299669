package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/linkledger/internal/constants"
	"github.com/linkledger/internal/ids"
	"github.com/linkledger/internal/logger"
	"github.com/linkledger/internal/models"
	"github.com/linkledger/internal/queue"
	"github.com/linkledger/internal/service"
)

// Dispatcher 将状态变更转为回调投递：启用队列时入队，否则后台直接投递
type Dispatcher struct {
	queue  *queue.Client
	sender *Sender
}

var _ service.Notifier = (*Dispatcher)(nil)

// NewDispatcher 创建回调分发器，queueClient 可为 nil
func NewDispatcher(queueClient *queue.Client, sender *Sender) *Dispatcher {
	return &Dispatcher{queue: queueClient, sender: sender}
}

// NotifyConversionStatus 投递转化状态回调到商户
func (d *Dispatcher) NotifyConversionStatus(ctx context.Context, event service.ConversionStatusEvent) {
	merchantID := event.MerchantID
	d.dispatch(ctx, constants.WebhookEventConversionStatus, &merchantID, event.ConversionID, conversionBody{
		ID:       event.ConversionID,
		OrderID:  event.OrderID,
		Status:   event.Status,
		Amount:   event.Amount,
		Currency: event.Currency,
	})
}

// NotifyPayoutStatus 投递提现状态回调到配置的地址
func (d *Dispatcher) NotifyPayoutStatus(ctx context.Context, event service.PayoutStatusEvent) {
	d.dispatch(ctx, constants.WebhookEventPayoutStatus, nil, event.PayoutID, payoutBody{
		ID:            event.PayoutID,
		AffiliateID:   event.AffiliateID,
		Status:        event.Status,
		Amount:        event.Amount,
		Currency:      event.Currency,
		TransactionID: event.TransactionID,
	})
}

// SendTest 同步向商户发送测试回调
func (d *Dispatcher) SendTest(ctx context.Context, merchantID uint) (*Result, error) {
	merchant, err := d.sender.merchantRepo.GetByID(merchantID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", service.ErrStorageUnavailable, err)
	}
	if merchant == nil {
		return nil, service.ErrMerchantNotFound
	}
	body, err := json.Marshal(testBody{
		Event:      constants.WebhookEventTest,
		MerchantID: merchant.ID,
		SentAt:     time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	row, err := d.sender.Deliver(ctx, queue.WebhookDeliverPayload{
		DeliveryID: ids.New(),
		Event:      constants.WebhookEventTest,
		MerchantID: &merchant.ID,
		ResourceID: merchant.ID,
		Body:       body,
	})
	result := &Result{Delivery: row}
	if err != nil {
		result.Error = err.Error()
	}
	return result, nil
}

// Result 同步投递结果
type Result struct {
	Delivery *models.WebhookDelivery `json:"delivery"`
	Error    string                  `json:"error,omitempty"`
}

func (d *Dispatcher) dispatch(ctx context.Context, event string, merchantID *uint, resourceID uint, body interface{}) {
	if d == nil || d.sender == nil {
		return
	}
	raw, err := json.Marshal(body)
	if err != nil {
		logger.Warnw("webhook_body_encode_failed", "event", event, "resource_id", resourceID, "error", err)
		return
	}
	payload := queue.WebhookDeliverPayload{
		DeliveryID: ids.New(),
		Event:      event,
		MerchantID: merchantID,
		ResourceID: resourceID,
		Body:       raw,
	}
	if d.queue.Enabled() {
		err := d.queue.EnqueueWebhookDelivery(payload)
		if err == nil {
			return
		}
		logger.Warnw("webhook_enqueue_failed", "delivery_id", payload.DeliveryID, "event", event, "error", err)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	detached := context.WithoutCancel(ctx)
	go func() {
		deliverCtx, cancel := context.WithTimeout(detached, d.sender.webhookCfg.Timeout()+5*time.Second)
		defer cancel()
		_, _ = d.sender.Deliver(deliverCtx, payload)
	}()
}
