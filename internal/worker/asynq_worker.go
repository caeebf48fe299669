package worker

import (
	"context"
	"strings"

	"github.com/linkledger/internal/logger"
	"github.com/linkledger/internal/provider"
	"github.com/linkledger/internal/queue"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskWebhookDeliver, c.handleWebhookDeliver)
}

// handleWebhookDeliver 投递结果已写入投递日志，这里不向 asynq 返回投递失败
func (c *Consumer) handleWebhookDeliver(ctx context.Context, task *asynq.Task) error {
	if c == nil || c.Container == nil || task == nil {
		logger.Debugw("worker_webhook_deliver_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return nil
	}
	payload, err := queue.ParseWebhookDeliverPayload(task)
	if err != nil {
		logger.Warnw("worker_webhook_deliver_unmarshal_failed", "error", err)
		return err
	}
	if strings.TrimSpace(payload.DeliveryID) == "" || len(payload.Body) == 0 {
		logger.Debugw("worker_webhook_deliver_skip_invalid_payload", "delivery_id", payload.DeliveryID, "event", payload.Event)
		return nil
	}
	if c.WebhookSender == nil {
		logger.Warnw("worker_webhook_deliver_skip_sender_nil", "delivery_id", payload.DeliveryID)
		return nil
	}
	if _, err := c.WebhookSender.Deliver(ctx, payload); err != nil {
		logger.Debugw("worker_webhook_deliver_failed", "delivery_id", payload.DeliveryID, "error", err)
	}
	return nil
}
