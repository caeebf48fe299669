package queue

import (
	"encoding/json"

	"github.com/linkledger/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskWebhookDeliver 出站状态回调投递任务
	TaskWebhookDeliver = constants.TaskWebhookDeliver
)

// WebhookDeliverPayload 回调投递任务载荷，Body 在状态变更时生成
type WebhookDeliverPayload struct {
	DeliveryID string          `json:"delivery_id"`
	Event      string          `json:"event"`
	MerchantID *uint           `json:"merchant_id,omitempty"`
	ResourceID uint            `json:"resource_id"`
	Body       json.RawMessage `json:"body"`
}

// NewWebhookDeliverTask 创建回调投递任务
func NewWebhookDeliverTask(payload WebhookDeliverPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskWebhookDeliver, body), nil
}

// ParseWebhookDeliverPayload 解析回调投递任务载荷
func ParseWebhookDeliverPayload(task *asynq.Task) (WebhookDeliverPayload, error) {
	var payload WebhookDeliverPayload
	if task == nil {
		return payload, nil
	}
	err := json.Unmarshal(task.Payload(), &payload)
	return payload, err
}
