package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/linkledger/internal/config"
	"github.com/linkledger/internal/constants"
	"github.com/linkledger/internal/logger"

	"github.com/hibiken/asynq"
)

const (
	// DefaultQueue 默认队列名称
	DefaultQueue = constants.QueueDefault
	// WebhookQueue 出站回调投递队列
	WebhookQueue = constants.QueueWebhooks

	// 已完成的投递任务保留时长，保留期内重复的 delivery_id 会被 asynq 拒绝
	deliveryRetention = 24 * time.Hour
)

// Client 队列客户端封装，未启用时所有投递均为空操作
type Client struct {
	client       *asynq.Client
	webhookQueue string
}

// NewClient 创建队列客户端
func NewClient(cfg *config.QueueConfig) (*Client, error) {
	if cfg == nil || !cfg.Enabled {
		return &Client{webhookQueue: WebhookQueue}, nil
	}
	client := asynq.NewClient(buildRedisOpt(cfg))
	return &Client{
		client:       client,
		webhookQueue: WebhookQueue,
	}, nil
}

// Enabled 判断是否启用
func (c *Client) Enabled() bool {
	return c != nil && c.client != nil
}

// Ping 检查队列 redis 连通性
func (c *Client) Ping(_ context.Context) error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Ping()
}

// Close 关闭客户端
func (c *Client) Close() error {
	if !c.Enabled() {
		return nil
	}
	return c.client.Close()
}

// EnqueueWebhookDelivery 推送回调投递任务。投递不由 asynq 重试，结果写入投递日志，
// 同一 delivery_id 重复入队视为成功。
func (c *Client) EnqueueWebhookDelivery(payload WebhookDeliverPayload, opts ...asynq.Option) error {
	if !c.Enabled() {
		return nil
	}
	if strings.TrimSpace(payload.DeliveryID) == "" {
		return errors.New("delivery id is required")
	}
	task, err := NewWebhookDeliverTask(payload)
	if err != nil {
		return err
	}
	options := append([]asynq.Option{
		asynq.Queue(c.webhookQueue),
		asynq.MaxRetry(0),
		asynq.TaskID(payload.DeliveryID),
		asynq.Retention(deliveryRetention),
	}, opts...)
	_, err = c.client.Enqueue(task, options...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		logger.Debugw("queue_webhook_delivery_duplicate", "delivery_id", payload.DeliveryID)
		return nil
	}
	return err
}

// BuildServerConfig 生成队列服务配置，未配置权重的投递队列补默认权重 1
func BuildServerConfig(cfg *config.QueueConfig) (asynq.RedisClientOpt, asynq.Config) {
	concurrency := 10
	if cfg != nil && cfg.Concurrency > 0 {
		concurrency = cfg.Concurrency
	}
	queues := map[string]int{DefaultQueue: 1, WebhookQueue: 1}
	if cfg != nil && len(cfg.Queues) > 0 {
		queues = make(map[string]int, len(cfg.Queues)+1)
		for name, weight := range cfg.Queues {
			if weight > 0 {
				queues[name] = weight
			}
		}
		if _, ok := queues[WebhookQueue]; !ok {
			queues[WebhookQueue] = 1
		}
	}
	return buildRedisOpt(cfg), asynq.Config{
		Concurrency: concurrency,
		Queues:      queues,
		Logger:      logger.Named("asynq"),
		ErrorHandler: asynq.ErrorHandlerFunc(func(_ context.Context, task *asynq.Task, err error) {
			logger.Warnw("queue_task_failed", "task_type", task.Type(), "error", err)
		}),
	}
}

func buildRedisOpt(cfg *config.QueueConfig) asynq.RedisClientOpt {
	host := "127.0.0.1"
	port := 6379
	password := ""
	db := 0
	if cfg != nil {
		if strings.TrimSpace(cfg.Host) != "" {
			host = strings.TrimSpace(cfg.Host)
		}
		if cfg.Port > 0 {
			port = cfg.Port
		}
		password = cfg.Password
		db = cfg.DB
	}
	return asynq.RedisClientOpt{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	}
}
