package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/linkledger/internal/config"
	"github.com/linkledger/internal/constants"
	"github.com/linkledger/internal/logger"
	"github.com/linkledger/internal/metrics"
	"github.com/linkledger/internal/models"
	"github.com/linkledger/internal/queue"
	"github.com/linkledger/internal/repository"
	"github.com/linkledger/internal/signature"
)

const (
	defaultUserAgent     = "linkledger-webhook/1.0"
	maxResponseBodyBytes = 64 << 10
	maxErrorLength       = 1024
)

var (
	// ErrMerchantMissing 回调目标商户不存在
	ErrMerchantMissing = errors.New("webhook merchant missing")
	// ErrUnexpectedStatus 回调目标返回非 2xx
	ErrUnexpectedStatus = errors.New("webhook target returned non-2xx")
)

// Sender 执行一次出站回调并写入投递日志
type Sender struct {
	merchantRepo repository.MerchantRepository
	deliveryRepo repository.DeliveryRepository
	webhookCfg   config.WebhookConfig
	notifyCfg    config.NotifyConfig
	client       *http.Client
	metrics      *metrics.LedgerMetrics
}

// NewSender 创建回调发送器
func NewSender(
	merchantRepo repository.MerchantRepository,
	deliveryRepo repository.DeliveryRepository,
	webhookCfg config.WebhookConfig,
	notifyCfg config.NotifyConfig,
	ledgerMetrics *metrics.LedgerMetrics,
) *Sender {
	return &Sender{
		merchantRepo: merchantRepo,
		deliveryRepo: deliveryRepo,
		webhookCfg:   webhookCfg,
		notifyCfg:    notifyCfg,
		client:       &http.Client{Timeout: webhookCfg.Timeout()},
		metrics:      ledgerMetrics,
	}
}

// Deliver 投递一次，不重试；返回写入的投递日志
func (s *Sender) Deliver(ctx context.Context, payload queue.WebhookDeliverPayload) (*models.WebhookDelivery, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	row := &models.WebhookDelivery{
		DeliveryID:  payload.DeliveryID,
		MerchantID:  payload.MerchantID,
		EventType:   payload.Event,
		ResourceID:  payload.ResourceID,
		RequestBody: string(payload.Body),
	}

	target, secret, err := s.resolveTarget(payload)
	if err != nil {
		row.Status = constants.DeliveryStatusFailed
		row.Error = truncateError(err)
		s.record(row)
		return row, err
	}
	row.TargetURL = target
	if target == "" {
		row.Status = constants.DeliveryStatusSkipped
		s.record(row)
		return row, nil
	}

	startedAt := time.Now()
	status, err := s.post(ctx, target, secret, payload)
	row.DurationMS = time.Since(startedAt).Milliseconds()
	row.ResponseStatus = status
	if err == nil && (status < http.StatusOK || status >= http.StatusMultipleChoices) {
		err = fmt.Errorf("%w: %d", ErrUnexpectedStatus, status)
	}
	if err != nil {
		row.Status = constants.DeliveryStatusFailed
		row.Error = truncateError(err)
		s.record(row)
		return row, err
	}
	row.Status = constants.DeliveryStatusSuccess
	s.record(row)
	return row, nil
}

// resolveTarget 商户事件使用商户回调地址与签名密钥，提现事件使用全局配置
func (s *Sender) resolveTarget(payload queue.WebhookDeliverPayload) (string, string, error) {
	if payload.MerchantID == nil {
		return strings.TrimSpace(s.notifyCfg.PayoutWebhookURL), s.notifyCfg.PayoutWebhookSecret, nil
	}
	merchant, err := s.merchantRepo.GetByID(*payload.MerchantID)
	if err != nil {
		return "", "", err
	}
	if merchant == nil {
		return "", "", fmt.Errorf("%w: %d", ErrMerchantMissing, *payload.MerchantID)
	}
	return strings.TrimSpace(merchant.WebhookURL), merchant.APISecret, nil
}

func (s *Sender) post(ctx context.Context, target, secret string, payload queue.WebhookDeliverPayload) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(payload.Body))
	if err != nil {
		return 0, fmt.Errorf("build request failed: %w", err)
	}
	userAgent := strings.TrimSpace(s.webhookCfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set(constants.HeaderWebhookSignature, signature.Sign(secret, payload.Body))
	req.Header.Set(constants.HeaderWebhookTimestamp, strconv.FormatInt(time.Now().Unix(), 10))
	req.Header.Set(constants.HeaderWebhookEvent, payload.Event)
	req.Header.Set(constants.HeaderWebhookDeliveryID, payload.DeliveryID)

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBodyBytes))
	return resp.StatusCode, nil
}

func (s *Sender) record(row *models.WebhookDelivery) {
	s.metrics.IncWebhookDelivery(row.Status)
	if row.Status == constants.DeliveryStatusFailed {
		logger.Warnw("webhook_delivery_failed",
			"delivery_id", row.DeliveryID,
			"event", row.EventType,
			"resource_id", row.ResourceID,
			"target_url", row.TargetURL,
			"response_status", row.ResponseStatus,
			"error", row.Error,
		)
	} else {
		logger.Debugw("webhook_delivery_finished",
			"delivery_id", row.DeliveryID,
			"event", row.EventType,
			"status", row.Status,
			"duration_ms", row.DurationMS,
		)
	}
	if s.deliveryRepo == nil {
		return
	}
	if err := s.deliveryRepo.Create(row); err != nil {
		logger.Warnw("webhook_delivery_log_write_failed", "delivery_id", row.DeliveryID, "error", err)
	}
}

// ListDeliveries 查询投递日志
func (s *Sender) ListDeliveries(ctx context.Context, filter repository.DeliveryListFilter) ([]models.WebhookDelivery, int64, error) {
	return s.deliveryRepo.List(filter)
}

// PruneDeliveries 清理保留期之前的投递日志
func (s *Sender) PruneDeliveries(ctx context.Context, now time.Time) (int64, error) {
	days := s.webhookCfg.DeliveryRetentionDays
	if days <= 0 {
		return 0, nil
	}
	removed, err := s.deliveryRepo.DeleteBefore(now.AddDate(0, 0, -days))
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		logger.Infow("webhook_deliveries_pruned", "removed", removed, "retention_days", days)
	}
	return removed, nil
}

func truncateError(err error) string {
	msg := err.Error()
	if len(msg) > maxErrorLength {
		cut := maxErrorLength
		for cut > 0 && !utf8.RuneStart(msg[cut]) {
			cut--
		}
		return msg[:cut]
	}
	return msg
}
