package service

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/linkledger/internal/constants"
	"github.com/linkledger/internal/logger"
	"github.com/linkledger/internal/metrics"
	"github.com/linkledger/internal/models"
	"github.com/linkledger/internal/repository"
	"github.com/linkledger/internal/signature"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// decimal(12,2) 可表示的最大金额
var maxConversionAmount = decimal.RequireFromString("9999999999.99")

// ConversionWebhookPayload 入站转化 webhook 载荷
type ConversionWebhookPayload struct {
	OrderID       string                 `json:"orderId" validate:"required,max=128"`
	LinkID        *uint                  `json:"linkId"`
	AffiliateID   *uint                  `json:"affiliateId"`
	Amount        json.RawMessage        `json:"amount" validate:"required"`
	Currency      string                 `json:"currency" validate:"required,iso4217"`
	CustomerEmail string                 `json:"customerEmail" validate:"omitempty,email,max=255"`
	Metadata      map[string]interface{} `json:"metadata"`
}

// IngestInput 入站转化输入；Body 为收到的原始字节，签名基于原始字节计算
type IngestInput struct {
	MerchantID uint
	Secret     string
	Body       []byte
	Signature  string
}

// IngestResult 入站结果，Replayed 表示命中幂等键返回已有记录
type IngestResult struct {
	Conversion *models.Conversion
	Replayed   bool
}

// RefundResult 转化退款结果
type RefundResult struct {
	Conversion        *models.Conversion
	CommissionOutcome RefundOutcome
}

// ConversionService 转化入站与生命周期
type ConversionService struct {
	conversionRepo    repository.ConversionRepository
	linkRepo          repository.LinkRepository
	merchantRepo      repository.MerchantRepository
	accountRepo       repository.AffiliateAccountRepository
	commissionService *CommissionService
	notifier          Notifier
	metrics           *metrics.LedgerMetrics
}

// NewConversionService 创建转化服务
func NewConversionService(
	conversionRepo repository.ConversionRepository,
	linkRepo repository.LinkRepository,
	merchantRepo repository.MerchantRepository,
	accountRepo repository.AffiliateAccountRepository,
	commissionService *CommissionService,
	notifier Notifier,
	ledgerMetrics *metrics.LedgerMetrics,
) *ConversionService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &ConversionService{
		conversionRepo:    conversionRepo,
		linkRepo:          linkRepo,
		merchantRepo:      merchantRepo,
		accountRepo:       accountRepo,
		commissionService: commissionService,
		notifier:          notifier,
		metrics:           ledgerMetrics,
	}
}

// IngestWebhook 按 API Key 识别商户后入站
func (s *ConversionService) IngestWebhook(ctx context.Context, apiKey, sig string, body []byte) (*IngestResult, error) {
	merchant, err := s.merchantRepo.GetByAPIKey(apiKey)
	if err != nil {
		return nil, storageError(err)
	}
	if merchant == nil || !merchant.IsActive {
		s.metrics.IncConversionIngested("rejected")
		return nil, ErrMerchantKeyInvalid
	}
	return s.Ingest(ctx, IngestInput{
		MerchantID: merchant.ID,
		Secret:     merchant.APISecret,
		Body:       body,
		Signature:  sig,
	})
}

// Ingest 校验、验签并幂等创建转化
func (s *ConversionService) Ingest(ctx context.Context, in IngestInput) (*IngestResult, error) {
	payload, amount, err := parseConversionPayload(in.Body)
	if err != nil {
		s.metrics.IncConversionIngested("rejected")
		return nil, err
	}
	if !signature.Verify(in.Secret, in.Body, in.Signature) {
		s.metrics.IncConversionIngested("rejected")
		logger.Warnw("conversion_signature_rejected", "merchant_id", in.MerchantID, "order_id", payload.OrderID)
		return nil, ErrInvalidSignature
	}

	existing, err := s.conversionRepo.GetByOrderAndMerchant(payload.OrderID, in.MerchantID)
	if err != nil {
		return nil, storageError(err)
	}
	if existing != nil {
		return s.replayed(existing), nil
	}

	row, err := s.buildConversion(in.MerchantID, payload, amount)
	if err != nil {
		s.metrics.IncConversionIngested("rejected")
		return nil, err
	}
	err = s.conversionRepo.Transaction(func(tx *gorm.DB) error {
		if err := s.conversionRepo.WithTx(tx).Create(row); err != nil {
			return err
		}
		if row.LinkID != nil {
			if err := s.linkRepo.WithTx(tx).IncrementConversions(*row.LinkID); err != nil {
				return err
			}
		}
		if row.AffiliateID != nil {
			return s.accountRepo.WithTx(tx).IncrementConversions(*row.AffiliateID)
		}
		return nil
	})
	if err != nil {
		if !repository.IsUniqueViolation(err) {
			return nil, storageError(err)
		}
		// 并发投递同一订单：唯一约束拦截后返回先写入的记录
		existing, lookupErr := s.conversionRepo.GetByOrderAndMerchant(payload.OrderID, in.MerchantID)
		if lookupErr != nil {
			return nil, storageError(lookupErr)
		}
		if existing == nil {
			return nil, storageError(err)
		}
		return s.replayed(existing), nil
	}

	s.metrics.IncConversionIngested("created")
	logger.Infow("conversion_ingested",
		"conversion_id", row.ID,
		"merchant_id", row.MerchantID,
		"order_id", row.OrderID,
		"amount", row.Amount.String(),
		"currency", row.Currency,
	)
	return &IngestResult{Conversion: row}, nil
}

func (s *ConversionService) replayed(existing *models.Conversion) *IngestResult {
	s.metrics.IncConversionIngested("replayed")
	logger.Infow("conversion_replayed",
		"conversion_id", existing.ID,
		"merchant_id", existing.MerchantID,
		"order_id", existing.OrderID,
	)
	return &IngestResult{Conversion: existing, Replayed: true}
}

// buildConversion 归因：短链绑定的推广者优先，上报的 affiliateId 不一致时仅记入元数据
func (s *ConversionService) buildConversion(merchantID uint, payload *ConversionWebhookPayload, amount decimal.Decimal) (*models.Conversion, error) {
	metadata := models.JSON{}
	for key, value := range payload.Metadata {
		metadata[key] = value
	}
	reported := nonZero(payload.AffiliateID)
	affiliateID := reported

	var linkID *uint
	if id := nonZero(payload.LinkID); id != nil {
		link, err := s.linkRepo.GetByID(*id)
		if err != nil {
			return nil, storageError(err)
		}
		if link == nil {
			return nil, payloadError("linkId %d not found", *id)
		}
		if link.MerchantID != merchantID {
			return nil, ErrLinkMerchantInvalid
		}
		linkID = &link.ID
		if link.AffiliateID != nil {
			affiliateID = link.AffiliateID
			if reported != nil && *reported != *link.AffiliateID {
				metadata[constants.MetadataReportedAffiliateID] = *reported
			}
		}
	}

	return &models.Conversion{
		OrderID:       payload.OrderID,
		MerchantID:    merchantID,
		LinkID:        linkID,
		AffiliateID:   affiliateID,
		CustomerEmail: payload.CustomerEmail,
		Amount:        models.NewMoneyFromDecimal(amount),
		Currency:      payload.Currency,
		Status:        constants.ConversionStatusPending,
		Metadata:      metadata,
	}, nil
}

// Approve 审核通过并在同一事务内创建佣金
func (s *ConversionService) Approve(ctx context.Context, id uint) (*models.Conversion, error) {
	var commission *models.Commission
	row, err := s.transition(id, constants.ConversionStatusApproved, func(tx *gorm.DB, row *models.Conversion, now time.Time) error {
		row.ApprovedAt = &now
		if row.AffiliateID == nil {
			logger.Infow("conversion_approved_without_affiliate", "conversion_id", row.ID)
			return nil
		}
		merchant, err := s.merchantRepo.WithTx(tx).GetByID(row.MerchantID)
		if err != nil {
			return err
		}
		if merchant == nil {
			return ErrMerchantNotFound
		}
		commission, err = s.commissionService.CreateForApprovedConversionTx(tx, row, merchant.CommissionRate.Decimal)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.commissionService.recordCreated(commission)
	return row, nil
}

// Reject 拒绝待审核转化
func (s *ConversionService) Reject(ctx context.Context, id uint, reason string) (*models.Conversion, error) {
	reason = truncate(reason, 512)
	return s.transition(id, constants.ConversionStatusRejected, func(_ *gorm.DB, row *models.Conversion, now time.Time) error {
		row.RejectedAt = &now
		row.RejectionReason = reason
		return nil
	})
}

// Refund 已审核转化退款，未结算佣金同步退款，已结算佣金保留
func (s *ConversionService) Refund(ctx context.Context, id uint) (*RefundResult, error) {
	outcome := RefundOutcomeNone
	row, err := s.transition(id, constants.ConversionStatusRefunded, func(tx *gorm.DB, row *models.Conversion, now time.Time) error {
		row.RefundedAt = &now
		var err error
		outcome, _, err = s.commissionService.RefundForConversionTx(tx, row.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.commissionService.recordRefundOutcome(outcome)
	return &RefundResult{Conversion: row, CommissionOutcome: outcome}, nil
}

// transition 锁定转化、校验状态机并在同一事务内执行附带操作，提交后发送回调
func (s *ConversionService) transition(id uint, target string, apply func(tx *gorm.DB, row *models.Conversion, now time.Time) error) (*models.Conversion, error) {
	var updated *models.Conversion
	err := s.conversionRepo.Transaction(func(tx *gorm.DB) error {
		convTx := s.conversionRepo.WithTx(tx)
		row, err := convTx.GetByIDForUpdate(id)
		if err != nil {
			return err
		}
		if row == nil {
			return ErrConversionNotFound
		}
		if err := conversionTransitions.check("conversion", row.Status, target); err != nil {
			return err
		}
		now := time.Now()
		row.Status = target
		if err := apply(tx, row, now); err != nil {
			return err
		}
		if err := convTx.Update(row); err != nil {
			return err
		}
		updated = row
		return nil
	})
	if err != nil {
		return nil, storageError(err)
	}

	s.metrics.IncConversionTransition(target)
	logger.Infow("conversion_status_changed", "conversion_id", updated.ID, "status", target)
	s.notifier.NotifyConversionStatus(context.Background(), conversionEvent(updated))
	return updated, nil
}

// Get 按ID获取转化
func (s *ConversionService) Get(ctx context.Context, id uint) (*models.Conversion, error) {
	row, err := s.conversionRepo.GetByID(id)
	if err != nil {
		return nil, storageError(err)
	}
	if row == nil {
		return nil, ErrConversionNotFound
	}
	return row, nil
}

// List 查询转化列表
func (s *ConversionService) List(ctx context.Context, filter repository.ConversionListFilter) ([]models.Conversion, int64, error) {
	rows, total, err := s.conversionRepo.List(filter)
	if err != nil {
		return nil, 0, storageError(err)
	}
	return rows, total, nil
}

func parseConversionPayload(body []byte) (*ConversionWebhookPayload, decimal.Decimal, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, decimal.Zero, payloadError("empty body")
	}
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	var payload ConversionWebhookPayload
	if err := decoder.Decode(&payload); err != nil {
		return nil, decimal.Zero, payloadError("malformed json: %v", err)
	}
	payload.OrderID = strings.TrimSpace(payload.OrderID)
	payload.Currency = strings.ToUpper(strings.TrimSpace(payload.Currency))
	payload.CustomerEmail = strings.TrimSpace(payload.CustomerEmail)
	if err := validateStruct(payload); err != nil {
		return nil, decimal.Zero, err
	}

	amount, err := parseAmountToken(payload.Amount)
	if err != nil {
		return nil, decimal.Zero, err
	}
	if !amount.IsPositive() {
		return nil, decimal.Zero, payloadError("amount must be positive")
	}
	if amount.GreaterThan(maxConversionAmount) {
		return nil, decimal.Zero, payloadError("amount exceeds %s", maxConversionAmount.String())
	}
	return &payload, amount, nil
}

// parseAmountToken 只接受 JSON 数字，且最多两位小数
func parseAmountToken(raw json.RawMessage) (decimal.Decimal, error) {
	token := bytes.TrimSpace(raw)
	if len(token) == 0 || (token[0] != '-' && (token[0] < '0' || token[0] > '9')) {
		return decimal.Zero, payloadError("amount must be a json number")
	}
	amount, err := decimal.NewFromString(string(token))
	if err != nil {
		return decimal.Zero, payloadError("amount must be numeric")
	}
	if !amount.Equal(amount.Round(2)) {
		return decimal.Zero, payloadError("amount supports at most 2 decimal places")
	}
	return amount, nil
}

func nonZero(id *uint) *uint {
	if id == nil || *id == 0 {
		return nil
	}
	v := *id
	return &v
}
