package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/linkledger/internal/constants"
	"github.com/linkledger/internal/logger"
	"github.com/linkledger/internal/metrics"
	"github.com/linkledger/internal/models"
	"github.com/linkledger/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PayoutRequestInput 提现申请参数
type PayoutRequestInput struct {
	AffiliateID   uint                   `json:"affiliate_id" validate:"required"`
	Amount        decimal.Decimal        `json:"amount"`
	Currency      string                 `json:"currency" validate:"omitempty,iso4217"`
	Method        string                 `json:"method" validate:"required,oneof=bank_transfer paypal crypto manual"`
	MethodDetails map[string]interface{} `json:"method_details"`
}

// Balance 推广者余额视图
type Balance struct {
	AffiliateID   uint            `json:"affiliate_id"`
	Currency      string          `json:"currency"`
	Unpaid        decimal.Decimal `json:"unpaid"`
	Paid          decimal.Decimal `json:"paid"`
	OpenPayouts   decimal.Decimal `json:"open_payouts"`
	Available     decimal.Decimal `json:"available"`
	TotalEarnings decimal.Decimal `json:"total_earnings"`
}

// SettlementService 提现申请、审核与结算分配
type SettlementService struct {
	payoutRepo      repository.PayoutRepository
	commissionRepo  repository.CommissionRepository
	accountRepo     repository.AffiliateAccountRepository
	notifier        Notifier
	metrics         *metrics.LedgerMetrics
	defaultCurrency string
}

// NewSettlementService 创建结算服务
func NewSettlementService(
	payoutRepo repository.PayoutRepository,
	commissionRepo repository.CommissionRepository,
	accountRepo repository.AffiliateAccountRepository,
	notifier Notifier,
	ledgerMetrics *metrics.LedgerMetrics,
	defaultCurrency string,
) *SettlementService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	defaultCurrency = strings.ToUpper(strings.TrimSpace(defaultCurrency))
	if defaultCurrency == "" {
		defaultCurrency = "USD"
	}
	return &SettlementService{
		payoutRepo:      payoutRepo,
		commissionRepo:  commissionRepo,
		accountRepo:     accountRepo,
		notifier:        notifier,
		metrics:         ledgerMetrics,
		defaultCurrency: defaultCurrency,
	}
}

// RequestPayout 校验可用余额后创建提现申请
func (s *SettlementService) RequestPayout(ctx context.Context, input PayoutRequestInput) (*models.Payout, error) {
	input.Currency = s.normalizeCurrency(input.Currency)
	input.Method = strings.TrimSpace(input.Method)
	if !input.Amount.IsPositive() {
		return nil, ErrPayoutAmountInvalid
	}
	if err := validateStruct(input); err != nil {
		return nil, err
	}
	amount := input.Amount.Round(2)
	if !amount.Equal(input.Amount) {
		return nil, payloadError("amount supports at most 2 decimal places")
	}

	var created *models.Payout
	err := s.payoutRepo.Transaction(func(tx *gorm.DB) error {
		if _, err := s.accountRepo.WithTx(tx).GetForUpdate(input.AffiliateID); err != nil {
			return err
		}
		available, _, _, err := s.available(tx, input.AffiliateID, input.Currency)
		if err != nil {
			return err
		}
		if amount.GreaterThan(available) {
			return fmt.Errorf("requested %s, available %s: %w", amount.StringFixed(2), available.StringFixed(2), ErrInsufficientBalance)
		}
		details := models.JSON{}
		for key, value := range input.MethodDetails {
			details[key] = value
		}
		row := &models.Payout{
			AffiliateID:     input.AffiliateID,
			Amount:          models.NewMoneyFromDecimal(amount),
			AllocatedAmount: models.ZeroMoney(),
			Currency:        input.Currency,
			Method:          input.Method,
			MethodDetails:   details,
			Status:          constants.PayoutStatusRequested,
			RequestedAt:     time.Now(),
		}
		if err := s.payoutRepo.WithTx(tx).Create(row); err != nil {
			return err
		}
		created = row
		return nil
	})
	if err != nil {
		return nil, storageError(err)
	}

	s.metrics.IncPayoutTransition(constants.PayoutStatusRequested)
	logger.Infow("payout_requested",
		"payout_id", created.ID,
		"affiliate_id", created.AffiliateID,
		"amount", created.Amount.String(),
		"currency", created.Currency,
	)
	s.notifier.NotifyPayoutStatus(context.Background(), payoutEvent(created))
	return created, nil
}

// Approve 审核通过提现
func (s *SettlementService) Approve(ctx context.Context, id uint) (*models.Payout, error) {
	return s.transition(id, constants.PayoutStatusApproved, func(_ *gorm.DB, row *models.Payout, now time.Time) error {
		row.ApprovedAt = &now
		return nil
	})
}

// Process 开始打款
func (s *SettlementService) Process(ctx context.Context, id uint) (*models.Payout, error) {
	return s.transition(id, constants.PayoutStatusProcessing, func(_ *gorm.DB, row *models.Payout, now time.Time) error {
		row.ProcessedAt = &now
		return nil
	})
}

// Complete 打款完成，按贪心策略将未结算佣金标记为已结算
func (s *SettlementService) Complete(ctx context.Context, id uint, transactionID string) (*models.Payout, error) {
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return nil, payloadError("transaction_id is required")
	}
	if len(transactionID) > 255 {
		return nil, payloadError("transaction_id exceeds 255 characters")
	}
	var allocated decimal.Decimal
	row, err := s.transition(id, constants.PayoutStatusCompleted, func(tx *gorm.DB, row *models.Payout, now time.Time) error {
		commissionTx := s.commissionRepo.WithTx(tx)
		candidates, err := commissionTx.ListUnpaidForUpdate(row.AffiliateID, row.Currency)
		if err != nil {
			return err
		}
		plan := allocateGreedy(candidates, row.Amount.Decimal)
		if len(plan.CommissionIDs) > 0 {
			affected, err := commissionTx.MarkPaid(plan.CommissionIDs, row.ID, now)
			if err != nil {
				return err
			}
			if affected != int64(len(plan.CommissionIDs)) {
				return fmt.Errorf("payout %d: %d of %d commissions no longer unpaid: %w",
					row.ID, int64(len(plan.CommissionIDs))-affected, len(plan.CommissionIDs), ErrInvalidTransition)
			}
			if err := s.accountRepo.WithTx(tx).AddPaid(row.AffiliateID, plan.Allocated); err != nil {
				return err
			}
		}
		if plan.Remainder.IsPositive() {
			logger.Warnw("payout_allocation_remainder",
				"payout_id", row.ID,
				"affiliate_id", row.AffiliateID,
				"requested", row.Amount.String(),
				"allocated", plan.Allocated.StringFixed(2),
				"remainder", plan.Remainder.StringFixed(2),
			)
		}
		row.TransactionID = transactionID
		row.CompletedAt = &now
		row.AllocatedAmount = models.NewMoneyFromDecimal(plan.Allocated)
		allocated = plan.Allocated
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.ObservePayoutAllocated(allocated)
	return row, nil
}

// Fail 打款失败
func (s *SettlementService) Fail(ctx context.Context, id uint, reason string) (*models.Payout, error) {
	reason = truncate(reason, 512)
	return s.transition(id, constants.PayoutStatusFailed, func(_ *gorm.DB, row *models.Payout, now time.Time) error {
		row.FailedAt = &now
		row.FailureReason = reason
		return nil
	})
}

// Cancel 取消待审核提现
func (s *SettlementService) Cancel(ctx context.Context, id uint, reason string) (*models.Payout, error) {
	reason = truncate(reason, 512)
	return s.transition(id, constants.PayoutStatusCancelled, func(_ *gorm.DB, row *models.Payout, now time.Time) error {
		row.CancelledAt = &now
		row.CancelReason = reason
		return nil
	})
}

// transition 先锁推广者账户再锁提现行，校验状态机后落库，提交后发送回调
func (s *SettlementService) transition(id uint, target string, apply func(tx *gorm.DB, row *models.Payout, now time.Time) error) (*models.Payout, error) {
	current, err := s.payoutRepo.GetByID(id)
	if err != nil {
		return nil, storageError(err)
	}
	if current == nil {
		return nil, ErrPayoutNotFound
	}

	var updated *models.Payout
	err = s.payoutRepo.Transaction(func(tx *gorm.DB) error {
		if _, err := s.accountRepo.WithTx(tx).GetForUpdate(current.AffiliateID); err != nil {
			return err
		}
		payoutTx := s.payoutRepo.WithTx(tx)
		row, err := payoutTx.GetByIDForUpdate(id)
		if err != nil {
			return err
		}
		if row == nil {
			return ErrPayoutNotFound
		}
		if err := payoutTransitions.check("payout", row.Status, target); err != nil {
			return err
		}
		now := time.Now()
		row.Status = target
		if err := apply(tx, row, now); err != nil {
			return err
		}
		if err := payoutTx.Update(row); err != nil {
			return err
		}
		updated = row
		return nil
	})
	if err != nil {
		return nil, storageError(err)
	}

	s.metrics.IncPayoutTransition(target)
	logger.Infow("payout_status_changed",
		"payout_id", updated.ID,
		"affiliate_id", updated.AffiliateID,
		"status", target,
	)
	s.notifier.NotifyPayoutStatus(context.Background(), payoutEvent(updated))
	return updated, nil
}

// GetPayout 按ID获取提现
func (s *SettlementService) GetPayout(ctx context.Context, id uint) (*models.Payout, error) {
	row, err := s.payoutRepo.GetByID(id)
	if err != nil {
		return nil, storageError(err)
	}
	if row == nil {
		return nil, ErrPayoutNotFound
	}
	return row, nil
}

// ListPayoutCommissions 查询提现完成时结算的佣金
func (s *SettlementService) ListPayoutCommissions(ctx context.Context, payoutID uint) ([]models.Commission, error) {
	rows, err := s.commissionRepo.ListByPayout(payoutID)
	if err != nil {
		return nil, storageError(err)
	}
	return rows, nil
}

// ListPayouts 查询提现列表
func (s *SettlementService) ListPayouts(ctx context.Context, filter repository.PayoutListFilter) ([]models.Payout, int64, error) {
	if filter.Currency != "" {
		filter.Currency = strings.ToUpper(strings.TrimSpace(filter.Currency))
	}
	rows, total, err := s.payoutRepo.List(filter)
	if err != nil {
		return nil, 0, storageError(err)
	}
	return rows, total, nil
}

// GetBalance 推广者在指定币种下的余额
func (s *SettlementService) GetBalance(ctx context.Context, affiliateID uint, currency string) (*Balance, error) {
	if affiliateID == 0 {
		return nil, payloadError("affiliate id is required")
	}
	currency = s.normalizeCurrency(currency)
	account, err := s.accountRepo.GetByID(affiliateID)
	if err != nil {
		return nil, storageError(err)
	}
	available, unpaid, open, err := s.available(nil, affiliateID, currency)
	if err != nil {
		return nil, storageError(err)
	}
	paid, err := s.commissionRepo.SumByAffiliate(affiliateID, currency, []string{constants.CommissionStatusPaid})
	if err != nil {
		return nil, storageError(err)
	}
	balance := &Balance{
		AffiliateID:   affiliateID,
		Currency:      currency,
		Unpaid:        unpaid,
		Paid:          paid,
		OpenPayouts:   open,
		Available:     available,
		TotalEarnings: decimal.Zero,
	}
	if account != nil {
		balance.TotalEarnings = account.TotalEarnings.Decimal
	}
	return balance, nil
}

// available 可用余额 = 未结算佣金 - 未终结提现；tx 为空时使用非事务仓库
func (s *SettlementService) available(tx *gorm.DB, affiliateID uint, currency string) (available, unpaid, open decimal.Decimal, err error) {
	commissionRepo := s.commissionRepo
	payoutRepo := s.payoutRepo
	if tx != nil {
		commissionRepo = commissionRepo.WithTx(tx)
		payoutRepo = payoutRepo.WithTx(tx)
	}
	unpaid, err = commissionRepo.SumByAffiliate(affiliateID, currency, []string{constants.CommissionStatusUnpaid})
	if err != nil {
		return
	}
	open, err = payoutRepo.SumOpenAmount(affiliateID, currency)
	if err != nil {
		return
	}
	available = unpaid.Sub(open)
	if available.IsNegative() {
		available = decimal.Zero
	}
	return
}

func (s *SettlementService) normalizeCurrency(currency string) string {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return s.defaultCurrency
	}
	return currency
}
