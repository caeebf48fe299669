package service

import (
	"context"
	"fmt"
	"time"

	"github.com/linkledger/internal/constants"
	"github.com/linkledger/internal/logger"
	"github.com/linkledger/internal/metrics"
	"github.com/linkledger/internal/models"
	"github.com/linkledger/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var hundred = decimal.NewFromInt(100)

// RefundOutcome 退款对佣金的处理结果
type RefundOutcome string

const (
	RefundOutcomeRefunded    RefundOutcome = "refunded"
	RefundOutcomeSkippedPaid RefundOutcome = "skipped_paid"
	RefundOutcomeNone        RefundOutcome = "none"
)

// CommissionService 佣金计算与退款
type CommissionService struct {
	commissionRepo repository.CommissionRepository
	accountRepo    repository.AffiliateAccountRepository
	metrics        *metrics.LedgerMetrics
}

// NewCommissionService 创建佣金服务
func NewCommissionService(
	commissionRepo repository.CommissionRepository,
	accountRepo repository.AffiliateAccountRepository,
	ledgerMetrics *metrics.LedgerMetrics,
) *CommissionService {
	return &CommissionService{
		commissionRepo: commissionRepo,
		accountRepo:    accountRepo,
		metrics:        ledgerMetrics,
	}
}

// CalculateCommission amount × rate / 100，保留 2 位小数
func CalculateCommission(amount, rate decimal.Decimal) decimal.Decimal {
	return amount.Mul(rate).Div(hundred).Round(2)
}

// CreateForApprovedConversion 在独立事务中为已审核转化创建佣金
func (s *CommissionService) CreateForApprovedConversion(ctx context.Context, conversion *models.Conversion, rate decimal.Decimal) (*models.Commission, error) {
	var created *models.Commission
	err := s.commissionRepo.Transaction(func(tx *gorm.DB) error {
		var err error
		created, err = s.CreateForApprovedConversionTx(tx, conversion, rate)
		return err
	})
	if err != nil {
		return nil, storageError(err)
	}
	s.recordCreated(created)
	return created, nil
}

// CreateForApprovedConversionTx 在调用方事务中创建佣金，并累加推广者累计佣金
func (s *CommissionService) CreateForApprovedConversionTx(tx *gorm.DB, conversion *models.Conversion, rate decimal.Decimal) (*models.Commission, error) {
	if conversion == nil || conversion.ID == 0 {
		return nil, ErrConversionNotFound
	}
	if conversion.Status != constants.ConversionStatusApproved {
		return nil, fmt.Errorf("conversion %d is %s, commission requires approved: %w", conversion.ID, conversion.Status, ErrInvalidTransition)
	}
	if conversion.AffiliateID == nil || *conversion.AffiliateID == 0 {
		return nil, payloadError("conversion %d has no affiliate", conversion.ID)
	}
	if rate.IsNegative() || rate.GreaterThan(hundred) {
		return nil, payloadError("commission rate %s out of range", rate.String())
	}
	affiliateID := *conversion.AffiliateID

	commissionTx := s.commissionRepo.WithTx(tx)
	if _, err := s.accountRepo.WithTx(tx).GetForUpdate(affiliateID); err != nil {
		return nil, err
	}
	existing, err := commissionTx.GetByConversionIDForUpdate(conversion.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrCommissionExists
	}

	amount := CalculateCommission(conversion.Amount.Decimal, rate)
	commission := &models.Commission{
		ConversionID: conversion.ID,
		AffiliateID:  affiliateID,
		MerchantID:   conversion.MerchantID,
		Amount:       models.NewMoneyFromDecimal(amount),
		Rate:         models.NewMoneyFromDecimal(rate),
		Currency:     conversion.Currency,
		Status:       constants.CommissionStatusUnpaid,
	}
	if err := commissionTx.Create(commission); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, ErrCommissionExists
		}
		return nil, err
	}
	if err := s.accountRepo.WithTx(tx).AddEarnings(affiliateID, amount); err != nil {
		return nil, err
	}

	logger.Infow("commission_created",
		"commission_id", commission.ID,
		"conversion_id", conversion.ID,
		"affiliate_id", affiliateID,
		"amount", commission.Amount.String(),
		"rate", commission.Rate.String(),
	)
	return commission, nil
}

// RefundForConversion 在独立事务中处理转化退款对应的佣金
func (s *CommissionService) RefundForConversion(ctx context.Context, conversionID uint) (RefundOutcome, error) {
	outcome := RefundOutcomeNone
	err := s.commissionRepo.Transaction(func(tx *gorm.DB) error {
		var err error
		outcome, _, err = s.RefundForConversionTx(tx, conversionID)
		return err
	})
	if err != nil {
		return RefundOutcomeNone, storageError(err)
	}
	s.recordRefundOutcome(outcome)
	return outcome, nil
}

// recordCreated 事务提交后才计入指标，回滚的事务不计数
func (s *CommissionService) recordCreated(commission *models.Commission) {
	if commission == nil {
		return
	}
	s.metrics.IncCommissionCreated()
}

func (s *CommissionService) recordRefundOutcome(outcome RefundOutcome) {
	if outcome == RefundOutcomeSkippedPaid {
		s.metrics.IncClawbackSkipped()
	}
}

// RefundForConversionTx 未结算佣金转为已退款；已结算佣金保持不变并上报
func (s *CommissionService) RefundForConversionTx(tx *gorm.DB, conversionID uint) (RefundOutcome, *models.Commission, error) {
	commissionTx := s.commissionRepo.WithTx(tx)
	commission, err := commissionTx.GetByConversionID(conversionID)
	if err != nil {
		return RefundOutcomeNone, nil, err
	}
	if commission == nil {
		return RefundOutcomeNone, nil, nil
	}
	// 与结算保持同样的加锁顺序：先账户后佣金
	if _, err := s.accountRepo.WithTx(tx).GetForUpdate(commission.AffiliateID); err != nil {
		return RefundOutcomeNone, nil, err
	}
	commission, err = commissionTx.GetByConversionIDForUpdate(conversionID)
	if err != nil {
		return RefundOutcomeNone, nil, err
	}
	if commission == nil {
		return RefundOutcomeNone, nil, nil
	}

	switch commission.Status {
	case constants.CommissionStatusPaid:
		logger.Warnw("commission_refund_skipped_paid",
			"commission_id", commission.ID,
			"conversion_id", conversionID,
			"affiliate_id", commission.AffiliateID,
			"payout_id", commission.PayoutID,
			"amount", commission.Amount.String(),
		)
		return RefundOutcomeSkippedPaid, commission, nil
	case constants.CommissionStatusRefunded:
		return RefundOutcomeNone, commission, nil
	}
	if err := commissionTransitions.check("commission", commission.Status, constants.CommissionStatusRefunded); err != nil {
		return RefundOutcomeNone, nil, err
	}

	now := time.Now()
	commission.Status = constants.CommissionStatusRefunded
	commission.RefundedAt = &now
	if err := commissionTx.Update(commission); err != nil {
		return RefundOutcomeNone, nil, err
	}
	if err := s.accountRepo.WithTx(tx).AddEarnings(commission.AffiliateID, commission.Amount.Decimal.Neg()); err != nil {
		return RefundOutcomeNone, nil, err
	}
	logger.Infow("commission_refunded",
		"commission_id", commission.ID,
		"conversion_id", conversionID,
		"amount", commission.Amount.String(),
	)
	return RefundOutcomeRefunded, commission, nil
}
