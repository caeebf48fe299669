package service

import (
	"context"

	"github.com/linkledger/internal/constants"
	"github.com/linkledger/internal/logger"
	"github.com/linkledger/internal/metrics"
	"github.com/linkledger/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const reconcileBatchSize = 200

// ReconcileReport 一次对账的统计
type ReconcileReport struct {
	AccountsScanned  int `json:"accounts_scanned"`
	AccountsRepaired int `json:"accounts_repaired"`
	LinksScanned     int `json:"links_scanned"`
	LinksRepaired    int `json:"links_repaired"`
}

// ReconcileService 以事实表为准修复汇总计数
type ReconcileService struct {
	accountRepo    repository.AffiliateAccountRepository
	linkRepo       repository.LinkRepository
	conversionRepo repository.ConversionRepository
	commissionRepo repository.CommissionRepository
	metrics        *metrics.LedgerMetrics
}

// NewReconcileService 创建对账服务
func NewReconcileService(
	accountRepo repository.AffiliateAccountRepository,
	linkRepo repository.LinkRepository,
	conversionRepo repository.ConversionRepository,
	commissionRepo repository.CommissionRepository,
	ledgerMetrics *metrics.LedgerMetrics,
) *ReconcileService {
	return &ReconcileService{
		accountRepo:    accountRepo,
		linkRepo:       linkRepo,
		conversionRepo: conversionRepo,
		commissionRepo: commissionRepo,
		metrics:        ledgerMetrics,
	}
}

// Run 分批扫描推广者账户与短链，覆盖发生漂移的汇总值
func (s *ReconcileService) Run(ctx context.Context) (*ReconcileReport, error) {
	report := &ReconcileReport{}

	var after uint
	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		ids, err := s.accountRepo.ListIDs(after, reconcileBatchSize)
		if err != nil {
			return report, storageError(err)
		}
		for _, id := range ids {
			repaired, err := s.reconcileAccount(id)
			if err != nil {
				return report, storageError(err)
			}
			report.AccountsScanned++
			if repaired {
				report.AccountsRepaired++
			}
			after = id
		}
		if len(ids) < reconcileBatchSize {
			break
		}
	}

	after = 0
	for {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		ids, err := s.linkRepo.ListIDs(after, reconcileBatchSize)
		if err != nil {
			return report, storageError(err)
		}
		for _, id := range ids {
			repaired, err := s.reconcileLink(id)
			if err != nil {
				return report, storageError(err)
			}
			report.LinksScanned++
			if repaired {
				report.LinksRepaired++
			}
			after = id
		}
		if len(ids) < reconcileBatchSize {
			break
		}
	}

	logger.Infow("reconcile_finished",
		"accounts_scanned", report.AccountsScanned,
		"accounts_repaired", report.AccountsRepaired,
		"links_scanned", report.LinksScanned,
		"links_repaired", report.LinksRepaired,
	)
	return report, nil
}

func (s *ReconcileService) reconcileAccount(affiliateID uint) (bool, error) {
	repaired := false
	err := s.accountRepo.Transaction(func(tx *gorm.DB) error {
		accountTx := s.accountRepo.WithTx(tx)
		account, err := accountTx.GetForUpdate(affiliateID)
		if err != nil {
			return err
		}
		if account == nil {
			return nil
		}
		clicks, err := s.linkRepo.WithTx(tx).CountClicksByAffiliate(affiliateID)
		if err != nil {
			return err
		}
		conversions, err := s.conversionRepo.WithTx(tx).CountByAffiliate(affiliateID)
		if err != nil {
			return err
		}
		commissionTx := s.commissionRepo.WithTx(tx)
		total, err := commissionTx.SumByAffiliate(affiliateID, "", []string{
			constants.CommissionStatusUnpaid,
			constants.CommissionStatusPaid,
		})
		if err != nil {
			return err
		}
		paid, err := commissionTx.SumByAffiliate(affiliateID, "", []string{constants.CommissionStatusPaid})
		if err != nil {
			return err
		}

		expected := repository.AccountAggregate{
			ClickCount:      clicks,
			ConversionCount: conversions,
			TotalEarnings:   total,
			PaidEarnings:    paid,
		}
		if account.ClickCount == clicks &&
			account.ConversionCount == conversions &&
			sameAmount(account.TotalEarnings.Decimal, total) &&
			sameAmount(account.PaidEarnings.Decimal, paid) {
			return nil
		}
		if err := accountTx.OverwriteAggregate(affiliateID, expected); err != nil {
			return err
		}
		repaired = true
		logger.Warnw("aggregate_drift_repaired",
			"kind", "affiliate_account",
			"affiliate_id", affiliateID,
			"click_count", []int64{account.ClickCount, clicks},
			"conversion_count", []int64{account.ConversionCount, conversions},
			"total_earnings", []string{account.TotalEarnings.String(), total.StringFixed(2)},
			"paid_earnings", []string{account.PaidEarnings.String(), paid.StringFixed(2)},
		)
		return nil
	})
	if err == nil && repaired {
		s.metrics.IncAggregateRepair("affiliate_account")
	}
	return repaired, err
}

func (s *ReconcileService) reconcileLink(linkID uint) (bool, error) {
	repaired := false
	err := s.linkRepo.Transaction(func(tx *gorm.DB) error {
		linkTx := s.linkRepo.WithTx(tx)
		link, err := linkTx.GetByIDForUpdate(linkID)
		if err != nil {
			return err
		}
		if link == nil {
			return nil
		}
		clicks, err := linkTx.CountClicksByLink(linkID)
		if err != nil {
			return err
		}
		conversions, err := s.conversionRepo.WithTx(tx).CountByLink(linkID)
		if err != nil {
			return err
		}
		if link.ClickCount == clicks && link.ConversionCount == conversions {
			return nil
		}
		if err := linkTx.OverwriteAggregate(linkID, repository.LinkAggregate{
			ClickCount:      clicks,
			ConversionCount: conversions,
		}); err != nil {
			return err
		}
		repaired = true
		logger.Warnw("aggregate_drift_repaired",
			"kind", "link",
			"link_id", linkID,
			"click_count", []int64{link.ClickCount, clicks},
			"conversion_count", []int64{link.ConversionCount, conversions},
		)
		return nil
	})
	if err == nil && repaired {
		s.metrics.IncAggregateRepair("link")
	}
	return repaired, err
}

func sameAmount(a, b decimal.Decimal) bool {
	return a.Round(2).Equal(b.Round(2))
}
