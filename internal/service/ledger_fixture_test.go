package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/linkledger/internal/models"
	"github.com/linkledger/internal/repository"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

const (
	testMerchantKey    = "mk_test_merchant"
	testMerchantSecret = "whsec_test_secret"
)

type ledgerFixture struct {
	db          *gorm.DB
	attribution *AttributionService
	links       *LinkService
	conversions *ConversionService
	commissions *CommissionService
	settlement  *SettlementService
	reconcile   *ReconcileService
	notifier    *recordingNotifier
}

// recordingNotifier 记录事件供断言
type recordingNotifier struct {
	mu          sync.Mutex
	conversions []ConversionStatusEvent
	payouts     []PayoutStatusEvent
}

func (n *recordingNotifier) NotifyConversionStatus(_ context.Context, event ConversionStatusEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.conversions = append(n.conversions, event)
}

func (n *recordingNotifier) NotifyPayoutStatus(_ context.Context, event PayoutStatusEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.payouts = append(n.payouts, event)
}

func setupLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()
	dsn := fmt.Sprintf("file:ledger_service_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(models.LedgerModels()...); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	linkRepo := repository.NewLinkRepository(db)
	accountRepo := repository.NewAffiliateAccountRepository(db)
	merchantRepo := repository.NewMerchantRepository(db)
	conversionRepo := repository.NewConversionRepository(db)
	commissionRepo := repository.NewCommissionRepository(db)
	payoutRepo := repository.NewPayoutRepository(db)

	notifier := &recordingNotifier{}
	commissions := NewCommissionService(commissionRepo, accountRepo, nil)
	return &ledgerFixture{
		db:          db,
		attribution: NewAttributionService(linkRepo, accountRepo, nil, nil),
		links:       NewLinkService(linkRepo, merchantRepo, nil),
		conversions: NewConversionService(conversionRepo, linkRepo, merchantRepo, accountRepo, commissions, notifier, nil),
		commissions: commissions,
		settlement:  NewSettlementService(payoutRepo, commissionRepo, accountRepo, notifier, nil, "usd"),
		reconcile:   NewReconcileService(accountRepo, linkRepo, conversionRepo, commissionRepo, nil),
		notifier:    notifier,
	}
}

func (f *ledgerFixture) createMerchant(t *testing.T, rate string) *models.Merchant {
	t.Helper()
	merchant := &models.Merchant{
		Name:           "Example Shop",
		APIKey:         fmt.Sprintf("%s_%d", testMerchantKey, time.Now().UnixNano()),
		APISecret:      testMerchantSecret,
		CommissionRate: models.MustMoney(rate),
		IsActive:       true,
	}
	if err := f.db.Create(merchant).Error; err != nil {
		t.Fatalf("create merchant failed: %v", err)
	}
	return merchant
}

func (f *ledgerFixture) createLink(t *testing.T, merchantID uint, affiliateID *uint, slug string) *models.Link {
	t.Helper()
	link := &models.Link{
		Slug:           slug,
		MerchantID:     merchantID,
		AffiliateID:    affiliateID,
		Type:           "store",
		DestinationURL: "https://shop.example/landing",
		IsActive:       true,
	}
	if err := f.db.Create(link).Error; err != nil {
		t.Fatalf("create link failed: %v", err)
	}
	return link
}

func (f *ledgerFixture) createCommission(t *testing.T, affiliateID uint, amount string, createdAt time.Time) *models.Commission {
	t.Helper()
	var seq int64
	f.db.Model(&models.Commission{}).Count(&seq)
	commission := &models.Commission{
		ConversionID: uint(9000 + seq),
		AffiliateID:  affiliateID,
		MerchantID:   1,
		Amount:       models.MustMoney(amount),
		Rate:         models.MustMoney("10"),
		Currency:     "USD",
		Status:       "unpaid",
		CreatedAt:    createdAt,
		UpdatedAt:    createdAt,
	}
	if err := f.db.Create(commission).Error; err != nil {
		t.Fatalf("create commission failed: %v", err)
	}
	return commission
}

func uintPtr(v uint) *uint {
	return &v
}
