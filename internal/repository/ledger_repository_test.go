package repository

import (
	"fmt"
	"testing"
	"time"

	"github.com/linkledger/internal/constants"
	"github.com/linkledger/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func setupLedgerRepositoryTest(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:ledger_repo_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
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
	return db
}

func TestLinkRepositoryIncrementClicksSkipsInactive(t *testing.T) {
	db := setupLedgerRepositoryTest(t)
	repo := NewLinkRepository(db)

	link := &models.Link{Slug: "spring-sale", MerchantID: 1, DestinationURL: "https://shop.example/sale", IsActive: true}
	if err := repo.Create(link); err != nil {
		t.Fatalf("create link failed: %v", err)
	}
	ok, err := repo.IncrementClicks(link.ID)
	if err != nil || !ok {
		t.Fatalf("expected increment on active link, ok=%v err=%v", ok, err)
	}
	if _, err := repo.UpdateActive(link.ID, false); err != nil {
		t.Fatalf("deactivate failed: %v", err)
	}
	ok, err = repo.IncrementClicks(link.ID)
	if err != nil {
		t.Fatalf("increment failed: %v", err)
	}
	if ok {
		t.Fatalf("inactive link must not be incremented")
	}
	got, _ := repo.GetByID(link.ID)
	if got.ClickCount != 1 {
		t.Fatalf("unexpected click count: %d", got.ClickCount)
	}
}

func TestConversionRepositoryDuplicateOrderIsUniqueViolation(t *testing.T) {
	db := setupLedgerRepositoryTest(t)
	repo := NewConversionRepository(db)

	first := &models.Conversion{OrderID: "ORD-1", MerchantID: 7, Amount: models.MustMoney("10"), Currency: "USD", Status: constants.ConversionStatusPending}
	if err := repo.Create(first); err != nil {
		t.Fatalf("create conversion failed: %v", err)
	}
	dup := &models.Conversion{OrderID: "ORD-1", MerchantID: 7, Amount: models.MustMoney("99"), Currency: "USD", Status: constants.ConversionStatusPending}
	err := repo.Create(dup)
	if !IsUniqueViolation(err) {
		t.Fatalf("expected unique violation, got %v", err)
	}
	other := &models.Conversion{OrderID: "ORD-1", MerchantID: 8, Amount: models.MustMoney("10"), Currency: "USD", Status: constants.ConversionStatusPending}
	if err := repo.Create(other); err != nil {
		t.Fatalf("same order for another merchant should be allowed: %v", err)
	}
	found, err := repo.GetByOrderAndMerchant("ORD-1", 7)
	if err != nil || found == nil || found.ID != first.ID {
		t.Fatalf("lookup by idempotency key failed: %+v err=%v", found, err)
	}
}

func TestCommissionRepositoryUnpaidOrderingAndMarkPaid(t *testing.T) {
	db := setupLedgerRepositoryTest(t)
	repo := NewCommissionRepository(db)
	base := time.Now().Add(-time.Hour)

	rows := []models.Commission{
		{ConversionID: 3, AffiliateID: 5, MerchantID: 1, Amount: models.MustMoney("20"), Rate: models.MustMoney("10"), Currency: "USD", Status: constants.CommissionStatusUnpaid, CreatedAt: base.Add(2 * time.Minute)},
		{ConversionID: 1, AffiliateID: 5, MerchantID: 1, Amount: models.MustMoney("30"), Rate: models.MustMoney("10"), Currency: "USD", Status: constants.CommissionStatusUnpaid, CreatedAt: base},
		{ConversionID: 2, AffiliateID: 5, MerchantID: 1, Amount: models.MustMoney("50"), Rate: models.MustMoney("10"), Currency: "EUR", Status: constants.CommissionStatusUnpaid, CreatedAt: base.Add(time.Minute)},
		{ConversionID: 4, AffiliateID: 6, MerchantID: 1, Amount: models.MustMoney("70"), Rate: models.MustMoney("10"), Currency: "USD", Status: constants.CommissionStatusUnpaid, CreatedAt: base},
	}
	for i := range rows {
		if err := repo.Create(&rows[i]); err != nil {
			t.Fatalf("create commission failed: %v", err)
		}
	}

	unpaid, err := repo.ListUnpaidForUpdate(5, "USD")
	if err != nil {
		t.Fatalf("list unpaid failed: %v", err)
	}
	if len(unpaid) != 2 || unpaid[0].ConversionID != 1 || unpaid[1].ConversionID != 3 {
		t.Fatalf("unexpected unpaid order: %+v", unpaid)
	}

	affected, err := repo.MarkPaid([]uint{unpaid[0].ID}, 99, time.Now())
	if err != nil || affected != 1 {
		t.Fatalf("mark paid failed: affected=%d err=%v", affected, err)
	}
	affected, err = repo.MarkPaid([]uint{unpaid[0].ID}, 100, time.Now())
	if err != nil || affected != 0 {
		t.Fatalf("paid commission must not be re-marked: affected=%d err=%v", affected, err)
	}

	sum, err := repo.SumByAffiliate(5, "USD", []string{constants.CommissionStatusUnpaid})
	if err != nil {
		t.Fatalf("sum failed: %v", err)
	}
	if !sum.Equal(decimal.RequireFromString("20")) {
		t.Fatalf("unexpected unpaid sum: %s", sum)
	}
}

func TestPayoutRepositorySumOpenAmount(t *testing.T) {
	db := setupLedgerRepositoryTest(t)
	repo := NewPayoutRepository(db)
	statuses := []string{
		constants.PayoutStatusRequested,
		constants.PayoutStatusApproved,
		constants.PayoutStatusProcessing,
		constants.PayoutStatusCompleted,
		constants.PayoutStatusCancelled,
	}
	for _, status := range statuses {
		p := &models.Payout{AffiliateID: 9, Amount: models.MustMoney("5"), Currency: "USD", Method: constants.PayoutMethodPaypal, Status: status, RequestedAt: time.Now()}
		if err := repo.Create(p); err != nil {
			t.Fatalf("create payout failed: %v", err)
		}
	}
	sum, err := repo.SumOpenAmount(9, "USD")
	if err != nil {
		t.Fatalf("sum open failed: %v", err)
	}
	if !sum.Equal(decimal.RequireFromString("15")) {
		t.Fatalf("unexpected open amount: %s", sum)
	}
}

func TestAffiliateAccountRepositoryEnsureAndAdjust(t *testing.T) {
	db := setupLedgerRepositoryTest(t)
	repo := NewAffiliateAccountRepository(db)

	if err := repo.Ensure(42); err != nil {
		t.Fatalf("ensure failed: %v", err)
	}
	if err := repo.Ensure(42); err != nil {
		t.Fatalf("second ensure must be a no-op: %v", err)
	}
	if err := repo.IncrementClicks(42); err != nil {
		t.Fatalf("increment clicks failed: %v", err)
	}
	if err := repo.AddEarnings(42, decimal.RequireFromString("12.50")); err != nil {
		t.Fatalf("add earnings failed: %v", err)
	}
	if err := repo.AddEarnings(42, decimal.RequireFromString("-2.50")); err != nil {
		t.Fatalf("subtract earnings failed: %v", err)
	}
	account, err := repo.GetForUpdate(42)
	if err != nil || account == nil {
		t.Fatalf("get for update failed: %v", err)
	}
	if account.ClickCount != 1 || account.TotalEarnings.String() != "10.00" {
		t.Fatalf("unexpected account: %+v", account)
	}

	lazy, err := repo.GetForUpdate(77)
	if err != nil || lazy == nil || lazy.ID != 77 {
		t.Fatalf("get for update should create account lazily: %+v err=%v", lazy, err)
	}
}

func TestDeliveryRepositoryDeleteBefore(t *testing.T) {
	db := setupLedgerRepositoryTest(t)
	repo := NewDeliveryRepository(db)
	old := &models.WebhookDelivery{DeliveryID: "01OLD", EventType: constants.WebhookEventTest, Status: constants.DeliveryStatusSuccess, CreatedAt: time.Now().AddDate(0, 0, -40)}
	fresh := &models.WebhookDelivery{DeliveryID: "01NEW", EventType: constants.WebhookEventTest, Status: constants.DeliveryStatusFailed, CreatedAt: time.Now()}
	for _, row := range []*models.WebhookDelivery{old, fresh} {
		if err := repo.Create(row); err != nil {
			t.Fatalf("create delivery failed: %v", err)
		}
	}
	removed, err := repo.DeleteBefore(time.Now().AddDate(0, 0, -30))
	if err != nil || removed != 1 {
		t.Fatalf("prune failed: removed=%d err=%v", removed, err)
	}
	rows, total, err := repo.List(DeliveryListFilter{Status: constants.DeliveryStatusFailed, Page: 1, PageSize: 10})
	if err != nil || total != 1 || rows[0].DeliveryID != "01NEW" {
		t.Fatalf("unexpected deliveries: %+v total=%d err=%v", rows, total, err)
	}
}

func TestConversionRepositoryKeywordSearch(t *testing.T) {
	db := setupLedgerRepositoryTest(t)
	repo := NewConversionRepository(db)

	rows := []*models.Conversion{
		{OrderID: "SPRING-100", MerchantID: 1, Amount: models.MustMoney("10"), Currency: "USD", Status: constants.ConversionStatusPending},
		{OrderID: "W-2", MerchantID: 1, CustomerEmail: "spring@example.com", Amount: models.MustMoney("10"), Currency: "USD", Status: constants.ConversionStatusPending},
		{OrderID: "W-3", MerchantID: 1, Metadata: models.JSON{"campaign": "spring_launch"}, Amount: models.MustMoney("10"), Currency: "USD", Status: constants.ConversionStatusPending},
		{OrderID: "W-4", MerchantID: 1, Metadata: models.JSON{"campaign": "autumn"}, Amount: models.MustMoney("10"), Currency: "USD", Status: constants.ConversionStatusPending},
	}
	for _, row := range rows {
		if err := repo.Create(row); err != nil {
			t.Fatalf("create conversion failed: %v", err)
		}
	}

	found, total, err := repo.List(ConversionListFilter{Keyword: "spring", Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("keyword list failed: %v", err)
	}
	if total != 3 || len(found) != 3 {
		t.Fatalf("expected 3 keyword matches, got total=%d rows=%+v", total, found)
	}

	// 通配符按字面匹配
	_, total, err = repo.List(ConversionListFilter{Keyword: "%", Page: 1, PageSize: 10})
	if err != nil || total != 0 {
		t.Fatalf("literal percent should match nothing: total=%d err=%v", total, err)
	}
}
