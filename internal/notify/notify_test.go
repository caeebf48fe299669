package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/linkledger/internal/config"
	"github.com/linkledger/internal/constants"
	"github.com/linkledger/internal/models"
	"github.com/linkledger/internal/queue"
	"github.com/linkledger/internal/repository"
	"github.com/linkledger/internal/service"
	"github.com/linkledger/internal/signature"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupNotifyTest(t *testing.T) (*gorm.DB, *Sender) {
	t.Helper()
	dsn := fmt.Sprintf("file:notify_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(models.LedgerModels()...); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	sender := NewSender(
		repository.NewMerchantRepository(db),
		repository.NewDeliveryRepository(db),
		config.WebhookConfig{TimeoutSeconds: 2, DeliveryRetentionDays: 7},
		config.NotifyConfig{},
		nil,
	)
	return db, sender
}

func createMerchant(t *testing.T, db *gorm.DB, webhookURL string) *models.Merchant {
	t.Helper()
	merchant := &models.Merchant{
		Name:           "Acme",
		APIKey:         fmt.Sprintf("mk_%d", time.Now().UnixNano()),
		APISecret:      "merchant-secret",
		CommissionRate: models.MustMoney("10"),
		WebhookURL:     webhookURL,
		IsActive:       true,
	}
	if err := db.Create(merchant).Error; err != nil {
		t.Fatalf("create merchant failed: %v", err)
	}
	return merchant
}

func TestSenderDeliversSignedBody(t *testing.T) {
	var (
		mu       sync.Mutex
		received []byte
		headers  http.Header
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		received = body
		headers = r.Header.Clone()
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	db, sender := setupNotifyTest(t)
	merchant := createMerchant(t, db, server.URL)
	body, _ := json.Marshal(conversionBody{ID: 5, OrderID: "ORD-5", Status: "approved", Amount: models.MustMoney("12.5"), Currency: "USD"})

	row, err := sender.Deliver(context.Background(), queue.WebhookDeliverPayload{
		DeliveryID: "01HZXDELIVERY0000000000001",
		Event:      constants.WebhookEventConversionStatus,
		MerchantID: &merchant.ID,
		ResourceID: 5,
		Body:       body,
	})
	if err != nil {
		t.Fatalf("deliver failed: %v", err)
	}
	if row.Status != constants.DeliveryStatusSuccess || row.ResponseStatus != http.StatusNoContent {
		t.Fatalf("unexpected delivery row: %+v", row)
	}

	mu.Lock()
	defer mu.Unlock()
	if !signature.Verify("merchant-secret", received, headers.Get(constants.HeaderWebhookSignature)) {
		t.Fatalf("signature header does not verify")
	}
	if headers.Get(constants.HeaderWebhookEvent) != constants.WebhookEventConversionStatus {
		t.Fatalf("unexpected event header %q", headers.Get(constants.HeaderWebhookEvent))
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(received, &decoded); err != nil {
		t.Fatalf("decode body failed: %v", err)
	}
	if decoded["orderId"] != "ORD-5" || decoded["amount"] != "12.50" {
		t.Fatalf("unexpected body: %s", received)
	}

	var count int64
	db.Model(&models.WebhookDelivery{}).Where("status = ?", constants.DeliveryStatusSuccess).Count(&count)
	if count != 1 {
		t.Fatalf("expected one success row, got %d", count)
	}
}

func TestSenderRecordsFailureAndSkip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	db, sender := setupNotifyTest(t)
	failing := createMerchant(t, db, server.URL)
	silent := createMerchant(t, db, "")

	row, err := sender.Deliver(context.Background(), queue.WebhookDeliverPayload{
		DeliveryID: "01HZXDELIVERY0000000000002",
		Event:      constants.WebhookEventConversionStatus,
		MerchantID: &failing.ID,
		ResourceID: 1,
		Body:       []byte(`{}`),
	})
	if !errors.Is(err, ErrUnexpectedStatus) {
		t.Fatalf("expected unexpected status error, got %v", err)
	}
	if row.Status != constants.DeliveryStatusFailed || row.ResponseStatus != http.StatusInternalServerError {
		t.Fatalf("unexpected failed row: %+v", row)
	}

	row, err = sender.Deliver(context.Background(), queue.WebhookDeliverPayload{
		DeliveryID: "01HZXDELIVERY0000000000003",
		Event:      constants.WebhookEventConversionStatus,
		MerchantID: &silent.ID,
		ResourceID: 2,
		Body:       []byte(`{}`),
	})
	if err != nil || row.Status != constants.DeliveryStatusSkipped {
		t.Fatalf("merchant without url should be skipped, row=%+v err=%v", row, err)
	}

	rows, total, err := sender.ListDeliveries(context.Background(), repository.DeliveryListFilter{Page: 1, PageSize: 10})
	if err != nil || total != 2 || len(rows) != 2 {
		t.Fatalf("expected two delivery rows, total=%d err=%v", total, err)
	}
}

func TestDispatcherSendTest(t *testing.T) {
	hits := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits <- r.Header.Get(constants.HeaderWebhookEvent)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	db, sender := setupNotifyTest(t)
	merchant := createMerchant(t, db, server.URL)
	dispatcher := NewDispatcher(nil, sender)

	result, err := dispatcher.SendTest(context.Background(), merchant.ID)
	if err != nil {
		t.Fatalf("send test failed: %v", err)
	}
	if result.Error != "" || result.Delivery.Status != constants.DeliveryStatusSuccess {
		t.Fatalf("unexpected result: %+v", result)
	}
	if got := <-hits; got != constants.WebhookEventTest {
		t.Fatalf("unexpected event header %q", got)
	}
	if _, err := dispatcher.SendTest(context.Background(), 9999); !errors.Is(err, service.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDispatcherDeliversInlineWithoutQueue(t *testing.T) {
	hits := make(chan []byte, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		hits <- body
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	db, sender := setupNotifyTest(t)
	sender.notifyCfg = config.NotifyConfig{PayoutWebhookURL: server.URL, PayoutWebhookSecret: "payout-secret"}
	_ = db
	dispatcher := NewDispatcher(nil, sender)

	dispatcher.NotifyPayoutStatus(context.Background(), service.PayoutStatusEvent{
		PayoutID:    3,
		AffiliateID: 9,
		Status:      constants.PayoutStatusCompleted,
		Amount:      models.MustMoney("50"),
		Currency:    "USD",
	})

	select {
	case body := <-hits:
		var decoded payoutBody
		if err := json.Unmarshal(body, &decoded); err != nil {
			t.Fatalf("decode payout body failed: %v", err)
		}
		if decoded.ID != 3 || decoded.AffiliateID != 9 || decoded.Status != constants.PayoutStatusCompleted {
			t.Fatalf("unexpected payout body: %+v", decoded)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("payout webhook was not delivered")
	}
}

func TestSenderPruneDeliveries(t *testing.T) {
	db, sender := setupNotifyTest(t)
	old := &models.WebhookDelivery{DeliveryID: "old", EventType: "x", Status: constants.DeliveryStatusSuccess, CreatedAt: time.Now().AddDate(0, 0, -30)}
	fresh := &models.WebhookDelivery{DeliveryID: "fresh", EventType: "x", Status: constants.DeliveryStatusSuccess}
	db.Create(old)
	db.Create(fresh)

	removed, err := sender.PruneDeliveries(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("prune failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected one pruned row, got %d", removed)
	}
}
