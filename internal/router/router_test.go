package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/linkledger/internal/config"
	"github.com/linkledger/internal/constants"
	"github.com/linkledger/internal/models"
	"github.com/linkledger/internal/provider"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type routerFixture struct {
	engine    *gin.Engine
	db        *gorm.DB
	container *provider.Container
}

func setupRouterTest(t *testing.T) *routerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dsn := fmt.Sprintf("file:router_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := db.AutoMigrate(models.LedgerModels()...); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}

	cfg := &config.Config{}
	cfg.Server.Mode = "debug"
	cfg.JWT.SecretKey = "router-test-secret"
	cfg.JWT.ExpireHours = 1
	cfg.Metrics.Enabled = true
	cfg.Metrics.Path = "/metrics"
	cfg.Settlement.Currency = "USD"
	container := provider.Build(cfg, db, nil)
	return &routerFixture{
		engine:    SetupRouter(cfg, container),
		db:        db,
		container: container,
	}
}

func (f *routerFixture) createOperator(t *testing.T, username string, isSuper bool, roles ...string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret-pass"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password failed: %v", err)
	}
	operator := &models.Operator{Username: username, PasswordHash: string(hash), IsSuper: isSuper}
	if err := f.db.Create(operator).Error; err != nil {
		t.Fatalf("create operator failed: %v", err)
	}
	if len(roles) > 0 {
		if err := f.container.AuthzService.SetOperatorRoles(operator.ID, roles); err != nil {
			t.Fatalf("set operator roles failed: %v", err)
		}
	}
}

func (f *routerFixture) login(t *testing.T, username string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"username": username, "password": "secret-pass"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/admin/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	f.engine.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", w.Code, w.Body.String())
	}
	var resp struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil || resp.Data.Token == "" {
		t.Fatalf("decode login response failed: %v body=%s", err, w.Body.String())
	}
	return resp.Data.Token
}

func (f *routerFixture) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func TestAdminLoginRejectsBadPassword(t *testing.T) {
	f := setupRouterTest(t)
	f.createOperator(t, "ops", true)

	w := f.do(http.MethodPost, "/admin/auth/login", "", map[string]string{"username": "ops", "password": "wrong"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d body=%s", w.Code, w.Body.String())
	}
}

func TestAdminRoutesRequireToken(t *testing.T) {
	f := setupRouterTest(t)
	w := f.do(http.MethodGet, "/admin/conversions", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	w = f.do(http.MethodGet, "/admin/conversions", "not-a-token", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", w.Code)
	}
}

func TestReviewerRoleBoundaries(t *testing.T) {
	f := setupRouterTest(t)
	f.createOperator(t, "reviewer", false, constants.RoleReviewer)
	token := f.login(t, "reviewer")

	merchant := &models.Merchant{Name: "Acme", APIKey: "mk_router", APISecret: "whsec_router", CommissionRate: models.MustMoney("10"), IsActive: true}
	if err := f.db.Create(merchant).Error; err != nil {
		t.Fatalf("create merchant failed: %v", err)
	}

	w := f.do(http.MethodPost, "/admin/links", token, map[string]interface{}{
		"merchant_id":     merchant.ID,
		"affiliate_id":    4,
		"destination_url": "https://shop.example.com/p/1",
		"slug":            "Router Link",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("reviewer should create links, got %d body=%s", w.Code, w.Body.String())
	}

	w = f.do(http.MethodGet, "/admin/conversions", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("reviewer inherits auditor read access, got %d", w.Code)
	}

	w = f.do(http.MethodPost, "/admin/payouts", token, map[string]interface{}{
		"affiliate_id": 4,
		"amount":       "10.00",
		"method":       "paypal",
	})
	if w.Code != http.StatusForbidden {
		t.Fatalf("reviewer must not request payouts, got %d", w.Code)
	}
}

func TestSuperOperatorSettlementFlow(t *testing.T) {
	f := setupRouterTest(t)
	f.createOperator(t, "root", true)
	token := f.login(t, "root")

	merchant := &models.Merchant{Name: "Acme", APIKey: "mk_flow", APISecret: "whsec_flow", CommissionRate: models.MustMoney("10"), IsActive: true}
	if err := f.db.Create(merchant).Error; err != nil {
		t.Fatalf("create merchant failed: %v", err)
	}
	affiliateID := uint(11)
	conversion := &models.Conversion{
		OrderID:     "ORD-FLOW",
		MerchantID:  merchant.ID,
		AffiliateID: &affiliateID,
		Amount:      models.MustMoney("100.00"),
		Currency:    "USD",
		Status:      constants.ConversionStatusPending,
	}
	if err := f.db.Create(conversion).Error; err != nil {
		t.Fatalf("create conversion failed: %v", err)
	}

	path := fmt.Sprintf("/admin/conversions/%d/approve", conversion.ID)
	if w := f.do(http.MethodPost, path, token, nil); w.Code != http.StatusOK {
		t.Fatalf("approve failed: %d %s", w.Code, w.Body.String())
	}
	w := f.do(http.MethodPost, path, token, nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("second approve should conflict, got %d", w.Code)
	}
	var env struct {
		Code string `json:"code"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	if env.Code != "invalid_transition" {
		t.Fatalf("expected invalid_transition, got %q", env.Code)
	}

	w = f.do(http.MethodPost, "/admin/payouts", token, map[string]interface{}{
		"affiliate_id": affiliateID,
		"amount":       "25.00",
		"method":       "paypal",
	})
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("payout above balance should be 422, got %d body=%s", w.Code, w.Body.String())
	}

	w = f.do(http.MethodGet, fmt.Sprintf("/admin/affiliates/%d/balance", affiliateID), token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("balance failed: %d", w.Code)
	}
	var balance struct {
		Data struct {
			Available string `json:"available"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &balance); err != nil {
		t.Fatalf("decode balance failed: %v", err)
	}
	if !decimal.RequireFromString(balance.Data.Available).Equal(decimal.NewFromInt(10)) {
		t.Fatalf("available want 10 got %s", balance.Data.Available)
	}

	w = f.do(http.MethodPost, "/admin/payouts/1/teleport", token, nil)
	if w.Code != http.StatusBadRequest && w.Code != http.StatusNotFound {
		t.Fatalf("unknown payout action should fail, got %d", w.Code)
	}
}

func TestPayoutDetailListsSettledCommissions(t *testing.T) {
	f := setupRouterTest(t)
	f.createOperator(t, "root", true)
	token := f.login(t, "root")

	base := time.Now().Add(-time.Hour)
	for i, amount := range []string{"30", "50", "20"} {
		row := &models.Commission{
			ConversionID: uint(500 + i),
			AffiliateID:  13,
			MerchantID:   1,
			Amount:       models.MustMoney(amount),
			Rate:         models.MustMoney("10"),
			Currency:     "USD",
			Status:       constants.CommissionStatusUnpaid,
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		}
		if err := f.db.Create(row).Error; err != nil {
			t.Fatalf("create commission failed: %v", err)
		}
	}

	w := f.do(http.MethodPost, "/admin/payouts", token, map[string]interface{}{
		"affiliate_id": 13,
		"amount":       "50.00",
		"method":       "bank_transfer",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("request payout failed: %d %s", w.Code, w.Body.String())
	}
	var created struct {
		Data struct {
			ID uint `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil || created.Data.ID == 0 {
		t.Fatalf("decode payout failed: %v body=%s", err, w.Body.String())
	}
	for _, step := range []struct {
		action string
		body   interface{}
	}{
		{action: "approve"},
		{action: "process"},
		{action: "complete", body: map[string]string{"transaction_id": "TX-DETAIL"}},
	} {
		path := fmt.Sprintf("/admin/payouts/%d/%s", created.Data.ID, step.action)
		if w := f.do(http.MethodPost, path, token, step.body); w.Code != http.StatusOK {
			t.Fatalf("%s failed: %d %s", step.action, w.Code, w.Body.String())
		}
	}

	w = f.do(http.MethodGet, fmt.Sprintf("/admin/payouts/%d", created.Data.ID), token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("payout detail failed: %d %s", w.Code, w.Body.String())
	}
	var detail struct {
		Data struct {
			Payout struct {
				Status string `json:"status"`
			} `json:"payout"`
			Commissions []struct {
				ConversionID uint   `json:"conversion_id"`
				Status       string `json:"status"`
			} `json:"commissions"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &detail); err != nil {
		t.Fatalf("decode payout detail failed: %v", err)
	}
	if detail.Data.Payout.Status != constants.PayoutStatusCompleted {
		t.Fatalf("unexpected payout status %q", detail.Data.Payout.Status)
	}
	if len(detail.Data.Commissions) != 2 {
		t.Fatalf("want 2 settled commissions, got %d", len(detail.Data.Commissions))
	}
	for _, row := range detail.Data.Commissions {
		if row.ConversionID == 501 || row.Status != constants.CommissionStatusPaid {
			t.Fatalf("unexpected settled commission: %+v", row)
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	f := setupRouterTest(t)
	f.do(http.MethodGet, "/healthz", "", nil)
	w := f.do(http.MethodGet, "/metrics", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("metrics endpoint status %d", w.Code)
	}
	if !bytes.Contains(w.Body.Bytes(), []byte("http_requests_total")) {
		t.Fatalf("metrics output should include http_requests_total")
	}
}

func TestBuiltinRoleCannotBeDeleted(t *testing.T) {
	f := setupRouterTest(t)
	f.createOperator(t, "root", true)
	token := f.login(t, "root")

	w := f.do(http.MethodDelete, "/admin/authz/roles/finance", token, nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for builtin role delete, got %d %s", w.Code, w.Body.String())
	}

	w = f.do(http.MethodPost, "/admin/authz/roles", token, map[string]string{"role": "support"})
	if w.Code != http.StatusOK {
		t.Fatalf("create custom role failed: %d %s", w.Code, w.Body.String())
	}
	w = f.do(http.MethodDelete, "/admin/authz/roles/support", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete custom role failed: %d %s", w.Code, w.Body.String())
	}
}
