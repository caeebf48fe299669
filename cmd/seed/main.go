package main

import (
	"context"
	"errors"
	"flag"
	"fmt"

	"github.com/linkledger/internal/config"
	"github.com/linkledger/internal/logger"
	"github.com/linkledger/internal/models"
	"github.com/linkledger/internal/repository"
	"github.com/linkledger/internal/service"
	"github.com/linkledger/internal/signature"

	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

const (
	demoMerchantAPIKey = "mk_demo_merchant"
	demoMerchantSecret = "whsec_demo_merchant_secret"
	demoAffiliateID    = uint(1001)
	demoLinkSlug       = "demo-summer-sale"
)

func main() {
	var host string
	flag.StringVar(&host, "host", "http://127.0.0.1:8080", "示例请求使用的服务地址")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	defer logger.Sync()
	stdLog := logger.StdLogger()

	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}, false); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}
	if err := models.InitDefaultOperator("", ""); err != nil {
		stdLog.Printf("Failed to init default operator: %v", err)
	}

	merchant, err := ensureMerchant()
	if err != nil {
		stdLog.Fatalf("Failed to seed merchant: %v", err)
	}
	if err := ensureAffiliate(); err != nil {
		stdLog.Fatalf("Failed to seed affiliate: %v", err)
	}
	link, err := ensureLink(merchant.ID)
	if err != nil {
		stdLog.Fatalf("Failed to seed link: %v", err)
	}

	body := fmt.Sprintf(`{"orderId":"demo-order-1","linkId":%d,"amount":"49.90","currency":"USD"}`, link.ID)
	sig := signature.Sign(demoMerchantSecret, []byte(body))

	fmt.Printf("merchant #%d api_key=%s\n", merchant.ID, merchant.APIKey)
	fmt.Printf("link #%d %s/links/%s -> %s\n", link.ID, host, link.Slug, link.DestinationURL)
	fmt.Println("sample conversion webhook:")
	fmt.Printf("curl -X POST %s/webhooks/conversions \\\n  -H 'Content-Type: application/json' \\\n  -H 'X-Merchant-Api-Key: %s' \\\n  -H 'X-Webhook-Signature: %s' \\\n  -d '%s'\n",
		host, demoMerchantAPIKey, sig, body)
}

func ensureMerchant() (*models.Merchant, error) {
	repo := repository.NewMerchantRepository(models.DB)
	existing, err := repo.GetByAPIKey(demoMerchantAPIKey)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		logger.Infow("seed_merchant_exists", "merchant_id", existing.ID)
		return existing, nil
	}
	merchant := &models.Merchant{
		Name:           "Demo Merchant",
		APIKey:         demoMerchantAPIKey,
		APISecret:      demoMerchantSecret,
		CommissionRate: models.MustMoney("10"),
		IsActive:       true,
	}
	if err := repo.Create(merchant); err != nil {
		return nil, err
	}
	logger.Infow("seed_merchant_created", "merchant_id", merchant.ID)
	return merchant, nil
}

func ensureAffiliate() error {
	account := models.AffiliateAccount{ID: demoAffiliateID}
	return models.DB.Where(models.AffiliateAccount{ID: demoAffiliateID}).FirstOrCreate(&account).Error
}

func ensureLink(merchantID uint) (*models.Link, error) {
	var existing models.Link
	err := models.DB.Where("slug = ?", demoLinkSlug).First(&existing).Error
	if err == nil {
		logger.Infow("seed_link_exists", "link_id", existing.ID)
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	links := service.NewLinkService(
		repository.NewLinkRepository(models.DB),
		repository.NewMerchantRepository(models.DB),
		nil,
	)
	affiliateID := demoAffiliateID
	link, err := links.Create(context.Background(), service.CreateLinkInput{
		MerchantID:     merchantID,
		AffiliateID:    &affiliateID,
		Type:           "offer",
		DestinationURL: "https://example.com/summer-sale",
		Title:          "Summer Sale",
		Slug:           demoLinkSlug,
		UTMParams:      map[string]string{"utm_source": "linkledger", "utm_campaign": "summer"},
	})
	if err != nil {
		return nil, err
	}
	logger.Infow("seed_link_created", "link_id", link.ID, "slug", link.Slug)
	return link, nil
}
