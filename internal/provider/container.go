package provider

import (
	"time"

	"github.com/linkledger/internal/authz"
	"github.com/linkledger/internal/cache"
	"github.com/linkledger/internal/config"
	"github.com/linkledger/internal/logger"
	"github.com/linkledger/internal/metrics"
	"github.com/linkledger/internal/models"
	"github.com/linkledger/internal/notify"
	"github.com/linkledger/internal/queue"
	"github.com/linkledger/internal/repository"
	"github.com/linkledger/internal/service"

	"gorm.io/gorm"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	DB          *gorm.DB
	QueueClient *queue.Client
	Metrics     *metrics.Set

	// Repositories
	LinkRepo       repository.LinkRepository
	MerchantRepo   repository.MerchantRepository
	AccountRepo    repository.AffiliateAccountRepository
	ConversionRepo repository.ConversionRepository
	CommissionRepo repository.CommissionRepository
	PayoutRepo     repository.PayoutRepository
	DeliveryRepo   repository.DeliveryRepository
	OperatorRepo   repository.OperatorRepository

	// Services
	AuthzService       *authz.Service
	AuthService        *service.AuthService
	AttributionService *service.AttributionService
	LinkService        *service.LinkService
	ConversionService  *service.ConversionService
	CommissionService  *service.CommissionService
	SettlementService  *service.SettlementService
	ReconcileService   *service.ReconcileService
	WebhookSender      *notify.Sender
	Dispatcher         *notify.Dispatcher
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	return Build(cfg, models.DB, queueClient)
}

// Build 基于已打开的数据库组装容器，queueClient 可为 nil
func Build(cfg *config.Config, db *gorm.DB, queueClient *queue.Client) *Container {
	c := &Container{
		Config:      cfg,
		DB:          db,
		QueueClient: queueClient,
		Metrics:     metrics.NewSet(),
	}

	// 1. 初始化 Repositories
	c.initRepositories(db)

	// 2. 初始化 Services
	c.initServices(db)

	return c
}

func (c *Container) initRepositories(db *gorm.DB) {
	c.LinkRepo = repository.NewLinkRepository(db)
	c.MerchantRepo = repository.NewMerchantRepository(db)
	c.AccountRepo = repository.NewAffiliateAccountRepository(db)
	c.ConversionRepo = repository.NewConversionRepository(db)
	c.CommissionRepo = repository.NewCommissionRepository(db)
	c.PayoutRepo = repository.NewPayoutRepository(db)
	c.DeliveryRepo = repository.NewDeliveryRepository(db)
	c.OperatorRepo = repository.NewOperatorRepository(db)
}

func (c *Container) initServices(db *gorm.DB) {
	authzService, err := authz.NewService(db)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}

	var linkCache service.LinkCache
	if cache.Enabled() {
		linkCache = cache.NewRedisLinkCache(time.Duration(c.Config.LinkCache.TTLSeconds) * time.Second)
	}
	ledgerMetrics := c.Metrics.Ledger

	c.WebhookSender = notify.NewSender(c.MerchantRepo, c.DeliveryRepo, c.Config.Webhook, c.Config.Notify, ledgerMetrics)
	c.Dispatcher = notify.NewDispatcher(c.QueueClient, c.WebhookSender)

	c.AuthService = service.NewAuthService(c.Config, c.OperatorRepo)
	c.AttributionService = service.NewAttributionService(c.LinkRepo, c.AccountRepo, linkCache, ledgerMetrics)
	c.LinkService = service.NewLinkService(c.LinkRepo, c.MerchantRepo, linkCache)
	c.CommissionService = service.NewCommissionService(c.CommissionRepo, c.AccountRepo, ledgerMetrics)
	c.ConversionService = service.NewConversionService(c.ConversionRepo, c.LinkRepo, c.MerchantRepo, c.AccountRepo, c.CommissionService, c.Dispatcher, ledgerMetrics)
	c.SettlementService = service.NewSettlementService(c.PayoutRepo, c.CommissionRepo, c.AccountRepo, c.Dispatcher, ledgerMetrics, c.Config.Settlement.Currency)
	c.ReconcileService = service.NewReconcileService(c.AccountRepo, c.LinkRepo, c.ConversionRepo, c.CommissionRepo, ledgerMetrics)
}

// Close 释放外部连接
func (c *Container) Close() {
	if c == nil {
		return
	}
	if err := c.QueueClient.Close(); err != nil {
		logger.Warnw("provider_close_queue_client_failed", "error", err)
	}
	if err := cache.Close(); err != nil {
		logger.Warnw("provider_close_redis_failed", "error", err)
	}
}
