package router

import (
	"fmt"
	"sort"
	"strings"

	"github.com/linkledger/internal/authz"
	"github.com/linkledger/internal/cache"
	"github.com/linkledger/internal/config"
	"github.com/linkledger/internal/constants"
	adminhandlers "github.com/linkledger/internal/http/handlers/admin"
	publichandlers "github.com/linkledger/internal/http/handlers/public"
	"github.com/linkledger/internal/http/response"
	"github.com/linkledger/internal/logger"
	"github.com/linkledger/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	// 初始化 Handler（按公开/后台分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "ll"
	}
	redisClient := cache.Client()
	redirectRule := buildRateLimitRule(redisPrefix, "redirect", cfg.Security.RedirectRateLimit)
	webhookRule := buildRateLimitRule(redisPrefix, "webhook", cfg.Security.WebhookRateLimit)
	loginRule := buildRateLimitRule(redisPrefix, "admin_login", cfg.Security.LoginRateLimit)

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))
	if c.Metrics != nil {
		r.Use(c.Metrics.HTTP.Middleware())
	}

	// 短链跳转与商户回调
	r.GET("/links/:slug", RateLimitMiddleware(redisClient, redirectRule, KeyByIP), publicHandler.RedirectLink)
	r.POST("/webhooks/conversions", RateLimitMiddleware(redisClient, webhookRule, KeyByHeader(constants.HeaderMerchantAPIKey)), publicHandler.IngestConversion)

	// 健康检查与指标
	r.GET("/healthz", publicHandler.Healthz)
	if cfg.Metrics.Enabled && c.Metrics != nil {
		metricsPath := strings.TrimSpace(cfg.Metrics.Path)
		if metricsPath == "" {
			metricsPath = "/metrics"
		}
		r.GET(metricsPath, gin.WrapH(c.Metrics.Handler()))
	}

	// 运营后台接口
	admin := r.Group("/admin")
	{
		// 登录接口（无需鉴权）
		admin.POST("/auth/login", RateLimitMiddleware(redisClient, loginRule, KeyByIPAndJSONField("username")), adminHandler.Login)

		// 需要鉴权的接口
		authorized := admin.Group("")
		authorized.Use(JWTAuthMiddleware(c.AuthService, c.OperatorRepo, cfg.JWT.SecretKey), OperatorRBACMiddleware(c.AuthzService))
		{
			// 短链管理
			authorized.POST("/links", adminHandler.CreateLink)
			authorized.GET("/links/:id", adminHandler.GetLink)
			authorized.PATCH("/links/:id/status", adminHandler.UpdateLinkStatus)

			// 转化审核
			authorized.GET("/conversions", adminHandler.ListConversions)
			authorized.GET("/conversions/:id", adminHandler.GetConversion)
			authorized.POST("/conversions/:id/approve", adminHandler.ApproveConversion)
			authorized.POST("/conversions/:id/reject", adminHandler.RejectConversion)
			authorized.POST("/conversions/:id/refund", adminHandler.RefundConversion)

			// 提现结算
			authorized.POST("/payouts", adminHandler.CreatePayout)
			authorized.GET("/payouts", adminHandler.ListPayouts)
			authorized.GET("/payouts/:id", adminHandler.GetPayout)
			authorized.POST("/payouts/:id/:action", adminHandler.PayoutAction)
			authorized.GET("/affiliates/:id/balance", adminHandler.GetAffiliateBalance)
			authorized.POST("/reconcile", adminHandler.RunReconcile)

			// 商户回调
			authorized.GET("/webhook-deliveries", adminHandler.ListWebhookDeliveries)
			authorized.POST("/merchants/:id/webhook-test", adminHandler.SendWebhookTest)

			// 权限管理
			authorized.GET("/authz/me", adminHandler.GetAuthzMe)
			authorized.GET("/authz/roles", adminHandler.ListAuthzRoles)
			authorized.POST("/authz/roles", adminHandler.CreateAuthzRole)
			authorized.DELETE("/authz/roles/:role", adminHandler.DeleteAuthzRole)
			authorized.GET("/authz/roles/:role/policies", adminHandler.GetAuthzRolePolicies)
			authorized.POST("/authz/policies", adminHandler.GrantAuthzPolicy)
			authorized.DELETE("/authz/policies", adminHandler.RevokeAuthzPolicy)
			authorized.GET("/authz/operators", adminHandler.ListAuthzOperators)
			authorized.GET("/authz/operators/:id/roles", adminHandler.GetAuthzOperatorRoles)
			authorized.PUT("/authz/operators/:id/roles", adminHandler.SetAuthzOperatorRoles)
			authorized.GET("/authz/permissions/catalog", func(ctx *gin.Context) {
				response.Success(ctx, buildAdminPermissionCatalog(r))
			})
		}
	}

	return r
}

func buildRateLimitRule(prefix, scope string, cfg config.RateLimitConfig) RateLimitRule {
	return RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:%s", prefix, scope),
		WindowSeconds: cfg.WindowSeconds,
		MaxRequests:   cfg.MaxAttempts,
		BlockSeconds:  cfg.BlockSeconds,
		MessageKey:    "error.too_many_requests",
	}
}

type adminPermissionCatalogItem struct {
	Module     string `json:"module"`
	Method     string `json:"method"`
	Object     string `json:"object"`
	Permission string `json:"permission"`
}

func buildAdminPermissionCatalog(engine *gin.Engine) []adminPermissionCatalogItem {
	if engine == nil {
		return []adminPermissionCatalogItem{}
	}

	routes := engine.Routes()
	seen := make(map[string]struct{}, len(routes))
	items := make([]adminPermissionCatalogItem, 0, len(routes))

	for _, item := range routes {
		method := strings.ToUpper(strings.TrimSpace(item.Method))
		if method == "" || method == "OPTIONS" || method == "HEAD" {
			continue
		}
		if !strings.HasPrefix(item.Path, "/admin/") {
			continue
		}
		if item.Path == "/admin/auth/login" {
			continue
		}
		object := authz.NormalizeObject(item.Path)
		permission := method + ":" + object
		if _, exists := seen[permission]; exists {
			continue
		}
		seen[permission] = struct{}{}
		items = append(items, adminPermissionCatalogItem{
			Module:     deriveAdminPermissionModule(object),
			Method:     method,
			Object:     object,
			Permission: permission,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Module == items[j].Module {
			if items[i].Object == items[j].Object {
				return items[i].Method < items[j].Method
			}
			return items[i].Object < items[j].Object
		}
		return items[i].Module < items[j].Module
	})

	return items
}

func deriveAdminPermissionModule(object string) string {
	normalized := strings.TrimPrefix(strings.TrimSpace(object), "/")
	if normalized == "" {
		return "system"
	}
	segments := strings.Split(normalized, "/")
	if len(segments) <= 1 {
		return segments[0]
	}
	if segments[0] != "admin" {
		return segments[0]
	}
	if segments[1] == "authz" {
		return "authz"
	}
	return segments[1]
}
