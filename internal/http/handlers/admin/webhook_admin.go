package admin

import (
	"net/http"
	"strings"

	handlershared "github.com/linkledger/internal/http/handlers/shared"
	"github.com/linkledger/internal/http/response"
	"github.com/linkledger/internal/i18n"
	"github.com/linkledger/internal/repository"

	"github.com/gin-gonic/gin"
)

// ListWebhookDeliveries 查询出站回调投递日志
func (h *Handler) ListWebhookDeliveries(c *gin.Context) {
	page, pageSize := handlershared.ParsePagination(c)
	filter := repository.DeliveryListFilter{
		Page:       page,
		PageSize:   pageSize,
		MerchantID: handlershared.QueryUint(c, "merchant_id"),
		EventType:  strings.TrimSpace(c.Query("event_type")),
		Status:     strings.ToLower(strings.TrimSpace(c.Query("status"))),
	}
	rows, total, err := h.WebhookSender.ListDeliveries(c.Request.Context(), filter)
	if err != nil {
		respondError(c, response.CodeServiceUnavailable, "error.storage_unavailable", err)
		return
	}
	response.SuccessWithPage(c, rows, response.BuildPagination(page, pageSize, total))
}

// SendWebhookTest 同步向商户回调地址发送测试事件
func (h *Handler) SendWebhookTest(c *gin.Context) {
	merchantID, ok := parseIDParam(c)
	if !ok {
		return
	}
	result, err := h.Dispatcher.SendTest(c.Request.Context(), merchantID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if result.Error != "" {
		msg := i18n.T(i18n.ResolveLocale(c), "error.webhook_delivery_failed")
		response.ErrorWithData(c, http.StatusBadGateway, msg, gin.H{
			"delivery": result.Delivery,
			"error":    result.Error,
		})
		return
	}
	response.Success(c, result)
}

// RunReconcile 立即执行一次汇总字段对账
func (h *Handler) RunReconcile(c *gin.Context) {
	report, err := h.ReconcileService.Run(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	requestLog(c).Infow("admin_reconcile_triggered",
		"operator_id", currentOperatorID(c),
		"accounts_repaired", report.AccountsRepaired,
		"links_repaired", report.LinksRepaired,
	)
	response.Success(c, report)
}
