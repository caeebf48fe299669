package admin

import (
	"strings"
	"time"

	handlershared "github.com/linkledger/internal/http/handlers/shared"
	"github.com/linkledger/internal/http/response"
	"github.com/linkledger/internal/repository"

	"github.com/gin-gonic/gin"
)

type conversionRejectPayload struct {
	Reason string `json:"reason"`
}

// ListConversions 查询转化列表
func (h *Handler) ListConversions(c *gin.Context) {
	page, pageSize := handlershared.ParsePagination(c)
	filter := repository.ConversionListFilter{
		Page:        page,
		PageSize:    pageSize,
		MerchantID:  handlershared.QueryUint(c, "merchant_id"),
		AffiliateID: handlershared.QueryUint(c, "affiliate_id"),
		LinkID:      handlershared.QueryUint(c, "link_id"),
		Status:      strings.ToLower(strings.TrimSpace(c.Query("status"))),
		OrderID:     strings.TrimSpace(c.Query("order_id")),
		Keyword:     strings.TrimSpace(c.Query("keyword")),
		CreatedFrom: parseTimeQuery(c, "created_from"),
		CreatedTo:   parseTimeQuery(c, "created_to"),
	}

	rows, total, err := h.ConversionService.List(c.Request.Context(), filter)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, rows, response.BuildPagination(page, pageSize, total))
}

// GetConversion 获取转化详情
func (h *Handler) GetConversion(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	row, err := h.ConversionService.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, row)
}

// ApproveConversion 审核通过并生成佣金
func (h *Handler) ApproveConversion(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	row, err := h.ConversionService.Approve(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	requestLog(c).Infow("admin_conversion_approved", "operator_id", currentOperatorID(c), "conversion_id", id)
	response.Success(c, row)
}

// RejectConversion 拒绝转化
func (h *Handler) RejectConversion(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req conversionRejectPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	row, err := h.ConversionService.Reject(c.Request.Context(), id, req.Reason)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	requestLog(c).Infow("admin_conversion_rejected", "operator_id", currentOperatorID(c), "conversion_id", id)
	response.Success(c, row)
}

// RefundConversion 标记退款并回收未结算佣金
func (h *Handler) RefundConversion(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	result, err := h.ConversionService.Refund(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	requestLog(c).Infow("admin_conversion_refunded",
		"operator_id", currentOperatorID(c),
		"conversion_id", id,
		"commission_outcome", result.CommissionOutcome,
	)
	response.Success(c, gin.H{
		"conversion":         result.Conversion,
		"commission_outcome": result.CommissionOutcome,
	})
}

func parseTimeQuery(c *gin.Context, name string) *time.Time {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return &parsed
		}
	}
	return nil
}
