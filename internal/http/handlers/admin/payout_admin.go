package admin

import (
	"strings"

	handlershared "github.com/linkledger/internal/http/handlers/shared"
	"github.com/linkledger/internal/http/response"
	"github.com/linkledger/internal/models"
	"github.com/linkledger/internal/repository"
	"github.com/linkledger/internal/service"

	"github.com/gin-gonic/gin"
)

// payoutActionPayload 提现状态操作参数，complete 需要 transaction_id，fail / cancel 可带 reason
type payoutActionPayload struct {
	TransactionID string `json:"transaction_id"`
	Reason        string `json:"reason"`
}

// CreatePayout 发起提现申请
func (h *Handler) CreatePayout(c *gin.Context) {
	var req service.PayoutRequestInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.payout_invalid", err)
		return
	}

	payout, err := h.SettlementService.RequestPayout(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	requestLog(c).Infow("admin_payout_requested",
		"operator_id", currentOperatorID(c),
		"payout_id", payout.ID,
		"affiliate_id", payout.AffiliateID,
	)
	response.Created(c, payout)
}

// ListPayouts 查询提现列表
func (h *Handler) ListPayouts(c *gin.Context) {
	page, pageSize := handlershared.ParsePagination(c)
	filter := repository.PayoutListFilter{
		Page:        page,
		PageSize:    pageSize,
		AffiliateID: handlershared.QueryUint(c, "affiliate_id"),
		Status:      strings.ToLower(strings.TrimSpace(c.Query("status"))),
		Currency:    strings.ToUpper(strings.TrimSpace(c.Query("currency"))),
	}
	rows, total, err := h.SettlementService.ListPayouts(c.Request.Context(), filter)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, rows, response.BuildPagination(page, pageSize, total))
}

// GetPayout 获取提现详情及其结算的佣金
func (h *Handler) GetPayout(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	payout, err := h.SettlementService.GetPayout(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	commissions, err := h.SettlementService.ListPayoutCommissions(c.Request.Context(), payout.ID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, gin.H{
		"payout":      payout,
		"commissions": commissions,
	})
}

// PayoutAction 推进提现状态：approve / process / complete / fail / cancel
func (h *Handler) PayoutAction(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req payoutActionPayload
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, response.CodeBadRequest, "error.bad_request", err)
			return
		}
	}

	ctx := c.Request.Context()
	action := strings.ToLower(strings.TrimSpace(c.Param("action")))
	var (
		payout *models.Payout
		err    error
	)
	switch action {
	case "approve":
		payout, err = h.SettlementService.Approve(ctx, id)
	case "process":
		payout, err = h.SettlementService.Process(ctx, id)
	case "complete":
		payout, err = h.SettlementService.Complete(ctx, id, req.TransactionID)
	case "fail":
		payout, err = h.SettlementService.Fail(ctx, id, req.Reason)
	case "cancel":
		payout, err = h.SettlementService.Cancel(ctx, id, req.Reason)
	default:
		respondError(c, response.CodeNotFound, "error.not_found", nil)
		return
	}
	if err != nil {
		respondServiceError(c, err)
		return
	}

	requestLog(c).Infow("admin_payout_action",
		"operator_id", currentOperatorID(c),
		"payout_id", id,
		"action", action,
		"status", payout.Status,
	)
	response.Success(c, payout)
}

// GetAffiliateBalance 查询推广者可提现余额
func (h *Handler) GetAffiliateBalance(c *gin.Context) {
	affiliateID, ok := parseIDParam(c)
	if !ok {
		return
	}
	balance, err := h.SettlementService.GetBalance(c.Request.Context(), affiliateID, c.Query("currency"))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, balance)
}
