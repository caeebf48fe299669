package public

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/linkledger/internal/constants"
	"github.com/linkledger/internal/http/response"

	"github.com/gin-gonic/gin"
)

const defaultWebhookBodyLimit int64 = 1 << 20

// ConversionWebhookResponse 转化回调响应
type ConversionWebhookResponse struct {
	ID        uint      `json:"id"`
	OrderID   string    `json:"orderId"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	Replayed  bool      `json:"replayed"`
}

// IngestConversion 接收商户转化回调。签名基于原始请求体计算，因此必须先读取字节再解析。
func (h *Handler) IngestConversion(c *gin.Context) {
	log := requestLog(c)
	apiKey := strings.TrimSpace(c.GetHeader(constants.HeaderMerchantAPIKey))
	if apiKey == "" {
		respondError(c, response.CodeUnauthorized, "error.api_key_invalid", nil)
		return
	}

	limit := h.Config.Webhook.MaxBodyBytes
	if limit <= 0 {
		limit = defaultWebhookBodyLimit
	}
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, limit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, http.StatusRequestEntityTooLarge, "error.payload_too_large", nil)
			return
		}
		log.Warnw("conversion_webhook_body_read_failed", "client_ip", c.ClientIP(), "error", err)
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}

	signature := strings.TrimSpace(c.GetHeader(constants.HeaderWebhookSignature))
	result, err := h.ConversionService.IngestWebhook(c.Request.Context(), apiKey, signature, body)
	if err != nil {
		log.Infow("conversion_webhook_rejected",
			"client_ip", c.ClientIP(),
			"body_size", len(body),
			"error", err,
		)
		respondServiceError(c, err)
		return
	}

	conversion := result.Conversion
	response.Success(c, ConversionWebhookResponse{
		ID:        conversion.ID,
		OrderID:   conversion.OrderID,
		Status:    conversion.Status,
		CreatedAt: conversion.CreatedAt,
		Replayed:  result.Replayed,
	})
}
