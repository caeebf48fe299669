package admin

import (
	"github.com/linkledger/internal/http/response"
	"github.com/linkledger/internal/service"

	"github.com/gin-gonic/gin"
)

type linkStatusPayload struct {
	IsActive *bool `json:"is_active" binding:"required"`
}

// CreateLink 创建短链
func (h *Handler) CreateLink(c *gin.Context) {
	var req service.CreateLinkInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.link_invalid", err)
		return
	}

	link, err := h.LinkService.Create(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	requestLog(c).Infow("admin_link_created",
		"operator_id", currentOperatorID(c),
		"link_id", link.ID,
		"slug", link.Slug,
	)
	response.Created(c, link)
}

// GetLink 获取短链详情
func (h *Handler) GetLink(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	link, err := h.LinkService.Get(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, link)
}

// UpdateLinkStatus 启用或停用短链
func (h *Handler) UpdateLinkStatus(c *gin.Context) {
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	var req linkStatusPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	link, err := h.LinkService.SetActive(c.Request.Context(), id, *req.IsActive)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	requestLog(c).Infow("admin_link_status_updated",
		"operator_id", currentOperatorID(c),
		"link_id", link.ID,
		"is_active", link.IsActive,
	)
	response.Success(c, link)
}
