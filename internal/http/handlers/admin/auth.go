package admin

import (
	"time"

	"github.com/linkledger/internal/http/response"
	"github.com/linkledger/internal/logger"

	"github.com/gin-gonic/gin"
)

// LoginRequest 运营登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login 运营账号登录
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}

	operator, token, expiresAt, err := h.AuthService.Login(req.Username, req.Password)
	if err != nil {
		logger.Warnw("admin_login_failed", "username", req.Username, "client_ip", c.ClientIP(), "error", err)
		respondServiceError(c, err)
		return
	}

	logger.Infow("admin_login_succeeded", "operator_id", operator.ID, "client_ip", c.ClientIP())
	response.Success(c, gin.H{
		"token":      token,
		"expires_at": expiresAt.Format(time.RFC3339),
		"operator":   operator,
	})
}
