package shared

import (
	"github.com/linkledger/internal/http/response"
	"github.com/linkledger/internal/i18n"
	"github.com/linkledger/internal/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RequestLog 提供携带 request_id 的日志实例。
func RequestLog(c *gin.Context) *zap.SugaredLogger {
	if c == nil {
		return logger.S()
	}
	if requestID, ok := c.Get("request_id"); ok {
		if id, ok := requestID.(string); ok && id != "" {
			return logger.SW("request_id", id)
		}
	}
	return logger.S()
}

// RespondError 返回国际化错误响应，并在有原始错误时记录日志。
func RespondError(c *gin.Context, status int, key string, err error) {
	RespondErrorWithCode(c, status, "", key, err)
}

// RespondErrorWithCode 返回带稳定错误标识的国际化错误响应。
func RespondErrorWithCode(c *gin.Context, status int, code, key string, err error) {
	locale := i18n.ResolveLocale(c)
	msg := i18n.T(locale, key)
	appErr := response.WrapError(status, code, msg, err)
	if err != nil {
		log := RequestLog(c)
		if appErr.Status >= response.CodeInternal {
			log.Errorw("handler_error", "status", appErr.Status, "code", appErr.Code, "message", appErr.Message, "error", err)
		} else {
			log.Warnw("handler_error", "status", appErr.Status, "code", appErr.Code, "message", appErr.Message, "error", err)
		}
	}
	response.ErrorWithCode(c, appErr.Status, appErr.Code, appErr.Message)
}

// RespondErrorWithMsg 返回自定义消息错误响应，并在有原始错误时记录日志。
func RespondErrorWithMsg(c *gin.Context, status int, msg string, err error) {
	appErr := response.WrapError(status, "", msg, err)
	if err != nil {
		RequestLog(c).Warnw("handler_error",
			"status", appErr.Status,
			"code", appErr.Code,
			"message", appErr.Message,
			"error", err,
		)
	}
	response.ErrorWithCode(c, appErr.Status, appErr.Code, appErr.Message)
}
