package admin

import (
	"strings"

	handlershared "github.com/linkledger/internal/http/handlers/shared"

	"github.com/gin-gonic/gin"
)

func getOperatorID(c *gin.Context) (uint, bool) {
	return handlershared.GetContextUintWithKeys(c, "operator_id", "error.unauthorized", "error.internal")
}

func currentOperatorID(c *gin.Context) uint {
	value, exists := c.Get("operator_id")
	if !exists {
		return 0
	}
	switch operatorID := value.(type) {
	case uint:
		return operatorID
	case int:
		if operatorID > 0 {
			return uint(operatorID)
		}
	case float64:
		if operatorID > 0 {
			return uint(operatorID)
		}
	}
	return 0
}

func currentUsername(c *gin.Context) string {
	value, exists := c.Get("username")
	if !exists {
		return ""
	}
	if username, ok := value.(string); ok {
		return strings.TrimSpace(username)
	}
	return ""
}

func parseIDParam(c *gin.Context) (uint, bool) {
	return handlershared.ParseUintParam(c, "id")
}
