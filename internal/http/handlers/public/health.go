package public

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/linkledger/internal/cache"
	"github.com/linkledger/internal/http/response"

	"github.com/gin-gonic/gin"
)

var errDatabaseNotReady = errors.New("database not initialized")

// Healthz 存活与依赖检查
func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := gin.H{"database": "ok", "redis": "disabled", "queue": "disabled"}
	healthy := true
	if err := h.pingDatabase(ctx); err != nil {
		checks["database"] = err.Error()
		healthy = false
	}
	if cache.Enabled() {
		checks["redis"] = "ok"
		if err := cache.Ping(ctx); err != nil {
			checks["redis"] = err.Error()
		}
	}
	if h.QueueClient.Enabled() {
		checks["queue"] = "ok"
		if err := h.QueueClient.Ping(ctx); err != nil {
			checks["queue"] = err.Error()
		}
	}
	if !healthy {
		response.ErrorWithData(c, http.StatusServiceUnavailable, "unhealthy", checks)
		return
	}
	response.Success(c, checks)
}

func (h *Handler) pingDatabase(ctx context.Context) error {
	if h.DB == nil {
		return errDatabaseNotReady
	}
	sqlDB, err := h.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
