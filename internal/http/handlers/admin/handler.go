package admin

import "github.com/linkledger/internal/provider"

// Handler 运营后台接口处理器入口
// 说明：该处理器仅用于运营端 API，需经过 JWT 与 RBAC 中间件。
type Handler struct {
	*provider.Container
}

// New 创建运营后台处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
