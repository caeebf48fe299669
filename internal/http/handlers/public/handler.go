package public

import "github.com/linkledger/internal/provider"

// Handler 公开接口处理器入口
// 说明：该处理器承载短链跳转与商户回调，不要求登录。
type Handler struct {
	*provider.Container
}

// New 创建公开接口处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
