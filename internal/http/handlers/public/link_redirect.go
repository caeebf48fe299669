package public

import (
	"errors"
	"net/http"
	"strings"

	"github.com/linkledger/internal/http/response"
	"github.com/linkledger/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	affiliateHintQuery  = "aff"
	affiliateHintCookie = "aff_code"
	sessionCookie       = "ll_session"
	utmQueryPrefix      = "utm_"
)

// RedirectLink 解析短链，记录点击后 301 跳转到目标地址
func (h *Handler) RedirectLink(c *gin.Context) {
	slug := strings.TrimSpace(c.Param("slug"))
	if slug == "" {
		respondError(c, response.CodeNotFound, "error.link_not_found", nil)
		return
	}

	result, err := h.AttributionService.Resolve(c.Request.Context(), slug, clickMetaFromRequest(c))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			respondError(c, response.CodeNotFound, "error.link_not_found", nil)
			return
		}
		respondServiceError(c, err)
		return
	}

	c.Header("Cache-Control", "no-store")
	c.Redirect(http.StatusMovedPermanently, result.DestinationURL)
}

// clickMetaFromRequest 收集点击元数据，仅作记录不参与归因
func clickMetaFromRequest(c *gin.Context) service.ClickMeta {
	meta := service.ClickMeta{
		IP:        c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
		Referrer:  c.GetHeader("Referer"),
		UTM:       make(map[string]string),
	}
	for key, values := range c.Request.URL.Query() {
		if !strings.HasPrefix(strings.ToLower(key), utmQueryPrefix) || len(values) == 0 {
			continue
		}
		meta.UTM[strings.ToLower(key)] = values[0]
	}
	if session, err := c.Cookie(sessionCookie); err == nil {
		meta.SessionID = session
	}
	meta.AffiliateCodeHint = strings.TrimSpace(c.Query(affiliateHintQuery))
	if meta.AffiliateCodeHint == "" {
		if hint, err := c.Cookie(affiliateHintCookie); err == nil {
			meta.AffiliateCodeHint = strings.TrimSpace(hint)
		}
	}
	return meta
}
