package i18n

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestResolveLocale(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		name   string
		header map[string]string
		want   string
	}{
		{name: "default", want: LocaleEN},
		{name: "x-locale", header: map[string]string{"X-Locale": "zh"}, want: LocaleZH},
		{name: "accept language", header: map[string]string{"Accept-Language": "fr-FR,zh-CN;q=0.8"}, want: LocaleZH},
		{name: "unsupported", header: map[string]string{"Accept-Language": "fr"}, want: LocaleEN},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest("GET", "/", nil)
			for k, v := range tc.header {
				c.Request.Header.Set(k, v)
			}
			if got := ResolveLocale(c); got != tc.want {
				t.Fatalf("locale want %s got %s", tc.want, got)
			}
		})
	}
}

func TestTranslateFallback(t *testing.T) {
	if got := T(LocaleZH, "error.not_found"); got != "资源不存在" {
		t.Fatalf("unexpected zh message: %s", got)
	}
	if got := T("ja-JP", "error.not_found"); got != "Resource not found" {
		t.Fatalf("fallback to default locale failed: %s", got)
	}
	if got := T(LocaleEN, "error.missing_key"); got != "error.missing_key" {
		t.Fatalf("missing key should echo itself: %s", got)
	}
	if got := Sprintf(LocaleEN, "error.missing_%s", "x"); got != "error.missing_x" {
		t.Fatalf("sprintf mismatch: %s", got)
	}
}
