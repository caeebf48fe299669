// Package signature 负责 webhook 请求体的 HMAC-SHA256 签名与校验
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Sign 返回 body 的十六进制 HMAC-SHA256 签名
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify 以常量时间比较签名，签名大小写不敏感，允许 "sha256=" 前缀
func Verify(secret string, body []byte, provided string) bool {
	provided = strings.TrimSpace(provided)
	provided = strings.TrimPrefix(provided, "sha256=")
	if provided == "" || secret == "" {
		return false
	}
	got, err := hex.DecodeString(strings.ToLower(provided))
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}
