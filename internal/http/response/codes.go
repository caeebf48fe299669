package response

import "net/http"

// 业务状态码，与 HTTP 状态码保持一致
const (
	CodeOK                 = 0
	CodeBadRequest         = http.StatusBadRequest
	CodeUnauthorized       = http.StatusUnauthorized
	CodeForbidden          = http.StatusForbidden
	CodeNotFound           = http.StatusNotFound
	CodeConflict           = http.StatusConflict
	CodeUnprocessable      = http.StatusUnprocessableEntity
	CodeTooManyRequests    = http.StatusTooManyRequests
	CodeInternal           = http.StatusInternalServerError
	CodeServiceUnavailable = http.StatusServiceUnavailable
)

// 稳定错误标识，供调用方程序化判断
const (
	ErrCodeNotFound            = "not_found"
	ErrCodeInvalidPayload      = "invalid_payload"
	ErrCodeInvalidSignature    = "invalid_signature"
	ErrCodeUnauthorized        = "unauthorized"
	ErrCodeForbidden           = "forbidden"
	ErrCodeAlreadyExists       = "already_exists"
	ErrCodeInvalidTransition   = "invalid_transition"
	ErrCodeInsufficientBalance = "insufficient_balance"
	ErrCodeRateLimited         = "rate_limited"
	ErrCodeStorageUnavailable  = "storage_unavailable"
	ErrCodeInternal            = "internal_error"
)

// DefaultErrorCode 状态码对应的默认错误标识
func DefaultErrorCode(status int) string {
	switch status {
	case CodeBadRequest:
		return ErrCodeInvalidPayload
	case CodeUnauthorized:
		return ErrCodeUnauthorized
	case CodeForbidden:
		return ErrCodeForbidden
	case CodeNotFound:
		return ErrCodeNotFound
	case CodeConflict:
		return ErrCodeAlreadyExists
	case CodeUnprocessable:
		return ErrCodeInsufficientBalance
	case CodeTooManyRequests:
		return ErrCodeRateLimited
	case CodeServiceUnavailable:
		return ErrCodeStorageUnavailable
	default:
		return ErrCodeInternal
	}
}
