package shared

import (
	"errors"

	"github.com/linkledger/internal/http/response"
	"github.com/linkledger/internal/service"

	"github.com/gin-gonic/gin"
)

// ErrorRule 业务错误到接口响应的映射关系。
type ErrorRule struct {
	Target error
	Status int
	Code   string
	Key    string
}

// 顺序敏感：具体错误需排在其所属分类之前
var ledgerErrorRules = []ErrorRule{
	{Target: service.ErrInvalidSignature, Status: response.CodeBadRequest, Code: response.ErrCodeInvalidSignature, Key: "error.signature_invalid"},
	{Target: service.ErrMerchantKeyInvalid, Status: response.CodeUnauthorized, Code: response.ErrCodeUnauthorized, Key: "error.api_key_invalid"},
	{Target: service.ErrInvalidCredentials, Status: response.CodeUnauthorized, Code: response.ErrCodeUnauthorized, Key: "error.login_failed"},
	{Target: service.ErrLinkNotFound, Status: response.CodeNotFound, Code: response.ErrCodeNotFound, Key: "error.link_not_found"},
	{Target: service.ErrConversionNotFound, Status: response.CodeNotFound, Code: response.ErrCodeNotFound, Key: "error.conversion_not_found"},
	{Target: service.ErrPayoutNotFound, Status: response.CodeNotFound, Code: response.ErrCodeNotFound, Key: "error.payout_not_found"},
	{Target: service.ErrMerchantNotFound, Status: response.CodeNotFound, Code: response.ErrCodeNotFound, Key: "error.merchant_not_found"},
	{Target: service.ErrSlugTaken, Status: response.CodeConflict, Code: response.ErrCodeAlreadyExists, Key: "error.slug_taken"},
	{Target: service.ErrCommissionExists, Status: response.CodeConflict, Code: response.ErrCodeAlreadyExists, Key: "error.commission_exists"},
	{Target: service.ErrPayoutAmountInvalid, Status: response.CodeBadRequest, Code: response.ErrCodeInvalidPayload, Key: "error.payout_invalid"},
	{Target: service.ErrNotFound, Status: response.CodeNotFound, Code: response.ErrCodeNotFound, Key: "error.not_found"},
	{Target: service.ErrInvalidPayload, Status: response.CodeBadRequest, Code: response.ErrCodeInvalidPayload, Key: "error.bad_request"},
	{Target: service.ErrUnauthorized, Status: response.CodeUnauthorized, Code: response.ErrCodeUnauthorized, Key: "error.unauthorized"},
	{Target: service.ErrAlreadyExists, Status: response.CodeConflict, Code: response.ErrCodeAlreadyExists, Key: "error.already_exists"},
	{Target: service.ErrInvalidTransition, Status: response.CodeConflict, Code: response.ErrCodeInvalidTransition, Key: "error.status_transition"},
	{Target: service.ErrInsufficientBalance, Status: response.CodeUnprocessable, Code: response.ErrCodeInsufficientBalance, Key: "error.insufficient_balance"},
	{Target: service.ErrStorageUnavailable, Status: response.CodeServiceUnavailable, Code: response.ErrCodeStorageUnavailable, Key: "error.storage_unavailable"},
}

// MatchError 查找错误对应的映射规则，未命中时返回内部错误规则。
func MatchError(err error) ErrorRule {
	for _, rule := range ledgerErrorRules {
		if errors.Is(err, rule.Target) {
			return rule
		}
	}
	return ErrorRule{Status: response.CodeInternal, Code: response.ErrCodeInternal, Key: "error.internal"}
}

// RespondServiceError 按映射表返回业务错误。客户端错误只记录告警，存储与内部错误带原始错误记录。
func RespondServiceError(c *gin.Context, err error) {
	rule := MatchError(err)
	RespondErrorWithCode(c, rule.Status, rule.Code, rule.Key, err)
}
