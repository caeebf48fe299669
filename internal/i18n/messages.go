package i18n

var catalog = map[string]map[string]string{
	LocaleEN: {
		"error.bad_request":             "Invalid request",
		"error.unauthorized":            "Unauthorized",
		"error.forbidden":               "Permission denied",
		"error.not_found":               "Resource not found",
		"error.too_many_requests":       "Too many requests, please retry in %d seconds",
		"error.internal":                "Internal server error",
		"error.storage_unavailable":     "Storage temporarily unavailable",
		"error.auth_header_missing":     "Authorization header is missing",
		"error.auth_header_invalid":     "Authorization header is malformed",
		"error.token_invalid":           "Token is invalid or expired",
		"error.jwt_secret_missing":      "Token signing is not configured",
		"error.login_failed":            "Invalid username or password",
		"error.link_not_found":          "Link not found",
		"error.link_invalid":            "Link request is invalid",
		"error.slug_taken":              "Slug is already taken",
		"error.conversion_not_found":    "Conversion not found",
		"error.conversion_invalid":      "Conversion payload is invalid",
		"error.signature_invalid":       "Webhook signature is invalid",
		"error.api_key_invalid":         "Merchant API key is invalid",
		"error.status_transition":       "Status transition is not allowed",
		"error.commission_exists":       "Commission already exists",
		"error.payout_not_found":        "Payout not found",
		"error.payout_invalid":          "Payout request is invalid",
		"error.insufficient_balance":    "Insufficient available balance",
		"error.merchant_not_found":      "Merchant not found",
		"error.role_invalid":            "Role is invalid",
		"error.role_immutable":          "Builtin roles cannot be changed",
		"error.already_exists":          "Resource already exists",
		"error.payload_too_large":       "Request body is too large",
		"error.webhook_delivery_failed": "Webhook delivery failed",
	},
	LocaleZH: {
		"error.bad_request":             "请求参数错误",
		"error.unauthorized":            "未登录或登录已失效",
		"error.forbidden":               "无权限访问",
		"error.not_found":               "资源不存在",
		"error.too_many_requests":       "请求过于频繁，请 %d 秒后重试",
		"error.internal":                "服务器内部错误",
		"error.storage_unavailable":     "存储暂时不可用",
		"error.auth_header_missing":     "缺少 Authorization 头",
		"error.auth_header_invalid":     "Authorization 头格式错误",
		"error.token_invalid":           "Token 无效或已过期",
		"error.jwt_secret_missing":      "未配置 Token 签名密钥",
		"error.login_failed":            "用户名或密码错误",
		"error.link_not_found":          "短链不存在",
		"error.link_invalid":            "短链参数错误",
		"error.slug_taken":              "短链标识已被占用",
		"error.conversion_not_found":    "转化记录不存在",
		"error.conversion_invalid":      "转化数据格式错误",
		"error.signature_invalid":       "回调签名校验失败",
		"error.api_key_invalid":         "商户 API Key 无效",
		"error.status_transition":       "当前状态不允许该操作",
		"error.commission_exists":       "佣金已存在",
		"error.payout_not_found":        "提现记录不存在",
		"error.payout_invalid":          "提现参数错误",
		"error.insufficient_balance":    "可提现余额不足",
		"error.merchant_not_found":      "商户不存在",
		"error.role_invalid":            "角色名称不合法",
		"error.role_immutable":          "预置角色不可修改",
		"error.already_exists":          "资源已存在",
		"error.payload_too_large":       "请求体过大",
		"error.webhook_delivery_failed": "回调投递失败",
	},
}
