package constants

// 转化状态常量
const (
	ConversionStatusPending  = "pending"
	ConversionStatusApproved = "approved"
	ConversionStatusRejected = "rejected"
	ConversionStatusRefunded = "refunded"
)

// 佣金状态常量
const (
	CommissionStatusUnpaid   = "unpaid"
	CommissionStatusPaid     = "paid"
	CommissionStatusRefunded = "refunded"
)

// 提现状态常量
const (
	PayoutStatusRequested  = "requested"
	PayoutStatusApproved   = "approved"
	PayoutStatusProcessing = "processing"
	PayoutStatusCompleted  = "completed"
	PayoutStatusFailed     = "failed"
	PayoutStatusCancelled  = "cancelled"
)

// 提现方式常量
const (
	PayoutMethodBankTransfer = "bank_transfer"
	PayoutMethodPaypal       = "paypal"
	PayoutMethodCrypto       = "crypto"
	PayoutMethodManual       = "manual"
)

// 短链类型常量
const (
	LinkTypeStore   = "store"
	LinkTypeProduct = "product"
	LinkTypeOffer   = "offer"
	LinkTypeCustom  = "custom"
)

// 回调事件类型常量
const (
	WebhookEventConversionStatus = "conversion.status_changed"
	WebhookEventPayoutStatus     = "payout.status_changed"
	WebhookEventTest             = "webhook.test"
)

// 回调投递结果常量
const (
	DeliveryStatusSuccess = "success"
	DeliveryStatusFailed  = "failed"
	DeliveryStatusSkipped = "skipped"
)

// HTTP 头常量
const (
	HeaderRequestID         = "X-Request-ID"
	HeaderMerchantAPIKey    = "X-Merchant-Api-Key"
	HeaderWebhookSignature  = "X-Webhook-Signature"
	HeaderWebhookTimestamp  = "X-Webhook-Timestamp"
	HeaderWebhookEvent      = "X-Webhook-Event"
	HeaderWebhookDeliveryID = "X-Webhook-Delivery"
)

// 元数据键常量
const (
	MetadataReportedAffiliateID = "reported_affiliate_id"
)

// 运营角色常量
const (
	RoleAuditor      = "auditor"
	RoleReviewer     = "reviewer"
	RoleFinance      = "finance"
	RoleIntegrations = "integrations"
)

// 队列常量
const (
	QueueDefault       = "default"
	QueueWebhooks      = "webhooks"
	TaskWebhookDeliver = "webhook:deliver"
)
