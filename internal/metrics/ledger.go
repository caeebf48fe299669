package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// LedgerMetrics 账本业务指标，nil 接收者安全
type LedgerMetrics struct {
	clicks              prometheus.Counter
	conversionsIngested *prometheus.CounterVec
	conversionStatus    *prometheus.CounterVec
	commissionsCreated  prometheus.Counter
	clawbackSkipped     prometheus.Counter
	payoutStatus        *prometheus.CounterVec
	payoutAllocated     prometheus.Histogram
	webhookDeliveries   *prometheus.CounterVec
	aggregateRepairs    *prometheus.CounterVec
}

// NewLedgerMetrics 在给定注册器上注册账本指标
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	m := &LedgerMetrics{
		clicks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "linkledger_clicks_total",
			Help: "Clicks recorded on active links.",
		}),
		conversionsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "linkledger_conversions_ingested_total",
			Help: "Inbound conversion webhooks by result.",
		}, []string{"result"}),
		conversionStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "linkledger_conversion_transitions_total",
			Help: "Conversion status transitions by target status.",
		}, []string{"status"}),
		commissionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "linkledger_commissions_created_total",
			Help: "Commissions created on conversion approval.",
		}),
		clawbackSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "linkledger_commission_clawback_skipped_total",
			Help: "Refunds that hit an already paid commission.",
		}),
		payoutStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "linkledger_payout_transitions_total",
			Help: "Payout status transitions by target status.",
		}, []string{"status"}),
		payoutAllocated: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "linkledger_payout_allocated_amount",
			Help:    "Commission amount allocated per completed payout.",
			Buckets: []float64{1, 10, 50, 100, 500, 1000, 5000, 10000},
		}),
		webhookDeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "linkledger_webhook_deliveries_total",
			Help: "Outbound webhook deliveries by result.",
		}, []string{"result"}),
		aggregateRepairs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "linkledger_aggregate_repairs_total",
			Help: "Drifted aggregate counters repaired by reconciliation.",
		}, []string{"kind"}),
	}
	reg.MustRegister(
		m.clicks,
		m.conversionsIngested,
		m.conversionStatus,
		m.commissionsCreated,
		m.clawbackSkipped,
		m.payoutStatus,
		m.payoutAllocated,
		m.webhookDeliveries,
		m.aggregateRepairs,
	)
	return m
}

// IncClick 记录一次点击
func (m *LedgerMetrics) IncClick() {
	if m == nil || m.clicks == nil {
		return
	}
	m.clicks.Inc()
}

// IncConversionIngested 记录入站转化结果（created/replayed/rejected）
func (m *LedgerMetrics) IncConversionIngested(result string) {
	if m == nil || m.conversionsIngested == nil {
		return
	}
	m.conversionsIngested.WithLabelValues(normalizeLabel(result)).Inc()
}

// IncConversionTransition 记录转化状态变更
func (m *LedgerMetrics) IncConversionTransition(status string) {
	if m == nil || m.conversionStatus == nil {
		return
	}
	m.conversionStatus.WithLabelValues(normalizeLabel(status)).Inc()
}

// IncCommissionCreated 记录佣金创建
func (m *LedgerMetrics) IncCommissionCreated() {
	if m == nil || m.commissionsCreated == nil {
		return
	}
	m.commissionsCreated.Inc()
}

// IncClawbackSkipped 记录已结算佣金遇到退款
func (m *LedgerMetrics) IncClawbackSkipped() {
	if m == nil || m.clawbackSkipped == nil {
		return
	}
	m.clawbackSkipped.Inc()
}

// IncPayoutTransition 记录提现状态变更
func (m *LedgerMetrics) IncPayoutTransition(status string) {
	if m == nil || m.payoutStatus == nil {
		return
	}
	m.payoutStatus.WithLabelValues(normalizeLabel(status)).Inc()
}

// ObservePayoutAllocated 记录提现实际分配金额
func (m *LedgerMetrics) ObservePayoutAllocated(amount decimal.Decimal) {
	if m == nil || m.payoutAllocated == nil {
		return
	}
	m.payoutAllocated.Observe(amount.InexactFloat64())
}

// IncWebhookDelivery 记录出站回调投递结果
func (m *LedgerMetrics) IncWebhookDelivery(result string) {
	if m == nil || m.webhookDeliveries == nil {
		return
	}
	m.webhookDeliveries.WithLabelValues(normalizeLabel(result)).Inc()
}

// IncAggregateRepair 记录汇总字段修复
func (m *LedgerMetrics) IncAggregateRepair(kind string) {
	if m == nil || m.aggregateRepairs == nil {
		return
	}
	m.aggregateRepairs.WithLabelValues(normalizeLabel(kind)).Inc()
}
