// Package metrics 汇总账本业务指标与 HTTP 指标
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Set 进程内全部指标
type Set struct {
	Registry *prometheus.Registry
	Ledger   *LedgerMetrics
	HTTP     *HTTPMetrics
	Jobs     *JobMetrics
}

// NewSet 创建独立注册表并注册全部指标
func NewSet() *Set {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Set{
		Registry: reg,
		Ledger:   NewLedgerMetrics(reg),
		HTTP:     NewHTTPMetrics(reg),
		Jobs:     NewJobMetrics(reg),
	}
}

// Handler 返回 /metrics 处理器
func (s *Set) Handler() http.Handler {
	if s == nil || s.Registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(s.Registry, promhttp.HandlerOpts{Registry: s.Registry})
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
