package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	dto "github.com/prometheus/client_model/go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func findMetric(t *testing.T, set *Set, name string) *dto.MetricFamily {
	t.Helper()
	families, err := set.Registry.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() == name {
			return family
		}
	}
	return nil
}

func counterWithLabel(family *dto.MetricFamily, label, value string) float64 {
	if family == nil {
		return 0
	}
	for _, metric := range family.GetMetric() {
		for _, pair := range metric.GetLabel() {
			if pair.GetName() == label && pair.GetValue() == value {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestLedgerMetricsRecordsCounters(t *testing.T) {
	set := NewSet()
	set.Ledger.IncClick()
	set.Ledger.IncClick()
	set.Ledger.IncConversionIngested("created")
	set.Ledger.IncConversionIngested("replayed")
	set.Ledger.IncClawbackSkipped()
	set.Ledger.ObservePayoutAllocated(decimal.RequireFromString("50"))

	clicks := findMetric(t, set, "linkledger_clicks_total")
	require.NotNil(t, clicks)
	require.Equal(t, float64(2), clicks.GetMetric()[0].GetCounter().GetValue())

	ingested := findMetric(t, set, "linkledger_conversions_ingested_total")
	require.Equal(t, float64(1), counterWithLabel(ingested, "result", "replayed"))

	allocated := findMetric(t, set, "linkledger_payout_allocated_amount")
	require.NotNil(t, allocated)
	require.Equal(t, uint64(1), allocated.GetMetric()[0].GetHistogram().GetSampleCount())
}

func TestNilLedgerMetricsIsSafe(t *testing.T) {
	var m *LedgerMetrics
	m.IncClick()
	m.IncPayoutTransition("completed")
	m.ObservePayoutAllocated(decimal.Zero)
	NewLedgerMetrics(nil).IncWebhookDelivery("failed")
}

func TestHTTPMiddlewareUsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	set := NewSet()
	r := gin.New()
	r.Use(set.HTTP.Middleware())
	r.GET("/links/:slug", func(c *gin.Context) { c.Status(http.StatusMovedPermanently) })
	r.GET("/metrics", gin.WrapH(set.Handler()))

	for _, slug := range []string{"a", "b", "c"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/links/"+slug, nil))
	}

	requests := findMetric(t, set, "http_requests_total")
	require.Equal(t, float64(3), counterWithLabel(requests, "route", "/links/:slug"))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, strings.Contains(w.Body.String(), "http_requests_total"))
}

func TestJobMetricsSplitsOutcome(t *testing.T) {
	set := NewSet()
	set.Jobs.Observe("reconcile", time.Millisecond, nil)
	set.Jobs.Observe("reconcile", time.Millisecond, errors.New("boom"))
	require.Equal(t, float64(1), counterWithLabel(findMetric(t, set, "linkledger_job_success_total"), "job", "reconcile"))
	require.Equal(t, float64(1), counterWithLabel(findMetric(t, set, "linkledger_job_failure_total"), "job", "reconcile"))
}
