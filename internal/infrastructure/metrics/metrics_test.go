package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/oneentry/currency-sync/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{0, "error"},
		{200, "2xx"},
		{204, "2xx"},
		{302, "3xx"},
		{401, "401"},
		{409, "409"},
		{503, "5xx"},
		{700, "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyStatus(tt.code))
		})
	}
}

func TestRecordRequest(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordRequest("catalog", http.MethodPut, 200, 20*time.Millisecond)
	m.RecordRequest("catalog", http.MethodPut, 200, 30*time.Millisecond)
	m.RecordRequest("catalog", http.MethodPut, 409, 10*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.APIRequestsTotal.WithLabelValues("catalog", http.MethodPut, "2xx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.APIRequestsTotal.WithLabelValues("catalog", http.MethodPut, "409")))
}

func TestRecordRequest_NilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordRequest("rates", http.MethodGet, 200, time.Millisecond)
		m.ProductSkipped("unchanged")
		m.ObservePass(domain.PassResult{})
		m.RateUpdated(1)
	})
}

func TestSyncRecorder(t *testing.T) {
	m := New(prometheus.NewRegistry())
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	m.WriteStarted()
	m.WriteStarted()
	m.WriteFinished()
	m.ProductUpdated()
	m.ProductFailed()
	m.RateFetchFailed()
	m.ObservePass(domain.PassResult{StartedAt: start, FinishedAt: start.Add(3 * time.Second)})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.WritesInFlight))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProductsUpdatedTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProductsFailedTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RateFetchErrorsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PassesTotal))
	assert.Equal(t, 1, testutil.CollectAndCount(m.PassDuration))
}

func TestHandler_ExposesRegisteredCollectors(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.RateUpdated(0.92)
	for range 4 {
		m.ProductSkipped("unchanged")
	}

	server := httptest.NewServer(m.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "currency_sync_exchange_rate 0.92")
	assert.Contains(t, string(body), `currency_sync_products_skipped_total{reason="unchanged"} 4`)
}
