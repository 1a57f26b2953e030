package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/oneentry/currency-sync/config"
	"github.com/oneentry/currency-sync/internal/domain"
	"github.com/oneentry/currency-sync/internal/infrastructure/logging"
	"github.com/oneentry/currency-sync/internal/infrastructure/metrics"
	"github.com/oneentry/currency-sync/internal/usecase"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// TestMain sets up test environment before running tests
func TestMain(m *testing.M) {
	// Set Gin to test mode once for all tests
	gin.SetMode(gin.TestMode)

	os.Exit(m.Run())
}

// stubStatus is a fixed StatusProvider
type stubStatus struct {
	status usecase.Status
}

func (s stubStatus) Status() usecase.Status {
	return s.status
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Enabled:     true,
			Port:        "8080",
			Environment: "test",
		},
	}
}

// setupTestRouter creates a test router around status
func setupTestRouter(status StatusProvider) *gin.Engine {
	m := metrics.New(prometheus.NewRegistry())
	m.RateUpdated(0.9312)

	handler := NewHandler(status)
	router := SetupRouter(testConfig(), handler, m.Handler(), logging.Discard())
	if router == nil {
		panic("setupTestRouter: SetupRouter returned nil *gin.Engine")
	}
	return router
}

func idleStatus() usecase.Status {
	started := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	next := started.Add(3 * time.Hour)
	return usecase.Status{
		State:  usecase.StateIdle,
		Target: &domain.PriceTarget{AttributeSetID: 4, AttributeID: "float_id12"},
		Rate:   "0.9312",
		Passes: 3,
		LastPass: &domain.PassResult{
			ID:         "7d9f0c5e-1111-4a4a-9b9b-0123456789ab",
			Rate:       decimal.RequireFromString("0.9312"),
			Pages:      2,
			Total:      45,
			Scanned:    45,
			Updated:    12,
			Skipped:    33,
			Scheduled:  12,
			StartedAt:  started,
			FinishedAt: started.Add(4 * time.Second),
		},
		NextPassAt: &next,
	}
}

// TestHealthCheckEndpoint tests the health check endpoint
func TestHealthCheckEndpoint(t *testing.T) {
	t.Run("returns healthy status", func(t *testing.T) {
		router := setupTestRouter(stubStatus{idleStatus()})

		req, _ := http.NewRequest("GET", "/health", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusOK)
		}

		var response map[string]interface{}
		if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}

		if response["status"] != "healthy" {
			t.Errorf("status = %v, want healthy", response["status"])
		}
		if response["service"] != "currency-sync" {
			t.Errorf("service = %v, want currency-sync", response["service"])
		}
		version, ok := response["version"].(string)
		if !ok || strings.TrimSpace(version) == "" {
			t.Errorf("version = %v, want non-empty string", response["version"])
		}
	})

	t.Run("accepts GET requests only", func(t *testing.T) {
		router := setupTestRouter(nil)

		methods := []string{"POST", "PUT", "DELETE", "PATCH"}

		for _, method := range methods {
			req, _ := http.NewRequest(method, "/health", nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != http.StatusNotFound {
				t.Errorf("Method %s: Status = %d, want %d", method, w.Code, http.StatusNotFound)
			}
		}
	})
}

// TestSyncStatusEndpoint tests the sync status endpoint
func TestSyncStatusEndpoint(t *testing.T) {
	t.Run("returns last pass summary", func(t *testing.T) {
		router := setupTestRouter(stubStatus{idleStatus()})

		req, _ := http.NewRequest("GET", "/api/v1/status", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
		}

		var response usecase.Status
		if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}

		if response.State != usecase.StateIdle {
			t.Errorf("state = %q, want %q", response.State, usecase.StateIdle)
		}
		if response.Rate != "0.9312" {
			t.Errorf("rate = %q, want 0.9312", response.Rate)
		}
		if response.LastPass == nil || response.LastPass.Updated != 12 {
			t.Errorf("lastPass = %+v, want 12 updated", response.LastPass)
		}
		if response.Target == nil || response.Target.AttributeID != "float_id12" {
			t.Errorf("target = %+v, want float_id12", response.Target)
		}
		if response.NextPassAt == nil {
			t.Errorf("nextPassAt missing")
		}
	})

	t.Run("returns 503 without sync service", func(t *testing.T) {
		router := setupTestRouter(nil)

		req, _ := http.NewRequest("GET", "/api/v1/status", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusServiceUnavailable)
		}

		var response map[string]interface{}
		if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}
		errorMsg, _ := response["error"].(string)
		if !strings.Contains(errorMsg, "not configured") {
			t.Errorf("error = %q, want to contain 'not configured'", errorMsg)
		}
	})

	t.Run("non-versioned route returns 404", func(t *testing.T) {
		router := setupTestRouter(stubStatus{idleStatus()})

		req, _ := http.NewRequest("GET", "/api/status", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusNotFound)
		}
	})
}

// TestMetricsEndpoint tests that Prometheus metrics are exposed
func TestMetricsEndpoint(t *testing.T) {
	router := setupTestRouter(stubStatus{idleStatus()})

	req, _ := http.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), "currency_sync_exchange_rate 0.9312") {
		t.Errorf("metrics output missing exchange rate gauge:\n%s", w.Body.String())
	}
}

// TestMetricsEndpoint_NotMounted tests the router without a metrics handler
func TestMetricsEndpoint_NotMounted(t *testing.T) {
	router := SetupRouter(testConfig(), NewHandler(nil), nil, logging.Discard())

	req, _ := http.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

// TestRecoveryMiddleware tests panic recovery
func TestRecoveryMiddleware(t *testing.T) {
	t.Run("recovers from panic without crashing server", func(t *testing.T) {
		router := setupTestRouter(nil)

		// Add a test route that panics
		router.GET("/panic", func(c *gin.Context) {
			panic("test panic")
		})

		req, _ := http.NewRequest("GET", "/panic", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		// Gin's default recovery returns 500
		if w.Code != http.StatusInternalServerError {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusInternalServerError)
		}
	})
}

// TestJSONResponses tests that all API responses are valid JSON
func TestJSONResponses(t *testing.T) {
	endpoints := []struct {
		method string
		path   string
	}{
		{"GET", "/health"},
		{"GET", "/api/v1/status"},
	}

	for _, endpoint := range endpoints {
		t.Run(endpoint.method+" "+endpoint.path, func(t *testing.T) {
			router := setupTestRouter(stubStatus{idleStatus()})

			req, _ := http.NewRequest(endpoint.method, endpoint.path, nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			gotContentType := w.Header().Get("Content-Type")
			wantContentType := "application/json; charset=utf-8"
			if gotContentType != wantContentType {
				t.Errorf("Content-Type = %q, want %q", gotContentType, wantContentType)
			}

			var response map[string]interface{}
			if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
				t.Errorf("Response should be valid JSON, got error: %v", err)
			}
		})
	}
}
