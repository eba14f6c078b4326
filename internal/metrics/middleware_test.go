package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsMiddleware_RecordsDurationAndCount(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Post("/api/search", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	req := httptest.NewRequest("POST", "/api/search", http.NoBody)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != 200 {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	requestsVal := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("POST", "/api/search", "200"))
	if requestsVal < 1 {
		t.Errorf("expected http_requests_total >= 1, got %f", requestsVal)
	}

	if testutil.CollectAndCount(httpRequestDuration) == 0 {
		t.Error("expected http_request_duration_seconds to have observations")
	}
}

func TestMetricsMiddleware_InFlightReturnsToZero(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())

	var during float64
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		during = testutil.ToFloat64(httpRequestsInFlight)
		w.WriteHeader(http.StatusOK)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/health", http.NoBody))

	if during < 1 {
		t.Errorf("expected in-flight >= 1 while serving, got %f", during)
	}
	if after := testutil.ToFloat64(httpRequestsInFlight); after != 0 {
		t.Errorf("expected in-flight 0 after request, got %f", after)
	}
}

func TestMetricsMiddleware_DifferentStatusCodes(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())

	r.Post("/api/ok", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Post("/api/bad", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})
	r.Post("/api/down", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	tests := []struct {
		path           string
		expectedStatus string
	}{
		{"/api/ok", "200"},
		{"/api/bad", "400"},
		{"/api/down", "503"},
	}

	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			req := httptest.NewRequest("POST", tc.path, http.NoBody)
			r.ServeHTTP(httptest.NewRecorder(), req)

			val := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("POST", tc.path, tc.expectedStatus))
			if val < 1 {
				t.Errorf("expected requests_total for %s with status %s >= 1, got %f", tc.path, tc.expectedStatus, val)
			}
		})
	}
}

func TestMetricsMiddleware_ImplicitOK(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/api/implicit", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("body without WriteHeader"))
	})

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/api/implicit", "200"))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/implicit", http.NoBody))
	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/api/implicit", "200"))
	if after-before != 1 {
		t.Errorf("expected one 200 sample, got %f", after-before)
	}
}

func TestRouteLabel(t *testing.T) {
	plain := httptest.NewRequest("GET", "/anything", http.NoBody)
	if got := routeLabel(plain); got != unmatchedRoute {
		t.Errorf("without chi context = %q", got)
	}

	r := chi.NewRouter()
	r.Use(Middleware())
	r.Post("/api/search", func(http.ResponseWriter, *http.Request) {})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/no/such/route", http.NoBody))

	if got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", unmatchedRoute, "404")); got < 1 {
		t.Errorf("expected 404 under %q, got %f", unmatchedRoute, got)
	}
}

func TestMetricsHandler_ExposesNamespace(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Handle("/metrics", promhttp.Handler())

	// first request seeds the counters
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/metrics", http.NoBody))

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", http.NoBody))
	if rr.Code != 200 {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	body, err := io.ReadAll(rr.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	if !strings.Contains(string(body), "whatmovie_http_requests_total") {
		t.Error("expected whatmovie_http_requests_total in exposition")
	}
}
