package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", rr.Code)
	}
	return rr.Body.String()
}

func TestMetricsHandlerExposesPrometheusMetrics(t *testing.T) {
	metrics := NewMetrics()
	metrics.Jobs().Track("ensure").End(nil)

	body := scrape(t, metrics)
	if !strings.Contains(body, "odyssey_jobs_total") {
		t.Fatalf("expected body to contain odyssey_jobs_total, got: %s", body)
	}
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/test")

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx)
	req = req.WithContext(ctx)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusTeapot {
		t.Fatalf("expected status %d, got %d", http.StatusTeapot, rr.Code)
	}

	metricsBody := scrape(t, metrics)
	if !strings.Contains(metricsBody, "odyssey_http_requests_total{code=\"418\",method=\"GET\",route=\"/test\"} 1") {
		t.Fatalf("expected metrics to record request, got: %s", metricsBody)
	}
	if !strings.Contains(metricsBody, "odyssey_http_request_duration_seconds_bucket{method=\"GET\",route=\"/test\"") {
		t.Fatalf("expected duration histogram to be present, got: %s", metricsBody)
	}
}

func TestLedgerCounters(t *testing.T) {
	metrics := NewMetrics()
	ledger := metrics.Ledger()
	ledger.Mutation("adjust_balance", nil)
	ledger.Mutation("adjust_balance", errors.New("boom"))
	ledger.Invalidation(nil)
	ledger.SystemAccount("accounts-receivable", "created")

	body := scrape(t, metrics)
	for _, want := range []string{
		`odyssey_ledger_mutations_total{op="adjust_balance",outcome="success"} 1`,
		`odyssey_ledger_mutations_total{op="adjust_balance",outcome="failure"} 1`,
		`odyssey_ledger_cache_invalidations_total{outcome="success"} 1`,
		`odyssey_ledger_system_accounts_total{result="created",type="accounts-receivable"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in metrics output, got: %s", want, body)
		}
	}
}

func TestNilLedgerIsNoop(t *testing.T) {
	var m *Metrics
	m.Ledger().Mutation("x", nil)
	m.Ledger().Invalidation(nil)
	m.Ledger().SystemAccount("x", "found")
}

func TestMiddlewareDefaultsStatusAndUnmatchedRoute(t *testing.T) {
	metrics := NewMetrics()
	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/nowhere", nil))

	body := scrape(t, metrics)
	if !strings.Contains(body, `odyssey_http_requests_total{code="200",method="POST",route="unmatched"} 1`) {
		t.Fatalf("expected unmatched route sample, got: %s", body)
	}
	if !strings.Contains(body, "odyssey_http_in_flight_requests 0") {
		t.Fatalf("expected in-flight gauge back at zero, got: %s", body)
	}
}
