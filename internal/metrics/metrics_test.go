package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSanitizeSite(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"standard http", "http://www.boe.es/path", "www.boe.es"},
		{"standard https", "https://WWW.BOE.es/path", "www.boe.es"},
		{"no scheme", "boe.es/diario_boe", "boe.es"},
		{"host with port", "127.0.0.1:8080", "127.0.0.1"},
		{"invalid url", "http://%", "unknown"},
		{"empty string", "", "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeSite(tc.input); got != tc.expected {
				t.Errorf("SanitizeSite(%q) = %q; want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestInitIsIdempotent(t *testing.T) {
	Init()
	first := catalogDaysTotal
	Init()
	if catalogDaysTotal != first {
		t.Fatal("Init() replaced collectors on second call")
	}
}

func TestObserveHelpers(t *testing.T) {
	Init()
	before := testutil.ToFloat64(catalogDaysTotal.WithLabelValues(DayMissing))
	ObserveDay(DayMissing)
	if got := testutil.ToFloat64(catalogDaysTotal.WithLabelValues(DayMissing)); got != before+1 {
		t.Errorf("missing days = %f; want %f", got, before+1)
	}

	site := "https://metrics-test.example/doc"
	ObserveFetch(site, FetchOK, 128)
	if got := testutil.ToFloat64(fetchBytesTotal.WithLabelValues("metrics-test.example")); got != 128 {
		t.Errorf("bytes = %f; want 128", got)
	}
	if got := testutil.ToFloat64(fetchAttemptsTotal.WithLabelValues("metrics-test.example", FetchOK)); got != 1 {
		t.Errorf("attempts = %f; want 1", got)
	}

	ObserveItem("metrics-test-theme")
	if got := testutil.ToFloat64(catalogItemsTotal.WithLabelValues("metrics-test-theme")); got != 1 {
		t.Errorf("items = %f; want 1", got)
	}

	ObserveExtraction("metrics-test-source")
	if got := testutil.ToFloat64(textExtractionsTotal.WithLabelValues("metrics-test-source")); got != 1 {
		t.Errorf("extractions = %f; want 1", got)
	}

	SetDocsPerMinute(42)
	if got := testutil.ToFloat64(textAttachDocsPerMinute); got != 42 {
		t.Errorf("docs per minute = %f; want 42", got)
	}

	ObserveThrottleDelay("metrics-test-lane", 150*time.Millisecond)
	if n := testutil.CollectAndCount(throttleDelaysSeconds); n == 0 {
		t.Error("expected throttle histogram series")
	}
}

func TestHandlerServesCollectors(t *testing.T) {
	ObserveDay(DayPublished)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "boe_catalog_days_total") {
		t.Error("expected boe_catalog_days_total in exposition")
	}
}

func TestObserveHTTPRequest(t *testing.T) {
	ObserveHTTPRequest(http.MethodGet, "/metrics-test", http.StatusTeapot, 20*time.Millisecond)
	if got := testutil.ToFloat64(apiRequestsTotal.WithLabelValues(http.MethodGet, "418")); got != 1 {
		t.Errorf("api requests = %f; want 1", got)
	}
	if n := testutil.CollectAndCount(apiRequestDurationSeconds); n == 0 {
		t.Error("expected api duration series")
	}
}
