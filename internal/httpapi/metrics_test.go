package httpapi

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

// The router labels requests by chi route pattern so per-sensor paths do not
// create a series each.
func TestMetrics_RoutePatternLabel(t *testing.T) {
	h := NewMux(newMockService(), Options{})
	c := httpRequestsTotal.WithLabelValues("/api/sensors/{name}/latest", http.MethodGet, "404")
	before := testutil.ToFloat64(c)

	serve(h, "/api/sensors/a/latest")
	serve(h, "/api/sensors/b/latest")

	if got := testutil.ToFloat64(c) - before; got != 2 {
		t.Fatalf("counter delta=%v", got)
	}
}

func TestMetrics_Endpoint(t *testing.T) {
	h := NewMux(newMockService(), Options{})
	serve(h, "/api/sensors")
	w := serve(h, "/metrics")
	if w.Code != http.StatusOK {
		t.Fatalf("/metrics status=%d", w.Code)
	}
	body := w.Body.Bytes()
	for _, name := range []string{"airmetrics_http_requests_total", "airmetrics_http_inflight_requests"} {
		if !bytes.Contains(body, []byte(name)) {
			t.Fatalf("missing %s in metrics output", name)
		}
	}
}

func TestStatusRecorder_Flush(t *testing.T) {
	rr := httptest.NewRecorder()
	sr := &statusRecorder{ResponseWriter: rr, status: http.StatusOK}
	sr.WriteHeader(http.StatusTeapot)
	sr.Flush()
	if sr.status != http.StatusTeapot || !rr.Flushed {
		t.Fatalf("status=%d flushed=%v", sr.status, rr.Flushed)
	}
	if sr.Unwrap() != rr {
		t.Fatalf("unwrap returned a different writer")
	}
}
