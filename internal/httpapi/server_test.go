package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"airmetrics/internal/hub"
	"airmetrics/internal/pipeline"
	"airmetrics/pkg/types"
)

type mockService struct {
	sensors    []types.SensorInfo
	latest     map[string]types.Reading
	health     types.HealthResponse
	history    []types.Reading
	historyErr error
	gotSince   int64
	ready      bool
	hub        *hub.Hub
}

func newMockService() *mockService {
	return &mockService{
		sensors: []types.SensorInfo{{Name: "ds18b20", Kind: "ds18b20", IntervalSeconds: 2}},
		latest:  map[string]types.Reading{},
		hub:     hub.New(8),
	}
}

func (m *mockService) Sensors() []types.SensorInfo { return m.sensors }

func (m *mockService) Latest(name string) (types.Reading, error) {
	found := false
	for _, s := range m.sensors {
		if s.Name == name {
			found = true
		}
	}
	if !found {
		return types.Reading{}, pipeline.ErrSensorNotFound(name)
	}
	r, ok := m.latest[name]
	if !ok {
		return types.Reading{}, pipeline.ErrNoReading(name)
	}
	return r, nil
}

func (m *mockService) Snapshot() []types.Reading {
	out := make([]types.Reading, 0, len(m.latest))
	for _, s := range m.sensors {
		if r, ok := m.latest[s.Name]; ok {
			out = append(out, r)
		}
	}
	return out
}

func (m *mockService) Health(ctx context.Context) types.HealthResponse { return m.health }

func (m *mockService) History(ctx context.Context, since int64) ([]types.Reading, error) {
	m.gotSince = since
	return m.history, m.historyErr
}

func (m *mockService) Subscribe() *hub.Subscriber { return m.hub.Subscribe() }
func (m *mockService) Unsubscribe(s *hub.Subscriber) { m.hub.Unsubscribe(s) }
func (m *mockService) Ready() bool { return m.ready }

type mockHTTPError struct {
	msg  string
	code int
}

func (e mockHTTPError) Error() string { return e.msg }
func (e mockHTTPError) StatusCode() int { return e.code }

type fallbackSource struct {
	r     types.Reading
	err   error
	calls int
}

func (f *fallbackSource) Get(ctx context.Context, sensor string) (types.Reading, error) {
	f.calls++
	return f.r, f.err
}

func fixedNow() time.Time { return time.Unix(1_700_000_000, 0) }

func serve(h http.Handler, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) types.ErrorResponse {
	t.Helper()
	var body types.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v body=%q", err, w.Body.String())
	}
	return body
}

func TestSensorsHandler(t *testing.T) {
	svc := newMockService()
	svc.sensors = append(svc.sensors, types.SensorInfo{Name: "am2302", Kind: "am2302", IntervalSeconds: 2})
	w := serve(NewMux(svc, Options{}), "/api/sensors")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Fatalf("content-type=%s", ct)
	}
	var body types.SensorsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(body.Sensors) != 2 || body.Sensors[1].Name != "am2302" {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestHealthHandler(t *testing.T) {
	svc := newMockService()
	svc.health = types.HealthResponse{OK: true, Store: true, Subscribers: 3}
	w := serve(NewMux(svc, Options{}), "/api/health")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var body types.HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if !body.OK || !body.Store || body.Subscribers != 3 {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestLatestHandler(t *testing.T) {
	svc := newMockService()
	svc.latest["ds18b20"] = types.Reading{Sensor: "ds18b20", Temperature: types.Float(21.5), TS: 1_700_000_000}
	w := serve(NewMux(svc, Options{}), "/api/sensors/ds18b20/latest")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var body types.Reading
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body.Temperature == nil || *body.Temperature != 21.5 || body.Humidity != nil {
		t.Fatalf("unexpected body: %+v", body)
	}
	if !strings.Contains(w.Body.String(), `"humidity":null`) {
		t.Fatalf("humidity should serialize as null: %s", w.Body.String())
	}
}

func TestLatestHandler_UnknownSensor(t *testing.T) {
	fb := &fallbackSource{r: types.Reading{Sensor: "nope", Temperature: types.Float(1), TS: 1}}
	w := serve(NewMux(newMockService(), Options{LatestFallback: fb}), "/api/sensors/nope/latest")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status=%d", w.Code)
	}
	if body := decodeError(t, w); body.Code != http.StatusNotFound || !strings.Contains(body.Error, "nope") {
		t.Fatalf("unexpected body: %+v", body)
	}
	if fb.calls != 0 {
		t.Fatalf("fallback consulted for unknown sensor")
	}
}

func TestLatestHandler_NoReadingYet(t *testing.T) {
	w := serve(NewMux(newMockService(), Options{}), "/api/sensors/ds18b20/latest")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status=%d", w.Code)
	}
	if body := decodeError(t, w); !strings.Contains(body.Error, "no readings") {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestLatestHandler_Fallback(t *testing.T) {
	fb := &fallbackSource{r: types.Reading{Sensor: "ds18b20", Temperature: types.Float(19.25), TS: 42}}
	w := serve(NewMux(newMockService(), Options{LatestFallback: fb}), "/api/sensors/ds18b20/latest")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var body types.Reading
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body.TS != 42 || fb.calls != 1 {
		t.Fatalf("body=%+v calls=%d", body, fb.calls)
	}

	fb.err = errors.New("miss")
	w = serve(NewMux(newMockService(), Options{LatestFallback: fb}), "/api/sensors/ds18b20/latest")
	if w.Code != http.StatusNotFound {
		t.Fatalf("fallback miss status=%d", w.Code)
	}
}

func TestHistoryHandler_DefaultSince(t *testing.T) {
	svc := newMockService()
	svc.history = []types.Reading{{Sensor: "ds18b20", Temperature: types.Float(20), TS: 1_699_990_000}}
	w := serve(NewMux(svc, Options{Now: fixedNow}), "/api/history")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if want := fixedNow().Add(-24 * time.Hour).Unix(); svc.gotSince != want {
		t.Fatalf("since=%d want %d", svc.gotSince, want)
	}
	var body types.HistoryResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(body.Readings) != 1 {
		t.Fatalf("readings len=%d", len(body.Readings))
	}
}

func TestHistoryHandler_SinceForms(t *testing.T) {
	cases := map[string]int64{
		"1700000000": 1_700_000_000,
		"90m":        fixedNow().Add(-90 * time.Minute).Unix(),
		"now-2h":     fixedNow().Add(-2 * time.Hour).Unix(),
	}
	for q, want := range cases {
		svc := newMockService()
		w := serve(NewMux(svc, Options{Now: fixedNow}), "/api/history?since="+q)
		if w.Code != http.StatusOK {
			t.Fatalf("%s: status=%d", q, w.Code)
		}
		if svc.gotSince != want {
			t.Fatalf("%s: since=%d want %d", q, svc.gotSince, want)
		}
	}
}

func TestHistoryHandler_EmptyIsArray(t *testing.T) {
	w := serve(NewMux(newMockService(), Options{}), "/api/history?since=1h")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"readings":[]`) {
		t.Fatalf("body=%s", w.Body.String())
	}
}

func TestHistoryHandler_InvalidSince(t *testing.T) {
	svc := newMockService()
	w := serve(NewMux(svc, Options{}), "/api/history?since=yesterday")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", w.Code)
	}
	if body := decodeError(t, w); body.Code != http.StatusBadRequest || !strings.Contains(body.Error, "yesterday") {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestHistoryHandler_StoreError(t *testing.T) {
	svc := newMockService()
	svc.historyErr = errors.New("disk gone")
	w := serve(NewMux(svc, Options{}), "/api/history?since=1h")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", w.Code)
	}
	if body := decodeError(t, w); strings.Contains(body.Error, "disk gone") {
		t.Fatalf("internal error leaked: %+v", body)
	}
}

func TestHistoryHandler_HTTPError(t *testing.T) {
	svc := newMockService()
	svc.historyErr = mockHTTPError{msg: "store unavailable", code: http.StatusServiceUnavailable}
	w := serve(NewMux(svc, Options{}), "/api/history?since=1h")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestReadyz(t *testing.T) {
	svc := newMockService()
	svc.ready = true
	if w := serve(NewMux(svc, Options{}), "/readyz"); w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestReadyz_NotReady(t *testing.T) {
	w := serve(NewMux(newMockService(), Options{}), "/readyz")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "not ready") {
		t.Fatalf("body=%q", w.Body.String())
	}
}

func TestHealthz(t *testing.T) {
	w := serve(NewMux(newMockService(), Options{}), "/healthz")
	if w.Code != http.StatusOK || w.Body.String() != "ok" {
		t.Fatalf("status=%d body=%q", w.Code, w.Body.String())
	}
}

func TestSecurityHeaderAndRequestID(t *testing.T) {
	w := serve(NewMux(newMockService(), Options{}), "/api/sensors")
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("missing nosniff header")
	}
}

func TestCORS_Disabled(t *testing.T) {
	h := NewMux(newMockService(), Options{})
	req := httptest.NewRequest(http.MethodGet, "/api/sensors", nil)
	req.Header.Set("Origin", "http://example.com")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unexpected allow-origin %q", got)
	}
}

func TestCORS_Enabled(t *testing.T) {
	h := NewMux(newMockService(), Options{CORS: CORSOptions{Enabled: true, AllowedOrigins: []string{"http://dash.local"}}})
	req := httptest.NewRequest(http.MethodGet, "/api/sensors", nil)
	req.Header.Set("Origin", "http://dash.local")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://dash.local" {
		t.Fatalf("allow-origin=%q", got)
	}
}

func TestNotFoundRoute(t *testing.T) {
	if w := serve(NewMux(newMockService(), Options{}), "/api/nope"); w.Code != http.StatusNotFound {
		t.Fatalf("status=%d", w.Code)
	}
}
