package httpapi

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"airmetrics/internal/pipeline"
	"airmetrics/pkg/types"
)

// readFrame returns the next SSE frame as its "event:" and "data:" values.
func readFrame(t *testing.T, br *bufio.Reader) (string, string) {
	t.Helper()
	var event, data string
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "":
			return event, data
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func openStream(t *testing.T, url string) (*http.Response, *bufio.Reader, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url+"/api/stream", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		cancel()
		t.Fatalf("do: %v", err)
	}
	return resp, bufio.NewReader(resp.Body), cancel
}

func waitSubscribers(t *testing.T, svc *mockService, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for svc.hub.Len() != n {
		if time.Now().After(deadline) {
			t.Fatalf("subscribers=%d want %d", svc.hub.Len(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestStream_HeadersReplayAndLive(t *testing.T) {
	svc := newMockService()
	svc.latest["ds18b20"] = types.Reading{Sensor: "ds18b20", Temperature: types.Float(21.5), TS: 100}
	srv := httptest.NewServer(NewMux(svc, Options{Keepalive: time.Minute}))
	defer srv.Close()

	resp, br, cancel := openStream(t, srv.URL)
	defer cancel()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream; charset=utf-8" {
		t.Fatalf("content-type=%q", ct)
	}
	if cc := resp.Header.Get("Cache-Control"); cc != "no-cache" {
		t.Fatalf("cache-control=%q", cc)
	}
	if resp.Header.Get("X-Accel-Buffering") != "no" {
		t.Fatalf("missing X-Accel-Buffering")
	}

	ev, data := readFrame(t, br)
	if ev != pipeline.EventReading || data != `{"sensor":"ds18b20","temperature":21.5,"humidity":null,"ts":100}` {
		t.Fatalf("replay frame event=%q data=%q", ev, data)
	}

	svc.hub.Publish(pipeline.EventReading, types.Reading{Sensor: "ds18b20", Temperature: types.Float(22), TS: 102})
	ev, data = readFrame(t, br)
	if ev != pipeline.EventReading || !strings.Contains(data, `"ts":102`) {
		t.Fatalf("live frame event=%q data=%q", ev, data)
	}
}

func TestStream_Keepalive(t *testing.T) {
	svc := newMockService()
	srv := httptest.NewServer(NewMux(svc, Options{Keepalive: 20 * time.Millisecond}))
	defer srv.Close()

	resp, br, cancel := openStream(t, srv.URL)
	defer cancel()
	defer resp.Body.Close()

	ev, data := readFrame(t, br)
	if ev != "ping" || data != "{}" {
		t.Fatalf("event=%q data=%q", ev, data)
	}
}

func TestStream_ClientDisconnectUnsubscribes(t *testing.T) {
	svc := newMockService()
	srv := httptest.NewServer(NewMux(svc, Options{Keepalive: time.Minute}))
	defer srv.Close()

	resp, _, cancel := openStream(t, srv.URL)
	waitSubscribers(t, svc, 1)
	cancel()
	resp.Body.Close()
	waitSubscribers(t, svc, 0)
}

func TestStream_BaseContextEndsStream(t *testing.T) {
	svc := newMockService()
	base, stop := context.WithCancel(context.Background())
	srv := httptest.NewServer(NewMux(svc, Options{BaseContext: base, Keepalive: time.Minute}))
	defer srv.Close()

	resp, br, cancel := openStream(t, srv.URL)
	defer cancel()
	defer resp.Body.Close()
	waitSubscribers(t, svc, 1)

	stop()
	done := make(chan error, 1)
	go func() {
		_, err := io.Copy(io.Discard, br)
		done <- err
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("stream did not end after shutdown")
	}
	waitSubscribers(t, svc, 0)
}
