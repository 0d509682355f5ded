package e2e

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"airmetrics/internal/httpapi"
	"airmetrics/internal/hub"
	"airmetrics/internal/pipeline"
	"airmetrics/internal/sensor"
	"airmetrics/internal/store"
)

type stack struct {
	srv   *httptest.Server
	p     *pipeline.Pipeline
	store *store.Memory
	stop  context.CancelFunc
}

// newStack runs simulated sensors through a pipeline backed by the memory
// store and serves the API over httptest.
func newStack(t *testing.T, cfg pipeline.Config) *stack {
	t.Helper()
	mem := store.NewMemory()
	cfg.Store = mem
	if cfg.Hub == nil {
		cfg.Hub = hub.New(16)
	}
	p, err := pipeline.New(cfg)
	if err != nil {
		t.Fatalf("pipeline: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := p.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	srv := httptest.NewServer(httpapi.NewMux(p, httpapi.Options{BaseContext: ctx, Keepalive: time.Minute}))
	s := &stack{srv: srv, p: p, store: mem, stop: cancel}
	t.Cleanup(func() {
		cancel()
		srv.Close()
		p.Shutdown(context.Background())
	})
	return s
}

func simSensor(name string, seed int64, every time.Duration) pipeline.SensorSpec {
	return pipeline.SensorSpec{
		Name:     name,
		Kind:     sensor.KindSim,
		Driver:   sensor.NewSim(sensor.SimConfig{Seed: seed, WithHumidity: true}),
		Interval: every,
	}
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, b
}

func eventually(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out: %s", msg)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

type frame struct{ event, data string }

// readFrames reads SSE frames from body onto a channel until it fails.
func readFrames(body io.Reader) <-chan frame {
	out := make(chan frame, 64)
	go func() {
		defer close(out)
		br := bufio.NewReader(body)
		var f frame
		for {
			line, err := br.ReadString('\n')
			if err != nil {
				return
			}
			line = strings.TrimRight(line, "\n")
			switch {
			case line == "":
				out <- f
				f = frame{}
			case strings.HasPrefix(line, "event: "):
				f.event = strings.TrimPrefix(line, "event: ")
			case strings.HasPrefix(line, "data: "):
				f.data = strings.TrimPrefix(line, "data: ")
			}
		}
	}()
	return out
}
