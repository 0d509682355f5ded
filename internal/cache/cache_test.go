package cache

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"airmetrics/internal/hub"
	"airmetrics/pkg/types"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSetter struct {
	mu   sync.Mutex
	rows map[string]types.Reading
	fail bool
}

func (m *memSetter) Set(ctx context.Context, r types.Reading) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("unavailable")
	}
	if m.rows == nil {
		m.rows = map[string]types.Reading{}
	}
	m.rows[r.Sensor] = r
	return nil
}

func (m *memSetter) get(name string) (types.Reading, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[name]
	return r, ok
}

func TestKeyAndDefaults(t *testing.T) {
	c := New(Options{Addr: "127.0.0.1:0"})
	defer c.Close()
	assert.Equal(t, "airmetrics:last:am2302", c.Key("am2302"))
	assert.Equal(t, DefaultTTL, c.ttl)

	c2 := New(Options{Addr: "127.0.0.1:0", Prefix: "x:", TTL: time.Minute})
	defer c2.Close()
	assert.Equal(t, "x:s", c2.Key("s"))
	assert.Equal(t, time.Minute, c2.ttl)
}

func TestMirror_CopiesReadingsAndSkipsOthers(t *testing.T) {
	h := hub.New(10)
	sub := h.Subscribe()
	dst := &memSetter{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		Mirror(ctx, sub, dst, time.Second, zerolog.Nop())
		close(done)
	}()

	h.Publish("ping", map[string]string{})
	h.Publish("reading", types.Reading{Sensor: "a", Temperature: types.Float(1), TS: 1})
	h.Publish("reading", types.Reading{Sensor: "a", Temperature: types.Float(2), TS: 2})

	require.Eventually(t, func() bool {
		r, ok := dst.get("a")
		return ok && r.TS == 2
	}, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-done
}

func TestMirror_WriteFailureKeepsGoing(t *testing.T) {
	h := hub.New(10)
	sub := h.Subscribe()
	dst := &memSetter{fail: true}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go Mirror(ctx, sub, dst, time.Second, zerolog.Nop())

	h.Publish("reading", types.Reading{Sensor: "a", Temperature: types.Float(1), TS: 1})
	time.Sleep(20 * time.Millisecond)
	dst.mu.Lock()
	dst.fail = false
	dst.mu.Unlock()
	h.Publish("reading", types.Reading{Sensor: "a", Temperature: types.Float(2), TS: 2})
	require.Eventually(t, func() bool { _, ok := dst.get("a"); return ok }, 2*time.Second, 5*time.Millisecond)
}

// TestRedisRoundTrip needs a reachable server in AIRMETRICS_TEST_REDIS_ADDR.
func TestRedisRoundTrip(t *testing.T) {
	addr := os.Getenv("AIRMETRICS_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("AIRMETRICS_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	c := New(Options{Addr: addr, Prefix: "airmetrics-test:last:"})
	defer c.Close()
	require.NoError(t, c.Ping(ctx))

	_, err := c.Get(ctx, "missing-sensor")
	assert.ErrorIs(t, err, ErrMiss)

	in := types.Reading{Sensor: "probe", Temperature: types.Float(21.5), TS: 1_700_000_000}
	require.NoError(t, c.Set(ctx, in))
	out, err := c.Get(ctx, "probe")
	require.NoError(t, err)
	assert.Equal(t, in.TS, out.TS)
	assert.Nil(t, out.Humidity)
	assert.Equal(t, 21.5, *out.Temperature)
}
