package sensor

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/host"
)

// hostKeyHints are tried in order when no key is configured.
var hostKeyHints = []string{"cpu", "soc", "thermal"}

// HostTempConfig configures the host SoC temperature driver.
type HostTempConfig struct {
	// Key selects a gopsutil sensor key such as "cpu_thermal"; empty picks
	// the first key containing one of the hint words.
	Key          string
	HealthWindow time.Duration
}

type temperatureSource func(ctx context.Context) ([]host.TemperatureStat, error)

// HostTemp reports the board temperature through gopsutil.
type HostTemp struct {
	key     string
	source  temperatureSource
	tracker *readTracker

	mu        sync.Mutex
	connected bool
}

// NewHostTemp returns a driver reading host thermal sensors.
func NewHostTemp(cfg HostTempConfig) *HostTemp {
	return newHostTemp(cfg, host.SensorsTemperaturesWithContext)
}

func newHostTemp(cfg HostTempConfig, src temperatureSource) *HostTemp {
	return &HostTemp{key: cfg.Key, source: src, tracker: newReadTracker(cfg.HealthWindow), connected: true}
}

// Read returns the selected sensor temperature. gopsutil reports partial
// failures as warnings next to valid stats; those are ignored when any stat
// was returned.
func (h *HostTemp) Read(ctx context.Context) (*Sample, error) {
	stats, err := h.source(ctx)
	if err != nil && len(stats) == 0 {
		return nil, Transient(err)
	}
	st, ok := pickTemperature(stats, h.key)
	h.setConnected(ok)
	if !ok {
		if h.key != "" {
			return nil, fmt.Errorf("host sensor %q: %w", h.key, ErrNotFound)
		}
		return nil, fmt.Errorf("no host thermal sensor: %w", ErrNotFound)
	}
	t := round2(st.Temperature)
	h.tracker.markSuccess()
	return &Sample{Temperature: &t, TS: time.Now().Unix()}, nil
}

func pickTemperature(stats []host.TemperatureStat, key string) (host.TemperatureStat, bool) {
	if key != "" {
		for _, s := range stats {
			if s.SensorKey == key {
				return s, true
			}
		}
		return host.TemperatureStat{}, false
	}
	for _, hint := range hostKeyHints {
		for _, s := range stats {
			if strings.Contains(strings.ToLower(s.SensorKey), hint) {
				return s, true
			}
		}
	}
	return host.TemperatureStat{}, false
}

func (h *HostTemp) setConnected(v bool) {
	h.mu.Lock()
	h.connected = v
	h.mu.Unlock()
}

// Connected reports whether the last read found the selected sensor.
func (h *HostTemp) Connected() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.connected
}

// RecentlyHealthy reports a successful read within the health window.
func (h *HostTemp) RecentlyHealthy() bool { return h.tracker.recent() }
