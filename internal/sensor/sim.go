package sensor

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// SimConfig configures the simulated driver.
type SimConfig struct {
	Seed int64
	// Temperature is the starting value in °C.
	Temperature float64
	// Humidity is the starting value in %RH; ignored unless WithHumidity.
	Humidity     float64
	WithHumidity bool
	// Step bounds the per-read change; default 0.2.
	Step float64
}

// Sim is a bounded random walk used for development and tests.
type Sim struct {
	mu    sync.Mutex
	rnd   *rand.Rand
	temp  float64
	hum   float64
	humOn bool
	step  float64
	reads int
}

// NewSim returns a simulated sensor.
func NewSim(cfg SimConfig) *Sim {
	step := cfg.Step
	if step <= 0 {
		step = 0.2
	}
	temp := cfg.Temperature
	if temp == 0 {
		temp = 21
	}
	hum := cfg.Humidity
	if hum == 0 {
		hum = 45
	}
	return &Sim{
		rnd:   rand.New(rand.NewSource(cfg.Seed)),
		temp:  temp,
		hum:   clamp(hum, 0, 100),
		humOn: cfg.WithHumidity,
		step:  step,
	}
}

// Read advances the walk and returns the new values.
func (s *Sim) Read(ctx context.Context) (*Sample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads++
	s.temp = clamp(s.temp+(s.rnd.Float64()*2-1)*s.step, -40, 85)
	t := round2(s.temp)
	out := &Sample{Temperature: &t, TS: time.Now().Unix()}
	if s.humOn {
		s.hum = clamp(s.hum+(s.rnd.Float64()*2-1)*s.step*5, 0, 100)
		h := round2(s.hum)
		out.Humidity = &h
	}
	return out, nil
}

// Reads returns how many reads were served.
func (s *Sim) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

func (s *Sim) Connected() bool       { return true }
func (s *Sim) RecentlyHealthy() bool { return true }

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
