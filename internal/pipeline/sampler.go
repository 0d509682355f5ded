package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"airmetrics/internal/sensor"
	"airmetrics/pkg/types"

	"github.com/rs/zerolog"
)

// DefaultReadTimeout bounds a single driver read.
const DefaultReadTimeout = 10 * time.Second

// EventReading is the event name emitted readings are published under.
const EventReading = "reading"

// BufferSink receives emitted readings for persistence.
type BufferSink interface {
	Append(r types.Reading) bool
}

// EventPublisher receives emitted readings for live delivery.
type EventPublisher interface {
	Publish(name string, payload any)
}

// SamplerConfig configures one Sampler.
type SamplerConfig struct {
	Name        string
	Driver      sensor.Driver
	Thresholds  Thresholds
	Interval    time.Duration
	ReadTimeout time.Duration
	Buffer      BufferSink
	Publisher   EventPublisher
	Logger      zerolog.Logger
	Now         func() time.Time
}

// SamplerHealth describes the outcome of recent reads.
type SamplerHealth struct {
	// Healthy is false after a structural failure until the next good read.
	Healthy     bool
	LastError   string
	LastSuccess time.Time
}

// Sampler reads one sensor on a fixed interval and emits changed readings.
type Sampler struct {
	name        string
	driver      sensor.Driver
	filter      *ChangeFilter
	interval    time.Duration
	readTimeout time.Duration
	buffer      BufferSink
	publisher   EventPublisher
	log         zerolog.Logger
	now         func() time.Time

	mu     sync.RWMutex
	latest *types.Reading
	health SamplerHealth

	// inflight is set while a driver read goroutine is alive, including one
	// that outlived its timeout.
	inflight atomic.Bool

	stop     chan struct{}
	stopOnce sync.Once
}

type readResult struct {
	sample *sensor.Sample
	err    error
}

// NewSampler validates cfg and returns a stopped sampler.
func NewSampler(cfg SamplerConfig) (*Sampler, error) {
	if cfg.Name == "" {
		return nil, errors.New("sampler: empty name")
	}
	if cfg.Driver == nil {
		return nil, fmt.Errorf("sampler %s: nil driver", cfg.Name)
	}
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("sampler %s: interval must be positive", cfg.Name)
	}
	if cfg.Thresholds.DeltaTemp < 0 || (cfg.Thresholds.DeltaHumidity != nil && *cfg.Thresholds.DeltaHumidity < 0) {
		return nil, fmt.Errorf("sampler %s: negative threshold", cfg.Name)
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Sampler{
		name:        cfg.Name,
		driver:      cfg.Driver,
		filter:      NewChangeFilter(cfg.Thresholds),
		interval:    cfg.Interval,
		readTimeout: cfg.ReadTimeout,
		buffer:      cfg.Buffer,
		publisher:   cfg.Publisher,
		log:         cfg.Logger.With().Str("sensor", cfg.Name).Logger(),
		now:         cfg.Now,
		health:      SamplerHealth{Healthy: true},
		stop:        make(chan struct{}),
	}, nil
}

func (s *Sampler) Name() string { return s.name }

// Driver returns the underlying sensor driver.
func (s *Sampler) Driver() sensor.Driver { return s.driver }

// Run samples until ctx is done or Stop is called.
func (s *Sampler) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		default:
		}
		s.sampleOnce(ctx)

		timer := time.NewTimer(s.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-s.stop:
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// Stop ends Run. Safe to call more than once.
func (s *Sampler) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// read runs the driver in its own goroutine so a wedged bus cannot hold the
// loop past its timeout or a stop request. At most one read is in flight per
// sampler; while a hung read is still running, later cycles report a
// transient error instead of starting another.
func (s *Sampler) read(ctx context.Context) (readResult, bool) {
	if !s.inflight.CompareAndSwap(false, true) {
		return readResult{err: sensor.Transientf("previous read still pending")}, true
	}
	rctx, cancel := context.WithTimeout(ctx, s.readTimeout)
	defer cancel()

	ch := make(chan readResult, 1)
	go func() {
		res := s.driverRead(rctx)
		// clear before handing over so the next cycle never sees a stale flag
		s.inflight.Store(false)
		ch <- res
	}()

	select {
	case res := <-ch:
		if res.err != nil && errors.Is(res.err, context.DeadlineExceeded) && ctx.Err() == nil {
			res.err = sensor.Transient(res.err)
		}
		return res, true
	case <-rctx.Done():
		if ctx.Err() != nil {
			return readResult{}, false
		}
		return readResult{err: sensor.Transientf("read timed out after %s", s.readTimeout)}, true
	case <-s.stop:
		return readResult{}, false
	}
}

// driverRead calls the driver, turning a panic into a structural error.
func (s *Sampler) driverRead(ctx context.Context) (res readResult) {
	defer func() {
		if p := recover(); p != nil {
			res = readResult{err: fmt.Errorf("driver panic: %v", p)}
		}
	}()
	smp, err := s.driver.Read(ctx)
	return readResult{sample: smp, err: err}
}

func (s *Sampler) sampleOnce(ctx context.Context) {
	res, ok := s.read(ctx)
	if !ok {
		return
	}
	if res.err != nil {
		if ctx.Err() != nil {
			return
		}
		if sensor.IsTransient(res.err) {
			samplerReads.WithLabelValues(s.name, resultTransient).Inc()
			s.log.Warn().Err(res.err).Msg("transient read error")
			return
		}
		samplerReads.WithLabelValues(s.name, resultError).Inc()
		s.markFailure(res.err)
		s.log.Error().Err(res.err).Msg("sensor read failed")
		return
	}
	if res.sample == nil {
		samplerReads.WithLabelValues(s.name, resultAbsent).Inc()
		s.log.Debug().Msg("no reading")
		return
	}
	r := types.Reading{
		Sensor:      s.name,
		Temperature: res.sample.Temperature,
		Humidity:    res.sample.Humidity,
		TS:          res.sample.TS,
	}
	if r.TS == 0 {
		r.TS = s.now().Unix()
	}
	if err := r.Validate(); err != nil {
		samplerReads.WithLabelValues(s.name, resultInvalid).Inc()
		s.log.Warn().Err(err).Msg("dropping malformed reading")
		return
	}
	s.markSuccess()
	samplerReads.WithLabelValues(s.name, resultOK).Inc()

	if !s.filter.Decide(r) {
		samplerSuppressed.WithLabelValues(s.name).Inc()
		return
	}
	samplerEmitted.WithLabelValues(s.name).Inc()
	s.mu.Lock()
	latest := r
	s.latest = &latest
	s.mu.Unlock()

	s.deliver("buffer", func() {
		if s.buffer != nil {
			s.buffer.Append(r)
		}
	})
	s.deliver("publish", func() {
		if s.publisher != nil {
			s.publisher.Publish(EventReading, r)
		}
	})
}

// deliver runs one sink call; a panicking sink must not keep the other from
// receiving the reading or kill the loop.
func (s *Sampler) deliver(sink string, fn func()) {
	defer func() {
		if p := recover(); p != nil {
			s.log.Error().Str("sink", sink).Interface("panic", p).Msg("sink panicked")
		}
	}()
	fn()
}

func (s *Sampler) markSuccess() {
	s.mu.Lock()
	s.health.Healthy = true
	s.health.LastError = ""
	s.health.LastSuccess = s.now()
	s.mu.Unlock()
}

func (s *Sampler) markFailure(err error) {
	s.mu.Lock()
	s.health.Healthy = false
	s.health.LastError = err.Error()
	s.mu.Unlock()
}

// Latest returns a copy of the last emitted reading, or nil.
func (s *Sampler) Latest() *types.Reading {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return nil
	}
	r := *s.latest
	return &r
}

func (s *Sampler) Health() SamplerHealth {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.health
}
