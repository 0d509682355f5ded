package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"airmetrics/internal/hub"
	"airmetrics/internal/store"
	"airmetrics/pkg/types"

	"github.com/rs/zerolog"
)

// Pipeline owns the samplers, the staging buffer, the flusher and the
// retention sweeper for one process.
type Pipeline struct {
	specs    []SensorSpec
	samplers []*Sampler
	byName   map[string]*Sampler
	buffer   *StagingBuffer
	flusher  *Flusher
	sweeper  *RetentionSweeper
	hub      *hub.Hub
	store    store.Store
	log      zerolog.Logger
	now      func() time.Time

	mu        sync.Mutex
	started   bool
	stopped   bool
	startTime time.Time
	cancel    context.CancelFunc

	samplerWG sync.WaitGroup
	flusherWG sync.WaitGroup
	sweeperWG sync.WaitGroup

	shutdownOnce sync.Once
	shutdownErr  error
}

// New validates cfg and builds every component. Nothing runs until Start.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Store == nil {
		return nil, errors.New("pipeline: nil store")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	h := cfg.Hub
	if h == nil {
		h = hub.New(hub.DefaultQueueSize)
	}
	highWater := cfg.FlushEveryReadings
	if highWater == 0 {
		highWater = DefaultFlushEveryReadings
	}
	buf := NewStagingBuffer(cfg.BufferCapacity, highWater)

	p := &Pipeline{
		specs:  cfg.Sensors,
		byName: make(map[string]*Sampler, len(cfg.Sensors)),
		buffer: buf,
		hub:    h,
		store:  cfg.Store,
		log:    cfg.Logger,
		now:    cfg.Now,
	}
	for _, sp := range cfg.Sensors {
		if _, dup := p.byName[sp.Name]; dup {
			return nil, fmt.Errorf("pipeline: duplicate sensor name %q", sp.Name)
		}
		s, err := NewSampler(SamplerConfig{
			Name:        sp.Name,
			Driver:      sp.Driver,
			Thresholds:  sp.Thresholds,
			Interval:    sp.Interval,
			ReadTimeout: cfg.ReadTimeout,
			Buffer:      buf,
			Publisher:   h,
			Logger:      cfg.Logger.With().Str("component", "sampler").Logger(),
			Now:         cfg.Now,
		})
		if err != nil {
			return nil, err
		}
		p.samplers = append(p.samplers, s)
		p.byName[sp.Name] = s
	}
	p.flusher = NewFlusher(FlusherConfig{
		Buffer: buf,
		Store:  cfg.Store,
		Every:  cfg.FlushEvery,
		Logger: cfg.Logger.With().Str("component", "flusher").Logger(),
	})
	p.sweeper = NewRetentionSweeper(RetentionConfig{
		Store:  cfg.Store,
		Every:  cfg.RetentionEvery,
		Hours:  cfg.RetentionHours,
		Logger: cfg.Logger.With().Str("component", "retention").Logger(),
		Now:    cfg.Now,
	})
	return p, nil
}

// Start launches every loop. It may be called once.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return errors.New("pipeline: already started")
	}
	if p.stopped {
		return errors.New("pipeline: already shut down")
	}
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.started = true
	p.startTime = p.now()

	for _, s := range p.samplers {
		p.samplerWG.Add(1)
		go func(s *Sampler) {
			defer p.samplerWG.Done()
			s.Run(runCtx)
		}(s)
	}
	p.flusherWG.Add(1)
	go func() {
		defer p.flusherWG.Done()
		p.flusher.Run(runCtx)
	}()
	p.sweeperWG.Add(1)
	go func() {
		defer p.sweeperWG.Done()
		p.sweeper.Run(runCtx)
	}()
	p.log.Info().Int("sensors", len(p.samplers)).Msg("pipeline started")
	return nil
}

// Shutdown stops samplers, then the flusher, then the sweeper, flushes what
// is left in the buffer and closes the store. Later calls return the first
// result.
func (p *Pipeline) Shutdown(ctx context.Context) error {
	p.shutdownOnce.Do(func() {
		p.mu.Lock()
		p.stopped = true
		cancel := p.cancel
		p.mu.Unlock()

		var errs []error
		for _, s := range p.samplers {
			s.Stop()
		}
		if err := waitCtx(ctx, &p.samplerWG); err != nil {
			errs = append(errs, fmt.Errorf("waiting for samplers: %w", err))
		}
		p.flusher.Stop()
		if err := waitCtx(ctx, &p.flusherWG); err != nil {
			errs = append(errs, fmt.Errorf("waiting for flusher: %w", err))
		}
		p.sweeper.Stop()
		if err := waitCtx(ctx, &p.sweeperWG); err != nil {
			errs = append(errs, fmt.Errorf("waiting for retention: %w", err))
		}
		if cancel != nil {
			cancel()
		}
		// the final insert must run even when ctx is already done
		if _, err := p.flusher.Final(context.WithoutCancel(ctx)); err != nil {
			errs = append(errs, fmt.Errorf("final flush: %w", err))
		}
		if err := p.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing store: %w", err))
		}
		p.shutdownErr = errors.Join(errs...)
		p.log.Info().Err(p.shutdownErr).Msg("pipeline stopped")
	})
	return p.shutdownErr
}

func waitCtx(ctx context.Context, wg *sync.WaitGroup) error {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Ready reports whether the loops are running.
func (p *Pipeline) Ready() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.started && !p.stopped
}

// Buffer exposes the staging buffer (CLI diagnostics and tests).
func (p *Pipeline) Buffer() *StagingBuffer { return p.buffer }

func (p *Pipeline) Hub() *hub.Hub { return p.hub }

// Sensors lists the configured sensors in configuration order.
func (p *Pipeline) Sensors() []types.SensorInfo {
	out := make([]types.SensorInfo, 0, len(p.specs))
	for _, sp := range p.specs {
		out = append(out, types.SensorInfo{Name: sp.Name, Kind: sp.Kind, IntervalSeconds: sp.Interval.Seconds()})
	}
	return out
}

// Latest returns the last emitted reading of the named sensor.
func (p *Pipeline) Latest(name string) (types.Reading, error) {
	s, ok := p.byName[name]
	if !ok {
		return types.Reading{}, ErrSensorNotFound(name)
	}
	r := s.Latest()
	if r == nil {
		return types.Reading{}, ErrNoReading(name)
	}
	return *r, nil
}

// Snapshot returns the latest reading of every sensor that has one, in
// configuration order.
func (p *Pipeline) Snapshot() []types.Reading {
	out := make([]types.Reading, 0, len(p.samplers))
	for _, s := range p.samplers {
		if r := s.Latest(); r != nil {
			out = append(out, *r)
		}
	}
	return out
}

// SensorHealth reports driver and sampler state for every sensor.
func (p *Pipeline) SensorHealth(ctx context.Context) []types.SensorHealth {
	running := p.Ready()
	out := make([]types.SensorHealth, 0, len(p.samplers))
	for _, s := range p.samplers {
		h := s.Health()
		sh := types.SensorHealth{
			Name:           s.Name(),
			Connected:      s.Driver().Connected(),
			ReadHealthy:    s.Driver().RecentlyHealthy(),
			SamplerHealthy: running && h.Healthy,
			LastError:      h.LastError,
		}
		if !h.LastSuccess.IsZero() {
			sh.LastSuccess = h.LastSuccess.Unix()
		}
		out = append(out, sh)
	}
	return out
}

// Health combines store reachability with per-sensor state.
func (p *Pipeline) Health(ctx context.Context) types.HealthResponse {
	storeOK := p.store.Ping(ctx) == nil
	sensors := p.SensorHealth(ctx)
	ok := storeOK
	for _, s := range sensors {
		if !s.Connected || !s.SamplerHealthy {
			ok = false
		}
	}
	resp := types.HealthResponse{
		OK:          ok,
		Store:       storeOK,
		Sensors:     sensors,
		Subscribers: p.hub.Len(),
	}
	p.mu.Lock()
	if p.started {
		resp.UptimeSeconds = int64(p.now().Sub(p.startTime).Seconds())
	}
	p.mu.Unlock()
	return resp
}

// History returns persisted readings with ts >= since. Readings still in the
// staging buffer are not included.
func (p *Pipeline) History(ctx context.Context, since int64) ([]types.Reading, error) {
	return p.store.QuerySince(ctx, since)
}

func (p *Pipeline) Subscribe() *hub.Subscriber { return p.hub.Subscribe() }

func (p *Pipeline) Unsubscribe(s *hub.Subscriber) { p.hub.Unsubscribe(s) }
