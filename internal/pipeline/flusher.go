package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"airmetrics/pkg/types"

	"github.com/rs/zerolog"
)

// DefaultFlushEvery matches the default buffer.flush_every_seconds.
const DefaultFlushEvery = 300 * time.Second

// Inserter is the part of the store the flusher needs.
type Inserter interface {
	InsertMany(ctx context.Context, readings []types.Reading) error
}

// FlusherConfig configures a Flusher.
type FlusherConfig struct {
	Buffer *StagingBuffer
	Store  Inserter
	Every  time.Duration
	Logger zerolog.Logger
}

// Flusher moves buffered readings into the store. The buffer is cleared
// before the insert; a failed batch is counted and logged, not retried.
type Flusher struct {
	buffer *StagingBuffer
	store  Inserter
	every  time.Duration
	log    zerolog.Logger

	stop     chan struct{}
	stopOnce sync.Once
}

func NewFlusher(cfg FlusherConfig) *Flusher {
	every := cfg.Every
	if every <= 0 {
		every = DefaultFlushEvery
	}
	return &Flusher{
		buffer: cfg.Buffer,
		store:  cfg.Store,
		every:  every,
		log:    cfg.Logger,
		stop:   make(chan struct{}),
	}
}

// Run flushes every period and whenever the buffer signals high water.
func (f *Flusher) Run(ctx context.Context) {
	t := time.NewTicker(f.every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-f.stop:
			return
		case <-t.C:
		case <-f.buffer.HighWater():
			f.log.Debug().Msg("buffer reached high water, flushing early")
		}
		f.FlushOnce(ctx)
	}
}

func (f *Flusher) Stop() {
	f.stopOnce.Do(func() { close(f.stop) })
}

// FlushOnce drains the buffer and writes it as one batch. It returns the
// number of readings written. An empty buffer makes no store call.
func (f *Flusher) FlushOnce(ctx context.Context) (int, error) {
	batch := f.buffer.DrainAndClear()
	if len(batch) == 0 {
		return 0, nil
	}
	if err := f.insert(ctx, batch); err != nil {
		flushErrors.Inc()
		flushLost.Add(float64(len(batch)))
		f.log.Error().Err(err).Int("readings", len(batch)).Msg("flush failed, batch discarded")
		return 0, err
	}
	flushBatches.Inc()
	f.log.Debug().Int("readings", len(batch)).Msg("flushed")
	return len(batch), nil
}

func (f *Flusher) insert(ctx context.Context, batch []types.Reading) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("insert panic: %v", p)
		}
	}()
	return f.store.InsertMany(ctx, batch)
}

// Final performs the shutdown flush. Call it after Run has returned.
func (f *Flusher) Final(ctx context.Context) (int, error) {
	n, err := f.FlushOnce(ctx)
	if err == nil && n > 0 {
		f.log.Info().Int("readings", n).Msg("final flush")
	}
	return n, err
}
