package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Retention defaults match retention.interval_seconds and retention.hours.
const (
	DefaultRetentionEvery = time.Hour
	DefaultRetentionHours = 24
)

// Deleter is the part of the store the sweeper needs.
type Deleter interface {
	DeleteOlderThan(ctx context.Context, cutoff int64) (int64, error)
}

// RetentionConfig configures a RetentionSweeper.
type RetentionConfig struct {
	Store  Deleter
	Every  time.Duration
	Hours  int
	Logger zerolog.Logger
	Now    func() time.Time
}

// RetentionSweeper periodically deletes rows older than the window.
type RetentionSweeper struct {
	store Deleter
	every time.Duration
	hours int
	log   zerolog.Logger
	now   func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

func NewRetentionSweeper(cfg RetentionConfig) *RetentionSweeper {
	if cfg.Every <= 0 {
		cfg.Every = DefaultRetentionEvery
	}
	if cfg.Hours <= 0 {
		cfg.Hours = DefaultRetentionHours
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &RetentionSweeper{
		store: cfg.Store,
		every: cfg.Every,
		hours: cfg.Hours,
		log:   cfg.Logger,
		now:   cfg.Now,
		stop:  make(chan struct{}),
	}
}

// Run sweeps once per period, the first time one period after start.
func (r *RetentionSweeper) Run(ctx context.Context) {
	t := time.NewTicker(r.every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stop:
			return
		case <-t.C:
			r.SweepOnce(ctx)
		}
	}
}

func (r *RetentionSweeper) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
}

// Cutoff is the oldest timestamp kept at the current time.
func (r *RetentionSweeper) Cutoff() int64 {
	return r.now().Unix() - int64(r.hours)*3600
}

// SweepOnce deletes rows with ts < Cutoff().
func (r *RetentionSweeper) SweepOnce(ctx context.Context) (int64, error) {
	cutoff := r.Cutoff()
	n, err := r.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		retentionErrors.Inc()
		r.log.Error().Err(err).Int64("cutoff", cutoff).Msg("retention sweep failed")
		return 0, err
	}
	if n > 0 {
		retentionDeleted.Add(float64(n))
		r.log.Info().Int64("deleted", n).Int64("cutoff", cutoff).Msg("retention: deleted old readings")
	}
	return n, nil
}
