package pipeline

import (
	"time"

	"airmetrics/internal/hub"
	"airmetrics/internal/sensor"
	"airmetrics/internal/store"

	"github.com/rs/zerolog"
)

// DefaultFlushEveryReadings is the default high-water mark for an early flush.
const DefaultFlushEveryReadings = 1000

// SensorSpec binds a driver to its sampling policy.
type SensorSpec struct {
	Name string
	// Kind is informational (reported by Sensors).
	Kind       string
	Driver     sensor.Driver
	Thresholds Thresholds
	Interval   time.Duration
}

// Config holds everything Pipeline needs. Zero durations and sizes fall back
// to package defaults.
type Config struct {
	Sensors []SensorSpec
	Store   store.Store
	// Hub defaults to a new hub with hub.DefaultQueueSize.
	Hub            *hub.Hub
	BufferCapacity int
	// FlushEveryReadings of 0 uses the default; negative disables early flush.
	FlushEveryReadings int
	FlushEvery         time.Duration
	RetentionEvery     time.Duration
	RetentionHours     int
	ReadTimeout        time.Duration
	Logger             zerolog.Logger
	Now                func() time.Time
}
