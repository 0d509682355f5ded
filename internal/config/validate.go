package config

import (
	"errors"
	"fmt"
	"strings"

	"airmetrics/internal/common/fsutil"
	"airmetrics/internal/sensor"

	"github.com/rs/zerolog"
)

// Validate reports every problem found, joined.
func (c Config) Validate() error {
	var errs []error
	add := func(format string, a ...any) { errs = append(errs, fmt.Errorf(format, a...)) }

	if strings.TrimSpace(c.Addr) == "" {
		add("addr: empty")
	}
	if c.ReadTimeoutSeconds <= 0 {
		add("read_timeout_seconds: must be > 0")
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level)); err != nil || c.Log.Level == "" {
		add("log.level: unknown level %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "console", "text":
	default:
		add("log.format: must be json or console, got %q", c.Log.Format)
	}

	switch strings.ToLower(c.Database.Driver) {
	case "memory":
	case "sqlite", "":
		if c.Database.Path == "" {
			add("database.path: empty")
		} else if c.Database.Path != ":memory:" {
			p, err := fsutil.ExpandHome(c.Database.Path)
			if err == nil {
				err = fsutil.CheckParentDir(p)
			}
			if err != nil {
				add("database.path: %v", err)
			}
		}
	case "postgres", "postgresql", "pgx":
		if c.Database.DSN == "" {
			add("database.dsn: empty")
		}
	default:
		add("database.driver: unknown %q", c.Database.Driver)
	}

	if len(c.Sensors) == 0 {
		add("sensors: none configured")
	}
	seen := make(map[string]bool, len(c.Sensors))
	for i, s := range c.Sensors {
		name := s.Name
		if strings.TrimSpace(name) == "" {
			add("sensors[%d].name: empty", i)
			name = fmt.Sprintf("#%d", i)
		} else if seen[name] {
			add("sensors[%d].name: duplicate %q", i, name)
		}
		seen[name] = true
		if !sensor.ValidKind(s.Kind) {
			add("sensor %s: unknown kind %q", name, s.Kind)
		}
		if s.IntervalSeconds <= 0 {
			add("sensor %s: interval_seconds must be > 0", name)
		}
		if s.DeltaTemp < 0 {
			add("sensor %s: delta_temp must be >= 0", name)
		}
		if s.DeltaHumidity != nil && *s.DeltaHumidity < 0 {
			add("sensor %s: delta_humidity must be >= 0", name)
		}
	}

	if c.Buffer.MaxReadings <= 0 {
		add("buffer.max_readings: must be > 0")
	}
	if c.Buffer.FlushEverySeconds <= 0 {
		add("buffer.flush_every_seconds: must be > 0")
	}
	if c.Buffer.FlushEveryReadings < 0 {
		add("buffer.flush_every_readings: must be >= 0")
	}
	if c.Retention.IntervalSeconds <= 0 {
		add("retention.interval_seconds: must be > 0")
	}
	if c.Retention.Hours <= 0 {
		add("retention.hours: must be > 0")
	}
	if c.Stream.SubscriberQueue <= 0 {
		add("stream.subscriber_queue: must be > 0")
	}
	if c.Stream.KeepaliveSeconds <= 0 {
		add("stream.keepalive_seconds: must be > 0")
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		add("redis.addr: empty")
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		add("mqtt.broker: empty")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		add("mqtt.qos: must be 0, 1 or 2")
	}
	return errors.Join(errs...)
}
