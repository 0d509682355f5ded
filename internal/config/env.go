package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// EnvPrefix namespaces every environment override.
const EnvPrefix = "AIRMETRICS_"

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

type envBinding struct {
	key   string
	apply func(c *Config, v string) error
}

func str(dst func(*Config) *string) func(*Config, string) error {
	return func(c *Config, v string) error {
		*dst(c) = v
		return nil
	}
}

func integer(dst func(*Config) *int) func(*Config, string) error {
	return func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*dst(c) = n
		return nil
	}
}

func float(dst func(*Config) *float64) func(*Config, string) error {
	return func(c *Config, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		*dst(c) = f
		return nil
	}
}

func boolean(dst func(*Config) *bool) func(*Config, string) error {
	return func(c *Config, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*dst(c) = b
		return nil
	}
}

// forKind applies fn to every sensor of the given kind.
func forKind(kind string, fn func(s *SensorConfig, v string) error) func(*Config, string) error {
	return func(c *Config, v string) error {
		for i := range c.Sensors {
			if strings.EqualFold(c.Sensors[i].Kind, kind) {
				if err := fn(&c.Sensors[i], v); err != nil {
					return err
				}
			}
		}
		return nil
	}
}

var envBindings = []envBinding{
	{"ADDR", str(func(c *Config) *string { return &c.Addr })},
	{"READ_TIMEOUT_SECONDS", float(func(c *Config) *float64 { return &c.ReadTimeoutSeconds })},
	{"LOG_LEVEL", str(func(c *Config) *string { return &c.Log.Level })},
	{"LOG_FORMAT", str(func(c *Config) *string { return &c.Log.Format })},
	{"LOG_FILE", str(func(c *Config) *string { return &c.Log.File })},
	{"DB_DRIVER", str(func(c *Config) *string { return &c.Database.Driver })},
	{"DB_PATH", str(func(c *Config) *string { return &c.Database.Path })},
	{"DB_DSN", str(func(c *Config) *string { return &c.Database.DSN })},
	{"BUFFER_MAX_READINGS", integer(func(c *Config) *int { return &c.Buffer.MaxReadings })},
	{"FLUSH_EVERY_SECONDS", float(func(c *Config) *float64 { return &c.Buffer.FlushEverySeconds })},
	{"FLUSH_EVERY_READINGS", integer(func(c *Config) *int { return &c.Buffer.FlushEveryReadings })},
	{"RETENTION_INTERVAL_SECONDS", float(func(c *Config) *float64 { return &c.Retention.IntervalSeconds })},
	{"RETENTION_HOURS", integer(func(c *Config) *int { return &c.Retention.Hours })},
	{"STREAM_SUBSCRIBER_QUEUE", integer(func(c *Config) *int { return &c.Stream.SubscriberQueue })},
	{"STREAM_KEEPALIVE_SECONDS", float(func(c *Config) *float64 { return &c.Stream.KeepaliveSeconds })},
	{"REDIS_ENABLED", boolean(func(c *Config) *bool { return &c.Redis.Enabled })},
	{"REDIS_ADDR", str(func(c *Config) *string { return &c.Redis.Addr })},
	{"REDIS_PASSWORD", str(func(c *Config) *string { return &c.Redis.Password })},
	{"MQTT_ENABLED", boolean(func(c *Config) *bool { return &c.MQTT.Enabled })},
	{"MQTT_BROKER", str(func(c *Config) *string { return &c.MQTT.Broker })},
	{"MQTT_USERNAME", str(func(c *Config) *string { return &c.MQTT.Username })},
	{"MQTT_PASSWORD", str(func(c *Config) *string { return &c.MQTT.Password })},
	{"MQTT_TOPIC_PREFIX", str(func(c *Config) *string { return &c.MQTT.TopicPrefix })},
	{"CORS_ENABLED", boolean(func(c *Config) *bool { return &c.CORS.Enabled })},
	{"CORS_ALLOWED_ORIGINS", func(c *Config, v string) error {
		c.CORS.AllowedOrigins = splitList(v)
		return nil
	}},
	{"DS18B20_DEVICE_ID", forKind("ds18b20", func(s *SensorConfig, v string) error {
		s.DeviceID = v
		return nil
	})},
	{"DS18B20_SAMPLING_INTERVAL_SECONDS", forKind("ds18b20", func(s *SensorConfig, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		s.IntervalSeconds = f
		return err
	})},
	{"AM2302_CALIBRATION_OFFSET", forKind("am2302", func(s *SensorConfig, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		s.CalibrationOffset = &f
		return err
	})},
	{"AM2302_SAMPLING_INTERVAL_SECONDS", forKind("am2302", func(s *SensorConfig, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		s.IntervalSeconds = f
		return err
	})},
}

// ApplyEnv overlays AIRMETRICS_* variables found through lookup (os.LookupEnv
// when nil). Empty values are ignored.
func ApplyEnv(c *Config, lookup LookupFunc) error {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	for _, b := range envBindings {
		v, ok := lookup(EnvPrefix + b.key)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		if err := b.apply(c, strings.TrimSpace(v)); err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, b.key, err)
		}
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
