package config

import "time"

// Config holds runtime parameters for the daemon. Build it with Default,
// overlay a file with Load and the environment with ApplyEnv, then Validate.
type Config struct {
	Addr string `json:"addr" yaml:"addr" toml:"addr"`
	// ReadTimeoutSeconds bounds a single sensor read.
	ReadTimeoutSeconds float64         `json:"read_timeout_seconds" yaml:"read_timeout_seconds" toml:"read_timeout_seconds"`
	Log                LogConfig       `json:"log" yaml:"log" toml:"log"`
	Database           DatabaseConfig  `json:"database" yaml:"database" toml:"database"`
	Sensors            []SensorConfig  `json:"sensors" yaml:"sensors" toml:"sensors"`
	Buffer             BufferConfig    `json:"buffer" yaml:"buffer" toml:"buffer"`
	Retention          RetentionConfig `json:"retention" yaml:"retention" toml:"retention"`
	Stream             StreamConfig    `json:"stream" yaml:"stream" toml:"stream"`
	Redis              RedisConfig     `json:"redis" yaml:"redis" toml:"redis"`
	MQTT               MQTTConfig      `json:"mqtt" yaml:"mqtt" toml:"mqtt"`
	CORS               CORSConfig      `json:"cors" yaml:"cors" toml:"cors"`
}

type LogConfig struct {
	Level  string `json:"level" yaml:"level" toml:"level"`
	Format string `json:"format" yaml:"format" toml:"format"`
	// File enables rotated file output in addition to stderr.
	File       string `json:"file" yaml:"file" toml:"file"`
	MaxSizeMB  int    `json:"max_size_mb" yaml:"max_size_mb" toml:"max_size_mb"`
	MaxBackups int    `json:"max_backups" yaml:"max_backups" toml:"max_backups"`
	MaxAgeDays int    `json:"max_age_days" yaml:"max_age_days" toml:"max_age_days"`
}

type DatabaseConfig struct {
	// Driver is one of memory, sqlite, postgres.
	Driver string `json:"driver" yaml:"driver" toml:"driver"`
	Path   string `json:"path" yaml:"path" toml:"path"`
	DSN    string `json:"dsn" yaml:"dsn" toml:"dsn"`
}

// SensorConfig describes one sampled sensor.
type SensorConfig struct {
	Name string `json:"name" yaml:"name" toml:"name"`
	// Kind is one of ds18b20, am2302, hosttemp, sim.
	Kind string `json:"kind" yaml:"kind" toml:"kind"`
	// DeviceID is the 1-Wire id (ds18b20) or the host sensor key (hosttemp).
	DeviceID  string `json:"device_id" yaml:"device_id" toml:"device_id"`
	BusDir    string `json:"bus_dir" yaml:"bus_dir" toml:"bus_dir"`
	IIODevice string `json:"iio_device" yaml:"iio_device" toml:"iio_device"`
	// CalibrationOffset is subtracted from am2302 temperatures; unset means 1.0.
	CalibrationOffset *float64 `json:"calibration_offset,omitempty" yaml:"calibration_offset,omitempty" toml:"calibration_offset,omitempty"`
	// Retries for am2302 reads; 0 means 2, negative disables.
	Retries         int     `json:"retries" yaml:"retries" toml:"retries"`
	IntervalSeconds float64 `json:"interval_seconds" yaml:"interval_seconds" toml:"interval_seconds"`
	DeltaTemp       float64 `json:"delta_temp" yaml:"delta_temp" toml:"delta_temp"`
	// DeltaHumidity enables humidity-triggered emission when set.
	DeltaHumidity *float64 `json:"delta_humidity,omitempty" yaml:"delta_humidity,omitempty" toml:"delta_humidity,omitempty"`
	Seed          int64    `json:"seed" yaml:"seed" toml:"seed"`
}

type BufferConfig struct {
	MaxReadings       int     `json:"max_readings" yaml:"max_readings" toml:"max_readings"`
	FlushEverySeconds float64 `json:"flush_every_seconds" yaml:"flush_every_seconds" toml:"flush_every_seconds"`
	// FlushEveryReadings triggers an early flush; 0 disables it.
	FlushEveryReadings int `json:"flush_every_readings" yaml:"flush_every_readings" toml:"flush_every_readings"`
}

type RetentionConfig struct {
	IntervalSeconds float64 `json:"interval_seconds" yaml:"interval_seconds" toml:"interval_seconds"`
	Hours           int     `json:"hours" yaml:"hours" toml:"hours"`
}

type StreamConfig struct {
	SubscriberQueue  int     `json:"subscriber_queue" yaml:"subscriber_queue" toml:"subscriber_queue"`
	KeepaliveSeconds float64 `json:"keepalive_seconds" yaml:"keepalive_seconds" toml:"keepalive_seconds"`
}

type RedisConfig struct {
	Enabled    bool   `json:"enabled" yaml:"enabled" toml:"enabled"`
	Addr       string `json:"addr" yaml:"addr" toml:"addr"`
	Password   string `json:"password" yaml:"password" toml:"password"`
	DB         int    `json:"db" yaml:"db" toml:"db"`
	Prefix     string `json:"prefix" yaml:"prefix" toml:"prefix"`
	TTLSeconds int    `json:"ttl_seconds" yaml:"ttl_seconds" toml:"ttl_seconds"`
}

type MQTTConfig struct {
	Enabled     bool   `json:"enabled" yaml:"enabled" toml:"enabled"`
	Broker      string `json:"broker" yaml:"broker" toml:"broker"`
	ClientID    string `json:"client_id" yaml:"client_id" toml:"client_id"`
	Username    string `json:"username" yaml:"username" toml:"username"`
	Password    string `json:"password" yaml:"password" toml:"password"`
	TopicPrefix string `json:"topic_prefix" yaml:"topic_prefix" toml:"topic_prefix"`
	QoS         int    `json:"qos" yaml:"qos" toml:"qos"`
	Retain      bool   `json:"retain" yaml:"retain" toml:"retain"`
}

type CORSConfig struct {
	Enabled        bool     `json:"enabled" yaml:"enabled" toml:"enabled"`
	AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins" toml:"allowed_origins"`
}

// Default returns the built-in configuration: a DS18B20 probe and an AM2302
// sampled every two seconds, stored in ./data/airmetrics.db.
func Default() Config {
	return Config{
		Addr:               ":8000",
		ReadTimeoutSeconds: 10,
		Log: LogConfig{
			Level:      "info",
			Format:     "json",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Database: DatabaseConfig{Driver: "sqlite", Path: "./data/airmetrics.db"},
		Sensors:  DefaultSensors(),
		Buffer: BufferConfig{
			MaxReadings:        10000,
			FlushEverySeconds:  300,
			FlushEveryReadings: 1000,
		},
		Retention: RetentionConfig{IntervalSeconds: 3600, Hours: 24},
		Stream:    StreamConfig{SubscriberQueue: 100, KeepaliveSeconds: 15},
		Redis:     RedisConfig{Addr: "localhost:6379", Prefix: "airmetrics:last:", TTLSeconds: 86400},
		MQTT:      MQTTConfig{TopicPrefix: "airmetrics/readings"},
	}
}

// DefaultSensors is used when a config file lists no sensors.
func DefaultSensors() []SensorConfig {
	rh := 0.1
	offset := 1.0
	return []SensorConfig{
		{Name: "ds18b20", Kind: "ds18b20", IntervalSeconds: 2, DeltaTemp: 0.02},
		{Name: "am2302", Kind: "am2302", IntervalSeconds: 2, DeltaTemp: 0.1, DeltaHumidity: &rh, CalibrationOffset: &offset},
	}
}

func seconds(v float64) time.Duration { return time.Duration(v * float64(time.Second)) }

func (c Config) ReadTimeout() time.Duration { return seconds(c.ReadTimeoutSeconds) }
func (s SensorConfig) Interval() time.Duration { return seconds(s.IntervalSeconds) }
func (b BufferConfig) FlushEvery() time.Duration { return seconds(b.FlushEverySeconds) }
func (r RetentionConfig) Every() time.Duration { return seconds(r.IntervalSeconds) }
func (s StreamConfig) Keepalive() time.Duration { return seconds(s.KeepaliveSeconds) }
func (r RedisConfig) TTL() time.Duration { return time.Duration(r.TTLSeconds) * time.Second }

// Offset returns the calibration offset with the am2302 default applied.
func (s SensorConfig) Offset() float64 {
	if s.CalibrationOffset != nil {
		return *s.CalibrationOffset
	}
	if s.Kind == "am2302" {
		return 1.0
	}
	return 0
}

// RetryCount returns the am2302 retry count with defaults applied.
func (s SensorConfig) RetryCount() int {
	switch {
	case s.Retries == 0:
		return 2
	case s.Retries < 0:
		return 0
	}
	return s.Retries
}

// Redacted returns a copy with secrets masked, for display.
func (c Config) Redacted() Config {
	out := c
	out.Sensors = append([]SensorConfig(nil), c.Sensors...)
	if out.Database.DSN != "" {
		out.Database.DSN = "***"
	}
	if out.Redis.Password != "" {
		out.Redis.Password = "***"
	}
	if out.MQTT.Password != "" {
		out.MQTT.Password = "***"
	}
	return out
}
