package types

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: invalid since: yesterday
	Error string `json:"error" example:"invalid since: yesterday"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// HistoryResponse is returned by GET /api/history.
type HistoryResponse struct {
	// Persisted readings ordered ascending by ts.
	Readings []Reading `json:"readings"`
}

// SensorsResponse is returned by GET /api/sensors.
type SensorsResponse struct {
	// Configured sensors.
	Sensors []SensorInfo `json:"sensors"`
}

// SensorInfo describes one configured sensor.
type SensorInfo struct {
	// example: am2302
	Name string `json:"name" example:"am2302"`
	// Driver kind (ds18b20, am2302, hosttemp, sim).
	// example: am2302
	Kind string `json:"kind" example:"am2302"`
	// Sampling interval in seconds.
	// example: 2
	IntervalSeconds float64 `json:"interval_seconds" example:"2"`
}

// SensorHealth summarizes a sensor for GET /api/health.
type SensorHealth struct {
	// example: ds18b20
	Name string `json:"name" example:"ds18b20"`
	// Device is present and reachable.
	// example: true
	Connected bool `json:"connected" example:"true"`
	// A successful read happened within the recency window.
	// example: true
	ReadHealthy bool `json:"read_healthy" example:"true"`
	// The sampler has not seen a structural failure since its last good read.
	// example: true
	SamplerHealthy bool `json:"sampler_healthy" example:"true"`
	// Last structural error reported by the driver, if any.
	LastError string `json:"last_error,omitempty"`
	// Last successful read (unix seconds), 0 if none yet.
	// example: 1700000000
	LastSuccess int64 `json:"last_success_unix,omitempty" example:"1700000000"`
}

// HealthResponse is returned by GET /api/health.
type HealthResponse struct {
	// True when the store and every sensor are healthy.
	// example: true
	OK bool `json:"ok" example:"true"`
	// Store reachability.
	// example: true
	Store bool `json:"store" example:"true"`
	// Per-sensor health.
	Sensors []SensorHealth `json:"sensors"`
	// Active live-stream subscribers.
	// example: 2
	Subscribers int `json:"subscribers" example:"2"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
}
