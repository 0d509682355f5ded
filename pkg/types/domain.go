package types

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Reading is one timestamped sensor observation. Values are treated as
// immutable once constructed; copy the struct rather than mutating fields.
type Reading struct {
	// Name of the sensor that produced the reading.
	// example: ds18b20
	Sensor string `json:"sensor" example:"ds18b20"`
	// Temperature in degrees Celsius; null when the sensor does not report it.
	// example: 21.56
	Temperature *float64 `json:"temperature" example:"21.56"`
	// Relative humidity in percent; null when the sensor does not report it.
	// example: 41.2
	Humidity *float64 `json:"humidity" example:"41.2"`
	// Acquisition time (unix seconds).
	// example: 1700000000
	TS int64 `json:"ts" example:"1700000000"`
}

// Float returns a pointer to v. Handy for building readings in code and tests.
func Float(v float64) *float64 { return &v }

var (
	errEmptySensor  = errors.New("reading: empty sensor name")
	errNoValues     = errors.New("reading: neither temperature nor humidity present")
	errBadTimestamp = errors.New("reading: timestamp must be positive")
)

// Validate checks the basic shape of a reading.
func (r Reading) Validate() error {
	if strings.TrimSpace(r.Sensor) == "" {
		return errEmptySensor
	}
	if r.Temperature == nil && r.Humidity == nil {
		return errNoValues
	}
	if r.TS <= 0 {
		return errBadTimestamp
	}
	if r.Temperature != nil && !finite(*r.Temperature) {
		return fmt.Errorf("reading: temperature is not finite: %v", *r.Temperature)
	}
	if r.Humidity != nil {
		h := *r.Humidity
		if !finite(h) || h < 0 || h > 100 {
			return fmt.Errorf("reading: humidity out of range: %v", h)
		}
	}
	return nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
