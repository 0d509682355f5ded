package sensor

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Driver kinds accepted by New.
const (
	KindDS18B20  = "ds18b20"
	KindAM2302   = "am2302"
	KindHostTemp = "hosttemp"
	KindSim      = "sim"
)

// Spec describes a driver to construct. Fields not used by a kind are ignored.
type Spec struct {
	Kind string
	// DeviceID is the 1-Wire id for ds18b20, or the gopsutil key for hosttemp.
	DeviceID string
	// BusDir overrides the 1-Wire devices directory.
	BusDir string
	// IIODevice is the IIO device directory for am2302.
	IIODevice         string
	CalibrationOffset float64
	Retries           int
	RetryDelay        time.Duration
	Seed              int64
	HealthWindow      time.Duration
}

// New builds the driver for spec.Kind.
func New(spec Spec) (Driver, error) {
	switch strings.ToLower(strings.TrimSpace(spec.Kind)) {
	case KindDS18B20:
		return NewDS18B20(DS18B20Config{BusDir: spec.BusDir, DeviceID: spec.DeviceID, HealthWindow: spec.HealthWindow})
	case KindAM2302, "dht22":
		return NewAM2302(AM2302Config{
			Device:            spec.IIODevice,
			CalibrationOffset: spec.CalibrationOffset,
			Retries:           spec.Retries,
			RetryDelay:        spec.RetryDelay,
			HealthWindow:      spec.HealthWindow,
		})
	case KindHostTemp:
		return NewHostTemp(HostTempConfig{Key: spec.DeviceID, HealthWindow: spec.HealthWindow}), nil
	case KindSim:
		return NewSim(SimConfig{Seed: spec.Seed, WithHumidity: true}), nil
	default:
		return nil, fmt.Errorf("unknown sensor kind %q", spec.Kind)
	}
}

// ValidKind reports whether New understands kind.
func ValidKind(kind string) bool {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case KindDS18B20, KindAM2302, "dht22", KindHostTemp, KindSim:
		return true
	}
	return false
}

// Unavailable stands in for a device that could not be opened, so the sensor
// still shows up as disconnected in health output. Every read returns err.
func Unavailable(err error) Driver { return unavailable{err: err} }

type unavailable struct{ err error }

func (u unavailable) Read(ctx context.Context) (*Sample, error) { return nil, u.err }
func (u unavailable) Connected() bool                           { return false }
func (u unavailable) RecentlyHealthy() bool                     { return false }
