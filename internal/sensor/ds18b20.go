package sensor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"airmetrics/internal/registry"
)

// powerOnResetMilli is what a DS18B20 reports before its first conversion.
const powerOnResetMilli = 85000

// DS18B20Config configures a 1-Wire DS18B20 probe read through the w1_therm
// sysfs interface.
type DS18B20Config struct {
	// BusDir defaults to registry.DefaultOneWireDir.
	BusDir string
	// DeviceID such as "28-0316a2795aff"; empty picks the first probe found.
	DeviceID     string
	HealthWindow time.Duration
}

// DS18B20 reads temperature from <bus>/<device>/w1_slave.
type DS18B20 struct {
	deviceFile string
	tracker    *readTracker
}

// NewDS18B20 resolves the device directory. A missing device is an
// ErrNotFound error.
func NewDS18B20(cfg DS18B20Config) (*DS18B20, error) {
	bus := cfg.BusDir
	if bus == "" {
		bus = registry.DefaultOneWireDir
	}
	var folder string
	if cfg.DeviceID != "" {
		folder = filepath.Join(bus, cfg.DeviceID)
		if _, err := os.Stat(folder); err != nil {
			return nil, fmt.Errorf("ds18b20 %s: %w", cfg.DeviceID, ErrNotFound)
		}
	} else {
		devs, err := registry.NewDS18B20Scanner().Scan(bus)
		if err != nil || len(devs) == 0 {
			return nil, fmt.Errorf("no ds18b20 devices under %s: %w", bus, ErrNotFound)
		}
		folder = devs[0].Path
	}
	return &DS18B20{
		deviceFile: filepath.Join(folder, "w1_slave"),
		tracker:    newReadTracker(cfg.HealthWindow),
	}, nil
}

// Read parses the two-line w1_slave output:
//
//	72 01 4b 46 7f ff 0e 10 57 : crc=57 YES
//	72 01 4b 46 7f ff 0e 10 57 t=23125
//
// A failed CRC or a malformed payload yields no sample.
func (d *DS18B20) Read(ctx context.Context) (*Sample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(d.deviceFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("ds18b20 %s: %w", d.deviceFile, ErrNotFound)
		}
		return nil, Transient(err)
	}
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	if len(lines) < 2 {
		return nil, nil
	}
	if !strings.HasSuffix(strings.TrimSpace(lines[0]), "YES") {
		return nil, nil
	}
	_, raw, ok := strings.Cut(strings.TrimSpace(lines[1]), "t=")
	if !ok {
		return nil, nil
	}
	milli, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return nil, Transientf("ds18b20: bad temperature %q", raw)
	}
	if milli == powerOnResetMilli {
		return nil, Transientf("ds18b20: power-on reset value")
	}
	t := round2(float64(milli) / 1000.0)
	d.tracker.markSuccess()
	return &Sample{Temperature: &t, TS: time.Now().Unix()}, nil
}

// Connected reports whether the w1_slave file is present.
func (d *DS18B20) Connected() bool {
	_, err := os.Stat(d.deviceFile)
	return err == nil
}

// RecentlyHealthy reports a successful read within the health window.
func (d *DS18B20) RecentlyHealthy() bool { return d.tracker.recent() }
