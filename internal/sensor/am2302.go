package sensor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"
)

// DefaultIIODevice is where the dht11 kernel driver (which also handles the
// AM2302/DHT22) exposes its channels when it is the only IIO device.
const DefaultIIODevice = "/sys/bus/iio/devices/iio:device0"

const (
	iioTemperature = "in_temp_input"
	iioHumidity    = "in_humidityrelative_input"
)

// AM2302Config configures an AM2302/DHT22 read through the Linux IIO dht11 driver.
type AM2302Config struct {
	// Device defaults to DefaultIIODevice.
	Device string
	// CalibrationOffset is subtracted from every temperature.
	CalibrationOffset float64
	// Retries after the first failed attempt; negative means none.
	Retries      int
	RetryDelay   time.Duration
	HealthWindow time.Duration
}

// AM2302 reads temperature and humidity. The sensor needs about two seconds
// between conversions and the kernel driver reports EIO or ETIMEDOUT when a
// transfer is corrupted, so reads are retried a couple of times.
type AM2302 struct {
	mu         sync.Mutex
	device     string
	offset     float64
	retries    int
	retryDelay time.Duration
	tracker    *readTracker
}

// NewAM2302 returns a driver for the IIO device directory in cfg.
func NewAM2302(cfg AM2302Config) (*AM2302, error) {
	dev := cfg.Device
	if dev == "" {
		dev = DefaultIIODevice
	}
	if _, err := os.Stat(filepath.Join(dev, iioTemperature)); err != nil {
		return nil, fmt.Errorf("am2302 %s: %w", dev, ErrNotFound)
	}
	retries := cfg.Retries
	if retries < 0 {
		retries = 0
	}
	delay := cfg.RetryDelay
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	return &AM2302{
		device:     dev,
		offset:     cfg.CalibrationOffset,
		retries:    retries,
		retryDelay: delay,
		tracker:    newReadTracker(cfg.HealthWindow),
	}, nil
}

// Read acquires temperature and humidity, retrying transient bus errors.
func (a *AM2302) Read(ctx context.Context) (*Sample, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var lastErr error
	for attempt := 0; attempt <= a.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(a.retryDelay):
			}
		}
		temp, hum, err := a.readOnce()
		if err == nil {
			t := round2(temp - a.offset)
			h := round2(hum)
			a.tracker.markSuccess()
			return &Sample{Temperature: &t, Humidity: &h, TS: time.Now().Unix()}, nil
		}
		if !IsTransient(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

func (a *AM2302) readOnce() (float64, float64, error) {
	temp, err := readMilli(filepath.Join(a.device, iioTemperature))
	if err != nil {
		return 0, 0, err
	}
	hum, err := readMilli(filepath.Join(a.device, iioHumidity))
	if err != nil {
		return 0, 0, err
	}
	return temp / 1000.0, hum / 1000.0, nil
}

// readMilli reads a sysfs integer channel scaled by 1000.
func readMilli(path string) (float64, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		switch {
		case errors.Is(err, os.ErrNotExist):
			return 0, fmt.Errorf("am2302 %s: %w", path, ErrNotFound)
		case errors.Is(err, syscall.EIO), errors.Is(err, syscall.ETIMEDOUT),
			errors.Is(err, syscall.EAGAIN), errors.Is(err, syscall.EBUSY):
			return 0, Transient(err)
		default:
			return 0, err
		}
	}
	v, err := strconv.ParseInt(strings.TrimSpace(string(b)), 10, 64)
	if err != nil {
		return 0, Transientf("am2302: bad value %q in %s", strings.TrimSpace(string(b)), filepath.Base(path))
	}
	return float64(v), nil
}

// Connected reports whether both IIO channels are present.
func (a *AM2302) Connected() bool {
	for _, ch := range []string{iioTemperature, iioHumidity} {
		if _, err := os.Stat(filepath.Join(a.device, ch)); err != nil {
			return false
		}
	}
	return true
}

// RecentlyHealthy reports a successful read within the health window.
func (a *AM2302) RecentlyHealthy() bool { return a.tracker.recent() }
