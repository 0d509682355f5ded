package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"airmetrics/internal/common/fsutil"
)

// DefaultOneWireDir is where the w1 bus exposes its slave devices.
const DefaultOneWireDir = "/sys/bus/w1/devices"

// DS18B20Pattern matches the DS18B20 family code.
const DS18B20Pattern = "28-*"

// Device is a discovered bus device.
type Device struct {
	// ID is the device directory name, e.g. "28-0316a2795aff".
	ID string
	// Path is the absolute device directory.
	Path string
}

// OneWireScanner discovers 1-Wire slaves whose directory name matches Pattern.
type OneWireScanner struct {
	Pattern string
}

// NewDS18B20Scanner returns a scanner for DS18B20 temperature probes.
func NewDS18B20Scanner() *OneWireScanner { return &OneWireScanner{Pattern: DS18B20Pattern} }

// Scan lists matching devices under dir, sorted by ID. Sysfs exposes them as
// symlinks, so entries are resolved with Stat rather than DirEntry.IsDir.
func (s *OneWireScanner) Scan(dir string) ([]Device, error) {
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	if _, err := os.Stat(abs); err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	pattern := s.Pattern
	if pattern == "" {
		pattern = "*"
	}
	matches, err := filepath.Glob(filepath.Join(abs, pattern))
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", pattern, err)
	}
	var devices []Device
	for _, p := range matches {
		fi, err := os.Stat(p)
		if err != nil || !fi.IsDir() {
			continue
		}
		devices = append(devices, Device{ID: filepath.Base(p), Path: p})
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].ID < devices[j].ID })
	return devices, nil
}

// LoadDir scans dir for DS18B20 probes.
func LoadDir(dir string) ([]Device, error) {
	return NewDS18B20Scanner().Scan(dir)
}
