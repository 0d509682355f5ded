package pipeline

import (
	"math"

	"airmetrics/pkg/types"
)

// thresholdTolerance absorbs binary rounding of decimal sensor values so
// that 20.02-20.00 counts as a 0.02 change.
const thresholdTolerance = 1e-9

// Thresholds is the minimum change that makes a reading worth keeping.
type Thresholds struct {
	DeltaTemp float64
	// DeltaHumidity disables humidity-triggered emission when nil.
	DeltaHumidity *float64
}

// ChangeFilter decides whether a reading differs enough from the last
// emitted one. It is not safe for concurrent use; a Sampler owns it.
type ChangeFilter struct {
	th   Thresholds
	last *types.Reading
}

// NewChangeFilter returns a filter with no prior reading.
func NewChangeFilter(th Thresholds) *ChangeFilter {
	return &ChangeFilter{th: th}
}

// Decide reports whether cur should be emitted and, if so, remembers it.
func (f *ChangeFilter) Decide(cur types.Reading) bool {
	if f.last == nil || f.changed(cur) {
		r := cur
		f.last = &r
		return true
	}
	return false
}

func (f *ChangeFilter) changed(cur types.Reading) bool {
	last := f.last
	if cur.Temperature != nil && last.Temperature != nil &&
		exceeds(*cur.Temperature-*last.Temperature, f.th.DeltaTemp) {
		return true
	}
	if f.th.DeltaHumidity != nil && cur.Humidity != nil && last.Humidity != nil &&
		exceeds(*cur.Humidity-*last.Humidity, *f.th.DeltaHumidity) {
		return true
	}
	return false
}

func exceeds(delta, threshold float64) bool {
	return math.Abs(delta) >= threshold-thresholdTolerance
}

// Last returns a copy of the last emitted reading, or nil.
func (f *ChangeFilter) Last() *types.Reading {
	if f.last == nil {
		return nil
	}
	r := *f.last
	return &r
}
