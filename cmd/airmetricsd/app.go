package main

import (
	"airmetrics/internal/config"
	"airmetrics/internal/pipeline"
	"airmetrics/internal/sensor"

	"github.com/rs/zerolog"
)

// buildSensors turns the sensor section into pipeline specs. A device that
// cannot be opened is kept as an unavailable driver so it still reports in
// health output.
func buildSensors(cfg config.Config, log zerolog.Logger) []pipeline.SensorSpec {
	specs := make([]pipeline.SensorSpec, 0, len(cfg.Sensors))
	for _, sc := range cfg.Sensors {
		drv, err := sensor.New(sensor.Spec{
			Kind:              sc.Kind,
			DeviceID:          sc.DeviceID,
			BusDir:            sc.BusDir,
			IIODevice:         sc.IIODevice,
			CalibrationOffset: sc.Offset(),
			Retries:           sc.RetryCount(),
			Seed:              sc.Seed,
		})
		if err != nil {
			log.Error().Err(err).Str("sensor", sc.Name).Str("kind", sc.Kind).Msg("sensor unavailable")
			drv = sensor.Unavailable(err)
		}
		specs = append(specs, pipeline.SensorSpec{
			Name:   sc.Name,
			Kind:   sc.Kind,
			Driver: drv,
			Thresholds: pipeline.Thresholds{
				DeltaTemp:     sc.DeltaTemp,
				DeltaHumidity: sc.DeltaHumidity,
			},
			Interval: sc.Interval(),
		})
	}
	return specs
}

// pipelineConfig maps the file/env config onto pipeline.Config. The config
// file uses 0 to disable the size-triggered flush.
func pipelineConfig(cfg config.Config, specs []pipeline.SensorSpec) pipeline.Config {
	highWater := cfg.Buffer.FlushEveryReadings
	if highWater == 0 {
		highWater = -1
	}
	return pipeline.Config{
		Sensors:            specs,
		BufferCapacity:     cfg.Buffer.MaxReadings,
		FlushEveryReadings: highWater,
		FlushEvery:         cfg.Buffer.FlushEvery(),
		RetentionEvery:     cfg.Retention.Every(),
		RetentionHours:     cfg.Retention.Hours,
		ReadTimeout:        cfg.ReadTimeout(),
	}
}
