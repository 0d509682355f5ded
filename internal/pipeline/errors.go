package pipeline

type sensorNotFoundError struct{ name string }

func (e sensorNotFoundError) Error() string { return "sensor not found: " + e.name }

// ErrSensorNotFound returns the error used for names that are not configured.
func ErrSensorNotFound(name string) error { return sensorNotFoundError{name: name} }

// IsSensorNotFound reports whether err names an unconfigured sensor.
func IsSensorNotFound(err error) bool {
	_, ok := err.(sensorNotFoundError)
	return ok
}

type noReadingError struct{ name string }

func (e noReadingError) Error() string { return "no readings for sensor " + e.name + " yet" }

// ErrNoReading returns the error used before a sensor has emitted anything.
func ErrNoReading(name string) error { return noReadingError{name: name} }

// IsNoReading reports whether err means the sensor has not emitted anything yet.
func IsNoReading(err error) bool {
	_, ok := err.(noReadingError)
	return ok
}
