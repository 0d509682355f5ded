package main

// General API documentation for swaggo. Regenerate with
// `swag init -g cmd/airmetricsd/docs.go -o docs`.
//
// @title           airmetrics API
// @version         1.0
// @description     Live and historical temperature and humidity readings from locally attached sensors.
//
// @contact.name   airmetrics maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
