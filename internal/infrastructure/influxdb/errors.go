package influxdb

import "errors"

// Errors returned by Connect and HealthCheck, and passed to the SetOnError
// callback for points rejected before they reach the write buffer.
var (
	ErrDisabled         = errors.New("influxdb: disabled in configuration")
	ErrConnectionFailed = errors.New("influxdb: connection failed")
	ErrNotConnected     = errors.New("influxdb: not connected")

	// ErrInvalidPoint marks a point without a measurement name or fields.
	// The line protocol cannot encode it, so it is dropped locally.
	ErrInvalidPoint = errors.New("influxdb: invalid point")
)
