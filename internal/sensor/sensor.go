// Package sensor acquires chamber temperatures from one-wire sensors without
// blocking the control loop.
package sensor

import "errors"

var (
	// ErrNotReady is returned when a reading is taken before a conversion
	// has completed.
	ErrNotReady = errors.New("sensor: conversion not ready")

	// ErrReadFailed wraps a reading that could not be parsed or validated.
	ErrReadFailed = errors.New("sensor: read failed")

	// ErrStartupTimeout is returned when no reading arrives within the
	// startup wait.
	ErrStartupTimeout = errors.New("sensor: no reading before startup timeout")
)

// Sensor is an asynchronous temperature sensor: a conversion is requested,
// polled for completion, then read.
type Sensor interface {
	// RequestTemp starts a conversion.
	RequestTemp() error
	// Ready reports whether the requested conversion has completed.
	Ready() bool
	// ReadTemp returns the converted temperature in whole degrees Celsius.
	ReadTemp() (int8, error)
}
