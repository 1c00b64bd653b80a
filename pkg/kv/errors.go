package kv

import "errors"

var (
	ErrFailedToParseConnString = errors.New("failed to parse redis connection string")
	ErrNotReady                = errors.New("redis did not become ready within the given time period")
	ErrHealthcheckFailed       = errors.New("kv healthcheck failed")

	// ErrNotFound is returned when the requested key does not exist.
	ErrNotFound = errors.New("kv: key not found")
)
