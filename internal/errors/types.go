// Package errors provides error types and handling utilities for the exporter.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for the pipeline failure classes.
var (
	// ErrUnreachable means no candidate address answered the liveness probe.
	ErrUnreachable = errors.New("no reachable address")
	// ErrFetchFailed means a category request errored, timed out or returned non-success.
	ErrFetchFailed = errors.New("fetch failed")
	// ErrMalformedSnapshot means a stored document does not match its category shape.
	ErrMalformedSnapshot = errors.New("malformed snapshot")
)

// ProbeError reports that none of a device's candidate addresses were reachable.
type ProbeError struct {
	DeviceName string
	Candidates []string
	Timestamp  time.Time
}

func (e ProbeError) Error() string {
	return fmt.Sprintf("device %s: %v (candidates: %v)", e.DeviceName, ErrUnreachable, e.Candidates)
}

func (e ProbeError) Unwrap() error {
	return ErrUnreachable
}

// FetchError represents a failed request for one monitoring category.
type FetchError struct {
	DeviceName string
	Category   string
	Endpoint   string
	StatusCode int
	Underlying error
}

func (e FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("device %s %s: unexpected status %d from %s: %v", e.DeviceName, e.Category, e.StatusCode, e.Endpoint, e.Underlying)
	}
	return fmt.Sprintf("device %s %s: request to %s failed: %v", e.DeviceName, e.Category, e.Endpoint, e.Underlying)
}

// Unwrap exposes both the fetch failure class and the transport cause.
func (e FetchError) Unwrap() []error {
	if e.Underlying == nil {
		return []error{ErrFetchFailed}
	}
	return []error{ErrFetchFailed, e.Underlying}
}

// NewFetchError creates a fetch error for a device category request.
func NewFetchError(device, category, endpoint string, statusCode int, err error) *FetchError {
	return &FetchError{
		DeviceName: device,
		Category:   category,
		Endpoint:   endpoint,
		StatusCode: statusCode,
		Underlying: err,
	}
}

// SnapshotError represents a snapshot that could not be turned into samples.
type SnapshotError struct {
	Category   string
	DeviceName string
	Reason     string
}

func (e SnapshotError) Error() string {
	return fmt.Sprintf("%v: %s/%s: %s", ErrMalformedSnapshot, e.Category, e.DeviceName, e.Reason)
}

func (e SnapshotError) Unwrap() error {
	return ErrMalformedSnapshot
}

// ConfigurationError represents an error in configuration validation.
type ConfigurationError struct {
	Field  string
	Value  string
	Reason string
}

func (e ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error in field %s (value: %s): %s", e.Field, e.Value, e.Reason)
}
