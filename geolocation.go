package main

import (
	"context"
	"errors"
	"time"
)

type Position struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy,omitempty"`
}

// PositionOptions mirror the device geolocation request used for SOS.
type PositionOptions struct {
	HighAccuracy bool
	Timeout      time.Duration
	MaxAge       time.Duration
}

var sosPositionOptions = PositionOptions{
	HighAccuracy: true,
	Timeout:      10 * time.Second,
	MaxAge:       0,
}

// Geolocator performs a single current-position read on the caller's device.
type Geolocator interface {
	CurrentPosition(ctx context.Context, opts PositionOptions) (Position, error)
}

// devicePosition is the outcome of a device read reported by the client with
// the SOS request: either coordinates or the device's error code.
type devicePosition struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Accuracy  float64  `json:"accuracy"`
	// permission_denied, unsupported, timeout or unavailable
	LocationError string `json:"locationError"`
}

func (d devicePosition) CurrentPosition(ctx context.Context, opts PositionOptions) (Position, error) {
	if err := ctx.Err(); err != nil {
		return Position{}, &LocationUnavailableError{Reason: LocationTimeout}
	}
	if d.LocationError != "" {
		switch reason := LocationReason(d.LocationError); reason {
		case LocationPermissionDenied, LocationUnsupported, LocationTimeout:
			return Position{}, &LocationUnavailableError{Reason: reason}
		default:
			return Position{}, &LocationUnavailableError{Reason: LocationUnavailable}
		}
	}
	if d.Latitude == nil || d.Longitude == nil {
		return Position{}, &LocationUnavailableError{Reason: LocationUnavailable}
	}
	return Position{Latitude: *d.Latitude, Longitude: *d.Longitude, Accuracy: d.Accuracy}, nil
}

// readPosition applies opts.Timeout and normalises failures into
// LocationUnavailableError.
func readPosition(ctx context.Context, g Geolocator, opts PositionOptions) (Position, error) {
	if g == nil {
		return Position{}, &LocationUnavailableError{Reason: LocationUnsupported}
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	type read struct {
		pos Position
		err error
	}
	ch := make(chan read, 1)
	go func() {
		pos, err := g.CurrentPosition(ctx, opts)
		ch <- read{pos, err}
	}()

	select {
	case r := <-ch:
		if r.err == nil {
			return r.pos, nil
		}
		var unavailable *LocationUnavailableError
		if errors.As(r.err, &unavailable) {
			return Position{}, unavailable
		}
		if errors.Is(r.err, context.DeadlineExceeded) {
			return Position{}, &LocationUnavailableError{Reason: LocationTimeout}
		}
		return Position{}, &LocationUnavailableError{Reason: LocationUnavailable}
	case <-ctx.Done():
		return Position{}, &LocationUnavailableError{Reason: LocationTimeout}
	}
}
