package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrStoreUnavailable reports an I/O failure on the tracking or product tables.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrMissingSeedData reports that no tracker exists and no locations were supplied.
	ErrMissingSeedData = errors.New("missing seed data")
	// ErrUnknownLocation reports an update for a location absent from the tracker.
	ErrUnknownLocation = errors.New("unknown location")
	// ErrFetchFailure reports that the product fetch for a location failed.
	ErrFetchFailure = errors.New("fetch failure")
)

// UnknownLocationError names the location that could not be found.
type UnknownLocationError struct {
	LocationID string
}

func (e *UnknownLocationError) Error() string {
	return fmt.Sprintf("location %q: %v", e.LocationID, ErrUnknownLocation)
}

func (e *UnknownLocationError) Unwrap() error {
	return ErrUnknownLocation
}

// FetchErrorKind classifies fetch failures.
type FetchErrorKind string

const (
	FetchNetwork     FetchErrorKind = "network"
	FetchAuth        FetchErrorKind = "auth"
	FetchRateLimited FetchErrorKind = "rate_limited"
	FetchBadResponse FetchErrorKind = "bad_response"
)

// FetchError carries the classification of a failed fetch.
type FetchError struct {
	Kind       FetchErrorKind
	LocationID string
	Status     int
	Err        error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("fetch location %s: %s", e.LocationID, e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is lets errors.Is match ErrFetchFailure.
func (e *FetchError) Is(target error) bool {
	return target == ErrFetchFailure
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// StoreError wraps an I/O failure so it matches ErrStoreUnavailable.
func StoreError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
