package storeops

import "errors"

var (
	// ErrNoSources is returned when Merge is called without source stores.
	ErrNoSources = errors.New("no source stores")

	// ErrNegativeTolerance is returned for a comparison tolerance below zero.
	ErrNegativeTolerance = errors.New("tolerance must not be negative")
)
