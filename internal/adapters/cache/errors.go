package cache

import "errors"

// Sentinel kinds for cache errors.
var (
	// ErrOpen marks a cache store that could not be opened.
	ErrOpen = errors.New("failed to open cache store")

	// ErrClosed marks use of a cache after Close.
	ErrClosed = errors.New("cache is closed")
)
