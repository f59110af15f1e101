package history

import "errors"

// Sentinel kinds for history errors.
var (
	ErrNotFound     = errors.New("scan not found")
	ErrInvalidLimit = errors.New("invalid history limit")
)
