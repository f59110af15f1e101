package media

import "errors"

// Sentinel kinds for asset errors.
var (
	ErrUnknownKind = errors.New("unknown asset kind")
	ErrNoContent   = errors.New("asset has no content")
)
