package extract

import "errors"

// Sentinel kinds for extraction errors.
var (
	// ErrDecode marks an unreadable or unsupported container/codec. Fatal
	// for the whole analysis of the asset.
	ErrDecode = errors.New("media decode failed")

	// ErrEmptyStream marks a decodable asset with zero recoverable samples.
	ErrEmptyStream = errors.New("no samples in stream")
)
