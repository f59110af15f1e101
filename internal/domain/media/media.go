// Package media contains the immutable asset handle shared by all detectors.
package media

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Kind declares what an asset claims to be. Detector selection follows the
// declared kind, not the container extension.
type Kind string

const (
	KindImage Kind = "image"
	KindAudio Kind = "audio"
	KindVideo Kind = "video"
)

// ParseKind maps a declared kind string to a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindImage:
		return KindImage, nil
	case KindAudio:
		return KindAudio, nil
	case KindVideo:
		return KindVideo, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// KindFromPath guesses a Kind from a file extension. Used by the universal
// scan endpoint when the caller does not declare one.
func KindFromPath(path string) (Kind, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg", ".png", ".bmp", ".webp":
		return KindImage, true
	case ".wav", ".mp3", ".flac", ".ogg", ".m4a":
		return KindAudio, true
	case ".mp4", ".avi", ".mov", ".mkv", ".flv", ".wmv":
		return KindVideo, true
	default:
		return "", false
	}
}

// Dimensions captures the basic geometry of an asset. Zero fields mean
// unknown or not applicable for the kind.
type Dimensions struct {
	Width      int
	Height     int
	SampleRate int
	Duration   time.Duration
}

// Asset is an immutable handle to a media file: declared kind, byte-content
// fingerprint and basic dimensions. Detectors borrow read access; nothing
// mutates an Asset after construction.
type Asset struct {
	kind        Kind
	fingerprint string
	path        string
	data        []byte
	dims        Dimensions
}

// NewAsset builds an Asset from in-memory bytes.
func NewAsset(kind Kind, data []byte) *Asset {
	sum := sha256.Sum256(data)
	return &Asset{
		kind:        kind,
		fingerprint: hex.EncodeToString(sum[:]),
		data:        data,
	}
}

// NewAssetFromFile builds an Asset referencing a local file. The fingerprint
// is computed by streaming the file; bytes for image and audio assets are
// read lazily via Bytes, video decode goes through the file path.
func NewAssetFromFile(kind Kind, path string) (*Asset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open asset: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, fmt.Errorf("fingerprint asset: %w", err)
	}
	return &Asset{
		kind:        kind,
		fingerprint: hex.EncodeToString(h.Sum(nil)),
		path:        path,
	}, nil
}

// Kind returns the declared asset kind.
func (a *Asset) Kind() Kind { return a.kind }

// Fingerprint returns the hex SHA-256 of the raw bytes; the cache key.
func (a *Asset) Fingerprint() string { return a.fingerprint }

// Path returns the local file path, empty for in-memory assets.
func (a *Asset) Path() string { return a.path }

// Dimensions returns the known geometry of the asset.
func (a *Asset) Dimensions() Dimensions { return a.dims }

// WithDimensions returns a copy of the asset carrying decoded geometry.
func (a *Asset) WithDimensions(d Dimensions) *Asset {
	cp := *a
	cp.dims = d
	return &cp
}

// Bytes returns the raw asset bytes, reading the backing file on demand for
// file-based assets. Video assets are decoded by path, not through Bytes.
func (a *Asset) Bytes() ([]byte, error) {
	if a.data != nil {
		return a.data, nil
	}
	if a.path == "" {
		return nil, ErrNoContent
	}
	data, err := os.ReadFile(a.path)
	if err != nil {
		return nil, fmt.Errorf("read asset: %w", err)
	}
	return data, nil
}
