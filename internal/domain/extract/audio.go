package extract

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os/exec"

	"github.com/go-audio/wav"

	"github.com/veridianlabs/veridian/internal/domain/media"
)

// Audio decodes a WAV asset into a normalized mono clip. Multi-channel
// streams are mixed down by averaging.
func Audio(asset *media.Asset) (*Clip, error) {
	data, err := asset.Bytes()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return decodeWAV(data)
}

func decodeWAV(data []byte) (*Clip, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: not a valid wav container", ErrDecode)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if buf == nil || len(buf.Data) == 0 {
		return nil, ErrEmptyStream
	}

	channels := buf.Format.NumChannels
	if channels < 1 {
		channels = 1
	}
	// Normalize to [-1,1] by the source bit depth.
	scale := math.Pow(2, float64(dec.BitDepth-1))
	if scale <= 0 {
		scale = math.Pow(2, 15)
	}

	frames := len(buf.Data) / channels
	samples := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for ch := 0; ch < channels; ch++ {
			sum += float64(buf.Data[i*channels+ch])
		}
		samples[i] = sum / float64(channels) / scale
	}
	return &Clip{Samples: samples, SampleRate: buf.Format.SampleRate}, nil
}

// AudioFromVideo pulls the audio track of a video asset through ffmpeg and
// decodes it as WAV. Assets with no audio track yield ErrEmptyStream.
func AudioFromVideo(ctx context.Context, asset *media.Asset, ffmpegPath string) (*Clip, error) {
	if asset.Path() == "" {
		return nil, fmt.Errorf("%w: video asset requires a file path", ErrDecode)
	}
	cmd := exec.CommandContext(ctx, ffmpegPath,
		"-i", asset.Path(),
		"-vn",
		"-acodec", "pcm_s16le",
		"-f", "wav",
		"pipe:1",
	)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w: ffmpeg audio extraction: %w", ErrDecode, err)
	}
	if out.Len() == 0 {
		return nil, ErrEmptyStream
	}
	return decodeWAV(out.Bytes())
}
