package extract

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/veridianlabs/veridian/internal/domain/landmark"
	"github.com/veridianlabs/veridian/internal/domain/media"
)

// VideoOptions locate the external decode tools.
type VideoOptions struct {
	FFmpegPath  string
	FFprobePath string
}

func (o VideoOptions) ffmpeg() string {
	if o.FFmpegPath != "" {
		return o.FFmpegPath
	}
	return "ffmpeg"
}

func (o VideoOptions) ffprobe() string {
	if o.FFprobePath != "" {
		return o.FFprobePath
	}
	return "ffprobe"
}

// VideoInfo is the probed geometry of a video stream.
type VideoInfo struct {
	Width    int
	Height   int
	FPS      float64
	Duration time.Duration
}

type probeOutput struct {
	Streams []struct {
		Width      int    `json:"width"`
		Height     int    `json:"height"`
		RFrameRate string `json:"r_frame_rate"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// ProbeVideo inspects a video file with ffprobe.
func ProbeVideo(ctx context.Context, path string, opts VideoOptions) (VideoInfo, error) {
	cmd := exec.CommandContext(ctx, opts.ffprobe(),
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,r_frame_rate",
		"-show_entries", "format=duration",
		"-of", "json",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return VideoInfo{}, fmt.Errorf("%w: ffprobe: %w", ErrDecode, err)
	}
	var probe probeOutput
	if err := json.Unmarshal(out, &probe); err != nil {
		return VideoInfo{}, fmt.Errorf("%w: ffprobe output: %w", ErrDecode, err)
	}
	if len(probe.Streams) == 0 {
		return VideoInfo{}, fmt.Errorf("%w: no video stream", ErrDecode)
	}
	s := probe.Streams[0]
	if s.Width <= 0 || s.Height <= 0 {
		return VideoInfo{}, fmt.Errorf("%w: invalid frame geometry", ErrDecode)
	}
	info := VideoInfo{Width: s.Width, Height: s.Height, FPS: parseRate(s.RFrameRate)}
	if d, err := strconv.ParseFloat(probe.Format.Duration, 64); err == nil {
		info.Duration = time.Duration(d * float64(time.Second))
	}
	return info, nil
}

// parseRate parses an ffprobe rational like "30000/1001".
func parseRate(r string) float64 {
	parts := strings.SplitN(r, "/", 2)
	num, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0
	}
	if len(parts) == 1 {
		return num
	}
	den, err := strconv.ParseFloat(parts[1], 64)
	if err != nil || den == 0 {
		return 0
	}
	return num / den
}

// videoStream streams grayscale frames from an ffmpeg rawvideo pipe and runs
// the injected landmark detector on each one. Frames are produced lazily;
// the full stream is never buffered.
type videoStream struct {
	cmd      *exec.Cmd
	stdout   io.ReadCloser
	reader   *bufio.Reader
	info     VideoInfo
	detector landmark.Detector
	index    int
	frame    []byte
	done     bool
}

// Video opens a frame stream over a video asset. The landmark detector is
// owned by the caller and used for the duration of this stream only.
func Video(ctx context.Context, asset *media.Asset, det landmark.Detector, opts VideoOptions) (FrameSource, VideoInfo, error) {
	if asset.Path() == "" {
		return nil, VideoInfo{}, fmt.Errorf("%w: video asset requires a file path", ErrDecode)
	}
	info, err := ProbeVideo(ctx, asset.Path(), opts)
	if err != nil {
		return nil, VideoInfo{}, err
	}

	cmd := exec.CommandContext(ctx, opts.ffmpeg(),
		"-i", asset.Path(),
		"-f", "rawvideo",
		"-pix_fmt", "gray",
		"pipe:1",
	)
	cmd.Stderr = &bytes.Buffer{}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, VideoInfo{}, fmt.Errorf("%w: ffmpeg stdout: %w", ErrDecode, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, VideoInfo{}, fmt.Errorf("%w: start ffmpeg: %w", ErrDecode, err)
	}

	return &videoStream{
		cmd:      cmd,
		stdout:   stdout,
		reader:   bufio.NewReaderSize(stdout, info.Width*info.Height),
		info:     info,
		detector: det,
		frame:    make([]byte, info.Width*info.Height),
	}, info, nil
}

// Next returns the next frame or io.EOF once the stream is drained.
func (v *videoStream) Next(ctx context.Context) (*Frame, error) {
	if v.done {
		return nil, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if _, err := io.ReadFull(v.reader, v.frame); err != nil {
		v.done = true
		_ = v.cmd.Wait()
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			if v.index == 0 {
				return nil, ErrEmptyStream
			}
			return nil, io.EOF
		}
		return nil, fmt.Errorf("%w: read frame: %w", ErrDecode, err)
	}

	gray := &image.Gray{
		Pix:    append([]byte(nil), v.frame...),
		Stride: v.info.Width,
		Rect:   image.Rect(0, 0, v.info.Width, v.info.Height),
	}

	frame := &Frame{
		Index:     v.index,
		Timestamp: v.timestamp(v.index),
		Gray:      gray,
	}
	v.index++

	if v.detector != nil {
		set, found, err := v.detector.Detect(ctx, gray)
		if err != nil {
			return nil, fmt.Errorf("landmark detection: %w", err)
		}
		frame.Landmarks = set
		frame.FaceFound = found
	}
	return frame, nil
}

func (v *videoStream) timestamp(index int) time.Duration {
	if v.info.FPS <= 0 {
		return 0
	}
	return time.Duration(float64(index) / v.info.FPS * float64(time.Second))
}

// Close releases the decode pipeline even when the stream was abandoned
// mid-way.
func (v *videoStream) Close() error {
	if v.done {
		return nil
	}
	v.done = true
	_ = v.stdout.Close()
	if v.cmd.Process != nil {
		_ = v.cmd.Process.Kill()
	}
	_ = v.cmd.Wait()
	return nil
}
