package landmark

import (
	"bufio"
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"os/exec"
	"sync"

	"github.com/goccy/go-json"
)

// CommandDetector drives an external landmarker process over a line protocol:
// one PNG-encoded frame in, one JSON line out. This keeps the heavyweight
// face-mesh model out of the Go process while preserving the per-analysis
// ownership model: each CommandDetector owns exactly one child process.
type CommandDetector struct {
	mu   sync.Mutex
	cmd  *exec.Cmd
	in   io.WriteCloser
	out  *bufio.Reader
}

type commandResponse struct {
	Face   bool    `json:"face"`
	Points []Point `json:"points"`
}

// NewCommandDetector starts the landmarker binary. The caller must Close it
// when the analysis is done.
func NewCommandDetector(ctx context.Context, binary string, args ...string) (*CommandDetector, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	in, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("landmarker stdin: %w", err)
	}
	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("landmarker stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start landmarker: %w", err)
	}
	return &CommandDetector{cmd: cmd, in: in, out: bufio.NewReader(out)}, nil
}

// Detect sends one frame and reads one response line.
func (d *CommandDetector) Detect(ctx context.Context, frame *image.Gray) (Set, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if err := png.Encode(d.in, frame); err != nil {
		return nil, false, fmt.Errorf("encode frame: %w", err)
	}
	line, err := d.out.ReadBytes('\n')
	if err != nil {
		return nil, false, fmt.Errorf("read landmarker response: %w", err)
	}
	var resp commandResponse
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, false, fmt.Errorf("decode landmarker response: %w", err)
	}
	if !resp.Face {
		return nil, false, nil
	}
	return Set(resp.Points), true, nil
}

// Close terminates the landmarker process.
func (d *CommandDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	_ = d.in.Close()
	if err := d.cmd.Wait(); err != nil {
		return fmt.Errorf("landmarker exit: %w", err)
	}
	return nil
}
