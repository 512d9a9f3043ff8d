// Package logtail follows job log files by polling, the way `tail -F` does:
// it survives the file not existing yet, being truncated or being replaced.
package logtail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"
)

const (
	defaultPollInterval = 500 * time.Millisecond
	chunkSize           = 8 << 10
	maxLine             = 64 << 10
)

// Config configures a Follower.
type Config struct {
	// Path is the log file to follow.
	Path string

	// PollInterval is how often the file is checked for new data.
	// Defaults to 500ms if zero.
	PollInterval time.Duration

	// Backlog is how many existing lines are emitted before following.
	Backlog int
}

func (c Config) pollIntervalOrDefault() time.Duration {
	if c.PollInterval > 0 {
		return c.PollInterval
	}
	return defaultPollInterval
}

// Follower emits lines appended to a file.
type Follower struct {
	cfg Config

	offset  int64
	partial []byte
}

// New creates a Follower.
func New(cfg Config) *Follower {
	return &Follower{cfg: cfg}
}

// Follow emits the backlog, then every complete line appended to the file,
// until ctx is done or emit returns an error. A missing file is waited for.
// When the file shrinks it is assumed to have been truncated or rotated and
// is read again from the start.
func (f *Follower) Follow(ctx context.Context, emit func(line string) error) error {
	if err := f.start(emit); err != nil {
		return err
	}

	ticker := time.NewTicker(f.cfg.pollIntervalOrDefault())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := f.poll(emit); err != nil {
				return err
			}
		}
	}
}

// start emits the backlog and positions the follower at the end of file.
func (f *Follower) start(emit func(string) error) error {
	info, err := os.Stat(f.cfg.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("logtail: %w", err)
	}

	if f.cfg.Backlog > 0 {
		lines, err := Tail(f.cfg.Path, f.cfg.Backlog)
		if err != nil {
			return err
		}
		for _, l := range lines {
			if err := emit(l); err != nil {
				return err
			}
		}
	}
	f.offset = info.Size()
	return nil
}

func (f *Follower) poll(emit func(string) error) error {
	file, err := os.Open(f.cfg.Path)
	if errors.Is(err, fs.ErrNotExist) {
		// Rotated away; the next file starts from zero.
		f.offset, f.partial = 0, nil
		return nil
	}
	if err != nil {
		return fmt.Errorf("logtail: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("logtail: %w", err)
	}
	if info.Size() < f.offset {
		f.offset, f.partial = 0, nil
	}
	if info.Size() == f.offset {
		return nil
	}

	if _, err := file.Seek(f.offset, io.SeekStart); err != nil {
		return fmt.Errorf("logtail: %w", err)
	}
	data, err := io.ReadAll(io.LimitReader(file, info.Size()-f.offset))
	if err != nil {
		return fmt.Errorf("logtail: %w", err)
	}
	f.offset += int64(len(data))

	buf := append(f.partial, data...)
	for {
		i := bytes.IndexByte(buf, '\n')
		if i < 0 {
			break
		}
		if err := emit(string(bytes.TrimSuffix(buf[:i], []byte("\r")))); err != nil {
			return err
		}
		buf = buf[i+1:]
	}

	// Keep an unterminated line for the next poll, unless it grows absurd.
	if len(buf) > maxLine {
		if err := emit(string(buf)); err != nil {
			return err
		}
		buf = nil
	}
	f.partial = bytes.Clone(buf)
	return nil
}

// Tail returns the last n lines of the file at path. A missing file has no
// lines.
func Tail(path string, n int) ([]string, error) {
	if n <= 0 {
		return nil, nil
	}
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("logtail: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("logtail: %w", err)
	}

	// Read backwards one chunk at a time until n+1 newlines are in hand.
	var (
		data []byte
		pos  = info.Size()
	)
	for pos > 0 && bytes.Count(data, []byte("\n")) <= n {
		size := min(int64(chunkSize), pos)
		pos -= size
		chunk := make([]byte, size)
		if _, err := file.ReadAt(chunk, pos); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("logtail: %w", err)
		}
		data = append(chunk, data...)
	}

	text := string(bytes.TrimSuffix(data, []byte("\n")))
	if text == "" {
		return nil, nil
	}
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines, nil
}
