// Package system reads and installs the user's crontab.
package system

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Crontab is the storage the crontab text lives in.
type Crontab interface {
	// Read returns the current crontab text. A user without a crontab has
	// an empty one.
	Read(ctx context.Context) (string, error)

	// Write replaces the whole crontab with text.
	Write(ctx context.Context, text string) error
}

// Compile-time interface checks.
var (
	_ Crontab = (*CommandCrontab)(nil)
	_ Crontab = (*FileCrontab)(nil)
)

// DefaultBinary is the crontab program used when none is configured.
const DefaultBinary = "crontab"

// CommandCrontab talks to cron through the crontab(1) program.
type CommandCrontab struct {
	binary string
	user   string
	logger *slog.Logger
}

// NewCommandCrontab returns a Crontab backed by the crontab program. An
// empty binary means DefaultBinary; a non-empty user adds "-u user".
func NewCommandCrontab(binary, user string, logger *slog.Logger) *CommandCrontab {
	if binary == "" {
		binary = DefaultBinary
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CommandCrontab{
		binary: binary,
		user:   user,
		logger: logger.With("component", "crontab", "binary", binary),
	}
}

func (c *CommandCrontab) args(extra ...string) []string {
	var args []string
	if c.user != "" {
		args = append(args, "-u", c.user)
	}
	return append(args, extra...)
}

// Read implements Crontab using "crontab -l".
func (c *CommandCrontab) Read(ctx context.Context) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.binary, c.args("-l")...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 &&
			strings.Contains(strings.ToLower(stderr.String()), "no crontab") {
			c.logger.Debug("no crontab installed yet")
			return "", nil
		}
		return "", fmt.Errorf("system: crontab -l: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// Write implements Crontab using "crontab -" with text on stdin.
func (c *CommandCrontab) Write(ctx context.Context, text string) error {
	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, c.binary, c.args("-")...)
	cmd.Stdin = strings.NewReader(withTrailingNewline(text))
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("system: crontab -: %w: %s", err, strings.TrimSpace(out.String()))
	}
	c.logger.Debug("crontab installed", "bytes", len(text))
	return nil
}

// FileCrontab keeps the crontab in a plain file. It is used for development,
// sandboxes and containers without a cron daemon.
type FileCrontab struct {
	path string
}

// NewFileCrontab returns a Crontab stored at path.
func NewFileCrontab(path string) *FileCrontab {
	return &FileCrontab{path: path}
}

// Path returns the backing file.
func (f *FileCrontab) Path() string { return f.path }

// Read implements Crontab. A missing file is an empty crontab.
func (f *FileCrontab) Read(_ context.Context) (string, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("system: read %s: %w", f.path, err)
	}
	return string(data), nil
}

// Write implements Crontab. The file is replaced atomically.
func (f *FileCrontab) Write(_ context.Context, text string) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("system: create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".crontab-*")
	if err != nil {
		return fmt.Errorf("system: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.WriteString(withTrailingNewline(text)); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("system: write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("system: close %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return fmt.Errorf("system: chmod %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("system: rename to %s: %w", f.path, err)
	}
	return nil
}

// withTrailingNewline appends the final newline cron requires. Empty text
// stays empty.
func withTrailingNewline(text string) string {
	if text == "" || strings.HasSuffix(text, "\n") {
		return text
	}
	return text + "\n"
}
