package rotation

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
)

// DefaultBinary is the scanner executable invoked for each scan.
const DefaultBinary = "wpscan"

// CommandRunner abstracts subprocess invocation so tests can capture the
// composed command line instead of spawning a scanner.
type CommandRunner interface {
	Run(ctx context.Context, name string, args []string, stdout, stderr io.Writer) error
}

// ExecRunner runs commands with os/exec, inheriting the parent environment.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args []string, stdout, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd.Run()
}

// ScanRunner invokes the scanner binary with a rotated account's API token
// appended to the caller's arguments.
type ScanRunner struct {
	// Binary is the scanner executable. Defaults to DefaultBinary.
	Binary string

	Rotator *Rotator

	// Runner defaults to ExecRunner.
	Runner CommandRunner

	// Log defaults to slog.Default().
	Log *slog.Logger

	// Stdout and Stderr receive the scanner's output. Default to the
	// process's own streams.
	Stdout io.Writer
	Stderr io.Writer
}

// Run selects the next account in rotation and executes one scan with its
// API token. The token is passed only on the subprocess command line, never
// logged.
func (s *ScanRunner) Run(ctx context.Context, args []string) error {
	account, index, err := s.Rotator.SelectNext(ctx)
	if err != nil {
		return err
	}

	binary := s.Binary
	if binary == "" {
		binary = DefaultBinary
	}
	runner := s.Runner
	if runner == nil {
		runner = ExecRunner{}
	}
	stdout := s.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	stderr := s.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	logger := s.Log
	if logger == nil {
		logger = slog.Default()
	}

	full := append(append([]string{}, args...), "--api-token", account.APIToken)

	logger.Info("Running scan",
		slog.String("binary", binary),
		slog.String("account", account.Email),
		slog.Int("rotationIndex", index))

	if err := runner.Run(ctx, binary, full, stdout, stderr); err != nil {
		return fmt.Errorf("scanner invocation failed: %w", err)
	}

	return nil
}
