package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"video2voice/config"
)

// CommandRunner runs an external tool and returns both output channels.
// It exists so tests can replace os/exec.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

// ExecCommandRunner is the production implementation using os/exec.
type ExecCommandRunner struct{}

func (ExecCommandRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// Runner probes and re-encodes media with ffprobe and ffmpeg.
type Runner struct {
	ffmpegPath  string
	ffprobePath string
	extraArgs   []string
	runner      CommandRunner
}

// Option is a functional option for configuring Runner.
type Option func(*Runner)

// WithCommandRunner sets a custom command runner (for testing).
func WithCommandRunner(cr CommandRunner) Option {
	return func(r *Runner) {
		r.runner = cr
	}
}

// WithBinaries overrides the ffmpeg and ffprobe executables.
func WithBinaries(ffmpegPath, ffprobePath string) Option {
	return func(r *Runner) {
		if ffmpegPath != "" {
			r.ffmpegPath = ffmpegPath
		}
		if ffprobePath != "" {
			r.ffprobePath = ffprobePath
		}
	}
}

// NewRunner builds a Runner from configuration. FF_EXTRA_ARGS is split and
// validated here so a bad value fails at startup rather than per job.
func NewRunner(cfg *config.Config, opts ...Option) (*Runner, error) {
	r := &Runner{
		ffmpegPath:  "ffmpeg",
		ffprobePath: "ffprobe",
		runner:      ExecCommandRunner{},
	}
	if cfg != nil {
		WithBinaries(cfg.FFBin, cfg.FFProbeBin)(r)
		if cfg.FFExtraArgs != "" {
			args, err := SplitCommand(cfg.FFExtraArgs)
			if err != nil {
				return nil, err
			}
			if err := ValidateArgs(args); err != nil {
				return nil, fmt.Errorf("FF_EXTRA_ARGS: %w", err)
			}
			r.extraArgs = args
		}
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// VerifyInstalled checks that both binaries resolve on PATH.
func (r *Runner) VerifyInstalled() error {
	for _, bin := range []string{r.ffmpegPath, r.ffprobePath} {
		if _, err := exec.LookPath(bin); err != nil {
			return fmt.Errorf("binary not found or not in PATH: %s", bin)
		}
	}
	return nil
}
