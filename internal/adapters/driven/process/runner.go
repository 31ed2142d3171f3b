package process

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/custodia-labs/lidarqc/internal/core/domain"
	"github.com/custodia-labs/lidarqc/internal/logger"
)

// Command is one subprocess invocation.
type Command struct {
	// Path is the binary name or path.
	Path string
	Args []string

	// Operation labels the call in errors, e.g. "pipeline" or "calc".
	Operation string
}

// Result holds captured output of a successful command.
type Result struct {
	Stdout []byte
	Stderr []byte
}

// Runner executes commands. It enables unit testing without real engines.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*Result, error)
}

// Ensure ExecRunner implements the interface.
var _ Runner = (*ExecRunner)(nil)

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	// WaitDelay bounds how long to wait for output pipes after the
	// process is killed on timeout.
	WaitDelay time.Duration
}

// NewExecRunner creates a runner with a short pipe drain delay.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{WaitDelay: 2 * time.Second}
}

// Run starts the command and blocks until it exits or ctx expires.
func (r *ExecRunner) Run(ctx context.Context, c Command) (*Result, error) {
	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.WaitDelay = r.WaitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.Debug("exec: %s %v", c.Path, c.Args)
	start := time.Now()
	err := cmd.Run()
	logger.Debug("exec: %s finished in %s", filepath.Base(c.Path), time.Since(start).Round(time.Millisecond))

	if err == nil {
		return &Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}, nil
	}

	engineErr := &domain.EngineError{
		Engine:    filepath.Base(c.Path),
		Operation: c.Operation,
		Stderr:    stderr.String(),
	}
	var exitErr *exec.ExitError
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		engineErr.TimedOut = true
		engineErr.Err = ctx.Err()
	case errors.As(err, &exitErr):
		engineErr.ExitCode = exitErr.ExitCode()
	case errors.Is(err, exec.ErrNotFound):
		engineErr.Err = errors.Join(domain.ErrEngineUnavailable, err)
	default:
		engineErr.Err = err
	}
	return nil, engineErr
}

// Available reports whether a binary can be found on PATH.
func Available(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
