package executor

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/Cyclone1070/conanws/internal/config"
)

// Result represents the outcome of a command execution.
type Result struct {
	Stdout    string
	Stderr    string
	ExitCode  int
	Truncated bool
	Duration  time.Duration
}

// Options controls how a command is run.
type Options struct {
	Dir string
	Env []string
	// Timeout of zero means the command only stops with ctx.
	Timeout time.Duration
	// Stdout and Stderr, when set, receive output as it is produced
	// in addition to the collected Result.
	Stdout io.Writer
	Stderr io.Writer
}

// OSCommandExecutor implements command execution using os/exec for real system commands.
type OSCommandExecutor struct {
	config *config.Config
}

// NewOSCommandExecutor creates a new OSCommandExecutor with injected config.
func NewOSCommandExecutor(cfg *config.Config) *OSCommandExecutor {
	if cfg == nil {
		panic("cfg is required")
	}
	return &OSCommandExecutor{config: cfg}
}

// Run executes a command and returns the result.
// On timeout the process is interrupted, then killed after the configured grace period.
// A non-zero exit is reported both in Result.ExitCode and as a non-nil error.
func (f *OSCommandExecutor) Run(ctx context.Context, command []string, opts Options) (*Result, error) {
	if len(command) == 0 {
		return nil, os.ErrInvalid
	}

	maxBytes := int(f.config.Executor.MaxOutputSize)
	grace := time.Duration(f.config.Executor.GracefulShutdownMs) * time.Millisecond
	stdoutCollector := newCollector(maxBytes, binarySampleSize)
	stderrCollector := newCollector(maxBytes, binarySampleSize)

	// We don't use CommandContext here because we want to handle graceful shutdown
	cmd := exec.Command(command[0], command[1:]...)
	cmd.Dir = opts.Dir
	cmd.Env = opts.Env
	cmd.Stdin = nil
	cmd.Stdout = teeTo(stdoutCollector, opts.Stdout)
	cmd.Stderr = teeTo(stderrCollector, opts.Stderr)
	// Bounds how long Wait keeps copying after the process is gone, e.g. when
	// an orphaned grandchild still holds the output pipe.
	cmd.WaitDelay = grace

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return nil, &CommandError{Cmd: command[0], Cause: err, Stage: "start"}
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	var timeoutC <-chan time.Time
	if opts.Timeout > 0 {
		timer := time.NewTimer(opts.Timeout)
		defer timer.Stop()
		timeoutC = timer.C
	}

	var execErr error
	select {
	case err := <-done:
		if !errors.Is(err, exec.ErrWaitDelay) {
			execErr = err
		}
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		<-done
		execErr = ctx.Err()
	case <-timeoutC:
		// Try graceful shutdown
		_ = cmd.Process.Signal(os.Interrupt)
		select {
		case <-done:
		case <-time.After(grace):
			_ = cmd.Process.Kill()
			<-done
		}
		execErr = ErrTimeout
	}

	stdoutStr, stderrStr := stdoutCollector.String(), stderrCollector.String()
	truncated := stdoutCollector.Truncated() || stderrCollector.Truncated()

	exitCode := 0
	if execErr != nil {
		exitCode = f.getExitCode(execErr)
		if errors.Is(execErr, ErrTimeout) {
			exitCode = -1
		}
	}

	return &Result{
		Stdout:    stdoutStr,
		Stderr:    stderrStr,
		ExitCode:  exitCode,
		Truncated: truncated,
		Duration:  time.Since(start),
	}, execErr
}

func teeTo(c *collector, tee io.Writer) io.Writer {
	if tee == nil {
		return c
	}
	return io.MultiWriter(c, tee)
}

func (f *OSCommandExecutor) getExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ec interface{ ExitCode() int }
	if errors.As(err, &ec) {
		return ec.ExitCode()
	}
	return -1
}
