// Package conan runs Conan command lines inside a workspace.
package conan

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/Cyclone1070/conanws/internal/command"
	"github.com/Cyclone1070/conanws/internal/config"
	"github.com/Cyclone1070/conanws/internal/logging"
	"github.com/Cyclone1070/conanws/internal/overlay"
	"github.com/Cyclone1070/conanws/internal/tool/service/executor"
	"github.com/rs/zerolog"
)

// CommandRunner runs a command to completion.
type CommandRunner interface {
	Run(ctx context.Context, command []string, opts executor.Options) (*executor.Result, error)
}

// OverlaySource layers the active environment overlay onto an environment.
// It returns overlay.ErrNotActive when there is nothing to layer.
type OverlaySource interface {
	Reapply(env overlay.EnvironmentPort) error
}

// Output receives command output as it is produced. Either field may be nil.
type Output struct {
	Stdout io.Writer
	Stderr io.Writer
}

// Runner executes Conan command lines.
type Runner struct {
	exec    CommandRunner
	overlay OverlaySource
	program string
	timeout time.Duration
	environ func() []string
	log     zerolog.Logger
}

// NewRunner creates a Runner. overlaySource may be nil, in which case
// commands inherit the process environment unchanged.
func NewRunner(exec CommandRunner, overlaySource OverlaySource, cfg *config.Config) *Runner {
	if exec == nil {
		panic("exec is required")
	}
	if cfg == nil {
		panic("cfg is required")
	}
	return &Runner{
		exec:    exec,
		overlay: overlaySource,
		program: cfg.Conan.Program,
		timeout: time.Duration(cfg.Conan.CommandTimeoutSeconds) * time.Second,
		environ: os.Environ,
		log:     logging.With("conan"),
	}
}

// Run executes line in workspaceRoot with the active overlay applied.
// Every output line is logged; out additionally receives the raw stream.
// A non-zero exit returns the result together with a *CommandFailedError;
// a timeout or cancellation returns its error unwrapped.
func (r *Runner) Run(ctx context.Context, workspaceRoot string, line command.CommandLine, out Output) (*executor.Result, error) {
	env, err := r.Environment()
	if err != nil {
		return nil, err
	}

	stdoutLog := logging.NewLineWriter(r.log, logging.DebugLevel, "stdout")
	stderrLog := logging.NewLineWriter(r.log, logging.DebugLevel, "stderr")
	defer stdoutLog.Flush()
	defer stderrLog.Flush()

	argv := line.Argv(r.program)
	r.log.Info().Str("command", line.String()).Str("dir", workspaceRoot).Msg("running conan")

	res, err := r.exec.Run(ctx, argv, executor.Options{
		Dir:     workspaceRoot,
		Env:     env,
		Timeout: r.timeout,
		Stdout:  join(stdoutLog, out.Stdout),
		Stderr:  join(stderrLog, out.Stderr),
	})
	if err != nil {
		var cmdErr *executor.CommandError
		if errors.As(err, &cmdErr) || res == nil || interrupted(err) {
			return res, err
		}
		return res, &CommandFailedError{Command: line.String(), ExitCode: res.ExitCode, Cause: err}
	}

	r.log.Info().Dur("duration", res.Duration).Msg("conan finished")
	return res, nil
}

// Environment returns the process environment with the active overlay
// layered on top.
func (r *Runner) Environment() ([]string, error) {
	env := overlay.NewMapEnvironment(r.environ())
	if r.overlay == nil {
		return env.Environ(), nil
	}
	if err := r.overlay.Reapply(env); err != nil && !errors.Is(err, overlay.ErrNotActive) {
		return nil, err
	}
	return env.Environ(), nil
}

func interrupted(err error) bool {
	return errors.Is(err, executor.ErrTimeout) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

func join(sink io.Writer, extra io.Writer) io.Writer {
	if extra == nil {
		return sink
	}
	return io.MultiWriter(sink, extra)
}
