// Package main provides the conanws command-line interface.
// It runs configured Conan commands for a workspace and manages the Conan
// build and run environments of shells started through it.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/Cyclone1070/conanws/internal/config"
	"github.com/Cyclone1070/conanws/internal/overlay"
	"github.com/Cyclone1070/conanws/internal/tool/service/executor"
	"github.com/Cyclone1070/conanws/internal/tool/service/path"
	"github.com/Cyclone1070/conanws/internal/ui"
	"github.com/Cyclone1070/conanws/internal/workspace"
	"github.com/spf13/afero"
)

// CommandRunner runs a command to completion, collecting its output.
type CommandRunner interface {
	Run(ctx context.Context, command []string, opts executor.Options) (*executor.Result, error)
}

// InteractiveFunc runs argv attached to the terminal and returns its exit code.
type InteractiveFunc func(ctx context.Context, argv []string, dir string, env []string) (int, error)

// Dependencies holds the components required to run the application.
type Dependencies struct {
	Config      *config.Config
	StateDir    string
	Fs          afero.Fs
	Env         overlay.EnvironmentPort
	Exec        CommandRunner
	Interactive InteractiveFunc
	Chooser     workspace.Chooser
	Renderer    ui.MarkdownRenderer
	Getwd       func() (string, error)
	Shell       func() string

	Stdout io.Writer
	Stderr io.Writer
}

// exitError carries a child process exit code up to main.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func createRealDependencies() Dependencies {
	// Load configuration (from defaults + ~/.config/conanws/config.json)
	loader := config.NewLoader()
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
		fmt.Fprintf(os.Stderr, "Using default configuration.\n")
		cfg = config.DefaultConfig()
	}

	stateDir, err := loader.StateDir(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to resolve state directory: %v\n", err)
		stateDir = os.TempDir()
	}

	return Dependencies{
		Config:      cfg,
		StateDir:    stateDir,
		Fs:          afero.NewOsFs(),
		Env:         overlay.OSEnvironment{},
		Exec:        executor.NewOSCommandExecutor(cfg),
		Interactive: runInteractive,
		Chooser:     ui.NewChooser(os.Stdin, os.Stderr),
		Renderer:    ui.NewGlamourRenderer(""),
		Getwd:       canonicalWd,
		Shell:       userShell,
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
	}
}

func canonicalWd() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return path.CanonicaliseRoot(wd)
}

func userShell() string {
	if sh := os.Getenv("SHELL"); sh != "" {
		return sh
	}
	if os.Getenv("COMSPEC") != "" {
		return os.Getenv("COMSPEC")
	}
	return "/bin/sh"
}

// runInteractive attaches the child to the terminal. The child is not tied
// to ctx: an interrupt typed in the terminal reaches it directly, and main
// keeps waiting because it has SIGINT routed to its context.
func runInteractive(_ context.Context, argv []string, dir string, env []string) (int, error) {
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Env = env
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err := cmd.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	if err != nil {
		return -1, err
	}
	return 0, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps := createRealDependencies()
	root := newRootCmd(&deps)

	if err := root.ExecuteContext(ctx); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.code)
		}
		printError(deps.Stderr, err)
		os.Exit(1)
	}
}
