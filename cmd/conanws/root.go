package main

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/Cyclone1070/conanws/internal/conan"
	"github.com/Cyclone1070/conanws/internal/logging"
	"github.com/Cyclone1070/conanws/internal/overlay"
	"github.com/Cyclone1070/conanws/internal/overlay/extract"
	"github.com/Cyclone1070/conanws/internal/tool/service/path"
	"github.com/Cyclone1070/conanws/internal/workspace"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// Version information set at build time
var Version = "0.1.0"

// globalFlags are shared by every command.
type globalFlags struct {
	workspace string
	logLevel  string
	pretty    bool
}

func newRootCmd(deps *Dependencies) *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "conanws",
		Short: "Run Conan commands and environments for a workspace",
		Long: `conanws runs the Conan commands configured in .vscode/conan-settings.json
and manages the Conan build and run environments of the workspace.

Run 'conanws init' to create a settings file with one entry per command.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := deps.Config.Log.Level
			if flags.logLevel != "" {
				level = flags.logLevel
			}
			pretty := deps.Config.Log.Pretty
			if cmd.Flags().Changed("pretty") {
				pretty = flags.pretty
			}
			logging.Init(logging.Config{
				Level:  logging.ParseLevel(level),
				Output: deps.Stderr,
				Pretty: pretty,
			})
		},
	}

	rootCmd.PersistentFlags().StringVarP(&flags.workspace, "workspace", "w", "", "Workspace root (default: current directory)")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "Log level (DEBUG|INFO|WARN|ERROR)")
	rootCmd.PersistentFlags().BoolVar(&flags.pretty, "pretty", true, "Human-readable log output")

	rootCmd.SetOut(deps.Stdout)
	rootCmd.SetErr(deps.Stderr)

	for _, cmd := range newBuildCmds(deps, flags) {
		rootCmd.AddCommand(cmd)
	}
	rootCmd.AddCommand(newEnvCmd(deps, flags))
	rootCmd.AddCommand(newInitCmd(deps, flags))
	return rootCmd
}

// app is the per-invocation wiring for one workspace.
type app struct {
	deps *Dependencies
	root string
}

func newApp(deps *Dependencies, flags *globalFlags) (*app, error) {
	dir := flags.workspace
	if dir != "" && !filepath.IsAbs(dir) {
		wd, err := deps.Getwd()
		if err != nil {
			return nil, workspace.ErrNoWorkspace
		}
		dir = filepath.Join(wd, dir)
	}
	root, err := workspace.Root(dir, deps.Getwd)
	if err != nil {
		return nil, err
	}
	return &app{deps: deps, root: filepath.Clean(root)}, nil
}

func (a *app) settings() (*workspace.Settings, error) {
	return workspace.NewLoader(a.deps.Fs).Load(a.root)
}

// mirrorPath returns the mirror file location, which must stay inside the workspace.
func (a *app) mirrorPath() (string, error) {
	return path.NewResolver(a.root).Abs(a.deps.Config.Env.MirrorFile)
}

func (a *app) mirror() (*overlay.Mirror, error) {
	cfg := a.deps.Config
	mirrorPath, err := a.mirrorPath()
	if err != nil {
		return nil, fmt.Errorf("invalid mirror file %q: %w", cfg.Env.MirrorFile, err)
	}
	return overlay.NewMirror(a.deps.Fs, mirrorPath, func() bool { return cfg.Env.MirrorEnabled }), nil
}

func (a *app) manager() (*overlay.Manager, error) {
	mirror, err := a.mirror()
	if err != nil {
		return nil, err
	}
	store := overlay.NewFileStateStore(a.deps.Fs, a.deps.StateDir, a.root)
	extractor := extract.New(a.deps.Exec, a.deps.Config)
	return overlay.NewManager(a.deps.Env, store, extractor, mirror, &cliHost{out: a.deps.Stderr})
}

func (a *app) runner(m *overlay.Manager) *conan.Runner {
	var src conan.OverlaySource
	if m != nil {
		src = m
	}
	return conan.NewRunner(a.deps.Exec, src, a.deps.Config)
}

// -- Output helpers --

func printError(w io.Writer, err error) {
	color.New(color.FgRed, color.Bold).Fprint(w, "Error: ")
	fmt.Fprintln(w, err)
}

func printSuccess(w io.Writer, format string, args ...any) {
	color.New(color.FgGreen).Fprintf(w, format+"\n", args...)
}

func printWarning(w io.Writer, format string, args ...any) {
	color.New(color.FgYellow).Fprintf(w, "Warning: "+format+"\n", args...)
}

func printInfo(w io.Writer, format string, args ...any) {
	color.New(color.FgCyan).Fprintf(w, format+"\n", args...)
}
