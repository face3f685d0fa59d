package main

import (
	"errors"
	"fmt"

	"github.com/Cyclone1070/conanws/internal/command"
	"github.com/Cyclone1070/conanws/internal/overlay"
	"github.com/Cyclone1070/conanws/internal/tool/service/git"
	"github.com/Cyclone1070/conanws/internal/tool/service/path"
	"github.com/Cyclone1070/conanws/internal/ui"
	"github.com/Cyclone1070/conanws/internal/workspace"
	"github.com/spf13/cobra"
)

const showWidth = 100

func newEnvCmd(deps *Dependencies, flags *globalFlags) *cobra.Command {
	envCmd := &cobra.Command{
		Use:   "env",
		Short: "Manage the Conan build and run environments",
	}

	var name string
	activateCmd := &cobra.Command{
		Use:   "activate <build|run> [-- conan install args...]",
		Short: "Capture a Conan environment and make it active",
		Long: `Capture the environment Conan's virtual build or run environment would set
and make it the active environment of the workspace. The previously active
environment, if any, is replaced.

Arguments after -- are passed to 'conan install'. Without them the arguments
come from an "install" entry of the workspace settings.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := overlay.ParseKind(args[0])
			if err != nil {
				return err
			}
			a, err := newApp(deps, flags)
			if err != nil {
				return err
			}
			return a.activate(cmd, kind, name, args[1:])
		},
	}
	activateCmd.Flags().StringVarP(&name, "name", "n", "", "Install entry providing the conan arguments")

	restoreCmd := &cobra.Command{
		Use:   "restore",
		Short: "Restore the environment from before the first activation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(deps, flags)
			if err != nil {
				return err
			}
			return a.restore(cmd)
		},
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the active environment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(deps, flags)
			if err != nil {
				return err
			}
			return a.show()
		},
	}

	execCmd := &cobra.Command{
		Use:   "exec -- <command> [args...]",
		Short: "Run a command with the active environment",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(deps, flags)
			if err != nil {
				return err
			}
			return a.exec(cmd, args)
		},
	}

	shellCmd := &cobra.Command{
		Use:   "shell",
		Short: "Start a shell with the active environment",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(deps, flags)
			if err != nil {
				return err
			}
			return a.exec(cmd, []string{deps.Shell()})
		},
	}

	envCmd.AddCommand(activateCmd, restoreCmd, showCmd, execCmd, shellCmd)
	return envCmd
}

func (a *app) activate(cmd *cobra.Command, kind overlay.Kind, name string, conanArgs []string) error {
	ctx := cmd.Context()

	if len(conanArgs) == 0 {
		args, err := a.installArgs(cmd, name)
		if err != nil {
			return err
		}
		conanArgs = args
	}

	m, err := a.manager()
	if err != nil {
		return err
	}
	marker, err := m.Activate(ctx, kind, overlay.ExtractRequest{
		Interpreter: a.deps.Config.Conan.PythonInterpreter,
		Args:        conanArgs,
		WorkingDir:  a.root,
	})
	if err != nil {
		return err
	}
	printSuccess(a.deps.Stderr, "activated conan %s environment (%d variables)", marker.Kind, len(marker.Overlay))
	a.checkMirrorIgnored()
	return nil
}

// installArgs derives conan install arguments from an install entry. The
// install folder is dropped because extraction installs into its own folder.
// Without settings the workspace root is used as the recipe.
func (a *app) installArgs(cmd *cobra.Command, name string) ([]string, error) {
	settings, err := a.settings()
	var missing *workspace.ConfigurationMissingError
	if errors.As(err, &missing) {
		return []string{a.root}, nil
	}
	if err != nil {
		return nil, err
	}

	entry, err := settings.Select(cmd.Context(), command.KindInstall, name, a.deps.Chooser)
	var noEntries *workspace.NoEntriesError
	if errors.As(err, &noEntries) {
		return []string{a.root}, nil
	}
	if err != nil {
		return nil, err
	}
	entry.InstallFolder = ""
	line, ok := command.Build(command.KindInstall, a.root, entry)
	if !ok {
		return nil, &command.MissingRequiredFieldError{Kind: command.KindInstall, Entry: entry.Name, Field: "conanFile"}
	}
	return line.Tokens()[1:], nil
}

// checkMirrorIgnored warns when the mirror file would be committed.
func (a *app) checkMirrorIgnored() {
	if !a.deps.Config.Env.MirrorEnabled {
		return
	}
	rel, err := path.NewResolver(a.root).Rel(a.deps.Config.Env.MirrorFile)
	if err != nil || rel == "" {
		return
	}
	matcher, err := git.NewIgnoreMatcher(a.deps.Fs, a.root)
	if err != nil {
		printWarning(a.deps.Stderr, "could not check whether %s is ignored: %v", rel, err)
		return
	}
	if !matcher.ShouldIgnore(rel) {
		printWarning(a.deps.Stderr, "%s is not ignored by git; add it to .gitignore", rel)
	}
}

func (a *app) restore(cmd *cobra.Command) error {
	m, err := a.manager()
	if err != nil {
		return err
	}
	_, active, err := m.Current()
	if err != nil {
		return err
	}
	if !active {
		printInfo(a.deps.Stderr, "no conan environment is active")
		return nil
	}
	if err := m.Restore(cmd.Context()); err != nil {
		return err
	}
	printSuccess(a.deps.Stderr, "restored the environment")
	return nil
}

func (a *app) show() error {
	m, err := a.manager()
	if err != nil {
		return err
	}
	marker, active, err := m.Current()
	if err != nil {
		return err
	}
	mirror, err := a.mirror()
	if err != nil {
		return err
	}
	mirrorPath := ""
	if a.deps.Config.Env.MirrorEnabled {
		mirrorPath = mirror.Path()
	}
	out, err := ui.RenderEnvironment(a.deps.Renderer, marker, active, mirrorPath, showWidth)
	if err != nil {
		return fmt.Errorf("failed to render environment: %w", err)
	}
	fmt.Fprint(a.deps.Stdout, out)

	var want overlay.Overlay
	if active {
		want = marker.Overlay
	}
	inSync, err := mirror.InSync(want)
	switch {
	case err != nil:
		printWarning(a.deps.Stderr, "cannot read %s: %v", mirror.Path(), err)
	case !inSync && active:
		printWarning(a.deps.Stderr, "%s does not match the active environment; run 'conanws env activate %s' again", mirror.Path(), marker.Kind)
	case !inSync:
		printWarning(a.deps.Stderr, "%s holds variables but no conan environment is active", mirror.Path())
	}
	return nil
}

// exec runs argv attached to the terminal with the active environment layered
// over the current one.
func (a *app) exec(cmd *cobra.Command, argv []string) error {
	m, err := a.manager()
	if err != nil {
		return err
	}
	env := overlay.NewMapEnvironment(a.deps.Env.Environ())
	if err := m.Reapply(env); err != nil {
		if !errors.Is(err, overlay.ErrNotActive) {
			return err
		}
		printWarning(a.deps.Stderr, "no conan environment is active")
	}

	code, err := a.deps.Interactive(cmd.Context(), argv, a.root, env.Environ())
	if err != nil {
		return err
	}
	if code != 0 {
		return &exitError{code: code}
	}
	return nil
}
