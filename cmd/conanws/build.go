package main

import (
	"errors"
	"fmt"

	"github.com/Cyclone1070/conanws/internal/command"
	"github.com/Cyclone1070/conanws/internal/conan"
	"github.com/Cyclone1070/conanws/internal/workspace"
	"github.com/spf13/cobra"
)

var buildShort = map[command.Kind]string{
	command.KindCreate:        "Create a package from the workspace recipe",
	command.KindInstall:       "Install the recipe's dependencies",
	command.KindBuild:         "Build the recipe in the workspace",
	command.KindSource:        "Fetch the recipe's sources",
	command.KindPackage:       "Package the build output locally",
	command.KindPackageExport: "Export the locally built package to the cache",
}

func newBuildCmds(deps *Dependencies, flags *globalFlags) []*cobra.Command {
	var cmds []*cobra.Command
	for _, kind := range command.Kinds() {
		cmds = append(cmds, newBuildCmd(deps, flags, kind))
	}
	return cmds
}

func newBuildCmd(deps *Dependencies, flags *globalFlags, kind command.Kind) *cobra.Command {
	var (
		name   string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   string(kind),
		Short: buildShort[kind],
		Long: fmt.Sprintf(`Run 'conan %s' with a %q entry from the workspace settings.

Without --name the entry is chosen interactively when there is more than one.`, kind.Subcommand(), kind.SettingsKey()),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(deps, flags)
			if err != nil {
				return err
			}
			return a.runBuild(cmd, kind, name, dryRun)
		},
	}
	if sub := kind.Subcommand(); sub != string(kind) {
		cmd.Aliases = []string{sub}
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "Name of the configuration entry to use")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the command instead of running it")
	return cmd
}

func (a *app) runBuild(cmd *cobra.Command, kind command.Kind, name string, dryRun bool) error {
	ctx := cmd.Context()

	settings, err := a.settings()
	var missing *workspace.ConfigurationMissingError
	if errors.As(err, &missing) {
		printWarning(a.deps.Stderr, "%s", missing.Error())
		return nil
	}
	if err != nil {
		return err
	}
	entry, err := settings.Select(ctx, kind, name, a.deps.Chooser)
	if errors.Is(err, workspace.ErrNothingSelected) {
		printWarning(a.deps.Stderr, "no %s configuration selected", kind)
		return nil
	}
	if err != nil {
		return err
	}

	line, ok := command.Build(kind, a.root, entry)
	if !ok {
		return &command.MissingRequiredFieldError{Kind: kind, Entry: entry.Name, Field: "conanFile"}
	}

	if dryRun {
		fmt.Fprintf(a.deps.Stdout, "%s %s\n", a.deps.Config.Conan.Program, line.String())
		return nil
	}

	m, err := a.manager()
	if err != nil {
		return err
	}
	_, err = a.runner(m).Run(ctx, a.root, line, conan.Output{Stdout: a.deps.Stdout, Stderr: a.deps.Stderr})
	var failed *conan.CommandFailedError
	if errors.As(err, &failed) {
		printError(a.deps.Stderr, err)
		return &exitError{code: failed.ExitCode}
	}
	if err != nil {
		return err
	}
	printSuccess(a.deps.Stderr, "conan %s finished", kind.Subcommand())
	return nil
}
