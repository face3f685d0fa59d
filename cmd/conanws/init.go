package main

import (
	"errors"

	"github.com/Cyclone1070/conanws/internal/workspace"
	"github.com/spf13/cobra"
)

func newInitCmd(deps *Dependencies, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create a settings file with one default entry per command",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(deps, flags)
			if err != nil {
				return err
			}
			path, err := workspace.NewLoader(deps.Fs).WriteTemplate(a.root)
			if errors.Is(err, workspace.ErrSettingsExist) {
				printWarning(deps.Stderr, "a settings file already exists in %s", a.root)
				return nil
			}
			if err != nil {
				return err
			}
			printSuccess(deps.Stderr, "created %s", path)
			return nil
		},
	}
}
