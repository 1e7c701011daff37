// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mkellerman/bmad-mcp-server-sub003/internal/config"
)

func newConfigCommand(app *App, flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show and initialize configuration",
		Long: `Manage the CUE configuration file. Values are merged from built-in
defaults, the config file and BMAD_* environment variables, in that order.`,
	}
	cmd.AddCommand(newConfigShowCommand(app, flags), newConfigPathCommand(app, flags), newConfigInitCommand(app, flags))
	return cmd
}

func newConfigShowCommand(app *App, flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := app.Config.Load(cmd.Context(), config.LoadOptions{ConfigFilePath: flags.configPath, Getenv: app.getenv})
			if err != nil {
				return err
			}
			fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
			return nil
		},
	}
}

func newConfigPathCommand(app *App, flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			path, err := configFilePath(flags)
			if err != nil {
				return err
			}
			fmt.Fprintln(app.stdout, path)
			return nil
		},
	}
}

func newConfigInitCommand(app *App, flags *rootFlags) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			var (
				path    string
				written bool
				err     error
			)
			if flags.configPath != "" {
				path = flags.configPath
				written, err = writeDefaultConfig(path, force)
			} else {
				path, written, err = config.CreateDefaultConfig("", force)
			}
			if err != nil {
				return err
			}
			if !written {
				fmt.Fprintln(app.stdout, WarningStyle.Render("exists")+" "+path+" "+SubtitleStyle.Render("(use --force to overwrite)"))
				return nil
			}
			fmt.Fprintln(app.stdout, SuccessStyle.Render("created")+" "+path)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing config file")
	return cmd
}

func writeDefaultConfig(path string, force bool) (bool, error) {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return false, nil
		}
	}
	if err := config.Save(path, config.DefaultConfig()); err != nil {
		return false, err
	}
	return true, nil
}
