package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ayusman/mudra/internal/catalog"
	"github.com/ayusman/mudra/internal/config"
)

func newValidateCommand(rootOpts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [catalog.yaml]",
		Short: "Check the configuration and a gesture catalog",
		Long: `Load the configuration and the gesture catalog and report every problem.

The catalog defaults to catalog.path from the configuration, or the
built-in catalog when none is set.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			}
			return runValidate(cmd.OutOrStdout(), rootOpts.configPath, path)
		},
	}
}

func runValidate(w io.Writer, configPath, catalogPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(w, "configuration %s is invalid:\n%v\n", configPath, err)
		return fmt.Errorf("invalid configuration")
	}
	if catalogPath == "" {
		catalogPath = cfg.Catalog.Path
	}

	c, err := catalog.LoadOrDefault(catalogPath, cfg.Recognition.PoseTolerance)
	if err != nil {
		fmt.Fprintf(w, "catalog is invalid:\n%v\n", err)
		return fmt.Errorf("invalid catalog")
	}
	if _, err := cfg.Recognition.Settings(); err != nil {
		fmt.Fprintf(w, "recognition settings are invalid:\n%v\n", err)
		return fmt.Errorf("invalid settings")
	}

	name := catalogPath
	if name == "" {
		name = "built-in catalog"
	}
	fmt.Fprintf(w, "%s: %d poses, %d motions\n", name, len(c.Poses), len(c.Motions))
	return nil
}
