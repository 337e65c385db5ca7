package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tomyan/pagekit/internal/config"
)

type rootFlags struct {
	configPath string
	noColor    bool
}

func newRootCmd(cfg *Config) *cobra.Command {
	var flags rootFlags

	root := &cobra.Command{
		Use:   "pagekit",
		Short: "Run browser end-to-end specs built on page objects",
		Long: `pagekit runs the e2e specs of a project against Chrome.

Configuration is read from pagekit.yaml (found from the working directory
upwards, or given with --config) and PAGEKIT_* environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			useColor(cfg, flags.noColor)
		},
	}
	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "config file (env: PAGEKIT_CONFIG)")
	root.PersistentFlags().BoolVar(&flags.noColor, "no-color", false, "disable coloured output")

	root.AddCommand(
		newRunCmd(cfg, &flags),
		newConfigCmd(&flags),
		newDoctorCmd(cfg, &flags),
		newListCmd(),
	)
	return root
}

// loadConfig wraps config errors so they exit with ExitConfig.
func loadConfig(flags *rootFlags) (*config.Config, error) {
	c, err := config.Load(flags.configPath)
	if err != nil {
		return nil, &exitError{code: ExitConfig, err: err}
	}
	return c, nil
}

func newConfigCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the resolved configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadConfig(flags)
			if err != nil {
				return err
			}
			out, err := c.YAML()
			if err != nil {
				return err
			}
			if c.Source != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "# %s\n", c.Source)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "# built-in defaults")
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}
