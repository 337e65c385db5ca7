package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tomyan/pagekit/internal/browser"
)

func newDoctorCmd(cfg *Config, root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that specs can run here",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			c, err := loadConfig(root)
			if err != nil {
				printStatus(out, "✗", fmt.Sprintf("Config: %v", err), color.FgRed)
				return err
			}
			if c.Source != "" {
				printStatus(out, "✓", "Config "+c.Source, color.FgGreen)
			} else {
				printStatus(out, "⚠", "No pagekit.yaml found, using defaults", color.FgYellow)
			}

			if path, err := exec.LookPath("go"); err == nil {
				printStatus(out, "✓", "Go found at "+path, color.FgGreen)
			} else {
				printStatus(out, "⚠", "Go not found in PATH (needed by pagekit run)", color.FgYellow)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
			defer cancel()

			host, port := c.Browser.Host, c.Browser.Port
			info, runErr := cfg.DetectChrome(ctx, host, port)
			if runErr == nil {
				printStatus(out, "✓", fmt.Sprintf("Browser running on %s:%d (%s)", host, port, info.Browser), color.FgGreen)
			} else {
				printStatus(out, "-", fmt.Sprintf("No browser on %s:%d, one will be launched", host, port), color.FgCyan)
			}

			chromePath := cfg.FindChrome(c.Browser.ChromePath)
			switch {
			case chromePath != "":
				printStatus(out, "✓", "Chrome found at "+chromePath, color.FgGreen)
			case runErr == nil:
				printStatus(out, "⚠", "Chrome not installed, relying on the running browser", color.FgYellow)
			case c.Browser.Driver == browser.EngineRod:
				printStatus(out, "⚠", "Chrome not found, rod will download a browser", color.FgYellow)
			default:
				printStatus(out, "✗", "Chrome not found (set browser.chromePath)", color.FgRed)
				return errors.New("no browser available")
			}
			return nil
		},
	}
}

func printStatus(out io.Writer, symbol, message string, attr color.Attribute) {
	fmt.Fprintf(out, "%s %s\n", color.New(attr).Sprint(symbol), message)
}
