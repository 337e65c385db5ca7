package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tomyan/pagekit/internal/commands"
	"github.com/tomyan/pagekit/internal/pages"
	"github.com/tomyan/pagekit/internal/support"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the registered page objects and custom commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := commands.NewRegistry(nil)
			if err := support.Register(reg); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Pages:")
			for _, name := range pages.Names() {
				fmt.Fprintf(out, "  %s\n", name)
			}
			fmt.Fprintln(out, "Commands:")
			for _, name := range reg.Names() {
				fmt.Fprintf(out, "  %s\n", name)
			}
			return nil
		},
	}
}
