package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"experimentdb/internal/fixtures"
)

func newLoadDataCommand(a *app) *cobra.Command {
	var list bool
	cmd := &cobra.Command{
		Use:   "loaddata [fixture...]",
		Short: "Install bundled fixtures into the database",
		Long: "Install bundled fixtures into the database. Without arguments the " +
			"default fixture set is loaded. Loading is idempotent.",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if list {
				for _, name := range fixtures.Names() {
					fmt.Fprintln(out, name)
				}
				return nil
			}
			names := args
			if len(names) == 0 {
				names = fixtures.Default
			}
			store, err := a.openStore(cmd)
			if err != nil {
				return err
			}
			defer closeStore(a.logger, store)
			n, err := fixtures.Load(cmd.Context(), store, names...)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Installed %d object(s) from %d fixture(s)\n", n, len(names))
			return nil
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "print the bundled fixture names and exit")
	return cmd
}
