package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/adedayo/checkmate-riskscan/pkg/report"
	"github.com/adedayo/checkmate-riskscan/pkg/rules"
)

func newRulesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rules",
		Short: "List the active rule database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := database(a.conf)
			if err != nil {
				return err
			}
			if a.format == report.JSON {
				defs := make([]rules.Definition, 0, db.Len())
				for _, r := range db.Rules() {
					defs = append(defs, r.Definition())
				}
				data, err := json.MarshalIndent(defs, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(a.stdout, string(data))
				return nil
			}
			w := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCATEGORY\tSEVERITY\tCONTEXTUAL")
			for _, r := range db.Rules() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%t\n", r.ID, r.Category, r.Severity, r.Contextual)
			}
			fmt.Fprintf(w, "\n%d rules\n", db.Len())
			return w.Flush()
		},
	}
}
