package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/adedayo/checkmate-riskscan/pkg/diagnostics"
)

func newExclusionsCmd(a *app) *cobra.Command {
	exclusionsCmd := &cobra.Command{
		Use:   "exclusions",
		Short: "Work with finding exclusions",
	}
	exclusionsCmd.AddCommand(&cobra.Command{
		Use:   "sample",
		Short: "Print a sample exclusion definition for the Exclusions section of the configuration file",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprint(a.stdout, diagnostics.GenerateSampleExclusion())
		},
	})
	return exclusionsCmd
}
