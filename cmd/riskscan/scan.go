package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/adedayo/checkmate-riskscan/pkg/util"
)

func newScanCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "scan <path>...",
		Short: "Scan local files and directories",
		Long:  "Scan walks the given paths, skipping .git and node_modules, and scans every file found as one bundle.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err := util.LoadFiles(args)
			if err != nil {
				return err
			}
			engine, err := buildEngine(a.conf)
			if err != nil {
				return err
			}
			util.Logger().Debugf("scanning %d files under %v", len(files), args)
			return a.emit(strings.Join(args, ", "), engine.ScanFiles(cmd.Context(), files))
		},
	}
}
