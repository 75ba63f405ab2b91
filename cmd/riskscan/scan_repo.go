package main

import (
	"github.com/spf13/cobra"

	gitutils "github.com/adedayo/checkmate-riskscan/pkg/git"
)

func newScanRepoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "scan-repo <url>",
		Short: "Fetch and scan a hosted repository",
		Long: `Scan-repo accepts https://host/owner/repo, host/owner/repo/tree/<branch>
and git@host:owner/repo.git forms. github.com repositories are read through the
REST API; other hosts are cloned in memory.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := buildEngine(a.conf)
			if err != nil {
				return err
			}
			source := args[0]
			if ref, err := gitutils.ParseRepositoryURL(source); err == nil {
				source = ref.String()
			}
			return a.emit(source, engine.ScanRepository(cmd.Context(), args[0]))
		},
	}
}
