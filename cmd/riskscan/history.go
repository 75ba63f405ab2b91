package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/adedayo/checkmate-riskscan/pkg/history"
	"github.com/adedayo/checkmate-riskscan/pkg/report"
)

func newHistoryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "history <source>",
		Short: "List stored scans of a source and its score trend",
		Long:  "History lists the scans recorded with --save for a source, as named in the scan report (e.g. github.com/owner/repo).",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := history.NewDBStore(a.conf.HistoryDir)
			if err != nil {
				return err
			}
			defer store.Close()

			source := args[0]
			if a.format == report.JSON {
				records, err := store.List(source)
				if err != nil {
					return err
				}
				data, err := json.MarshalIndent(records, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(a.stdout, string(data))
				return nil
			}

			trend, err := store.ScoreTrend(source)
			if err != nil {
				return err
			}
			if len(trend) == 0 {
				fmt.Fprintf(a.stdout, "No recorded scans of %s\n", source)
				return nil
			}
			w := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TIME\tVERDICT\tSCORE\tCONFIDENCE")
			for _, s := range trend {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", s.TimeStamp.Format(time.RFC3339), s.Verdict, s.Metric, s.Confidence)
			}
			return w.Flush()
		},
	}
}
