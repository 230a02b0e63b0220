package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/biodash/internal/aggregate"
	"github.com/sells-group/biodash/internal/filter"
	"github.com/sells-group/biodash/internal/zone"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print the per-state summary with activity zones",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		ds, err := loadDataset(ctx, "summary")
		if err != nil {
			return err
		}
		fs, err := filterFromFlags(cmd)
		if err != nil {
			return err
		}

		sub := filter.Apply(ds, fs)
		if sub.Empty() {
			fmt.Fprintln(os.Stderr, "No rows match the given filter.")
			return nil
		}

		m := aggregate.ComputeMetrics(sub)
		fmt.Printf("Records: %s   Total authentications: %s   5-17: %.1f%%   17+: %.1f%%\n\n",
			aggregate.FormatCount(m.Records), aggregate.FormatCount(m.Total),
			m.YoungPct, m.AdultPct)

		zoned, th := zone.Classify(aggregate.ByState(sub))
		zoned = aggregate.SortDesc(zoned, func(z zone.ZonedRegion) int64 { return z.Total })

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "STATE\t5-17\t17+\tTOTAL\tDISTRICTS\tPINCODES\tZONE")
		for _, z := range zoned {
			fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\t%s\n",
				z.State, z.AgeYoung, z.AgeAdult, z.Total,
				z.Districts, z.Pincodes, z.Zone.Label())
		}
		if err := w.Flush(); err != nil {
			return err
		}

		fmt.Printf("\nZone thresholds: p33=%.1f p66=%.1f\n", th.P33, th.P66)
		return nil
	},
}

func init() {
	addFilterFlags(summaryCmd)
	rootCmd.AddCommand(summaryCmd)
}
