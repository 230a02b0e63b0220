package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/biodash/internal/aggregate"
	"github.com/sells-group/biodash/internal/dataset"
	"github.com/sells-group/biodash/internal/filter"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show what the configured data directories contain",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		ds, err := loadDataset(ctx, "inspect")
		if err != nil {
			return err
		}

		if ds.Empty() {
			fmt.Fprintln(os.Stderr, "No loadable rows found.")
			return nil
		}

		fmt.Printf("Sources (%d):\n", len(ds.Sources))
		for _, src := range ds.Sources {
			fmt.Printf("  %s\n", src)
		}

		fmt.Printf("\nRows: %s\n", aggregate.FormatCount(ds.Len()))
		if min, max, ok := filter.DateBounds(ds); ok {
			fmt.Printf("Dates: %s to %s\n",
				min.Format(dataset.DateFormat), max.Format(dataset.DateFormat))
		} else {
			fmt.Println("Dates: none parseable")
		}
		if len(ds.ExtraCols) > 0 {
			fmt.Printf("Extra columns: %s\n", strings.Join(ds.ExtraCols, ", "))
		}

		counts := aggregate.RecordCounts(ds, func(rec dataset.Record) string { return rec.State })
		counts = aggregate.SortDesc(counts, func(c aggregate.NameCount) int64 { return c.Count })

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintf(w, "\nSTATE\tRECORDS\n")
		for _, c := range counts {
			fmt.Fprintf(w, "%s\t%d\n", c.Name, c.Count)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
