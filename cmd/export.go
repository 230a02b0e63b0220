package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/biodash/internal/aggregate"
	"github.com/sells-group/biodash/internal/dataset"
	"github.com/sells-group/biodash/internal/export"
	"github.com/sells-group/biodash/internal/filter"
	"github.com/sells-group/biodash/internal/zone"
)

var (
	exportDir     string
	exportSummary bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the filtered rows to a timestamped CSV file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		ds, err := loadDataset(ctx, "export")
		if err != nil {
			return err
		}
		fs, err := filterFromFlags(cmd)
		if err != nil {
			return err
		}
		sub := filter.Apply(ds, fs)

		dir := exportDir
		if dir == "" {
			dir = cfg.Export.Dir
		}

		if exportSummary {
			return writeSummaryFile(dir, sub)
		}

		path, err := export.ToFile(dir, sub, time.Now())
		if err != nil {
			return err
		}
		fmt.Printf("Wrote %d rows to %s\n", sub.Len(), path)
		return nil
	},
}

func writeSummaryFile(dir string, sub *dataset.Dataset) error {
	zoned, _ := zone.Classify(aggregate.ByState(sub))
	zoned = aggregate.SortDesc(zoned, func(z zone.ZonedRegion) int64 { return z.Total })

	path := filepath.Join(dir, "uidai_summary_"+time.Now().Format("20060102_150405")+".csv")
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "create summary file")
	}
	defer f.Close() //nolint:errcheck

	if err := export.WriteSummary(f, zoned); err != nil {
		return err
	}
	fmt.Printf("Wrote %d states to %s\n", len(zoned), path)
	return nil
}

func init() {
	addFilterFlags(exportCmd)
	exportCmd.Flags().StringVar(&exportDir, "dir", "", "output directory (default from config)")
	exportCmd.Flags().BoolVar(&exportSummary, "summary", false, "export the per-state zone summary instead of raw rows")
	rootCmd.AddCommand(exportCmd)
}
