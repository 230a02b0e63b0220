package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/biodash/internal/dataset"
	"github.com/sells-group/biodash/internal/filter"
	"github.com/sells-group/biodash/internal/geo"
)

// loadDataset validates config for the given mode and loads the full dataset.
func loadDataset(ctx context.Context, mode string) (*dataset.Dataset, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}
	ds, err := dataset.NewLoader(cfg.Data.BaseDir, cfg.Data.Dirs).Load(ctx)
	if err != nil {
		return nil, err
	}
	return ds, nil
}

// newGeoService wires the boundary service from config, including the
// optional alias file.
func newGeoService() (*geo.Service, error) {
	aliases, err := geo.LoadAliases(cfg.Geo.AliasFile)
	if err != nil {
		return nil, eris.Wrap(err, "load boundary aliases")
	}
	return geo.NewService(geo.Options{
		URL:           cfg.Geo.BoundaryURL,
		NameProperty:  cfg.Geo.NameProperty,
		ShapefilePath: cfg.Geo.ShapefilePath,
		Aliases:       aliases,
		Timeout:       time.Duration(cfg.Geo.TimeoutSecs) * time.Second,
		RatePerSec:    cfg.Geo.RatePerSec,
	}), nil
}

// addFilterFlags registers the shared row-filter flags on a command.
func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().String("from", "", "start date, DD-MM-YYYY inclusive")
	cmd.Flags().String("to", "", "end date, DD-MM-YYYY inclusive")
	cmd.Flags().String("state", "", "restrict to one state")
	cmd.Flags().String("district", "", "restrict to one district (requires --state)")
}

// filterFromFlags builds a FilterState from the shared flags.
func filterFromFlags(cmd *cobra.Command) (filter.State, error) {
	fs := filter.NewState()

	if state, _ := cmd.Flags().GetString("state"); state != "" {
		fs.State = state
	}
	if district, _ := cmd.Flags().GetString("district"); district != "" {
		fs.District = district
	}

	parse := func(name string) (*time.Time, error) {
		raw, _ := cmd.Flags().GetString(name)
		if raw == "" {
			return nil, nil
		}
		d, err := time.Parse(dataset.DateFormat, raw)
		if err != nil {
			return nil, eris.Wrapf(err, "parse --%s, expected DD-MM-YYYY", name)
		}
		return &d, nil
	}

	var err error
	if fs.From, err = parse("from"); err != nil {
		return fs, err
	}
	if fs.To, err = parse("to"); err != nil {
		return fs, err
	}
	return fs, nil
}
