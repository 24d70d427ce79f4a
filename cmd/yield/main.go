// yield estimates the first-year and COD-to-end-of-year energy of one site.
//
// Usage:
//
//	yield --lat 23.5 --lon 81.2 --capacity 10 --cod 2025-06-20 --average 1520
//	yield --config yield.yaml --lat 23.5 --lon 81.2 --capacity 10 --cod 20/06/2025 --json
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/spf13/pflag"

	"solar_yield/internal/config"
	"solar_yield/internal/ingest"
	"solar_yield/internal/model"
	"solar_yield/internal/solar"
	"solar_yield/internal/yield"
)

type options struct {
	query  model.SiteQuery
	asJSON bool
}

func parseArgs(args []string) (config.Config, options, error) {
	var opts options
	cfg, err := config.ParseWith("yield", args, func(fs *pflag.FlagSet) {
		q := &opts.query
		fs.Float64Var(&q.Latitude, "lat", 0, "site latitude (degrees)")
		fs.Float64Var(&q.Longitude, "lon", 0, "site longitude (degrees)")
		fs.Float64VarP(&q.Capacity, "capacity", "c", 0, "installed capacity (kWp)")
		fs.StringVar(&q.COD, "cod", "", "commercial operation date")
		fs.Float64VarP(&q.StaticAverage, "average", "a", 0, "static yield average (kWh/kWp/yr)")
		fs.BoolVar(&opts.asJSON, "json", false, "print JSON instead of a table")
	})
	if err != nil {
		return cfg, opts, err
	}
	if opts.query.COD == "" {
		return cfg, opts, errors.New("--cod is required")
	}
	return cfg, opts, nil
}

func main() {
	cfg, opts, err := parseArgs(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	q := opts.query

	g, err := ingest.LoadGrid(cfg.Dataset)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading dataset: %v\n", err)
		os.Exit(1)
	}

	r, err := yield.New(solar.NewInterpolator(g)).Estimate(q)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	b := yield.Blend(r, cfg.BlendFactor)

	if opts.asJSON {
		err = printJSON(os.Stdout, r, b)
	} else {
		err = printTable(os.Stdout, q, r, b)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
		os.Exit(1)
	}
}

func printJSON(w io.Writer, r model.YieldResult, b model.Blended) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Result  model.YieldResult `json:"result"`
		Blended model.Blended     `json:"blended"`
	}{r, b})
}

func printTable(w io.Writer, q model.SiteQuery, r model.YieldResult, b model.Blended) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)

	fmt.Fprintf(w, "Site %.4f, %.4f  capacity %.2f kWp  COD %s\n", q.Latitude, q.Longitude, q.Capacity, r.COD.Format("2006-01-02"))
	if !r.Covered {
		fmt.Fprintln(w, "Warning: site is outside the dataset, GIS figures are zero")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(tw, "Month\tDays\tkWh\t")
	for i, name := range model.MonthNames {
		fmt.Fprintf(tw, "%s\t%d\t%.2f\t\n", name, model.DaysInMonth[i], r.Monthly[i])
	}
	fmt.Fprintln(tw, "\t\t\t")
	fmt.Fprintln(tw, "\tYear\tCOD-EOY\t")
	fmt.Fprintf(tw, "GIS\t%.2f\t%.2f\t\n", r.GISYear, r.GISToEOY)
	fmt.Fprintf(tw, "Regression\t%.2f\t%.2f\t\n", r.RegressionYear, r.RegressionToEOY)
	fmt.Fprintf(tw, "Actual\t%.2f\t%.2f\t\n", b.Year, b.ToEOY)
	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "\n%d days from COD to year end\n", r.DaysToEOY)
	return err
}
