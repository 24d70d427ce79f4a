// grid-info prints the coverage and monthly statistics of a specific-energy
// dataset, and can convert it to the JSON form.
//
// Usage:
//
//	grid-info --dataset pv_potential_3d.npz
//	grid-info --dataset pv_potential_3d.npz --export-json grid.json
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/pflag"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"solar_yield/internal/config"
	"solar_yield/internal/ingest"
	"solar_yield/internal/model"
	"solar_yield/internal/solar"
)

func main() {
	var exportPath string
	cfg, err := config.ParseWith("grid-info", os.Args[1:], func(fs *pflag.FlagSet) {
		fs.StringVar(&exportPath, "export-json", "", "write the dataset as JSON to this path")
	})
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	g, err := ingest.LoadGrid(cfg.Dataset)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading dataset: %v\n", err)
		os.Exit(1)
	}

	if err := printSummary(os.Stdout, cfg.Dataset, summarize(g)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if exportPath != "" {
		if err := exportJSON(exportPath, g); err != nil {
			fmt.Fprintf(os.Stderr, "Error exporting: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("\nWrote %s\n", exportPath)
	}
}

type monthStats struct {
	Mean, Min, Max float64
}

type summary struct {
	Bounds           solar.Bounds
	Lons, Lats       int
	LonStep, LatStep float64
	NaNCells         int
	Months           [solar.Months]monthStats
}

func summarize(g *solar.Grid) summary {
	nLon, nLat, _ := g.Shape()
	s := summary{
		Bounds:   g.Bounds(),
		Lons:     nLon,
		Lats:     nLat,
		LonStep:  axisStep(g.Lons()),
		LatStep:  axisStep(g.Lats()),
		NaNCells: g.NaNCells(),
	}

	cells := make([]float64, nLon*nLat)
	for m := 1; m <= solar.Months; m++ {
		for i := 0; i < nLon; i++ {
			for j := 0; j < nLat; j++ {
				cells[i*nLat+j] = g.At(i, j, m)
			}
		}
		s.Months[m-1] = monthStats{
			Mean: stat.Mean(cells, nil),
			Min:  floats.Min(cells),
			Max:  floats.Max(cells),
		}
	}
	return s
}

// axisStep is the mean node spacing, zero for a single-node axis.
func axisStep(axis []float64) float64 {
	if len(axis) < 2 {
		return 0
	}
	return (axis[len(axis)-1] - axis[0]) / float64(len(axis)-1)
}

func printSummary(w io.Writer, path string, s summary) error {
	fmt.Fprintf(w, "Dataset: %s\n", path)
	fmt.Fprintf(w, "Longitude: %.4f .. %.4f  (%d nodes, step %.4f)\n", s.Bounds.MinLon, s.Bounds.MaxLon, s.Lons, s.LonStep)
	fmt.Fprintf(w, "Latitude:  %.4f .. %.4f  (%d nodes, step %.4f)\n", s.Bounds.MinLat, s.Bounds.MaxLat, s.Lats, s.LatStep)
	fmt.Fprintf(w, "NaN cells: %d\n\n", s.NaNCells)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Month\tMean\tMin\tMax\t")
	for i, name := range model.MonthNames {
		m := s.Months[i]
		fmt.Fprintf(tw, "%s\t%.3f\t%.3f\t%.3f\t\n", name, m.Mean, m.Min, m.Max)
	}
	return tw.Flush()
}

func exportJSON(path string, g *solar.Grid) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := ingest.WriteJSONGrid(f, g); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
