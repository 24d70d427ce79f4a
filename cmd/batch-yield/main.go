// batch-yield adds blended yield columns to a CSV of sites.
//
// Usage:
//
//	batch-yield -i sites.csv -o sites_yield.csv
//	batch-yield -i sites.csv -o sites_yield.csv --workers 8 --dataset pv_potential_3d.npz
//	batch-yield --config batch.yaml -i sites.csv -q
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"gopkg.in/cheggaaa/pb.v1"

	"solar_yield/internal/batch"
	"solar_yield/internal/config"
	"solar_yield/internal/ingest"
	"solar_yield/internal/logging"
	"solar_yield/internal/solar"
	"solar_yield/internal/yield"
)

type options struct {
	inPath, outPath string
	quiet           bool
}

func parseArgs(args []string) (config.Config, options, error) {
	var opts options
	cfg, err := config.ParseWith("batch-yield", args, func(fs *pflag.FlagSet) {
		fs.StringVarP(&opts.inPath, "input", "i", "", "input CSV (latitude, longitude, capacity, COD, average)")
		fs.StringVarP(&opts.outPath, "output", "o", "", "output CSV (default: stdout)")
		fs.BoolVarP(&opts.quiet, "quiet", "q", false, "hide the progress bar")
	})
	if err != nil {
		return cfg, opts, err
	}
	if opts.inPath == "" {
		return cfg, opts, errors.New("--input is required")
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

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, opts.inPath, opts.outPath, opts.quiet, logger); err != nil {
		logger.Fatal().Err(err).Msg("batch failed")
	}
}

func run(ctx context.Context, cfg config.Config, inPath, outPath string, quiet bool, logger zerolog.Logger) error {
	g, err := ingest.LoadGrid(cfg.Dataset)
	if err != nil {
		return fmt.Errorf("loading dataset: %w", err)
	}
	engine := yield.New(solar.NewInterpolator(g))

	in, err := os.Open(inPath)
	if err != nil {
		return err
	}
	defer in.Close()

	var out io.Writer = os.Stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	var progress io.Writer = os.Stderr
	if quiet {
		progress = io.Discard
	}

	processor := batch.NewProcessor(engine, cfg.Workers, cfg.BlendFactor, logger)
	p, err := processFile(ctx, processor, in, out, progress)
	if err != nil {
		return err
	}
	logger.Info().Int("rows", p.Total).Int("failed", p.Failed).Msg("done")
	return nil
}

// processFile reads sites from in and writes them with yield columns to out.
// Failed rows are written with empty yield cells.
func processFile(ctx context.Context, processor *batch.Processor, in io.Reader, out, progress io.Writer) (batch.Progress, error) {
	var parser ingest.SiteParser
	header, rows, err := parser.Parse(in)
	if err != nil {
		return batch.Progress{}, err
	}

	bar := newProgressBar(len(rows), progress)
	outcomes, runErr := processor.Run(ctx, "cli", rows, bar)
	bar.finish()

	if err := batch.WriteCSV(out, header, outcomes); err != nil {
		return batch.Progress{}, err
	}
	return batch.Summarize(outcomes), runErr
}

// progressBar adapts a terminal progress bar to batch.Callback.
type progressBar struct {
	bar *pb.ProgressBar
}

func newProgressBar(total int, w io.Writer) *progressBar {
	bar := pb.New(total).Prefix("Sites ")
	bar.Output = w
	bar.ShowSpeed = true
	return &progressBar{bar: bar.Start()}
}

func (p *progressBar) OnProgress(_ string, pr batch.Progress) {
	p.bar.Set(pr.Done)
}

func (p *progressBar) OnComplete(_ string, pr batch.Progress) {
	p.bar.Set(pr.Done)
}

func (p *progressBar) finish() {
	p.bar.Finish()
}
