// Package batch estimates yields for many sites in parallel. Every row is
// computed from its own inputs; a failing row never aborts the batch.
package batch

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"solar_yield/internal/ingest"
	"solar_yield/internal/model"
	"solar_yield/internal/yield"
)

// Outcome is the result of one input row.
type Outcome struct {
	Row     ingest.SiteRow
	Result  model.YieldResult
	Blended model.Blended
	Err     error
}

// Progress counts processed rows.
type Progress struct {
	Done   int `json:"done"`
	Failed int `json:"failed"`
	Total  int `json:"total"`
}

// Callback receives batch events. Calls are serialized per Run.
type Callback interface {
	OnProgress(jobID string, p Progress)
	OnComplete(jobID string, p Progress)
}

type nopCallback struct{}

func (nopCallback) OnProgress(string, Progress) {}
func (nopCallback) OnComplete(string, Progress) {}

// Processor fans rows out over a bounded number of workers.
type Processor struct {
	engine      *yield.Engine
	workers     int
	blendFactor float64
	logger      zerolog.Logger
}

func NewProcessor(engine *yield.Engine, workers int, blendFactor float64, logger zerolog.Logger) *Processor {
	if workers < 1 {
		workers = 1
	}
	return &Processor{
		engine:      engine,
		workers:     workers,
		blendFactor: blendFactor,
		logger:      logger,
	}
}

// Run processes rows and returns one Outcome per row, in input order.
// Cancelling ctx stops scheduling further rows; rows that never ran carry
// ctx's error, which is also returned.
func (p *Processor) Run(ctx context.Context, jobID string, rows []ingest.SiteRow, cb Callback) ([]Outcome, error) {
	if cb == nil {
		cb = nopCallback{}
	}

	outcomes := make([]Outcome, len(rows))
	processed := make([]bool, len(rows))
	progress := Progress{Total: len(rows)}
	step := reportStep(len(rows))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for i := range rows {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			out := p.process(rows[i])
			outcomes[i] = out
			processed[i] = true

			mu.Lock()
			defer mu.Unlock()
			progress.Done++
			if out.Err != nil {
				progress.Failed++
				p.logger.Warn().
					Str("job_id", jobID).
					Int("row", out.Row.Line).
					Err(out.Err).
					Msg("batch row failed")
			}
			if progress.Done%step == 0 && progress.Done < progress.Total {
				cb.OnProgress(jobID, progress)
			}
			return nil
		})
	}

	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		for i, ok := range processed {
			if !ok {
				outcomes[i] = Outcome{Row: rows[i], Err: err}
			}
		}
	}
	cb.OnComplete(jobID, progress)

	p.logger.Info().
		Str("job_id", jobID).
		Int("rows", progress.Total).
		Int("done", progress.Done).
		Int("failed", progress.Failed).
		Msg("batch finished")

	return outcomes, ctx.Err()
}

func (p *Processor) process(row ingest.SiteRow) Outcome {
	out := Outcome{Row: row}
	if row.Err != nil {
		out.Err = row.Err
		return out
	}
	r, err := p.engine.Estimate(row.Query)
	if err != nil {
		out.Err = err
		return out
	}
	out.Result = r
	out.Blended = yield.Blend(r, p.blendFactor)
	return out
}

// reportStep limits progress events to roughly one per percent.
func reportStep(total int) int {
	if step := total / 100; step > 1 {
		return step
	}
	return 1
}

// Summarize counts outcomes.
func Summarize(outcomes []Outcome) Progress {
	p := Progress{Total: len(outcomes)}
	for _, o := range outcomes {
		p.Done++
		if o.Err != nil {
			p.Failed++
		}
	}
	return p
}
