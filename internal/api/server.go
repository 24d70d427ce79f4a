// Package api serves single-site estimates and batch jobs over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"solar_yield/internal/batch"
	"solar_yield/internal/ingest"
	"solar_yield/internal/model"
	"solar_yield/internal/solar"
	"solar_yield/internal/store"
	"solar_yield/internal/yield"
)

// MaxBatchBytes caps the size of an uploaded batch CSV.
const MaxBatchBytes = 64 << 20

// Server owns the HTTP handlers and the background batch jobs they start.
type Server struct {
	engine      *yield.Engine
	processor   *batch.Processor
	jobs        *store.Store
	events      batch.Callback
	blendFactor float64
	logger      zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer wires the handlers. events receives batch progress and
// completion; it may be nil.
func NewServer(engine *yield.Engine, processor *batch.Processor, jobs *store.Store, events batch.Callback, blendFactor float64, logger zerolog.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		engine:      engine,
		processor:   processor,
		jobs:        jobs,
		events:      events,
		blendFactor: blendFactor,
		logger:      logger,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Register adds the API routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/grid", s.handleGrid)
	mux.HandleFunc("POST /api/yield", s.handleYield)
	mux.HandleFunc("POST /api/batch", s.handleBatchCreate)
	mux.HandleFunc("GET /api/batch", s.handleBatchList)
	mux.HandleFunc("GET /api/batch/{id}", s.handleBatchStatus)
	mux.HandleFunc("GET /api/batch/{id}/csv", s.handleBatchCSV)
}

// Shutdown cancels running batch jobs and waits for them to record their
// outcome, or for ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type gridResponse struct {
	Bounds   solar.Bounds `json:"bounds"`
	Lons     []float64    `json:"lons"`
	Lats     []float64    `json:"lats"`
	Months   int          `json:"months"`
	NaNCells int          `json:"nan_cells"`
}

type yieldResponse struct {
	Result  model.YieldResult `json:"result"`
	Blended model.Blended     `json:"blended"`
}

type jobResponse struct {
	ID       string          `json:"id"`
	Created  time.Time       `json:"created"`
	Status   store.JobStatus `json:"status"`
	Progress batch.Progress  `json:"progress"`
	Error    string          `json:"error,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func jobFromStore(j store.Job) jobResponse {
	return jobResponse{
		ID:       j.ID,
		Created:  j.Created,
		Status:   j.Status,
		Progress: j.Progress,
		Error:    j.Err,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleGrid(w http.ResponseWriter, r *http.Request) {
	g := s.engine.Interpolator().Grid()
	_, _, months := g.Shape()
	s.writeJSON(w, http.StatusOK, gridResponse{
		Bounds:   g.Bounds(),
		Lons:     g.Lons(),
		Lats:     g.Lats(),
		Months:   months,
		NaNCells: g.NaNCells(),
	})
}

func (s *Server) handleYield(w http.ResponseWriter, r *http.Request) {
	var q model.SiteQuery
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	res, err := s.engine.Estimate(q)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, yieldResponse{
		Result:  res,
		Blended: yield.Blend(res, s.blendFactor),
	})
}

func (s *Server) handleBatchCreate(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, MaxBatchBytes)
	var p ingest.SiteParser
	header, rows, err := p.Parse(body)
	if err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		s.writeError(w, status, err.Error())
		return
	}

	job := s.jobs.CreateJob(header, len(rows))
	s.logger.Info().Str("job_id", job.ID).Int("rows", len(rows)).Msg("batch job started")

	s.wg.Add(1)
	go s.runJob(job.ID, rows)

	w.Header().Set("Location", "/api/batch/"+job.ID)
	s.writeJSON(w, http.StatusAccepted, jobFromStore(job))
}

func (s *Server) runJob(id string, rows []ingest.SiteRow) {
	defer s.wg.Done()

	outcomes, err := s.processor.Run(s.ctx, id, rows, progressRecorder{jobs: s.jobs, next: s.events})
	if err := s.jobs.Complete(id, outcomes, err); err != nil {
		s.logger.Warn().Str("job_id", id).Err(err).Msg("recording batch outcome")
		return
	}
	// Completion is announced only once results can be downloaded.
	if s.events != nil {
		s.events.OnComplete(id, batch.Summarize(outcomes))
	}
}

func (s *Server) handleBatchList(w http.ResponseWriter, r *http.Request) {
	jobs := s.jobs.Jobs()
	resp := make([]jobResponse, 0, len(jobs))
	for _, j := range jobs {
		resp = append(resp, jobFromStore(j))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBatchStatus(w http.ResponseWriter, r *http.Request) {
	job, ok := s.jobs.Job(r.PathValue("id"))
	if !ok {
		s.writeError(w, http.StatusNotFound, store.ErrJobNotFound.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, jobFromStore(job))
}

func (s *Server) handleBatchCSV(w http.ResponseWriter, r *http.Request) {
	job, ok := s.jobs.Job(r.PathValue("id"))
	if !ok {
		s.writeError(w, http.StatusNotFound, store.ErrJobNotFound.Error())
		return
	}
	if job.Status == store.JobRunning {
		s.writeError(w, http.StatusConflict, "batch job still running")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="yield-`+job.ID+`.csv"`)
	if err := batch.WriteCSV(w, job.Header, job.Outcomes); err != nil {
		s.logger.Warn().Str("job_id", job.ID).Err(err).Msg("writing batch CSV")
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn().Err(err).Msg("writing JSON response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg})
}

// progressRecorder stores intermediate progress and forwards it. Completion
// is handled by runJob after the outcomes are stored.
type progressRecorder struct {
	jobs *store.Store
	next batch.Callback
}

func (p progressRecorder) OnProgress(jobID string, pr batch.Progress) {
	_ = p.jobs.UpdateProgress(jobID, pr)
	if p.next != nil {
		p.next.OnProgress(jobID, pr)
	}
}

func (p progressRecorder) OnComplete(string, batch.Progress) {}
