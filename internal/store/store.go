package store

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"solar_yield/internal/batch"
)

var ErrJobNotFound = errors.New("batch job not found")

type JobStatus string

const (
	JobRunning JobStatus = "running"
	JobDone    JobStatus = "done"
	JobFailed  JobStatus = "failed"
)

// Job is a batch run held in memory for the lifetime of the process.
type Job struct {
	ID       string
	Created  time.Time
	Status   JobStatus
	Progress batch.Progress
	Header   []string
	Outcomes []batch.Outcome
	Err      string
}

// Store holds batch jobs in memory, oldest evicted first once full.
type Store struct {
	mu      sync.RWMutex
	jobs    map[string]*Job
	order   []string // creation order
	maxJobs int
}

func New(maxJobs int) *Store {
	if maxJobs < 1 {
		maxJobs = 1
	}
	return &Store{
		jobs:    make(map[string]*Job),
		maxJobs: maxJobs,
	}
}

// CreateJob registers a running job for total rows and returns a copy.
func (s *Store) CreateJob(header []string, total int) Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	job := &Job{
		ID:       uuid.NewString(),
		Created:  time.Now().UTC(),
		Status:   JobRunning,
		Progress: batch.Progress{Total: total},
		Header:   header,
	}
	s.jobs[job.ID] = job
	s.order = append(s.order, job.ID)
	s.evict()
	return *job
}

// evict drops the oldest finished jobs while over capacity. Running jobs
// are never evicted.
func (s *Store) evict() {
	for i := 0; len(s.jobs) > s.maxJobs && i < len(s.order); {
		id := s.order[i]
		if s.jobs[id].Status == JobRunning {
			i++
			continue
		}
		delete(s.jobs, id)
		s.order = append(s.order[:i], s.order[i+1:]...)
	}
}

// UpdateProgress records intermediate progress for a running job.
func (s *Store) UpdateProgress(id string, p batch.Progress) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return ErrJobNotFound
	}
	job.Progress = p
	return nil
}

// Complete stores the outcomes of a finished job. A non-nil err marks the
// job failed; outcomes gathered before the failure are kept.
func (s *Store) Complete(id string, outcomes []batch.Outcome, err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return ErrJobNotFound
	}
	job.Outcomes = outcomes
	job.Progress = batch.Summarize(outcomes)
	job.Status = JobDone
	if err != nil {
		job.Status = JobFailed
		job.Err = err.Error()
	}
	s.evict()
	return nil
}

// Job returns a copy of the job with the given ID.
func (s *Store) Job(id string) (Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// Jobs returns copies of all jobs in creation order.
func (s *Store) Jobs() []Job {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]Job, 0, len(s.order))
	for _, id := range s.order {
		jobs = append(jobs, *s.jobs[id])
	}
	return jobs
}
