package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"anoa.com/studentcommunity/pkg/apperror"
	"github.com/robfig/cron/v3"
)

var ErrUnknownJob = errors.New("unknown job")

// Scheduler runs registered jobs on their cron schedules and on demand.
type Scheduler struct {
	cron *cron.Cron

	mu   sync.RWMutex
	jobs []Job
}

func NewScheduler() *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
	}
}

// Register adds a job and schedules it when it has a cron expression.
func (s *Scheduler) Register(job Job) error {
	if expr := job.Schedule(); expr != "" {
		if _, err := s.cron.AddFunc(expr, func() { s.run(context.Background(), job) }); err != nil {
			return fmt.Errorf("schedule %s: %w", job.Name(), err)
		}
		log.Printf("[%s] Scheduled with cron: %s", job.Name(), expr)
	} else {
		log.Printf("[%s] Registered as on-demand job", job.Name())
	}

	s.mu.Lock()
	s.jobs = append(s.jobs, job)
	s.mu.Unlock()
	return nil
}

func (s *Scheduler) run(ctx context.Context, job Job) error {
	log.Printf("[%s] Starting job", job.Name())
	if err := job.Run(ctx); err != nil {
		log.Printf("[%s] Job failed: %v", job.Name(), err)
		return err
	}
	log.Printf("[%s] Job completed", job.Name())
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	log.Printf("Scheduler started with %d registered jobs", len(s.Registered()))
}

// Stop halts scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Println("Scheduler stopped")
}

// RunByName runs a registered job immediately.
func (s *Scheduler) RunByName(ctx context.Context, name string) error {
	s.mu.RLock()
	var found Job
	for _, job := range s.jobs {
		if job.Name() == name {
			found = job
			break
		}
	}
	s.mu.RUnlock()

	if found == nil {
		return fmt.Errorf("%w %q: %w", ErrUnknownJob, name, apperror.ErrNotFound)
	}
	return s.run(ctx, found)
}

// Registered lists job names in registration order.
func (s *Scheduler) Registered() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, len(s.jobs))
	for i, job := range s.jobs {
		names[i] = job.Name()
	}
	return names
}
