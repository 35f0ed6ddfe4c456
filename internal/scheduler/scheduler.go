package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"
)

// ErrUnknownJob is returned by RunByName when no registered job matches.
var ErrUnknownJob = errors.New("unknown job")

// Job is a named unit of scheduled work.
type Job interface {
	Name() string
	// Schedule is a cron expression; empty registers the job on-demand only.
	Schedule() string
	Execute(ctx context.Context) error
}

// Scheduler runs registered jobs on their cron schedules.
type Scheduler struct {
	cron *cron.Cron
	jobs []Job
}

func New() *Scheduler {
	return &Scheduler{
		cron: cron.New(),
		jobs: make([]Job, 0),
	}
}

// Register adds a job; jobs with a schedule are queued on the cron.
func (s *Scheduler) Register(job Job) {
	s.jobs = append(s.jobs, job)

	schedule := job.Schedule()
	if schedule == "" {
		log.Printf("📝 [%s] registered as on-demand job", job.Name())
		return
	}

	_, err := s.cron.AddFunc(schedule, func() {
		log.Printf("⏰ [%s] starting scheduled run...", job.Name())
		if err := job.Execute(context.Background()); err != nil {
			log.Printf("❌ [%s] run failed: %v", job.Name(), err)
		} else {
			log.Printf("✅ [%s] run completed", job.Name())
		}
	})
	if err != nil {
		log.Printf("⚠️ failed to schedule job %s: %v", job.Name(), err)
		return
	}
	log.Printf("📅 [%s] scheduled with cron: %s", job.Name(), schedule)
}

// Start runs the scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Printf("🚀 scheduler started with %d registered jobs", len(s.jobs))
}

// Stop halts the scheduler.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("🛑 scheduler stopped")
}

// RunByName triggers one job manually.
func (s *Scheduler) RunByName(ctx context.Context, name string) error {
	for _, job := range s.jobs {
		if job.Name() == name {
			log.Printf("🎯 [%s] running on-demand...", name)
			return job.Execute(ctx)
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownJob, name)
}
