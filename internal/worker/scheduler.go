// Package worker runs the background jobs: periodic passes on a ticker and
// the queue-driven spreadsheet mirror.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Job is one named periodic task.
type Job struct {
	Name     string
	Interval time.Duration
	// RunOnStart runs the job once before the first tick.
	RunOnStart bool
	// Quiet logs successful runs at debug level, for short polling intervals.
	Quiet bool
	Run   func(ctx context.Context) error
}

// Scheduler runs jobs on their own tickers. A run that is still in flight
// when the next tick arrives causes that tick to be skipped, so a job never
// runs twice at once.
type Scheduler struct {
	jobs []Job

	mu      sync.Mutex
	running map[string]bool
}

func NewScheduler() *Scheduler {
	return &Scheduler{running: make(map[string]bool)}
}

func (s *Scheduler) Add(job Job) error {
	if job.Name == "" || job.Run == nil {
		return errors.New("job needs a name and a run function")
	}
	if job.Interval <= 0 {
		return fmt.Errorf("job %s: interval must be positive", job.Name)
	}
	for _, j := range s.jobs {
		if j.Name == job.Name {
			return fmt.Errorf("job %s already scheduled", job.Name)
		}
	}
	s.jobs = append(s.jobs, job)
	return nil
}

// Start blocks until ctx ends, then waits for in-flight runs to return.
func (s *Scheduler) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, job := range s.jobs {
		job := job
		g.Go(func() error {
			s.loop(ctx, job)
			return nil
		})
	}
	slog.InfoContext(ctx, "Scheduler started", "jobs", len(s.jobs))
	return g.Wait()
}

func (s *Scheduler) loop(ctx context.Context, job Job) {
	var wg sync.WaitGroup
	defer wg.Wait()

	trigger := func(now time.Time) {
		if !s.acquire(job.Name) {
			slog.WarnContext(ctx, "Previous run still in progress, skipping", "job", job.Name)
			return
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer s.release(job.Name)
			s.runOnce(ctx, job, now)
		}()
	}

	if job.RunOnStart {
		trigger(time.Now())
	}

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			trigger(now)
		}
	}
}

// RunNow runs job synchronously unless a run is already in flight; it
// reports whether the job ran.
func (s *Scheduler) RunNow(ctx context.Context, name string) (bool, error) {
	var job *Job
	for i := range s.jobs {
		if s.jobs[i].Name == name {
			job = &s.jobs[i]
			break
		}
	}
	if job == nil {
		return false, fmt.Errorf("unknown job %s", name)
	}
	if !s.acquire(name) {
		return false, nil
	}
	defer s.release(name)
	return true, job.Run(ctx)
}

func (s *Scheduler) acquire(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running[name] {
		return false
	}
	s.running[name] = true
	return true
}

func (s *Scheduler) release(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.running, name)
}

func (s *Scheduler) runOnce(ctx context.Context, job Job, now time.Time) {
	level := slog.LevelInfo
	if job.Quiet {
		level = slog.LevelDebug
	}
	start := time.Now()
	slog.Log(ctx, level, "Running job", "job", job.Name)
	if err := job.Run(ctx); err != nil {
		slog.ErrorContext(ctx, "Job failed", "job", job.Name, "error", err, "duration", time.Since(start))
		return
	}
	slog.Log(ctx, level, "Job complete",
		"job", job.Name,
		"duration", time.Since(start),
		"next_run", now.Add(job.Interval).Format("15:04:05"))
}
