// Package jobs runs the periodic background work: recurrence, notification
// sweeps and statistics.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/eleven-am/taskflow/internal/logger"
	"github.com/eleven-am/taskflow/internal/orm"
	"github.com/eleven-am/taskflow/pkg/taskflow"
)

// RunFunc performs one tick at now and reports how many rows it affected.
type RunFunc func(ctx context.Context, now time.Time) (int, error)

type Job struct {
	Name     string
	Interval time.Duration
	Run      RunFunc
	// RunOnStart fires one tick as soon as the registry starts.
	RunOnStart bool
}

var ErrRunning = errors.New("job registry already running")

// Registry owns the named jobs and their tickers.
type Registry struct {
	mu      sync.Mutex
	jobs    map[string]Job
	log     logger.Logger
	now     func() time.Time
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
}

func NewRegistry(log logger.Logger) *Registry {
	if log == nil {
		log = logger.Jobs()
	}
	return &Registry{jobs: make(map[string]Job), log: log, now: time.Now}
}

// WithClock replaces the time handed to jobs.
func (r *Registry) WithClock(now func() time.Time) *Registry {
	r.now = now
	return r
}

func (r *Registry) Register(job Job) error {
	if job.Name == "" || job.Run == nil {
		return fmt.Errorf("register job: name and run function are required")
	}
	if job.Interval <= 0 {
		return fmt.Errorf("register job %s: interval must be positive", job.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return ErrRunning
	}
	if _, exists := r.jobs[job.Name]; exists {
		return fmt.Errorf("register job %s: already registered", job.Name)
	}
	r.jobs[job.Name] = job
	return nil
}

// Names lists the registered jobs alphabetically.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.jobs))
	for name := range r.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) Job(name string) (Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[name]
	return job, ok
}

// Start launches one ticker goroutine per job. They run until Stop is
// called or ctx is cancelled.
func (r *Registry) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return ErrRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running = true
	for _, job := range r.jobs {
		r.wg.Add(1)
		go r.loop(ctx, job)
	}
	r.log.Info("job registry started", "jobs", len(r.jobs))
	return nil
}

// Stop cancels every job and waits for in-flight ticks to finish.
func (r *Registry) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.cancel()
	r.running = false
	r.mu.Unlock()

	r.wg.Wait()
	r.log.Info("job registry stopped")
}

func (r *Registry) loop(ctx context.Context, job Job) {
	defer r.wg.Done()

	if job.RunOnStart {
		r.tick(ctx, job)
	}

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.tick(ctx, job)
		}
	}
}

// tick runs the job once, containing panics so one job cannot take the
// worker down.
func (r *Registry) tick(ctx context.Context, job Job) (n int, err error) {
	log := r.log.WithField("job", job.Name)
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("job %s panicked: %v", job.Name, p)
			log.Error("job panicked", "panic", p)
		}
	}()

	n, err = job.Run(ctx, r.now().UTC())
	if err != nil {
		if orm.IsRetryable(err) {
			log.Warn("job failed, retrying next tick", "error", err, "duration", time.Since(start))
			return n, err
		}
		log.Error("job failed", "error", err, "duration", time.Since(start))
		return n, err
	}
	log.Info("job finished", "affected", n, "duration", time.Since(start))
	return n, nil
}

// RunOnce runs a single tick of the named job in the caller's goroutine.
func (r *Registry) RunOnce(ctx context.Context, name string) (int, error) {
	job, ok := r.Job(name)
	if !ok {
		return 0, taskflow.NotFoundf("run job", "job", "unknown job %q", name)
	}
	return r.tick(ctx, job)
}
