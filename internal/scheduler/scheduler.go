// Package scheduler runs named periodic jobs on cron schedules.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Veraticus/spice-ops/internal/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
)

// Default schedules, in standard five-field cron syntax.
const (
	DefaultContractsSchedule = "0 8 * * *"
	DefaultRunwaySchedule    = "*/15 * * * *"
)

// Scheduler errors.
var (
	ErrUnknownJob     = errors.New("unknown job")
	ErrDuplicateJob   = errors.New("job already registered")
	ErrJobRunning     = errors.New("job is already running")
	ErrAlreadyStarted = errors.New("scheduler already running")
)

// JobFunc is the work a scheduled job performs.
type JobFunc func(ctx context.Context) error

// JobStatus is a snapshot of a registered job.
type JobStatus struct {
	LastRun   *time.Time
	NextRun   *time.Time
	LastError string
	Name      string
	Schedule  string
	Running   bool
}

type jobEntry struct {
	lastRun   *time.Time
	run       JobFunc
	name      string
	schedule  string
	lastError string
	cronID    cron.EntryID
	isRunning bool
}

// Scheduler owns a cron runner and the jobs registered on it.
type Scheduler struct {
	cron    *cron.Cron
	logger  *slog.Logger
	jobs    map[string]*jobEntry
	timeout time.Duration
	mu      sync.Mutex
	running bool
}

// New creates a scheduler. Each run is bounded by timeout; zero means 30 minutes.
func New(logger *slog.Logger, timeout time.Duration) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	return &Scheduler{
		cron:    cron.New(),
		logger:  logger,
		jobs:    make(map[string]*jobEntry),
		timeout: timeout,
	}
}

// Register adds a job under name on the given schedule.
func (s *Scheduler) Register(name, schedule string, job JobFunc) error {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("invalid schedule %q for job %s: %w", schedule, name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, name)
	}

	entry := &jobEntry{name: name, schedule: schedule, run: job}
	cronID, err := s.cron.AddFunc(schedule, func() {
		if err := s.execute(context.Background(), entry); err != nil && !errors.Is(err, ErrJobRunning) {
			s.logger.Error("Scheduled job failed", "job", name, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", name, err)
	}
	entry.cronID = cronID
	s.jobs[name] = entry

	s.logger.Info("Registered job", "job", name, "schedule", schedule)
	return nil
}

// Start begins running jobs on their schedules.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyStarted
	}
	s.cron.Start()
	s.running = true
	s.logger.Info("Scheduler started", "jobs", len(s.jobs))
	return nil
}

// Stop halts scheduling and waits for in-flight runs to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info("Scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunNow runs the named job immediately and waits for it.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	entry, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return s.execute(ctx, entry)
}

// Jobs returns the status of every job, sorted by name.
func (s *Scheduler) Jobs() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	statuses := make([]JobStatus, 0, len(s.jobs))
	for _, entry := range s.jobs {
		status := JobStatus{
			Name:      entry.name,
			Schedule:  entry.schedule,
			LastRun:   entry.lastRun,
			LastError: entry.lastError,
			Running:   entry.isRunning,
		}
		if next := s.cron.Entry(entry.cronID).Next; !next.IsZero() {
			status.NextRun = &next
		}
		statuses = append(statuses, status)
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Name < statuses[j].Name })
	return statuses
}

func (s *Scheduler) execute(ctx context.Context, entry *jobEntry) error {
	s.mu.Lock()
	if entry.isRunning {
		s.mu.Unlock()
		s.logger.Warn("Skipping job, previous run still in progress", "job", entry.name)
		return fmt.Errorf("%w: %s", ErrJobRunning, entry.name)
	}
	entry.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	ctx = common.WithLogger(ctx, s.logger.With("job", entry.name))

	start := time.Now()
	s.logger.Info("Starting job", "job", entry.name)
	err := entry.run(ctx)
	elapsed := time.Since(start)

	jobDuration.WithLabelValues(entry.name).Observe(elapsed.Seconds())
	if err != nil {
		jobErrors.WithLabelValues(entry.name).Inc()
	}

	s.mu.Lock()
	entry.isRunning = false
	entry.lastRun = &start
	entry.lastError = ""
	if err != nil {
		entry.lastError = err.Error()
	}
	s.mu.Unlock()

	s.logger.Info("Job finished", "job", entry.name, "duration", elapsed, "failed", err != nil)
	return err
}

// Prometheus metrics
var (
	jobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "spiceops",
			Name:      "job_duration_seconds",
			Help:      "Duration of scheduled job runs.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"job"},
	)
	jobErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "spiceops", Name: "job_errors_total", Help: "Scheduled job runs that returned an error."},
		[]string{"job"},
	)
)

func init() {
	_ = prometheus.Register(jobDuration)
	_ = prometheus.Register(jobErrors)
}
