package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/logger"
	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/monitoring"
)

// Job is one unit of periodic work.
type Job func(ctx context.Context) error

// Scheduler runs named jobs on a schedule until stopped.
type Scheduler interface {
	Add(name, spec string, job Job) error
	Start(ctx context.Context)
	Stop()
}

// ParseInterval accepts "@every <duration>" or a bare duration.
func ParseInterval(spec string) (time.Duration, error) {
	s := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(spec), "@every"))
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("scheduler: invalid interval %q: %w", spec, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("scheduler: interval must be positive, got %s", d)
	}
	return d, nil
}

type tickerJob struct {
	name  string
	every time.Duration
	job   Job
}

// TickerScheduler runs each job on a fixed interval driven by a Clock. Runs
// of the same job never overlap.
type TickerScheduler struct {
	clock  Clock
	log    logger.Logger
	mu     sync.Mutex
	jobs   []tickerJob
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewTickerScheduler creates a scheduler on clock. A nil clock uses RealClock.
func NewTickerScheduler(clock Clock, log logger.Logger) *TickerScheduler {
	if clock == nil {
		clock = RealClock{}
	}
	if log == nil {
		log = logger.Nop{}
	}
	return &TickerScheduler{clock: clock, log: log}
}

// Add registers a job. spec is an interval understood by ParseInterval.
func (s *TickerScheduler) Add(name, spec string, job Job) error {
	d, err := ParseInterval(spec)
	if err != nil {
		return err
	}
	return s.Every(name, d, job)
}

// Every registers a job running every d.
func (s *TickerScheduler) Every(name string, d time.Duration, job Job) error {
	if job == nil {
		return fmt.Errorf("scheduler: nil job %s", name)
	}
	if d <= 0 {
		return fmt.Errorf("scheduler: interval must be positive for %s", name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return fmt.Errorf("scheduler: cannot add %s after start", name)
	}
	s.jobs = append(s.jobs, tickerJob{name: name, every: d, job: job})
	return nil
}

// Start launches one loop per job. Calling Start twice is a no-op.
func (s *TickerScheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	for _, j := range s.jobs {
		t := s.clock.NewTicker(j.every)
		s.wg.Add(1)
		go s.loop(ctx, j, t)
	}
}

func (s *TickerScheduler) loop(ctx context.Context, j tickerJob, t Ticker) {
	defer s.wg.Done()
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C():
			runJob(ctx, j.name, j.job, s.log)
		}
	}
}

// Stop cancels every loop and waits for running jobs to return.
func (s *TickerScheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
}

func runJob(ctx context.Context, name string, job Job, log logger.Logger) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic: %v", r)
			log.Errorf("job %s: %v", name, err)
			monitoring.CaptureException(err, map[string]string{"component": "scheduler", "job": name})
		}
	}()
	if err := job(ctx); err != nil {
		log.Errorf("job %s: %v", name, err)
		monitoring.CaptureException(err, map[string]string{"component": "scheduler", "job": name})
	}
}
