package scheduler

import (
	"context"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/kkartikey75way-blip/Warehouse-Dispatch-Platform-sub001/core/logger"
)

// CronScheduler runs jobs on cron expressions ("@every 5m", "*/10 * * * *").
// A run still in progress when the next one is due is skipped.
type CronScheduler struct {
	cron *cron.Cron
	log  logger.Logger
	mu   sync.Mutex
	ctx  context.Context
}

// NewCronScheduler returns a stopped CronScheduler.
func NewCronScheduler(log logger.Logger) *CronScheduler {
	if log == nil {
		log = logger.Nop{}
	}
	return &CronScheduler{
		cron: cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		log:  log,
		ctx:  context.Background(),
	}
}

// Add registers job under spec.
func (s *CronScheduler) Add(name, spec string, job Job) error {
	_, err := s.cron.AddFunc(spec, func() {
		s.mu.Lock()
		ctx := s.ctx
		s.mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		runJob(ctx, name, job, s.log)
	})
	if err != nil {
		s.log.Errorf("adding cron job %s: %v", name, err)
		return err
	}
	return nil
}

// Start begins running jobs; they receive ctx.
func (s *CronScheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()
	s.cron.Start()
}

// Stop halts the scheduler and waits for running jobs.
func (s *CronScheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Entries returns the number of registered jobs.
func (s *CronScheduler) Entries() int { return len(s.cron.Entries()) }
