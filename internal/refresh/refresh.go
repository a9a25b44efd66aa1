// Package refresh reloads the datasets on a cron schedule.
package refresh

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Func reloads and rematerializes. It must serialize itself with queries.
type Func func(ctx context.Context) error

// DefaultTimeout bounds one refresh run.
const DefaultTimeout = 5 * time.Minute

var parser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Parse validates a schedule: five or six fields, or a descriptor such as
// "@hourly" or "@every 30m".
func Parse(spec string) (cron.Schedule, error) {
	s, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", spec, err)
	}
	return s, nil
}

// Scheduler runs a Func on a cron schedule. Overlapping ticks are skipped.
type Scheduler struct {
	cron    *cron.Cron
	fn      Func
	timeout time.Duration
	log     *zap.SugaredLogger

	mu      sync.Mutex
	running bool
	stopped bool
	cancel  context.CancelFunc
	last    time.Time
	lastErr error
	runs    int
}

// New schedules fn according to spec. The scheduler is idle until Start.
func New(spec string, fn Func, log *zap.SugaredLogger) (*Scheduler, error) {
	sched, err := Parse(spec)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	s := &Scheduler{
		cron:    cron.New(cron.WithLocation(time.UTC), cron.WithParser(parser)),
		fn:      fn,
		timeout: DefaultTimeout,
		log:     log,
	}
	s.cron.Schedule(sched, cron.FuncJob(s.Run))
	return s, nil
}

// SetTimeout changes the per-run bound. Zero disables it.
func (s *Scheduler) SetTimeout(d time.Duration) { s.timeout = d }

// Start begins firing.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Infow("refresh scheduler started", "next", s.Next())
}

// Stop halts the schedule, cancels a refresh in flight and waits for it.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
	<-s.cron.Stop().Done()
	s.log.Infow("refresh scheduler stopped")
}

// Next is the time of the upcoming tick, zero if not started.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// Run performs one refresh now. A failed refresh is logged and kept as
// LastError; the next tick tries again.
func (s *Scheduler) Run() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.log.Warnw("refresh already running, skipping tick")
		return
	}
	if s.stopped {
		s.mu.Unlock()
		return
	}
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if s.timeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), s.timeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}
	s.running = true
	s.cancel = cancel
	s.mu.Unlock()

	start := time.Now()
	err := s.fn(ctx)
	cancel()

	s.mu.Lock()
	s.running = false
	s.cancel = nil
	s.last = start
	s.lastErr = err
	s.runs++
	s.mu.Unlock()

	if err != nil {
		s.log.Errorw("refresh failed", "error", err, "duration", time.Since(start))
		return
	}
	s.log.Infow("datasets refreshed", "duration", time.Since(start))
}

// Status reports the most recent run.
func (s *Scheduler) Status() (last time.Time, runs int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.runs, s.lastErr
}
