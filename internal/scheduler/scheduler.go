// Package scheduler runs a small set of independently-timed repeating tasks
// (price refresh, snapshot materialization, cache cleanup) in one process.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Task is one repeating job. Run is invoked on every tick unless the
// previous invocation is still in flight, in which case the tick is skipped:
// a task never overlaps itself. Different tasks overlap freely.
type Task struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error

	running atomic.Bool
}

// tick runs the task once, skipping when the previous run has not finished.
func (t *Task) tick(ctx context.Context, log zerolog.Logger) {
	if !t.running.CompareAndSwap(false, true) {
		log.Debug().Str("task", t.Name).Msg("Previous run still in flight, skipping tick")
		return
	}
	defer t.running.Store(false)

	start := time.Now()
	if err := t.Run(ctx); err != nil {
		log.Error().
			Err(err).
			Str("task", t.Name).
			Dur("duration_ms", time.Since(start)).
			Msg("Task run failed")
		return
	}

	log.Debug().
		Str("task", t.Name).
		Dur("duration_ms", time.Since(start)).
		Msg("Task run completed")
}

// Scheduler drives its tasks on per-task tickers.
type Scheduler struct {
	tasks   []*Task
	stop    chan struct{}
	log     zerolog.Logger
	started bool
	stopped bool
	mu      sync.Mutex
	wg      sync.WaitGroup
}

// New creates a new scheduler.
func New(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		stop: make(chan struct{}),
		log:  log.With().Str("component", "scheduler").Logger(),
	}
}

// Register adds a task. Must be called before Start.
func (s *Scheduler) Register(task *Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, task)
}

// Start spins one goroutine per task. Each task runs once immediately, then
// on every interval tick.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started && !s.stopped {
		s.log.Warn().Msg("Scheduler already started, ignoring")
		return
	}

	if s.stopped {
		s.stop = make(chan struct{})
		s.stopped = false
	}
	s.started = true

	for _, task := range s.tasks {
		s.wg.Add(1)
		go s.runLoop(task)
		s.log.Info().
			Str("task", task.Name).
			Dur("interval", task.Interval).
			Msg("Task scheduled")
	}

	s.log.Info().Int("tasks", len(s.tasks)).Msg("Scheduler started")
}

func (s *Scheduler) runLoop(task *Task) {
	defer s.wg.Done()

	ctx := context.Background()
	ticker := time.NewTicker(task.Interval)
	defer ticker.Stop()

	task.tick(ctx, s.log)
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			task.tick(ctx, s.log)
		}
	}
}

// Stop signals all task loops and waits for them to exit. An in-flight task
// run finishes; only future ticks are cancelled.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started || s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	close(s.stop)
	s.mu.Unlock()

	s.wg.Wait()
	s.log.Info().Msg("Scheduler stopped")
}
