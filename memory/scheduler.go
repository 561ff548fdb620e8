package memory

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultTickInterval is how often the scheduler runs a summarization
// pass.
const DefaultTickInterval = 10 * time.Minute

// Scheduler drives the Summarizer on a fixed interval. It owns its
// background timer explicitly: nothing runs until Start, and Stop drains
// any in-flight tick. Tests call Summarizer.RunOnce directly instead.
type Scheduler struct {
	cron       *cron.Cron
	summarizer *Summarizer
	interval   time.Duration
	ctx        context.Context
	cancel     context.CancelFunc

	mu      sync.Mutex
	entry   cron.EntryID
	running bool
}

// NewScheduler creates a stopped scheduler around the summarizer.
func NewScheduler(s *Summarizer, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:       cron.New(cron.WithLocation(time.UTC)),
		summarizer: s,
		interval:   interval,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start begins periodic ticks. Calling Start on a running scheduler is
// a no-op.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	spec := fmt.Sprintf("@every %s", s.interval)
	id, err := s.cron.AddFunc(spec, func() {
		s.summarizer.RunOnce(s.ctx)
	})
	if err != nil {
		return fmt.Errorf("schedule summarization tick: %w", err)
	}
	s.entry = id
	s.cron.Start()
	s.running = true
	log.Printf("[SCHEDULER] Summarization tick every %s", s.interval)
	return nil
}

// Stop halts the timer and waits for a running tick to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}

	s.cron.Remove(s.entry)
	done := s.cron.Stop()
	<-done.Done()
	s.cancel()
	s.running = false
	log.Printf("[SCHEDULER] Stopped")
}

// IsRunning reports whether the tick is scheduled.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
