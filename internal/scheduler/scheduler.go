package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Scheduler runs functions after a delay on their own goroutines.
// Each scheduled task is independent; tasks never share state through the scheduler.
// Stop abandons every task that has not yet fired.
type Scheduler struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	stopped bool
	wg      sync.WaitGroup
	pending atomic.Int64

	observe func(pending int64)
}

// New creates a scheduler whose tasks are abandoned when parent is cancelled or Stop is called
func New(parent context.Context) *Scheduler {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	return &Scheduler{
		ctx:     ctx,
		cancel:  cancel,
		observe: func(int64) {},
	}
}

// OnPendingChange registers a hook called with the pending task count whenever it changes.
// Calls are serialized, so the last value observed is always the current count.
// Must be set before the first call to After.
func (s *Scheduler) OnPendingChange(fn func(pending int64)) {
	if fn == nil {
		fn = func(int64) {}
	}
	s.observe = fn
}

// After runs fn once delay has elapsed. Non-positive delays fire on the next
// scheduling opportunity. Returns false if the scheduler is stopped or its
// parent context is done.
func (s *Scheduler) After(delay time.Duration, fn func()) bool {
	s.mu.Lock()
	if s.stopped || s.ctx.Err() != nil {
		s.mu.Unlock()
		return false
	}
	s.wg.Add(1)
	s.observe(s.pending.Add(1))
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			s.observe(s.pending.Add(-1))
			s.mu.Unlock()
		}()

		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-s.ctx.Done():
			return
		case <-timer.C:
		}

		fn()
	}()
	return true
}

// Pending returns the number of tasks scheduled but not yet finished
func (s *Scheduler) Pending() int64 {
	return s.pending.Load()
}

// Wait blocks until every scheduled task has run or been abandoned
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Stop abandons pending tasks and rejects new ones. Tasks already running finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}
