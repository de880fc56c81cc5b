package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mpotapov/pocket-reminder-bot/internal/domain"
	"github.com/mpotapov/pocket-reminder-bot/pkg/logger"
)

// FireFunc is invoked on every scheduled fire for a chat. An error is
// counted and logged but never stops the recurring timer.
type FireFunc func(ctx context.Context, chatID int64) error

// Scheduler owns one recurring timer per authorized session. Each timer
// runs in its own goroutine: the first fire lands on the schedule's
// aligned instant, subsequent fires follow every period. Cancellation is
// a lookup on the indexed entry map, not ownership of a handle object.
type Scheduler struct {
	mu      sync.RWMutex
	entries map[int64]*entry
	wg      sync.WaitGroup
	stopped bool

	// Statistics
	firesCount    int64
	failuresCount int64
	lastFireAt    time.Time
}

type entry struct {
	cancel     chan struct{}
	period     domain.Period
	nextFireAt time.Time
}

func New() *Scheduler {
	return &Scheduler{
		entries: make(map[int64]*entry),
	}
}

// Register arms a recurring timer for the chat. The first fire lands at
// schedule.NextFire(now); every following fire comes one period later.
// Registering a chat that already has a timer replaces it.
func (s *Scheduler) Register(ctx context.Context, chatID int64, schedule domain.Schedule, onFire FireFunc) error {
	every := schedule.Period.Duration()
	if every <= 0 {
		return fmt.Errorf("invalid period %q", schedule.Period)
	}

	first := schedule.NextFire(time.Now())
	return s.registerTimer(ctx, chatID, schedule.Period, time.Until(first), every, first, onFire)
}

func (s *Scheduler) registerTimer(
	ctx context.Context,
	chatID int64,
	period domain.Period,
	firstDelay time.Duration,
	every time.Duration,
	firstFireAt time.Time,
	onFire FireFunc,
) error {
	if every <= 0 {
		return fmt.Errorf("invalid period %q", period)
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return fmt.Errorf("scheduler is stopped")
	}

	if old, ok := s.entries[chatID]; ok {
		logger.Warnf("Replacing existing timer for chat %d", chatID)
		close(old.cancel)
	}

	e := &entry{
		cancel:     make(chan struct{}),
		period:     period,
		nextFireAt: firstFireAt,
	}
	s.entries[chatID] = e
	s.mu.Unlock()

	logger.Infof("Registered timer for chat %d: first fire at %s, then every %v",
		chatID, firstFireAt.Format(time.RFC1123Z), every)

	s.wg.Add(1)
	go s.run(ctx, chatID, e, firstDelay, every, onFire)

	return nil
}

func (s *Scheduler) run(
	ctx context.Context,
	chatID int64,
	e *entry,
	firstDelay time.Duration,
	every time.Duration,
	onFire FireFunc,
) {
	defer s.wg.Done()

	timer := time.NewTimer(firstDelay)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-e.cancel:
		return
	case <-ctx.Done():
		return
	}

	s.fire(ctx, chatID, e, every, onFire)

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.fire(ctx, chatID, e, every, onFire)

		case <-e.cancel:
			return

		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) fire(ctx context.Context, chatID int64, e *entry, every time.Duration, onFire FireFunc) {
	now := time.Now()

	s.mu.Lock()
	s.firesCount++
	s.lastFireAt = now
	e.nextFireAt = now.Add(every)
	s.mu.Unlock()

	if err := onFire(ctx, chatID); err != nil {
		s.mu.Lock()
		s.failuresCount++
		s.mu.Unlock()

		logger.Errorf("Scheduled delivery for chat %d failed: %v", chatID, err)
	}
}

// Cancel stops future fires for the chat. Idempotent; a no-op for a
// chat that has no timer.
func (s *Scheduler) Cancel(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[chatID]
	if !ok {
		return
	}

	close(e.cancel)
	delete(s.entries, chatID)
}

// Stop cancels every timer and waits for the fire goroutines to drain.
// Called only on orderly shutdown, so no fire callback can execute
// against a torn-down registry afterwards.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true

	for chatID, e := range s.entries {
		close(e.cancel)
		delete(s.entries, chatID)
	}
	s.mu.Unlock()

	s.wg.Wait()
	logger.Infof("Scheduler stopped")
}

func (s *Scheduler) ActiveTimers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Scheduler) GetStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := Status{
		Running:       !s.stopped,
		ActiveTimers:  len(s.entries),
		FiresCount:    s.firesCount,
		FailuresCount: s.failuresCount,
		LastFireAt:    s.lastFireAt,
	}

	for chatID, e := range s.entries {
		status.Timers = append(status.Timers, TimerStatus{
			ChatID:     chatID,
			Period:     e.period,
			NextFireAt: e.nextFireAt,
		})
	}

	return status
}

type Status struct {
	Running       bool          `json:"running"`
	ActiveTimers  int           `json:"activeTimers"`
	FiresCount    int64         `json:"firesCount"`
	FailuresCount int64         `json:"failuresCount"`
	LastFireAt    time.Time     `json:"lastFireAt,omitempty"`
	Timers        []TimerStatus `json:"timers,omitempty"`
}

type TimerStatus struct {
	ChatID     int64         `json:"chatId"`
	Period     domain.Period `json:"period"`
	NextFireAt time.Time     `json:"nextFireAt"`
}
