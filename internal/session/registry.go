package session

import (
	"sort"
	"sync"

	"github.com/mpotapov/pocket-reminder-bot/internal/domain"
)

// Registry is the shared mapping from chat id to current session state.
// It is mutated only by the state machine and read by fired timers; the
// two paths are serialized per session through Do, so a fire never reads
// a credential mid-transition. At most one state exists per chat id.
type Registry struct {
	mu       sync.RWMutex
	sessions map[int64]domain.Session
	locks    map[int64]*sync.Mutex
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[int64]domain.Session),
		locks:    make(map[int64]*sync.Mutex),
	}
}

// Do runs fn inside the chat's critical section. All state transitions
// and all credential reads for one chat go through here.
func (r *Registry) Do(chatID int64, fn func()) {
	r.mu.Lock()
	l, ok := r.locks[chatID]
	if !ok {
		l = &sync.Mutex{}
		r.locks[chatID] = l
	}
	r.mu.Unlock()

	l.Lock()
	defer l.Unlock()
	fn()
}

// Get returns a copy of the chat's session, if one is recorded.
func (r *Registry) Get(chatID int64) (domain.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sess, ok := r.sessions[chatID]
	return sess, ok
}

// Put records the session, replacing any previous state for the chat.
func (r *Registry) Put(sess domain.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sess.ChatID] = sess
}

func (r *Registry) Delete(chatID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, chatID)
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Snapshot returns a copy of every session, ordered by chat id.
func (r *Registry) Snapshot() []domain.Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sessions := make([]domain.Session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		sessions = append(sessions, sess)
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].ChatID < sessions[j].ChatID
	})

	return sessions
}
