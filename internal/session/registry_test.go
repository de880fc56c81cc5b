package session

import (
	"sync"
	"testing"

	"github.com/mpotapov/pocket-reminder-bot/internal/domain"
)

func TestRegistry_PutReplacesState(t *testing.T) {
	r := NewRegistry()

	r.Put(domain.Session{ChatID: 1, Status: domain.StatusPendingCallback, RequestCode: "abc"})
	r.Put(domain.Session{ChatID: 1, Status: domain.StatusAuthorized, AccessToken: "tok"})

	if r.Len() != 1 {
		t.Fatalf("expected exactly one entry for chat 1, got %d", r.Len())
	}

	sess, ok := r.Get(1)
	if !ok || sess.Status != domain.StatusAuthorized {
		t.Fatalf("expected authorized state, got %+v (ok=%v)", sess, ok)
	}
}

func TestRegistry_GetMissing(t *testing.T) {
	r := NewRegistry()

	if _, ok := r.Get(404); ok {
		t.Fatalf("expected no session for unknown chat")
	}
}

func TestRegistry_SnapshotOrderedByChatID(t *testing.T) {
	r := NewRegistry()

	for _, id := range []int64{30, 10, 20} {
		r.Put(domain.Session{ChatID: id, Status: domain.StatusAuthorized})
	}

	snapshot := r.Snapshot()
	if len(snapshot) != 3 {
		t.Fatalf("expected 3 sessions, got %d", len(snapshot))
	}
	for i, want := range []int64{10, 20, 30} {
		if snapshot[i].ChatID != want {
			t.Errorf("snapshot[%d].ChatID = %d, want %d", i, snapshot[i].ChatID, want)
		}
	}
}

func TestRegistry_DoSerializesPerChat(t *testing.T) {
	r := NewRegistry()
	r.Put(domain.Session{ChatID: 1, Status: domain.StatusAuthorized})

	// Many concurrent read-modify-write cycles through Do must not
	// lose increments; the counter in the token field would skew if
	// two critical sections interleaved.
	const workers = 16
	const cycles = 50

	r.Put(domain.Session{ChatID: 1, Status: domain.StatusAuthorized, AccessToken: ""})

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < cycles; i++ {
				r.Do(1, func() {
					sess, _ := r.Get(1)
					sess.AccessToken += "x"
					r.Put(sess)
				})
			}
		}()
	}
	wg.Wait()

	sess, _ := r.Get(1)
	if len(sess.AccessToken) != workers*cycles {
		t.Fatalf("expected %d appended markers, got %d", workers*cycles, len(sess.AccessToken))
	}
}

func TestRegistry_Delete(t *testing.T) {
	r := NewRegistry()
	r.Put(domain.Session{ChatID: 5, Status: domain.StatusAuthorized})

	r.Delete(5)

	if _, ok := r.Get(5); ok {
		t.Fatalf("expected session to be gone after Delete")
	}
}
