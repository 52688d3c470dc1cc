package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hperssn/steady/internal/domain"
)

// Observer receives every event a run emits, tagged with its user.
type Observer func(userID string, ev Event)

// SessionManager keeps one Machine per user, so each user has at most one
// active run at a time.
type SessionManager struct {
	mu        sync.Mutex
	runners   map[string]*sessionRunner
	ticks     TickSource
	observers []Observer
}

func NewSessionManager(ctx context.Context, ticks TickSource, observers ...Observer) *SessionManager {
	m := &SessionManager{
		runners:   make(map[string]*sessionRunner),
		ticks:     ticks,
		observers: observers,
	}

	go m.cleanupLoop(ctx)

	return m
}

func (m *SessionManager) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.cleanupIdle(time.Now().Add(-1 * time.Hour))
		case <-ctx.Done():
			m.Shutdown()
			return
		}
	}
}

// cleanupIdle drops runners that have no active run, no subscribers and no
// activity since cutoff.
func (m *SessionManager) cleanupIdle(cutoff time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, r := range m.runners {
		if r.idleSince(cutoff) {
			r.Stop()
			delete(m.runners, id)
			removed++
		}
	}
	return removed
}

func (m *SessionManager) runner(userID string, create bool) (*sessionRunner, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.runners[userID]
	if !ok && create {
		r = newSessionRunner(m.ticks, func(ev Event) {
			for _, o := range m.observers {
				o(userID, ev)
			}
		})
		m.runners[userID] = r
		ok = true
	}
	return r, ok
}

// StartRun begins s for userID. It fails with ErrInvalidState while the
// user already has a run that is active or completed but not reset.
func (m *SessionManager) StartRun(userID string, s domain.Session) (Event, error) {
	r, _ := m.runner(userID, true)
	return r.Start(s)
}

func (m *SessionManager) Apply(userID string, cmd Command) (Event, error) {
	r, ok := m.runner(userID, false)
	if !ok {
		return Event{}, fmt.Errorf("%w: %s while %s", ErrInvalidState, cmd, StateIdle)
	}
	return r.Apply(cmd)
}

func (m *SessionManager) Snapshot(userID string) Snapshot {
	r, ok := m.runner(userID, false)
	if !ok {
		return Snapshot{State: StateIdle}
	}
	return r.Snapshot()
}

// Subscribe streams the user's run events until the returned func is
// called or the manager shuts down.
func (m *SessionManager) Subscribe(userID string) (<-chan Event, func()) {
	r, _ := m.runner(userID, true)
	return r.Subscribe()
}

func (m *SessionManager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, r := range m.runners {
		r.Stop()
		delete(m.runners, id)
	}
}
