package runner

import (
	"context"
	"sync"
	"time"

	"github.com/hperssn/steady/internal/domain"
)

// TickSource returns a channel delivering ticks and a func that stops it.
type TickSource func() (<-chan time.Time, func())

// IntervalTicks is a TickSource backed by a time.Ticker.
func IntervalTicks(interval time.Duration) TickSource {
	return func() (<-chan time.Time, func()) {
		t := time.NewTicker(interval)
		return t.C, t.Stop
	}
}

// sessionRunner pairs a Machine with the goroutine that feeds it ticks and
// fans its events out to subscribers.
type sessionRunner struct {
	// ops orders machine transitions with their publication, so
	// subscribers see events in the order the machine produced them.
	ops sync.Mutex
	mu  sync.Mutex

	machine *Machine
	ticks   TickSource
	notify  func(Event)

	cancel     context.CancelFunc
	subs       map[int]chan Event
	nextSub    int
	lastActive time.Time
}

func newSessionRunner(ticks TickSource, notify func(Event)) *sessionRunner {
	return &sessionRunner{
		machine:    NewMachine(),
		ticks:      ticks,
		notify:     notify,
		subs:       make(map[int]chan Event),
		lastActive: time.Now(),
	}
}

func (r *sessionRunner) Start(s domain.Session) (Event, error) {
	r.ops.Lock()
	defer r.ops.Unlock()

	ev, err := r.machine.Start(s)
	if err != nil {
		return Event{}, err
	}

	// Release the context of a run that completed on its own.
	r.stopTicks()

	ctx, cancel := context.WithCancel(context.Background())

	r.mu.Lock()
	r.cancel = cancel
	r.mu.Unlock()

	r.publish(ev)
	go r.loop(ctx, ev.Snapshot.RunID)

	return ev, nil
}

func (r *sessionRunner) loop(ctx context.Context, runID string) {
	c, stop := r.ticks()
	defer stop()

	for {
		select {
		case <-c:
			if r.tick(runID) {
				return
			}

		case <-ctx.Done():
			return
		}
	}
}

func (r *sessionRunner) tick(runID string) bool {
	r.ops.Lock()
	defer r.ops.Unlock()

	ev, err := r.machine.TickRun(runID)
	if err != nil || ev.Kind == EventNone {
		return false
	}
	r.publish(ev)
	return ev.Kind == EventCompleted
}

// Apply runs a host command against the machine. Ticks arriving after an
// abort or completion are dropped by the machine itself.
func (r *sessionRunner) Apply(cmd Command) (Event, error) {
	r.ops.Lock()
	defer r.ops.Unlock()

	ev, err := r.machine.Apply(cmd)
	if err != nil {
		return Event{}, err
	}

	if ev.Kind == EventCompleted || ev.Kind == EventAborted {
		r.stopTicks()
	}
	if ev.Kind != EventNone {
		r.publish(ev)
	}

	return ev, nil
}

func (r *sessionRunner) Snapshot() Snapshot {
	return r.machine.Snapshot()
}

func (r *sessionRunner) Subscribe() (<-chan Event, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextSub
	r.nextSub++
	ch := make(chan Event, 16)
	r.subs[id] = ch

	return ch, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if c, ok := r.subs[id]; ok {
			delete(r.subs, id)
			close(c)
		}
	}
}

// Stop halts the tick loop and disconnects all subscribers.
func (r *sessionRunner) Stop() {
	r.stopTicks()

	r.mu.Lock()
	defer r.mu.Unlock()
	for id, c := range r.subs {
		delete(r.subs, id)
		close(c)
	}
}

func (r *sessionRunner) idleSince(cutoff time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs) == 0 && r.lastActive.Before(cutoff) && !r.machine.State().Active()
}

func (r *sessionRunner) stopTicks() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
}

func (r *sessionRunner) publish(ev Event) {
	r.mu.Lock()
	r.lastActive = time.Now()
	for _, c := range r.subs {
		select {
		case c <- ev:
		default:
		}
	}
	r.mu.Unlock()

	if r.notify != nil {
		r.notify(ev)
	}
}
