package runner

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/hperssn/steady/internal/domain"
)

var (
	ErrInvalidState   = errors.New("invalid state")
	ErrUnknownCommand = errors.New("unknown command")
)

type State string

const (
	StateIdle      State = "idle"
	StateRunning   State = "running"
	StatePaused    State = "paused"
	StateCompleted State = "completed"
)

func (s State) Active() bool {
	return s == StateRunning || s == StatePaused
}

type Command string

const (
	CmdTick     Command = "tick"
	CmdNext     Command = "next"
	CmdPrevious Command = "previous"
	CmdPause    Command = "pause"
	CmdResume   Command = "resume"
	CmdComplete Command = "complete"
	CmdAbort    Command = "abort"
	CmdReset    Command = "reset"
)

type EventKind string

const (
	// EventNone marks a command that was accepted but changed nothing.
	EventNone      EventKind = "none"
	EventStarted   EventKind = "started"
	EventTick      EventKind = "tick"
	EventAdvanced  EventKind = "advanced"
	EventMoved     EventKind = "moved"
	EventPaused    EventKind = "paused"
	EventResumed   EventKind = "resumed"
	EventCompleted EventKind = "completed"
	EventAborted   EventKind = "aborted"
	EventReset     EventKind = "reset"
)

type Event struct {
	Kind     EventKind `json:"kind"`
	Snapshot Snapshot  `json:"snapshot"`
}

// Snapshot is what a host renders after each command.
type Snapshot struct {
	State            State            `json:"state"`
	RunID            string           `json:"runId,omitempty"`
	SessionID        string           `json:"sessionId,omitempty"`
	SessionName      string           `json:"sessionName,omitempty"`
	ExerciseIndex    int              `json:"exerciseIndex"`
	ExerciseCount    int              `json:"exerciseCount"`
	Exercise         *domain.Exercise `json:"exercise,omitempty"`
	RemainingSeconds int              `json:"remainingSeconds"`
	ElapsedSeconds   int              `json:"elapsedSeconds"`
	Progress         float64          `json:"progress"`
}

type run struct {
	id        string
	session   domain.Session
	index     int
	remaining int
	elapsed   int
}

func (r *run) last() bool {
	return r.index == len(r.session.Exercises)-1
}

func (r *run) moveTo(idx int) {
	r.index = idx
	r.remaining = r.session.Exercises[idx].DurationSeconds
}

// Machine drives at most one run through its exercises. It never schedules
// ticks itself; a driver feeds Tick from an external timer.
type Machine struct {
	mu    sync.Mutex
	state State
	run   *run

	// ended is set once a run was aborted or reset, so ticks still in
	// flight for it are dropped instead of rejected.
	ended bool
}

func NewMachine() *Machine {
	return &Machine{state: StateIdle}
}

func invalid(cmd Command, s State) error {
	return fmt.Errorf("%w: %s while %s", ErrInvalidState, cmd, s)
}

func (m *Machine) Start(s domain.Session) (Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateIdle {
		return Event{}, fmt.Errorf("%w: start while %s", ErrInvalidState, m.state)
	}
	if err := s.Validate(); err != nil {
		return Event{}, err
	}

	m.run = &run{id: uuid.NewString(), session: s}
	m.run.moveTo(0)
	m.state = StateRunning
	m.ended = false

	return m.event(EventStarted), nil
}

// Apply dispatches a named command.
func (m *Machine) Apply(cmd Command) (Event, error) {
	switch cmd {
	case CmdTick:
		return m.Tick()
	case CmdNext:
		return m.Next()
	case CmdPrevious:
		return m.Previous()
	case CmdPause:
		return m.Pause()
	case CmdResume:
		return m.Resume()
	case CmdComplete:
		return m.Complete()
	case CmdAbort:
		return m.Abort()
	case CmdReset:
		return m.Reset()
	default:
		return Event{}, fmt.Errorf("%w: %q", ErrUnknownCommand, cmd)
	}
}

// Tick advances the countdown by one second. Paused and completed runs
// ignore ticks, as does an idle machine whose run was just aborted.
func (m *Machine) Tick() (Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tick()
}

// TickRun ticks only if runID is still the active run. Drivers use it so a
// tick scheduled for an earlier run never lands on its successor.
func (m *Machine) TickRun(runID string) (Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.run == nil || m.run.id != runID {
		return m.event(EventNone), nil
	}
	return m.tick()
}

func (m *Machine) tick() (Event, error) {
	switch m.state {
	case StateIdle:
		if m.ended {
			return m.event(EventNone), nil
		}
		return Event{}, invalid(CmdTick, m.state)
	case StatePaused, StateCompleted:
		return m.event(EventNone), nil
	}

	r := m.run
	r.remaining--
	r.elapsed++

	if r.remaining > 0 {
		return m.event(EventTick), nil
	}
	if r.last() {
		m.state = StateCompleted
		return m.event(EventCompleted), nil
	}

	r.moveTo(r.index + 1)
	return m.event(EventAdvanced), nil
}

// Next skips to the following exercise. At the last exercise it does
// nothing; only the timer or Complete finish a run.
func (m *Machine) Next() (Event, error) {
	return m.step(CmdNext, 1)
}

// Previous goes back one exercise, stopping at the first.
func (m *Machine) Previous() (Event, error) {
	return m.step(CmdPrevious, -1)
}

func (m *Machine) step(cmd Command, delta int) (Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.state.Active() {
		return Event{}, invalid(cmd, m.state)
	}

	target := m.run.index + delta
	if target < 0 || target >= len(m.run.session.Exercises) {
		return m.event(EventNone), nil
	}

	m.run.moveTo(target)
	m.state = StateRunning
	return m.event(EventMoved), nil
}

func (m *Machine) Pause() (Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case StatePaused:
		return m.event(EventNone), nil
	case StateRunning:
		m.state = StatePaused
		return m.event(EventPaused), nil
	default:
		return Event{}, invalid(CmdPause, m.state)
	}
}

func (m *Machine) Resume() (Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case StateRunning:
		return m.event(EventNone), nil
	case StatePaused:
		m.state = StateRunning
		return m.event(EventResumed), nil
	default:
		return Event{}, invalid(CmdResume, m.state)
	}
}

// Complete finishes the run immediately, whatever time is left.
func (m *Machine) Complete() (Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.state.Active() {
		return Event{}, invalid(CmdComplete, m.state)
	}

	m.state = StateCompleted
	return m.event(EventCompleted), nil
}

// Abort discards the active run without completing it. The returned event
// carries the last position of the discarded run.
func (m *Machine) Abort() (Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.state.Active() {
		return Event{}, invalid(CmdAbort, m.state)
	}

	ev := m.event(EventAborted)
	ev.Snapshot.State = StateIdle

	m.state = StateIdle
	m.run = nil
	m.ended = true
	return ev, nil
}

// Reset returns a completed machine to idle.
func (m *Machine) Reset() (Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case StateIdle:
		return m.event(EventNone), nil
	case StateCompleted:
		m.state = StateIdle
		m.run = nil
		m.ended = true
		return m.event(EventReset), nil
	default:
		return Event{}, invalid(CmdReset, m.state)
	}
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// ProgressFraction is the share of exercises already passed. It is 0 when
// idle and 1 once the run completed.
func (m *Machine) ProgressFraction() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.progress()
}

func (m *Machine) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot()
}

func (m *Machine) progress() float64 {
	switch {
	case m.run == nil:
		return 0
	case m.state == StateCompleted:
		return 1
	default:
		return float64(m.run.index) / float64(len(m.run.session.Exercises))
	}
}

func (m *Machine) event(kind EventKind) Event {
	return Event{Kind: kind, Snapshot: m.snapshot()}
}

func (m *Machine) snapshot() Snapshot {
	s := Snapshot{State: m.state}
	if m.run == nil {
		return s
	}

	r := m.run
	ex := r.session.Exercises[r.index]
	s.RunID = r.id
	s.SessionID = r.session.ID
	s.SessionName = r.session.Name
	s.ExerciseIndex = r.index
	s.ExerciseCount = len(r.session.Exercises)
	s.Exercise = &ex
	s.RemainingSeconds = r.remaining
	s.ElapsedSeconds = r.elapsed
	s.Progress = m.progress()
	return s
}
