package orchestrator

import "time"

// State of the bootstrap.
type State int

const (
	Idle State = iota
	Loading
	// AwaitingMigration is a Loading sub-state: the migration handshake
	// is waiting for the user to import or discard local data.
	AwaitingMigration
	Loaded
	Errored
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case AwaitingMigration:
		return "awaiting-migration"
	case Loaded:
		return "loaded"
	case Errored:
		return "errored"
	default:
		return "unknown"
	}
}

// Loading reports whether a bootstrap attempt is in progress.
func (s State) Loading() bool { return s == Loading || s == AwaitingMigration }

type Event int

const (
	EventLogin Event = iota
	EventPrompted
	EventResumed
	EventSucceeded
	EventFailed
	EventRetry
	EventLogout
)

// Policy bounds automatic retries. Another attempt is scheduled only while
// the count of failed attempts is below MaxRetries.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// DefaultPolicy makes three attempts, waiting 2s then 4s between them.
var DefaultPolicy = Policy{MaxRetries: 3, BaseDelay: 2 * time.Second}

// Machine is the pure transition function of the bootstrap.
type Machine struct {
	State   State
	Retries int
	Policy  Policy
}

// Step tells the runner what to do after a transition.
type Step struct {
	// Attempt is true when a bootstrap attempt must run after Delay.
	Attempt bool
	Delay   time.Duration
}

// Next applies ev and returns the new machine and the step to take. Events
// that do not apply to the current state leave the machine unchanged.
func (m Machine) Next(ev Event) (Machine, Step) {
	switch ev {
	case EventLogin:
		m.State, m.Retries = Loading, 0
		return m, Step{Attempt: true}

	case EventPrompted:
		if m.State == Loading {
			m.State = AwaitingMigration
		}
	case EventResumed:
		if m.State == AwaitingMigration {
			m.State = Loading
		}

	case EventSucceeded:
		if m.State.Loading() {
			m.State, m.Retries = Loaded, 0
		}

	case EventFailed:
		if !m.State.Loading() {
			return m, Step{}
		}
		m.Retries++
		if m.Retries < m.Policy.MaxRetries {
			m.State = Loading
			return m, Step{Attempt: true, Delay: m.Policy.BaseDelay << (m.Retries - 1)}
		}
		m.State = Errored

	case EventRetry:
		if m.State == Errored {
			m.State, m.Retries = Loading, 0
			return m, Step{Attempt: true}
		}

	case EventLogout:
		m.State, m.Retries = Idle, 0
	}
	return m, Step{}
}
