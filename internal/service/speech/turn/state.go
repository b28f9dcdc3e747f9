// Package turn tracks one recognition turn: the span of a single recognizer
// session during which at most one final transcript is delivered.
package turn

import (
	"errors"
	"fmt"
	"sync"
)

// State represents the lifecycle state of a turn.
type State int

const (
	// StateOpen - Session is running, interim results accumulate.
	StateOpen State = iota
	// StateFinalDelivered - The final transcript was handed to the caller.
	StateFinalDelivered
	// StateClosed - Session ended normally.
	StateClosed
	// StateAborted - Session ended with an error or was forcibly terminated.
	// No final may be delivered after this point.
	StateAborted
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateOpen:
		return "OPEN"
	case StateFinalDelivered:
		return "FINAL_DELIVERED"
	case StateClosed:
		return "CLOSED"
	case StateAborted:
		return "ABORTED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", s)
	}
}

// IsTerminal returns true if the state is terminal (CLOSED or ABORTED).
func (s State) IsTerminal() bool {
	return s == StateClosed || s == StateAborted
}

// Errors for invalid state transitions.
var (
	ErrTurnClosed            = errors.New("turn is closed")
	ErrFinalAlreadyDelivered = errors.New("final already delivered for this turn")
)

// Lifecycle manages the state machine for a single turn.
// Thread-safe for concurrent access.
//
// State transitions:
//
//	OPEN → FINAL_DELIVERED → CLOSED
//	  │           │
//	  └───────────┴── Abort() ──→ ABORTED
//
// A turn may end without a final (silence); Close is valid from OPEN.
type Lifecycle struct {
	mu     sync.RWMutex
	turnID string
	state  State
}

// NewLifecycle creates a new turn lifecycle in OPEN state.
func NewLifecycle(turnID string) *Lifecycle {
	return &Lifecycle{
		turnID: turnID,
		state:  StateOpen,
	}
}

// TurnID returns the turn ID.
func (l *Lifecycle) TurnID() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.turnID
}

// State returns the current state.
func (l *Lifecycle) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// CanDeliverFinal returns true if a final can still be delivered.
func (l *Lifecycle) CanDeliverFinal() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state == StateOpen
}

// DeliverFinal validates and transitions to FINAL_DELIVERED.
func (l *Lifecycle) DeliverFinal() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch l.state {
	case StateOpen:
		l.state = StateFinalDelivered
		return nil
	case StateFinalDelivered:
		return ErrFinalAlreadyDelivered
	case StateClosed, StateAborted:
		return ErrTurnClosed
	default:
		return fmt.Errorf("unexpected state: %v", l.state)
	}
}

// Close transitions the turn to CLOSED unless it was aborted. Idempotent.
func (l *Lifecycle) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == StateAborted {
		return
	}
	l.state = StateClosed
}

// Abort transitions the turn to ABORTED.
// Returns true if the turn was aborted, false if already in a terminal state.
func (l *Lifecycle) Abort() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state.IsTerminal() {
		return false
	}
	l.state = StateAborted
	return true
}

// Reset reopens the lifecycle for a new turn.
func (l *Lifecycle) Reset(newTurnID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.turnID = newTurnID
	l.state = StateOpen
}
