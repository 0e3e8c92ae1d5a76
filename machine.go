package multisend

import (
	"fmt"

	"github.com/iov-one/multisend/errors"
)

// Phase is the stage of a dispatch run.
type Phase int

const (
	// PhaseSubmit waits for the result of the current batch submission.
	PhaseSubmit Phase = iota + 1
	// PhaseAwaitDecision waits for a failed batch to be resolved.
	PhaseAwaitDecision
	// PhaseVerify waits for the chain to tell whether an unconfirmed
	// transaction of the current batch was included in a block.
	PhaseVerify
	// PhaseDone means all batches were processed.
	PhaseDone
	// PhaseHalted means the run was stopped before all batches were
	// processed.
	PhaseHalted
)

func (p Phase) String() string {
	switch p {
	case PhaseSubmit:
		return "submit"
	case PhaseAwaitDecision:
		return "await_decision"
	case PhaseVerify:
		return "verify"
	case PhaseDone:
		return "done"
	case PhaseHalted:
		return "halted"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Terminal returns true if no event is accepted in this phase.
func (p Phase) Terminal() bool {
	return p == PhaseDone || p == PhaseHalted
}

// State is the state of a dispatch run. It is a value and every transition
// returns a new one.
type State struct {
	Phase Phase
	// Cursor is the index of the batch being processed.
	Cursor int
	// Total is the number of planned batches.
	Total int
	// Attempt is the number of submissions of the current batch.
	Attempt int
	// Unconfirmed is the hash of the last transaction of the current
	// batch whose result is unknown.
	Unconfirmed string
	// Guard enables verification of unconfirmed transactions before a
	// batch is submitted again.
	Guard bool
}

// Event is an input of the state machine, usually the result of an
// executed effect.
type Event interface {
	event()
}

// Submitted is the result of a Submit effect.
type Submitted struct {
	Result SubmitResult
}

// Decided is the result of an AskDecision effect.
type Decided struct {
	Decision Decision
}

// LookedUp is the result of a Lookup effect.
type LookedUp struct {
	Committed bool
	Err       error
}

// Cancelled is fed when the run context is done.
type Cancelled struct{}

func (Submitted) event() {}
func (Decided) event()   {}
func (LookedUp) event()  {}
func (Cancelled) event() {}

// Effect is an action requested by the state machine. Effects are executed
// in the order they are returned.
type Effect interface {
	effect()
}

// Submit requests a submission of the batch at Index.
type Submit struct {
	Index   int
	Attempt int
}

// AskDecision requests a decision about the failed batch at Index.
type AskDecision struct {
	Index      int
	Attempt    int
	Diagnostic string
}

// Lookup requests a check whether a transaction was included in a block.
type Lookup struct {
	Index  int
	TxHash string
}

// RecordSuccess requests the batch at Index to be recorded as delivered.
type RecordSuccess struct {
	Index  int
	TxHash string
}

// RecordFailure requests the batch at Index to be recorded as failed.
type RecordFailure struct {
	Index int
}

func (Submit) effect()        {}
func (AskDecision) effect()   {}
func (Lookup) effect()        {}
func (RecordSuccess) effect() {}
func (RecordFailure) effect() {}

// Start returns the initial state of a run over total batches, together
// with the first effects to execute.
func Start(total int, guard bool) (State, []Effect) {
	s := State{Total: total, Guard: guard}
	return s.advanceTo(0, nil)
}

// Step computes the transition caused by the event. It has no side effects.
// ErrState is returned when the event is not expected in the current phase,
// in which case the state is returned unchanged.
func Step(s State, ev Event) (State, []Effect, error) {
	if s.Phase.Terminal() {
		return s, nil, errors.Wrapf(errors.ErrState, "run is %s", s.Phase)
	}

	switch ev := ev.(type) {
	case Cancelled:
		return s.cancel()

	case Submitted:
		if s.Phase != PhaseSubmit {
			return s, nil, unexpected(s, ev)
		}
		if ev.Result.Success {
			next, effects := s.advanceTo(s.Cursor+1, []Effect{
				RecordSuccess{Index: s.Cursor, TxHash: ev.Result.TxHash},
			})
			return next, effects, nil
		}
		next := s
		next.Phase = PhaseAwaitDecision
		next.Unconfirmed = ev.Result.Unconfirmed
		return next, []Effect{AskDecision{
			Index:      s.Cursor,
			Attempt:    s.Attempt,
			Diagnostic: ev.Result.Diagnostic,
		}}, nil

	case Decided:
		if s.Phase != PhaseAwaitDecision {
			return s, nil, unexpected(s, ev)
		}
		switch ev.Decision {
		case DecisionRetry:
			if s.Guard && s.Unconfirmed != "" {
				next := s
				next.Phase = PhaseVerify
				return next, []Effect{Lookup{Index: s.Cursor, TxHash: s.Unconfirmed}}, nil
			}
			next, effects := s.resubmit()
			return next, effects, nil
		case DecisionSkip:
			next, effects := s.advanceTo(s.Cursor+1, []Effect{RecordFailure{Index: s.Cursor}})
			return next, effects, nil
		default:
			// Anything that is not an explicit agreement to continue
			// stops the run.
			return s.halt(), []Effect{RecordFailure{Index: s.Cursor}}, nil
		}

	case LookedUp:
		if s.Phase != PhaseVerify {
			return s, nil, unexpected(s, ev)
		}
		if ev.Err != nil {
			// Unknown result. Ask again, this time without the guard
			// for this attempt.
			next := s
			next.Phase = PhaseAwaitDecision
			next.Unconfirmed = ""
			return next, []Effect{AskDecision{
				Index:      s.Cursor,
				Attempt:    s.Attempt,
				Diagnostic: fmt.Sprintf("cannot verify transaction %s: %s", s.Unconfirmed, ev.Err),
			}}, nil
		}
		if ev.Committed {
			next, effects := s.advanceTo(s.Cursor+1, []Effect{
				RecordSuccess{Index: s.Cursor, TxHash: s.Unconfirmed},
			})
			return next, effects, nil
		}
		next, effects := s.resubmit()
		return next, effects, nil
	}
	return s, nil, errors.Wrapf(errors.ErrState, "unknown event %T", ev)
}

// advanceTo moves the cursor to the batch at index i and requests its
// submission, or finishes the run when there are no more batches.
func (s State) advanceTo(i int, effects []Effect) (State, []Effect) {
	s.Cursor = i
	s.Attempt = 0
	s.Unconfirmed = ""
	if i >= s.Total {
		s.Phase = PhaseDone
		return s, effects
	}
	return s.resubmit(effects...)
}

func (s State) resubmit(effects ...Effect) (State, []Effect) {
	s.Phase = PhaseSubmit
	s.Attempt++
	s.Unconfirmed = ""
	return s, append(effects, Submit{Index: s.Cursor, Attempt: s.Attempt})
}

func (s State) halt() State {
	s.Phase = PhaseHalted
	return s
}

// cancel halts the run. The current batch is recorded as failed only if it
// was submitted at least once. A batch whose first submission was requested
// but never executed is not part of the report.
func (s State) cancel() (State, []Effect, error) {
	var effects []Effect
	if s.Phase != PhaseSubmit || s.Attempt > 1 {
		effects = append(effects, RecordFailure{Index: s.Cursor})
	}
	return s.halt(), effects, nil
}

func unexpected(s State, ev Event) error {
	return errors.Wrapf(errors.ErrState, "unexpected %T in %s phase", ev, s.Phase)
}
