package multisend

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/iov-one/multisend/errors"
)

// Decision is the way a failed batch is resolved. The zero value is
// DecisionStop.
type Decision int

const (
	// DecisionStop records the batch as failed and terminates the run.
	DecisionStop Decision = iota
	// DecisionRetry submits the same batch again.
	DecisionRetry
	// DecisionSkip records the batch as failed and continues with the
	// next one.
	DecisionSkip
)

func (d Decision) String() string {
	switch d {
	case DecisionStop:
		return "stop"
	case DecisionRetry:
		return "retry"
	case DecisionSkip:
		return "skip"
	default:
		return fmt.Sprintf("Decision(%d)", int(d))
	}
}

// Validate returns an error if this is not a known decision.
func (d Decision) Validate() error {
	switch d {
	case DecisionStop, DecisionRetry, DecisionSkip:
		return nil
	}
	return errors.Wrapf(errors.ErrInput, "unknown decision %d", int(d))
}

// ParseDecision returns the decision represented by given name.
func ParseDecision(s string) (Decision, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "stop":
		return DecisionStop, nil
	case "retry":
		return DecisionRetry, nil
	case "skip":
		return DecisionSkip, nil
	}
	return DecisionStop, errors.Wrapf(errors.ErrInput, "unknown decision %q", s)
}

// Set implements flag.Value interface.
func (d *Decision) Set(raw string) error {
	v, err := ParseDecision(raw)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

func (d Decision) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Decision) UnmarshalJSON(raw []byte) error {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return errors.Wrap(errors.ErrInput, "decision must be a string")
	}
	return d.Set(s)
}

// FailedAttempt describes a batch submission that did not succeed.
type FailedAttempt struct {
	BatchNumber int
	// Attempt is the number of submissions of this batch so far,
	// starting with 1.
	Attempt    int
	Diagnostic string
}

// DecisionMaker resolves the fate of a failed batch. It can be a human
// answering a prompt or an automated policy. Decide may block until the
// decision is made. It should return when the context is cancelled.
type DecisionMaker interface {
	Decide(ctx context.Context, f FailedAttempt) (Decision, error)
}

// DecisionFunc is an adapter to allow the use of ordinary functions as
// decision makers.
type DecisionFunc func(ctx context.Context, f FailedAttempt) (Decision, error)

func (fn DecisionFunc) Decide(ctx context.Context, f FailedAttempt) (Decision, error) {
	return fn(ctx, f)
}

// Always returns a decision maker that always makes the same decision.
func Always(d Decision) DecisionMaker {
	return DecisionFunc(func(context.Context, FailedAttempt) (Decision, error) {
		return d, nil
	})
}

// RetryUpTo returns a decision maker that retries each batch until it was
// submitted n+1 times in total and then resolves it with given decision.
func RetryUpTo(n int, then Decision) DecisionMaker {
	return DecisionFunc(func(_ context.Context, f FailedAttempt) (Decision, error) {
		if f.Attempt <= n {
			return DecisionRetry, nil
		}
		return then, nil
	})
}

// Scripted returns a decision maker that returns given decisions in order.
// Once all decisions are used, it always stops.
func Scripted(decisions ...Decision) DecisionMaker {
	return &scripted{decisions: decisions}
}

type scripted struct {
	mu        sync.Mutex
	decisions []Decision
}

func (s *scripted) Decide(context.Context, FailedAttempt) (Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.decisions) == 0 {
		return DecisionStop, nil
	}
	d := s.decisions[0]
	s.decisions = s.decisions[1:]
	return d, nil
}
