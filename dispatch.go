package multisend

import (
	"context"
	"sync"

	"github.com/iov-one/multisend/errors"
	"github.com/tendermint/tendermint/libs/log"
)

// Engine dispatches messages as a sequence of batch transactions.
//
// A single engine can run many dispatches at the same time as long as each
// of them is signed by a different account. Starting a run for an account
// that is already used by another run of the same engine fails with
// ErrState.
type Engine struct {
	conf     Config
	logger   log.Logger
	notifier Notifier
	metrics  *Metrics
	maker    DecisionMaker

	mu     sync.Mutex
	active map[string]struct{}
}

// Option configures an engine.
type Option func(*Engine)

// WithLogger sets the logger used by the engine.
func WithLogger(l log.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithNotifier sets the receiver of status notifications.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithMetrics sets the metrics that the engine updates.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithDecisionMaker sets the decision maker consulted about failed
// batches. Without it every failure is resolved with the configured
// default decision.
func WithDecisionMaker(m DecisionMaker) Option {
	return func(e *Engine) { e.maker = m }
}

// NewEngine returns an engine using given configuration.
func NewEngine(conf Config, opts ...Option) (*Engine, error) {
	if err := conf.Validate(); err != nil {
		return nil, errors.Wrap(err, "config")
	}
	e := &Engine{
		conf:   conf,
		active: make(map[string]struct{}),
	}
	for _, fn := range opts {
		fn(e)
	}
	if e.logger == nil {
		e.logger = log.NewNopLogger()
	}
	if e.metrics == nil {
		e.metrics = nopMetrics()
	}
	return e, nil
}

// Estimate returns the projected fee of dispatching given messages. The
// first batch of the plan is simulated as the representative one.
func (e *Engine) Estimate(ctx context.Context, signer Signer, msgs []Message) (*FeeEstimate, error) {
	batches, err := Plan(msgs, e.conf.BatchSize)
	if err != nil {
		return nil, err
	}
	if len(batches) == 0 {
		return nil, errors.Wrap(errors.ErrEmpty, "no messages")
	}
	return NewEstimator(e.conf).Estimate(ctx, signer, batches[0], len(batches))
}

// Dispatch submits all messages, batch after batch, using given signer.
//
// An error is returned only if the run cannot be started. Failures of
// individual batches are resolved by the decision maker and reported by
// the returned report. A cancelled context halts the run the same way a
// stop decision does.
func (e *Engine) Dispatch(ctx context.Context, signer Signer, msgs []Message) (*Report, error) {
	if err := validateMessages(msgs); err != nil {
		return nil, errors.Wrap(err, "messages")
	}
	batches, err := Plan(msgs, e.conf.BatchSize)
	if err != nil {
		return nil, err
	}

	addr := signer.Address()
	if err := e.acquire(addr); err != nil {
		return nil, err
	}
	defer e.release(addr)

	lookup, guard := signer.(TxLookup)
	guard = guard && e.conf.GuardRetries

	r := &run{
		ctx:       ctx,
		batches:   batches,
		report:    newReport(),
		submitter: NewSubmitter(signer, e.conf, e.notifier, e.logger, e.metrics),
		resolver:  NewCoordinator(e.maker, e.conf.DefaultDecision, e.logger, e.metrics),
		lookup:    lookup,
		logger:    e.logger.With("signer", addr),
		metrics:   e.metrics,
	}
	r.logger.Info("dispatch started", "messages", len(msgs), "batches", len(batches))

	state, effects := Start(len(batches), guard)
	state, err = r.run(state, effects)
	if err != nil {
		return r.report, err
	}

	if state.Phase == PhaseHalted {
		r.report.Halted = true
		r.report.Remaining = batches[len(r.report.Outcomes):]
	}
	r.logger.Info("dispatch finished",
		"phase", state.Phase,
		"succeeded", r.report.Succeeded(),
		"outcomes", len(r.report.Outcomes))
	return r.report, nil
}

func (e *Engine) acquire(addr string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.active[addr]; ok {
		return errors.Wrapf(errors.ErrState, "account %s is used by another run", addr)
	}
	e.active[addr] = struct{}{}
	return nil
}

func (e *Engine) release(addr string) {
	e.mu.Lock()
	delete(e.active, addr)
	e.mu.Unlock()
}

// run holds everything a single dispatch run owns.
type run struct {
	ctx       context.Context
	batches   []Batch
	report    *Report
	submitter *Submitter
	resolver  *Coordinator
	lookup    TxLookup
	logger    log.Logger
	metrics   *Metrics
}

// run executes effects until the state machine reaches a terminal phase.
func (r *run) run(state State, queue []Effect) (State, error) {
	for len(queue) > 0 {
		eff := queue[0]
		queue = queue[1:]

		ev, err := r.execute(eff)
		if err != nil {
			return state, err
		}
		if ev == nil {
			continue
		}
		next, effects, err := Step(state, ev)
		if err != nil {
			return state, err
		}
		r.logger.Debug("transition", "from", state.Phase, "to", next.Phase, "batch", next.Cursor+1)
		state = next
		queue = append(queue, effects...)
	}
	return state, nil
}

// execute performs a single effect and returns the event it produced, if
// any. Before any network or decision call the context is checked and
// Cancelled is returned instead when it is done.
func (r *run) execute(eff Effect) (Event, error) {
	switch eff := eff.(type) {
	case RecordSuccess:
		r.report.recordSuccess(r.batches[eff.Index].Number, eff.TxHash)
		r.metrics.outcome(true)
		return nil, nil
	case RecordFailure:
		r.report.recordFailure(r.batches[eff.Index])
		r.metrics.outcome(false)
		return nil, nil
	}

	if r.ctx.Err() != nil {
		r.logger.Info("dispatch cancelled", "err", r.ctx.Err())
		return Cancelled{}, nil
	}

	switch eff := eff.(type) {
	case Submit:
		b := r.batches[eff.Index]
		r.logger.Info("submitting batch", "batch", b.Number, "attempt", eff.Attempt, "messages", len(b.Messages))
		return Submitted{Result: r.submitter.Submit(r.ctx, b)}, nil
	case AskDecision:
		d := r.resolver.Resolve(r.ctx, FailedAttempt{
			BatchNumber: r.batches[eff.Index].Number,
			Attempt:     eff.Attempt,
			Diagnostic:  eff.Diagnostic,
		})
		return Decided{Decision: d}, nil
	case Lookup:
		ok, err := r.lookup.Committed(r.ctx, eff.TxHash)
		r.logger.Info("verified unconfirmed transaction", "hash", eff.TxHash, "committed", ok, "err", err)
		return LookedUp{Committed: ok, Err: err}, nil
	}
	return nil, errors.Wrapf(errors.ErrState, "unknown effect %T", eff)
}
