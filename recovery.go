package multisend

import (
	"context"

	"github.com/iov-one/multisend/errors"
	"github.com/tendermint/tendermint/libs/log"
)

// Coordinator resolves failed batches. It asks the decision maker and falls
// back to a default decision when no decision maker is configured. Any
// problem with obtaining a decision resolves to DecisionStop, so that no
// further transaction is sent without somebody agreeing to it.
type Coordinator struct {
	maker    DecisionMaker
	fallback Decision
	logger   log.Logger
	metrics  *Metrics
}

// NewCoordinator returns a coordinator that consults given decision maker.
// The maker can be nil, in which case every failure is resolved with the
// fallback decision.
func NewCoordinator(maker DecisionMaker, fallback Decision, logger log.Logger, metrics *Metrics) *Coordinator {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	if metrics == nil {
		metrics = nopMetrics()
	}
	if fallback.Validate() != nil {
		fallback = DecisionStop
	}
	return &Coordinator{
		maker:    maker,
		fallback: fallback,
		logger:   logger,
		metrics:  metrics,
	}
}

// Resolve returns the decision for a failed batch. It blocks until the
// decision maker answers or the context is cancelled.
func (c *Coordinator) Resolve(ctx context.Context, f FailedAttempt) Decision {
	d := c.resolve(ctx, f)
	c.metrics.decided(d)
	c.logger.Info("batch failure resolved",
		"batch", f.BatchNumber,
		"attempt", f.Attempt,
		"decision", d)
	return d
}

func (c *Coordinator) resolve(ctx context.Context, f FailedAttempt) Decision {
	if ctx.Err() != nil {
		return DecisionStop
	}
	if c.maker == nil {
		return c.fallback
	}

	d, err := decide(ctx, c.maker, f)
	if err != nil {
		c.logger.Error("cannot obtain decision", "batch", f.BatchNumber, "err", err)
		return DecisionStop
	}
	if ctx.Err() != nil {
		return DecisionStop
	}
	if err := d.Validate(); err != nil {
		c.logger.Error("invalid decision", "batch", f.BatchNumber, "err", err)
		return DecisionStop
	}
	return d
}

// decide consults the decision maker. A panic is returned as ErrPanic.
func decide(ctx context.Context, maker DecisionMaker, f FailedAttempt) (d Decision, err error) {
	defer errors.Recover(&err)
	return maker.Decide(ctx, f)
}
