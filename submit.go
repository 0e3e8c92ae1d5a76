package multisend

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/iov-one/multisend/coin"
	"github.com/iov-one/multisend/errors"
	"github.com/tendermint/tendermint/libs/log"
)

// SubmitResult is the result of a single batch submission. Either Success
// is true and TxHash is set, or Diagnostic describes the failure.
type SubmitResult struct {
	Success    bool
	TxHash     string
	Diagnostic string

	// Unconfirmed is the hash of a transaction that was signed and sent
	// but whose result is unknown. Such a transaction might still be
	// included in a block.
	Unconfirmed string
}

// Submitter signs, broadcasts and confirms one batch at a time. It never
// retries on its own.
type Submitter struct {
	signer   Signer
	conf     Config
	notifier Notifier
	logger   log.Logger
	metrics  *Metrics
}

// NewSubmitter returns a submitter that uses given signer. Notifier,
// logger and metrics are optional.
func NewSubmitter(signer Signer, conf Config, notifier Notifier, logger log.Logger, metrics *Metrics) *Submitter {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	if metrics == nil {
		metrics = nopMetrics()
	}
	return &Submitter{
		signer:   signer,
		conf:     conf,
		notifier: notifier,
		logger:   logger,
		metrics:  metrics,
	}
}

// Submit sends given batch as a single transaction and waits for it to be
// included in a block. Any failure is reported by the result.
func (s *Submitter) Submit(ctx context.Context, b Batch) SubmitResult {
	start := time.Now()
	res := s.submit(ctx, b)
	s.metrics.submitted(res.Success, time.Since(start))
	return res
}

func (s *Submitter) submit(ctx context.Context, b Batch) SubmitResult {
	logger := s.logger.With("batch", b.Number)

	fee, err := s.fee(ctx, b)
	if err != nil {
		return s.failed(logger, err, err.Error(), "")
	}

	tx, err := s.signer.Sign(ctx, b.Messages, fee, s.memo(b))
	if err == nil && tx == nil {
		err = errors.ErrEmpty.New("signer returned no transaction")
	}
	if err != nil {
		return s.failed(logger, errors.Wrap(errors.ErrSign, err.Error()), err.Error(), "")
	}

	safeNotify(s.notifier, logger, NotifyBroadcasting, "Waiting for transaction to be included in the block")
	logger.Debug("broadcasting", "hash", tx.Hash, "gas", fee.Gas)

	res, err := s.signer.Broadcast(ctx, tx)
	if err == nil && res == nil {
		err = errors.ErrEmpty.New("signer returned no result")
	}
	if err != nil {
		// The transaction might have been accepted and we only lost the
		// response.
		return s.failed(logger, err, err.Error(), tx.Hash)
	}
	if !res.DeliverSuccess {
		return s.failed(logger, errors.Wrap(errors.ErrDeliver, res.RawLog), res.RawLog, "")
	}

	hash := res.TxHash
	if hash == "" {
		hash = tx.Hash
	}
	safeNotify(s.notifier, logger, NotifySuccess, hash)
	logger.Info("batch delivered", "hash", hash, "height", res.Height)
	return SubmitResult{Success: true, TxHash: hash}
}

func (s *Submitter) failed(logger log.Logger, err error, diag, unconfirmed string) SubmitResult {
	if diag == "" {
		diag = "Transaction Failed!"
	}
	safeNotify(s.notifier, logger, NotifyFailure, diag)
	logger.Error("batch failed", "err", err)
	return SubmitResult{Diagnostic: diag, Unconfirmed: unconfirmed}
}

// fee returns the fee that should be attached to the batch transaction. An
// explicit fee takes precedence over a fee computed from a gas simulation.
func (s *Submitter) fee(ctx context.Context, b Batch) (Fee, error) {
	if s.conf.Fee != nil {
		return *s.conf.Fee, nil
	}
	simulated, err := s.signer.SimulateGas(ctx, b.Messages)
	if err != nil {
		return Fee{}, errors.Wrapf(errors.ErrEstimate, "simulate: %s", err)
	}
	gas, err := s.conf.SubmitMultiplier.ApplyUint64(simulated)
	if err != nil {
		return Fee{}, errors.Wrap(err, "gas")
	}
	amount, err := s.conf.GasPrice.Apply(coin.NewCoin(gas, s.conf.FeeDenom).Amount)
	if err != nil {
		if !s.conf.GasPrice.IsZero() {
			return Fee{}, errors.Wrap(err, "fee amount")
		}
		amount = coin.NewCoin(0, s.conf.FeeDenom).Amount
	}
	return Fee{
		Amount: coin.Coin{Amount: amount, Denom: s.conf.FeeDenom},
		Gas:    gas,
	}, nil
}

func (s *Submitter) memo(b Batch) string {
	memo := fmt.Sprintf("%s %s Batch #%d", s.conf.MemoPrefix, s.conf.TokenSymbol, b.Number)
	return strings.Join(strings.Fields(memo), " ")
}
