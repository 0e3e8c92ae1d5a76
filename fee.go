package multisend

import (
	"context"

	"github.com/holiman/uint256"
	"github.com/iov-one/multisend/coin"
	"github.com/iov-one/multisend/errors"
)

// FeeEstimate is the projected cost of a whole dispatch run.
type FeeEstimate struct {
	// Gas is the simulated gas of the representative batch, before the
	// safety multiplier is applied.
	Gas uint64
	// Batches is the number of transactions the estimate covers.
	Batches int
	// Total is the total fee of all transactions, in raw units.
	Total coin.Coin
	// Display is the total fee in display units of the fee token.
	Display string
}

// Estimator projects the total fee of a dispatch run from a single gas
// simulation.
type Estimator struct {
	conf Config
}

// NewEstimator returns an estimator using the fee configuration.
func NewEstimator(conf Config) *Estimator {
	return &Estimator{conf: conf}
}

// Estimate simulates given representative batch once and projects its cost
// to batchCount transactions:
//   round(gas * EstimateMultiplier * GasPrice) * batchCount
// The result wraps ErrEstimate if the fee cannot be estimated. Such a result
// must be presented as a warning and must not block the dispatch.
func (e *Estimator) Estimate(ctx context.Context, signer Signer, representative Batch, batchCount int) (*FeeEstimate, error) {
	if e.conf.GasPrice.IsZero() {
		return nil, errors.Wrap(errors.ErrEstimate, "gas price is unknown")
	}
	if len(representative.Messages) == 0 {
		return nil, errors.Wrap(errors.ErrEstimate, "empty batch")
	}
	gas, err := signer.SimulateGas(ctx, representative.Messages)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrEstimate, "simulate: %s", err)
	}

	price, err := e.conf.EstimateMultiplier.Mul(e.conf.GasPrice)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrEstimate, "price: %s", err)
	}
	perTx, err := price.Apply(uint256.NewInt(gas))
	if err != nil {
		return nil, errors.Wrapf(errors.ErrEstimate, "fee: %s", err)
	}
	total, overflow := new(uint256.Int).MulOverflow(perTx, uint256.NewInt(uint64(batchCount)))
	if overflow {
		return nil, errors.Wrap(errors.ErrEstimate, "fee overflow")
	}

	return &FeeEstimate{
		Gas:     gas,
		Batches: batchCount,
		Total:   coin.Coin{Amount: total, Denom: e.conf.FeeDenom},
		Display: coin.Format(total, e.conf.FeeExponent),
	}, nil
}

// Funds describes what a run needs and what the account has available.
type Funds struct {
	// Send is the total amount of all transfers.
	Send coin.Coin
	// Available is the account balance of the transferred asset.
	Available coin.Coin
	// Fee is the estimated fee. Nil means the fee is unknown.
	Fee *coin.Coin
	// FeeAvailable is the account balance of the fee token.
	FeeAvailable coin.Coin
}

// CheckAffordability returns all problems that would make the run fail for
// lack of funds. An unknown fee is reported with ErrEstimate, any shortfall
// with ErrAmount. Nil means the run is ready to be sent.
func CheckAffordability(f Funds) error {
	var errs error
	if !f.Available.IsGTE(f.Send) {
		errs = errors.Append(errs, errors.Wrap(errors.ErrAmount, "available balance is less than the amount required to send"))
	}

	if f.Fee == nil {
		return errors.Append(errs, errors.Wrap(errors.ErrEstimate, "affordability of fees cannot be verified"))
	}

	if !f.FeeAvailable.IsGTE(*f.Fee) {
		errs = errors.Append(errs, errors.Wrap(errors.ErrAmount, "available balance is less than estimated gas fee"))
	}

	if f.Fee.Denom == f.Send.Denom {
		need, err := coin.Add(f.Send.Amount, f.Fee.Amount)
		if err != nil {
			return errors.Append(errs, err)
		}
		if coin.Compare(f.Available.Amount, need) < 0 {
			errs = errors.Append(errs, errors.Wrap(errors.ErrAmount, "available balance is less than the amount required to send and estimated gas fee"))
		}
	}
	return errs
}
