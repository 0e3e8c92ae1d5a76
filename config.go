package multisend

import (
	"encoding/json"
	"io/ioutil"

	"github.com/iov-one/multisend/coin"
	"github.com/iov-one/multisend/errors"
)

// DefaultBatchSize is the number of messages packed into a single
// transaction unless configured otherwise.
const DefaultBatchSize = 100

// Config is the dispatch configuration. It is fixed for a deployment and
// shared by all runs.
type Config struct {
	// BatchSize is the maximum number of messages in a single transaction.
	BatchSize int `json:"batch_size"`

	// FeeDenom is the denomination fees are paid with.
	FeeDenom string `json:"fee_denom"`
	// FeeExponent is the decimal exponent of the fee token, used to
	// present fees in display units.
	FeeExponent uint `json:"fee_exponent"`
	// FeeSymbol is the display symbol of the fee token.
	FeeSymbol string `json:"fee_symbol"`
	// GasPrice is the price of a single gas unit, in FeeDenom raw units.
	// Zero means the price is unknown and fees cannot be estimated.
	GasPrice coin.Fraction `json:"gas_price"`

	// EstimateMultiplier is the safety multiplier applied to the simulated
	// gas when the total cost of a run is estimated.
	EstimateMultiplier coin.Fraction `json:"estimate_multiplier"`
	// SubmitMultiplier is the safety multiplier applied to the simulated
	// gas when the fee of a submitted batch is computed.
	SubmitMultiplier coin.Fraction `json:"submit_multiplier"`
	// Fee if set is used for every submitted batch instead of a fee
	// computed from the simulated gas.
	Fee *Fee `json:"fee,omitempty"`

	// MemoPrefix and TokenSymbol are used to build the memo of each
	// transaction.
	MemoPrefix  string `json:"memo_prefix"`
	TokenSymbol string `json:"token_symbol"`

	// DefaultDecision resolves failed batches when no decision maker is
	// provided.
	DefaultDecision Decision `json:"default_decision"`
	// GuardRetries enables checking whether an unconfirmed transaction was
	// included in a block before the batch is submitted again.
	GuardRetries bool `json:"guard_retries"`
}

// DefaultConfig returns the configuration with all optional values set to
// their defaults. Fee token must be provided by the caller.
func DefaultConfig() Config {
	return Config{
		BatchSize:          DefaultBatchSize,
		EstimateMultiplier: coin.NewFraction(2, 1),
		SubmitMultiplier:   coin.NewFraction(9, 5),
		DefaultDecision:    DecisionStop,
	}
}

// Validate returns all configuration problems found.
func (c Config) Validate() error {
	var errs error
	if c.BatchSize < 1 {
		errs = errors.AppendField(errs, "BatchSize", errors.Wrapf(errors.ErrInput, "must be positive, got %d", c.BatchSize))
	}
	if !coin.IsDenom(c.FeeDenom) {
		errs = errors.AppendField(errs, "FeeDenom", errors.Wrapf(errors.ErrInput, "invalid denom %q", c.FeeDenom))
	}
	if c.FeeExponent > coin.MaxExponent {
		errs = errors.AppendField(errs, "FeeExponent", errors.ErrInput)
	}
	if err := c.GasPrice.Validate(); err != nil && !c.GasPrice.IsZero() {
		errs = errors.AppendField(errs, "GasPrice", err)
	}
	errs = errors.AppendField(errs, "EstimateMultiplier", validMultiplier(c.EstimateMultiplier))
	errs = errors.AppendField(errs, "SubmitMultiplier", validMultiplier(c.SubmitMultiplier))
	if c.Fee != nil {
		if c.Fee.Gas == 0 {
			errs = errors.AppendField(errs, "Fee.Gas", errors.ErrEmpty)
		}
		errs = errors.AppendField(errs, "Fee.Amount", c.Fee.Amount.Validate())
	}
	errs = errors.AppendField(errs, "DefaultDecision", c.DefaultDecision.Validate())
	return errs
}

func validMultiplier(f coin.Fraction) error {
	if err := f.Validate(); err != nil {
		return err
	}
	if f.Numerator < f.Denominator {
		return errors.Wrapf(errors.ErrInput, "%s is less than one", f)
	}
	return nil
}

// LoadConfig reads a JSON encoded configuration from given file. All values
// not present in the file are set to defaults.
func LoadConfig(path string) (Config, error) {
	conf := DefaultConfig()
	raw, err := ioutil.ReadFile(path)
	if err != nil {
		return conf, errors.Wrapf(errors.ErrNotFound, "read %q: %s", path, err)
	}
	if err := json.Unmarshal(raw, &conf); err != nil {
		return conf, errors.Wrapf(errors.ErrInput, "decode %q: %s", path, err)
	}
	if err := conf.Validate(); err != nil {
		return conf, errors.Wrap(err, "config")
	}
	return conf, nil
}
