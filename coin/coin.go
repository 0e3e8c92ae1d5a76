package coin

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/holiman/uint256"
	"github.com/iov-one/multisend/errors"
)

// IsDenom is the RegExp to ensure a valid denomination. Both native denoms
// (ie. "uatom") and contract tokens ("cw20:<address>") are accepted.
var IsDenom = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9/:._-]{1,127}$`).MatchString

// Coin is an amount of a single denomination, expressed in the smallest
// indivisible unit of that denomination.
type Coin struct {
	Amount *uint256.Int
	Denom  string
}

// NewCoin returns a coin of given raw amount.
func NewCoin(amount uint64, denom string) Coin {
	return Coin{Amount: uint256.NewInt(amount), Denom: denom}
}

// IsZero returns true if this coin has no value.
func (c Coin) IsZero() bool {
	return c.Amount == nil || c.Amount.IsZero()
}

// Add combines two coins. Returns error if they are of different
// denominations or if the combination would cause an overflow.
func (c Coin) Add(o Coin) (Coin, error) {
	if c.Denom == "" && c.IsZero() {
		return o, nil
	}
	if o.Denom == "" && o.IsZero() {
		return c, nil
	}
	if c.Denom != o.Denom {
		return Coin{}, errors.Wrapf(errors.ErrAmount, "adding %s to %s", o.Denom, c.Denom)
	}
	sum, err := Add(c.Amount, o.Amount)
	if err != nil {
		return Coin{}, err
	}
	return Coin{Amount: sum, Denom: c.Denom}, nil
}

// IsGTE returns true if this coin value is greater or equal to the other
// one. Denominations are not compared.
func (c Coin) IsGTE(o Coin) bool {
	return Compare(c.Amount, o.Amount) >= 0
}

// Validate returns an error if this coin cannot be used.
func (c Coin) Validate() error {
	if !IsDenom(c.Denom) {
		return errors.Wrapf(errors.ErrAmount, "invalid denom %q", c.Denom)
	}
	if c.Amount == nil {
		return errors.Wrap(errors.ErrEmpty, "amount")
	}
	return nil
}

// String returns the raw representation, ie. "1500uatom".
func (c Coin) String() string {
	return fmt.Sprintf("%s%s", FormatRaw(c.Amount), c.Denom)
}

// Human returns the amount converted to display units of given exponent,
// followed by the symbol, ie. "0.0015 ATOM".
func (c Coin) Human(exponent uint, symbol string) string {
	s := Format(c.Amount, exponent)
	if symbol != "" {
		s += " " + symbol
	}
	return s
}

func (c Coin) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Amount string `json:"amount"`
		Denom  string `json:"denom"`
	}{
		Amount: FormatRaw(c.Amount),
		Denom:  c.Denom,
	})
}

func (c *Coin) UnmarshalJSON(raw []byte) error {
	// Prioritize compact format "<amount><denom>".
	var compact string
	if err := json.Unmarshal(raw, &compact); err == nil {
		parsed, err := ParseCoin(compact)
		if err != nil {
			return err
		}
		*c = parsed
		return nil
	}

	var coin struct {
		Amount string `json:"amount"`
		Denom  string `json:"denom"`
	}
	if err := json.Unmarshal(raw, &coin); err != nil {
		return err
	}
	amount, err := uint256.FromDecimal(coin.Amount)
	if err != nil {
		return errors.Wrapf(errors.ErrAmount, "amount %q: %s", coin.Amount, err)
	}
	c.Amount = amount
	c.Denom = coin.Denom
	return nil
}

// ParseCoin parse a compact coin representation. Accepted format is a string:
//   "<raw amount><denom>"
func ParseCoin(s string) (Coin, error) {
	m := compactCoinFormatRx.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return Coin{}, errors.Wrapf(errors.ErrInput, "invalid coin format %q", s)
	}
	amount, err := uint256.FromDecimal(m[1])
	if err != nil {
		return Coin{}, errors.Wrapf(errors.ErrAmount, "amount %q: %s", m[1], err)
	}
	c := Coin{Amount: amount, Denom: m[2]}
	return c, c.Validate()
}

var compactCoinFormatRx = regexp.MustCompile(`^(\d+)\s*([a-zA-Z][a-zA-Z0-9/:._-]*)$`)

// Set updates this coin value to what is provided. This method implements
// flag.Value interface.
func (c *Coin) Set(raw string) error {
	val, err := ParseCoin(raw)
	if err != nil {
		return err
	}
	*c = val
	return nil
}
