package coin

import (
	"encoding/json"
	"fmt"
	"math/bits"
	"strconv"
	"strings"

	"github.com/holiman/uint256"
	"github.com/iov-one/multisend/errors"
)

// Fraction is a non negative rational number. It is used for gas prices and
// safety multipliers so that no floating point rounding is involved in fee
// computation.
type Fraction struct {
	Numerator   uint64
	Denominator uint64
}

// NewFraction returns a normalized fraction.
func NewFraction(numerator, denominator uint64) Fraction {
	return Fraction{Numerator: numerator, Denominator: denominator}.Normalize()
}

// String returns a human readable fraction representation.
func (f Fraction) String() string {
	if f.Numerator == 0 {
		return "0"
	}
	if f.Denominator == 1 {
		return fmt.Sprint(f.Numerator)
	}
	return fmt.Sprintf("%d/%d", f.Numerator, f.Denominator)
}

func (f Fraction) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.String())
}

func (f *Fraction) UnmarshalJSON(raw []byte) error {
	// Prioritize human readable format.
	var human string
	if err := json.Unmarshal(raw, &human); err == nil {
		frac, err := ParseFraction(human)
		if err != nil {
			return errors.Wrap(err, "fraction string")
		}
		*f = frac
		return nil
	}

	// A plain JSON number, ie. 1.8
	var num json.Number
	if err := json.Unmarshal(raw, &num); err == nil {
		frac, err := ParseFraction(num.String())
		if err != nil {
			return errors.Wrap(err, "fraction number")
		}
		*f = frac
		return nil
	}

	var frac struct {
		Numerator   uint64
		Denominator uint64
	}
	if err := json.Unmarshal(raw, &frac); err != nil {
		return err
	}
	f.Numerator = frac.Numerator
	f.Denominator = frac.Denominator
	return nil
}

// Set implements flag.Value interface.
func (f *Fraction) Set(raw string) error {
	frac, err := ParseFraction(raw)
	if err != nil {
		return err
	}
	*f = frac
	return nil
}

// Validate returns an error if this fraction represents an invalid value.
func (f Fraction) Validate() error {
	if f.Denominator == 0 {
		return errors.Wrap(errors.ErrState, "zero division")
	}
	return nil
}

// IsZero returns true if this fraction represents no value.
func (f Fraction) IsZero() bool {
	return f.Numerator == 0
}

// Normalize returns a new fraction instance that has its numerator and
// denominator reduced to the smallest possible representation.
func (f Fraction) Normalize() Fraction {
	div := gcd(f.Numerator, f.Denominator)
	if div == 0 {
		return f
	}
	return Fraction{
		Numerator:   f.Numerator / div,
		Denominator: f.Denominator / div,
	}
}

func gcd(a, b uint64) uint64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// Mul returns the product of two fractions. The result is normalized.
func (f Fraction) Mul(o Fraction) (Fraction, error) {
	a, b := f.Normalize(), o.Normalize()
	// Cross reduce first to keep the values small.
	if g := gcd(a.Numerator, b.Denominator); g > 1 {
		a.Numerator /= g
		b.Denominator /= g
	}
	if g := gcd(b.Numerator, a.Denominator); g > 1 {
		b.Numerator /= g
		a.Denominator /= g
	}
	nhi, num := bits.Mul64(a.Numerator, b.Numerator)
	dhi, den := bits.Mul64(a.Denominator, b.Denominator)
	if nhi != 0 || dhi != 0 {
		return Fraction{}, errors.Wrapf(errors.ErrOverflow, "%s * %s", f, o)
	}
	return Fraction{Numerator: num, Denominator: den}.Normalize(), nil
}

// Apply multiplies given raw amount by this fraction and rounds the result
// to the nearest integer, halves rounded up.
func (f Fraction) Apply(x *uint256.Int) (*uint256.Int, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if x == nil {
		x = new(uint256.Int)
	}
	num, overflow := new(uint256.Int).MulOverflow(x, uint256.NewInt(f.Numerator))
	if overflow {
		return nil, errors.ErrOverflow
	}
	// round(num / den) == (2*num + den) / (2*den)
	num, overflow = new(uint256.Int).MulOverflow(num, uint256.NewInt(2))
	if overflow {
		return nil, errors.ErrOverflow
	}
	den := new(uint256.Int).Mul(uint256.NewInt(f.Denominator), uint256.NewInt(2))
	num, overflow = new(uint256.Int).AddOverflow(num, uint256.NewInt(f.Denominator))
	if overflow {
		return nil, errors.ErrOverflow
	}
	return new(uint256.Int).Div(num, den), nil
}

// ApplyUint64 works like Apply but for values that must fit in uint64, ie.
// gas units.
func (f Fraction) ApplyUint64(x uint64) (uint64, error) {
	res, err := f.Apply(uint256.NewInt(x))
	if err != nil {
		return 0, err
	}
	if !res.IsUint64() {
		return 0, errors.Wrap(errors.ErrOverflow, "uint64")
	}
	return res.Uint64(), nil
}

// ParseFraction returns a fraction value that is represented by given
// string. Accepted formats are "<numerator>/<denominator>", an integer or a
// decimal number, ie. "9/5", "2" or "0.0025".
// This fuction does not fail if representation format is correct but the value
// is invalid (i.e. value of "2/0").
func ParseFraction(raw string) (Fraction, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Fraction{}, errors.Wrap(errors.ErrEmpty, "fraction")
	}
	if chunks := strings.SplitN(raw, "/", 2); len(chunks) == 2 {
		n, err := strconv.ParseUint(chunks[0], 10, 64)
		if err != nil {
			return Fraction{}, errors.Wrap(errors.ErrInput, "numerator")
		}
		d, err := strconv.ParseUint(chunks[1], 10, 64)
		if err != nil {
			return Fraction{}, errors.Wrap(errors.ErrInput, "denominator")
		}
		return Fraction{Numerator: n, Denominator: d}, nil
	}

	whole, frac := raw, ""
	if i := strings.IndexByte(raw, '.'); i >= 0 {
		whole, frac = raw[:i], raw[i+1:]
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > 18 {
		return Fraction{}, errors.Wrapf(errors.ErrInput, "%q: too many decimal places", raw)
	}
	n, err := strconv.ParseUint(whole+frac, 10, 64)
	if err != nil {
		return Fraction{}, errors.Wrapf(errors.ErrInput, "%q is not a number", raw)
	}
	d := uint64(1)
	for i := 0; i < len(frac); i++ {
		d *= 10
	}
	return NewFraction(n, d), nil
}

// MustParseFraction is like ParseFraction but panics on error. Use it only
// for constants.
func MustParseFraction(raw string) Fraction {
	f, err := ParseFraction(raw)
	if err != nil {
		panic(err)
	}
	return f
}
