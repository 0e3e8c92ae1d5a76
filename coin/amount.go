package coin

import (
	"strings"

	"github.com/holiman/uint256"
	"github.com/iov-one/multisend/errors"
)

// MaxExponent is the highest decimal exponent accepted for an asset.
const MaxExponent = 36

// ParseHuman converts a human readable decimal amount ("12.5") into the raw
// integer amount of an asset with given decimal exponent. Digits beyond the
// exponent precision are truncated (rounded down).
func ParseHuman(s string, exponent uint) (*uint256.Int, error) {
	if exponent > MaxExponent {
		return nil, errors.Wrapf(errors.ErrInput, "exponent %d too big", exponent)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.Wrap(errors.ErrEmpty, "amount")
	}

	whole, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	if whole == "" {
		whole = "0"
	}
	if s == "." || !isDigits(whole) || (frac != "" && !isDigits(frac)) {
		return nil, errors.Wrapf(errors.ErrAmount, "%q is not a decimal number", s)
	}

	if uint(len(frac)) > exponent {
		frac = frac[:exponent]
	} else {
		frac += strings.Repeat("0", int(exponent)-len(frac))
	}

	raw := strings.TrimLeft(whole+frac, "0")
	if raw == "" {
		return new(uint256.Int), nil
	}
	n, err := uint256.FromDecimal(raw)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrOverflow, "amount %q: %s", s, err)
	}
	return n, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Format returns the human readable representation of a raw amount of an
// asset with given decimal exponent. Trailing zeros are dropped.
func Format(raw *uint256.Int, exponent uint) string {
	s := FormatRaw(raw)
	if exponent == 0 {
		return s
	}
	if pad := int(exponent) + 1 - len(s); pad > 0 {
		s = strings.Repeat("0", pad) + s
	}
	cut := len(s) - int(exponent)
	whole, frac := s[:cut], strings.TrimRight(s[cut:], "0")
	if frac == "" {
		return whole
	}
	return whole + "." + frac
}

// FormatRaw returns the decimal representation of a raw amount. Nil is
// formatted as zero.
func FormatRaw(raw *uint256.Int) string {
	if raw == nil {
		return "0"
	}
	return raw.ToBig().String()
}

// Add returns the sum of two raw amounts. Nil is treated as zero.
func Add(a, b *uint256.Int) (*uint256.Int, error) {
	if a == nil {
		a = new(uint256.Int)
	}
	if b == nil {
		b = new(uint256.Int)
	}
	sum, overflow := new(uint256.Int).AddOverflow(a, b)
	if overflow {
		return nil, errors.ErrOverflow
	}
	return sum, nil
}

// Compare returns 1 if a is larger, -1 if b is larger, 0 if equal. Nil is
// treated as zero.
func Compare(a, b *uint256.Int) int {
	if a == nil {
		a = new(uint256.Int)
	}
	if b == nil {
		b = new(uint256.Int)
	}
	return a.Cmp(b)
}
