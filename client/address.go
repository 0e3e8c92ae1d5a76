package client

import (
	"fmt"

	"github.com/btcsuite/btcutil/bech32"
	"github.com/iov-one/multisend/errors"
	"github.com/tendermint/tendermint/crypto/tmhash"
)

// AddressLen is the length of an account address in bytes.
const AddressLen = tmhash.TruncatedSize

// Address is a raw account address.
type Address []byte

// Bech32 returns the human readable form of the address using given prefix.
func (a Address) Bech32(prefix string) (string, error) {
	conv, err := bech32.ConvertBits(a, 8, 5, true)
	if err != nil {
		return "", errors.Wrapf(errors.ErrInput, "convert bits: %s", err)
	}
	s, err := bech32.Encode(prefix, conv)
	if err != nil {
		return "", errors.Wrapf(errors.ErrInput, "bech32: %s", err)
	}
	return s, nil
}

// String returns the hex representation of the address.
func (a Address) String() string {
	return fmt.Sprintf("%X", []byte(a))
}

// Validate returns an error if this is not a valid account address.
func (a Address) Validate() error {
	if len(a) != AddressLen {
		return errors.Wrapf(errors.ErrInput, "address must be %d bytes, got %d", AddressLen, len(a))
	}
	return nil
}

// ParseAddress decodes a bech32 address and ensures it uses the expected
// prefix. An empty prefix accepts any.
func ParseAddress(s, prefix string) (Address, error) {
	hrp, data, err := bech32.Decode(s)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInput, "%q: %s", s, err)
	}
	if prefix != "" && hrp != prefix {
		return nil, errors.Wrapf(errors.ErrInput, "%q: prefix %q, want %q", s, hrp, prefix)
	}
	raw, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInput, "%q: %s", s, err)
	}
	addr := Address(raw)
	if err := addr.Validate(); err != nil {
		return nil, err
	}
	return addr, nil
}
