package client

import (
	"crypto/rand"
	"encoding/hex"
	"io/ioutil"
	"os"

	"github.com/iov-one/multisend/errors"
	"github.com/stellar/go/exp/crypto/derivation"
	"github.com/tendermint/tendermint/crypto/tmhash"
	"golang.org/x/crypto/ed25519"
)

// KeyPerm is the file permissions for saved private keys
const KeyPerm = 0600

// PrivateKey is an ed25519 key of an account.
type PrivateKey struct {
	key ed25519.PrivateKey
}

// GenPrivateKey creates a new random key.
func GenPrivateKey() (*PrivateKey, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrSign, "generate key: %s", err)
	}
	return &PrivateKey{key: priv}, nil
}

// PrivateKeyFromSeed returns the key derived from given 32 bytes seed.
func PrivateKeyFromSeed(seed []byte) (*PrivateKey, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, errors.Wrapf(errors.ErrInput, "seed must be %d bytes", ed25519.SeedSize)
	}
	return &PrivateKey{key: ed25519.NewKeyFromSeed(seed)}, nil
}

// DerivePrivateKey returns the key derived from a master seed using a
// hardened bip44 path, ie. "m/44'/118'/0'".
func DerivePrivateKey(seed []byte, path string) (*PrivateKey, error) {
	k, err := derivation.DeriveForPath(path, seed)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInput, "derive %q: %s", path, err)
	}
	return PrivateKeyFromSeed(k.Key)
}

// PublicKey returns the raw public key.
func (k *PrivateKey) PublicKey() []byte {
	return []byte(k.key.Public().(ed25519.PublicKey))
}

// Address returns the address of the account controlled by this key.
func (k *PrivateKey) Address() Address {
	return Address(tmhash.SumTruncated(k.PublicKey()))
}

// Sign returns the signature of given message.
func (k *PrivateKey) Sign(msg []byte) []byte {
	return ed25519.Sign(k.key, msg)
}

// Verify returns true if the signature of the message was created with the
// private key of given public key.
func Verify(pubKey, msg, sig []byte) bool {
	if len(pubKey) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pubKey), msg, sig)
}

// DecodePrivateKey reads a hex string created by EncodePrivateKey
// and returns the original PrivateKey
func DecodePrivateKey(hexKey string) (*PrivateKey, error) {
	data, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInput, "hex: %s", err)
	}
	if len(data) != ed25519.PrivateKeySize {
		return nil, errors.Wrap(errors.ErrInput, "invalid key length")
	}
	return &PrivateKey{key: ed25519.PrivateKey(data)}, nil
}

// EncodePrivateKey stores the private key as a hex string
// that can be saved and later loaded
func EncodePrivateKey(key *PrivateKey) string {
	return hex.EncodeToString(key.key)
}

// LoadPrivateKey will load a private key from a file,
// Which was previously written by SavePrivateKey
func LoadPrivateKey(filename string) (*PrivateKey, error) {
	raw, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrNotFound, "read key: %s", err)
	}
	return DecodePrivateKey(string(raw))
}

// SavePrivateKey will encode the private key in hex and write to
// the named file
//
// Refuses to overwrite a file unless force is true
func SavePrivateKey(key *PrivateKey, filename string, force bool) error {
	if err := canWrite(filename, force); err != nil {
		return err
	}
	if err := ioutil.WriteFile(filename, []byte(EncodePrivateKey(key)), KeyPerm); err != nil {
		return errors.Wrapf(errors.ErrInput, "write key: %s", err)
	}
	return nil
}

// canWrite will return an error if the file cannot be written
func canWrite(filename string, force bool) error {
	if force {
		return nil
	}
	_, err := os.Stat(filename)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrapf(errors.ErrInput, "stat %q: %s", filename, err)
	}
	return errors.Wrapf(errors.ErrState, "refusing to overwrite %q", filename)
}
