package client

import (
	"crypto/sha512"
	"encoding/binary"

	"github.com/iov-one/multisend/errors"
	amino "github.com/tendermint/go-amino"
)

var cdc = amino.NewCodec()

func init() {
	cdc.RegisterConcrete(&Tx{}, "multisend/Tx", nil)
	cdc.RegisterConcrete(&SimulateResponse{}, "multisend/SimulateResponse", nil)
	cdc.RegisterConcrete(&SequenceResponse{}, "multisend/SequenceResponse", nil)
	cdc.RegisterConcrete(&BalanceResponse{}, "multisend/BalanceResponse", nil)
}

// Codec returns the codec used to serialize transactions and query
// responses.
func Codec() *amino.Codec {
	return cdc
}

// Tx is a transaction carrying any number of messages, signed by a single
// account.
type Tx struct {
	Msgs       []Msg
	Fee        TxFee
	Memo       string
	Signatures []Signature
}

// Msg is a single encoded message. Path routes the message to its handler.
type Msg struct {
	Path  string
	Value []byte
}

// TxFee is the fee paid for the transaction. Amount is a decimal string of
// the raw amount.
type TxFee struct {
	Amount string
	Denom  string
	Gas    uint64
}

// Signature authorizes a transaction. Sequence must be equal to the signer
// account sequence.
type Signature struct {
	PubKey    []byte
	Signature []byte
	Sequence  int64
}

// SimulateResponse is the value returned by the simulate query.
type SimulateResponse struct {
	GasUsed uint64
}

// SequenceResponse is the value returned by the sequence query.
type SequenceResponse struct {
	Sequence int64
}

// BalanceResponse is the value returned by the balance query. Amount is a
// decimal string of the raw amount.
type BalanceResponse struct {
	Amount string
}

// Marshal serializes the transaction.
func (tx *Tx) Marshal() ([]byte, error) {
	bz, err := cdc.MarshalBinaryBare(tx)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInput, "marshal tx: %s", err)
	}
	return bz, nil
}

// SignBytes returns the serialized transaction without any signature.
func (tx *Tx) SignBytes() ([]byte, error) {
	unsigned := *tx
	unsigned.Signatures = nil
	return unsigned.Marshal()
}

// ParseTx loads a serialized transaction.
func ParseTx(raw []byte) (*Tx, error) {
	var tx Tx
	if err := cdc.UnmarshalBinaryBare(raw, &tx); err != nil {
		return nil, errors.Wrapf(errors.ErrInput, "unmarshal tx: %s", err)
	}
	return &tx, nil
}

// SignCodeV1 is the current way to prefix the bytes we use to build a
// signature.
const SignCodeV1 = "\xCA\xFE\x00\x01"

// BuildSignBytes combines all information on the signed content into one
// byte slice to be signed.
func BuildSignBytes(signBytes []byte, chainID string, seq int64) ([]byte, error) {
	if seq < 0 {
		return nil, errors.Wrap(errors.ErrInput, "negative sequence")
	}
	if chainID == "" || len(chainID) > 255 {
		return nil, errors.Wrapf(errors.ErrInput, "chain id: %q", chainID)
	}

	// encode nonce as 8 byte, big-endian
	nonce := make([]byte, 8)
	binary.BigEndian.PutUint64(nonce, uint64(seq))

	output := make([]byte, 0, len(SignCodeV1)+1+len(chainID)+8+len(signBytes))
	output = append(output, []byte(SignCodeV1)...)
	output = append(output, uint8(len(chainID)))
	output = append(output, []byte(chainID)...)
	output = append(output, nonce...)
	output = append(output, signBytes...)

	// sha512 gives a constant length input to ed25519.
	hashed := sha512.Sum512(output)
	return hashed[:], nil
}
