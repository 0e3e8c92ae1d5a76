package multisend

import (
	"context"

	"github.com/iov-one/multisend/coin"
)

// Signer is the capability of a single account to simulate, sign and
// broadcast transactions.
//
// Signing consumes the account sequence number. A signer must be used by
// only one dispatch run at a time and the engine never submits two batches
// of a run concurrently.
type Signer interface {
	// Address returns the address of the account that signs.
	Address() string

	// SimulateGas returns the amount of gas that executing given messages
	// as a single transaction would use.
	SimulateGas(ctx context.Context, msgs []Message) (uint64, error)

	// Sign returns a signed transaction containing all given messages.
	Sign(ctx context.Context, msgs []Message, fee Fee, memo string) (*SignedTx, error)

	// Broadcast sends a signed transaction and waits until it is included
	// in a block. An error is returned only when the result of the
	// broadcast is unknown, ie. because of a network failure. A
	// transaction rejected by the chain is reported by the result.
	Broadcast(ctx context.Context, tx *SignedTx) (*BroadcastResult, error)
}

// TxLookup is implemented by signers that can tell whether a transaction
// with given hash was included in a block.
type TxLookup interface {
	Committed(ctx context.Context, txHash string) (bool, error)
}

// Fee is the fee attached to a transaction.
type Fee struct {
	Amount coin.Coin `json:"amount"`
	Gas    uint64    `json:"gas"`
}

// SignedTx is a serialized, signed transaction.
type SignedTx struct {
	Raw  []byte
	Hash string
}

// BroadcastResult is the chain response to a broadcast transaction.
type BroadcastResult struct {
	// DeliverSuccess is true only if the transaction was executed in a
	// block without an error. Being accepted into the mempool is not
	// enough.
	DeliverSuccess bool
	TxHash         string
	Height         int64
	RawLog         string
}
