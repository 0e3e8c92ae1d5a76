package client

import (
	"context"

	"github.com/iov-one/multisend"
	"github.com/iov-one/multisend/coin"
	"github.com/iov-one/multisend/errors"
	"github.com/tendermint/tendermint/libs/log"
)

// Signer signs transactions with a single private key and submits them to a
// tendermint node.
type Signer struct {
	client  *Client
	key     *PrivateKey
	chainID string
	address string
	nonce   *Nonce
	logger  log.Logger
}

var (
	_ multisend.Signer   = (*Signer)(nil)
	_ multisend.TxLookup = (*Signer)(nil)
)

// NewSigner returns a signer of the account controlled by given key. The
// address of the account is presented using the bech32 prefix.
func NewSigner(c *Client, key *PrivateKey, chainID, prefix string, logger log.Logger) (*Signer, error) {
	if chainID == "" {
		return nil, errors.Wrap(errors.ErrEmpty, "chain id")
	}
	addr, err := key.Address().Bech32(prefix)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Signer{
		client:  c,
		key:     key,
		chainID: chainID,
		address: addr,
		nonce:   NewNonce(c, key.Address()),
		logger:  logger.With("module", "signer"),
	}, nil
}

// Address returns the bech32 address of the signing account.
func (s *Signer) Address() string {
	return s.address
}

// SimulateGas returns the gas used by a transaction with all given
// messages. The simulated transaction is not signed.
func (s *Signer) SimulateGas(ctx context.Context, msgs []multisend.Message) (uint64, error) {
	tx := buildTx(msgs, TxFee{}, "")
	return s.client.Simulate(ctx, tx)
}

// Sign returns the transaction signed with the next sequence of the
// account.
func (s *Signer) Sign(ctx context.Context, msgs []multisend.Message, fee multisend.Fee, memo string) (*multisend.SignedTx, error) {
	tx := buildTx(msgs, TxFee{
		Amount: coin.FormatRaw(fee.Amount.Amount),
		Denom:  fee.Amount.Denom,
		Gas:    fee.Gas,
	}, memo)

	seq, err := s.nonce.Next(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "sequence")
	}
	if err := SignTx(tx, s.key, s.chainID, seq); err != nil {
		return nil, err
	}
	raw, err := tx.Marshal()
	if err != nil {
		return nil, err
	}
	s.logger.Debug("signed", "sequence", seq, "messages", len(msgs))
	return &multisend.SignedTx{Raw: raw, Hash: TxHash(raw)}, nil
}

// Broadcast sends the transaction and waits until it is committed.
func (s *Signer) Broadcast(ctx context.Context, tx *multisend.SignedTx) (*multisend.BroadcastResult, error) {
	res, err := s.client.BroadcastTx(ctx, tx.Raw)
	if err != nil {
		// Whether the sequence was used is unknown.
		s.nonce.Invalidate()
		return nil, err
	}
	out := &multisend.BroadcastResult{
		DeliverSuccess: res.Err == nil,
		TxHash:         res.Hash,
		Height:         res.Height,
	}
	if res.Err != nil {
		s.nonce.Invalidate()
		out.RawLog = res.Err.Error()
	}
	return out, nil
}

// Committed returns true if the transaction with given hash was included in
// a block and executed successfully.
func (s *Signer) Committed(ctx context.Context, txHash string) (bool, error) {
	res, err := s.client.GetTx(ctx, txHash)
	if err != nil {
		if errors.ErrNotFound.Is(err) {
			return false, nil
		}
		return false, err
	}
	return res.TxResult.IsOK(), nil
}

// Balance returns the amount of given denomination owned by the signing
// account.
func (s *Signer) Balance(ctx context.Context, denom string) (coin.Coin, error) {
	return s.client.Balance(ctx, s.key.Address(), denom)
}

func buildTx(msgs []multisend.Message, fee TxFee, memo string) *Tx {
	tx := &Tx{
		Msgs: make([]Msg, len(msgs)),
		Fee:  fee,
		Memo: memo,
	}
	for i, m := range msgs {
		tx.Msgs[i] = Msg{Path: m.Path, Value: m.Value}
	}
	return tx
}

// SignTx modifies the tx in-place, adding a signature.
func SignTx(tx *Tx, key *PrivateKey, chainID string, seq int64) error {
	signBytes, err := tx.SignBytes()
	if err != nil {
		return err
	}
	toSign, err := BuildSignBytes(signBytes, chainID, seq)
	if err != nil {
		return errors.Wrap(errors.ErrSign, err.Error())
	}
	tx.Signatures = append(tx.Signatures, Signature{
		PubKey:    key.PublicKey(),
		Signature: key.Sign(toSign),
		Sequence:  seq,
	})
	return nil
}

// VerifyTx returns an error unless every signature of the transaction is
// valid for given chain.
func VerifyTx(tx *Tx, chainID string) error {
	if len(tx.Signatures) == 0 {
		return errors.Wrap(errors.ErrSign, "no signature")
	}
	signBytes, err := tx.SignBytes()
	if err != nil {
		return err
	}
	for i, sig := range tx.Signatures {
		toSign, err := BuildSignBytes(signBytes, chainID, sig.Sequence)
		if err != nil {
			return err
		}
		if !Verify(sig.PubKey, toSign, sig.Signature) {
			return errors.Wrapf(errors.ErrSign, "invalid signature %d", i)
		}
	}
	return nil
}
