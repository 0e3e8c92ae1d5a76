package client

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/iov-one/multisend/coin"
	"github.com/iov-one/multisend/errors"
	ctypes "github.com/tendermint/tendermint/rpc/core/types"
	tmtypes "github.com/tendermint/tendermint/types"
)

const (
	simulatePath = "/app/simulate"
	sequencePath = "/auth/sequence/"
	balancePath  = "/balance/"
)

// Client is a tendermint client wrapped to provide simple access to the
// queries and transaction submission used by a dispatch.
type Client struct {
	conn Conn
}

// NewClient wraps a Client around an existing tendermint client connection.
func NewClient(conn Conn) *Client {
	return &Client{conn: conn}
}

// ChainID returns the network name reported by the node.
func (c *Client) ChainID(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	status, err := c.conn.Status()
	if err != nil {
		return "", errors.Wrapf(errors.ErrNetwork, "status: %s", err)
	}
	return status.NodeInfo.Network, nil
}

// AbciQuery calls abci query on tendermint rpc and verifies that the
// response is not an error. Nil value is returned when nothing was found.
func (c *Client) AbciQuery(ctx context.Context, path string, data []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q, err := c.conn.ABCIQuery(path, data)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrNetwork, "query %s: %s", path, err)
	}
	resp := q.Response
	if resp.IsErr() {
		return nil, errors.Wrapf(errors.ErrDeliver, "query %s: (%d) %s", path, resp.Code, resp.Log)
	}
	return resp.Value, nil
}

// Simulate executes the transaction without committing it and returns the
// amount of gas it used.
func (c *Client) Simulate(ctx context.Context, tx *Tx) (uint64, error) {
	bz, err := tx.Marshal()
	if err != nil {
		return 0, err
	}
	raw, err := c.AbciQuery(ctx, simulatePath, bz)
	if err != nil {
		return 0, err
	}
	if len(raw) == 0 {
		return 0, errors.Wrap(errors.ErrEmpty, "simulate response")
	}
	var res SimulateResponse
	if err := cdc.UnmarshalBinaryBare(raw, &res); err != nil {
		return 0, errors.Wrapf(errors.ErrInput, "simulate response: %s", err)
	}
	return res.GasUsed, nil
}

// Sequence returns the sequence that the next transaction signed by given
// account must use. An account that never signed a transaction starts at
// zero.
func (c *Client) Sequence(ctx context.Context, addr Address) (int64, error) {
	if err := addr.Validate(); err != nil {
		return 0, errors.Wrap(err, "invalid address")
	}
	raw, err := c.AbciQuery(ctx, sequencePath+hex.EncodeToString(addr), nil)
	if err != nil {
		return 0, err
	}
	if len(raw) == 0 {
		return 0, nil
	}
	var res SequenceResponse
	if err := cdc.UnmarshalBinaryBare(raw, &res); err != nil {
		return 0, errors.Wrapf(errors.ErrInput, "sequence response: %s", err)
	}
	return res.Sequence, nil
}

// Balance returns the amount of given denomination owned by the account. An
// unknown account has a zero balance.
func (c *Client) Balance(ctx context.Context, addr Address, denom string) (coin.Coin, error) {
	if err := addr.Validate(); err != nil {
		return coin.Coin{}, errors.Wrap(err, "invalid address")
	}
	raw, err := c.AbciQuery(ctx, balancePath+denom+"/"+hex.EncodeToString(addr), nil)
	if err != nil {
		return coin.Coin{}, err
	}
	if len(raw) == 0 {
		return coin.NewCoin(0, denom), nil
	}
	var res BalanceResponse
	if err := cdc.UnmarshalBinaryBare(raw, &res); err != nil {
		return coin.Coin{}, errors.Wrapf(errors.ErrInput, "balance response: %s", err)
	}
	amount, err := coin.ParseHuman(res.Amount, 0)
	if err != nil {
		return coin.Coin{}, errors.Wrapf(err, "balance amount %q", res.Amount)
	}
	return coin.Coin{Amount: amount, Denom: denom}, nil
}

// BroadcastTxResponse is the result of submitting a transaction.
type BroadcastTxResponse struct {
	Hash   string
	Height int64
	// Err is not nil if the transaction was rejected, either by the
	// mempool check or when executed in a block.
	Err error
}

// BroadcastTx writes a serialized transaction to the blockchain. It returns
// when the transaction is committed. An error is returned only if the
// result is unknown.
func (c *Client) BroadcastTx(ctx context.Context, raw []byte) (*BroadcastTxResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res, err := c.conn.BroadcastTxCommit(tmtypes.Tx(raw))
	if err != nil {
		return nil, errors.Wrapf(errors.ErrNetwork, "broadcast: %s", err)
	}
	out := &BroadcastTxResponse{
		Hash:   TxHash(raw),
		Height: res.Height,
	}
	if len(res.Hash) > 0 {
		out.Hash = fmt.Sprintf("%X", []byte(res.Hash))
	}
	switch {
	case res.CheckTx.IsErr():
		out.Err = errors.Wrapf(errors.ErrDeliver, "check tx: (%d) %s", res.CheckTx.Code, res.CheckTx.Log)
	case res.DeliverTx.IsErr():
		out.Err = errors.Wrapf(errors.ErrDeliver, "deliver tx: (%d) %s", res.DeliverTx.Code, res.DeliverTx.Log)
	}
	return out, nil
}

// GetTx returns the committed transaction with given hash. ErrNotFound is
// returned if no such transaction was included in a block.
func (c *Client) GetTx(ctx context.Context, hash string) (*ctypes.ResultTx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bz, err := hex.DecodeString(hash)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInput, "hash %q: %s", hash, err)
	}
	tx, err := c.conn.Tx(bz, false)
	if err != nil {
		// Tendermint does not tell a missing transaction apart other than
		// by the message.
		if strings.Contains(err.Error(), "not found") {
			return nil, errors.Wrapf(errors.ErrNotFound, "tx %s", hash)
		}
		return nil, errors.Wrapf(errors.ErrNetwork, "get tx: %s", err)
	}
	return tx, nil
}

// TxHash returns the hash that tendermint uses to identify given
// serialized transaction.
func TxHash(raw []byte) string {
	return fmt.Sprintf("%X", tmtypes.Tx(raw).Hash())
}
