package client

import (
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	abci "github.com/tendermint/tendermint/abci/types"
	"github.com/tendermint/tendermint/crypto/tmhash"
	cmn "github.com/tendermint/tendermint/libs/common"
	"github.com/tendermint/tendermint/p2p"
	ctypes "github.com/tendermint/tendermint/rpc/core/types"
	tmtypes "github.com/tendermint/tendermint/types"
)

// fakeConn is an in memory node. It executes every transaction that is
// correctly signed by an account with the expected sequence.
type fakeConn struct {
	chainID string

	mu        sync.Mutex
	sequences map[string]int64
	balances  map[string]string
	committed map[string]abci.ResponseDeliverTx
	gasPerMsg uint64
	// reject makes the next n broadcasts fail in DeliverTx.
	reject int
	// down makes every call fail with a transport error.
	down bool
	// lose makes the next n broadcasts commit the transaction but fail
	// with a transport error.
	lose int
}

var _ Conn = (*fakeConn)(nil)

func newFakeConn() *fakeConn {
	return &fakeConn{
		chainID:   "test-chain",
		sequences: make(map[string]int64),
		balances:  make(map[string]string),
		committed: make(map[string]abci.ResponseDeliverTx),
		gasPerMsg: 50000,
	}
}

func (c *fakeConn) Status() (*ctypes.ResultStatus, error) {
	if c.down {
		return nil, fmt.Errorf("connection refused")
	}
	return &ctypes.ResultStatus{NodeInfo: p2p.DefaultNodeInfo{Network: c.chainID}}, nil
}

func (c *fakeConn) ABCIQuery(path string, data cmn.HexBytes) (*ctypes.ResultABCIQuery, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.down {
		return nil, fmt.Errorf("connection refused")
	}

	var value []byte
	switch {
	case path == simulatePath:
		tx, err := ParseTx(data)
		if err != nil {
			return queryErr(2, err.Error()), nil
		}
		value = cdc.MustMarshalBinaryBare(&SimulateResponse{GasUsed: c.gasPerMsg * uint64(len(tx.Msgs))})
	case strings.HasPrefix(path, sequencePath):
		addr := strings.TrimPrefix(path, sequencePath)
		if seq, ok := c.sequences[addr]; ok {
			value = cdc.MustMarshalBinaryBare(&SequenceResponse{Sequence: seq})
		}
	case strings.HasPrefix(path, balancePath):
		key := strings.TrimPrefix(path, balancePath)
		if amount, ok := c.balances[key]; ok {
			value = cdc.MustMarshalBinaryBare(&BalanceResponse{Amount: amount})
		}
	default:
		return queryErr(6, "unknown path"), nil
	}
	return &ctypes.ResultABCIQuery{Response: abci.ResponseQuery{Value: value, Height: 7}}, nil
}

func queryErr(code uint32, log string) *ctypes.ResultABCIQuery {
	return &ctypes.ResultABCIQuery{Response: abci.ResponseQuery{Code: code, Log: log}}
}

func (c *fakeConn) BroadcastTxCommit(raw tmtypes.Tx) (*ctypes.ResultBroadcastTxCommit, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.down {
		return nil, fmt.Errorf("connection refused")
	}
	res := &ctypes.ResultBroadcastTxCommit{Hash: raw.Hash(), Height: 8}

	tx, err := ParseTx(raw)
	if err != nil {
		res.CheckTx = abci.ResponseCheckTx{Code: 2, Log: err.Error()}
		return res, nil
	}
	if err := VerifyTx(tx, c.chainID); err != nil {
		res.CheckTx = abci.ResponseCheckTx{Code: 4, Log: err.Error()}
		return res, nil
	}
	sig := tx.Signatures[0]
	addr := hex.EncodeToString(tmhash.SumTruncated(sig.PubKey))
	if sig.Sequence != c.sequences[addr] {
		res.CheckTx = abci.ResponseCheckTx{Code: 4, Log: fmt.Sprintf("invalid sequence %d", sig.Sequence)}
		return res, nil
	}
	c.sequences[addr]++

	if c.reject > 0 {
		c.reject--
		res.DeliverTx = abci.ResponseDeliverTx{Code: 11, Log: "out of gas"}
	}
	c.committed[fmt.Sprintf("%X", raw.Hash())] = res.DeliverTx

	if c.lose > 0 {
		c.lose--
		return nil, fmt.Errorf("timeout waiting for commit")
	}
	return res, nil
}

func (c *fakeConn) Tx(hash []byte, prove bool) (*ctypes.ResultTx, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.down {
		return nil, fmt.Errorf("connection refused")
	}
	res, ok := c.committed[fmt.Sprintf("%X", hash)]
	if !ok {
		return nil, fmt.Errorf("Tx (%X) not found", hash)
	}
	return &ctypes.ResultTx{Hash: hash, Height: 8, TxResult: res}, nil
}
