package multisend

import (
	"context"
	"fmt"
	"sync"

	"github.com/iov-one/multisend/coin"
	"github.com/iov-one/multisend/errors"
)

// attempt scripts the result of a single broadcast.
type attempt struct {
	// fail makes the chain reject the transaction.
	fail bool
	// lost makes the broadcast return a transport error.
	lost bool
	// empty makes the broadcast return neither a result nor an error.
	empty bool
}

// testSigner is a Signer that returns scripted results. Broadcasts that
// were not scripted succeed.
type testSigner struct {
	addr    string
	gas     uint64
	simErr  error
	signErr error
	script  []attempt

	mu       sync.Mutex
	sequence int
	sent     []string
	fees     []Fee
	memos    []string
	lookups  []string
}

var _ Signer = (*testSigner)(nil)

func newTestSigner(script ...attempt) *testSigner {
	return &testSigner{
		addr:   "cosmos1testaccount",
		gas:    100000,
		script: script,
	}
}

func (s *testSigner) Address() string { return s.addr }

func (s *testSigner) SimulateGas(ctx context.Context, msgs []Message) (uint64, error) {
	if s.simErr != nil {
		return 0, s.simErr
	}
	return s.gas * uint64(len(msgs)), nil
}

func (s *testSigner) Sign(ctx context.Context, msgs []Message, fee Fee, memo string) (*SignedTx, error) {
	if s.signErr != nil {
		return nil, s.signErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sequence++
	s.fees = append(s.fees, fee)
	s.memos = append(s.memos, memo)
	return &SignedTx{
		Raw:  []byte(memo),
		Hash: fmt.Sprintf("HASH%d", s.sequence),
	}, nil
}

func (s *testSigner) Broadcast(ctx context.Context, tx *SignedTx) (*BroadcastResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// The memo identifies the batch.
	s.sent = append(s.sent, string(tx.Raw))

	var a attempt
	if len(s.script) > 0 {
		a, s.script = s.script[0], s.script[1:]
	}
	switch {
	case a.lost:
		return nil, errors.Wrap(errors.ErrTimeout, "no response")
	case a.fail:
		return &BroadcastResult{RawLog: "out of gas"}, nil
	case a.empty:
		return nil, nil
	}
	return &BroadcastResult{DeliverSuccess: true, TxHash: tx.Hash, Height: 10}, nil
}

// broadcasts returns the number of broadcast attempts.
func (s *testSigner) broadcasts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}

// lookupSigner is a testSigner that can verify transactions.
type lookupSigner struct {
	*testSigner
	committed map[string]bool
	err       error
}

var _ TxLookup = (*lookupSigner)(nil)

func (s *lookupSigner) Committed(ctx context.Context, txHash string) (bool, error) {
	s.mu.Lock()
	s.lookups = append(s.lookups, txHash)
	s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	return s.committed[txHash], nil
}

func testMessages(n int) []Message {
	msgs := make([]Message, n)
	for i := range msgs {
		msgs[i] = Message{
			ID:    uint64(i + 1),
			Path:  "/cosmos.bank.v1beta1.MsgSend",
			Value: []byte(fmt.Sprintf("transfer %d", i+1)),
		}
	}
	return msgs
}

func testConfig(batchSize int) Config {
	conf := DefaultConfig()
	conf.BatchSize = batchSize
	conf.FeeDenom = "uatom"
	conf.FeeExponent = 6
	conf.FeeSymbol = "ATOM"
	conf.GasPrice = coin.MustParseFraction("0.025")
	conf.MemoPrefix = "Multisend"
	conf.TokenSymbol = "ATOM"
	return conf
}
