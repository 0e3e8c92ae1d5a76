package client

import (
	"context"
	"sync"
)

// sequenceQuerier returns the current sequence of an account.
type sequenceQuerier interface {
	Sequence(ctx context.Context, addr Address) (int64, error)
}

// Nonce has a client/address pair, queries for the nonce
// and caches recent nonce locally to quickly sign
type Nonce struct {
	mutex  sync.Mutex
	client sequenceQuerier
	addr   Address
	nonce  int64
	cached bool
}

// NewNonce creates a nonce for a client / address pair.
// Call Query to force a query, Next to use cache if possible
func NewNonce(client sequenceQuerier, addr Address) *Nonce {
	return &Nonce{client: client, addr: addr}
}

// Query always queries the blockchain for the next nonce
func (n *Nonce) Query(ctx context.Context) (int64, error) {
	seq, err := n.client.Sequence(ctx, n.addr)
	if err != nil {
		return 0, err
	}
	n.mutex.Lock()
	n.nonce = seq
	n.cached = true
	n.mutex.Unlock()
	return seq, nil
}

// Next will use a cached value if present, otherwise Query.
// It will always increment by 1, assuming the last nonce
// was properly used. This is designed for cases where
// you want to rapidly generate many transactions without
// querying the blockchain each time
func (n *Nonce) Next(ctx context.Context) (int64, error) {
	n.mutex.Lock()
	cached := n.cached
	n.mutex.Unlock()
	if !cached {
		return n.Query(ctx)
	}
	n.mutex.Lock()
	n.nonce++
	result := n.nonce
	n.mutex.Unlock()
	return result, nil
}

// Invalidate drops the cached value, so that the next call to Next queries
// the blockchain. Use it when it is not certain that the last nonce was
// used.
func (n *Nonce) Invalidate() {
	n.mutex.Lock()
	n.cached = false
	n.mutex.Unlock()
}
