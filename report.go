package multisend

import (
	"github.com/google/btree"
)

// Outcome is the terminal result of a single batch.
type Outcome struct {
	BatchNumber int
	Success     bool
	// TxHash is set only for a successful batch.
	TxHash string
}

// Report is the result of a dispatch run. Outcomes are ordered by the batch
// number and only batches that were attempted are present.
type Report struct {
	Outcomes []Outcome
	// Halted is true if the run was stopped before all batches were
	// processed.
	Halted bool
	// Remaining are the batches that were never attempted because the run
	// was halted.
	Remaining []Batch

	failed *btree.BTree
}

func newReport() *Report {
	return &Report{failed: btree.New(8)}
}

func (r *Report) recordSuccess(number int, txHash string) {
	r.Outcomes = append(r.Outcomes, Outcome{
		BatchNumber: number,
		Success:     true,
		TxHash:      txHash,
	})
}

func (r *Report) recordFailure(b Batch) {
	r.Outcomes = append(r.Outcomes, Outcome{BatchNumber: b.Number})
	for _, m := range b.Messages {
		r.failed.ReplaceOrInsert(failedItem{m})
	}
}

// Failed returns all messages of batches that were not delivered, ordered
// by their correlation ID.
func (r *Report) Failed() []Message {
	if r.failed == nil {
		return nil
	}
	msgs := make([]Message, 0, r.failed.Len())
	r.failed.Ascend(func(i btree.Item) bool {
		msgs = append(msgs, i.(failedItem).Message)
		return true
	})
	return msgs
}

// Undelivered returns the failed messages together with the messages of
// all remaining batches, ordered by their correlation ID. It is the list of
// transfers that must be sent again to complete the run.
func (r *Report) Undelivered() []Message {
	if len(r.Remaining) == 0 {
		return r.Failed()
	}
	all := btree.New(8)
	for _, m := range r.Failed() {
		all.ReplaceOrInsert(failedItem{m})
	}
	for _, b := range r.Remaining {
		for _, m := range b.Messages {
			all.ReplaceOrInsert(failedItem{m})
		}
	}
	msgs := make([]Message, 0, all.Len())
	all.Ascend(func(i btree.Item) bool {
		msgs = append(msgs, i.(failedItem).Message)
		return true
	})
	return msgs
}

// IsFailed returns true if a message with given correlation ID belongs to a
// batch that was not delivered.
func (r *Report) IsFailed(id uint64) bool {
	if r.failed == nil {
		return false
	}
	return r.failed.Has(failedItem{Message{ID: id}})
}

// AnySucceeded returns true if at least one batch was delivered. A run where
// nothing was delivered must not trigger any success side effects.
func (r *Report) AnySucceeded() bool {
	return r.Succeeded() > 0
}

// Succeeded returns the number of delivered batches.
func (r *Report) Succeeded() int {
	var n int
	for _, o := range r.Outcomes {
		if o.Success {
			n++
		}
	}
	return n
}

// failedItem orders failed messages by their correlation ID.
type failedItem struct {
	Message
}

func (a failedItem) Less(b btree.Item) bool {
	return a.ID < b.(failedItem).ID
}
