package multisend

import (
	"github.com/iov-one/multisend/errors"
)

// Batch is an ordered, non empty group of messages that is submitted as a
// single transaction. Number is the 1-based position of the batch in the
// plan.
type Batch struct {
	Number   int
	Messages []Message
}

// Plan splits given messages into batches of at most size messages each,
// preserving the order. Only the last batch can be smaller. No batch is
// returned for an empty message list.
//
// Returned batches share the message values with the input but not the
// slice backing array, so appending to a batch never affects another one.
func Plan(msgs []Message, size int) ([]Batch, error) {
	if size < 1 {
		return nil, errors.Wrapf(errors.ErrInput, "batch size must be positive, got %d", size)
	}

	batches := make([]Batch, 0, BatchCount(len(msgs), size))
	for start := 0; start < len(msgs); start += size {
		end := start + size
		if end > len(msgs) {
			end = len(msgs)
		}
		chunk := make([]Message, end-start)
		copy(chunk, msgs[start:end])
		batches = append(batches, Batch{
			Number:   len(batches) + 1,
			Messages: chunk,
		})
	}
	return batches, nil
}

// BatchCount returns the number of batches Plan creates for n messages.
func BatchCount(n, size int) int {
	if size < 1 || n <= 0 {
		return 0
	}
	return (n + size - 1) / size
}
