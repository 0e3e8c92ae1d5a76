package multisend

import (
	"github.com/iov-one/multisend/errors"
)

// Message is a single encoded chain operation, ready to be included in a
// transaction. The dispatch engine never inspects the Value. ID is the
// correlation key assigned when the message was created and it must be
// unique within a run. Use it to find the transfer a failed message was
// created from.
type Message struct {
	ID    uint64
	Path  string
	Value []byte
}

// Validate returns an error if this message cannot be dispatched.
func (m Message) Validate() error {
	var errs error
	if m.Path == "" {
		errs = errors.AppendField(errs, "Path", errors.ErrEmpty)
	}
	if len(m.Value) == 0 {
		errs = errors.AppendField(errs, "Value", errors.ErrEmpty)
	}
	return errs
}

// validateMessages ensures that all messages are valid and that each
// correlation ID is used only once.
func validateMessages(msgs []Message) error {
	seen := make(map[uint64]int, len(msgs))
	var errs error
	for i, m := range msgs {
		if prev, ok := seen[m.ID]; ok {
			errs = errors.Append(errs, errors.Wrapf(errors.ErrInput, "message %d reuses ID %d of message %d", i, m.ID, prev))
			continue
		}
		seen[m.ID] = i
		if err := m.Validate(); err != nil {
			errs = errors.Append(errs, errors.Wrapf(err, "message %d", i))
		}
	}
	return errs
}
