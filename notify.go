package multisend

import (
	"fmt"

	"github.com/iov-one/multisend/errors"
	"github.com/tendermint/tendermint/libs/log"
)

// NotifyKind is the kind of a transient status notification.
type NotifyKind int

const (
	NotifyBroadcasting NotifyKind = iota + 1
	NotifySuccess
	NotifyFailure
)

func (k NotifyKind) String() string {
	switch k {
	case NotifyBroadcasting:
		return "Transaction Broadcasting"
	case NotifySuccess:
		return "Transaction Successful"
	case NotifyFailure:
		return "Transaction Failed"
	default:
		return fmt.Sprintf("NotifyKind(%d)", int(k))
	}
}

// Notifier receives status notifications about submitted batches. It is
// used for observability only and cannot influence the dispatch.
type Notifier interface {
	Notify(kind NotifyKind, detail string)
}

// NotifierFunc is an adapter to allow the use of ordinary functions as
// notifiers.
type NotifierFunc func(kind NotifyKind, detail string)

func (fn NotifierFunc) Notify(kind NotifyKind, detail string) {
	fn(kind, detail)
}

// NewLogNotifier returns a notifier that writes all notifications to given
// logger.
func NewLogNotifier(logger log.Logger) Notifier {
	return NotifierFunc(func(kind NotifyKind, detail string) {
		if kind == NotifyFailure {
			logger.Error(kind.String(), "detail", detail)
		} else {
			logger.Info(kind.String(), "detail", detail)
		}
	})
}

// safeNotify calls the notifier and swallows any panic, so that a broken
// notifier never changes the dispatch flow.
func safeNotify(n Notifier, logger log.Logger, kind NotifyKind, detail string) {
	if n == nil {
		return
	}
	if err := notify(n, kind, detail); err != nil {
		logger.Error("notifier failed", "kind", kind, "err", err)
	}
}

func notify(n Notifier, kind NotifyKind, detail string) (err error) {
	defer errors.Recover(&err)
	n.Notify(kind, detail)
	return nil
}
