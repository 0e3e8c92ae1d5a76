package errors

var (
	// ErrInput is returned when a value provided by the caller cannot be
	// used, ie. a non positive batch size or a malformed address.
	ErrInput = Register(2, "invalid input")

	// ErrEmpty is returned when a value fails a not empty assertion.
	ErrEmpty = Register(3, "value is empty")

	// ErrNotFound is used when a requested entity does not exist.
	ErrNotFound = Register(4, "not found")

	// ErrNetwork is returned whenever a remote node cannot be reached or
	// responds with a transport level failure.
	ErrNetwork = Register(5, "network")

	// ErrTimeout is returned when an operation did not finish in time.
	ErrTimeout = Register(6, "timeout")

	// ErrState is returned when an object is in an invalid state.
	ErrState = Register(7, "invalid state")

	// ErrSign is returned when a transaction could not be signed.
	ErrSign = Register(8, "cannot sign")

	// ErrDeliver is returned when a transaction was rejected by the chain,
	// either during the mempool check or when executed in a block.
	ErrDeliver = Register(9, "not delivered")

	// ErrEstimate is returned when a fee cannot be estimated. It must never
	// block a dispatch run.
	ErrEstimate = Register(10, "fee estimate unavailable")

	// ErrAmount stands for an invalid or insufficient amount.
	ErrAmount = Register(11, "invalid amount")

	// ErrOverflow is returned when a computation cannot be completed
	// because the result value exceeds the type.
	ErrOverflow = Register(12, "an operation cannot be completed due to value overflow")

	// ErrPanic is only set when we recover from a panic.
	ErrPanic = Register(111222, "panic")
)
