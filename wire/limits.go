package wire

// Protocol limits enforced by nodes and checked by builders before any
// network call.
const (
	// MaxContentSize bounds the contents of one file create.
	MaxContentSize = 4096
	// MaxTransactionSize bounds an encoded SignedTransaction.
	MaxTransactionSize = 6144
)
