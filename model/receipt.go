package model

// ReceiptStatus is the lifecycle state of a submitted transaction as reported by the network.
type ReceiptStatus uint8

const (
	ReceiptPending ReceiptStatus = iota
	ReceiptSuccess
	ReceiptFailed
)

func (s ReceiptStatus) String() string {
	switch s {
	case ReceiptPending:
		return "PENDING"
	case ReceiptSuccess:
		return "SUCCESS"
	case ReceiptFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Receipt is the network's confirmation of a transaction's outcome.
//
// ResourceID is set only for successful transactions that create an entity.
// Reason is set only for failed transactions.
type Receipt struct {
	Status     ReceiptStatus
	Reason     string
	ResourceID *EntityID
}

// IsTerminal reports whether the receipt will never change again.
func (r Receipt) IsTerminal() bool {
	return r.Status == ReceiptSuccess || r.Status == ReceiptFailed
}
