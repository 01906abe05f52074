package node

// Rejection and failure reasons reported by the node.
const (
	StatusInvalidTransaction       = "INVALID_TRANSACTION"
	StatusInvalidSignature         = "INVALID_SIGNATURE"
	StatusPayerAccountNotFound     = "PAYER_ACCOUNT_NOT_FOUND"
	StatusInsufficientTxFee        = "INSUFFICIENT_TX_FEE"
	StatusInsufficientPayerBalance = "INSUFFICIENT_PAYER_BALANCE"
	StatusTransactionExpired       = "TRANSACTION_EXPIRED"
	StatusInvalidTransactionStart  = "INVALID_TRANSACTION_START"
	StatusNotSupported             = "NOT_SUPPORTED"
	StatusInvalidFileID            = "INVALID_FILE_ID"
	StatusInvalidAccountID         = "INVALID_ACCOUNT_ID"
	StatusReceiptNotFound          = "RECEIPT_NOT_FOUND"
	// StatusFailInvalid marks a transaction the node could not settle.
	StatusFailInvalid = "FAIL_INVALID"
)
