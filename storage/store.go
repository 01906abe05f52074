package storage

import (
	"context"
	"errors"

	"xdao.co/ledger/model"
)

var (
	ErrNotFound = errors.New("storage: not found")
	ErrExists   = errors.New("storage: already exists")
)

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// Account is a funded ledger account.
type Account struct {
	ID      model.EntityID
	Balance model.Amount
	// Key is the scheme-tagged public key that must sign for the account.
	Key []byte
}

// File is an immutable stored file.
type File struct {
	ID            model.EntityID
	Keys          [][]byte
	Contents      []byte
	Memo          string
	TransactionID string
}

// Settlement is the outcome of one transaction, applied atomically.
type Settlement struct {
	TransactionID string
	Payer         model.EntityID
	// Fee is debited from Payer.
	Fee model.Amount
	// File is created when non-nil. The store assigns File.ID.Num in the
	// same write: the next unused number, never lower than EntityFloor.
	// Shard and Realm are kept as given.
	File        *File
	EntityFloor uint64
	// Receipt is stored as given, except that a successful receipt for a
	// new file gets the assigned id as its ResourceID.
	Receipt model.Receipt
}

// Store is the node's state.
//
// Contract:
// - Getters MUST return ErrNotFound for absent entries.
// - Files and terminal receipts are immutable once written.
// - Settle MUST apply all of its effects or none, entity number included:
//   a failed Settle leaves no gap in the numbering.
type Store interface {
	PutAccount(ctx context.Context, a Account) error
	GetAccount(ctx context.Context, id model.EntityID) (Account, error)
	GetFile(ctx context.Context, id model.EntityID) (File, error)

	// PutReceipt records a receipt for txID. A terminal receipt is never
	// replaced; writing over one fails with ErrExists.
	PutReceipt(ctx context.Context, txID string, r model.Receipt) error
	GetReceipt(ctx context.Context, txID string) (model.Receipt, error)

	// Settle applies s and returns the receipt as stored.
	Settle(ctx context.Context, s Settlement) (model.Receipt, error)
	Close() error
}
