package client

import (
	"sync"
	"time"

	"xdao.co/ledger/keys"
	"xdao.co/ledger/model"
)

// Request is one pending request, built once and passed by value.
//
// For Submit, Payload is a signed wire.SignedTransaction; for Query it is a
// wire.Query. Signer and FeeLimit record what the request was built with;
// Target is the resource a read addresses, nil for creates.
type Request struct {
	Payload  []byte
	Signer   *keys.Identity
	FeeLimit model.Amount
	Target   *model.EntityID
}

// Handle identifies a transaction a node accepted.
type Handle struct {
	TransactionID string
	// NodeID is the node that accepted the transaction.
	NodeID      model.EntityID
	SubmittedAt time.Time

	mu       sync.Mutex
	terminal *model.Receipt
}

// Terminal returns the final receipt once one was recorded.
func (h *Handle) Terminal() (model.Receipt, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.terminal == nil {
		return model.Receipt{}, false
	}
	return *h.terminal, true
}

// Record stores r if it is terminal and no terminal receipt was recorded
// before. It returns the receipt the handle holds afterwards.
func (h *Handle) Record(r model.Receipt) model.Receipt {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.terminal != nil {
		return *h.terminal
	}
	if r.IsTerminal() {
		h.terminal = &r
	}
	return r
}
