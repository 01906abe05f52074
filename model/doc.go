// Package model defines the boundary types shared by every ledger client layer:
// entity identifiers, hbar amounts, receipts and the error taxonomy.
//
// Types in this package carry no network or signing behavior. They are the only
// values intended to cross package boundaries (and to be rendered by CLIs).
package model
