// Package storage defines the state contract of a ledger node: accounts,
// files, receipts and the entity counter.
//
// Backends live in subpackages and register themselves with
// storage/registry. storage/testkit holds the conformance suite every
// backend runs.
package storage
