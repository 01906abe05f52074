// Package node is a single ledger node: it validates signed transactions,
// queues them for consensus, settles them in submission order and answers
// queries from its storage.Store.
//
// Settlement is lazy. A transaction becomes final once ConsensusDelay has
// passed and the node next handles a call (or Settle is invoked).
package node
