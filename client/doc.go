// Package client owns the connections to a ledger network and exposes the
// submit and query primitives everything else is built on.
//
// A Session is opened once with an endpoint set, a default signer and a
// default fee limit. It is safe for concurrent use. Each call picks a node
// round robin, skips nodes that recently failed, and retries
// NodeUnreachable failures against other nodes with exponential backoff.
// Rejections are never retried.
package client
