// Package keys is the operator credential store.
//
// It parses account identifiers and private key material into an Identity,
// derives (or checks) the matching public key, and signs transaction bodies.
// Everything here is pure: no network access, no filesystem access except the
// explicit ReadKeyFile helper.
//
// Supported schemes:
//   - ed25519 (the default; also accepts the DER-hex export format used by
//     ledger SDKs)
//   - dilithium3 (post-quantum; signatures cover sha3-256 of the message)
package keys
