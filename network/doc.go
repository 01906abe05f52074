// Package network resolves logical network names to the node endpoints a
// client session talks to.
//
// A Registry is immutable once built. Default returns the compiled-in
// networks; configured networks are layered on top with Registry.With.
package network
