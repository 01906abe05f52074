package network

import (
	"sort"
	"strings"

	"xdao.co/ledger/model"
)

// Well-known network names.
const (
	Mainnet    = "mainnet"
	Testnet    = "testnet"
	Previewnet = "previewnet"
	Local      = "local"
)

// Registry maps network names to endpoint sets. The zero value is empty;
// a Registry is never mutated after construction.
type Registry struct {
	networks map[string]EndpointSet
}

// NewRegistry builds a registry from the given sets. Every set must validate.
func NewRegistry(networks map[string]EndpointSet) (Registry, error) {
	out := Registry{networks: make(map[string]EndpointSet, len(networks))}
	for name, set := range networks {
		key := normalize(name)
		if key == "" {
			return Registry{}, model.Errorf(model.CodeInvalidConfig, "network name is required")
		}
		if err := set.Validate(); err != nil {
			return Registry{}, model.Wrap(model.CodeInvalidConfig, "network "+key, err)
		}
		out.networks[key] = set.Clone()
	}
	return out, nil
}

// With returns a copy of r that also (or instead) maps name to set.
func (r Registry) With(name string, set EndpointSet) (Registry, error) {
	merged := make(map[string]EndpointSet, len(r.networks)+1)
	for k, v := range r.networks {
		merged[k] = v
	}
	merged[normalize(name)] = set
	return NewRegistry(merged)
}

// Resolve returns the endpoint set for name. Unknown names fail with
// UnknownNetwork.
func (r Registry) Resolve(name string) (EndpointSet, error) {
	set, ok := r.networks[normalize(name)]
	if !ok {
		return nil, model.Errorf(model.CodeUnknownNetwork, "unknown network %q (known: %s)", name, strings.Join(r.Names(), ", "))
	}
	return set.Clone(), nil
}

// Names returns the known network names, sorted.
func (r Registry) Names() []string {
	out := make([]string, 0, len(r.networks))
	for k := range r.networks {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func node(num uint64, addr string) Endpoint {
	return Endpoint{Address: addr, NodeID: model.EntityID{Num: num}}
}

// builtin holds the public address books and the local ledgerd node. The
// public nodes only answer once they front a ledgerd service; until then
// calls fail with SubmissionRejected naming the missing service.
var builtin = map[string]EndpointSet{
	Mainnet: {
		node(3, "/ip4/35.237.200.180/tcp/50211"),
		node(4, "/ip4/35.186.191.247/tcp/50211"),
		node(5, "/ip4/35.192.2.25/tcp/50211"),
		node(6, "/ip4/35.199.161.108/tcp/50211"),
	},
	Testnet: {
		node(3, "/dns4/0.testnet.hedera.com/tcp/50211"),
		node(4, "/dns4/1.testnet.hedera.com/tcp/50211"),
		node(5, "/dns4/2.testnet.hedera.com/tcp/50211"),
		node(6, "/dns4/3.testnet.hedera.com/tcp/50211"),
	},
	Previewnet: {
		node(3, "/dns4/0.previewnet.hedera.com/tcp/50211"),
		node(4, "/dns4/1.previewnet.hedera.com/tcp/50211"),
		node(5, "/dns4/2.previewnet.hedera.com/tcp/50211"),
		node(6, "/dns4/3.previewnet.hedera.com/tcp/50211"),
	},
	Local: {
		node(3, "127.0.0.1:50211"),
	},
}

// Default returns the registry of compiled-in networks.
func Default() Registry {
	r, err := NewRegistry(builtin)
	if err != nil {
		panic(err)
	}
	return r
}
