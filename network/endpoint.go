package network

import (
	"net"
	"strings"

	ma "github.com/multiformats/go-multiaddr"

	"xdao.co/ledger/model"
)

// Endpoint is one consensus node: where to dial it and which node account it
// answers for.
//
// Address is either a multiaddr ("/dns4/0.testnet.hedera.com/tcp/50211") or a
// plain "host:port".
type Endpoint struct {
	Address string
	NodeID  model.EntityID
}

func (e Endpoint) String() string {
	return e.NodeID.String() + "@" + e.Address
}

// Target returns the host:port a transport should dial.
func (e Endpoint) Target() (string, error) {
	addr := strings.TrimSpace(e.Address)
	if addr == "" {
		return "", model.Errorf(model.CodeInvalidConfig, "endpoint %s: empty address", e.NodeID)
	}
	if !strings.HasPrefix(addr, "/") {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			return "", model.Wrap(model.CodeInvalidConfig, "endpoint "+e.NodeID.String(), err)
		}
		return addr, nil
	}

	m, err := ma.NewMultiaddr(addr)
	if err != nil {
		return "", model.Wrap(model.CodeInvalidConfig, "endpoint "+e.NodeID.String()+": invalid multiaddr", err)
	}
	var host string
	for _, code := range []int{ma.P_DNS4, ma.P_DNS6, ma.P_DNS, ma.P_IP4, ma.P_IP6} {
		if v, err := m.ValueForProtocol(code); err == nil {
			host = v
			break
		}
	}
	if host == "" {
		return "", model.Errorf(model.CodeInvalidConfig, "endpoint %s: multiaddr %s has no host component", e.NodeID, addr)
	}
	port, err := m.ValueForProtocol(ma.P_TCP)
	if err != nil {
		return "", model.Errorf(model.CodeInvalidConfig, "endpoint %s: multiaddr %s has no tcp port", e.NodeID, addr)
	}
	return net.JoinHostPort(host, port), nil
}

// EndpointSet is the ordered node list of one network.
type EndpointSet []Endpoint

// Validate checks that s is non-empty and every endpoint is dialable and
// names a node.
func (s EndpointSet) Validate() error {
	if len(s) == 0 {
		return model.Errorf(model.CodeInvalidConfig, "endpoint set is empty")
	}
	seen := make(map[string]struct{}, len(s))
	for _, e := range s {
		if e.NodeID.IsZero() {
			return model.Errorf(model.CodeInvalidConfig, "endpoint %q: missing node id", e.Address)
		}
		target, err := e.Target()
		if err != nil {
			return err
		}
		key := e.NodeID.String() + "@" + target
		if _, dup := seen[key]; dup {
			return model.Errorf(model.CodeInvalidConfig, "duplicate endpoint %s", key)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// Clone returns a copy that does not share backing storage with s.
func (s EndpointSet) Clone() EndpointSet {
	return append(EndpointSet(nil), s...)
}
