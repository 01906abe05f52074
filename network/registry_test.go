package network

import (
	"slices"
	"testing"

	"xdao.co/ledger/model"
)

func TestDefaultResolvesBuiltins(t *testing.T) {
	r := Default()
	want := []string{Local, Mainnet, Previewnet, Testnet}
	if got := r.Names(); !slices.Equal(got, want) {
		t.Fatalf("Names: got %v want %v", got, want)
	}

	for _, name := range r.Names() {
		set, err := r.Resolve(name)
		if err != nil {
			t.Fatalf("Resolve(%q) failed: %v", name, err)
		}
		if len(set) == 0 {
			t.Fatalf("Resolve(%q): empty set", name)
		}
		if err := set.Validate(); err != nil {
			t.Fatalf("Resolve(%q): invalid set: %v", name, err)
		}
	}

	set, err := r.Resolve(" TestNet ")
	if err != nil {
		t.Fatalf("Resolve is not case-insensitive: %v", err)
	}
	target, err := set[0].Target()
	if err != nil {
		t.Fatalf("Target failed: %v", err)
	}
	if target != "0.testnet.hedera.com:50211" || set[0].NodeID.String() != "0.0.3" {
		t.Fatalf("first testnet node: %s %s", target, set[0].NodeID)
	}
}

func TestResolveUnknownNetwork(t *testing.T) {
	_, err := Default().Resolve("moonnet")
	if !model.IsCode(err, model.CodeUnknownNetwork) {
		t.Fatalf("expected %s, got %v", model.CodeUnknownNetwork, err)
	}
	if model.KindOf(err) != model.KindConfiguration {
		t.Fatalf("kind: got %v", model.KindOf(err))
	}
}

func TestResolveReturnsCopy(t *testing.T) {
	r := Default()
	set, err := r.Resolve(Local)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	set[0].Address = "10.0.0.1:1"

	again, err := r.Resolve(Local)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if again[0].Address != "127.0.0.1:50211" {
		t.Fatalf("registry was mutated through a resolved set: %s", again[0].Address)
	}
}

func TestWithAddsNetworkWithoutMutating(t *testing.T) {
	base := Default()
	custom := EndpointSet{
		{Address: "/ip4/10.1.2.3/tcp/50211", NodeID: model.EntityID{Num: 3}},
		{Address: "node-b.internal:50211", NodeID: model.EntityID{Num: 4}},
	}
	ext, err := base.With("lab", custom)
	if err != nil {
		t.Fatalf("With failed: %v", err)
	}

	got, err := ext.Resolve("lab")
	if err != nil {
		t.Fatalf("Resolve(lab) failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("lab: got %d endpoints want 2", len(got))
	}

	if _, err := base.Resolve("lab"); !model.IsCode(err, model.CodeUnknownNetwork) {
		t.Fatalf("base registry gained lab: %v", err)
	}
	if _, err := base.With("empty", nil); !model.IsCode(err, model.CodeInvalidConfig) {
		t.Fatalf("empty network: expected %s, got %v", model.CodeInvalidConfig, err)
	}
}

func TestEndpointTarget(t *testing.T) {
	cases := []struct {
		addr string
		want string
		ok   bool
	}{
		{"/ip4/127.0.0.1/tcp/50211", "127.0.0.1:50211", true},
		{"/ip6/::1/tcp/50211", "[::1]:50211", true},
		{"/dns/node.example.com/tcp/443", "node.example.com:443", true},
		{"localhost:50211", "localhost:50211", true},
		{"/ip4/127.0.0.1/udp/50211", "", false},
		{"/tcp/50211", "", false},
		{"no-port", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := Endpoint{Address: tc.addr, NodeID: model.EntityID{Num: 3}}.Target()
		if !tc.ok {
			if err == nil {
				t.Fatalf("Target(%q): expected error, got %q", tc.addr, got)
			}
			continue
		}
		if err != nil {
			t.Fatalf("Target(%q) failed: %v", tc.addr, err)
		}
		if got != tc.want {
			t.Fatalf("Target(%q): got %q want %q", tc.addr, got, tc.want)
		}
	}
}

func TestValidateRejectsDuplicatesAndMissingNode(t *testing.T) {
	dup := EndpointSet{
		{Address: "127.0.0.1:1", NodeID: model.EntityID{Num: 3}},
		{Address: "/ip4/127.0.0.1/tcp/1", NodeID: model.EntityID{Num: 3}},
	}
	if err := dup.Validate(); err == nil {
		t.Fatalf("duplicate node ids accepted")
	}

	missing := EndpointSet{{Address: "127.0.0.1:1"}}
	if err := missing.Validate(); err == nil {
		t.Fatalf("endpoint without node id accepted")
	}
}
