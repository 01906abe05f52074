package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"xdao.co/ledger/keys"
	"xdao.co/ledger/model"
	"xdao.co/ledger/node"
	"xdao.co/ledger/storage/memory"
)

func TestListBackends(t *testing.T) {
	var out, errOut bytes.Buffer
	if code := run(context.Background(), []string{"--list-backends"}, &out, &errOut); code != 0 {
		t.Fatalf("exit %d: %s", code, errOut.String())
	}
	lines := map[string]string{}
	for _, line := range strings.Split(strings.TrimSpace(out.String()), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			t.Fatalf("malformed line %q", line)
		}
		lines[fields[0]] = fields[1]
	}
	if lines["memory"] != "volatile" || lines["sqlite"] != "durable" {
		t.Fatalf("unexpected store table %q", out.String())
	}
}

func TestUnknownBackend(t *testing.T) {
	var out, errOut bytes.Buffer
	if code := run(context.Background(), []string{"--backend", "tape"}, &out, &errOut); code != 2 {
		t.Fatalf("expected exit 2, got %d", code)
	}
	if !strings.Contains(errOut.String(), "tape") {
		t.Fatalf("unexpected stderr %q", errOut.String())
	}
}

func TestBadGenesisKey(t *testing.T) {
	var out, errOut bytes.Buffer
	code := run(context.Background(), []string{"--genesis-account", "0.0.2", "--genesis-key", "nope"}, &out, &errOut)
	if code != 2 {
		t.Fatalf("expected exit 2, got %d (%s)", code, errOut.String())
	}
}

func TestGenesisIsCreatedOnce(t *testing.T) {
	ctx := context.Background()
	k, err := keys.NewEd25519FromSeed(make([]byte, 32))
	if err != nil {
		t.Fatal(err)
	}
	store := memory.New()
	n := node.New(store, node.Config{})
	g := genesis{account: "0.0.2", key: k.Public().String(), balance: "5"}
	if err := g.apply(ctx, store, n); err != nil {
		t.Fatalf("apply: %v", err)
	}

	g.balance = "7"
	if err := g.apply(ctx, store, n); err != nil {
		t.Fatalf("second apply: %v", err)
	}
	acct, err := store.GetAccount(ctx, model.EntityID{Num: 2})
	if err != nil {
		t.Fatalf("GetAccount: %v", err)
	}
	if acct.Balance != model.Hbar(5) {
		t.Fatalf("balance = %s, want 5 hbar", acct.Balance)
	}
}
