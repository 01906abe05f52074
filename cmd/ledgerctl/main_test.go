package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"

	"xdao.co/ledger/client"
	"xdao.co/ledger/config"
	"xdao.co/ledger/grpcnode"
	"xdao.co/ledger/keys"
	"xdao.co/ledger/ledger"
	"xdao.co/ledger/model"
	"xdao.co/ledger/network"
	"xdao.co/ledger/node"
	"xdao.co/ledger/storage/memory"
)

const seedHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

const testConfig = `
network: lab
operator:
  account_id: 0.0.2
  private_key: ` + seedHex + `
networks:
  lab:
    - {address: "127.0.0.1:50211", node_id: 0.0.3}
poll:
  interval: 10ms
  timeout: 2s
log:
  level: error
`

type harness struct {
	config string
	dialer client.Dialer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	for _, k := range []string{config.EnvNetwork, config.EnvOperatorID, config.EnvOperatorKey, config.EnvOperatorKeyFile, config.EnvMaxFee} {
		t.Setenv(k, "")
	}
	path := filepath.Join(t.TempDir(), "ledger.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0o600))

	id, err := keys.Load("0.0.2", seedHex, "")
	require.NoError(t, err)
	n := node.New(memory.New(), node.Config{})
	require.NoError(t, n.CreateAccount(context.Background(), id.AccountID, id.PublicKey, model.Hbar(100)))

	lis := bufconn.Listen(1024 * 1024)
	srv := grpc.NewServer()
	grpcnode.RegisterNodeServer(srv, &grpcnode.Server{Ledger: n})
	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)

	return &harness{
		config: path,
		dialer: func(context.Context, network.Endpoint) (client.NodeConn, error) {
			return grpcnode.Dial("passthrough:///bufnet", grpcnode.DialOptions{
				ContextDialer: func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) },
			})
		},
	}
}

func (h *harness) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := newRootCommand(ledger.WithDialer(h.dialer))
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", h.config}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCreateReadBalance(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "", "create", "hello-ledger")
	require.NoError(t, err)
	assert.Contains(t, out, "file: 0.0.1001")
	assert.Contains(t, out, "balance of 0.0.2:")

	out, err = h.run(t, "", "read", "0.0.1001")
	require.NoError(t, err)
	assert.Contains(t, out, "content: hello-ledger")
	assert.Contains(t, out, "balance of 0.0.2:")

	out, err = h.run(t, "", "balance")
	require.NoError(t, err)
	assert.Contains(t, out, "balance of 0.0.2:")
	assert.NotContains(t, out, "100 ℏ", "the create fee was charged")
}

func TestCreateFromStdinAsJSON(t *testing.T) {
	h := newHarness(t)

	out, err := h.run(t, "from stdin", "--format", "json", "create", "--file", "-")
	require.NoError(t, err)
	var r result
	require.NoError(t, json.Unmarshal([]byte(out), &r))
	assert.Equal(t, "0.0.1001", r.FileID)
	assert.Equal(t, "0.0.2", r.Account)
	assert.Less(t, r.Balance, model.Hbar(100).Tinybar())

	out, err = h.run(t, "", "--format", "json", "read", r.FileID)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &r))
	require.NotNil(t, r.Content)
	assert.Equal(t, "from stdin", *r.Content)
}

func TestReadMissingFile(t *testing.T) {
	h := newHarness(t)
	_, err := h.run(t, "", "read", "0.0.4242")
	require.Error(t, err)
	assert.True(t, model.IsCode(err, model.CodeResourceNotFound), "%v", err)
	assert.Equal(t, exitFailure, exitCode(err))
}

func TestUsageErrors(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "", "--format", "yaml", "balance")
	require.Error(t, err)
	assert.Equal(t, exitUsage, exitCode(err))

	_, err = h.run(t, "", "create")
	require.Error(t, err)
	assert.Equal(t, exitUsage, exitCode(err))

	_, err = h.run(t, "", "read", "file-one")
	assert.True(t, model.IsCode(err, model.CodeInvalidEntityID), "%v", err)
	assert.Equal(t, exitUsage, exitCode(err))

	_, err = h.run(t, "", "--network", "nowhere", "balance")
	assert.True(t, model.IsCode(err, model.CodeUnknownNetwork), "%v", err)
}

func TestNetworks(t *testing.T) {
	h := newHarness(t)
	out, err := h.run(t, "", "networks")
	require.NoError(t, err)
	for _, name := range []string{"lab", "testnet", "mainnet", "previewnet", "local"} {
		assert.Contains(t, out, name+"\t")
	}
	assert.Contains(t, out, "0.0.3@127.0.0.1:50211")
}

func TestCommandPresence(t *testing.T) {
	cmd := newRootCommand()
	for _, name := range []string{"create", "read", "balance", "networks"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, sub.Name())
	}
	f := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, f)
	assert.Equal(t, "text", f.DefValue)
}
