// Command ledgerd serves an in-process ledger node over gRPC.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"xdao.co/ledger/grpcnode"
	"xdao.co/ledger/internal/logging"
	"xdao.co/ledger/keys"
	"xdao.co/ledger/model"
	"xdao.co/ledger/node"
	"xdao.co/ledger/storage"
	"xdao.co/ledger/storage/registry"

	_ "xdao.co/ledger/storage/memory"
	_ "xdao.co/ledger/storage/sqlite"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

type genesis struct {
	account string
	key     string
	balance string
}

func run(ctx context.Context, args []string, out, errOut io.Writer) int {
	fs := flag.NewFlagSet("ledgerd", flag.ContinueOnError)
	fs.SetOutput(errOut)
	listen := fs.String("listen", "127.0.0.1:50211", "listen address")
	backend := fs.String("backend", "memory", "storage backend name")
	listBackends := fs.Bool("list-backends", false, "List supported backends and exit")
	logLevel := fs.String("log-level", "info", "log level")
	logFormat := fs.String("log-format", "console", "log format (json|console)")
	firstNum := fs.Uint64("first-entity-num", 1001, "lowest entity number assigned to new files")
	delay := fs.Duration("consensus-delay", 2*time.Second, "how long transactions stay pending")
	settleEvery := fs.Duration("settle-interval", 500*time.Millisecond, "how often due transactions are settled")
	maxMsg := fs.Int("max-msg-bytes", 0, "gRPC max message size (0 = default)")
	var g genesis
	fs.StringVar(&g.account, "genesis-account", "", "account created at startup if missing (e.g. 0.0.2)")
	fs.StringVar(&g.key, "genesis-key", "", "public key of the genesis account")
	fs.StringVar(&g.balance, "genesis-balance", "10000", "initial balance of the genesis account in hbar")

	registry.RegisterFlags(fs)

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *listBackends {
		if err := registry.WriteTable(out); err != nil {
			fmt.Fprintln(errOut, err)
			return 1
		}
		return 0
	}

	log, err := logging.NewTo(errOut, *logLevel, *logFormat)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}
	defer func() { _ = log.Sync() }()

	store, err := registry.Open(*backend)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}
	defer store.Close()

	n := node.New(store, node.Config{
		FirstEntityNum: *firstNum,
		ConsensusDelay: *delay,
		Logger:         log,
	})
	if err := g.apply(ctx, store, n); err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}

	lis, err := net.Listen("tcp", *listen)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	defer lis.Close()

	opts := []grpc.ServerOption{grpc.UnaryInterceptor(grpcnode.LoggingInterceptor(log))}
	if *maxMsg > 0 {
		opts = append(opts, grpc.MaxRecvMsgSize(*maxMsg), grpc.MaxSendMsgSize(*maxMsg))
	}
	s := grpc.NewServer(opts...)
	grpcnode.RegisterNodeServer(s, &grpcnode.Server{Ledger: n})

	go n.Run(ctx, *settleEvery)
	go func() {
		<-ctx.Done()
		s.GracefulStop()
	}()

	log.Info("ledgerd listening", zap.String("addr", lis.Addr().String()), zap.String("backend", *backend))
	if err := s.Serve(lis); err != nil {
		log.Error("serve", zap.Error(err))
		return 1
	}
	return 0
}

// apply creates the genesis account unless the store already has it.
func (g genesis) apply(ctx context.Context, store storage.Store, n *node.Node) error {
	if g.account == "" {
		return nil
	}
	id, err := model.ParseEntityID(g.account)
	if err != nil {
		return err
	}
	if _, err := store.GetAccount(ctx, id); err == nil {
		return nil
	} else if !storage.IsNotFound(err) {
		return err
	}
	if g.key == "" {
		return fmt.Errorf("--genesis-key is required with --genesis-account")
	}
	pub, err := keys.ParsePublicKey(g.key)
	if err != nil {
		return err
	}
	balance, err := model.ParseHbar(g.balance)
	if err != nil {
		return err
	}
	return n.CreateAccount(ctx, id, pub, balance)
}
