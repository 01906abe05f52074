package grpcnode

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"xdao.co/ledger/model"
)

type fakeLedger struct {
	submitErr error
	queryErr  error
	lastQuery []byte
}

func (f *fakeLedger) Submit(_ context.Context, signed []byte) (string, error) {
	if f.submitErr != nil {
		return "", f.submitErr
	}
	return "tx-" + string(signed), nil
}

func (f *fakeLedger) Query(_ context.Context, q []byte) ([]byte, error) {
	f.lastQuery = q
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return append([]byte("answer:"), q...), nil
}

// listen starts srv on an in-memory listener and returns a client for it.
func listen(t *testing.T, srv *grpc.Server) *Client {
	t.Helper()
	lis := bufconn.Listen(1024 * 1024)
	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)

	client, err := Dial("passthrough:///bufnet", DialOptions{
		ContextDialer: func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) },
	})
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	client.Timeout = 2 * time.Second
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func serve(t *testing.T, l Ledger) *Client {
	t.Helper()
	srv := grpc.NewServer(grpc.UnaryInterceptor(LoggingInterceptor(zap.NewNop())))
	RegisterNodeServer(srv, &Server{Ledger: l})
	return listen(t, srv)
}

func TestSubmitAndQueryRoundTrip(t *testing.T) {
	ledger := &fakeLedger{}
	client := serve(t, ledger)
	ctx := context.Background()

	id, err := client.Submit(ctx, []byte("abc"))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if id != "tx-abc" {
		t.Fatalf("id: got %q want %q", id, "tx-abc")
	}

	got, err := client.Query(ctx, []byte("q"))
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if string(got) != "answer:q" {
		t.Fatalf("answer: got %q", got)
	}
	if string(ledger.lastQuery) != "q" {
		t.Fatalf("server saw query %q", ledger.lastQuery)
	}
}

func TestModelCodesSurviveTransport(t *testing.T) {
	ledger := &fakeLedger{
		submitErr: model.Errorf(model.CodePayloadTooLarge, "contents exceed 4096 bytes"),
		queryErr:  model.Errorf(model.CodeResourceNotFound, "file 0.0.9 does not exist"),
	}
	client := serve(t, ledger)
	ctx := context.Background()

	_, err := client.Submit(ctx, []byte("abc"))
	if !model.IsCode(err, model.CodePayloadTooLarge) {
		t.Fatalf("Submit: expected %s, got %v", model.CodePayloadTooLarge, err)
	}
	if k := model.KindOf(err); k != model.KindRejection {
		t.Fatalf("kind: got %v want %v", k, model.KindRejection)
	}

	_, err = client.Query(ctx, []byte("q"))
	if !model.IsCode(err, model.CodeResourceNotFound) {
		t.Fatalf("Query: expected %s, got %v", model.CodeResourceNotFound, err)
	}
	if !strings.Contains(err.Error(), "0.0.9") {
		t.Fatalf("message lost the entity id: %v", err)
	}
}

func TestUnreachableNodeIsTransient(t *testing.T) {
	lis := bufconn.Listen(1024)
	if err := lis.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	client, err := Dial("passthrough:///closed", DialOptions{
		ContextDialer: func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) },
	})
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer client.Close()
	client.Timeout = 500 * time.Millisecond

	_, err = client.Submit(context.Background(), []byte("abc"))
	if !model.IsCode(err, model.CodeNodeUnreachable) {
		t.Fatalf("expected %s, got %v", model.CodeNodeUnreachable, err)
	}
	if !model.Retriable(err) {
		t.Fatalf("expected retriable error, got %v", err)
	}
}

func TestServerWithoutNodeServiceIsRejected(t *testing.T) {
	// A plain gRPC server, as a public network node would be.
	client := listen(t, grpc.NewServer())

	_, err := client.Submit(context.Background(), []byte("abc"))
	if !model.IsCode(err, model.CodeSubmissionRejected) {
		t.Fatalf("expected %s, got %v", model.CodeSubmissionRejected, err)
	}
	if model.Retriable(err) {
		t.Fatalf("a node without the service must not be retried: %v", err)
	}
	if !strings.Contains(err.Error(), serviceName) {
		t.Fatalf("error does not name the missing service: %v", err)
	}

	_, err = client.Query(context.Background(), []byte("q"))
	if !model.IsCode(err, model.CodeSubmissionRejected) {
		t.Fatalf("Query: expected %s, got %v", model.CodeSubmissionRejected, err)
	}
}

func TestMapRPCFallsBackToStatusCode(t *testing.T) {
	cases := []struct {
		in   error
		want model.Code
	}{
		{status.Error(codes.Unavailable, "connection refused"), model.CodeNodeUnreachable},
		{status.Error(codes.DeadlineExceeded, "slow"), model.CodeNodeUnreachable},
		{status.Error(codes.InvalidArgument, "bad"), model.CodeSubmissionRejected},
		{status.Error(codes.FailedPrecondition, "INSUFFICIENT_TX_FEE"), model.CodeSubmissionRejected},
		{status.Error(codes.Unimplemented, "unknown service "+serviceName), model.CodeSubmissionRejected},
		{status.Error(codes.NotFound, "gone"), model.CodeResourceNotFound},
		{status.Error(codes.Internal, "boom"), model.CodeInternal},
		{status.Error(codes.Unavailable, "DECODE_ERROR: spoofed"), model.CodeNodeUnreachable},
		{context.DeadlineExceeded, model.CodeNodeUnreachable},
	}
	for _, tc := range cases {
		if got := model.CodeOf(mapRPC(tc.in)); got != tc.want {
			t.Fatalf("mapRPC(%v): got %s want %s", tc.in, got, tc.want)
		}
	}
}
