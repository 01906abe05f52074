package grpcnode

import (
	"context"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"xdao.co/ledger/model"
)

// Client talks to one node over the Node gRPC service. Errors are always
// *model.Error.
type Client struct {
	cc     *grpc.ClientConn
	client NodeClient

	// Timeout applies per RPC when non-zero.
	Timeout time.Duration
}

type DialOptions struct {
	// MaxMsgBytes sets both send/recv max sizes when non-zero.
	MaxMsgBytes int

	// ContextDialer replaces the default TCP dialer (tests use bufconn).
	ContextDialer func(ctx context.Context, addr string) (net.Conn, error)
}

// Dial prepares a connection to target. No I/O happens until the first call.
func Dial(target string, opts DialOptions) (*Client, error) {
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	if opts.MaxMsgBytes > 0 {
		dialOpts = append(dialOpts,
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(opts.MaxMsgBytes),
				grpc.MaxCallSendMsgSize(opts.MaxMsgBytes),
			),
		)
	}
	if opts.ContextDialer != nil {
		dialOpts = append(dialOpts, grpc.WithContextDialer(opts.ContextDialer))
	}

	cc, err := grpc.NewClient(target, dialOpts...)
	if err != nil {
		return nil, model.Wrap(model.CodeInvalidConfig, "dial "+target, err)
	}
	return &Client{cc: cc, client: NewNodeClient(cc)}, nil
}

func (c *Client) Close() error {
	if c == nil || c.cc == nil {
		return nil
	}
	return c.cc.Close()
}

// Submit sends signed transaction bytes and returns the id the node assigned.
func (c *Client) Submit(ctx context.Context, signed []byte) (string, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()

	reply, err := c.client.Submit(ctx, wrapperspb.Bytes(signed))
	if err != nil {
		return "", mapRPC(err)
	}
	return reply.GetValue(), nil
}

// Query sends query bytes and returns the raw response.
func (c *Client) Query(ctx context.Context, query []byte) ([]byte, error) {
	ctx, cancel := c.ctx(ctx)
	defer cancel()

	reply, err := c.client.Query(ctx, wrapperspb.Bytes(query))
	if err != nil {
		return nil, mapRPC(err)
	}
	return reply.GetValue(), nil
}

func (c *Client) ctx(parent context.Context) (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, c.Timeout)
}
