package client

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"xdao.co/ledger/grpcnode"
	"xdao.co/ledger/network"
)

// NodeConn is an open connection to one node. grpcnode.Client implements it.
type NodeConn interface {
	Submit(ctx context.Context, signed []byte) (string, error)
	Query(ctx context.Context, query []byte) ([]byte, error)
	Close() error
}

// Dialer opens a connection to ep on its first use in a session. Calls
// racing to the same node may each dial; the extra connections are closed.
// It runs without session locks held, so it may block.
type Dialer func(ctx context.Context, ep network.Endpoint) (NodeConn, error)

// GRPCDialer dials nodes over the Node gRPC service.
func GRPCDialer(opts grpcnode.DialOptions) Dialer {
	return func(_ context.Context, ep network.Endpoint) (NodeConn, error) {
		target, err := ep.Target()
		if err != nil {
			return nil, err
		}
		return grpcnode.Dial(target, opts)
	}
}

// RetryPolicy bounds how a call moves across nodes after NodeUnreachable.
type RetryPolicy struct {
	// MaxAttempts counts the first try.
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
	// MaxDelay caps a single wait. Zero means no cap.
	MaxDelay time.Duration
}

var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 4, BaseDelay: 250 * time.Millisecond, Multiplier: 2}

const (
	DefaultCallTimeout       = 10 * time.Second
	DefaultUnhealthyCooldown = 30 * time.Second
)

type Options struct {
	// Dialer defaults to GRPCDialer with zero options.
	Dialer Dialer
	Retry  RetryPolicy
	// CallTimeout bounds each individual node call.
	CallTimeout time.Duration
	// UnhealthyCooldown is how long a node that failed with NodeUnreachable
	// is tried only after healthy ones.
	UnhealthyCooldown time.Duration

	// RateLimit caps calls per second across the session. Zero disables it.
	RateLimit rate.Limit
	RateBurst int
	// MaxInFlight caps concurrent calls. Zero disables it.
	MaxInFlight int64

	Metrics *Metrics
	Logger  *zap.Logger
	Now     func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Dialer == nil {
		o.Dialer = GRPCDialer(grpcnode.DialOptions{})
	}
	if o.Retry.MaxAttempts <= 0 {
		o.Retry.MaxAttempts = DefaultRetryPolicy.MaxAttempts
	}
	if o.Retry.BaseDelay <= 0 {
		o.Retry.BaseDelay = DefaultRetryPolicy.BaseDelay
	}
	if o.Retry.Multiplier < 1 {
		o.Retry.Multiplier = DefaultRetryPolicy.Multiplier
	}
	if o.CallTimeout <= 0 {
		o.CallTimeout = DefaultCallTimeout
	}
	if o.UnhealthyCooldown <= 0 {
		o.UnhealthyCooldown = DefaultUnhealthyCooldown
	}
	if o.RateLimit > 0 && o.RateBurst <= 0 {
		o.RateBurst = 1
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}
