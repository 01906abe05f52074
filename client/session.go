package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"xdao.co/ledger/cidutil"
	"xdao.co/ledger/keys"
	"xdao.co/ledger/model"
	"xdao.co/ledger/network"
	"xdao.co/ledger/wire"
)

// Session is an open connection pool to one network, bound to a default
// signer and fee limit.
type Session struct {
	endpoints network.EndpointSet
	signer    keys.Identity
	feeLimit  model.Amount
	opts      Options
	log       *zap.Logger

	limiter *rate.Limiter
	sem     *semaphore.Weighted
	cursor  atomic.Uint64

	mu        sync.Mutex
	closed    bool
	conns     map[int]NodeConn
	unhealthy map[int]time.Time
}

// Open creates a session. No node is contacted until the first call.
func Open(endpoints network.EndpointSet, defaultSigner keys.Identity, defaultFeeLimit model.Amount, opts Options) (*Session, error) {
	if err := endpoints.Validate(); err != nil {
		return nil, err
	}
	if defaultSigner.IsZero() {
		return nil, model.Errorf(model.CodeInvalidConfig, "default signer is required")
	}
	if defaultFeeLimit <= 0 {
		return nil, model.Errorf(model.CodeInvalidConfig, "default fee limit must be positive, got %s", defaultFeeLimit)
	}
	opts = opts.withDefaults()
	s := &Session{
		endpoints: endpoints.Clone(),
		signer:    defaultSigner,
		feeLimit:  defaultFeeLimit,
		opts:      opts,
		log:       opts.Logger.With(zap.Stringer("operator", defaultSigner.AccountID)),
		conns:     map[int]NodeConn{},
		unhealthy: map[int]time.Time{},
	}
	if opts.RateLimit > 0 {
		s.limiter = rate.NewLimiter(opts.RateLimit, opts.RateBurst)
	}
	if opts.MaxInFlight > 0 {
		s.sem = semaphore.NewWeighted(opts.MaxInFlight)
	}
	return s, nil
}

// Signer returns the default signer.
func (s *Session) Signer() keys.Identity { return s.signer }

// DefaultFeeLimit returns the fee limit applied when a request sets none.
func (s *Session) DefaultFeeLimit() model.Amount { return s.feeLimit }

// Endpoints returns a copy of the session's endpoint set.
func (s *Session) Endpoints() network.EndpointSet { return s.endpoints.Clone() }

// Metrics returns the session's collectors, possibly nil.
func (s *Session) Metrics() *Metrics { return s.opts.Metrics }

// Logger returns the session logger.
func (s *Session) Logger() *zap.Logger { return s.log }

// Now returns the session clock's current time.
func (s *Session) Now() time.Time { return s.opts.Now() }

// Submit sends a signed transaction to one node and returns its handle.
func (s *Session) Submit(ctx context.Context, req Request) (*Handle, error) {
	if len(req.Payload) == 0 {
		return nil, model.Errorf(model.CodeSubmissionRejected, "empty transaction")
	}
	stx, err := wire.UnmarshalSignedTransaction(req.Payload)
	if err != nil {
		return nil, model.Wrap(model.CodeSubmissionRejected, "malformed transaction", err)
	}
	want, err := cidutil.TransactionID(stx.BodyBytes)
	if err != nil {
		return nil, err
	}

	var got string
	ep, err := s.do(ctx, "submit", func(ctx context.Context, conn NodeConn) error {
		id, err := conn.Submit(ctx, req.Payload)
		if err != nil {
			return err
		}
		got = id
		return nil
	})
	if err != nil {
		return nil, err
	}
	if got != want {
		return nil, model.Errorf(model.CodeInternal, "node %s answered transaction id %q, expected %q", ep.NodeID, got, want)
	}
	s.log.Debug("transaction submitted", zap.String("tx_id", want), zap.Stringer("node", ep.NodeID))
	return &Handle{TransactionID: want, NodeID: ep.NodeID, SubmittedAt: s.opts.Now()}, nil
}

// Query sends a read-only request and returns the node's answer.
func (s *Session) Query(ctx context.Context, req Request) ([]byte, error) {
	if len(req.Payload) == 0 {
		return nil, model.Errorf(model.CodeSubmissionRejected, "empty query")
	}
	var out []byte
	_, err := s.do(ctx, "query", func(ctx context.Context, conn NodeConn) error {
		b, err := conn.Query(ctx, req.Payload)
		if err != nil {
			return err
		}
		out = b
		return nil
	})
	return out, err
}

// Close releases every connection. It is safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	conns := s.conns
	s.conns = map[int]NodeConn{}
	s.mu.Unlock()

	var errs []error
	for _, c := range conns {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Closed reports whether Close was called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// do runs call against nodes in selection order until it succeeds, fails
// with a non-retriable error, or the retry policy is exhausted.
func (s *Session) do(ctx context.Context, op string, call func(context.Context, NodeConn) error) (network.Endpoint, error) {
	if s.Closed() {
		return network.Endpoint{}, model.Errorf(model.CodeSessionClosed, "%s on closed session", op)
	}
	release, err := s.acquire(ctx)
	if err != nil {
		return network.Endpoint{}, err
	}
	defer release()

	start := time.Now()
	order := s.order()
	attempt := 0
	operation := func() (network.Endpoint, error) {
		idx := order[attempt%len(order)]
		attempt++
		ep := s.endpoints[idx]
		log := s.log.With(zap.String("op", op), zap.Stringer("node", ep.NodeID), zap.Int("attempt", attempt))

		conn, err := s.conn(ctx, idx)
		if err != nil {
			if model.IsCode(err, model.CodeSessionClosed) {
				return ep, backoff.Permanent(err)
			}
			s.markUnhealthy(idx)
			log.Warn("dial failed", zap.Error(err))
			return ep, model.Wrap(model.CodeNodeUnreachable, "dial node "+ep.NodeID.String(), err)
		}

		callCtx, cancel := context.WithTimeout(ctx, s.opts.CallTimeout)
		err = call(callCtx, conn)
		cancel()
		switch {
		case err == nil:
			s.markHealthy(idx)
			return ep, nil
		case ctx.Err() != nil:
			return ep, backoff.Permanent(model.Wrap(model.CodeNodeUnreachable, op+" abandoned", ctx.Err()))
		case model.Retriable(err):
			s.markUnhealthy(idx)
			log.Warn("node unreachable", zap.Error(err))
			return ep, err
		default:
			var me *model.Error
			if !errors.As(err, &me) {
				err = model.Wrap(model.CodeInternal, op, err)
			}
			return ep, backoff.Permanent(err)
		}
	}
	notify := func(err error, wait time.Duration) {
		s.opts.Metrics.retry(op)
		s.log.Debug("retrying on another node", zap.String("op", op), zap.Int("attempt", attempt), zap.Duration("wait", wait), zap.Error(err))
	}

	ep, err := backoff.RetryNotifyWithData(operation, s.backOff(ctx), notify)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		if ctx.Err() != nil && !model.IsCode(err, model.CodeNodeUnreachable) {
			err = model.Wrap(model.CodeNodeUnreachable, op+" abandoned", ctx.Err())
		}
		if model.IsCode(err, model.CodeNodeUnreachable) && attempt >= s.opts.Retry.MaxAttempts {
			err = model.Wrap(model.CodeNodeUnreachable, fmt.Sprintf("%s failed after %d attempts", op, attempt), err)
		}
		s.opts.Metrics.observe(op, string(model.CodeOf(err)), elapsed)
		return ep, err
	}
	s.opts.Metrics.observe(op, "ok", elapsed)
	return ep, nil
}

func (s *Session) backOff(ctx context.Context) backoff.BackOff {
	p := s.opts.Retry
	opts := []backoff.ExponentialBackOffOpts{
		backoff.WithInitialInterval(p.BaseDelay),
		backoff.WithRandomizationFactor(0),
		backoff.WithMultiplier(p.Multiplier),
		backoff.WithMaxElapsedTime(0),
	}
	if p.MaxDelay > 0 {
		opts = append(opts, backoff.WithMaxInterval(p.MaxDelay))
	}
	b := backoff.NewExponentialBackOff(opts...)
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(p.MaxAttempts-1)), ctx)
}

func (s *Session) acquire(ctx context.Context) (func(), error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, model.Wrap(model.CodeNodeUnreachable, "rate limit wait", err)
		}
	}
	if s.sem == nil {
		return func() {}, nil
	}
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, model.Wrap(model.CodeNodeUnreachable, "in-flight wait", err)
	}
	return func() { s.sem.Release(1) }, nil
}

// order returns node indexes for one call: a round-robin rotation with
// healthy nodes first.
func (s *Session) order() []int {
	n := len(s.endpoints)
	start := int((s.cursor.Add(1) - 1) % uint64(n))
	now := s.opts.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	healthy := make([]int, 0, n)
	var cooling []int
	for i := 0; i < n; i++ {
		idx := (start + i) % n
		if until, ok := s.unhealthy[idx]; ok && now.Before(until) {
			cooling = append(cooling, idx)
			continue
		}
		healthy = append(healthy, idx)
	}
	return append(healthy, cooling...)
}

func (s *Session) markUnhealthy(idx int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unhealthy[idx] = s.opts.Now().Add(s.opts.UnhealthyCooldown)
}

func (s *Session) markHealthy(idx int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.unhealthy, idx)
}

// conn returns the connection to node idx, dialing it on first use. The
// dial runs without s.mu held; when two calls race, the first stored
// connection wins and the other is closed.
func (s *Session) conn(ctx context.Context, idx int) (NodeConn, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, model.Errorf(model.CodeSessionClosed, "session closed")
	}
	if c, ok := s.conns[idx]; ok {
		s.mu.Unlock()
		return c, nil
	}
	s.mu.Unlock()

	c, err := s.opts.Dialer(ctx, s.endpoints[idx])
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		_ = c.Close()
		return nil, model.Errorf(model.CodeSessionClosed, "session closed")
	}
	if existing, ok := s.conns[idx]; ok {
		if existing != c {
			_ = c.Close()
		}
		return existing, nil
	}
	s.conns[idx] = c
	return c, nil
}
