// Package ledger is the caller-facing API: open a session from
// configuration, create and read text files, and read balances.
//
// Every function returns *model.Error values; branch on model.KindOf or
// model.IsCode, never on the message.
package ledger

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"xdao.co/ledger/client"
	"xdao.co/ledger/config"
	"xdao.co/ledger/model"
	"xdao.co/ledger/query"
	"xdao.co/ledger/transaction"
)

// Session is a client session plus the receipt poll window used by
// CreateResource.
type Session struct {
	*client.Session
	Poll transaction.PollOptions
}

// Option adjusts how OpenSession builds the session.
type Option func(*client.Options) error

// WithDialer replaces the gRPC dialer.
func WithDialer(d client.Dialer) Option {
	return func(o *client.Options) error {
		o.Dialer = d
		return nil
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(o *client.Options) error {
		o.Logger = l
		return nil
	}
}

// WithMetrics registers the client metrics with reg. Sessions opened with
// the same registry share the collectors.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *client.Options) error {
		m, err := client.NewMetrics(reg)
		if err != nil {
			return model.Wrap(model.CodeInvalidConfig, "register metrics", err)
		}
		o.Metrics = m
		return nil
	}
}

// WithRetry overrides the retry policy from the config.
func WithRetry(p client.RetryPolicy) Option {
	return func(o *client.Options) error {
		o.Retry = p
		return nil
	}
}

// OpenSession validates cfg, loads the operator credentials, resolves the
// network and opens a session. No node is contacted.
func OpenSession(cfg config.Config, opts ...Option) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	endpoints, err := cfg.Endpoints()
	if err != nil {
		return nil, err
	}
	operator, err := cfg.Identity()
	if err != nil {
		return nil, err
	}
	fee, err := cfg.FeeLimit()
	if err != nil {
		return nil, err
	}

	copts := cfg.ClientOptions()
	for _, opt := range opts {
		if err := opt(&copts); err != nil {
			return nil, err
		}
	}
	s, err := client.Open(endpoints, operator, fee, copts)
	if err != nil {
		return nil, err
	}
	return &Session{Session: s, Poll: cfg.PollOptions()}, nil
}

// CreateResource stores content as a new file keyed by the operator and
// returns its id once the network reports success. A zero feeLimit uses the
// session default.
//
// A Failed receipt becomes TransactionFailed carrying the network's reason.
func CreateResource(ctx context.Context, s *Session, content string, feeLimit model.Amount) (model.EntityID, error) {
	req, err := transaction.NewBuilder(s.Session).Build(transaction.FileCreate, []byte(content), feeLimit)
	if err != nil {
		return model.EntityID{}, err
	}
	r, err := transaction.SubmitAndAwaitReceipt(ctx, s.Session, req, s.Poll)
	if err != nil {
		return model.EntityID{}, err
	}
	switch {
	case r.Status == model.ReceiptFailed:
		return model.EntityID{}, model.Errorf(model.CodeTransactionFailed, "file create failed: %s", r.Reason)
	case r.ResourceID == nil:
		return model.EntityID{}, model.Errorf(model.CodeInternal, "successful file create carried no file id")
	}
	return *r.ResourceID, nil
}

// ReadResource returns the text stored in file id.
func ReadResource(ctx context.Context, s *Session, id model.EntityID) (string, error) {
	return query.FetchResource(ctx, s.Session, id)
}

// GetBalance returns the balance of account.
func GetBalance(ctx context.Context, s *Session, account model.EntityID) (model.Amount, error) {
	return query.FetchBalance(ctx, s.Session, account)
}

// OperatorBalance returns the balance of the session's operator account.
func OperatorBalance(ctx context.Context, s *Session) (model.Amount, error) {
	return GetBalance(ctx, s, s.Signer().AccountID)
}

// CloseSession releases the session's connections. Closing twice is a no-op.
func CloseSession(s *Session) error {
	if s == nil {
		return nil
	}
	return s.Close()
}
