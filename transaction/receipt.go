package transaction

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"xdao.co/ledger/client"
	"xdao.co/ledger/model"
	"xdao.co/ledger/wire"
)

// PollOptions control receipt polling. Timeout is a wall-clock deadline for
// the whole wait; at most Timeout/Interval polls are issued, the first one
// immediately.
type PollOptions struct {
	Interval time.Duration
	Timeout  time.Duration
}

var DefaultPollOptions = PollOptions{Interval: time.Second, Timeout: 30 * time.Second}

func (o PollOptions) withDefaults() PollOptions {
	if o.Interval <= 0 {
		o.Interval = DefaultPollOptions.Interval
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultPollOptions.Timeout
	}
	return o
}

// Polls returns the most receipt queries one window issues.
func (o PollOptions) Polls() int {
	o = o.withDefaults()
	n := int(o.Timeout / o.Interval)
	if n < 1 {
		n = 1
	}
	return n
}

// State is where a tracked transaction is in its lifecycle.
type State uint8

const (
	Submitted State = iota
	Pending
	Succeeded
	Failed
	TimedOut
)

func (s State) String() string {
	switch s {
	case Submitted:
		return "submitted"
	case Pending:
		return "pending"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	case TimedOut:
		return "timed out"
	default:
		return "unknown"
	}
}

// Final reports whether s never changes again.
func (s State) Final() bool { return s >= Succeeded }

// Tracker follows one submitted transaction:
// Submitted -> Pending -> {Succeeded | Failed | TimedOut}.
type Tracker struct {
	handle *client.Handle

	mu    sync.Mutex
	state State
	polls int
}

func NewTracker(h *client.Handle) *Tracker {
	t := &Tracker{handle: h}
	if r, ok := h.Terminal(); ok {
		t.state = stateOf(r)
	}
	return t
}

func (t *Tracker) Handle() *client.Handle { return t.handle }

func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Polls returns how many receipt queries the tracker issued.
func (t *Tracker) Polls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.polls
}

func stateOf(r model.Receipt) State {
	switch r.Status {
	case model.ReceiptSuccess:
		return Succeeded
	case model.ReceiptFailed:
		return Failed
	default:
		return Pending
	}
}

func (t *Tracker) observe(r model.Receipt) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.polls++
	if !t.state.Final() {
		t.state = stateOf(r)
	}
}

func (t *Tracker) pollFailed() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.polls++
	if t.state == Submitted {
		t.state = Pending
	}
}

func (t *Tracker) timeout() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.state.Final() {
		t.state = TimedOut
	}
}

// Await polls until the transaction reaches a final receipt, the window
// closes, or ctx is done. A receipt already recorded on the handle is
// returned without polling. Await never resubmits.
//
// The window is a deadline: every poll runs under it, so a slow node cannot
// stretch the wait past opts.Timeout. Polls are scheduled at fixed offsets
// from the start (0, Interval, 2*Interval, ...), at most Polls() of them.
func (t *Tracker) Await(ctx context.Context, s *client.Session, opts PollOptions) (model.Receipt, error) {
	h := t.handle
	if r, ok := h.Terminal(); ok {
		return r, nil
	}
	if t.State() == TimedOut {
		return model.Receipt{Status: model.ReceiptPending}, model.Errorf(model.CodeReceiptTimeout, "transaction %s already timed out", h.TransactionID)
	}

	opts = opts.withDefaults()
	polls := opts.Polls()
	log := s.Logger().With(zap.String("tx_id", h.TransactionID))

	start := time.Now()
	window, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	timer := time.NewTimer(0)
	defer timer.Stop()
	for i := 0; i < polls; i++ {
		if window.Err() != nil {
			return t.closed(ctx, opts, i)
		}
		select {
		case <-window.Done():
			return t.closed(ctx, opts, i)
		case <-timer.C:
		}

		r, err := PollReceipt(window, s, h)
		switch {
		case err == nil:
			t.observe(r)
			if r.IsTerminal() {
				r = h.Record(r)
				log.Debug("receipt final", zap.Stringer("status", r.Status), zap.Int("polls", i+1))
				return r, nil
			}
		case window.Err() != nil:
			t.pollFailed()
			return t.closed(ctx, opts, i+1)
		case model.Retriable(err), model.IsCode(err, model.CodeResourceNotFound):
			t.pollFailed()
			log.Debug("receipt not available yet", zap.Int("attempt", i+1), zap.Error(err))
		default:
			return model.Receipt{}, err
		}
		timer.Reset(time.Until(start.Add(time.Duration(i+1) * opts.Interval)))
	}

	<-window.Done()
	return t.closed(ctx, opts, polls)
}

// closed reports the end of a poll window. Cancellation of ctx by the
// caller is reported as abandoned, not as a timed out transaction.
func (t *Tracker) closed(ctx context.Context, opts PollOptions, polls int) (model.Receipt, error) {
	pending := model.Receipt{Status: model.ReceiptPending}
	if err := ctx.Err(); err != nil {
		return pending, model.Wrap(model.CodeReceiptTimeout, "receipt polling abandoned", err)
	}
	t.timeout()
	return pending, model.Errorf(model.CodeReceiptTimeout,
		"no final receipt for %s within %s (%d polls)", t.handle.TransactionID, opts.Timeout, polls)
}

// PollReceipt asks the network once for the current receipt of h.
func PollReceipt(ctx context.Context, s *client.Session, h *client.Handle) (model.Receipt, error) {
	s.Metrics().ReceiptPolled()
	b, err := s.Query(ctx, client.Request{Payload: wire.Query{Kind: wire.QueryReceipt, TransactionID: h.TransactionID}.Marshal()})
	if err != nil {
		return model.Receipt{}, err
	}
	return wire.UnmarshalReceipt(b)
}

// Await is NewTracker(h).Await.
func Await(ctx context.Context, s *client.Session, h *client.Handle, opts PollOptions) (model.Receipt, error) {
	return NewTracker(h).Await(ctx, s, opts)
}

// SubmitAndAwaitReceipt submits req once and waits for its final receipt.
// A Failed receipt is returned as a value, not an error.
func SubmitAndAwaitReceipt(ctx context.Context, s *client.Session, req client.Request, opts PollOptions) (model.Receipt, error) {
	h, err := s.Submit(ctx, req)
	if err != nil {
		return model.Receipt{}, err
	}
	return Await(ctx, s, h, opts)
}
