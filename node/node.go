package node

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"xdao.co/ledger/cidutil"
	"xdao.co/ledger/keys"
	"xdao.co/ledger/model"
	"xdao.co/ledger/storage"
	"xdao.co/ledger/wire"
)

type pendingTx struct {
	id      string
	body    wire.TransactionBody
	fee     model.Amount
	readyAt time.Time
	// failures counts store errors seen while settling.
	failures int
}

// Node implements grpcnode.Ledger.
type Node struct {
	cfg   Config
	store storage.Store
	log   *zap.Logger

	mu      sync.Mutex
	pending []pendingTx
	queued  map[string]struct{}
}

func New(store storage.Store, cfg Config) *Node {
	cfg = cfg.withDefaults()
	return &Node{
		cfg:    cfg,
		store:  store,
		log:    cfg.Logger,
		queued: map[string]struct{}{},
	}
}

// CreateAccount funds an account that signs with key. It is the only way
// accounts come into existence.
func (n *Node) CreateAccount(ctx context.Context, id model.EntityID, key keys.PublicKey, balance model.Amount) error {
	if id.IsZero() {
		return model.Errorf(model.CodeInvalidEntityID, "account id is required")
	}
	if key.IsZero() {
		return model.Errorf(model.CodeInvalidKeyFormat, "account %s: key is required", id)
	}
	return n.store.PutAccount(ctx, storage.Account{ID: id, Balance: balance, Key: key.Bytes()})
}

// Submit validates signed transaction bytes and queues the transaction.
// Submitting a transaction the node already knows returns its id again.
func (n *Node) Submit(ctx context.Context, signed []byte) (string, error) {
	if len(signed) > wire.MaxTransactionSize {
		return "", model.Errorf(model.CodePayloadTooLarge, "transaction is %d bytes, limit %d", len(signed), wire.MaxTransactionSize)
	}
	stx, err := wire.UnmarshalSignedTransaction(signed)
	if err != nil {
		return "", model.Wrap(model.CodeSubmissionRejected, StatusInvalidTransaction, err)
	}
	body, err := wire.UnmarshalTransactionBody(stx.BodyBytes)
	if err != nil {
		return "", model.Wrap(model.CodeSubmissionRejected, StatusInvalidTransaction, err)
	}
	txID, err := cidutil.TransactionID(stx.BodyBytes)
	if err != nil {
		return "", err
	}
	log := n.log.With(zap.String("tx_id", txID), zap.Stringer("payer", body.Payer))

	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.settleLocked(ctx); err != nil {
		log.Warn("settlement stalled", zap.Error(err))
	}

	if _, ok := n.queued[txID]; ok {
		return txID, nil
	}
	if _, err := n.store.GetReceipt(ctx, txID); err == nil {
		return txID, nil
	} else if !storage.IsNotFound(err) {
		return "", model.Wrap(model.CodeInternal, "lookup receipt", err)
	}

	fee, err := n.validate(ctx, stx, body)
	if err != nil {
		log.Info("transaction rejected", zap.Error(err))
		return "", err
	}
	if err := n.store.PutReceipt(ctx, txID, model.Receipt{Status: model.ReceiptPending}); err != nil {
		return "", model.Wrap(model.CodeInternal, "record pending receipt", err)
	}
	n.pending = append(n.pending, pendingTx{
		id:      txID,
		body:    body,
		fee:     fee,
		readyAt: n.cfg.Now().Add(n.cfg.ConsensusDelay),
	})
	n.queued[txID] = struct{}{}
	log.Debug("transaction accepted", zap.Stringer("fee", fee))
	return txID, nil
}

func reject(status string, format string, args ...any) error {
	return model.Errorf(model.CodeSubmissionRejected, status+": "+format, args...)
}

func (n *Node) validate(ctx context.Context, stx wire.SignedTransaction, body wire.TransactionBody) (model.Amount, error) {
	if body.Payer.IsZero() {
		return 0, reject(StatusPayerAccountNotFound, "missing payer")
	}
	if !body.ValidStart.IsZero() {
		now := n.cfg.Now()
		if body.ValidStart.After(now.Add(n.cfg.MaxClockSkew)) {
			return 0, reject(StatusInvalidTransactionStart, "valid start %s is in the future", body.ValidStart.Format(time.RFC3339))
		}
		if now.Sub(body.ValidStart) > n.cfg.ValidDuration {
			return 0, reject(StatusTransactionExpired, "valid start %s is older than %s", body.ValidStart.Format(time.RFC3339), n.cfg.ValidDuration)
		}
	}

	payer, err := n.store.GetAccount(ctx, body.Payer)
	if storage.IsNotFound(err) {
		return 0, reject(StatusPayerAccountNotFound, "account %s", body.Payer)
	}
	if err != nil {
		return 0, model.Wrap(model.CodeInternal, "lookup payer", err)
	}

	required := [][]byte{payer.Key}
	var fee model.Amount
	switch body.Kind {
	case wire.KindFileCreate:
		fc := body.FileCreate
		if fc == nil {
			return 0, reject(StatusInvalidTransaction, "file create without body")
		}
		if len(fc.Contents) > wire.MaxContentSize {
			return 0, model.Errorf(model.CodePayloadTooLarge, "file contents are %d bytes, limit %d", len(fc.Contents), wire.MaxContentSize)
		}
		required = append(required, fc.Keys...)
		fee = n.cfg.Fees.FileCreateFee(len(fc.Contents))
	default:
		return 0, reject(StatusNotSupported, "transaction kind %s", body.Kind)
	}

	for _, k := range required {
		if !signedBy(stx, k) {
			return 0, reject(StatusInvalidSignature, "missing valid signature for a required key")
		}
	}
	if body.MaxFee < fee {
		return 0, reject(StatusInsufficientTxFee, "fee %s exceeds max fee %s", fee, body.MaxFee)
	}
	return fee, nil
}

func signedBy(stx wire.SignedTransaction, key []byte) bool {
	pub, err := keys.ParsePublicKeyBytes(key)
	if err != nil {
		return false
	}
	for _, p := range stx.SigPairs {
		other, err := keys.ParsePublicKeyBytes(p.PublicKey)
		if err != nil || !other.Equal(pub) {
			continue
		}
		if keys.Verify(pub, stx.BodyBytes, p.Signature) {
			return true
		}
	}
	return false
}

// Settle finalizes every pending transaction whose consensus delay elapsed.
func (n *Node) Settle(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.settleLocked(ctx)
}

// settleLocked applies due transactions in submission order. A store error
// holds the queue until the transaction has failed SettleAttempts times;
// then it is given up on so later transactions can settle.
func (n *Node) settleLocked(ctx context.Context) error {
	now := n.cfg.Now()
	for len(n.pending) > 0 && !n.pending[0].readyAt.After(now) {
		p := &n.pending[0]
		if err := n.apply(ctx, *p); err != nil {
			if ctx.Err() != nil {
				return err
			}
			p.failures++
			if !n.giveUp(ctx, *p, err) {
				return err
			}
		}
		delete(n.queued, p.id)
		n.pending = n.pending[1:]
	}
	return nil
}

// giveUp decides whether p leaves the queue after err, recording a failed
// receipt when it does.
func (n *Node) giveUp(ctx context.Context, p pendingTx, err error) bool {
	log := n.log.With(zap.String("tx_id", p.id), zap.Int("failures", p.failures))
	var reason string
	switch {
	case errors.Is(err, storage.ErrExists):
		// Settled by an earlier run; the stored receipt stands.
		log.Warn("transaction already settled", zap.Error(err))
		return true
	case errors.Is(err, storage.ErrNotFound):
		reason = StatusPayerAccountNotFound
	case p.failures < n.cfg.SettleAttempts:
		log.Warn("settle failed, will retry", zap.Error(err))
		return false
	default:
		reason = StatusFailInvalid
	}

	log.Error("transaction failed in settlement", zap.String("reason", reason), zap.Error(err))
	failed := model.Receipt{Status: model.ReceiptFailed, Reason: reason}
	if perr := n.store.PutReceipt(ctx, p.id, failed); perr != nil && !errors.Is(perr, storage.ErrExists) {
		log.Error("record failed receipt", zap.Error(perr))
	}
	return true
}

func (n *Node) apply(ctx context.Context, p pendingTx) error {
	log := n.log.With(zap.String("tx_id", p.id))
	payer, err := n.store.GetAccount(ctx, p.body.Payer)
	if err != nil {
		return model.Wrap(model.CodeInternal, "settle: lookup payer", err)
	}
	if payer.Balance < p.fee {
		log.Info("transaction failed", zap.String("reason", StatusInsufficientPayerBalance))
		_, err := n.settle(ctx, storage.Settlement{
			TransactionID: p.id,
			Payer:         p.body.Payer,
			Receipt:       model.Receipt{Status: model.ReceiptFailed, Reason: StatusInsufficientPayerBalance},
		})
		return err
	}

	fc := p.body.FileCreate
	r, err := n.settle(ctx, storage.Settlement{
		TransactionID: p.id,
		Payer:         p.body.Payer,
		Fee:           p.fee,
		File: &storage.File{
			ID:            model.EntityID{Shard: n.cfg.Shard, Realm: n.cfg.Realm},
			Keys:          fc.Keys,
			Contents:      fc.Contents,
			Memo:          fc.Memo,
			TransactionID: p.id,
		},
		EntityFloor: n.cfg.FirstEntityNum,
		Receipt:     model.Receipt{Status: model.ReceiptSuccess},
	})
	if err != nil {
		return err
	}
	log.Info("file created", zap.Stringer("file", r.ResourceID), zap.Stringer("fee", p.fee))
	return nil
}

func (n *Node) settle(ctx context.Context, s storage.Settlement) (model.Receipt, error) {
	r, err := n.store.Settle(ctx, s)
	if err != nil {
		return model.Receipt{}, model.Wrap(model.CodeInternal, "settle "+s.TransactionID, err)
	}
	return r, nil
}

// Query answers a wire.Query.
func (n *Node) Query(ctx context.Context, b []byte) ([]byte, error) {
	q, err := wire.UnmarshalQuery(b)
	if err != nil {
		return nil, model.Wrap(model.CodeSubmissionRejected, "malformed query", err)
	}
	if err := n.Settle(ctx); err != nil {
		n.log.Warn("settlement stalled", zap.Error(err))
	}

	switch q.Kind {
	case wire.QueryFileContents:
		if q.Target.IsZero() {
			return nil, reject(StatusInvalidFileID, "missing file id")
		}
		f, err := n.store.GetFile(ctx, q.Target)
		if storage.IsNotFound(err) {
			return nil, model.Errorf(model.CodeResourceNotFound, "file %s does not exist", q.Target)
		}
		if err != nil {
			return nil, model.Wrap(model.CodeInternal, "read file", err)
		}
		return f.Contents, nil

	case wire.QueryAccountBalance:
		if q.Target.IsZero() {
			return nil, reject(StatusInvalidAccountID, "missing account id")
		}
		a, err := n.store.GetAccount(ctx, q.Target)
		if storage.IsNotFound(err) {
			return nil, model.Errorf(model.CodeResourceNotFound, "account %s does not exist", q.Target)
		}
		if err != nil {
			return nil, model.Wrap(model.CodeInternal, "read account", err)
		}
		return wire.MarshalBalance(a.Balance), nil

	case wire.QueryReceipt:
		if _, err := cidutil.ParseTransactionID(q.TransactionID); err != nil {
			return nil, err
		}
		r, err := n.store.GetReceipt(ctx, q.TransactionID)
		if storage.IsNotFound(err) {
			return nil, model.Errorf(model.CodeResourceNotFound, "%s: %s", StatusReceiptNotFound, q.TransactionID)
		}
		if err != nil {
			return nil, model.Wrap(model.CodeInternal, "read receipt", err)
		}
		return wire.MarshalReceipt(r), nil

	default:
		return nil, reject(StatusNotSupported, "query kind %s", q.Kind)
	}
}

// Pending returns the number of transactions awaiting settlement.
func (n *Node) Pending() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.pending)
}

// Run settles due transactions every interval until ctx is done.
func (n *Node) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := n.Settle(ctx); err != nil && ctx.Err() == nil {
				n.log.Error("settle failed", zap.Error(err))
			}
		}
	}
}
