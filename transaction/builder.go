// Package transaction builds signed, fee-bounded transactions and follows
// them from submission to a final receipt.
package transaction

import (
	"time"

	"github.com/google/uuid"

	"xdao.co/ledger/client"
	"xdao.co/ledger/keys"
	"xdao.co/ledger/model"
	"xdao.co/ledger/wire"
)

// Kind is the type of transaction to build.
type Kind = wire.TransactionKind

const FileCreate = wire.KindFileCreate

// Builder turns payloads into signed client requests. It never touches the
// network.
type Builder struct {
	// Signer pays for the transaction and becomes the file's only key.
	Signer keys.Identity
	// DefaultFee applies when Build is called with a zero fee limit.
	DefaultFee model.Amount
	Memo       string
	Now        func() time.Time
}

// NewBuilder returns a builder bound to the session's default signer and fee
// limit. Set Signer on the result to sign as someone else.
func NewBuilder(s *client.Session) Builder {
	return Builder{Signer: s.Signer(), DefaultFee: s.DefaultFeeLimit(), Now: s.Now}
}

// Build validates payload against the protocol limits, signs it and returns
// the request to submit.
func (b Builder) Build(kind Kind, payload []byte, feeLimit model.Amount) (client.Request, error) {
	if b.Signer.IsZero() {
		return client.Request{}, model.Errorf(model.CodeInvalidConfig, "builder has no signer")
	}
	if kind != FileCreate {
		return client.Request{}, model.Errorf(model.CodeSubmissionRejected, "unsupported transaction kind %s", kind)
	}
	if len(payload) > wire.MaxContentSize {
		return client.Request{}, model.Errorf(model.CodePayloadTooLarge, "payload is %d bytes, limit %d", len(payload), wire.MaxContentSize)
	}
	if feeLimit == 0 {
		feeLimit = b.DefaultFee
	}
	if feeLimit <= 0 {
		return client.Request{}, model.Errorf(model.CodeInvalidConfig, "fee limit must be positive, got %s", feeLimit)
	}

	nonce, err := uuid.NewRandom()
	if err != nil {
		return client.Request{}, model.Wrap(model.CodeInternal, "transaction nonce", err)
	}
	now := time.Now
	if b.Now != nil {
		now = b.Now
	}
	body := wire.TransactionBody{
		Payer:      b.Signer.AccountID,
		ValidStart: now().UTC(),
		Nonce:      nonce,
		MaxFee:     feeLimit,
		Memo:       b.Memo,
		Kind:       kind,
		FileCreate: &wire.FileCreateBody{
			Keys:     [][]byte{b.Signer.PublicKey.Bytes()},
			Contents: append([]byte(nil), payload...),
		},
	}
	bodyBytes := body.Marshal()
	sig, err := b.Signer.Sign(bodyBytes)
	if err != nil {
		return client.Request{}, err
	}
	signed := wire.SignedTransaction{
		BodyBytes: bodyBytes,
		SigPairs:  []wire.SigPair{{PublicKey: b.Signer.PublicKey.Bytes(), Signature: sig}},
	}.Marshal()
	if len(signed) > wire.MaxTransactionSize {
		return client.Request{}, model.Errorf(model.CodePayloadTooLarge, "signed transaction is %d bytes, limit %d", len(signed), wire.MaxTransactionSize)
	}

	signer := b.Signer
	return client.Request{Payload: signed, Signer: &signer, FeeLimit: feeLimit}, nil
}
