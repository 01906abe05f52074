package wire

import (
	"google.golang.org/protobuf/encoding/protowire"

	"xdao.co/ledger/model"
)

// QueryKind selects what a Query reads.
type QueryKind uint8

const (
	QueryUnknown QueryKind = iota
	// QueryFileContents answers with the raw file bytes.
	QueryFileContents
	// QueryAccountBalance answers with an encoded Balance.
	QueryAccountBalance
	// QueryReceipt answers with an encoded Receipt.
	QueryReceipt
)

func (k QueryKind) String() string {
	switch k {
	case QueryFileContents:
		return "FileContents"
	case QueryAccountBalance:
		return "AccountBalance"
	case QueryReceipt:
		return "Receipt"
	default:
		return "Unknown"
	}
}

// Query is a read-only request. Target names the file or account;
// TransactionID is set for receipt queries.
type Query struct {
	Kind          QueryKind
	Target        model.EntityID
	TransactionID string
}

func (q Query) Marshal() []byte {
	var b []byte
	b = appendVarintField(b, 1, uint64(q.Kind))
	if !q.Target.IsZero() {
		b = AppendEntityID(b, 2, q.Target)
	}
	return appendStringField(b, 3, q.TransactionID)
}

func UnmarshalQuery(b []byte) (Query, error) {
	var q Query
	err := walk("query", b, func(f field) error {
		switch f.num {
		case 1:
			q.Kind = QueryKind(f.varint)
		case 2:
			if f.typ != protowire.BytesType {
				return wrongType("query", f)
			}
			id, err := DecodeEntityID(f.bytes)
			if err != nil {
				return err
			}
			q.Target = id
		case 3:
			q.TransactionID = string(f.bytes)
		}
		return nil
	})
	return q, err
}

// MarshalReceipt encodes r as {status=1, reason=2, resource_id=3}.
func MarshalReceipt(r model.Receipt) []byte {
	var b []byte
	// Status is written even when zero so an empty message is never a receipt.
	b = protowire.AppendTag(b, 1, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(r.Status))
	b = appendStringField(b, 2, r.Reason)
	if r.ResourceID != nil {
		b = AppendEntityID(b, 3, *r.ResourceID)
	}
	return b
}

func UnmarshalReceipt(b []byte) (model.Receipt, error) {
	var (
		r         model.Receipt
		hasStatus bool
	)
	err := walk("receipt", b, func(f field) error {
		switch f.num {
		case 1:
			r.Status = model.ReceiptStatus(f.varint)
			hasStatus = true
		case 2:
			r.Reason = string(f.bytes)
		case 3:
			if f.typ != protowire.BytesType {
				return wrongType("receipt", f)
			}
			id, err := DecodeEntityID(f.bytes)
			if err != nil {
				return err
			}
			r.ResourceID = &id
		}
		return nil
	})
	if err != nil {
		return model.Receipt{}, err
	}
	if !hasStatus {
		return model.Receipt{}, model.Errorf(model.CodeDecodeError, "decode receipt: missing status")
	}
	if r.Status > model.ReceiptFailed {
		return model.Receipt{}, model.Errorf(model.CodeDecodeError, "decode receipt: unknown status %d", r.Status)
	}
	return r, nil
}

// MarshalBalance encodes an account balance as {tinybars=1 (zigzag)}.
func MarshalBalance(a model.Amount) []byte {
	b := protowire.AppendTag(nil, 1, protowire.VarintType)
	return protowire.AppendVarint(b, protowire.EncodeZigZag(int64(a)))
}

func UnmarshalBalance(b []byte) (model.Amount, error) {
	var (
		a     model.Amount
		found bool
	)
	err := walk("balance", b, func(f field) error {
		if f.num == 1 && f.typ == protowire.VarintType {
			a = model.Amount(protowire.DecodeZigZag(f.varint))
			found = true
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, model.Errorf(model.CodeDecodeError, "decode balance: missing tinybars")
	}
	return a, nil
}
