package wire

import (
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/encoding/protowire"

	"xdao.co/ledger/model"
)

// TransactionKind selects the body payload of a transaction.
type TransactionKind uint8

const (
	KindUnknown TransactionKind = iota
	KindFileCreate
)

func (k TransactionKind) String() string {
	switch k {
	case KindFileCreate:
		return "FileCreate"
	default:
		return "Unknown"
	}
}

// TransactionBody is the signed part of a transaction. It carries no node
// account, so the same signed bytes can be sent to any node.
type TransactionBody struct {
	Payer      model.EntityID
	ValidStart time.Time
	Nonce      uuid.UUID
	MaxFee     model.Amount
	Memo       string
	Kind       TransactionKind
	FileCreate *FileCreateBody
}

// FileCreateBody creates a file owned by Keys.
type FileCreateBody struct {
	// Keys are scheme-tagged public keys (keys.PublicKey.Bytes).
	Keys     [][]byte
	Contents []byte
	Memo     string
}

// SigPair is one signature over TransactionBody bytes.
type SigPair struct {
	PublicKey []byte
	Signature []byte
}

// SignedTransaction is the envelope submitted to a node.
type SignedTransaction struct {
	BodyBytes []byte
	SigPairs  []SigPair
}

func (t TransactionBody) Marshal() []byte {
	var b []byte
	b = AppendEntityID(b, 1, t.Payer)
	if !t.ValidStart.IsZero() {
		b = appendVarintField(b, 2, uint64(t.ValidStart.UnixNano()))
	}
	if t.Nonce != uuid.Nil {
		b = appendBytesField(b, 3, t.Nonce[:])
	}
	b = appendVarintField(b, 4, uint64(t.MaxFee))
	b = appendStringField(b, 5, t.Memo)
	b = appendVarintField(b, 6, uint64(t.Kind))
	if t.FileCreate != nil {
		b = protowire.AppendTag(b, 7, protowire.BytesType)
		b = protowire.AppendBytes(b, t.FileCreate.marshal())
	}
	return b
}

func (f FileCreateBody) marshal() []byte {
	var b []byte
	for _, k := range f.Keys {
		b = protowire.AppendTag(b, 1, protowire.BytesType)
		b = protowire.AppendBytes(b, k)
	}
	b = appendBytesField(b, 2, f.Contents)
	return appendStringField(b, 3, f.Memo)
}

func UnmarshalTransactionBody(b []byte) (TransactionBody, error) {
	var t TransactionBody
	err := walk("transaction body", b, func(f field) error {
		switch f.num {
		case 1:
			if f.typ != protowire.BytesType {
				return wrongType("transaction body", f)
			}
			id, err := DecodeEntityID(f.bytes)
			if err != nil {
				return err
			}
			t.Payer = id
		case 2:
			t.ValidStart = time.Unix(0, int64(f.varint)).UTC()
		case 3:
			if f.typ != protowire.BytesType {
				return wrongType("transaction body", f)
			}
			n, err := uuid.FromBytes(f.bytes)
			if err != nil {
				return decodeErr("transaction nonce", err)
			}
			t.Nonce = n
		case 4:
			t.MaxFee = model.Amount(f.varint)
		case 5:
			t.Memo = string(f.bytes)
		case 6:
			t.Kind = TransactionKind(f.varint)
		case 7:
			if f.typ != protowire.BytesType {
				return wrongType("transaction body", f)
			}
			fc, err := unmarshalFileCreate(f.bytes)
			if err != nil {
				return err
			}
			t.FileCreate = &fc
		}
		return nil
	})
	return t, err
}

func unmarshalFileCreate(b []byte) (FileCreateBody, error) {
	var fc FileCreateBody
	err := walk("file create", b, func(f field) error {
		if f.typ != protowire.BytesType {
			return nil
		}
		switch f.num {
		case 1:
			fc.Keys = append(fc.Keys, append([]byte(nil), f.bytes...))
		case 2:
			fc.Contents = append([]byte(nil), f.bytes...)
		case 3:
			fc.Memo = string(f.bytes)
		}
		return nil
	})
	return fc, err
}

func (s SignedTransaction) Marshal() []byte {
	var b []byte
	b = appendBytesField(b, 1, s.BodyBytes)
	for _, p := range s.SigPairs {
		var inner []byte
		inner = appendBytesField(inner, 1, p.PublicKey)
		inner = appendBytesField(inner, 2, p.Signature)
		b = protowire.AppendTag(b, 2, protowire.BytesType)
		b = protowire.AppendBytes(b, inner)
	}
	return b
}

func UnmarshalSignedTransaction(b []byte) (SignedTransaction, error) {
	var s SignedTransaction
	err := walk("signed transaction", b, func(f field) error {
		if f.typ != protowire.BytesType {
			return nil
		}
		switch f.num {
		case 1:
			s.BodyBytes = append([]byte(nil), f.bytes...)
		case 2:
			var p SigPair
			err := walk("signature pair", f.bytes, func(g field) error {
				if g.typ != protowire.BytesType {
					return nil
				}
				switch g.num {
				case 1:
					p.PublicKey = append([]byte(nil), g.bytes...)
				case 2:
					p.Signature = append([]byte(nil), g.bytes...)
				}
				return nil
			})
			if err != nil {
				return err
			}
			s.SigPairs = append(s.SigPairs, p)
		}
		return nil
	})
	if err == nil && len(s.BodyBytes) == 0 {
		err = model.Errorf(model.CodeDecodeError, "decode signed transaction: missing body")
	}
	return s, err
}
