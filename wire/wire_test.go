package wire

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/encoding/protowire"

	"xdao.co/ledger/model"
)

func TestSignedTransactionCarriesFileCreate(t *testing.T) {
	start := time.Unix(1700000000, 123).UTC()
	body := TransactionBody{
		Payer:      model.MustParseEntityID("0.0.1001"),
		ValidStart: start,
		Nonce:      uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8"),
		MaxFee:     model.Hbar(2),
		Kind:       KindFileCreate,
		FileCreate: &FileCreateBody{
			Keys:     [][]byte{{1, 2, 3}},
			Contents: []byte("hello-ledger"),
		},
	}
	signed := SignedTransaction{
		BodyBytes: body.Marshal(),
		SigPairs:  []SigPair{{PublicKey: []byte{1, 2, 3}, Signature: []byte{9, 9}}},
	}

	gotSigned, err := UnmarshalSignedTransaction(signed.Marshal())
	if err != nil {
		t.Fatalf("UnmarshalSignedTransaction failed: %v", err)
	}
	if len(gotSigned.SigPairs) != 1 || !bytes.Equal(gotSigned.SigPairs[0].Signature, []byte{9, 9}) {
		t.Fatalf("sig pairs: %+v", gotSigned.SigPairs)
	}

	got, err := UnmarshalTransactionBody(gotSigned.BodyBytes)
	if err != nil {
		t.Fatalf("UnmarshalTransactionBody failed: %v", err)
	}
	if got.Payer != body.Payer || !start.Equal(got.ValidStart) || got.Nonce != body.Nonce {
		t.Fatalf("header mismatch: %+v", got)
	}
	if got.MaxFee != model.Hbar(2) || got.Kind != KindFileCreate {
		t.Fatalf("fee/kind mismatch: %s %v", got.MaxFee, got.Kind)
	}
	if got.FileCreate == nil || string(got.FileCreate.Contents) != "hello-ledger" {
		t.Fatalf("file create body: %+v", got.FileCreate)
	}
}

func TestDecodersSkipUnknownFields(t *testing.T) {
	b := Query{Kind: QueryFileContents, Target: model.EntityID{Num: 42}}.Marshal()
	b = protowire.AppendTag(b, 99, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, 7)
	b = protowire.AppendTag(b, 100, protowire.BytesType)
	b = protowire.AppendString(b, "future")

	q, err := UnmarshalQuery(b)
	if err != nil {
		t.Fatalf("UnmarshalQuery failed: %v", err)
	}
	if q.Kind != QueryFileContents || q.Target.Num != 42 {
		t.Fatalf("query: %+v", q)
	}
}

func TestReceiptEncoding(t *testing.T) {
	id := model.MustParseEntityID("0.0.12345")
	r, err := UnmarshalReceipt(MarshalReceipt(model.Receipt{Status: model.ReceiptSuccess, ResourceID: &id}))
	if err != nil {
		t.Fatalf("UnmarshalReceipt failed: %v", err)
	}
	if r.Status != model.ReceiptSuccess || r.ResourceID == nil || *r.ResourceID != id {
		t.Fatalf("receipt: %+v", r)
	}

	pending, err := UnmarshalReceipt(MarshalReceipt(model.Receipt{}))
	if err != nil {
		t.Fatalf("UnmarshalReceipt(pending) failed: %v", err)
	}
	if pending.Status != model.ReceiptPending || pending.ResourceID != nil {
		t.Fatalf("pending receipt: %+v", pending)
	}

	if _, err := UnmarshalReceipt(nil); !model.IsCode(err, model.CodeDecodeError) {
		t.Fatalf("empty receipt: expected %s, got %v", model.CodeDecodeError, err)
	}
}

func TestBalanceEncodingKeepsSign(t *testing.T) {
	for _, a := range []model.Amount{0, 1, model.Hbar(10_000), -5} {
		got, err := UnmarshalBalance(MarshalBalance(a))
		if err != nil {
			t.Fatalf("UnmarshalBalance(%d) failed: %v", int64(a), err)
		}
		if got != a {
			t.Fatalf("balance: got %d want %d", int64(got), int64(a))
		}
	}
}

func TestTruncatedInputIsDecodeError(t *testing.T) {
	b := SignedTransaction{BodyBytes: []byte("body")}.Marshal()
	if _, err := UnmarshalSignedTransaction(b[:len(b)-1]); !model.IsCode(err, model.CodeDecodeError) {
		t.Fatalf("truncated: expected %s, got %v", model.CodeDecodeError, err)
	}
	if _, err := UnmarshalSignedTransaction(nil); !model.IsCode(err, model.CodeDecodeError) {
		t.Fatalf("empty: expected %s, got %v", model.CodeDecodeError, err)
	}
}
