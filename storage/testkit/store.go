package testkit

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"xdao.co/ledger/model"
	"xdao.co/ledger/storage"
)

// NewStore constructs a fresh, empty Store for a test.
// The returned Store MUST be isolated from other tests.
type NewStore func(t *testing.T) storage.Store

func RunStoreConformance(t *testing.T, newStore NewStore) {
	t.Helper()
	ctx := context.Background()
	payer := model.EntityID{Num: 2}

	open := func(t *testing.T) storage.Store {
		s := newStore(t)
		t.Cleanup(func() { _ = s.Close() })
		if err := s.PutAccount(ctx, storage.Account{ID: payer, Balance: model.Hbar(100), Key: []byte{1, 7, 7}}); err != nil {
			t.Fatalf("PutAccount failed: %v", err)
		}
		return s
	}

	t.Run("AccountRoundTrip", func(t *testing.T) {
		s := open(t)
		got, err := s.GetAccount(ctx, payer)
		if err != nil {
			t.Fatalf("GetAccount failed: %v", err)
		}
		if got.Balance != model.Hbar(100) || !bytes.Equal(got.Key, []byte{1, 7, 7}) {
			t.Fatalf("GetAccount mismatch: %+v", got)
		}
		if _, err := s.GetAccount(ctx, model.EntityID{Num: 999}); !storage.IsNotFound(err) {
			t.Fatalf("GetAccount missing: got err=%v want ErrNotFound", err)
		}
	})

	createFile := func(t *testing.T, s storage.Store, txID string, floor uint64) model.Receipt {
		t.Helper()
		r, err := s.Settle(ctx, storage.Settlement{
			TransactionID: txID,
			Payer:         payer,
			Fee:           model.Hbar(1),
			File:          &storage.File{Contents: []byte(txID), TransactionID: txID},
			EntityFloor:   floor,
			Receipt:       model.Receipt{Status: model.ReceiptSuccess},
		})
		if err != nil {
			t.Fatalf("Settle %s failed: %v", txID, err)
		}
		if r.ResourceID == nil {
			t.Fatalf("Settle %s: receipt has no resource id", txID)
		}
		return r
	}

	t.Run("EntityNumbersIncreaseFromFloor", func(t *testing.T) {
		s := open(t)
		a := createFile(t, s, "tx-1", 1001).ResourceID.Num
		b := createFile(t, s, "tx-2", 1001).ResourceID.Num
		if a != 1001 || b != 1002 {
			t.Fatalf("got %d, %d want 1001, 1002", a, b)
		}
		if c := createFile(t, s, "tx-3", 5000).ResourceID.Num; c != 5000 {
			t.Fatalf("floor not honoured: got %d", c)
		}
	})

	t.Run("SettleCreatesFileAndChargesFee", func(t *testing.T) {
		s := open(t)
		if err := s.PutReceipt(ctx, "tx-1", model.Receipt{Status: model.ReceiptPending}); err != nil {
			t.Fatalf("PutReceipt failed: %v", err)
		}
		got, err := s.Settle(ctx, storage.Settlement{
			TransactionID: "tx-1",
			Payer:         payer,
			Fee:           model.Hbar(1),
			File:          &storage.File{Keys: [][]byte{{1, 7, 7}}, Contents: []byte("hello"), TransactionID: "tx-1"},
			EntityFloor:   1001,
			Receipt:       model.Receipt{Status: model.ReceiptSuccess},
		})
		if err != nil {
			t.Fatalf("Settle failed: %v", err)
		}
		id := model.EntityID{Num: 1001}
		if got.Status != model.ReceiptSuccess || got.ResourceID == nil || *got.ResourceID != id {
			t.Fatalf("Settle receipt mismatch: %+v", got)
		}

		f, err := s.GetFile(ctx, id)
		if err != nil {
			t.Fatalf("GetFile failed: %v", err)
		}
		if string(f.Contents) != "hello" || len(f.Keys) != 1 || f.TransactionID != "tx-1" {
			t.Fatalf("GetFile mismatch: %+v", f)
		}
		acct, err := s.GetAccount(ctx, payer)
		if err != nil {
			t.Fatalf("GetAccount failed: %v", err)
		}
		if acct.Balance != model.Hbar(99) {
			t.Fatalf("balance: got %s want %s", acct.Balance, model.Hbar(99))
		}
		r, err := s.GetReceipt(ctx, "tx-1")
		if err != nil {
			t.Fatalf("GetReceipt failed: %v", err)
		}
		if r.Status != model.ReceiptSuccess || r.ResourceID == nil || *r.ResourceID != id {
			t.Fatalf("receipt mismatch: %+v", r)
		}
	})

	t.Run("TerminalReceiptsAreFinal", func(t *testing.T) {
		s := open(t)
		failed := model.Receipt{Status: model.ReceiptFailed, Reason: "INSUFFICIENT_PAYER_BALANCE"}
		if _, err := s.Settle(ctx, storage.Settlement{TransactionID: "tx-2", Payer: payer, Receipt: failed}); err != nil {
			t.Fatalf("Settle failed: %v", err)
		}
		if err := s.PutReceipt(ctx, "tx-2", model.Receipt{Status: model.ReceiptPending}); !errors.Is(err, storage.ErrExists) {
			t.Fatalf("PutReceipt over terminal: got err=%v want ErrExists", err)
		}
		if _, err := s.Settle(ctx, storage.Settlement{TransactionID: "tx-2", Payer: payer, Receipt: failed}); !errors.Is(err, storage.ErrExists) {
			t.Fatalf("Settle twice: got err=%v want ErrExists", err)
		}
		r, err := s.GetReceipt(ctx, "tx-2")
		if err != nil {
			t.Fatalf("GetReceipt failed: %v", err)
		}
		if r.Status != model.ReceiptFailed || r.Reason != failed.Reason {
			t.Fatalf("receipt mismatch: %+v", r)
		}
	})

	t.Run("FailedSettleLeavesNoTrace", func(t *testing.T) {
		s := open(t)
		createFile(t, s, "tx-a", 1001)

		again := storage.Settlement{
			TransactionID: "tx-a",
			Payer:         payer,
			Fee:           model.Hbar(1),
			File:          &storage.File{Contents: []byte("again")},
			EntityFloor:   1001,
			Receipt:       model.Receipt{Status: model.ReceiptSuccess},
		}
		if _, err := s.Settle(ctx, again); !errors.Is(err, storage.ErrExists) {
			t.Fatalf("Settle over terminal receipt: got err=%v want ErrExists", err)
		}
		orphan := again
		orphan.TransactionID = "tx-b"
		orphan.Payer = model.EntityID{Num: 999}
		if _, err := s.Settle(ctx, orphan); !storage.IsNotFound(err) {
			t.Fatalf("Settle with unknown payer: got err=%v want ErrNotFound", err)
		}
		if _, err := s.GetReceipt(ctx, "tx-b"); !storage.IsNotFound(err) {
			t.Fatalf("failed settle wrote a receipt: err=%v", err)
		}

		acct, err := s.GetAccount(ctx, payer)
		if err != nil {
			t.Fatalf("GetAccount failed: %v", err)
		}
		if acct.Balance != model.Hbar(99) {
			t.Fatalf("failed settle charged a fee: balance %s", acct.Balance)
		}
		if next := createFile(t, s, "tx-c", 1001).ResourceID.Num; next != 1002 {
			t.Fatalf("failed settle consumed an entity number: next is %d want 1002", next)
		}
	})

	t.Run("MissingEntries", func(t *testing.T) {
		s := open(t)
		if _, err := s.GetFile(ctx, model.EntityID{Num: 4242}); !storage.IsNotFound(err) {
			t.Fatalf("GetFile missing: got err=%v want ErrNotFound", err)
		}
		if _, err := s.GetReceipt(ctx, "unknown"); !storage.IsNotFound(err) {
			t.Fatalf("GetReceipt missing: got err=%v want ErrNotFound", err)
		}
	})
}
