package cidutil

import "testing"

func TestTransactionIDDeterministic(t *testing.T) {
	a, err := TransactionID([]byte("body"))
	if err != nil {
		t.Fatalf("TransactionID: %v", err)
	}
	b, err := TransactionID([]byte("body"))
	if err != nil {
		t.Fatalf("TransactionID: %v", err)
	}
	if a != b {
		t.Fatalf("ids differ: %s vs %s", a, b)
	}
	if !Matches(a, []byte("body")) {
		t.Fatalf("Matches: expected true")
	}
	if Matches(a, []byte("other")) {
		t.Fatalf("Matches: expected false for different body")
	}
}

func TestParseTransactionID(t *testing.T) {
	id, err := TransactionID([]byte("x"))
	if err != nil {
		t.Fatalf("TransactionID: %v", err)
	}
	got, err := ParseTransactionID(id)
	if err != nil {
		t.Fatalf("ParseTransactionID: %v", err)
	}
	if got != id {
		t.Fatalf("got %s want %s", got, id)
	}
	if _, err := ParseTransactionID("not-a-cid"); err == nil {
		t.Fatalf("expected error for garbage id")
	}
}
