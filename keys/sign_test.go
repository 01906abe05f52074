package keys

import (
	"crypto/ed25519"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/cloudflare/circl/sign/dilithium/mode3"

	"xdao.co/ledger/model"
)

type deterministicReader struct{ b byte }

func (r *deterministicReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = r.b
		r.b++
	}
	return len(p), nil
}

func testSeed() []byte {
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = byte(i)
	}
	return seed
}

func mustLoad(t *testing.T, account, material, public string) Identity {
	t.Helper()
	id, err := Load(account, material, public)
	if err != nil {
		t.Fatalf("Load(%q) failed: %v", material, err)
	}
	return id
}

func expectCode(t *testing.T, err error, code model.Code) {
	t.Helper()
	if !model.IsCode(err, code) {
		t.Fatalf("expected %s, got %v", code, err)
	}
}

func TestLoadEd25519FormsAgree(t *testing.T) {
	seed := testSeed()
	seedHex := hex.EncodeToString(seed)
	der := append(append([]byte(nil), ed25519PrivateDERPrefix...), seed...)
	full := ed25519.NewKeyFromSeed(seed)

	forms := []string{
		seedHex,
		"0x" + seedHex,
		"ed25519:" + seedHex,
		hex.EncodeToString(der),
		hex.EncodeToString(full),
	}
	var first PublicKey
	for i, material := range forms {
		id := mustLoad(t, "0.0.2", material, "")
		if id.AccountID != (model.EntityID{Num: 2}) {
			t.Fatalf("form %d: account %s", i, id.AccountID)
		}
		if i == 0 {
			first = id.PublicKey
			continue
		}
		if !first.Equal(id.PublicKey) {
			t.Fatalf("form %d derived a different key", i)
		}
	}
}

func TestLoadDerivesDeterministicPublicKey(t *testing.T) {
	a := mustLoad(t, "0.0.1001", hex.EncodeToString(testSeed()), "")
	b := mustLoad(t, "0.0.1001", a.PrivateKey.Material(), "")
	if !a.PublicKey.Equal(b.PublicKey) || !a.PublicKey.Equal(a.PrivateKey.Public()) {
		t.Fatalf("public key not deterministic")
	}

	// The derived key also round-trips through every public encoding.
	fromString, err := ParsePublicKey(a.PublicKey.String())
	if err != nil || !fromString.Equal(a.PublicKey) {
		t.Fatalf("string form: %v", err)
	}
	fromWire, err := ParsePublicKeyBytes(a.PublicKey.Bytes())
	if err != nil || !fromWire.Equal(a.PublicKey) {
		t.Fatalf("wire form: %v", err)
	}
	der := append(append([]byte(nil), ed25519PublicDERPrefix...), a.PublicKey.Raw()...)
	fromDER, err := ParsePublicKey(hex.EncodeToString(der))
	if err != nil || !fromDER.Equal(a.PublicKey) {
		t.Fatalf("DER form: %v", err)
	}
}

func TestLoadRejectsBadInput(t *testing.T) {
	for _, bad := range []string{"not-hex", "rsa:abcd", "abcd"} {
		_, err := Load("0.0.2", bad, "")
		expectCode(t, err, model.CodeInvalidKeyFormat)
	}

	_, err := Load("zero", hex.EncodeToString(testSeed()), "")
	expectCode(t, err, model.CodeInvalidEntityID)

	other := make([]byte, ed25519.SeedSize)
	other[0] = 0x42
	otherKey, err := NewEd25519FromSeed(other)
	if err != nil {
		t.Fatalf("NewEd25519FromSeed failed: %v", err)
	}
	_, err = Load("0.0.2", hex.EncodeToString(testSeed()), otherKey.Public().String())
	expectCode(t, err, model.CodeKeyMismatch)
	if model.KindOf(err) != model.KindConfiguration {
		t.Fatalf("mismatch kind: %v", model.KindOf(err))
	}

	tampered := ed25519.NewKeyFromSeed(testSeed())
	tampered[63] ^= 0xff
	_, err = Load("0.0.2", hex.EncodeToString(tampered), "")
	expectCode(t, err, model.CodeKeyMismatch)
}

func TestSignEd25519Verifies(t *testing.T) {
	id := mustLoad(t, "0.0.2", hex.EncodeToString(testSeed()), "")

	msg := []byte("hello")
	sig, err := id.Sign(msg)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	if !Verify(id.PublicKey, msg, sig) {
		t.Fatalf("signature does not verify")
	}
	if Verify(id.PublicKey, []byte("hellO"), sig) {
		t.Fatalf("signature verifies over a different message")
	}
}

func TestSignDilithium3Verifies(t *testing.T) {
	_, sk, err := mode3.GenerateKey(io.Reader(&deterministicReader{}))
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}

	key := NewDilithium3(sk)
	id := mustLoad(t, "0.0.7", key.Material(), "")
	if id.PublicKey.Scheme() != SchemeDilithium3 {
		t.Fatalf("scheme: got %v", id.PublicKey.Scheme())
	}

	msg := []byte("hello")
	sig, err := id.Sign(msg)
	if err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	if len(sig) != mode3.SignatureSize {
		t.Fatalf("signature size: got %d want %d", len(sig), mode3.SignatureSize)
	}
	if !Verify(id.PublicKey, msg, sig) || Verify(id.PublicKey, []byte("other"), sig) {
		t.Fatalf("dilithium3 verification mismatch")
	}

	given, err := ParsePublicKey(id.PublicKey.String())
	if err != nil {
		t.Fatalf("ParsePublicKey failed: %v", err)
	}
	mustLoad(t, "0.0.7", key.Material(), given.String())
}

func TestPrivateKeyStringRedacts(t *testing.T) {
	k, err := NewEd25519FromSeed(testSeed())
	if err != nil {
		t.Fatalf("NewEd25519FromSeed failed: %v", err)
	}
	if got := k.String(); got != "ed25519:<redacted>" {
		t.Fatalf("String leaked key material: %q", got)
	}
}

func TestReadKeyFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "operator.key")
	if err := os.WriteFile(path, []byte("  "+hex.EncodeToString(testSeed())+"\n"), 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	material, err := ReadKeyFile(path)
	if err != nil {
		t.Fatalf("ReadKeyFile failed: %v", err)
	}
	if material != hex.EncodeToString(testSeed()) {
		t.Fatalf("material not trimmed: %q", material)
	}

	empty := filepath.Join(dir, "empty.key")
	if err := os.WriteFile(empty, []byte("\n"), 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	_, err = ReadKeyFile(empty)
	expectCode(t, err, model.CodeInvalidKeyFormat)

	if _, err := ReadKeyFile(filepath.Join(dir, "missing.key")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
