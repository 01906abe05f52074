package keys

import (
	"bytes"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/cloudflare/circl/sign/dilithium/mode3"

	"xdao.co/ledger/model"
)

// Scheme identifies a signature algorithm. The numeric value is the tag byte
// used in the scheme-tagged wire form of a public key.
type Scheme uint8

const (
	SchemeEd25519    Scheme = 1
	SchemeDilithium3 Scheme = 2
)

func (s Scheme) String() string {
	switch s {
	case SchemeEd25519:
		return "ed25519"
	case SchemeDilithium3:
		return "dilithium3"
	default:
		return fmt.Sprintf("scheme(%d)", uint8(s))
	}
}

// DER prefixes of the PKCS#8 / SubjectPublicKeyInfo encodings that ledger SDKs
// export for ed25519 keys as hex strings.
var (
	ed25519PrivateDERPrefix = []byte{0x30, 0x2e, 0x02, 0x01, 0x00, 0x30, 0x05, 0x06, 0x03, 0x2b, 0x65, 0x70, 0x04, 0x22, 0x04, 0x20}
	ed25519PublicDERPrefix  = []byte{0x30, 0x2a, 0x30, 0x05, 0x06, 0x03, 0x2b, 0x65, 0x70, 0x03, 0x21, 0x00}
)

// PublicKey is verification material for one Scheme.
type PublicKey struct {
	scheme Scheme
	raw    []byte
}

func (p PublicKey) Scheme() Scheme { return p.scheme }

// IsZero reports whether p holds no key.
func (p PublicKey) IsZero() bool { return p.scheme == 0 || len(p.raw) == 0 }

// Raw returns a copy of the scheme-specific key bytes.
func (p PublicKey) Raw() []byte { return append([]byte(nil), p.raw...) }

// Bytes returns the scheme-tagged wire form: one tag byte followed by the raw key.
func (p PublicKey) Bytes() []byte {
	out := make([]byte, 0, 1+len(p.raw))
	out = append(out, byte(p.scheme))
	return append(out, p.raw...)
}

// String returns "<scheme>:" + base64(raw key).
func (p PublicKey) String() string {
	return p.scheme.String() + ":" + base64.StdEncoding.EncodeToString(p.raw)
}

func (p PublicKey) Equal(o PublicKey) bool {
	return p.scheme == o.scheme && bytes.Equal(p.raw, o.raw)
}

// ParsePublicKeyBytes decodes the scheme-tagged wire form produced by Bytes.
func ParsePublicKeyBytes(b []byte) (PublicKey, error) {
	if len(b) < 1 {
		return PublicKey{}, model.Errorf(model.CodeInvalidKeyFormat, "public key: empty")
	}
	return newPublicKey(Scheme(b[0]), b[1:])
}

// ParsePublicKey accepts "ed25519:<base64>", "dilithium3:<base64>", bare hex
// ed25519 keys, and DER-hex ed25519 keys.
func ParsePublicKey(s string) (PublicKey, error) {
	raw := strings.TrimSpace(s)
	if scheme, body, ok := splitScheme(raw); ok {
		b, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return PublicKey{}, model.Wrap(model.CodeInvalidKeyFormat, "public key is not valid base64", err)
		}
		return newPublicKey(scheme, b)
	}
	b, err := decodeHex(raw)
	if err != nil {
		return PublicKey{}, model.Wrap(model.CodeInvalidKeyFormat, "public key is not valid hex", err)
	}
	if len(b) == len(ed25519PublicDERPrefix)+ed25519.PublicKeySize && bytes.HasPrefix(b, ed25519PublicDERPrefix) {
		b = b[len(ed25519PublicDERPrefix):]
	}
	return newPublicKey(SchemeEd25519, b)
}

func newPublicKey(scheme Scheme, raw []byte) (PublicKey, error) {
	switch scheme {
	case SchemeEd25519:
		if len(raw) != ed25519.PublicKeySize {
			return PublicKey{}, model.Errorf(model.CodeInvalidKeyFormat, "ed25519 public key must be %d bytes, got %d", ed25519.PublicKeySize, len(raw))
		}
	case SchemeDilithium3:
		if len(raw) != mode3.PublicKeySize {
			return PublicKey{}, model.Errorf(model.CodeInvalidKeyFormat, "dilithium3 public key must be %d bytes, got %d", mode3.PublicKeySize, len(raw))
		}
	default:
		return PublicKey{}, model.Errorf(model.CodeInvalidKeyFormat, "unsupported key scheme %s", scheme)
	}
	return PublicKey{scheme: scheme, raw: append([]byte(nil), raw...)}, nil
}

// PrivateKey is secret signing material for one Scheme.
type PrivateKey struct {
	scheme Scheme
	ed     ed25519.PrivateKey
	dil    *mode3.PrivateKey
}

// NewEd25519FromSeed returns the ed25519 key for a 32-byte seed.
func NewEd25519FromSeed(seed []byte) (PrivateKey, error) {
	if len(seed) != ed25519.SeedSize {
		return PrivateKey{}, model.Errorf(model.CodeInvalidKeyFormat, "ed25519 seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return PrivateKey{scheme: SchemeEd25519, ed: ed25519.NewKeyFromSeed(seed)}, nil
}

// NewDilithium3 wraps an existing dilithium3 key.
func NewDilithium3(sk *mode3.PrivateKey) PrivateKey {
	return PrivateKey{scheme: SchemeDilithium3, dil: sk}
}

// ParsePrivateKey parses operator key material.
//
// Accepted forms:
//   - "ed25519:<hex>" or bare hex (optionally "0x"-prefixed): a 32-byte seed,
//     a 64-byte seed||public key, or the 48-byte DER encoding of the seed
//   - "dilithium3:<base64>": a packed dilithium3 private key
func ParsePrivateKey(material string) (PrivateKey, error) {
	raw := strings.TrimSpace(material)
	if raw == "" {
		return PrivateKey{}, model.Errorf(model.CodeInvalidKeyFormat, "private key: empty")
	}
	scheme, body, ok := splitScheme(raw)
	if !ok {
		scheme, body = SchemeEd25519, raw
	}
	switch scheme {
	case SchemeEd25519:
		return parseEd25519(body)
	case SchemeDilithium3:
		b, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return PrivateKey{}, model.Wrap(model.CodeInvalidKeyFormat, "dilithium3 private key is not valid base64", err)
		}
		if len(b) != mode3.PrivateKeySize {
			return PrivateKey{}, model.Errorf(model.CodeInvalidKeyFormat, "dilithium3 private key must be %d bytes, got %d", mode3.PrivateKeySize, len(b))
		}
		sk := new(mode3.PrivateKey)
		if err := sk.UnmarshalBinary(b); err != nil {
			return PrivateKey{}, model.Wrap(model.CodeInvalidKeyFormat, "dilithium3 private key", err)
		}
		return NewDilithium3(sk), nil
	default:
		return PrivateKey{}, model.Errorf(model.CodeInvalidKeyFormat, "unsupported key scheme %s", scheme)
	}
}

func parseEd25519(body string) (PrivateKey, error) {
	b, err := decodeHex(body)
	if err != nil {
		return PrivateKey{}, model.Wrap(model.CodeInvalidKeyFormat, "ed25519 private key is not valid hex", err)
	}
	switch {
	case len(b) == ed25519.SeedSize:
		return NewEd25519FromSeed(b)
	case len(b) == len(ed25519PrivateDERPrefix)+ed25519.SeedSize && bytes.HasPrefix(b, ed25519PrivateDERPrefix):
		return NewEd25519FromSeed(b[len(ed25519PrivateDERPrefix):])
	case len(b) == ed25519.PrivateKeySize:
		k, err := NewEd25519FromSeed(b[:ed25519.SeedSize])
		if err != nil {
			return PrivateKey{}, err
		}
		if !bytes.Equal(k.ed[ed25519.SeedSize:], b[ed25519.SeedSize:]) {
			return PrivateKey{}, model.Errorf(model.CodeKeyMismatch, "embedded ed25519 public key does not match seed")
		}
		return k, nil
	default:
		return PrivateKey{}, model.Errorf(model.CodeInvalidKeyFormat, "ed25519 private key: unexpected length %d", len(b))
	}
}

func (k PrivateKey) Scheme() Scheme { return k.scheme }

// IsZero reports whether k holds no key.
func (k PrivateKey) IsZero() bool { return k.ed == nil && k.dil == nil }

// Public derives the verification key.
func (k PrivateKey) Public() PublicKey {
	switch k.scheme {
	case SchemeEd25519:
		return PublicKey{scheme: SchemeEd25519, raw: append([]byte(nil), k.ed.Public().(ed25519.PublicKey)...)}
	case SchemeDilithium3:
		pk := k.dil.Public().(*mode3.PublicKey)
		return PublicKey{scheme: SchemeDilithium3, raw: pk.Bytes()}
	default:
		return PublicKey{}
	}
}

// Sign signs message. ed25519 signs the message itself; dilithium3 signs its
// sha3-256 digest.
func (k PrivateKey) Sign(message []byte) ([]byte, error) {
	switch k.scheme {
	case SchemeEd25519:
		return ed25519.Sign(k.ed, message), nil
	case SchemeDilithium3:
		if k.dil == nil {
			return nil, model.Errorf(model.CodeInvalidKeyFormat, "missing dilithium3 private key")
		}
		sig := make([]byte, mode3.SignatureSize)
		mode3.SignTo(k.dil, digestFor(SchemeDilithium3, message), sig)
		return sig, nil
	default:
		return nil, model.Errorf(model.CodeInvalidKeyFormat, "cannot sign with %s", k.scheme)
	}
}

// Material encodes k in the form ParsePrivateKey reads.
func (k PrivateKey) Material() string {
	switch k.scheme {
	case SchemeEd25519:
		return "ed25519:" + hex.EncodeToString(k.ed.Seed())
	case SchemeDilithium3:
		return "dilithium3:" + base64.StdEncoding.EncodeToString(k.dil.Bytes())
	default:
		return ""
	}
}

// String never reveals key material.
func (k PrivateKey) String() string {
	return k.scheme.String() + ":<redacted>"
}

func splitScheme(s string) (Scheme, string, bool) {
	prefix, body, ok := strings.Cut(s, ":")
	if !ok {
		return 0, s, false
	}
	switch strings.ToLower(prefix) {
	case "ed25519":
		return SchemeEd25519, body, true
	case "dilithium3":
		return SchemeDilithium3, body, true
	default:
		return Scheme(0xff), body, true
	}
}

func decodeHex(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "0x")
	return hex.DecodeString(s)
}
