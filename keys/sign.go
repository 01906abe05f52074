package keys

import (
	"crypto/ed25519"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
	"golang.org/x/crypto/sha3"
)

// digestFor returns the bytes a scheme actually signs for message.
func digestFor(scheme Scheme, message []byte) []byte {
	switch scheme {
	case SchemeDilithium3:
		s := sha3.Sum256(message)
		return s[:]
	default:
		return message
	}
}

// Verify reports whether sig is a valid signature of message under pub.
func Verify(pub PublicKey, message, sig []byte) bool {
	switch pub.scheme {
	case SchemeEd25519:
		if len(pub.raw) != ed25519.PublicKeySize {
			return false
		}
		return ed25519.Verify(ed25519.PublicKey(pub.raw), message, sig)
	case SchemeDilithium3:
		if len(pub.raw) != mode3.PublicKeySize || len(sig) != mode3.SignatureSize {
			return false
		}
		pk := new(mode3.PublicKey)
		if err := pk.UnmarshalBinary(pub.raw); err != nil {
			return false
		}
		return mode3.Verify(pk, digestFor(SchemeDilithium3, message), sig)
	default:
		return false
	}
}
