package keys

import (
	"os"
	"strings"

	"xdao.co/ledger/model"
)

// Identity is the operator: the account that pays for and authorizes transactions.
//
// AccountID is assigned by the network; PublicKey is always derivable from
// PrivateKey. An Identity is never mutated after Load.
type Identity struct {
	AccountID  model.EntityID
	PrivateKey PrivateKey
	PublicKey  PublicKey
}

// Load parses operator credentials.
//
// publicKey is optional. When given it must correspond to the private key,
// otherwise Load fails with KeyMismatch.
func Load(accountID, privateKeyMaterial, publicKey string) (Identity, error) {
	id, err := model.ParseEntityID(accountID)
	if err != nil {
		return Identity{}, err
	}
	priv, err := ParsePrivateKey(privateKeyMaterial)
	if err != nil {
		return Identity{}, err
	}
	derived := priv.Public()
	if strings.TrimSpace(publicKey) != "" {
		given, err := ParsePublicKey(publicKey)
		if err != nil {
			return Identity{}, err
		}
		if !given.Equal(derived) {
			return Identity{}, model.Errorf(model.CodeKeyMismatch, "public key %s does not belong to the private key for account %s", given, id)
		}
	}
	return Identity{AccountID: id, PrivateKey: priv, PublicKey: derived}, nil
}

// IsZero reports whether the identity was never loaded.
func (i Identity) IsZero() bool {
	return i.AccountID.IsZero() && i.PrivateKey.IsZero()
}

// Sign signs message with the identity's private key.
func (i Identity) Sign(message []byte) ([]byte, error) {
	return i.PrivateKey.Sign(message)
}

// ReadKeyFile returns the trimmed key material stored at path.
func ReadKeyFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", model.Wrap(model.CodeInvalidConfig, "read key file", err)
	}
	material := strings.TrimSpace(string(data))
	if material == "" {
		return "", model.Errorf(model.CodeInvalidKeyFormat, "key file %s is empty", path)
	}
	return material, nil
}
