// Package cidutil derives transaction identifiers.
//
// A transaction id is the CIDv1 ("raw" multicodec, sha2-256 multihash) of the
// transaction body bytes. The body carries payer, valid start and a random
// nonce, so ids are unique per build and stable across resubmission to other
// nodes.
package cidutil

import (
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"

	"xdao.co/ledger/model"
)

// TransactionCID returns the CID for body.
func TransactionCID(body []byte) (cid.Cid, error) {
	sum, err := multihash.Sum(body, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}

// TransactionID returns the string form of TransactionCID.
func TransactionID(body []byte) (string, error) {
	c, err := TransactionCID(body)
	if err != nil {
		return "", model.Wrap(model.CodeInternal, "derive transaction id", err)
	}
	return c.String(), nil
}

// ParseTransactionID validates s as a transaction id and returns its
// canonical string form.
func ParseTransactionID(s string) (string, error) {
	c, err := cid.Decode(s)
	if err != nil || !c.Defined() {
		return "", model.Errorf(model.CodeSubmissionRejected, "invalid transaction id %q", s)
	}
	if c.Prefix().Codec != cid.Raw || c.Prefix().MhType != multihash.SHA2_256 {
		return "", model.Errorf(model.CodeSubmissionRejected, "transaction id %q is not a raw sha2-256 cid", s)
	}
	return c.String(), nil
}

// Matches reports whether id is the transaction id of body.
func Matches(id string, body []byte) bool {
	want, err := TransactionID(body)
	return err == nil && want == id
}
