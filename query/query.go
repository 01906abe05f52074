// Package query runs read-only requests: file contents and account balances.
// Queries carry no fee and have no receipt phase.
package query

import (
	"context"
	"unicode/utf8"

	"xdao.co/ledger/client"
	"xdao.co/ledger/model"
	"xdao.co/ledger/wire"
)

// FetchResource returns the contents of file id as text.
//
// ResourceNotFound and NodeUnreachable from the session are returned
// unchanged; contents that are not valid UTF-8 fail with DecodeError.
func FetchResource(ctx context.Context, s *client.Session, id model.EntityID) (string, error) {
	b, err := FetchResourceBytes(ctx, s, id)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", model.Errorf(model.CodeDecodeError, "file %s is not valid UTF-8 text", id)
	}
	return string(b), nil
}

// FetchResourceBytes returns the raw contents of file id.
func FetchResourceBytes(ctx context.Context, s *client.Session, id model.EntityID) ([]byte, error) {
	if id.IsZero() {
		return nil, model.Errorf(model.CodeInvalidEntityID, "file id is required")
	}
	target := id
	return s.Query(ctx, client.Request{
		Payload: wire.Query{Kind: wire.QueryFileContents, Target: id}.Marshal(),
		Target:  &target,
	})
}

// FetchBalance returns the balance of account.
func FetchBalance(ctx context.Context, s *client.Session, account model.EntityID) (model.Amount, error) {
	if account.IsZero() {
		return 0, model.Errorf(model.CodeInvalidEntityID, "account id is required")
	}
	target := account
	b, err := s.Query(ctx, client.Request{
		Payload: wire.Query{Kind: wire.QueryAccountBalance, Target: account}.Marshal(),
		Target:  &target,
	})
	if err != nil {
		return 0, err
	}
	return wire.UnmarshalBalance(b)
}
