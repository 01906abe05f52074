package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"xdao.co/ledger/model"
)

// Exit codes.
const (
	exitFailure = 1
	exitUsage   = 2
)

type usageErr struct{ err error }

func (e usageErr) Error() string { return e.err.Error() }
func (e usageErr) Unwrap() error { return e.err }

func usageError(err error) error { return usageErr{err: err} }

// exitCode is exitUsage for bad flags or configuration, exitFailure
// otherwise.
func exitCode(err error) int {
	var ue usageErr
	if errors.As(err, &ue) || model.KindOf(err) == model.KindConfiguration {
		return exitUsage
	}
	return exitFailure
}

// result is what one action reports.
type result struct {
	FileID  string  `json:"file_id,omitempty"`
	Content *string `json:"content,omitempty"`
	Account string  `json:"account"`
	Balance int64   `json:"balance_tinybar"`
	Display string  `json:"balance"`
}

func writeResult(w io.Writer, format string, r result) error {
	if format == "json" {
		return json.NewEncoder(w).Encode(r)
	}
	if r.FileID != "" {
		fmt.Fprintf(w, "file: %s\n", r.FileID)
	}
	if r.Content != nil {
		fmt.Fprintf(w, "content: %s\n", *r.Content)
	}
	fmt.Fprintf(w, "balance of %s: %s\n", r.Account, r.Display)
	return nil
}

func balanceResult(account model.EntityID, amount model.Amount) result {
	return result{Account: account.String(), Balance: amount.Tinybar(), Display: amount.String()}
}
