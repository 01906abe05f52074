package model

import (
	"fmt"
	"strconv"
	"strings"
)

// TinybarsPerHbar is the fixed ratio between the display unit and the ledger unit.
const TinybarsPerHbar = 100_000_000

// Amount is a quantity of tinybars.
type Amount int64

// Hbar converts whole hbars to an Amount.
func Hbar(n int64) Amount { return Amount(n * TinybarsPerHbar) }

// Tinybar returns a as a plain integer count.
func (a Amount) Tinybar() int64 { return int64(a) }

// ParseHbar parses a decimal hbar value with at most 8 fractional digits.
// An optional trailing "hbar" or "ℏ" unit is accepted.
func ParseHbar(s string) (Amount, error) {
	raw := strings.TrimSpace(s)
	raw = strings.TrimSpace(strings.TrimSuffix(strings.TrimSuffix(raw, "ℏ"), "hbar"))
	if raw == "" {
		return 0, Errorf(CodeInvalidConfig, "amount: empty value")
	}
	neg := strings.HasPrefix(raw, "-")
	raw = strings.TrimPrefix(raw, "-")

	whole, frac, _ := strings.Cut(raw, ".")
	if len(frac) > 8 {
		return 0, Errorf(CodeInvalidConfig, "amount %q: more than 8 decimal places", s)
	}
	if whole == "" {
		whole = "0"
	}
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, Wrap(CodeInvalidConfig, fmt.Sprintf("amount %q", s), err)
	}
	var f int64
	if frac != "" {
		f, err = strconv.ParseInt(frac+strings.Repeat("0", 8-len(frac)), 10, 64)
		if err != nil {
			return 0, Wrap(CodeInvalidConfig, fmt.Sprintf("amount %q", s), err)
		}
	}
	total := w*TinybarsPerHbar + f
	if neg {
		total = -total
	}
	return Amount(total), nil
}

// String renders the amount in hbar, trimming trailing zeros.
func (a Amount) String() string {
	v := int64(a)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	whole := v / TinybarsPerHbar
	frac := v % TinybarsPerHbar
	if frac == 0 {
		return fmt.Sprintf("%s%d ℏ", sign, whole)
	}
	fs := strings.TrimRight(fmt.Sprintf("%08d", frac), "0")
	return fmt.Sprintf("%s%d.%s ℏ", sign, whole, fs)
}
