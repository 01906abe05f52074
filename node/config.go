package node

import (
	"time"

	"go.uber.org/zap"

	"xdao.co/ledger/model"
)

// FeeSchedule prices a file create as Base + PerByte*len(contents).
type FeeSchedule struct {
	Base    model.Amount
	PerByte model.Amount
}

// FileCreateFee returns the fee for storing n content bytes.
func (f FeeSchedule) FileCreateFee(n int) model.Amount {
	return f.Base + f.PerByte*model.Amount(n)
}

// DefaultFeeSchedule charges 0.05 hbar plus 1000 tinybar per byte.
var DefaultFeeSchedule = FeeSchedule{Base: 5_000_000, PerByte: 1_000}

type Config struct {
	// Shard and Realm of entities this node creates.
	Shard uint64
	Realm uint64
	// FirstEntityNum is the lowest number assigned to new entities.
	FirstEntityNum uint64

	// ConsensusDelay is how long a transaction stays pending.
	ConsensusDelay time.Duration
	// ValidDuration bounds how old a transaction's valid start may be.
	ValidDuration time.Duration
	// MaxClockSkew tolerates valid starts slightly in the future.
	MaxClockSkew time.Duration

	Fees FeeSchedule

	// SettleAttempts is how many times a store error may hold a due
	// transaction at the head of the queue before it fails with
	// FAIL_INVALID.
	SettleAttempts int

	Now    func() time.Time
	Logger *zap.Logger
}

func (c Config) withDefaults() Config {
	if c.FirstEntityNum == 0 {
		c.FirstEntityNum = 1001
	}
	if c.ValidDuration <= 0 {
		c.ValidDuration = 180 * time.Second
	}
	if c.MaxClockSkew <= 0 {
		c.MaxClockSkew = 10 * time.Second
	}
	if c.Fees == (FeeSchedule{}) {
		c.Fees = DefaultFeeSchedule
	}
	if c.SettleAttempts <= 0 {
		c.SettleAttempts = 3
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}
