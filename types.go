package spendbuilder

import (
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
)

// Coin is a previously created output the wallet is able to spend.
type Coin struct {
	OutPoint wire.OutPoint
	Value    btcutil.Amount
	PkScript []byte

	// Redeemer unlocks PkScript.
	Redeemer Redeemer
}

// NewCoin creates a coin locked by the redeemer's own pattern and key.
func NewCoin(outPoint wire.OutPoint, value btcutil.Amount,
	redeemer Redeemer) (Coin, error) {

	if value <= 0 {
		return Coin{}, fmt.Errorf("%w: coin value must be positive",
			ErrConfiguration)
	}

	pkScript, err := redeemer.Script()
	if err != nil {
		return Coin{}, err
	}

	return Coin{
		OutPoint: outPoint,
		Value:    value,
		PkScript: pkScript,
		Redeemer: redeemer,
	}, nil
}

// valid reports whether the coin can be placed in a ledger.
func (c Coin) valid() bool {
	return c.Value > 0 && c.Value <= btcutil.MaxSatoshi &&
		len(c.PkScript) > 0 && c.Redeemer.valid()
}

// Config holds the transaction fields that are not derived from the plan.
type Config struct {
	// Version is the transaction version.
	Version int32

	// LockTime is the transaction lock time.
	LockTime uint32

	// Sequence is set on every input.
	Sequence uint32

	// VerifyScripts executes every finished input against its coin's
	// locking script before the spend is returned.
	VerifyScripts bool
}

// DefaultConfig returns the configuration used by Wallet.Spend.
func DefaultConfig() *Config {
	return &Config{
		Version:       TxVersion,
		LockTime:      0,
		Sequence:      wire.MaxTxInSequenceNum,
		VerifyScripts: true,
	}
}

// TxBuilder resolves payment plans into finished transactions.
type TxBuilder struct {
	cfg Config
}

// NewTxBuilder creates a new TxBuilder. A nil cfg selects DefaultConfig.
func NewTxBuilder(cfg *Config) *TxBuilder {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &TxBuilder{cfg: *cfg}
}

// Transaction version
const TxVersion = 2

// Helper function to create a new transaction with deterministic fields
func newDeterministicTx(version int32, lockTime uint32) *wire.MsgTx {
	tx := wire.NewMsgTx(version)
	tx.LockTime = lockTime
	return tx
}
