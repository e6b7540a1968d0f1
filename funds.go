package spendbuilder

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"
)

// Funds is an immutable, ordered ledger of spendable coins. The zero value
// is an uninitialized ledger and is not valid; a ledger built by NewFunds
// is valid, even when empty, as long as its coins are well formed and
// distinct.
type Funds struct {
	coins       []Coin
	value       btcutil.Amount
	initialized bool
	valid       bool
}

// NewFunds creates a ledger holding coins in the given order.
func NewFunds(coins ...Coin) Funds {
	f := Funds{
		coins:       make([]Coin, len(coins)),
		initialized: true,
		valid:       true,
	}
	copy(f.coins, coins)

	seen := make(map[wire.OutPoint]struct{}, len(coins))
	for _, coin := range f.coins {
		if _, ok := seen[coin.OutPoint]; ok || !coin.valid() {
			f.valid = false
		}
		seen[coin.OutPoint] = struct{}{}
		f.value += coin.Value
	}
	if f.value > btcutil.MaxSatoshi {
		f.valid = false
	}

	return f
}

// Value is the total value of all coins in the ledger.
func (f Funds) Value() btcutil.Amount {
	return f.value
}

// Valid reports whether the ledger was initialized and holds only well
// formed, distinct coins.
func (f Funds) Valid() bool {
	return f.initialized && f.valid
}

// Len returns the number of coins in the ledger.
func (f Funds) Len() int {
	return len(f.coins)
}

// Coins returns a copy of the ledger's coins in order.
func (f Funds) Coins() []Coin {
	coins := make([]Coin, len(f.coins))
	copy(coins, f.coins)
	return coins
}

// Contains reports whether a coin with the given outpoint is in the ledger.
func (f Funds) Contains(outPoint wire.OutPoint) bool {
	for _, coin := range f.coins {
		if coin.OutPoint == outPoint {
			return true
		}
	}
	return false
}

// Insert returns a new ledger with coin appended.
func (f Funds) Insert(coin Coin) Funds {
	l := len(f.coins)
	return NewFunds(append(f.coins[:l:l], coin)...)
}

// without returns a new ledger holding every coin not in spent, preserving
// order.
func (f Funds) without(spent map[wire.OutPoint]struct{}) Funds {
	remaining := make([]Coin, 0, len(f.coins))
	for _, coin := range f.coins {
		if _, ok := spent[coin.OutPoint]; ok {
			continue
		}
		remaining = append(remaining, coin)
	}
	return NewFunds(remaining...)
}
