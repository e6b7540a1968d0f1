package spendbuilder

import "github.com/btcsuite/btcd/btcutil"

// Wallet is a snapshot of spendable funds.
type Wallet struct {
	Funds Funds
}

// NewWallet creates a wallet holding coins.
func NewWallet(coins ...Coin) Wallet {
	return Wallet{Funds: NewFunds(coins...)}
}

// Valid reports whether the wallet's ledger is valid.
func (w Wallet) Valid() bool {
	return w.Funds.Valid()
}

// Value is the total value the wallet can spend.
func (w Wallet) Value() btcutil.Amount {
	return w.Funds.Value()
}

// Spend folds payments into a new plan and resolves it against the
// wallet's funds. The returned Spent carries the wallet's next ledger in
// Remainder.
//
//	spent, err := w.Spend(
//		spendbuilder.ToAddress{Value: 600, Address: addr},
//		spendbuilder.NewChange(spendbuilder.PayToAddressCompressed, key, 100),
//		spendbuilder.PolicyFIFO,
//	)
func (w Wallet) Spend(payments ...Payment) (*Spent, error) {
	plan, err := NewPlan().Pay(payments...)
	if err != nil {
		return nil, err
	}
	return plan.Spend(w.Funds)
}

// Wallet returns the wallet that remains after the spend: the remainder
// plus the change coin, if any. Callers should switch to it only once the
// transaction has been accepted.
func (s *Spent) Wallet() Wallet {
	w := Wallet{Funds: s.Remainder}
	s.Change.WhenSome(func(c Coin) {
		w.Funds = w.Funds.Insert(c)
	})
	return w
}
