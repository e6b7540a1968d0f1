package spendbuilder

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcwallet/wallet/txrules"
)

// Fee decides the mining fee of a transaction from its virtual size in bytes
// and its signature operation count. It is either a FixedFee or a
// FeeCalculator.
type Fee interface {
	// Amount returns the fee owed by a transaction of the given size.
	Amount(size, sigOps int) btcutil.Amount

	isFee()
}

// FixedFee is a fee that does not depend on the transaction at all.
type FixedFee btcutil.Amount

// Amount returns the fixed amount.
func (f FixedFee) Amount(int, int) btcutil.Amount {
	return btcutil.Amount(f)
}

func (FixedFee) isFee() {}

// FeeCalculator computes a fee from the virtual size and sigop count.
type FeeCalculator func(size, sigOps int) btcutil.Amount

// Amount invokes the calculator.
func (c FeeCalculator) Amount(size, sigOps int) btcutil.Amount {
	return c(size, sigOps)
}

func (FeeCalculator) isFee() {}

// OneSatoshiPerByte is the default calculator: one satoshi per byte, sigops
// are free.
func OneSatoshiPerByte(size, _ int) btcutil.Amount {
	return btcutil.Amount(size)
}

// FeeRatePerKb returns a calculator charging feeRate per 1000 bytes, with the
// mempool rounding rules of txrules.
func FeeRatePerKb(feeRate btcutil.Amount) FeeCalculator {
	return func(size, _ int) btcutil.Amount {
		return txrules.FeeForSerializeSize(feeRate, size)
	}
}

var (
	_ Fee = FixedFee(0)
	_ Fee = FeeCalculator(OneSatoshiPerByte)
)
