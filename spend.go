package spendbuilder

import (
	"fmt"

	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcwallet/wallet/txauthor"
	"github.com/btcsuite/btcwallet/wallet/txrules"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// Spent is the result of resolving a plan: the finished transaction and the
// ledger that is left once it confirms.
type Spent struct {
	// Tx is the signed transaction.
	Tx *wire.MsgTx

	// Remainder is the original ledger minus the coins spent by Tx.
	Remainder Funds

	// Inputs are the coins spent by Tx, in input order.
	Inputs []Coin

	// Fee is the value not returned by any output.
	Fee btcutil.Amount

	// Change is the change output as a coin of its own, if the plan had a
	// change descriptor and the change is positive.
	Change fn.Option[Coin]
}

// Valid reports whether the transaction is structurally sound and the
// remainder is a valid ledger.
func (s *Spent) Valid() bool {
	if s == nil || s.Tx == nil {
		return false
	}

	err := blockchain.CheckTransactionSanity(btcutil.NewTx(s.Tx))
	return err == nil && s.Remainder.Valid()
}

// Spend resolves plan against funds with the default configuration.
func (p Plan) Spend(funds Funds) (*Spent, error) {
	return NewTxBuilder(nil).Spend(p, funds)
}

// Spend selects coins from funds according to the plan's policy, computes
// the fee and change, signs every input and returns the finished
// transaction together with the remaining ledger. Neither plan nor funds is
// modified.
func (tb *TxBuilder) Spend(plan Plan, funds Funds) (*Spent, error) {
	requested := plan.Requested()

	// A transaction needs at least one input, so nothing can be paid from
	// an empty ledger.
	if funds.Len() == 0 {
		return nil, &InsufficientFundsError{Requested: requested}
	}
	if !funds.Valid() {
		return nil, fmt.Errorf("%w: ledger holds malformed or duplicate "+
			"coins", ErrConfiguration)
	}
	if len(plan.outputs) == 0 {
		return nil, fmt.Errorf("%w: plan has no outputs", ErrConfiguration)
	}

	var (
		selected []Coin
		tx       *wire.MsgTx
		fee      btcutil.Amount
		err      error
	)
	switch plan.policy {
	case PolicyAll:
		selected = funds.Coins()
		tx, fee, err = tb.layout(plan, selected)

	case PolicyFIFO:
		selected, tx, fee, err = tb.selectFIFO(plan, funds, requested)

	case PolicyUnset:
		return nil, fmt.Errorf("%w: a spend policy is required",
			ErrConfiguration)

	default:
		return nil, fmt.Errorf("%w: unknown spend policy %v",
			ErrConfiguration, plan.policy)
	}
	if err != nil {
		return nil, err
	}

	total := sumCoins(selected)
	change := total - requested - fee
	if change < 0 {
		return nil, &InsufficientFundsError{
			Available: total,
			Requested: requested,
			Fee:       fee,
		}
	}

	changeIndex := plan.ChangeIndex()
	if changeIndex >= 0 {
		tx.TxOut[changeIndex].Value = int64(change)
		if txrules.IsDustOutput(tx.TxOut[changeIndex],
			txrules.DefaultRelayFeePerKb) {

			log.Warnf("Change output of %v is dust", change)
		}
	} else {
		// Without a change output whatever is left goes to miners.
		fee += change
		change = 0
	}

	fetcher, sigHashes, err := tb.redeem(tx, selected)
	if err != nil {
		return nil, err
	}
	if tb.cfg.VerifyScripts {
		if err := verifyInputs(tx, selected, fetcher, sigHashes); err != nil {
			return nil, err
		}
	}

	spent := make(map[wire.OutPoint]struct{}, len(selected))
	for _, coin := range selected {
		spent[coin.OutPoint] = struct{}{}
	}

	result := &Spent{
		Tx:        tx,
		Remainder: funds.without(spent),
		Inputs:    selected,
		Fee:       fee,
	}
	plan.change.WhenSome(func(c Change) {
		if change <= 0 {
			return
		}
		result.Change = fn.Some(Coin{
			OutPoint: wire.OutPoint{
				Hash:  tx.TxHash(),
				Index: uint32(changeIndex),
			},
			Value:    change,
			PkScript: tx.TxOut[changeIndex].PkScript,
			Redeemer: Redeemer{Pattern: c.Pattern, Key: c.Key},
		})
	})

	log.Debugf("Spent %d %s worth %v: %v requested, %v change, %v fee, "+
		"%d %s remaining", len(selected),
		pickNoun(len(selected), "coin", "coins"), total, requested,
		change, fee, result.Remainder.Len(),
		pickNoun(result.Remainder.Len(), "coin", "coins"))

	return result, nil
}

// selectFIFO takes coins in ledger order until they cover the requested
// value plus the fee of a transaction spending them.
func (tb *TxBuilder) selectFIFO(plan Plan, funds Funds,
	requested btcutil.Amount) ([]Coin, *wire.MsgTx, btcutil.Amount, error) {

	coins := funds.Coins()

	var total, fee btcutil.Amount
	for i, coin := range coins {
		total += coin.Value

		// No fee can make up for missing output value, so skip the
		// layout until the outputs alone are covered.
		if total < requested {
			continue
		}

		selected := coins[:i+1]
		tx, txFee, err := tb.layout(plan, selected)
		if err != nil {
			return nil, nil, 0, err
		}
		fee = txFee

		if total >= requested+fee {
			return selected, tx, fee, nil
		}
	}

	return nil, nil, 0, &InsufficientFundsError{
		Available: total,
		Requested: requested,
		Fee:       fee,
	}
}

// layout builds the provisional transaction spending coins: inputs carry
// worst case placeholder redemptions and change, if any, is zero. The fee
// owed by the transaction is measured on this layout.
func (tb *TxBuilder) layout(plan Plan,
	coins []Coin) (*wire.MsgTx, btcutil.Amount, error) {

	tx := newDeterministicTx(tb.cfg.Version, tb.cfg.LockTime)
	for _, coin := range coins {
		txIn := wire.NewTxIn(&coin.OutPoint, nil, nil)
		txIn.Sequence = tb.cfg.Sequence
		coin.Redeemer.Pattern.placeholder().apply(txIn)
		tx.AddTxIn(txIn)
	}
	for _, txOut := range plan.txOuts() {
		tx.AddTxOut(txOut)
	}

	var fee btcutil.Amount
	if c, ok := optionValue(plan.change); ok {
		size, sigOps := measureTx(tx)
		fee = c.Fee.Amount(size, sigOps)
		if fee < 0 {
			return nil, 0, fmt.Errorf("%w: fee policy returned "+
				"negative fee %v", ErrConfiguration, fee)
		}

		log.Debugf("Provisional transaction with %d %s: %d vbytes, "+
			"%d sigops, fee %v", len(coins),
			pickNoun(len(coins), "input", "inputs"), size, sigOps, fee)
	}

	return tx, fee, nil
}

// measureTx returns the virtual size and the sigop count of tx. For a
// transaction without witness data the virtual size is its serialized size.
func measureTx(tx *wire.MsgTx) (int, int) {
	btx := btcutil.NewTx(tx)
	weight := blockchain.GetTransactionWeight(btx)
	vsize := (weight + blockchain.WitnessScaleFactor - 1) /
		blockchain.WitnessScaleFactor

	return int(vsize), blockchain.CountSigOps(btx)
}

// redeem replaces every placeholder redemption of tx with a real one. The
// outputs of tx must be final.
func (tb *TxBuilder) redeem(tx *wire.MsgTx, coins []Coin) (
	*txscript.MultiPrevOutFetcher, *txscript.TxSigHashes, error) {

	prevScripts := make([][]byte, 0, len(coins))
	inputValues := make([]btcutil.Amount, 0, len(coins))
	for _, coin := range coins {
		prevScripts = append(prevScripts, coin.PkScript)
		inputValues = append(inputValues, coin.Value)
	}

	fetcher, err := txauthor.TXPrevOutFetcher(tx, prevScripts, inputValues)
	if err != nil {
		return nil, nil, err
	}
	sigHashes := txscript.NewTxSigHashes(tx, fetcher)

	for i, coin := range coins {
		ctx := &SpendContext{
			Tx:        tx,
			Index:     i,
			Amount:    coin.Value,
			PrevOuts:  fetcher,
			SigHashes: sigHashes,
		}
		redemption, err := coin.Redeemer.Redeem(coin.PkScript, ctx)
		if err != nil {
			return nil, nil, err
		}
		redemption.apply(tx.TxIn[i])
	}

	return fetcher, sigHashes, nil
}

// verifyInputs executes every input of tx against the locking script of the
// coin it spends.
func verifyInputs(tx *wire.MsgTx, coins []Coin,
	fetcher txscript.PrevOutputFetcher,
	sigHashes *txscript.TxSigHashes) error {

	for i, coin := range coins {
		vm, err := txscript.NewEngine(
			coin.PkScript, tx, i, txscript.StandardVerifyFlags, nil,
			sigHashes, int64(coin.Value), fetcher,
		)
		if err != nil {
			return fmt.Errorf("%w: input %d: %v", ErrValidation, i, err)
		}
		if err := vm.Execute(); err != nil {
			return fmt.Errorf("%w: input %d does not satisfy its "+
				"locking script: %v", ErrValidation, i, err)
		}
	}

	return nil
}

func sumCoins(coins []Coin) btcutil.Amount {
	var total btcutil.Amount
	for _, coin := range coins {
		total += coin.Value
	}
	return total
}

// optionValue unpacks an option into the usual value, ok pair.
func optionValue[A any](o fn.Option[A]) (A, bool) {
	var (
		value A
		ok    bool
	)
	o.WhenSome(func(a A) {
		value = a
		ok = true
	})
	return value, ok
}
