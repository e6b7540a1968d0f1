package spendbuilder

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// PayToTaproot locks to a BIP-86 tweaked output key with no script tree and
// is redeemed by a single Schnorr key path signature.
var PayToTaproot Pattern = payToTaproot{}

type payToTaproot struct{}

func (payToTaproot) String() string {
	return "p2tr"
}

// Pay commits to the internal key tweaked with an empty merkle root.
func (payToTaproot) Pay(pubKey *btcec.PublicKey) ([]byte, error) {
	if pubKey == nil {
		return nil, fmt.Errorf("%w: public key is required", ErrInvalidKey)
	}

	outputKey := txscript.ComputeTaprootKeyNoScript(pubKey)
	return txscript.NewScriptBuilder().
		AddOp(txscript.OP_1).
		AddData(schnorr.SerializePubKey(outputKey)).
		Script()
}

func (payToTaproot) Redeem(key *btcec.PrivateKey, pkScript []byte,
	ctx *SpendContext) (*Redemption, error) {

	// The taproot sighash commits to every spent output, so the shared
	// midstate is mandatory here.
	if ctx.SigHashes == nil {
		return nil, errors.New("taproot redemption requires sighashes")
	}

	witness, err := txscript.TaprootWitnessSignature(
		ctx.Tx, ctx.SigHashes, ctx.Index, int64(ctx.Amount), pkScript,
		txscript.SigHashDefault, key,
	)
	if err != nil {
		return nil, err
	}

	return &Redemption{Witness: witness}, nil
}

func (payToTaproot) placeholder() *Redemption {
	return &Redemption{
		Witness: wire.TxWitness{make([]byte, schnorr.SignatureSize)},
	}
}
