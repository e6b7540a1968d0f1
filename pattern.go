package spendbuilder

import (
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcwallet/wallet/txsizes"
)

// maxSigLen is the worst case length of a DER signature with its trailing
// sighash byte, derived from the compressed P2PKH redeem script size.
const maxSigLen = txsizes.RedeemP2PKHSigScriptSize - 2 -
	btcec.PubKeyBytesLenCompressed

// pubKeyBytesLenUncompressed is the length of an uncompressed SEC public
// key: a 0x04 prefix followed by both 32-byte coordinates.
const pubKeyBytesLenUncompressed = 65

// SpendContext is the transaction context a redeemer signs against.
type SpendContext struct {
	// Tx is the transaction being signed. Its outputs must be final.
	Tx *wire.MsgTx

	// Index is the input of Tx being redeemed.
	Index int

	// Amount is the value of the coin spent by the input.
	Amount btcutil.Amount

	// PrevOuts resolves every outpoint spent by Tx.
	PrevOuts txscript.PrevOutputFetcher

	// SigHashes caches the midstate shared by all inputs of Tx.
	SigHashes *txscript.TxSigHashes
}

// Redemption is the unlocking data for one input.
type Redemption struct {
	SignatureScript []byte
	Witness         wire.TxWitness
}

// apply installs the redemption on a transaction input.
func (r *Redemption) apply(txIn *wire.TxIn) {
	txIn.SignatureScript = r.SignatureScript
	txIn.Witness = r.Witness
}

// Pattern pairs a locking script template with the way to unlock it. The
// set of patterns is closed: only the values exported by this package
// implement it.
type Pattern interface {
	fmt.Stringer

	// Pay returns the locking script paying to pubKey.
	Pay(pubKey *btcec.PublicKey) ([]byte, error)

	// Redeem produces the unlocking data for pkScript, signed by key over
	// the transaction described by ctx.
	Redeem(key *btcec.PrivateKey, pkScript []byte,
		ctx *SpendContext) (*Redemption, error)

	// placeholder returns a redemption of worst case size, used to measure
	// a transaction before it is signed.
	placeholder() *Redemption
}

var (
	// PayToAddressCompressed locks to the hash of a compressed public key.
	PayToAddressCompressed Pattern = payToAddress{compressed: true}

	// PayToAddressUncompressed locks to the hash of an uncompressed
	// public key.
	PayToAddressUncompressed Pattern = payToAddress{compressed: false}

	// PayToPubKeyCompressed locks to a raw compressed public key.
	PayToPubKeyCompressed Pattern = payToPubKey{compressed: true}

	// PayToPubKeyUncompressed locks to a raw uncompressed public key.
	PayToPubKeyUncompressed Pattern = payToPubKey{compressed: false}
)

func serializePubKey(pubKey *btcec.PublicKey, compressed bool) []byte {
	if compressed {
		return pubKey.SerializeCompressed()
	}
	return pubKey.SerializeUncompressed()
}

func pubKeyLen(compressed bool) int {
	if compressed {
		return btcec.PubKeyBytesLenCompressed
	}
	return pubKeyBytesLenUncompressed
}

// placeholderScript returns a script made of zeroed pushes of the given
// lengths.
func placeholderScript(lengths ...int) []byte {
	builder := txscript.NewScriptBuilder()
	for _, l := range lengths {
		builder.AddData(make([]byte, l))
	}

	// Pushes this small never exceed the script size limit.
	script, _ := builder.Script()
	return script
}

// payToAddress is P2PKH: the script commits to HASH160(pubkey) and the
// redemption pushes a signature and the public key.
type payToAddress struct {
	compressed bool
}

func (p payToAddress) String() string {
	if p.compressed {
		return "p2pkh"
	}
	return "p2pkh-uncompressed"
}

func (p payToAddress) Pay(pubKey *btcec.PublicKey) ([]byte, error) {
	if pubKey == nil {
		return nil, fmt.Errorf("%w: public key is required", ErrInvalidKey)
	}

	pubKeyHash := btcutil.Hash160(serializePubKey(pubKey, p.compressed))
	return txscript.NewScriptBuilder().
		AddOp(txscript.OP_DUP).
		AddOp(txscript.OP_HASH160).
		AddData(pubKeyHash).
		AddOp(txscript.OP_EQUALVERIFY).
		AddOp(txscript.OP_CHECKSIG).
		Script()
}

func (p payToAddress) Redeem(key *btcec.PrivateKey, pkScript []byte,
	ctx *SpendContext) (*Redemption, error) {

	sigScript, err := txscript.SignatureScript(
		ctx.Tx, ctx.Index, pkScript, txscript.SigHashAll, key,
		p.compressed,
	)
	if err != nil {
		return nil, err
	}

	return &Redemption{SignatureScript: sigScript}, nil
}

func (p payToAddress) placeholder() *Redemption {
	return &Redemption{
		SignatureScript: placeholderScript(
			maxSigLen, pubKeyLen(p.compressed),
		),
	}
}

// payToPubKey is P2PK: the script carries the public key itself and the
// redemption pushes only a signature.
type payToPubKey struct {
	compressed bool
}

func (p payToPubKey) String() string {
	if p.compressed {
		return "p2pk"
	}
	return "p2pk-uncompressed"
}

func (p payToPubKey) Pay(pubKey *btcec.PublicKey) ([]byte, error) {
	if pubKey == nil {
		return nil, fmt.Errorf("%w: public key is required", ErrInvalidKey)
	}

	return txscript.NewScriptBuilder().
		AddData(serializePubKey(pubKey, p.compressed)).
		AddOp(txscript.OP_CHECKSIG).
		Script()
}

func (p payToPubKey) Redeem(key *btcec.PrivateKey, pkScript []byte,
	ctx *SpendContext) (*Redemption, error) {

	sig, err := txscript.RawTxInSignature(
		ctx.Tx, ctx.Index, pkScript, txscript.SigHashAll, key,
	)
	if err != nil {
		return nil, err
	}

	sigScript, err := txscript.NewScriptBuilder().AddData(sig).Script()
	if err != nil {
		return nil, err
	}

	return &Redemption{SignatureScript: sigScript}, nil
}

func (p payToPubKey) placeholder() *Redemption {
	return &Redemption{SignatureScript: placeholderScript(maxSigLen)}
}

// Redeemer is a Pattern bound to the secret key that unlocks it.
type Redeemer struct {
	Pattern Pattern
	Key     *btcec.PrivateKey
}

// NewRedeemer binds key to pattern.
func NewRedeemer(pattern Pattern, key *btcec.PrivateKey) (Redeemer, error) {
	if pattern == nil {
		return Redeemer{}, fmt.Errorf("%w: pattern is required",
			ErrConfiguration)
	}
	if err := validateSecretKey(key); err != nil {
		return Redeemer{}, err
	}

	return Redeemer{Pattern: pattern, Key: key}, nil
}

// Script returns the locking script this redeemer is able to unlock.
func (r Redeemer) Script() ([]byte, error) {
	if !r.valid() {
		return nil, fmt.Errorf("%w: redeemer has no pattern or key",
			ErrConfiguration)
	}
	return r.Pattern.Pay(r.Key.PubKey())
}

// Redeem produces the unlocking data for pkScript in ctx. Signing failures
// are reported as ErrValidation.
func (r Redeemer) Redeem(pkScript []byte,
	ctx *SpendContext) (*Redemption, error) {

	if !r.valid() {
		return nil, fmt.Errorf("%w: redeemer has no pattern or key",
			ErrValidation)
	}

	redemption, err := r.Pattern.Redeem(r.Key, pkScript, ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: unable to redeem input %d with %v: %v",
			ErrValidation, ctx.Index, r.Pattern, err)
	}

	return redemption, nil
}

func (r Redeemer) valid() bool {
	return r.Pattern != nil && validateSecretKey(r.Key) == nil
}
