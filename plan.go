package spendbuilder

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcwallet/wallet/txauthor"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// SpendPolicy selects which coins of a ledger fund a plan.
type SpendPolicy uint8

const (
	// PolicyUnset is the policy of a plan nobody chose a policy for. Such
	// a plan cannot be resolved.
	PolicyUnset SpendPolicy = iota

	// PolicyAll spends every coin of the ledger.
	PolicyAll

	// PolicyFIFO spends coins in ledger order until the outputs and fee
	// are covered.
	PolicyFIFO
)

// String returns the policy name.
func (p SpendPolicy) String() string {
	switch p {
	case PolicyUnset:
		return "unset"
	case PolicyAll:
		return "all"
	case PolicyFIFO:
		return "fifo"
	default:
		return fmt.Sprintf("SpendPolicy(%d)", uint8(p))
	}
}

// ParseSpendPolicy parses "all" or "fifo".
func ParseSpendPolicy(s string) (SpendPolicy, error) {
	switch strings.ToLower(s) {
	case "all":
		return PolicyAll, nil
	case "fifo":
		return PolicyFIFO, nil
	default:
		return PolicyUnset, fmt.Errorf("%w: unknown spend policy %q",
			ErrConfiguration, s)
	}
}

// Payment is one item of a payment plan: an Output, ToAddress, ToPattern,
// Change or SpendPolicy.
type Payment interface {
	addTo(p Plan) (Plan, error)
}

// Output pays Value to an already resolved locking script.
type Output struct {
	Value    btcutil.Amount
	PkScript []byte
}

// ToAddress pays Value to an address.
type ToAddress struct {
	Value   btcutil.Amount
	Address btcutil.Address
}

// ToPattern pays Value to the script Pattern produces for Key.
type ToPattern struct {
	Value   btcutil.Amount
	Pattern Pattern
	Key     *btcec.PublicKey
}

// Change returns whatever the plan does not spend, net of Fee, to the
// script Pattern produces for Key.
type Change struct {
	Pattern Pattern
	Key     *btcec.PrivateKey
	Fee     Fee
}

// NewChange creates a change descriptor that pays exactly fee to miners.
func NewChange(pattern Pattern, key *btcec.PrivateKey,
	fee btcutil.Amount) Change {

	return Change{Pattern: pattern, Key: key, Fee: FixedFee(fee)}
}

// NewCalculatedChange creates a change descriptor whose fee is computed
// from the finished transaction's size and sigop count.
func NewCalculatedChange(pattern Pattern, key *btcec.PrivateKey,
	calc FeeCalculator) Change {

	return Change{Pattern: pattern, Key: key, Fee: calc}
}

func (c Change) validate() error {
	if c.Pattern == nil {
		return fmt.Errorf("%w: change pattern is required",
			ErrConfiguration)
	}
	if c.Fee == nil {
		return fmt.Errorf("%w: change needs a fee or a fee calculator",
			ErrConfiguration)
	}
	switch fee := c.Fee.(type) {
	case FeeCalculator:
		if fee == nil {
			return fmt.Errorf("%w: change fee calculator is nil",
				ErrConfiguration)
		}

	case FixedFee:
		if fee < 0 {
			return fmt.Errorf("%w: change fee %v is negative",
				ErrConfiguration, btcutil.Amount(fee))
		}
	}
	return validateSecretKey(c.Key)
}

// Plan is an immutable list of payment instructions. Every addition
// returns a new plan and leaves the receiver untouched.
type Plan struct {
	outputs     []Output
	change      fn.Option[Change]
	changeIndex int
	policy      SpendPolicy
}

// NewPlan returns an empty plan. The zero Plan is equally usable.
func NewPlan() Plan {
	return Plan{}
}

// Pay folds items over the plan in order and stops at the first error.
func (p Plan) Pay(items ...Payment) (Plan, error) {
	var err error
	for _, item := range items {
		if item == nil {
			return Plan{}, fmt.Errorf("%w: nil payment", ErrConfiguration)
		}
		p, err = item.addTo(p)
		if err != nil {
			return Plan{}, err
		}
	}
	return p, nil
}

// AddOutput appends an output with an already resolved script.
func (p Plan) AddOutput(o Output) (Plan, error) {
	if o.Value < 0 || o.Value > btcutil.MaxSatoshi {
		return Plan{}, fmt.Errorf("%w: output value %v out of range",
			ErrConfiguration, o.Value)
	}
	if len(o.PkScript) == 0 {
		return Plan{}, fmt.Errorf("%w: output script is empty",
			ErrConfiguration)
	}

	return p.appendOutput(o), nil
}

// PayToAddress appends an output paying value to addr.
func (p Plan) PayToAddress(value btcutil.Amount,
	addr btcutil.Address) (Plan, error) {

	if addr == nil {
		return Plan{}, fmt.Errorf("%w: address is required",
			ErrConfiguration)
	}

	pkScript, err := txscript.PayToAddrScript(addr)
	if err != nil {
		return Plan{}, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	return p.AddOutput(Output{Value: value, PkScript: pkScript})
}

// PayToPattern appends an output paying value to pattern applied to key.
func (p Plan) PayToPattern(value btcutil.Amount, pattern Pattern,
	key *btcec.PublicKey) (Plan, error) {

	if pattern == nil {
		return Plan{}, fmt.Errorf("%w: pattern is required",
			ErrConfiguration)
	}

	pkScript, err := pattern.Pay(key)
	if err != nil {
		return Plan{}, err
	}

	return p.AddOutput(Output{Value: value, PkScript: pkScript})
}

// AddChange adds the plan's single change output. The change output is
// placed after every output added so far and before any added later.
func (p Plan) AddChange(c Change) (Plan, error) {
	if p.change.IsSome() {
		return Plan{}, fmt.Errorf("%w: only one change output allowed",
			ErrConfiguration)
	}
	if err := c.validate(); err != nil {
		return Plan{}, err
	}

	pkScript, err := c.Pattern.Pay(c.Key.PubKey())
	if err != nil {
		return Plan{}, err
	}

	next := p.appendOutput(Output{PkScript: pkScript})
	next.change = fn.Some(c)
	next.changeIndex = len(p.outputs)

	return next, nil
}

// AddPolicy sets the plan's single spend policy.
func (p Plan) AddPolicy(policy SpendPolicy) (Plan, error) {
	if p.policy != PolicyUnset {
		return Plan{}, fmt.Errorf("%w: only one policy output allowed",
			ErrConfiguration)
	}
	if policy != PolicyAll && policy != PolicyFIFO {
		return Plan{}, fmt.Errorf("%w: unknown spend policy %v",
			ErrConfiguration, policy)
	}

	next := p
	next.policy = policy
	return next, nil
}

// Policy returns the plan's spend policy.
func (p Plan) Policy() SpendPolicy {
	return p.policy
}

// Change returns the plan's change descriptor, if any.
func (p Plan) Change() fn.Option[Change] {
	return p.change
}

// ChangeIndex is the position of the change output, or -1.
func (p Plan) ChangeIndex() int {
	if p.change.IsNone() {
		return -1
	}
	return p.changeIndex
}

// Outputs returns a copy of the plan's outputs, including the zero valued
// change output if one was added.
func (p Plan) Outputs() []Output {
	outputs := make([]Output, len(p.outputs))
	copy(outputs, p.outputs)
	return outputs
}

// Requested is the total value of all outputs except change.
func (p Plan) Requested() btcutil.Amount {
	return txauthor.SumOutputValues(p.txOuts())
}

// appendOutput returns a copy of p with o appended. The capacity-capped
// slice guarantees the receiver's backing array is never shared.
func (p Plan) appendOutput(o Output) Plan {
	l := len(p.outputs)
	next := p
	next.outputs = append(p.outputs[:l:l], o)
	return next
}

// txOuts returns fresh transaction outputs for the plan.
func (p Plan) txOuts() []*wire.TxOut {
	txOuts := make([]*wire.TxOut, 0, len(p.outputs))
	for _, o := range p.outputs {
		pkScript := make([]byte, len(o.PkScript))
		copy(pkScript, o.PkScript)
		txOuts = append(txOuts, wire.NewTxOut(int64(o.Value), pkScript))
	}
	return txOuts
}

func (o Output) addTo(p Plan) (Plan, error) {
	return p.AddOutput(o)
}

func (a ToAddress) addTo(p Plan) (Plan, error) {
	return p.PayToAddress(a.Value, a.Address)
}

func (t ToPattern) addTo(p Plan) (Plan, error) {
	return p.PayToPattern(t.Value, t.Pattern, t.Key)
}

func (c Change) addTo(p Plan) (Plan, error) {
	return p.AddChange(c)
}

func (s SpendPolicy) addTo(p Plan) (Plan, error) {
	return p.AddPolicy(s)
}

// A compile-time assertion that every plan item is a Payment.
var (
	_ Payment = Output{}
	_ Payment = ToAddress{}
	_ Payment = ToPattern{}
	_ Payment = Change{}
	_ Payment = PolicyAll
)
