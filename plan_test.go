package spendbuilder

import (
	"testing"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPlanSingleChange checks that a second change output is refused
// whatever else was added in between.
func TestPlanSingleChange(t *testing.T) {
	t.Parallel()

	changeKey := createTestPrivKey(t, 0x02)
	recipient := createTestAddress(t, createTestPrivKey(t, 0x03))

	change := NewChange(PayToAddressCompressed, changeKey, 100)
	other := NewCalculatedChange(PayToTaproot, changeKey, OneSatoshiPerByte)
	output := ToAddress{Value: 600, Address: recipient}

	tests := []struct {
		name  string
		items []Payment
	}{
		{"adjacent", []Payment{change, other}},
		{"identical", []Payment{change, change}},
		{"separated", []Payment{output, change, PolicyFIFO, other}},
		{"policy first", []Payment{PolicyAll, other, output, change}},
	}

	for _, test := range tests {
		_, err := NewPlan().Pay(test.items...)
		require.ErrorIs(t, err, ErrConfiguration, test.name)
		require.ErrorContains(t, err, "only one change output allowed",
			test.name)
	}
}

// TestPlanSinglePolicy checks that a second spend policy is refused.
func TestPlanSinglePolicy(t *testing.T) {
	t.Parallel()

	changeKey := createTestPrivKey(t, 0x02)
	recipient := createTestAddress(t, createTestPrivKey(t, 0x03))

	change := NewChange(PayToAddressCompressed, changeKey, 100)
	output := ToAddress{Value: 600, Address: recipient}

	tests := []struct {
		name  string
		items []Payment
	}{
		{"same", []Payment{PolicyAll, PolicyAll}},
		{"different", []Payment{PolicyFIFO, PolicyAll}},
		{"separated", []Payment{PolicyAll, output, change, PolicyFIFO}},
	}

	for _, test := range tests {
		_, err := NewPlan().Pay(test.items...)
		require.ErrorIs(t, err, ErrConfiguration, test.name)
		require.ErrorContains(t, err, "only one policy output allowed",
			test.name)
	}
}

// TestPlanRejectsInvalidItems checks item level validation.
func TestPlanRejectsInvalidItems(t *testing.T) {
	t.Parallel()

	changeKey := createTestPrivKey(t, 0x02)

	tests := []struct {
		name string
		item Payment
		err  error
	}{
		{"nil item", nil, ErrConfiguration},
		{"negative output", Output{Value: -1, PkScript: []byte{0x51}}, ErrConfiguration},
		{"oversized output", Output{Value: btcutil.MaxSatoshi + 1, PkScript: []byte{0x51}}, ErrConfiguration},
		{"empty script", Output{Value: 1}, ErrConfiguration},
		{"nil address", ToAddress{Value: 1}, ErrConfiguration},
		{"nil pattern", ToPattern{Value: 1, Key: changeKey.PubKey()}, ErrConfiguration},
		{"nil pattern key", ToPattern{Value: 1, Pattern: PayToTaproot}, ErrInvalidKey},
		{"change without pattern", Change{Key: changeKey, Fee: FixedFee(1)}, ErrConfiguration},
		{"change without fee", Change{Pattern: PayToTaproot, Key: changeKey}, ErrConfiguration},
		{"change with nil calculator", NewCalculatedChange(PayToTaproot, changeKey, nil), ErrConfiguration},
		{"change with negative fee", NewChange(PayToTaproot, changeKey, -5), ErrConfiguration},
		{"change without key", NewChange(PayToTaproot, nil, 1), ErrInvalidKey},
		{"unset policy", PolicyUnset, ErrConfiguration},
		{"unknown policy", SpendPolicy(9), ErrConfiguration},
	}

	for _, test := range tests {
		_, err := NewPlan().Pay(test.item)
		require.ErrorIs(t, err, test.err, test.name)
	}

	// A zero fixed fee is a valid choice.
	plan, err := NewPlan().AddChange(NewChange(PayToTaproot, changeKey, 0))
	require.NoError(t, err)
	assert.True(t, plan.Change().IsSome())
}

// TestPlanImmutable checks that extending a plan never changes it or plans
// derived from it.
func TestPlanImmutable(t *testing.T) {
	t.Parallel()

	changeKey := createTestPrivKey(t, 0x02)

	base, err := NewPlan().AddOutput(Output{Value: 100, PkScript: []byte{0x51}})
	require.NoError(t, err)

	left, err := base.AddOutput(Output{Value: 200, PkScript: []byte{0x52}})
	require.NoError(t, err)
	right, err := base.AddOutput(Output{Value: 300, PkScript: []byte{0x53}})
	require.NoError(t, err)
	withChange, err := base.AddChange(
		NewChange(PayToAddressCompressed, changeKey, 10),
	)
	require.NoError(t, err)
	withPolicy, err := base.AddPolicy(PolicyFIFO)
	require.NoError(t, err)

	assert.Len(t, base.Outputs(), 1)
	assert.True(t, base.Change().IsNone())
	assert.Equal(t, PolicyUnset, base.Policy())
	assert.Equal(t, -1, base.ChangeIndex())

	require.Len(t, left.Outputs(), 2)
	require.Len(t, right.Outputs(), 2)
	assert.Equal(t, btcutil.Amount(200), left.Outputs()[1].Value)
	assert.Equal(t, btcutil.Amount(300), right.Outputs()[1].Value)

	assert.True(t, withChange.Change().IsSome())
	assert.Equal(t, PolicyFIFO, withPolicy.Policy())
	assert.True(t, withPolicy.Change().IsNone())

	// Mutating a returned copy does not reach the plan.
	outputs := left.Outputs()
	outputs[0].Value = 999
	assert.Equal(t, btcutil.Amount(100), left.Outputs()[0].Value)
	assert.Equal(t, int64(100), left.txOuts()[0].Value)
}

// TestPlanChangeIndex checks that change sits where it was added and is
// not part of the requested value.
func TestPlanChangeIndex(t *testing.T) {
	t.Parallel()

	key := createTestPrivKey(t, 0x01)
	changeKey := createTestPrivKey(t, 0x02)
	recipient := createTestAddress(t, createTestPrivKey(t, 0x03))

	plan, err := NewPlan().Pay(
		ToAddress{Value: 1000, Address: recipient},
		NewChange(PayToAddressCompressed, changeKey, 100),
		ToPattern{Value: 2000, Pattern: PayToTaproot, Key: key.PubKey()},
		Output{Value: 500, PkScript: []byte{txscript.OP_TRUE}},
		PolicyAll,
	)
	require.NoError(t, err)

	assert.Equal(t, 1, plan.ChangeIndex())
	assert.Len(t, plan.Outputs(), 4)
	assert.Zero(t, plan.Outputs()[1].Value)
	assert.Equal(t, btcutil.Amount(3500), plan.Requested())
	assert.Equal(t, PolicyAll, plan.Policy())

	changeScript, err := PayToAddressCompressed.Pay(changeKey.PubKey())
	require.NoError(t, err)
	assert.Equal(t, changeScript, plan.Outputs()[1].PkScript)

	taprootScript, err := PayToTaproot.Pay(key.PubKey())
	require.NoError(t, err)
	assert.Equal(t, taprootScript, plan.Outputs()[2].PkScript)
}

// TestPlanPayStopsAtFirstError checks that folding stops on the first bad
// item and returns no partial plan.
func TestPlanPayStopsAtFirstError(t *testing.T) {
	t.Parallel()

	plan, err := NewPlan().Pay(
		Output{Value: 1, PkScript: []byte{0x51}},
		Output{Value: -1, PkScript: []byte{0x51}},
		PolicyAll,
	)
	require.ErrorIs(t, err, ErrConfiguration)
	assert.Empty(t, plan.Outputs())
	assert.Equal(t, PolicyUnset, plan.Policy())
}

func TestParseSpendPolicy(t *testing.T) {
	t.Parallel()

	for _, policy := range []SpendPolicy{PolicyAll, PolicyFIFO} {
		parsed, err := ParseSpendPolicy(policy.String())
		require.NoError(t, err)
		assert.Equal(t, policy, parsed)
	}

	parsed, err := ParseSpendPolicy("FIFO")
	require.NoError(t, err)
	assert.Equal(t, PolicyFIFO, parsed)

	_, err = ParseSpendPolicy("largest-first")
	require.ErrorIs(t, err, ErrConfiguration)
	assert.Equal(t, "unset", PolicyUnset.String())
}
