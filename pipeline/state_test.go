package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransitions(t *testing.T) {
	tests := []struct {
		from, to State
		ok       bool
	}{
		{StateIdle, StateProbing, true},
		{StateIdle, StateAcquiring, false},
		{StateProbing, StateSelectingStrategy, true},
		{StateSelectingStrategy, StateAcquiring, true},
		{StateSelectingStrategy, StateDone, false},
		{StateAcquiring, StateDecoding, true},
		{StateAcquiring, StateSelectingStrategy, true},
		{StateAcquiring, StateDone, true},
		{StateDecoding, StateTransforming, true},
		{StateDecoding, StateReplacing, false},
		{StateDecoding, StateDecoding, false},
		{StateDecoding, StateAcquiring, true},
		{StateTransforming, StateEncoding, true},
		{StateEncoding, StateReplacing, true},
		{StateReplacing, StateDecoding, false},
		{StateReplacing, StateAcquiring, true},
		{StateReplacing, StateDone, true},
		{StateReplacing, StateSelectingStrategy, true},
		{StateDone, StateIdle, false},
		{StateDone, StateError, false},
		{StateError, StateError, false},
		{StateProbing, StateError, true},
		{StateReplacing, StateError, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.ok, isAllowedTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestMachineRecordsTrace(t *testing.T) {
	m := newMachine()
	require.NoError(t, m.to(StateProbing))
	require.NoError(t, m.to(StateSelectingStrategy))

	err := m.to(StateDone)
	assert.Error(t, err)
	assert.Equal(t, StateSelectingStrategy, m.state(), "a rejected transition leaves the state alone")

	m.fail()
	m.fail()
	assert.Equal(t, []State{StateIdle, StateProbing, StateSelectingStrategy, StateError}, m.trace)
}
