package cluster

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentity_Names(t *testing.T) {
	t.Parallel()
	id := Identity{Project: "MongoDB", Environment: "Test", Role: "rsmember"}

	assert.Equal(t, "MongoDB_Test_rsmember", id.ReplicaSetName())
	assert.Equal(t, "MongoDB/Test/rsmember", id.WorkflowID())
	assert.NoError(t, id.Validate())

	err := Identity{Project: "MongoDB"}.Validate()
	require.Error(t, err)
	assert.True(t, IsConfigError(err))
}

func TestMembership_Representative(t *testing.T) {
	t.Parallel()

	_, ok := Membership{}.Representative()
	assert.False(t, ok)

	m := Membership{Nodes: []NodeIdentity{
		{Slot: "0", InstanceID: "i-1", Address: "dns1"},
		{Slot: "1", InstanceID: "i-2", Address: "dns2"},
	}}
	rep, ok := m.Representative()
	require.True(t, ok)
	assert.Equal(t, "i-1", rep.InstanceID)
	assert.Equal(t, []string{"dns1", "dns2"}, m.Addresses())
	assert.Equal(t, []string{"i-1", "i-2"}, m.InstanceIDs())
}

func TestSortBySlot(t *testing.T) {
	t.Parallel()
	nodes := []NodeIdentity{{Slot: "10"}, {Slot: "b"}, {Slot: "2"}, {Slot: "a"}, {Slot: "0"}}

	SortBySlot(nodes)

	var got []string
	for _, n := range nodes {
		got = append(got, n.Slot)
	}
	assert.Equal(t, []string{"0", "2", "10", "a", "b"}, got)
}

func TestErrors(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("admit: %w", ErrDeferred)
	assert.True(t, IsDeferred(wrapped))
	assert.False(t, IsDeferred(errors.New("boom")))

	assert.Nil(t, Transport("ssm:SendCommand", nil))
	terr := Transport("ssm:SendCommand", errors.New("throttled"))
	assert.True(t, IsTransportError(fmt.Errorf("x: %w", terr)))
	assert.Equal(t, "ssm:SendCommand: throttled", terr.Error())
	assert.False(t, IsTransportError(&ConfigError{Field: "f", Reason: "r"}))
}
