package convergence

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/rsjoin/internal/cluster"
)

func TestRunInput_DecodesWorkflowPayload(t *testing.T) {
	t.Parallel()
	payload := `{"nodes":{"id":["i-1","i-2"],"dns":["dns1","dns2"]},"project":"MongoDB","environment":"Test","role":"rsmember"}`

	var in RunInput
	require.NoError(t, json.Unmarshal([]byte(payload), &in))

	m, err := in.Membership()
	require.NoError(t, err)
	assert.Equal(t, "MongoDB_Test_rsmember", m.Identity.ReplicaSetName())
	assert.Equal(t, []cluster.NodeIdentity{
		{Slot: "0", InstanceID: "i-1", Address: "dns1"},
		{Slot: "1", InstanceID: "i-2", Address: "dns2"},
	}, m.Nodes)
}

func TestRunInput_MismatchedColumns(t *testing.T) {
	t.Parallel()
	in := RunInput{Nodes: NodeList{ID: []string{"i-1"}, DNS: nil}}

	_, err := in.Membership()
	assert.True(t, cluster.IsConfigError(err))
}

func TestNewRunInput(t *testing.T) {
	t.Parallel()
	m := cluster.Membership{
		Identity: cluster.Identity{Project: "p", Environment: "e", Role: "r"},
		Nodes:    []cluster.NodeIdentity{{Slot: "0", InstanceID: "i-1", Address: "dns1"}},
	}

	in := NewRunInput(m)

	assert.Equal(t, NodeList{ID: []string{"i-1"}, DNS: []string{"dns1"}}, in.Nodes)
	assert.Equal(t, m.Identity, in.Identity())
}
