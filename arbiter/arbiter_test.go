package arbiter

import (
	"testing"

	"github.com/stretchr/testify/require"

	"replkv/kvtypes"
)

type recordingListener struct {
	calls [][]kvtypes.ReplicaMember
}

func (l *recordingListener) Replicas(set []kvtypes.ReplicaMember) {
	l.calls = append(l.calls, set)
}

func TestFirstJoinerBecomesPrimary(t *testing.T) {
	a := New()
	self, isPrimary, primaryId := a.Join("host1:1")
	require.True(t, isPrimary)
	require.Equal(t, self, primaryId)
	require.NotEmpty(t, self)
}

func TestSecondJoinerBecomesSecondary(t *testing.T) {
	a := New()
	primarySelf, _, _ := a.Join("host1:1")
	self, isPrimary, primaryId := a.Join("host2:1")
	require.False(t, isPrimary)
	require.Equal(t, primarySelf, primaryId)
	require.NotEqual(t, primarySelf, self)
}

func TestJoinMintsDistinctIdentitiesPerReplica(t *testing.T) {
	a := New()
	first, _, _ := a.Join("host1:1")
	second, _, _ := a.Join("host2:1")
	require.NotEqual(t, first, second)
}

func TestJoinBroadcastsToListenerOnce(t *testing.T) {
	a := New()
	first, _, _ := a.Join("host1:1")
	listener := &recordingListener{}
	a.SetPrimaryListener(listener)
	second, _, _ := a.Join("host2:1")

	require.Len(t, listener.calls, 1)
	require.ElementsMatch(t, []kvtypes.ReplicaMember{
		{Id: first, Addr: "host1:1"},
		{Id: second, Addr: "host2:1"},
	}, listener.calls[0])
}

func TestLeaveBroadcastsRemainingMembers(t *testing.T) {
	a := New()
	first, _, _ := a.Join("host1:1")
	second, _, _ := a.Join("host2:1")
	listener := &recordingListener{}
	a.SetPrimaryListener(listener)
	a.Leave(second)

	require.Len(t, listener.calls, 1)
	require.ElementsMatch(t, []kvtypes.ReplicaMember{{Id: first, Addr: "host1:1"}}, listener.calls[0])
}

func TestNewIdentityMintsDistinctValues(t *testing.T) {
	a := NewIdentity()
	b := NewIdentity()
	require.NotEqual(t, a, b)
	require.NotEmpty(t, a)
}
