package replicator

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"replkv/kvlog"
	"replkv/kvtypes"
)

// fakeLink records every Snapshot sent, for assertions and for driving
// acks back into the Replicator under test.
type fakeLink struct {
	mu  sync.Mutex
	got []kvtypes.Snapshot
}

func (l *fakeLink) Send(s kvtypes.Snapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.got = append(l.got, s)
}

func (l *fakeLink) sends() []kvtypes.Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]kvtypes.Snapshot, len(l.got))
	copy(out, l.got)
	return out
}

func testLogger() *kvlog.Logger { return kvlog.New("test", "test") }

func TestReplicateAssignsIncrementingSeq(t *testing.T) {
	link := &fakeLink{}
	replicatedOut := make(chan kvtypes.Replicated, 8)
	r := New("sec-1", link, replicatedOut, testLogger())
	defer r.Shutdown()

	r.Replicate("a", kvtypes.SomeValue("1"), 10)
	r.Replicate("b", kvtypes.SomeValue("2"), 11)

	require.Eventually(t, func() bool { return len(link.sends()) == 2 }, time.Second, 5*time.Millisecond)
	sends := link.sends()
	require.Equal(t, kvtypes.SequenceNumber(0), sends[0].Seq)
	require.Equal(t, kvtypes.SequenceNumber(1), sends[1].Seq)
}

func TestSnapshotAckEmitsReplicatedAndStopsRetry(t *testing.T) {
	link := &fakeLink{}
	replicatedOut := make(chan kvtypes.Replicated, 8)
	r := New("sec-1", link, replicatedOut, testLogger())
	defer r.Shutdown()

	r.Replicate("a", kvtypes.SomeValue("1"), 10)
	require.Eventually(t, func() bool { return len(link.sends()) >= 1 }, time.Second, 5*time.Millisecond)

	r.SnapshotAck(kvtypes.SnapshotAck{Key: "a", Seq: 0})

	select {
	case rep := <-replicatedOut:
		require.Equal(t, "a", rep.Key)
		require.Equal(t, kvtypes.OperationId(10), rep.Id)
		require.Equal(t, kvtypes.Identity("sec-1"), rep.From)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for Replicated")
	}

	countBefore := len(link.sends())
	time.Sleep(3 * kvtypes.SnapshotRetryInterval)
	require.Equal(t, countBefore, len(link.sends()), "an acked entry must not be resent")
}

func TestUnackedEntryIsResentOnRetryTick(t *testing.T) {
	link := &fakeLink{}
	replicatedOut := make(chan kvtypes.Replicated, 8)
	r := New("sec-1", link, replicatedOut, testLogger())
	defer r.Shutdown()

	r.Replicate("a", kvtypes.SomeValue("1"), 10)
	require.Eventually(t, func() bool { return len(link.sends()) >= 3 }, time.Second, 5*time.Millisecond,
		"an outstanding entry must be resent on every retry tick")
}

func TestShutdownDropsOutstandingEntriesSilently(t *testing.T) {
	link := &fakeLink{}
	replicatedOut := make(chan kvtypes.Replicated, 8)
	r := New("sec-1", link, replicatedOut, testLogger())

	r.Replicate("a", kvtypes.SomeValue("1"), 10)
	require.Eventually(t, func() bool { return len(link.sends()) >= 1 }, time.Second, 5*time.Millisecond)

	r.Shutdown()
	r.Shutdown() // idempotent

	select {
	case <-replicatedOut:
		t.Fatal("a dropped outbox entry must never emit Replicated")
	case <-time.After(3 * kvtypes.SnapshotRetryInterval):
	}
}
