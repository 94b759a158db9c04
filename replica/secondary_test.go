package replica

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"replkv/kvtypes"
	"replkv/persistence"
)

func newSecondaryForTest() (*Secondary, *persistence.Proxy) {
	proxy := persistence.NewProxy(persistence.NewMemEngine(), persistence.NoFault{}, testLogger())
	s := NewSecondary("sec-1", proxy, testLogger())
	return s, proxy
}

func sendSnapshotAndAwaitAck(t *testing.T, s *Secondary, snap kvtypes.Snapshot) (kvtypes.SnapshotAck, bool) {
	ackCh := make(chan kvtypes.SnapshotAck, 1)
	s.Snapshot(snap, func(ack kvtypes.SnapshotAck) { ackCh <- ack })
	select {
	case ack := <-ackCh:
		return ack, true
	case <-time.After(300 * time.Millisecond):
		return kvtypes.SnapshotAck{}, false
	}
}

func TestSnapshotsApplyInOrderAndAck(t *testing.T) {
	s, proxy := newSecondaryForTest()
	defer s.Stop()
	defer proxy.Stop()

	ack, ok := sendSnapshotAndAwaitAck(t, s, kvtypes.Snapshot{Key: "a", Value: kvtypes.SomeValue("1"), Seq: 0})
	require.True(t, ok)
	require.Equal(t, kvtypes.SequenceNumber(0), ack.Seq)

	ack, ok = sendSnapshotAndAwaitAck(t, s, kvtypes.Snapshot{Key: "b", Value: kvtypes.SomeValue("2"), Seq: 1})
	require.True(t, ok)
	require.Equal(t, kvtypes.SequenceNumber(1), ack.Seq)

	getCh := make(chan kvtypes.GetResult, 1)
	s.Get(kvtypes.Get{Key: "a"}, getCh)
	got := <-getCh
	require.Equal(t, "1", *got.Value)
}

func TestStaleSeqIsReAckedWithoutReapplying(t *testing.T) {
	s, proxy := newSecondaryForTest()
	defer s.Stop()
	defer proxy.Stop()

	_, ok := sendSnapshotAndAwaitAck(t, s, kvtypes.Snapshot{Key: "a", Value: kvtypes.SomeValue("1"), Seq: 0})
	require.True(t, ok)

	// seq 0 again, after expectedSeq has advanced to 1: must be idempotently
	// re-acked, not ignored and not reapplied.
	ack, ok := sendSnapshotAndAwaitAck(t, s, kvtypes.Snapshot{Key: "a", Value: kvtypes.SomeValue("stale-value"), Seq: 0})
	require.True(t, ok)
	require.Equal(t, kvtypes.SequenceNumber(0), ack.Seq)

	getCh := make(chan kvtypes.GetResult, 1)
	s.Get(kvtypes.Get{Key: "a"}, getCh)
	got := <-getCh
	require.Equal(t, "1", *got.Value, "a stale re-delivery must not overwrite already-applied state")
}

func TestFutureSeqIsIgnoredUntilGapFills(t *testing.T) {
	s, proxy := newSecondaryForTest()
	defer s.Stop()
	defer proxy.Stop()

	// seq 1 arrives before seq 0: must be silently ignored, no ack at all.
	_, ok := sendSnapshotAndAwaitAck(t, s, kvtypes.Snapshot{Key: "b", Value: kvtypes.SomeValue("2"), Seq: 1})
	require.False(t, ok, "a future seq must not be acked")

	getCh := make(chan kvtypes.GetResult, 1)
	s.Get(kvtypes.Get{Key: "b"}, getCh)
	got := <-getCh
	require.Nil(t, got.Value, "a future seq must not be applied yet")

	// once seq 0 arrives, seq 1 is resent by the replicator and now applies.
	ack, ok := sendSnapshotAndAwaitAck(t, s, kvtypes.Snapshot{Key: "a", Value: kvtypes.SomeValue("1"), Seq: 0})
	require.True(t, ok)
	require.Equal(t, kvtypes.SequenceNumber(0), ack.Seq)

	ack, ok = sendSnapshotAndAwaitAck(t, s, kvtypes.Snapshot{Key: "b", Value: kvtypes.SomeValue("2"), Seq: 1})
	require.True(t, ok)
	require.Equal(t, kvtypes.SequenceNumber(1), ack.Seq)
}

func TestRemoveSnapshotDeletesKey(t *testing.T) {
	s, proxy := newSecondaryForTest()
	defer s.Stop()
	defer proxy.Stop()

	_, ok := sendSnapshotAndAwaitAck(t, s, kvtypes.Snapshot{Key: "a", Value: kvtypes.SomeValue("1"), Seq: 0})
	require.True(t, ok)

	_, ok = sendSnapshotAndAwaitAck(t, s, kvtypes.Snapshot{Key: "a", Value: kvtypes.NoValue(), Seq: 1})
	require.True(t, ok)

	getCh := make(chan kvtypes.GetResult, 1)
	s.Get(kvtypes.Get{Key: "a"}, getCh)
	got := <-getCh
	require.Nil(t, got.Value)
}

func TestNewSecondaryStartsIdleAtSeqZero(t *testing.T) {
	s, proxy := newSecondaryForTest()
	defer s.Stop()
	defer proxy.Stop()

	stats := s.Stats()
	require.False(t, stats.Waiting)
	require.Equal(t, kvtypes.SequenceNumber(0), stats.ExpectedSeq)
}
