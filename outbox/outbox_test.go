package outbox

import (
	"testing"

	"github.com/stretchr/testify/require"

	"replkv/kvtypes"
)

func TestPutAndRemove(t *testing.T) {
	o := New()
	o.Put(Entry{Seq: 3, Key: "c"})
	o.Put(Entry{Seq: 1, Key: "a"})
	o.Put(Entry{Seq: 2, Key: "b"})
	require.Equal(t, 3, o.Len())

	entry, ok := o.Remove(2)
	require.True(t, ok)
	require.Equal(t, "b", entry.Key)
	require.Equal(t, 2, o.Len())

	_, ok = o.Remove(2)
	require.False(t, ok, "removing an already-removed seq reports absent")
}

func TestEachWalksInAscendingSeqOrder(t *testing.T) {
	o := New()
	o.Put(Entry{Seq: 5, Key: "e"})
	o.Put(Entry{Seq: 0, Key: "a"})
	o.Put(Entry{Seq: 2, Key: "c"})

	var seen []kvtypes.SequenceNumber
	o.Each(func(e Entry) {
		seen = append(seen, e.Seq)
	})
	require.Equal(t, []kvtypes.SequenceNumber{0, 2, 5}, seen)
}

func TestReplaceOrInsertOverwritesSameSeq(t *testing.T) {
	o := New()
	o.Put(Entry{Seq: 1, Key: "first"})
	o.Put(Entry{Seq: 1, Key: "second"})
	require.Equal(t, 1, o.Len())

	entry, ok := o.Remove(1)
	require.True(t, ok)
	require.Equal(t, "second", entry.Key)
}
