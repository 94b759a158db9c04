// Package outbox implements the Replicator's seq -> entry mapping of
// not-yet-acknowledged snapshots (spec.md §3 "Replicator outbox", §9
// "sequenced channel per Replicator"). It is backed by an llrb.LLRB tree
// the same way morphling's mpserverv2/storage.go backs MemStorage, so
// iterating the outbox in seq order on every retry tick is a plain
// ascending walk rather than a map-plus-sort.
package outbox

import "github.com/petar/GoLLRB/llrb"

import "replkv/kvtypes"

// Entry is a snapshot not yet acknowledged by the secondary.
type Entry struct {
	Seq          kvtypes.SequenceNumber
	Key          string
	Value        kvtypes.ValueOption
	OriginalId   kvtypes.OperationId
}

type item struct {
	entry Entry
}

func (it item) Less(than llrb.Item) bool {
	return it.entry.Seq < than.(item).entry.Seq
}

// Outbox is not safe for concurrent use; it is owned exclusively by one
// Replicator's message loop, per spec.md §5.
type Outbox struct {
	tree *llrb.LLRB
}

func New() *Outbox {
	return &Outbox{tree: llrb.New()}
}

func (o *Outbox) Put(e Entry) {
	o.tree.ReplaceOrInsert(item{entry: e})
}

// Remove deletes the entry for seq, reporting whether it was present.
func (o *Outbox) Remove(seq kvtypes.SequenceNumber) (Entry, bool) {
	removed := o.tree.Delete(item{entry: Entry{Seq: seq}})
	if removed == nil {
		return Entry{}, false
	}
	return removed.(item).entry, true
}

func (o *Outbox) Len() int { return o.tree.Len() }

// Each walks every outstanding entry in ascending seq order, the order a
// retry tick must resend them in so the secondary's strict-seq gate never
// stalls behind a reordered resend.
func (o *Outbox) Each(fn func(Entry)) {
	o.tree.AscendGreaterOrEqual(item{entry: Entry{Seq: 0}}, func(i llrb.Item) bool {
		fn(i.(item).entry)
		return true
	})
}
