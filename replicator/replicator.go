// Package replicator implements the per-secondary Replicator (spec.md
// §4.3): it converts Replicate requests from the primary into an ordered,
// retried snapshot stream to its secondary, and reports per-operation
// replication completion back to the primary.
//
// The actor shape — a single goroutine owning a mailbox, selecting
// between inbound messages and a retry ticker — follows morphling's
// mainLoop convention (mpserverv2/replica.go). The unbounded
// time.NewTicker-driven resend follows shifting/server.go's Server.Start
// gossip loop, which keeps resending its guide state to every peer on
// every tick regardless of whether the previous round was acknowledged.
package replicator

import (
	"time"

	"replkv/kvlog"
	"replkv/kvtypes"
	"replkv/outbox"
)

// Link is how a Replicator talks to its secondary. Implementations may be
// in-process (tests) or net/rpc-backed (rpcendpoint). Send is best-effort;
// delivery failures are recovered by the retry ticker, never by Send's
// return value, since spec.md §4.3 makes retry unbounded and tick-driven.
type Link interface {
	Send(kvtypes.Snapshot)
}

type replicateMsg struct {
	key   string
	value kvtypes.ValueOption
	id    kvtypes.OperationId
}

// Replicator is created when its secondary joins and destroyed when its
// secondary leaves (spec.md §3 "Lifecycles").
type Replicator struct {
	self    kvtypes.Identity
	link    Link
	out     *outbox.Outbox
	nextSeq kvtypes.SequenceNumber

	replicateCh    chan replicateMsg
	snapshotAckCh  chan kvtypes.SnapshotAck
	shutdownCh     chan struct{}
	stoppedCh      chan struct{}

	replicatedOut chan<- kvtypes.Replicated
	log           *kvlog.Logger
}

// New spawns a Replicator for secondary identified by self, talking
// through link, and reporting completions on replicatedOut (owned by the
// primary that created this Replicator).
func New(self kvtypes.Identity, link Link, replicatedOut chan<- kvtypes.Replicated, log *kvlog.Logger) *Replicator {
	r := &Replicator{
		self:          self,
		link:          link,
		out:           outbox.New(),
		replicateCh:   make(chan replicateMsg, 256),
		snapshotAckCh: make(chan kvtypes.SnapshotAck, 256),
		shutdownCh:    make(chan struct{}),
		stoppedCh:     make(chan struct{}),
		replicatedOut: replicatedOut,
		log:           log,
	}
	go r.mainLoop()
	return r
}

// Identity reports which secondary this Replicator serves.
func (r *Replicator) Identity() kvtypes.Identity { return r.self }

// Replicate assigns the next seq, records the outbox entry, and sends the
// initial Snapshot. Non-blocking up to the mailbox buffer (spec.md §5: no
// operation may block a component's message loop).
func (r *Replicator) Replicate(key string, value kvtypes.ValueOption, id kvtypes.OperationId) {
	select {
	case r.replicateCh <- replicateMsg{key: key, value: value, id: id}:
	case <-r.stoppedCh:
	}
}

// SnapshotAck delivers an ack from the secondary, usually forwarded in by
// rpcendpoint's RPC handler.
func (r *Replicator) SnapshotAck(ack kvtypes.SnapshotAck) {
	select {
	case r.snapshotAckCh <- ack:
	case <-r.stoppedCh:
	}
}

// Shutdown signals the Replicator to terminate after finishing its
// current message; any remaining outbox entries are silently dropped
// (spec.md §4.3 "A Replicator shutdown while entries remain in its outbox
// silently drops them").
func (r *Replicator) Shutdown() {
	select {
	case <-r.shutdownCh:
	default:
		close(r.shutdownCh)
	}
}

func (r *Replicator) mainLoop() {
	ticker := time.NewTicker(kvtypes.SnapshotRetryInterval)
	defer ticker.Stop()
	defer close(r.stoppedCh)

	for {
		select {
		case <-r.shutdownCh:
			r.log.Info("replicator for %s shutting down, dropping %d outstanding entries", r.self, r.out.Len())
			return

		case msg := <-r.replicateCh:
			r.handleReplicate(msg)

		case ack := <-r.snapshotAckCh:
			r.handleSnapshotAck(ack)

		case <-ticker.C:
			r.resendAll()
		}
	}
}

func (r *Replicator) handleReplicate(msg replicateMsg) {
	seq := r.nextSeq
	r.nextSeq++
	r.out.Put(outbox.Entry{Seq: seq, Key: msg.key, Value: msg.value, OriginalId: msg.id})
	r.log.Seq("assign seq %d to key %q for op %d", seq, msg.key, msg.id)
	r.link.Send(kvtypes.Snapshot{Key: msg.key, Value: msg.value, Seq: seq})
}

func (r *Replicator) handleSnapshotAck(ack kvtypes.SnapshotAck) {
	entry, ok := r.out.Remove(ack.Seq)
	if !ok {
		// already acked (retransmitted ack) or never ours; ignore.
		return
	}
	select {
	case r.replicatedOut <- kvtypes.Replicated{Key: entry.Key, Id: entry.OriginalId, From: r.self}:
	case <-r.shutdownCh:
	}
}

func (r *Replicator) resendAll() {
	r.out.Each(func(e outbox.Entry) {
		r.link.Send(kvtypes.Snapshot{Key: e.Key, Value: e.Value, Seq: e.Seq})
	})
}
