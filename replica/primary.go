// Package replica implements the two Replica roles of spec.md §4.1/§4.2:
// Primary owns the authoritative map, fans out to Replicators, drives
// local persistence, aggregates acks, enforces the 1-second deadline, and
// handles replica-set reconfiguration; Secondary consumes its
// Replicator's snapshot stream in strict sequence order.
//
// Both follow morphling's single-goroutine mailbox convention
// (mpserverv2/replica.go's mainLoop / HandleClientMsg / HandleMsg), with
// Go's typed channels standing in for the teacher's single
// interface{}-carrying HandlerInfo channel plus type switch.
package replica

import (
	"time"

	"replkv/kvlog"
	"replkv/kvtypes"
	"replkv/persistence"
	"replkv/replicator"
)

// LinkFactory builds the transport Link a freshly joined secondary's
// Replicator should use to send it Snapshots, given that secondary's
// Arbiter-assigned Identity and its dialable address. rpcendpoint
// supplies the net/rpc-backed implementation; tests supply an in-process
// one that ignores the address.
type LinkFactory func(kvtypes.Identity, string) replicator.Link

type insertReq struct {
	msg     kvtypes.Insert
	replyTo chan<- ClientReply
}

type removeReq struct {
	msg     kvtypes.Remove
	replyTo chan<- ClientReply
}

type getReq struct {
	msg     kvtypes.Get
	replyTo chan<- kvtypes.GetResult
}

type replicasReq struct {
	set []kvtypes.ReplicaMember
}

type snapshotAckReq struct {
	replicatorId kvtypes.Identity
	ack          kvtypes.SnapshotAck
}

// Primary is the actor that owns the authoritative map.
type Primary struct {
	self kvtypes.Identity
	kv   map[string]string

	pending     map[string]*PendingAck
	replicators map[kvtypes.Identity]*replicator.Replicator
	linkFactory LinkFactory

	proxy        *persistence.Proxy
	persistedCh  chan kvtypes.Persisted
	replicatedCh chan kvtypes.Replicated

	insertCh      chan insertReq
	removeCh      chan removeReq
	getCh         chan getReq
	replicasCh    chan replicasReq
	snapshotAckCh chan snapshotAckReq
	statsCh       chan chan PrimaryStats
	stopCh        chan struct{}

	log *kvlog.Logger
}

// PrimaryStats is a point-in-time snapshot safe to read from outside the
// actor's goroutine, used by the httpstatus admin surface.
type PrimaryStats struct {
	KeyCount      int
	PendingKeys   []string
	ReplicatorIds []kvtypes.Identity
}

func NewPrimary(self kvtypes.Identity, proxy *persistence.Proxy, linkFactory LinkFactory, log *kvlog.Logger) *Primary {
	p := &Primary{
		self:          self,
		kv:            make(map[string]string),
		pending:       make(map[string]*PendingAck),
		replicators:   make(map[kvtypes.Identity]*replicator.Replicator),
		linkFactory:   linkFactory,
		proxy:         proxy,
		persistedCh:   make(chan kvtypes.Persisted, 256),
		replicatedCh:  make(chan kvtypes.Replicated, 256),
		insertCh:      make(chan insertReq, 64),
		removeCh:      make(chan removeReq, 64),
		getCh:         make(chan getReq, 64),
		replicasCh:    make(chan replicasReq, 8),
		snapshotAckCh: make(chan snapshotAckReq, 256),
		statsCh:       make(chan chan PrimaryStats, 8),
		stopCh:        make(chan struct{}),
		log:           log,
	}
	go p.mainLoop()
	return p
}

func (p *Primary) Stop() { close(p.stopCh) }

// Insert enqueues a client mutation. replyTo must be buffered (capacity
// >= 1) so the primary's mailbox never blocks delivering the terminal
// reply.
func (p *Primary) Insert(msg kvtypes.Insert, replyTo chan<- ClientReply) {
	p.insertCh <- insertReq{msg: msg, replyTo: replyTo}
}

func (p *Primary) Remove(msg kvtypes.Remove, replyTo chan<- ClientReply) {
	p.removeCh <- removeReq{msg: msg, replyTo: replyTo}
}

func (p *Primary) Get(msg kvtypes.Get, replyTo chan<- kvtypes.GetResult) {
	p.getCh <- getReq{msg: msg, replyTo: replyTo}
}

// Replicas delivers the Arbiter's current replica set.
func (p *Primary) Replicas(set []kvtypes.ReplicaMember) {
	p.replicasCh <- replicasReq{set: set}
}

// Stats returns a point-in-time snapshot of primary-side state, routed
// through the mailbox so the read never races the actor's own goroutine.
func (p *Primary) Stats() PrimaryStats {
	respCh := make(chan PrimaryStats, 1)
	p.statsCh <- respCh
	return <-respCh
}

// SnapshotAckFrom routes a SnapshotAck arriving for one of this primary's
// replicators; rpcendpoint calls this when the secondary's ack arrives
// over the wire. It is a mailbox send, not a direct call, since
// p.replicators is owned exclusively by the mainLoop goroutine and
// handleReplicas mutates it concurrently with this method's caller
// (spec.md §5: reconfiguration updates are messages, not direct memory
// edits).
func (p *Primary) SnapshotAckFrom(replicatorId kvtypes.Identity, ack kvtypes.SnapshotAck) {
	p.snapshotAckCh <- snapshotAckReq{replicatorId: replicatorId, ack: ack}
}

func (p *Primary) mainLoop() {
	ticker := time.NewTicker(kvtypes.DeadlineScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return

		case req := <-p.insertCh:
			p.scanDeadlines(time.Now())
			p.handleInsert(req)

		case req := <-p.removeCh:
			p.scanDeadlines(time.Now())
			p.handleRemove(req)

		case req := <-p.getCh:
			p.scanDeadlines(time.Now())
			p.handleGet(req)

		case req := <-p.replicasCh:
			p.scanDeadlines(time.Now())
			p.handleReplicas(req.set)

		case persisted := <-p.persistedCh:
			p.scanDeadlines(time.Now())
			p.handlePersisted(persisted)

		case replicated := <-p.replicatedCh:
			p.scanDeadlines(time.Now())
			p.handleReplicated(replicated)

		case req := <-p.snapshotAckCh:
			p.scanDeadlines(time.Now())
			p.handleSnapshotAck(req)

		case respCh := <-p.statsCh:
			respCh <- p.stats()

		case now := <-ticker.C:
			p.scanDeadlines(now)
		}
	}
}

func (p *Primary) stats() PrimaryStats {
	pendingKeys := make([]string, 0, len(p.pending))
	for key := range p.pending {
		pendingKeys = append(pendingKeys, key)
	}
	replicatorIds := make([]kvtypes.Identity, 0, len(p.replicators))
	for id := range p.replicators {
		replicatorIds = append(replicatorIds, id)
	}
	return PrimaryStats{KeyCount: len(p.kv), PendingKeys: pendingKeys, ReplicatorIds: replicatorIds}
}

func (p *Primary) handleInsert(req insertReq) {
	p.kv[req.msg.Key] = req.msg.Value
	p.openPendingAck(req.msg.Key, req.msg.Id, req.replyTo)
	p.fanOut(req.msg.Key, kvtypes.SomeValue(req.msg.Value), req.msg.Id)
}

func (p *Primary) handleRemove(req removeReq) {
	delete(p.kv, req.msg.Key)
	p.openPendingAck(req.msg.Key, req.msg.Id, req.replyTo)
	p.fanOut(req.msg.Key, kvtypes.NoValue(), req.msg.Id)
}

// openPendingAck installs a fresh PendingAck for key, overwriting any
// still-outstanding one. The superseded entry's client, if any, never
// hears back for the superseded id (spec.md §7 "SupersededOperation") —
// see DESIGN.md for the rationale behind this choice among the open
// question's alternatives.
func (p *Primary) openPendingAck(key string, id kvtypes.OperationId, replyTo chan<- ClientReply) {
	awaiting := make(map[kvtypes.Identity]struct{}, len(p.replicators))
	for rid := range p.replicators {
		awaiting[rid] = struct{}{}
	}
	p.pending[key] = newPendingAck(id, replyTo, awaiting, time.Now())
}

func (p *Primary) fanOut(key string, value kvtypes.ValueOption, id kvtypes.OperationId) {
	for _, r := range p.replicators {
		r.Replicate(key, value, id)
	}
	p.proxy.Persist(persistence.Request{
		Key:     key,
		Value:   value,
		Tag:     kvtypes.OpTag(id),
		ReplyTo: p.persistedCh,
	})
}

func (p *Primary) handleGet(req getReq) {
	var value kvtypes.ValueOption
	if v, ok := p.kv[req.msg.Key]; ok {
		value = kvtypes.SomeValue(v)
	}
	req.replyTo <- kvtypes.GetResult{Key: req.msg.Key, Value: value, Id: req.msg.Id}
}

// handlePersisted and handleReplicated match purely by key, per spec.md
// §4.1.1: "Matching is purely by key: the PendingAck's stored id is
// echoed." A stale ack for a key whose PendingAck has since been
// superseded is applied to whatever PendingAck currently sits at that
// key — that is the literal contract, not a bug.
func (p *Primary) handlePersisted(msg kvtypes.Persisted) {
	pending, ok := p.pending[msg.Key]
	if !ok {
		return
	}
	pending.Persisted = true
	p.attemptAck(msg.Key)
}

func (p *Primary) handleSnapshotAck(req snapshotAckReq) {
	if r, ok := p.replicators[req.replicatorId]; ok {
		r.SnapshotAck(req.ack)
	}
}

func (p *Primary) handleReplicated(msg kvtypes.Replicated) {
	pending, ok := p.pending[msg.Key]
	if !ok {
		return
	}
	delete(pending.AwaitingReplicators, msg.From)
	p.attemptAck(msg.Key)
}

func (p *Primary) attemptAck(key string) {
	pending, ok := p.pending[key]
	if !ok || !pending.ready() {
		return
	}
	delete(p.pending, key)
	if pending.ReplyTo != nil {
		pending.ReplyTo <- ClientReply{Id: pending.Id, Ok: true}
	}
}

// scanDeadlines runs on every received message and on the periodic tick
// (spec.md §4.1.3): expired entries emit OperationFailed and are removed.
// The deadline is never reset by reconfiguration or partial progress.
func (p *Primary) scanDeadlines(now time.Time) {
	for key, pending := range p.pending {
		if now.Before(pending.Deadline) {
			continue
		}
		delete(p.pending, key)
		if pending.ReplyTo != nil {
			pending.ReplyTo <- ClientReply{Id: pending.Id, Ok: false}
		}
	}
}

// handleReplicas reconfigures the replica set (spec.md §4.1.2).
func (p *Primary) handleReplicas(newSet []kvtypes.ReplicaMember) {
	wanted := make(map[kvtypes.Identity]struct{}, len(newSet))
	for _, m := range newSet {
		wanted[m.Id] = struct{}{}
	}

	departed := make([]kvtypes.Identity, 0)
	for id := range p.replicators {
		if _, ok := wanted[id]; !ok {
			departed = append(departed, id)
		}
	}

	// 1-2: drop departed replicators from every PendingAck and retry ack.
	for _, id := range departed {
		for key, pending := range p.pending {
			if _, awaiting := pending.AwaitingReplicators[id]; awaiting {
				delete(pending.AwaitingReplicators, id)
				p.attemptAck(key)
			}
		}
	}

	// 3: terminate departed replicators and drop them from the map.
	for _, id := range departed {
		p.replicators[id].Shutdown()
		delete(p.replicators, id)
	}

	// 4-5: spawn replicators for joined secondaries and backfill state.
	for _, m := range newSet {
		if m.Id == p.self {
			continue
		}
		if _, exists := p.replicators[m.Id]; exists {
			continue
		}
		r := replicator.New(m.Id, p.linkFactory(m.Id, m.Addr), p.replicatedCh, p.log)
		p.replicators[m.Id] = r
		p.backfill(m.Id, r)
	}
}

func (p *Primary) backfill(id kvtypes.Identity, r *replicator.Replicator) {
	for key, value := range p.kv {
		if pending, ok := p.pending[key]; ok {
			pending.AwaitingReplicators[id] = struct{}{}
			r.Replicate(key, kvtypes.SomeValue(value), pending.Id)
			continue
		}
		r.Replicate(key, kvtypes.SomeValue(value), kvtypes.SentinelId)
	}
}
