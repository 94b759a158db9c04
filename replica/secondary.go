package replica

import (
	"time"

	"replkv/kvlog"
	"replkv/kvtypes"
	"replkv/persistence"
)

// AckSender sends a SnapshotAck back to whichever Replicator sent the
// Snapshot being acknowledged. rpcendpoint supplies one that makes a
// separate RPC call back to the Replicator's CallbackAddr; in-process
// tests bind it to a channel.
type AckSender func(kvtypes.SnapshotAck)

type snapshotEnvelope struct {
	snap  kvtypes.Snapshot
	ackTo AckSender
}

type secondaryGetReq struct {
	msg     kvtypes.Get
	replyTo chan<- kvtypes.GetResult
}

// Secondary is the actor that consumes one Replicator's ordered snapshot
// stream (spec.md §4.2).
type Secondary struct {
	self        kvtypes.Identity
	kv          map[string]string
	expectedSeq kvtypes.SequenceNumber

	waiting         bool
	pendingSnapshot kvtypes.Snapshot
	pendingAckTo    AckSender

	proxy       *persistence.Proxy
	persistedCh chan kvtypes.Persisted

	getCh      chan secondaryGetReq
	snapshotCh chan snapshotEnvelope
	statsCh    chan chan SecondaryStats
	stopCh     chan struct{}

	log *kvlog.Logger
}

// SecondaryStats is a point-in-time snapshot safe to read from outside
// the actor's goroutine, used by the httpstatus admin surface.
type SecondaryStats struct {
	KeyCount    int
	ExpectedSeq kvtypes.SequenceNumber
	Waiting     bool
}

func NewSecondary(self kvtypes.Identity, proxy *persistence.Proxy, log *kvlog.Logger) *Secondary {
	s := &Secondary{
		self:        self,
		kv:          make(map[string]string),
		proxy:       proxy,
		persistedCh: make(chan kvtypes.Persisted, 256),
		getCh:       make(chan secondaryGetReq, 64),
		snapshotCh:  make(chan snapshotEnvelope, 256),
		statsCh:     make(chan chan SecondaryStats, 8),
		stopCh:      make(chan struct{}),
		log:         log,
	}
	go s.mainLoop()
	return s
}

func (s *Secondary) Stop() { close(s.stopCh) }

func (s *Secondary) Get(msg kvtypes.Get, replyTo chan<- kvtypes.GetResult) {
	s.getCh <- secondaryGetReq{msg: msg, replyTo: replyTo}
}

// Snapshot delivers a sequenced mutation from this secondary's
// Replicator. ackTo is how the resulting SnapshotAck (if any) gets back
// to that Replicator.
func (s *Secondary) Snapshot(snap kvtypes.Snapshot, ackTo AckSender) {
	s.snapshotCh <- snapshotEnvelope{snap: snap, ackTo: ackTo}
}

// Stats returns a point-in-time snapshot of secondary-side state, routed
// through the mailbox so the read never races the actor's own goroutine.
func (s *Secondary) Stats() SecondaryStats {
	respCh := make(chan SecondaryStats, 1)
	s.statsCh <- respCh
	return <-respCh
}

func (s *Secondary) mainLoop() {
	retryTimer := time.NewTimer(kvtypes.PersistRetryInterval)
	retryTimer.Stop()

	for {
		select {
		case <-s.stopCh:
			return

		case req := <-s.getCh:
			s.handleGet(req)

		case env := <-s.snapshotCh:
			s.handleSnapshot(env, retryTimer)

		case persisted := <-s.persistedCh:
			s.handlePersisted(persisted, retryTimer)

		case respCh := <-s.statsCh:
			respCh <- SecondaryStats{KeyCount: len(s.kv), ExpectedSeq: s.expectedSeq, Waiting: s.waiting}

		case <-retryTimer.C:
			s.reissuePersist(retryTimer)
		}
	}
}

func (s *Secondary) handleGet(req secondaryGetReq) {
	var value kvtypes.ValueOption
	if v, ok := s.kv[req.msg.Key]; ok {
		value = kvtypes.SomeValue(v)
	}
	req.replyTo <- kvtypes.GetResult{Key: req.msg.Key, Value: value, Id: req.msg.Id}
}

// handleSnapshot implements the strict-order gate of spec.md §4.2.1: a
// stale seq is idempotently re-acked, a future seq is ignored pending
// retransmission, and an on-time seq is applied and moved into the
// persistence-wait sub-state of §4.2.2. While waiting, further Snapshot
// messages are ignored — the simplest of the policies §4.2.2 allows,
// relying entirely on the Replicator's retry to resend once we exit the
// sub-state.
func (s *Secondary) handleSnapshot(env snapshotEnvelope, retryTimer *time.Timer) {
	if s.waiting {
		return
	}

	seq := env.snap.Seq
	if seq < s.expectedSeq {
		go env.ackTo(kvtypes.SnapshotAck{Key: env.snap.Key, Seq: seq})
		return
	}
	if seq > s.expectedSeq {
		return
	}

	if env.snap.Value == nil {
		delete(s.kv, env.snap.Key)
	} else {
		s.kv[env.snap.Key] = *env.snap.Value
	}

	s.waiting = true
	s.pendingSnapshot = env.snap
	s.pendingAckTo = env.ackTo
	s.issuePersist(retryTimer)
}

func (s *Secondary) issuePersist(retryTimer *time.Timer) {
	s.proxy.Persist(persistence.Request{
		Key:     s.pendingSnapshot.Key,
		Value:   s.pendingSnapshot.Value,
		Tag:     kvtypes.SeqTag(s.pendingSnapshot.Seq),
		ReplyTo: s.persistedCh,
	})
	retryTimer.Reset(kvtypes.PersistRetryInterval)
}

func (s *Secondary) reissuePersist(retryTimer *time.Timer) {
	if !s.waiting {
		return
	}
	s.log.Seq("retrying persist of seq %d after inactivity", s.pendingSnapshot.Seq)
	s.issuePersist(retryTimer)
}

func (s *Secondary) handlePersisted(msg kvtypes.Persisted, retryTimer *time.Timer) {
	if !s.waiting {
		return
	}
	if !msg.Tag.IsSeqTag || msg.Tag.Seq != s.pendingSnapshot.Seq || msg.Key != s.pendingSnapshot.Key {
		return
	}
	// ackTo may be a blocking net/rpc call back to the replicator's
	// callback address (rpcendpoint's SecondaryEndpoint.Snapshot); it must
	// never run on this goroutine, or one slow ack would stall Get,
	// the next Snapshot, and the retry timer alike (spec.md §5).
	ackTo := s.pendingAckTo
	ack := kvtypes.SnapshotAck{Key: msg.Key, Seq: msg.Tag.Seq}
	go ackTo(ack)
	s.expectedSeq = msg.Tag.Seq + 1
	s.waiting = false
	s.pendingAckTo = nil
	retryTimer.Stop()
}
