package replica

import (
	"time"

	"replkv/kvtypes"
)

// ClientReply is what a PendingAck's ReplyTo channel carries: either an
// OperationAck (Ok true) or an OperationFailed (Ok false), echoing Id.
type ClientReply struct {
	Id kvtypes.OperationId
	Ok bool
}

// PendingAck is the primary-side record of spec.md §3: a named record
// replacing the source's positional 5-tuple, per DESIGN NOTES §9.
// ReplyTo is nil when the entry was synthesized during reconfiguration to
// replicate existing state and no client is waiting.
type PendingAck struct {
	Id                  kvtypes.OperationId
	ReplyTo             chan<- ClientReply
	Persisted           bool
	AwaitingReplicators map[kvtypes.Identity]struct{}
	Deadline            time.Time
}

func newPendingAck(id kvtypes.OperationId, replyTo chan<- ClientReply, replicators map[kvtypes.Identity]struct{}, now time.Time) *PendingAck {
	return &PendingAck{
		Id:                  id,
		ReplyTo:             replyTo,
		Persisted:           false,
		AwaitingReplicators: replicators,
		Deadline:            now.Add(kvtypes.OperationDeadline),
	}
}

func (p *PendingAck) ready() bool {
	return p.Persisted && len(p.AwaitingReplicators) == 0
}
