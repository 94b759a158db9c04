package rpcendpoint

import (
	"replkv/kvlog"
	"replkv/kvtypes"
	"replkv/replicator"
)

// RPCLink is the net/rpc-backed replicator.Link a primary hands each
// freshly spawned Replicator: it dials the secondary's address lazily
// and best-effort-sends Snapshots, trusting the Replicator's own retry
// tick to paper over any failure (spec.md §4.3: retry is unbounded and
// tick-driven, never gated on Send's success).
type RPCLink struct {
	secondaryAddr string
	replicatorId  kvtypes.Identity
	callbackAddr  string
	dialer        *dialer
	log           *kvlog.Logger
}

func NewRPCLink(secondaryAddr string, replicatorId kvtypes.Identity, callbackAddr string, log *kvlog.Logger) *RPCLink {
	return &RPCLink{
		secondaryAddr: secondaryAddr,
		replicatorId:  replicatorId,
		callbackAddr:  callbackAddr,
		dialer:        newDialer(log),
		log:           log,
	}
}

func (l *RPCLink) Send(snap kvtypes.Snapshot) {
	args := &SnapshotArgs{Snap: snap, ReplicatorId: l.replicatorId, CallbackAddr: l.callbackAddr}
	if err := l.dialer.call(l.secondaryAddr, "SecondaryEndpoint.Snapshot", args, &Ack{}); err != nil {
		l.log.Warn("snapshot seq %d to %s failed, will retry: %v", snap.Seq, l.secondaryAddr, err)
	}
}

var _ replicator.Link = (*RPCLink)(nil)
