package rpcendpoint

import (
	"replkv/kvlog"
	"replkv/kvtypes"
	"replkv/replica"
)

// SecondaryEndpoint exposes a Secondary over net/rpc to both clients
// (Get) and its Replicator (Snapshot). Snapshot's application-level
// reply is deliberately not the RPC return value — persistence-wait can
// outlast the call by many retry ticks — so Snapshot replies with a bare
// Ack immediately and the real SnapshotAck is delivered later via a
// separate call back to CallbackAddr.
type SecondaryEndpoint struct {
	Secondary *replica.Secondary
	dialer    *dialer
}

func NewSecondaryEndpoint(sec *replica.Secondary, log *kvlog.Logger) *SecondaryEndpoint {
	return &SecondaryEndpoint{Secondary: sec, dialer: newDialer(log)}
}

func (e *SecondaryEndpoint) Get(args *kvtypes.Get, reply *kvtypes.GetResult) error {
	replyCh := make(chan kvtypes.GetResult, 1)
	e.Secondary.Get(*args, replyCh)
	*reply = <-replyCh
	return nil
}

func (e *SecondaryEndpoint) Snapshot(args *SnapshotArgs, reply *Ack) error {
	replicatorId := args.ReplicatorId
	callbackAddr := args.CallbackAddr
	e.Secondary.Snapshot(args.Snap, func(ack kvtypes.SnapshotAck) {
		e.dialer.call(callbackAddr, "ReplicatorEndpoint.SnapshotAck", &SnapshotAckArgs{
			Ack:          ack,
			ReplicatorId: replicatorId,
		}, &Ack{})
	})
	return nil
}
