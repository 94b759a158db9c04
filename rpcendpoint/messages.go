package rpcendpoint

import "replkv/kvtypes"

// Ack is the bare RPC-transport acknowledgement for one-way messages
// whose real application-level reply, if any, arrives later on a
// separate call (Snapshot/SnapshotAck). It carries no information; it
// only lets net/rpc's call/reply shape stand in for a fire-and-forget
// send.
type Ack struct{}

// SnapshotArgs is what a Replicator sends a secondary. CallbackAddr and
// ReplicatorId tell the secondary where, and on whose behalf, to deliver
// the eventual SnapshotAck.
type SnapshotArgs struct {
	Snap         kvtypes.Snapshot
	ReplicatorId kvtypes.Identity
	CallbackAddr string
}

// SnapshotAckArgs is what a secondary sends back to the Replicator's
// callback address.
type SnapshotAckArgs struct {
	Ack          kvtypes.SnapshotAck
	ReplicatorId kvtypes.Identity
}

// ClientReplyMsg is the wire shape of a primary's terminal reply to a
// mutation: OperationAck when Ok, OperationFailed otherwise.
type ClientReplyMsg struct {
	Id kvtypes.OperationId
	Ok bool
}

// JoinReply is the Arbiter's answer to a Join request (spec.md §6):
// either JoinedPrimary or JoinedSecondary, collapsed into one struct
// since net/rpc has no sum types. Self is the Identity the Arbiter just
// minted for the joining replica; the joining process has no identity of
// its own to fall back on.
type JoinReply struct {
	Self      kvtypes.Identity
	Primary   bool
	PrimaryId kvtypes.Identity
}
