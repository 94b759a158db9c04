package rpcendpoint

import (
	"replkv/kvlog"
	"replkv/kvtypes"
	"replkv/replica"
	"replkv/replicator"
)

// NewLinkFactory builds the replica.LinkFactory a Primary uses to wire a
// freshly joined secondary's Replicator onto net/rpc. selfAddr is this
// primary's own dialable address, used as the CallbackAddr secondaries
// send SnapshotAck to. secondaryAddr is resolved by the Arbiter's
// Replicas broadcast, since a secondary's Identity is an Arbiter-minted
// uuid and no longer doubles as its own dial address.
func NewLinkFactory(selfAddr string, log *kvlog.Logger) replica.LinkFactory {
	return func(secondaryId kvtypes.Identity, secondaryAddr string) replicator.Link {
		return NewRPCLink(secondaryAddr, secondaryId, selfAddr, log)
	}
}
