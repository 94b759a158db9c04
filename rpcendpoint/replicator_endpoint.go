package rpcendpoint

import "replkv/replica"

// ReplicatorEndpoint is exposed by the primary's process so that a
// secondary can deliver SnapshotAck back to the right Replicator.
type ReplicatorEndpoint struct {
	Primary *replica.Primary
}

func (e *ReplicatorEndpoint) SnapshotAck(args *SnapshotAckArgs, reply *Ack) error {
	e.Primary.SnapshotAckFrom(args.ReplicatorId, args.Ack)
	return nil
}
