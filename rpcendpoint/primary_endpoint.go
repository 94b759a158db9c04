package rpcendpoint

import (
	"replkv/kvtypes"
	"replkv/replica"
)

// PrimaryEndpoint exposes a Primary over net/rpc, mirroring
// mpserverv2.RPCEndpoint.ClientCall's "forward into the mailbox, block on
// a private reply channel, copy the result into *reply" shape.
type PrimaryEndpoint struct {
	Primary *replica.Primary
}

func (e *PrimaryEndpoint) Insert(args *kvtypes.Insert, reply *ClientReplyMsg) error {
	replyCh := make(chan replica.ClientReply, 1)
	e.Primary.Insert(*args, replyCh)
	cr := <-replyCh
	reply.Id, reply.Ok = cr.Id, cr.Ok
	return nil
}

func (e *PrimaryEndpoint) Remove(args *kvtypes.Remove, reply *ClientReplyMsg) error {
	replyCh := make(chan replica.ClientReply, 1)
	e.Primary.Remove(*args, replyCh)
	cr := <-replyCh
	reply.Id, reply.Ok = cr.Id, cr.Ok
	return nil
}

func (e *PrimaryEndpoint) Get(args *kvtypes.Get, reply *kvtypes.GetResult) error {
	replyCh := make(chan kvtypes.GetResult, 1)
	e.Primary.Get(*args, replyCh)
	*reply = <-replyCh
	return nil
}

// Replicas lets an out-of-process Arbiter push membership changes over
// RPC instead of an in-process Go call.
func (e *PrimaryEndpoint) Replicas(args *kvtypes.Replicas, reply *Ack) error {
	e.Primary.Replicas(args.Set)
	return nil
}
