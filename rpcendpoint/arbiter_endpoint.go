package rpcendpoint

import (
	"replkv/arbiter"
	"replkv/kvlog"
	"replkv/kvtypes"
)

// ArbiterEndpoint exposes arbiter.Arbiter over net/rpc for out-of-process
// Join/Leave, and wires the winning primary up to receive Replicas pushes
// via an RPCListener.
type ArbiterEndpoint struct {
	Arb *arbiter.Arbiter
	Log *kvlog.Logger
}

func (e *ArbiterEndpoint) Join(args *kvtypes.Join, reply *JoinReply) error {
	self, isPrimary, primaryId := e.Arb.Join(args.Addr)
	reply.Self = self
	reply.Primary = isPrimary
	reply.PrimaryId = primaryId
	if isPrimary {
		e.Arb.SetPrimaryListener(NewRPCListener(args.Addr, e.Log))
	}
	return nil
}

func (e *ArbiterEndpoint) Leave(args *kvtypes.Identity, reply *Ack) error {
	e.Arb.Leave(*args)
	return nil
}
