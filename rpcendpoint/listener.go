package rpcendpoint

import (
	"replkv/arbiter"
	"replkv/kvlog"
	"replkv/kvtypes"
)

// RPCListener implements arbiter.Listener by pushing Replicas to a
// primary's PrimaryEndpoint over net/rpc, for use when the Arbiter runs
// as a separate process from the primary it governs.
type RPCListener struct {
	primaryAddr string
	dialer      *dialer
	log         *kvlog.Logger
}

func NewRPCListener(primaryAddr string, log *kvlog.Logger) *RPCListener {
	return &RPCListener{primaryAddr: primaryAddr, dialer: newDialer(log), log: log}
}

func (l *RPCListener) Replicas(set []kvtypes.ReplicaMember) {
	if err := l.dialer.call(l.primaryAddr, "PrimaryEndpoint.Replicas", &kvtypes.Replicas{Set: set}, &Ack{}); err != nil {
		l.log.Warn("push replicas to %s failed: %v", l.primaryAddr, err)
	}
}

var _ arbiter.Listener = (*RPCListener)(nil)
