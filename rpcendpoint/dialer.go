// Package rpcendpoint wires the actor packages (replica, replicator,
// arbiter) onto net/rpc, the same transport morphling uses throughout
// (mpserverv2/rpc_server.go, mpclient/client.go, main.go's
// rpc.DialHTTP/rpc.HandleHTTP). kvtypes.Identity is the Arbiter-minted
// uuid the state-machine packages treat as an opaque comparable key;
// dialing always goes through a separate address (kvtypes.ReplicaMember.Addr,
// or a primary/secondary's own -addr flag), never through Identity itself.
package rpcendpoint

import (
	"net/rpc"
	"sync"

	"github.com/pkg/errors"

	"replkv/kvlog"
)

// dialer lazily dials and caches *rpc.Client per address, invalidating the
// cache entry on the next call after any failure — the same
// rpc.DialHTTP-per-address shape as mpclient.MPClient.Connet, minus its
// background time.Sleep retry loop. A failed Snapshot send or a lost
// SnapshotAck callback is recovered by the Replicator's resend tick (the
// resent Snapshot is re-acked as stale); a failed Replicas push from
// RPCListener is only logged.
type dialer struct {
	mu      sync.Mutex
	clients map[string]*rpc.Client
	log     *kvlog.Logger
}

func newDialer(log *kvlog.Logger) *dialer {
	return &dialer{clients: make(map[string]*rpc.Client), log: log}
}

func (d *dialer) call(addr, method string, args, reply interface{}) error {
	client, err := d.get(addr)
	if err != nil {
		return errors.Wrapf(err, "dial %s", addr)
	}
	if err := client.Call(method, args, reply); err != nil {
		d.invalidate(addr)
		return errors.Wrapf(err, "call %s on %s", method, addr)
	}
	return nil
}

func (d *dialer) get(addr string) (*rpc.Client, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if c, ok := d.clients[addr]; ok {
		return c, nil
	}
	c, err := rpc.DialHTTP("tcp", addr)
	if err != nil {
		return nil, err
	}
	d.clients[addr] = c
	return c, nil
}

func (d *dialer) invalidate(addr string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.clients, addr)
}
