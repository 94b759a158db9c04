// Package arbiter defines the external membership authority's contract
// (spec.md §6 "Arbiter -> Replica") and a reference in-memory
// implementation. A real Arbiter is explicitly out of scope for this
// spec (§1); this package exists only so the rest of the system is
// exercisable end to end, the way jadepics-Progetto-Go-loadbalancing-
// registry's internal/registry.Registry is a bare in-memory map guarded
// by a mutex rather than a production service discovery backend.
package arbiter

import (
	"sync"

	"github.com/google/uuid"

	"replkv/kvtypes"
)

// Listener is how the Arbiter pushes Replicas updates to the primary it
// has assigned. Primary.Replicas matches this signature directly.
type Listener interface {
	Replicas(set []kvtypes.ReplicaMember)
}

// Arbiter assigns roles on Join and broadcasts the replica set to the
// current primary whenever membership changes. It is the sole minter of
// Identity values (spec.md's "the Arbiter assigns each joining replica a
// fresh Identity"); addrs records the dialable address behind each one,
// since Identity itself is now an opaque uuid rather than a "host:port".
type Arbiter struct {
	mu         sync.Mutex
	primary    kvtypes.Identity
	hasPrimary bool
	members    map[kvtypes.Identity]struct{}
	addrs      map[kvtypes.Identity]string
	listener   Listener
}

func New() *Arbiter {
	return &Arbiter{
		members: make(map[kvtypes.Identity]struct{}),
		addrs:   make(map[kvtypes.Identity]string),
	}
}

// NewIdentity mints a fresh Identity, the way Join assigns one to every
// joining replica rather than let it pick its own.
func NewIdentity() kvtypes.Identity {
	return kvtypes.Identity(uuid.NewString())
}

// SetPrimaryListener registers the callback used to deliver Replicas
// updates; call this once the primary process is ready to receive them.
func (a *Arbiter) SetPrimaryListener(l Listener) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listener = l
}

// Join mints a fresh Identity for the replica listening at addr, assigns
// it the primary role if no primary exists yet, otherwise the secondary
// role, and returns the current primary's identity either way.
func (a *Arbiter) Join(addr string) (self kvtypes.Identity, primary bool, primaryId kvtypes.Identity) {
	a.mu.Lock()
	defer a.mu.Unlock()

	self = NewIdentity()
	a.members[self] = struct{}{}
	a.addrs[self] = addr
	if !a.hasPrimary {
		a.primary = self
		a.hasPrimary = true
		a.broadcastLocked()
		return self, true, self
	}
	a.broadcastLocked()
	return self, false, a.primary
}

// Leave removes self from the membership set and broadcasts the new
// replica set to the primary.
func (a *Arbiter) Leave(self kvtypes.Identity) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.members, self)
	delete(a.addrs, self)
	a.broadcastLocked()
}

func (a *Arbiter) broadcastLocked() {
	if a.listener == nil || !a.hasPrimary {
		return
	}
	set := make([]kvtypes.ReplicaMember, 0, len(a.members))
	for id := range a.members {
		set = append(set, kvtypes.ReplicaMember{Id: id, Addr: a.addrs[id]})
	}
	a.listener.Replicas(set)
}

// Members returns a snapshot of the current replica set.
func (a *Arbiter) Members() []kvtypes.ReplicaMember {
	a.mu.Lock()
	defer a.mu.Unlock()
	set := make([]kvtypes.ReplicaMember, 0, len(a.members))
	for id := range a.members {
		set = append(set, kvtypes.ReplicaMember{Id: id, Addr: a.addrs[id]})
	}
	return set
}
