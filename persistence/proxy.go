// Package persistence implements the PersistenceProxy (spec.md §4.4): a
// supervisor that owns a persistence child and restarts it on failure,
// forwarding every message unchanged so callers see a stable address and
// implement retry purely by timeout.
package persistence

import (
	"time"

	"replkv/kvlog"
	"replkv/kvtypes"
)

// Request is what a Replica sends to ask for a key to be persisted.
// ReplyTo receives exactly one Persisted if and only if the attempt
// succeeds; a crashed or dropped attempt never replies, by design — the
// caller's own timer decides when to give up or retry.
type Request struct {
	Key     string
	Value   kvtypes.ValueOption
	Tag     kvtypes.PersistTag
	ReplyTo chan<- kvtypes.Persisted
}

// Proxy is the stable address. Its mailbox is never closed for the
// lifetime of the owning Replica; internally it restarts the child engine
// wrapper whenever Perturb reports a crash.
type Proxy struct {
	mailbox chan Request
	engine  Engine
	fault   FaultPolicy
	log     *kvlog.Logger
	done    chan struct{}
}

func NewProxy(engine Engine, fault FaultPolicy, log *kvlog.Logger) *Proxy {
	if fault == nil {
		fault = NoFault{}
	}
	p := &Proxy{
		mailbox: make(chan Request, 64),
		engine:  engine,
		fault:   fault,
		log:     log,
		done:    make(chan struct{}),
	}
	go p.supervise()
	return p
}

// Persist enqueues a persist request; non-blocking up to the mailbox's
// buffer, matching the actor model's "no operation blocks the message
// loop" rule (spec.md §5).
func (p *Proxy) Persist(req Request) {
	select {
	case p.mailbox <- req:
	case <-p.done:
	}
}

func (p *Proxy) Stop() { close(p.done) }

// supervise restarts the inner processing loop whenever it panics,
// exactly the "on fault, recreate and resume" policy DESIGN NOTES §9
// asks for. The engine itself is not recreated — only the act of
// processing the in-flight request is abandoned, which is what makes a
// crash indistinguishable, from the caller's point of view, from a
// silent drop.
func (p *Proxy) supervise() {
	for {
		select {
		case <-p.done:
			return
		default:
		}
		p.runChildUntilCrash()
		time.Sleep(10 * time.Millisecond)
	}
}

func (p *Proxy) runChildUntilCrash() {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error("persistence child crashed, restarting: %v", r)
		}
	}()
	for {
		select {
		case <-p.done:
			return
		case req := <-p.mailbox:
			p.process(req)
		}
	}
}

func (p *Proxy) process(req Request) {
	ok, crash := p.fault.Perturb()
	if crash {
		panic("persistence collaborator crashed")
	}
	if err := p.engine.Apply(req.Key, req.Value); err != nil {
		p.log.Error("persist key %q failed: %v", req.Key, err)
		return
	}
	if !ok {
		// silent drop: the write may have landed, but no ack is sent.
		return
	}
	select {
	case req.ReplyTo <- kvtypes.Persisted{Key: req.Key, Tag: req.Tag}:
	case <-p.done:
	}
}
