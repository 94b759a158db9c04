package persistence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"replkv/kvlog"
	"replkv/kvtypes"
)

func newTestLogger() *kvlog.Logger { return kvlog.New("test", "test") }

func TestProxyPersistsAndAcks(t *testing.T) {
	engine := NewMemEngine()
	p := NewProxy(engine, NoFault{}, newTestLogger())
	defer p.Stop()

	replyCh := make(chan kvtypes.Persisted, 1)
	p.Persist(Request{Key: "k", Value: kvtypes.SomeValue("v"), Tag: kvtypes.OpTag(1), ReplyTo: replyCh})

	select {
	case msg := <-replyCh:
		require.Equal(t, "k", msg.Key)
		require.Equal(t, kvtypes.OpTag(1), msg.Tag)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for Persisted")
	}

	v, err := engine.Get("k")
	require.NoError(t, err)
	require.Equal(t, "v", *v)
}

func TestProxyDropSendsNoAck(t *testing.T) {
	engine := NewMemEngine()
	p := NewProxy(engine, AlwaysFail{Crash: false}, newTestLogger())
	defer p.Stop()

	replyCh := make(chan kvtypes.Persisted, 1)
	p.Persist(Request{Key: "k", Value: kvtypes.SomeValue("v"), Tag: kvtypes.OpTag(1), ReplyTo: replyCh})

	select {
	case <-replyCh:
		t.Fatal("a dropped persist must never ack")
	case <-time.After(50 * time.Millisecond):
	}
}

// flipFault lets a test switch fault behavior after the proxy's
// supervisor goroutine has already started, without racing process()'s
// read of the interface value.
type flipFault struct {
	ch chan FaultPolicy
	cur FaultPolicy
}

func newFlipFault(initial FaultPolicy) *flipFault {
	return &flipFault{ch: make(chan FaultPolicy, 1), cur: initial}
}

func (f *flipFault) Perturb() (ok, crash bool) {
	select {
	case f.cur = <-f.ch:
	default:
	}
	return f.cur.Perturb()
}

func (f *flipFault) set(p FaultPolicy) { f.ch <- p }

func TestProxySurvivesCrashAndKeepsServing(t *testing.T) {
	engine := NewMemEngine()
	fault := newFlipFault(AlwaysFail{Crash: true})
	p := NewProxy(engine, fault, newTestLogger())
	defer p.Stop()

	replyCh := make(chan kvtypes.Persisted, 1)
	p.Persist(Request{Key: "k", Value: kvtypes.SomeValue("v"), Tag: kvtypes.OpTag(1), ReplyTo: replyCh})

	select {
	case <-replyCh:
		t.Fatal("a crashing persist must never ack")
	case <-time.After(50 * time.Millisecond):
	}

	// the supervisor must have restarted the child; a fresh request
	// against a non-crashing fault succeeds.
	fault.set(NoFault{})
	replyCh2 := make(chan kvtypes.Persisted, 1)
	p.Persist(Request{Key: "k2", Value: kvtypes.SomeValue("v2"), Tag: kvtypes.OpTag(2), ReplyTo: replyCh2})

	select {
	case msg := <-replyCh2:
		require.Equal(t, "k2", msg.Key)
	case <-time.After(time.Second):
		t.Fatal("proxy did not recover after crash")
	}
}
