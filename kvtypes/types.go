// Package kvtypes defines the wire-level message and type contracts shared
// by every component of the replicated store: the primary and secondary
// Replica roles, the Replicator, the PersistenceProxy, and the Arbiter.
package kvtypes

import "time"

// Identity names a participant in the cluster: a replica or a replicator.
// The Arbiter mints every replica's Identity fresh on Join (a Replicator
// inherits the Identity of the secondary it serves); components never
// invent their own.
type Identity string

// OperationId is a client-chosen correlation token, unique per client
// session but not globally. The system treats it as opaque.
type OperationId int64

// SequenceNumber is assigned independently by each Replicator, starting at
// 0 and incremented by exactly 1 per operation sent to its secondary.
type SequenceNumber int64

// ValueOption models the client-visible "value or absence" used by Get
// results and by snapshot/insert-or-remove payloads. A nil *string means
// absent (a Remove, or a missing key on Get).
type ValueOption = *string

func SomeValue(v string) ValueOption { return &v }

func NoValue() ValueOption { return nil }

// --- Client <-> Primary ---

type Insert struct {
	Key   string
	Value string
	Id    OperationId
}

type Remove struct {
	Key string
	Id  OperationId
}

type Get struct {
	Key string
	Id  OperationId
}

type GetResult struct {
	Key   string
	Value ValueOption
	Id    OperationId
}

type OperationAck struct {
	Id OperationId
}

type OperationFailed struct {
	Id OperationId
}

// --- Arbiter -> Primary ---

// ReplicaMember pairs a replica's Arbiter-assigned Identity with the
// dialable address it can be reached at. Once the Arbiter mints
// Identity rather than a replica self-assigning it from its own listen
// address, the two can no longer be conflated the way rpcendpoint's
// dialer used to.
type ReplicaMember struct {
	Id   Identity
	Addr string
}

// Replicas carries the current replica set. It always includes the
// primary's own entry.
type Replicas struct {
	Set []ReplicaMember
}

// --- Arbiter <-> Replica ---

// Join is a replica's request to be admitted to the cluster. Addr is the
// dialable address the joining replica listens on for the primary's and
// replicators' RPCs; the joining process supplies no identity of its
// own, since the Arbiter mints one fresh and returns it in JoinReply.
type Join struct {
	Addr string
}

type JoinedPrimary struct{}

type JoinedSecondary struct {
	Primary Identity
}

// --- Primary <-> Replicator ---

type Replicate struct {
	Key   string
	Value ValueOption
	Id    OperationId
}

type Replicated struct {
	Key string
	Id  OperationId
	// From identifies the replicator that completed replication, so the
	// primary can remove it from the right PendingAck.awaitingReplicators.
	From Identity
}

// --- Replicator <-> Secondary ---

type Snapshot struct {
	Key   string
	Value ValueOption
	Seq   SequenceNumber
}

type SnapshotAck struct {
	Key string
	Seq SequenceNumber
}

// --- Replica <-> PersistenceProxy ---

// PersistTag is an opaque correlation token echoed back by Persisted; it is
// either an OperationId (primary-side) or a SequenceNumber (secondary-side).
type PersistTag struct {
	OpId      OperationId
	Seq       SequenceNumber
	IsSeqTag  bool
}

func OpTag(id OperationId) PersistTag { return PersistTag{OpId: id} }

func SeqTag(seq SequenceNumber) PersistTag { return PersistTag{Seq: seq, IsSeqTag: true} }

type Persist struct {
	Key   string
	Value ValueOption
	Tag   PersistTag
}

type Persisted struct {
	Key string
	Tag PersistTag
}

// Shutdown signals a departing Replicator to terminate after finishing its
// current message.
type Shutdown struct{}

// OperationDeadline is the elapsed-time budget for a primary mutation:
// 1000ms of real time from receipt, never reset.
const OperationDeadline = 1000 * time.Millisecond

// DeadlineScanInterval bounds how often the primary's periodic tick must
// scan PendingAcks for expiry, independent of message-triggered scans.
const DeadlineScanInterval = 100 * time.Millisecond

// SnapshotRetryInterval is the Replicator's unbounded resend tick.
const SnapshotRetryInterval = 100 * time.Millisecond

// PersistRetryInterval is the secondary's inactivity timer before
// re-issuing a Persist request.
const PersistRetryInterval = 100 * time.Millisecond

// SentinelId marks a synthetic Insert issued during reconfiguration for a
// key with no outstanding PendingAck: fire-and-forget, no client reply.
const SentinelId OperationId = -1
