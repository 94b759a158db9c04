package persistence

import "math/rand"

// FaultPolicy decides, per persist attempt, whether the underlying
// collaborator behaves (ok), crashes (the proxy's child dies and is
// restarted, losing this request), or silently drops (the write may or
// may not land, but no Persisted ever reaches the caller). This is the
// "unreliable" half of spec.md §2.1's persistence collaborator; the
// PersistenceProxy's supervision-by-restart is the other half.
type FaultPolicy interface {
	Perturb() (ok, crash bool)
}

// NoFault always succeeds. Used in production and in tests that aren't
// exercising the retry/timeout paths.
type NoFault struct{}

func (NoFault) Perturb() (ok, crash bool) { return true, false }

// FlakyFault fails a fraction of persist attempts, split between crashes
// (child restarts, request lost) and silent drops (no crash, no ack).
type FlakyFault struct {
	CrashProb float64
	DropProb  float64
	rng       *rand.Rand
}

func NewFlakyFault(crashProb, dropProb float64, seed int64) *FlakyFault {
	return &FlakyFault{CrashProb: crashProb, DropProb: dropProb, rng: rand.New(rand.NewSource(seed))}
}

func (f *FlakyFault) Perturb() (ok, crash bool) {
	r := f.rng.Float64()
	if r < f.CrashProb {
		return false, true
	}
	if r < f.CrashProb+f.DropProb {
		return false, false
	}
	return true, false
}

// AlwaysFail never acknowledges; used by tests exercising the primary's
// 1-second deadline (spec.md §8 scenario 3).
type AlwaysFail struct{ Crash bool }

func (a AlwaysFail) Perturb() (ok, crash bool) { return false, a.Crash }
