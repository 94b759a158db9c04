package persistence

import (
	"github.com/Connor1996/badger"
	"github.com/pkg/errors"

	"replkv/kvtypes"
)

// Engine is the durable storage surface the persistence child writes
// through. It stands in for spec.md's "physical persistence device"
// external collaborator (§2.1): one real backing (badger) for production
// use, one in-memory backing for tests that need determinism.
type Engine interface {
	Apply(key string, value kvtypes.ValueOption) error
	Get(key string) (kvtypes.ValueOption, error)
	Close() error
}

// BadgerEngine persists snapshots/mutations to an embedded badger LSM tree,
// keyed directly by the KV store's key. It gives the unreliable
// persistence collaborator of spec.md a genuine on-disk backing instead of
// a bare map. morphling's go.mod already carries Connor1996/badger and
// mpserverv2/storage.go shapes its Storage interface directly on badger's
// Txn/iterator API, but that repo never actually opens a badger.DB — its
// only running implementation is the in-memory MemStorage. This is the
// on-disk backing that dependency was declared for but never wired up.
type BadgerEngine struct {
	db *badger.DB
}

func OpenBadgerEngine(dir string) (*BadgerEngine, error) {
	opts := badger.DefaultOptions
	opts.Dir = dir
	opts.ValueDir = dir
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrapf(err, "open badger at %s", dir)
	}
	return &BadgerEngine{db: db}, nil
}

func (e *BadgerEngine) Apply(key string, value kvtypes.ValueOption) error {
	return e.db.Update(func(txn *badger.Txn) error {
		if value == nil {
			err := txn.Delete([]byte(key))
			if err != nil && err != badger.ErrKeyNotFound {
				return errors.Wrapf(err, "delete key %q", key)
			}
			return nil
		}
		return errors.Wrapf(txn.Set([]byte(key), []byte(*value)), "set key %q", key)
	})
}

func (e *BadgerEngine) Get(key string) (kvtypes.ValueOption, error) {
	var out kvtypes.ValueOption
	err := e.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err == badger.ErrKeyNotFound {
			out = nil
			return nil
		}
		if err != nil {
			return errors.Wrapf(err, "get key %q", key)
		}
		v, err := item.Value()
		if err != nil {
			return errors.Wrapf(err, "read value for key %q", key)
		}
		s := string(v)
		out = &s
		return nil
	})
	return out, err
}

func (e *BadgerEngine) Close() error {
	return errors.Wrap(e.db.Close(), "close badger")
}

// MemEngine is an in-memory Engine used by tests, in the same spirit as
// morphling's MemStorage, but speaking the smaller Engine contract rather
// than the column-family interface morphling never actually exercised.
type MemEngine struct {
	data map[string]string
}

func NewMemEngine() *MemEngine {
	return &MemEngine{data: make(map[string]string)}
}

func (e *MemEngine) Apply(key string, value kvtypes.ValueOption) error {
	if value == nil {
		delete(e.data, key)
		return nil
	}
	e.data[key] = *value
	return nil
}

func (e *MemEngine) Get(key string) (kvtypes.ValueOption, error) {
	v, ok := e.data[key]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (e *MemEngine) Close() error { return nil }
