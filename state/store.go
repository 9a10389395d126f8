/*
Package state provides persistent vault state on top of neo-go key-value
storage.

Every vault call works inside a Tx. Root scopes are layered over the
persistent Store, nested scopes (reentrant calls) are layered over their
parent scope. Changes reach the layer below only on Commit, so a failed call
leaves no trace.
*/
package state

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/nspcc-dev/neo-go/pkg/core/storage"
	"github.com/nspcc-dev/neo-go/pkg/core/storage/dbconfig"
)

// Store is the persistent vault state.
type Store struct {
	ps storage.Store
}

// New wraps ready neo-go store.
func New(ps storage.Store) *Store {
	return &Store{ps: ps}
}

// NewMemory returns Store kept in memory only.
func NewMemory() *Store {
	return New(storage.NewMemoryStore())
}

// Open opens Store of the configured backend type (in-memory, LevelDB or
// BoltDB).
func Open(cfg dbconfig.DBConfiguration) (*Store, error) {
	ps, err := storage.NewStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Type, err)
	}
	return New(ps), nil
}

// Close releases underlying storage.
func (s *Store) Close() error {
	return s.ps.Close()
}

// Begin opens root transactional scope.
func (s *Store) Begin() *Tx {
	return &Tx{mem: storage.NewMemCachedStore(s.ps)}
}

// Tx is a transactional scope over the vault state.
type Tx struct {
	mem    *storage.MemCachedStore
	parent *Tx
}

// Nest opens scope layered over x. Committing the nested scope makes its
// changes visible in x only.
func (x *Tx) Nest() *Tx {
	return &Tx{mem: storage.NewMemCachedStore(x.mem), parent: x}
}

// Nested reports whether x is layered over another scope.
func (x *Tx) Nested() bool {
	return x.parent != nil
}

// Commit flushes changes into the layer below.
func (x *Tx) Commit() error {
	_, err := x.mem.PersistSync()
	if err != nil {
		return fmt.Errorf("persist state changes: %w", err)
	}
	return nil
}

// Get returns value stored by key or nil if there is no such key.
func (x *Tx) Get(key []byte) ([]byte, error) {
	v, err := x.mem.Get(key)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get %x: %w", key, err)
	}
	return v, nil
}

// Put stores value by key.
func (x *Tx) Put(key, value []byte) {
	x.mem.Put(key, value)
}

// Delete removes key.
func (x *Tx) Delete(key []byte) {
	x.mem.Delete(key)
}

// Seek iterates over items which keys start with prefix in ascending key
// order. Keys are passed to f without the prefix. Iteration stops when f
// returns false. Empty prefix iterates over the whole state.
func (x *Tx) Seek(prefix []byte, f func(key, value []byte) bool) {
	if len(prefix) > 0 {
		x.seek(prefix, f)
		return
	}

	// storage requires non-empty prefix
	stop := false
	for b := 0; b <= 0xff && !stop; b++ {
		p := []byte{byte(b)}
		x.seek(p, func(k, v []byte) bool {
			stop = !f(append(p, k...), v)
			return !stop
		})
	}
}

func (x *Tx) seek(prefix []byte, f func(key, value []byte) bool) {
	x.mem.Seek(storage.SeekRange{Prefix: prefix}, func(k, v []byte) bool {
		k = bytes.TrimPrefix(k, prefix)
		return f(bytes.Clone(k), bytes.Clone(v))
	})
}
