// Package memory implements the storage environment with plain maps.
// It backs tests and local runs, and models TTL expiry against an
// advanceable ledger sequence so lifetime behavior is observable.
package memory

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/govm-net/greeting/storage"
)

// creationTTL is the lifetime the host grants a record on creation,
// in ledgers. Contracts extend it explicitly afterwards.
const creationTTL = 100

// ErrRecordNotFound is returned when extending the TTL of a record that
// does not exist or has already expired.
var ErrRecordNotFound = errors.New("record not found")

// Env implements storage.Env in memory.
type Env struct {
	mu     sync.Mutex
	ledger uint32

	// Instance scope: all records live and expire together
	instance     map[string][]byte
	instanceLive uint32

	// Persistent scope: one lifetime per record
	persistent     map[string][]byte
	persistentLive map[string]uint32
}

// NewEnv creates an empty environment at ledger sequence 0.
func NewEnv() *Env {
	return &Env{
		instance:       make(map[string][]byte),
		persistent:     make(map[string][]byte),
		persistentLive: make(map[string]uint32),
	}
}

// Ledger returns the current ledger sequence.
func (e *Env) Ledger() uint32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger
}

// AdvanceLedger moves the ledger sequence forward by n, aging all records.
func (e *Env) AdvanceLedger(n uint32) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ledger += n
}

// Instance implements storage.Env.
func (e *Env) Instance() storage.Store {
	return instanceStore{e}
}

// Persistent implements storage.Env.
func (e *Env) Persistent() storage.Store {
	return persistentStore{e}
}

// ExtendInstanceTTL implements storage.Env.
func (e *Env) ExtendInstanceTTL(threshold, extendTo uint32) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.instance) == 0 || e.ledger > e.instanceLive {
		return ErrRecordNotFound
	}
	if e.instanceLive-e.ledger < threshold {
		e.instanceLive = e.ledger + extendTo
	}
	return nil
}

// Log implements storage.Env.
func (e *Env) Log(event string, keyValues ...any) {
	params := []any{"event", event}
	params = append(params, keyValues...)
	slog.Info("Contract event", params...)
}

func (e *Env) instanceExpired() bool {
	return len(e.instance) == 0 || e.ledger > e.instanceLive
}

// instanceStore is the contract-wide scope. Its records share one lifetime.
type instanceStore struct {
	env *Env
}

func (s instanceStore) Has(key []byte) (bool, error) {
	s.env.mu.Lock()
	defer s.env.mu.Unlock()
	if s.env.instanceExpired() {
		return false, nil
	}
	_, ok := s.env.instance[string(key)]
	return ok, nil
}

func (s instanceStore) Get(key []byte) ([]byte, error) {
	s.env.mu.Lock()
	defer s.env.mu.Unlock()
	if s.env.instanceExpired() {
		return nil, nil
	}
	return s.env.instance[string(key)], nil
}

func (s instanceStore) Set(key, value []byte) error {
	s.env.mu.Lock()
	defer s.env.mu.Unlock()
	if s.env.instanceExpired() {
		// The scope is (re)created by the first live write
		s.env.instance = make(map[string][]byte)
		s.env.instanceLive = s.env.ledger + creationTTL
	}
	s.env.instance[string(key)] = value
	return nil
}

func (s instanceStore) ExtendTTL(key []byte, threshold, extendTo uint32) error {
	return s.env.ExtendInstanceTTL(threshold, extendTo)
}

// persistentStore is the per-entity scope with independent record lifetimes.
type persistentStore struct {
	env *Env
}

func (s persistentStore) live(key string) bool {
	live, ok := s.env.persistentLive[key]
	return ok && s.env.ledger <= live
}

func (s persistentStore) Has(key []byte) (bool, error) {
	s.env.mu.Lock()
	defer s.env.mu.Unlock()
	return s.live(string(key)), nil
}

func (s persistentStore) Get(key []byte) ([]byte, error) {
	s.env.mu.Lock()
	defer s.env.mu.Unlock()
	if !s.live(string(key)) {
		return nil, nil
	}
	return s.env.persistent[string(key)], nil
}

func (s persistentStore) Set(key, value []byte) error {
	s.env.mu.Lock()
	defer s.env.mu.Unlock()
	k := string(key)
	if !s.live(k) {
		s.env.persistentLive[k] = s.env.ledger + creationTTL
	}
	s.env.persistent[k] = value
	return nil
}

func (s persistentStore) ExtendTTL(key []byte, threshold, extendTo uint32) error {
	s.env.mu.Lock()
	defer s.env.mu.Unlock()
	k := string(key)
	if !s.live(k) {
		return ErrRecordNotFound
	}
	if s.env.persistentLive[k]-s.env.ledger < threshold {
		s.env.persistentLive[k] = s.env.ledger + extendTo
	}
	return nil
}
