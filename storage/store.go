// Package storage defines the host key-value interface the greeting
// contract runs against, along with the key layout and the value codec.
// The host differentiates two scopes: an instance scope whose records share
// one TTL across the whole contract, and a persistent scope with one TTL
// per record.
package storage

// Store is one scope of the host key-value store.
type Store interface {
	// Has reports whether a live record exists under key
	Has(key []byte) (bool, error)

	// Get returns the record value, or nil when no live record exists
	Get(key []byte) ([]byte, error)

	// Set stores value under key. Overwriting keeps the record's TTL.
	Set(key, value []byte) error

	// ExtendTTL refreshes the record's lifetime: when fewer than threshold
	// ledgers remain, the record is extended to live extendTo ledgers from
	// the current ledger. Fails if no live record exists under key.
	ExtendTTL(key []byte, threshold, extendTo uint32) error
}

// Env is the host environment handed to a contract invocation.
type Env interface {
	// Instance returns the contract-wide scope
	Instance() Store

	// Persistent returns the per-entity scope
	Persistent() Store

	// ExtendInstanceTTL refreshes the TTL shared by all instance records,
	// using the same watermark rule as Store.ExtendTTL
	ExtendInstanceTTL(threshold, extendTo uint32) error

	// Log emits a contract event
	Log(event string, keyValues ...any)
}
