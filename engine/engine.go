// Package engine defines the seam between the typed access layer and an
// embedded, ordered, single-writer/multi-reader storage engine. The layer
// above only ever talks to these interfaces; the engines under engine/memory
// and engine/bolt implement them.
package engine

// DBI is an opaque handle to one named sub-store inside an environment.
// It stays valid for as long as the environment is open, or until the
// sub-store is dropped.
type DBI uint32

// Stat describes one sub-store.
type Stat struct {
	// Entries is the number of live key/value pairs.
	Entries uint64
}

// Env is an open storage environment: the process-wide owner of every
// sub-store and of the engine's locking rules (one concurrent writer,
// snapshot readers).
type Env interface {
	// Begin starts a transaction. A nil parent starts a top-level one;
	// a non-nil parent must be a write transaction from this Env and nests
	// the new transaction under it. The engine permits at most one open
	// child per parent and the parent must not be used until the child
	// has ended.
	Begin(parent Txn, flags TxnFlag) (Txn, error)

	// CloseDBI releases a sub-store handle. Data is untouched; the handle
	// must not be used afterwards.
	CloseDBI(dbi DBI)

	// Close shuts the environment down. Every DBI and every outstanding
	// transaction is invalidated.
	Close() error
}

// Txn is a single engine transaction. It is not safe for concurrent use
// and must be ended exactly once, by Commit or Abort. After either, every
// method fails with ErrBadTxn.
type Txn interface {
	// OpenDBI resolves a named sub-store, creating it when DBCreate is set
	// (creation requires a write transaction). The empty name is the
	// environment's unnamed default store, which always exists.
	OpenDBI(name string, flags DBFlag) (DBI, error)

	// Get returns the value stored under key, or ErrNotFound. The returned
	// slice is only valid until the transaction ends; callers that keep it
	// must copy.
	Get(dbi DBI, key []byte) ([]byte, error)

	// Put stores key/value. Empty keys fail with ErrBadValSize. Flags
	// tighten the semantics, see PutFlag.
	Put(dbi DBI, key, val []byte, flags PutFlag) error

	// Del removes key. Deleting an absent key fails with ErrNotFound.
	Del(dbi DBI, key []byte) error

	// Empty removes every entry of the sub-store but keeps it usable.
	Empty(dbi DBI) error

	// Drop removes every entry and deletes the sub-store itself; the DBI
	// answers ErrBadDBI from then on (as of commit time).
	Drop(dbi DBI) error

	// Stat reports the sub-store's entry count as seen by this transaction.
	Stat(dbi DBI) (Stat, error)

	// Commit makes the transaction's writes durable (for a child: visible
	// to the parent). The transaction is ended even when Commit fails.
	Commit() error

	// Abort discards the transaction's writes and ends it. Aborting an
	// already-ended transaction fails with ErrBadTxn.
	Abort() error
}
