package burrow

import (
	"fmt"

	"github.com/samber/mo"

	"burrow/engine"
)

// Database is one opened sub-store inside an environment. It holds the
// environment by reference and must not outlive it.
//
// A Database may be shared between goroutines: every operation runs in its
// own transaction. Opening and closing the Database itself is not
// synchronized and must happen-before/after any concurrent use.
type Database struct {
	env    engine.Env
	dbi    engine.DBI
	name   string
	closed bool
}

// OpenDatabase opens the named sub-store, or the environment's unnamed
// default store when name is empty. With engine.DBCreate in flags a missing
// store is created. The open call runs inside its own one-shot transaction.
func OpenDatabase(env engine.Env, name string, flags engine.DBFlag) (*Database, error) {
	txn, err := Begin(env, nil, 0)
	if err != nil {
		return nil, err
	}
	dbi, err := Run(txn, func(t *Txn) (engine.DBI, error) {
		return t.inner.OpenDBI(name, flags)
	})
	if err != nil {
		return nil, fmt.Errorf("opening sub-store %q: %w", name, err)
	}
	return &Database{env: env, dbi: dbi, name: name}, nil
}

// DBI exposes the raw sub-store handle for use with Txn primitives.
func (db *Database) DBI() engine.DBI {
	return db.dbi
}

func (db *Database) handle() (engine.DBI, error) {
	if db.closed {
		return 0, engine.ErrBadDBI
	}
	return db.dbi, nil
}

// Transact runs op in a fresh transaction: committed when op returns nil,
// aborted when it returns an error or panics. Use the package-level
// Transact to get a result out.
func (db *Database) Transact(flags engine.TxnFlag, op func(*Txn) error) error {
	_, err := Transact(db, flags, func(t *Txn) (struct{}, error) {
		return struct{}{}, op(t)
	})
	return err
}

// Transact is Database.Transact for operations that produce a value.
func Transact[R any](db *Database, flags engine.TxnFlag, op func(*Txn) (R, error)) (R, error) {
	if db.closed {
		var zero R
		return zero, engine.ErrBadDBI
	}
	txn, err := Begin(db.env, nil, flags)
	if err != nil {
		var zero R
		return zero, err
	}
	return Run(txn, op)
}

// Begin starts a transaction against the owning environment, for callers
// managing commit and abort themselves.
func (db *Database) Begin(flags engine.TxnFlag) (*Txn, error) {
	if db.closed {
		return nil, engine.ErrBadDBI
	}
	return Begin(db.env, nil, flags)
}

// Get reads the raw bytes under key in a read-only transaction. The result
// is copied out, so it stays valid after the transaction ends.
func (db *Database) Get(key []byte) (mo.Option[[]byte], error) {
	return Transact(db, engine.TxnReadOnly, func(t *Txn) (mo.Option[[]byte], error) {
		dbi, err := db.handle()
		if err != nil {
			return mo.None[[]byte](), err
		}
		raw, err := t.Get(dbi, key)
		if err != nil {
			return mo.None[[]byte](), err
		}
		if v, ok := raw.Get(); ok {
			return mo.Some(append([]byte(nil), v...)), nil
		}
		return mo.None[[]byte](), nil
	})
}

// Put writes key/value in its own transaction.
func (db *Database) Put(key, val []byte, flags engine.PutFlag) error {
	return db.Transact(0, func(t *Txn) error {
		dbi, err := db.handle()
		if err != nil {
			return err
		}
		return t.Put(dbi, key, val, flags)
	})
}

// Delete removes key in its own transaction. An absent key is a hard
// error, mirroring the engine.
func (db *Database) Delete(key []byte) error {
	return db.Transact(0, func(t *Txn) error {
		dbi, err := db.handle()
		if err != nil {
			return err
		}
		return t.Delete(dbi, key)
	})
}

// Has reports key presence using a read-only lookup; no value is decoded
// or copied.
func (db *Database) Has(key []byte) (bool, error) {
	return Transact(db, engine.TxnReadOnly, func(t *Txn) (bool, error) {
		dbi, err := db.handle()
		if err != nil {
			return false, err
		}
		return t.Has(dbi, key)
	})
}

// Count reports the number of entries.
func (db *Database) Count() (uint64, error) {
	return Transact(db, engine.TxnReadOnly, func(t *Txn) (uint64, error) {
		dbi, err := db.handle()
		if err != nil {
			return 0, err
		}
		st, err := t.inner.Stat(dbi)
		if err != nil {
			return 0, err
		}
		return st.Entries, nil
	})
}

// Empty removes every entry but keeps the Database usable.
func (db *Database) Empty() error {
	return db.Transact(0, func(t *Txn) error {
		dbi, err := db.handle()
		if err != nil {
			return err
		}
		return t.inner.Empty(dbi)
	})
}

// Drop deletes the sub-store and its contents and invalidates the handle;
// every later operation on db fails.
func (db *Database) Drop() error {
	err := db.Transact(0, func(t *Txn) error {
		dbi, err := db.handle()
		if err != nil {
			return err
		}
		return t.inner.Drop(dbi)
	})
	if err != nil {
		return err
	}
	db.closed = true
	return nil
}

// Close releases the sub-store handle. Stored data is untouched and the
// store can be reopened by name.
func (db *Database) Close() {
	if db.closed {
		return
	}
	db.closed = true
	db.env.CloseDBI(db.dbi)
}
