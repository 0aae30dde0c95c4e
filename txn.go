package burrow

import (
	"errors"
	"fmt"

	"github.com/samber/mo"

	"burrow/engine"
)

// Txn is a single-use transaction handle. It wraps one engine transaction
// and clears itself once the transaction has ended, so every later call
// fails with engine.ErrBadTxn instead of touching a dead engine handle.
//
// A Txn is confined to the goroutine that began it.
type Txn struct {
	inner engine.Txn
}

// Begin starts a transaction against env, nested under parent when parent
// is non-nil. The caller must end it exactly once, through Commit, Abort
// or Run.
func Begin(env engine.Env, parent *Txn, flags engine.TxnFlag) (*Txn, error) {
	var p engine.Txn
	if parent != nil {
		if parent.inner == nil {
			return nil, engine.ErrBadTxn
		}
		p = parent.inner
	}

	inner, err := env.Begin(p, flags)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	return &Txn{inner: inner}, nil
}

// Run executes op inside t and consumes t: a nil error commits, anything
// else (a returned error or a panic) aborts before the failure continues
// to the caller. Either way the transaction ends exactly once.
func Run[R any](t *Txn, op func(*Txn) (R, error)) (R, error) {
	var zero R
	if t.inner == nil {
		return zero, engine.ErrBadTxn
	}

	defer func() {
		if t.inner != nil {
			inner := t.inner
			t.inner = nil
			_ = inner.Abort()
		}
	}()

	out, err := op(t)
	if err != nil {
		return zero, err
	}
	if err := t.Commit(); err != nil {
		return zero, err
	}
	return out, nil
}

// Commit consumes t. The engine releases the transaction even when the
// commit itself fails, so the handle is cleared first.
func (t *Txn) Commit() error {
	if t.inner == nil {
		return engine.ErrBadTxn
	}
	inner := t.inner
	t.inner = nil
	if err := inner.Commit(); err != nil {
		return fmt.Errorf("committing: %w", err)
	}
	return nil
}

// Abort consumes t and discards its writes.
func (t *Txn) Abort() error {
	if t.inner == nil {
		return engine.ErrBadTxn
	}
	inner := t.inner
	t.inner = nil
	if err := inner.Abort(); err != nil {
		return fmt.Errorf("aborting: %w", err)
	}
	return nil
}

// Get looks key up in a sub-store. An absent key is None, not an error.
// The bytes belong to the engine and stay valid only until t ends; callers
// that keep them must copy (codec.Raw does).
func (t *Txn) Get(dbi engine.DBI, key []byte) (mo.Option[[]byte], error) {
	none := mo.None[[]byte]()
	if t.inner == nil {
		return none, engine.ErrBadTxn
	}

	v, err := t.inner.Get(dbi, key)
	if errors.Is(err, engine.ErrNotFound) {
		return none, nil
	}
	if err != nil {
		return none, fmt.Errorf("get: %w", err)
	}
	return mo.Some(v), nil
}

// Has reports whether key is present, without reading the value out.
func (t *Txn) Has(dbi engine.DBI, key []byte) (bool, error) {
	if t.inner == nil {
		return false, engine.ErrBadTxn
	}

	_, err := t.inner.Get(dbi, key)
	if errors.Is(err, engine.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("has: %w", err)
	}
	return true, nil
}

// Put stores key/value in a sub-store.
func (t *Txn) Put(dbi engine.DBI, key, val []byte, flags engine.PutFlag) error {
	if t.inner == nil {
		return engine.ErrBadTxn
	}
	if err := t.inner.Put(dbi, key, val, flags); err != nil {
		return fmt.Errorf("put: %w", err)
	}
	return nil
}

// Delete removes key from a sub-store. Deleting an absent key is a hard
// error (engine.ErrNotFound), unlike Get's soft None; callers wanting an
// idempotent delete check for it explicitly.
func (t *Txn) Delete(dbi engine.DBI, key []byte) error {
	if t.inner == nil {
		return engine.ErrBadTxn
	}
	if err := t.inner.Del(dbi, key); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	return nil
}
