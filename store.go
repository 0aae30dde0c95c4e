package burrow

import (
	"github.com/samber/mo"

	"burrow/codec"
	"burrow/engine"
)

// Store is a typed view over a Database, binding a key codec and a value
// codec once instead of at every call. The byte forms never escape the
// transaction: keys and values are encoded inside scoped codec callbacks.
type Store[K, V any] struct {
	db  *Database
	key codec.Codec[K]
	val codec.Codec[V]
}

func NewStore[K, V any](db *Database, key codec.Codec[K], val codec.Codec[V]) Store[K, V] {
	return Store[K, V]{db: db, key: key, val: val}
}

// Get reads and decodes the value under key in its own read-only
// transaction. Absent key and undecodable value both come back as None;
// callers that need to tell them apart fetch the raw bytes first.
func (s Store[K, V]) Get(key K) (mo.Option[V], error) {
	return Transact(s.db, engine.TxnReadOnly, func(t *Txn) (mo.Option[V], error) {
		return s.GetIn(t, key)
	})
}

// GetIn is Get inside a caller-supplied transaction.
func (s Store[K, V]) GetIn(t *Txn, key K) (mo.Option[V], error) {
	dbi, err := s.db.handle()
	if err != nil {
		return mo.None[V](), err
	}

	out := mo.None[V]()
	err = s.key.Bytes(key, func(kb []byte) error {
		raw, err := t.Get(dbi, kb)
		if err != nil {
			return err
		}
		if v, ok := raw.Get(); ok {
			out = s.val.Decode(v)
		}
		return nil
	})
	if err != nil {
		return mo.None[V](), err
	}
	return out, nil
}

// Put stores key/value in its own transaction.
func (s Store[K, V]) Put(key K, value V, flags engine.PutFlag) error {
	return s.db.Transact(0, func(t *Txn) error {
		return s.PutIn(t, key, value, flags)
	})
}

// PutIn is Put inside a caller-supplied transaction.
func (s Store[K, V]) PutIn(t *Txn, key K, value V, flags engine.PutFlag) error {
	dbi, err := s.db.handle()
	if err != nil {
		return err
	}
	return s.key.Bytes(key, func(kb []byte) error {
		return s.val.Bytes(value, func(vb []byte) error {
			return t.Put(dbi, kb, vb, flags)
		})
	})
}

// Delete removes key in its own transaction; an absent key is a hard error.
func (s Store[K, V]) Delete(key K) error {
	return s.db.Transact(0, func(t *Txn) error {
		return s.DeleteIn(t, key)
	})
}

// DeleteIn is Delete inside a caller-supplied transaction.
func (s Store[K, V]) DeleteIn(t *Txn, key K) error {
	dbi, err := s.db.handle()
	if err != nil {
		return err
	}
	return s.key.Bytes(key, func(kb []byte) error {
		return t.Delete(dbi, kb)
	})
}

// Has reports key presence without decoding any value.
func (s Store[K, V]) Has(key K) (bool, error) {
	return Transact(s.db, engine.TxnReadOnly, func(t *Txn) (bool, error) {
		return s.HasIn(t, key)
	})
}

// HasIn is Has inside a caller-supplied transaction.
func (s Store[K, V]) HasIn(t *Txn, key K) (bool, error) {
	dbi, err := s.db.handle()
	if err != nil {
		return false, err
	}

	var found bool
	err = s.key.Bytes(key, func(kb []byte) error {
		ok, err := t.Has(dbi, kb)
		found = ok
		return err
	})
	return found, err
}
