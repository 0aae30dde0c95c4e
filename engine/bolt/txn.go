package boltengine

import (
	"bytes"
	"errors"
	"fmt"

	bolt "go.etcd.io/bbolt"

	"burrow/engine"
	"burrow/internal/overlay"
)

var _ engine.Txn = (*txn)(nil)

type txn struct {
	env      *Env
	parent   *txn
	child    *txn
	readonly bool
	done     bool
	view     *bolt.Tx // snapshot for reads; nil on children, who use the root's
	overlays map[engine.DBI]*overlay.Overlay
}

func newWriteTxn(e *Env, parent *txn, view *bolt.Tx) *txn {
	return &txn{env: e, parent: parent, view: view, overlays: make(map[engine.DBI]*overlay.Overlay)}
}

func (t *txn) begin(flags engine.TxnFlag) (engine.Txn, error) {
	if t.done || t.child != nil {
		return nil, engine.ErrBadTxn
	}
	if t.readonly || flags&engine.TxnReadOnly != 0 {
		return nil, engine.ErrInvalid
	}
	c := newWriteTxn(t.env, t, nil)
	t.child = c
	return c, nil
}

func (t *txn) usable(write bool) error {
	if t.done || t.child != nil {
		return engine.ErrBadTxn
	}
	if write && t.readonly {
		return engine.ErrInvalid
	}
	return nil
}

func (t *txn) overlay(dbi engine.DBI) *overlay.Overlay {
	ov := t.overlays[dbi]
	if ov == nil {
		ov = overlay.New()
		t.overlays[dbi] = ov
	}
	return ov
}

// droppedInChain reports a drop staged anywhere up the transaction chain.
func (t *txn) droppedInChain(dbi engine.DBI) bool {
	for x := t; x != nil; x = x.parent {
		if ov := x.overlays[dbi]; ov != nil && ov.Dropped {
			return true
		}
	}
	return false
}

// snapshot returns the chain's bolt view.
func (t *txn) snapshot() *bolt.Tx {
	r := t
	for r.parent != nil {
		r = r.parent
	}
	return r.view
}

func (t *txn) OpenDBI(name string, flags engine.DBFlag) (engine.DBI, error) {
	if err := t.usable(false); err != nil {
		return 0, err
	}

	e := t.env
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return 0, engine.ErrClosed
	}

	if dbi, ok := e.names[name]; ok {
		h := e.dbis[dbi]
		if !h.dropped {
			h.closed = false
			h.flags |= flags &^ engine.DBCreate
			return dbi, nil
		}
	}
	if flags&engine.DBCreate == 0 {
		return 0, engine.ErrNotFound
	}
	if t.readonly {
		return 0, engine.ErrInvalid
	}

	dbi := engine.DBI(len(e.dbis))
	e.dbis = append(e.dbis, &handle{name: name, flags: flags})
	e.names[name] = dbi
	return dbi, nil
}

func (t *txn) Get(dbi engine.DBI, key []byte) ([]byte, error) {
	if err := t.usable(false); err != nil {
		return nil, err
	}
	if len(key) == 0 {
		return nil, engine.ErrBadValSize
	}
	h, err := t.env.hdl(dbi)
	if err != nil {
		return nil, err
	}

	k := string(key)
	for x := t; x != nil; x = x.parent {
		ov := x.overlays[dbi]
		if ov == nil {
			continue
		}
		if ov.Dropped {
			return nil, engine.ErrBadDBI
		}
		switch v, verdict := ov.Get(k); verdict {
		case overlay.Hit:
			return v, nil
		case overlay.Gone:
			return nil, engine.ErrNotFound
		}
	}

	b := t.snapshot().Bucket(bucketName(h.name))
	if b == nil {
		return nil, engine.ErrNotFound
	}
	raw := b.Get(key)
	if raw == nil {
		return nil, engine.ErrNotFound
	}
	return t.env.codec.decode(raw)
}

func (t *txn) Put(dbi engine.DBI, key, val []byte, flags engine.PutFlag) error {
	if err := t.usable(true); err != nil {
		return err
	}
	if len(key) == 0 {
		return engine.ErrBadValSize
	}
	if _, err := t.env.hdl(dbi); err != nil {
		return err
	}

	if flags&(engine.PutNoOverwrite|engine.PutNoDupData) != 0 {
		cur, err := t.Get(dbi, key)
		switch {
		case err == nil:
			if flags&engine.PutNoOverwrite != 0 {
				return engine.ErrKeyExist
			}
			if bytes.Equal(cur, val) {
				return engine.ErrKeyExist
			}
		case !errors.Is(err, engine.ErrNotFound):
			return err
		}
	}

	if t.droppedInChain(dbi) {
		return engine.ErrBadDBI
	}
	k := string(key)
	ov := t.overlay(dbi)

	if flags&(engine.PutAppend|engine.PutAppendDup) != 0 {
		if ov.LastAppend != "" && k <= ov.LastAppend {
			return engine.ErrKeyExist
		}
		ov.LastAppend = k
	}

	v := make([]byte, len(val))
	if flags&engine.PutReserve == 0 {
		copy(v, val)
	}
	ov.Put(k, v)
	return nil
}

func (t *txn) Del(dbi engine.DBI, key []byte) error {
	if err := t.usable(true); err != nil {
		return err
	}
	if len(key) == 0 {
		return engine.ErrBadValSize
	}

	if _, err := t.Get(dbi, key); err != nil {
		return err
	}

	t.overlay(dbi).Del(string(key))
	return nil
}

func (t *txn) Empty(dbi engine.DBI) error {
	if err := t.usable(true); err != nil {
		return err
	}
	if _, err := t.env.hdl(dbi); err != nil {
		return err
	}

	if t.droppedInChain(dbi) {
		return engine.ErrBadDBI
	}
	t.overlay(dbi).Clear()
	return nil
}

func (t *txn) Drop(dbi engine.DBI) error {
	if err := t.Empty(dbi); err != nil {
		return err
	}
	t.overlays[dbi].Dropped = true
	return nil
}

func (t *txn) Stat(dbi engine.DBI) (engine.Stat, error) {
	if err := t.usable(false); err != nil {
		return engine.Stat{}, err
	}
	h, err := t.env.hdl(dbi)
	if err != nil {
		return engine.Stat{}, err
	}

	var chain []*txn
	for x := t; x != nil; x = x.parent {
		chain = append(chain, x)
	}

	live := make(map[string]struct{})
	if b := t.snapshot().Bucket(bucketName(h.name)); b != nil {
		_ = b.ForEach(func(k, _ []byte) error {
			live[string(k)] = struct{}{}
			return nil
		})
	}
	for i := len(chain) - 1; i >= 0; i-- {
		ov := chain[i].overlays[dbi]
		if ov == nil {
			continue
		}
		if ov.Dropped {
			return engine.Stat{}, engine.ErrBadDBI
		}
		ov.Apply(
			func() { live = make(map[string]struct{}) },
			func(k string) { delete(live, k) },
			func(k string, _ []byte) { live[k] = struct{}{} },
		)
	}
	return engine.Stat{Entries: uint64(len(live))}, nil
}

func (t *txn) Commit() error {
	if t.done || t.child != nil {
		return engine.ErrBadTxn
	}
	t.done = true

	if t.readonly {
		t.release()
		return nil
	}

	if t.parent != nil {
		for dbi, ov := range t.overlays {
			t.parent.overlay(dbi).Merge(ov)
		}
		t.parent.child = nil
		return nil
	}

	// release the snapshot before the update: a growing update remaps
	// the file and waits on open readers, ours included
	_ = t.view.Rollback()
	err := t.apply()
	t.env.writer.Unlock()
	return err
}

// apply replays the overlays inside one bbolt update.
func (t *txn) apply() error {
	e := t.env
	if e.isClosed() {
		return engine.ErrClosed
	}

	var droppedNames []string
	err := e.db.Update(func(btx *bolt.Tx) error {
		for dbi, ov := range t.overlays {
			e.mu.Lock()
			h := e.dbis[dbi]
			e.mu.Unlock()
			name := bucketName(h.name)

			if ov.Emptied || ov.Dropped {
				if err := btx.DeleteBucket(name); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
					return err
				}
			}
			if ov.Dropped {
				droppedNames = append(droppedNames, h.name)
				continue
			}

			b, err := btx.CreateBucketIfNotExists(name)
			if err != nil {
				return err
			}
			var applyErr error
			ov.Apply(
				func() {},
				func(k string) {
					if err := b.Delete([]byte(k)); err != nil && applyErr == nil {
						applyErr = err
					}
				},
				func(k string, v []byte) {
					if err := b.Put([]byte(k), e.codec.encode(v)); err != nil && applyErr == nil {
						applyErr = err
					}
				},
			)
			if applyErr != nil {
				return applyErr
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("applying transaction: %w", err)
	}

	e.mu.Lock()
	for _, name := range droppedNames {
		if dbi, ok := e.names[name]; ok {
			e.dbis[dbi].dropped = true
			delete(e.names, name)
		}
	}
	e.mu.Unlock()

	e.log.Debug("commit applied", "sub_stores", len(t.overlays))
	return nil
}

func (t *txn) Abort() error {
	if t.done {
		return engine.ErrBadTxn
	}
	if t.child != nil {
		_ = t.child.Abort()
	}
	t.done = true

	switch {
	case t.readonly:
		t.release()
	case t.parent != nil:
		t.parent.child = nil
	default:
		_ = t.view.Rollback()
		t.env.writer.Unlock()
	}
	return nil
}

func (t *txn) release() {
	_ = t.view.Rollback()
	<-t.env.readers
}
