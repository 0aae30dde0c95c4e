package memory

import (
	"bytes"
	"errors"

	"burrow/engine"
	"burrow/internal/kv"
	"burrow/internal/overlay"
)

var _ engine.Txn = (*txn)(nil)

type txn struct {
	env      *Env
	parent   *txn
	child    *txn
	readonly bool
	done     bool
	pending  int64 // staged bytes, counted against MapSize
	overlays map[engine.DBI]*overlay.Overlay
}

func newWriteTxn(e *Env, parent *txn) *txn {
	return &txn{env: e, parent: parent, overlays: make(map[engine.DBI]*overlay.Overlay)}
}

func (t *txn) begin(flags engine.TxnFlag) (engine.Txn, error) {
	if t.done || t.child != nil {
		return nil, engine.ErrBadTxn
	}
	// only write transactions nest
	if t.readonly || flags&engine.TxnReadOnly != 0 {
		return nil, engine.ErrInvalid
	}
	c := newWriteTxn(t.env, t)
	t.child = c
	return c, nil
}

// usable rejects ended transactions and parents with an open child.
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
		s := e.dbis[dbi]
		s.closed = false
		s.flags |= flags &^ engine.DBCreate
		return dbi, nil
	}
	if flags&engine.DBCreate == 0 {
		return 0, engine.ErrNotFound
	}
	if t.readonly {
		return 0, engine.ErrInvalid
	}

	dbi := engine.DBI(len(e.dbis))
	e.dbis = append(e.dbis, &subStore{name: name, flags: flags, data: kv.New(e.cfg.Backend)})
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
	s, err := t.env.sub(dbi)
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

	v, ok := s.data.Get(k)
	if !ok {
		return nil, engine.ErrNotFound
	}
	return v, nil
}

func (t *txn) Put(dbi engine.DBI, key, val []byte, flags engine.PutFlag) error {
	if err := t.usable(true); err != nil {
		return err
	}
	if len(key) == 0 {
		return engine.ErrBadValSize
	}
	if _, err := t.env.sub(dbi); err != nil {
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
		// best-effort misuse detection within this transaction
		if ov.LastAppend != "" && k <= ov.LastAppend {
			return engine.ErrKeyExist
		}
		ov.LastAppend = k
	}

	v := make([]byte, len(val))
	if flags&engine.PutReserve == 0 {
		copy(v, val)
	}

	delta := int64(len(k) + len(v))
	staged := delta
	for x := t; x != nil; x = x.parent {
		staged += x.pending
	}
	if t.env.mapUsed()+staged > t.env.cfg.MapSize {
		return engine.ErrMapFull
	}
	t.pending += delta

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

	// the key must be visible to this transaction
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
	if _, err := t.env.sub(dbi); err != nil {
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
	s, err := t.env.sub(dbi)
	if err != nil {
		return engine.Stat{}, err
	}

	var chain []*txn
	for x := t; x != nil; x = x.parent {
		chain = append(chain, x)
	}

	live := make(map[string]struct{})
	s.data.Range("", func(k string, _ []byte) bool {
		live[k] = struct{}{}
		return true
	})
	// oldest overlay first
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
		t.parent.pending += t.pending
		t.parent.child = nil
		return nil
	}

	e := t.env
	if e.isClosed() {
		e.writer.Unlock()
		return engine.ErrClosed
	}
	e.snap.Lock()
	for dbi, ov := range t.overlays {
		e.apply(dbi, ov)
	}
	e.snap.Unlock()
	e.writer.Unlock()
	e.log.Debug("commit applied", "sub_stores", len(t.overlays), "bytes", t.pending)
	return nil
}

func (t *txn) Abort() error {
	if t.done {
		return engine.ErrBadTxn
	}
	// an open child dies with its parent
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
		t.env.writer.Unlock()
	}
	return nil
}

func (t *txn) release() {
	t.env.snap.RUnlock()
	<-t.env.readers
}

func (e *Env) mapUsed() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.used
}
