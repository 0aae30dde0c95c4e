// Package memory implements the engine contract in process memory. It is
// the reference engine: committed state lives in an ordered kv.Store per
// sub-store, write transactions stage their changes in overlays and apply
// them on commit of the top-level transaction.
//
// Locking model: one writer at a time (env.writer, held from Begin to the
// end of the top-level write txn), readers share env.snap for their whole
// lifetime and the commit apply takes it exclusively, so every reader sees
// a consistent snapshot.
package memory

import (
	"sync"

	"log/slog"

	"burrow/engine"
	"burrow/internal/kv"
	"burrow/internal/overlay"
)

var _ engine.Env = (*Env)(nil)

type Env struct {
	cfg engine.Config
	log *slog.Logger

	writer  sync.Mutex
	snap    sync.RWMutex
	readers chan struct{}

	mu     sync.Mutex // guards the fields below
	dbis   []*subStore
	names  map[string]engine.DBI
	used   int64
	closed bool
}

type subStore struct {
	name   string
	flags  engine.DBFlag
	data   kv.Store
	size   int64
	closed bool
}

// Open creates an environment. The unnamed default sub-store exists from
// the start.
func Open(cfg engine.Config) (*Env, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.WithDefaults()

	e := &Env{
		cfg:     cfg,
		log:     cfg.Logger,
		readers: make(chan struct{}, cfg.MaxReaders),
		names:   map[string]engine.DBI{"": 0},
		dbis:    []*subStore{{data: kv.New(cfg.Backend)}},
	}
	e.log.Debug("memory env open",
		"backend", cfg.Backend, "map_size", cfg.MapSize, "max_readers", cfg.MaxReaders)
	return e, nil
}

func (e *Env) Begin(parent engine.Txn, flags engine.TxnFlag) (engine.Txn, error) {
	if e.isClosed() {
		return nil, engine.ErrClosed
	}

	if parent != nil {
		p, ok := parent.(*txn)
		if !ok || p.env != e {
			return nil, engine.ErrInvalid
		}
		return p.begin(flags)
	}

	if flags&engine.TxnReadOnly != 0 {
		select {
		case e.readers <- struct{}{}:
		default:
			return nil, engine.ErrReadersFull
		}
		e.snap.RLock()
		return &txn{env: e, readonly: true}, nil
	}

	e.writer.Lock()
	return newWriteTxn(e, nil), nil
}

func (e *Env) CloseDBI(dbi engine.DBI) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if int(dbi) < len(e.dbis) && e.dbis[dbi] != nil {
		e.dbis[dbi].closed = true
	}
}

func (e *Env) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return engine.ErrClosed
	}
	e.closed = true
	e.log.Debug("memory env closed", "sub_stores", len(e.dbis), "used", e.used)
	return nil
}

func (e *Env) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// sub resolves a handle to a live sub-store.
func (e *Env) sub(dbi engine.DBI) (*subStore, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, engine.ErrClosed
	}
	if int(dbi) >= len(e.dbis) {
		return nil, engine.ErrBadDBI
	}
	s := e.dbis[dbi]
	if s == nil || s.closed {
		return nil, engine.ErrBadDBI
	}
	return s, nil
}

// apply folds one overlay into committed state. Caller holds e.snap
// exclusively.
func (e *Env) apply(dbi engine.DBI, ov *overlay.Overlay) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.dbis[dbi]
	ov.Apply(
		func() {
			e.used -= s.size
			s.size = 0
			s.data.Clear()
		},
		func(k string) {
			if old, ok := s.data.Get(k); ok {
				delta := int64(len(k) + len(old))
				s.size -= delta
				e.used -= delta
				s.data.Del(k)
			}
		},
		func(k string, v []byte) {
			if old, ok := s.data.Get(k); ok {
				delta := int64(len(k) + len(old))
				s.size -= delta
				e.used -= delta
			}
			s.data.Set(k, v)
			delta := int64(len(k) + len(v))
			s.size += delta
			e.used += delta
		},
	)
	if ov.Dropped {
		e.dbis[dbi] = nil
		delete(e.names, s.name)
	}
}
