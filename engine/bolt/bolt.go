// Package boltengine implements the engine contract on top of bbolt, for
// environments that need the data on disk. Sub-stores are buckets; writes
// go through the same overlay-chain transaction model as the memory engine
// and are replayed into a single bbolt update on commit of the top-level
// transaction, which is how nested transactions work over a store that has
// none of its own.
package boltengine

import (
	"fmt"
	"sync"

	"log/slog"

	bolt "go.etcd.io/bbolt"

	"burrow/engine"
)

// the unnamed default sub-store lives in a reserved bucket
const defaultBucket = "\x00default"

var _ engine.Env = (*Env)(nil)

type Env struct {
	db    *bolt.DB
	cfg   engine.Config
	log   *slog.Logger
	codec valueCodec

	writer  sync.Mutex
	readers chan struct{}

	mu     sync.Mutex // guards the fields below
	dbis   []*handle
	names  map[string]engine.DBI
	closed bool
}

type handle struct {
	name    string
	flags   engine.DBFlag
	closed  bool
	dropped bool
}

// Open opens (creating if needed) the database file at cfg.Path.
func Open(cfg engine.Config) (*Env, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.WithDefaults()
	if cfg.Path == "" {
		return nil, fmt.Errorf("bolt engine: %w: empty path", engine.ErrInvalid)
	}

	db, err := bolt.Open(cfg.Path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", cfg.Path, err)
	}

	e := &Env{
		db:      db,
		cfg:     cfg,
		log:     cfg.Logger,
		codec:   valueCodec{checksums: cfg.Checksums, snappy: cfg.Compression == "snappy"},
		readers: make(chan struct{}, cfg.MaxReaders),
		names:   map[string]engine.DBI{"": 0},
		dbis:    []*handle{{name: ""}},
	}

	// make sure the default bucket exists and pick up named sub-stores
	// left by an earlier run
	err = db.Update(func(btx *bolt.Tx) error {
		if _, err := btx.CreateBucketIfNotExists([]byte(defaultBucket)); err != nil {
			return err
		}
		return btx.ForEach(func(name []byte, _ *bolt.Bucket) error {
			if string(name) == defaultBucket {
				return nil
			}
			e.names[string(name)] = engine.DBI(len(e.dbis))
			e.dbis = append(e.dbis, &handle{name: string(name)})
			return nil
		})
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("preparing %s: %w", cfg.Path, err)
	}

	e.log.Debug("bolt env open",
		"path", cfg.Path, "sub_stores", len(e.dbis),
		"checksums", cfg.Checksums, "compression", cfg.Compression)
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
		view, err := e.db.Begin(false)
		if err != nil {
			<-e.readers
			return nil, fmt.Errorf("beginning snapshot: %w", err)
		}
		return &txn{env: e, readonly: true, view: view}, nil
	}

	e.writer.Lock()
	view, err := e.db.Begin(false)
	if err != nil {
		e.writer.Unlock()
		return nil, fmt.Errorf("beginning snapshot: %w", err)
	}
	return newWriteTxn(e, nil, view), nil
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
	if e.closed {
		e.mu.Unlock()
		return engine.ErrClosed
	}
	e.closed = true
	e.mu.Unlock()

	e.log.Debug("bolt env closed", "path", e.cfg.Path)
	return e.db.Close()
}

func (e *Env) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// hdl resolves a live sub-store handle.
func (e *Env) hdl(dbi engine.DBI) (*handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, engine.ErrClosed
	}
	if int(dbi) >= len(e.dbis) {
		return nil, engine.ErrBadDBI
	}
	h := e.dbis[dbi]
	if h == nil || h.closed || h.dropped {
		return nil, engine.ErrBadDBI
	}
	return h, nil
}

func bucketName(name string) []byte {
	if name == "" {
		return []byte(defaultBucket)
	}
	return []byte(name)
}
