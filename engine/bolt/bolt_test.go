package boltengine

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"burrow/engine"
	"burrow/engine/enginetest"
)

func openTest(t *testing.T, cfg engine.Config) *Env {
	t.Helper()
	if cfg.Path == "" {
		cfg.Path = filepath.Join(t.TempDir(), "burrow.db")
	}
	env, err := Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = env.Close() })
	return env
}

func TestConformance(t *testing.T) {
	configs := map[string]engine.Config{
		"plain":    {},
		"checksum": {Checksums: true},
		"snappy":   {Compression: "snappy"},
		"full":     {Checksums: true, Compression: "snappy"},
	}
	for name, cfg := range configs {
		cfg := cfg
		t.Run(name, func(t *testing.T) {
			enginetest.Run(t, func(t *testing.T) engine.Env {
				return openTest(t, cfg)
			})
		})
	}
}

func TestDurability(t *testing.T) {
	path := filepath.Join(t.TempDir(), "burrow.db")

	env, err := Open(engine.Config{Path: path, Checksums: true})
	require.NoError(t, err)

	tx, err := env.Begin(nil, 0)
	require.NoError(t, err)
	def, err := tx.OpenDBI("", 0)
	require.NoError(t, err)
	require.NoError(t, tx.Put(def, []byte("k"), []byte("v"), 0))
	named, err := tx.OpenDBI("people", engine.DBCreate)
	require.NoError(t, err)
	require.NoError(t, tx.Put(named, []byte("ann"), []byte("42"), 0))
	require.NoError(t, tx.Commit())
	require.NoError(t, env.Close())

	// a fresh environment sees the committed state, named stores included
	env, err = Open(engine.Config{Path: path, Checksums: true})
	require.NoError(t, err)
	defer env.Close()

	tx, err = env.Begin(nil, engine.TxnReadOnly)
	require.NoError(t, err)
	defer tx.Abort()

	def, err = tx.OpenDBI("", 0)
	require.NoError(t, err)
	v, err := tx.Get(def, []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), v)

	named, err = tx.OpenDBI("people", 0)
	require.NoError(t, err)
	v, err = tx.Get(named, []byte("ann"))
	require.NoError(t, err)
	assert.Equal(t, []byte("42"), v)
}

func TestReadersFull(t *testing.T) {
	env := openTest(t, engine.Config{MaxReaders: 1})

	r1, err := env.Begin(nil, engine.TxnReadOnly)
	require.NoError(t, err)
	_, err = env.Begin(nil, engine.TxnReadOnly)
	assert.ErrorIs(t, err, engine.ErrReadersFull)
	require.NoError(t, r1.Abort())
}

func TestOpenWithoutPath(t *testing.T) {
	_, err := Open(engine.Config{})
	assert.ErrorIs(t, err, engine.ErrInvalid)
}

func TestValueFraming(t *testing.T) {
	payload := []byte("the quick brown fox jumps over the lazy dog")

	codecs := []valueCodec{
		{},
		{checksums: true},
		{snappy: true},
		{checksums: true, snappy: true},
	}
	for _, c := range codecs {
		got, err := c.decode(c.encode(payload))
		require.NoError(t, err)
		assert.Equal(t, payload, got)
	}
}

func TestValueFramingDetectsCorruption(t *testing.T) {
	c := valueCodec{checksums: true}
	enc := c.encode([]byte("precious"))

	// flip one payload byte
	enc[len(enc)-1] ^= 0xFF
	_, err := c.decode(enc)
	assert.ErrorIs(t, err, engine.ErrCorrupted)

	// truncated frames are corruption too, not a panic
	_, err = c.decode(enc[:3])
	assert.ErrorIs(t, err, engine.ErrCorrupted)
	_, err = c.decode([]byte{})
	assert.ErrorIs(t, err, engine.ErrCorrupted)

	// unknown frame bits
	_, err = c.decode([]byte{0xF0, 1, 2})
	assert.ErrorIs(t, err, engine.ErrCorrupted)
}
