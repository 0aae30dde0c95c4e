// Package enginetest is a conformance suite for engine implementations.
// Every engine package runs it against a fresh environment factory, so the
// lifecycle and status-code contract stays identical across engines.
package enginetest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"burrow/engine"
)

// Factory opens a fresh environment. Cleanup is the test's responsibility
// via t.Cleanup inside the factory.
type Factory func(t *testing.T) engine.Env

// Run exercises the whole engine contract against the factory.
func Run(t *testing.T, open Factory) {
	t.Run("PutGetDel", func(t *testing.T) { testPutGetDel(t, open) })
	t.Run("EmptyKey", func(t *testing.T) { testEmptyKey(t, open) })
	t.Run("DeleteAbsent", func(t *testing.T) { testDeleteAbsent(t, open) })
	t.Run("PutFlags", func(t *testing.T) { testPutFlags(t, open) })
	t.Run("AppendMisuse", func(t *testing.T) { testAppendMisuse(t, open) })
	t.Run("CommitVisibility", func(t *testing.T) { testCommitVisibility(t, open) })
	t.Run("AbortDiscards", func(t *testing.T) { testAbortDiscards(t, open) })
	t.Run("EndedTxn", func(t *testing.T) { testEndedTxn(t, open) })
	t.Run("ReadOnly", func(t *testing.T) { testReadOnly(t, open) })
	t.Run("Nested", func(t *testing.T) { testNested(t, open) })
	t.Run("NamedDBI", func(t *testing.T) { testNamedDBI(t, open) })
	t.Run("EmptyAndDrop", func(t *testing.T) { testEmptyAndDrop(t, open) })
	t.Run("Stat", func(t *testing.T) { testStat(t, open) })
}

// write runs fn inside a committed write transaction.
func write(t *testing.T, env engine.Env, fn func(tx engine.Txn)) {
	t.Helper()
	tx, err := env.Begin(nil, 0)
	require.NoError(t, err)
	fn(tx)
	require.NoError(t, tx.Commit())
}

func defaultDBI(t *testing.T, tx engine.Txn) engine.DBI {
	t.Helper()
	dbi, err := tx.OpenDBI("", 0)
	require.NoError(t, err)
	return dbi
}

func testPutGetDel(t *testing.T, open Factory) {
	env := open(t)

	write(t, env, func(tx engine.Txn) {
		dbi := defaultDBI(t, tx)
		require.NoError(t, tx.Put(dbi, []byte("k"), []byte("v1"), 0))
		require.NoError(t, tx.Put(dbi, []byte("k"), []byte("v2"), 0))

		// uncommitted writes are visible to their own transaction
		v, err := tx.Get(dbi, []byte("k"))
		require.NoError(t, err)
		assert.Equal(t, []byte("v2"), v)

		require.NoError(t, tx.Del(dbi, []byte("k")))
		_, err = tx.Get(dbi, []byte("k"))
		assert.ErrorIs(t, err, engine.ErrNotFound)
	})
}

func testEmptyKey(t *testing.T, open Factory) {
	env := open(t)

	tx, err := env.Begin(nil, 0)
	require.NoError(t, err)
	defer tx.Abort()
	dbi := defaultDBI(t, tx)

	assert.ErrorIs(t, tx.Put(dbi, nil, []byte("v"), 0), engine.ErrBadValSize)
	assert.ErrorIs(t, tx.Del(dbi, []byte{}), engine.ErrBadValSize)
	_, err = tx.Get(dbi, nil)
	assert.ErrorIs(t, err, engine.ErrBadValSize)
}

func testDeleteAbsent(t *testing.T, open Factory) {
	env := open(t)

	write(t, env, func(tx engine.Txn) {
		dbi := defaultDBI(t, tx)
		assert.ErrorIs(t, tx.Del(dbi, []byte("ghost")), engine.ErrNotFound)
	})
}

func testPutFlags(t *testing.T, open Factory) {
	env := open(t)

	write(t, env, func(tx engine.Txn) {
		dbi := defaultDBI(t, tx)
		require.NoError(t, tx.Put(dbi, []byte("k"), []byte("v"), 0))

		assert.ErrorIs(t,
			tx.Put(dbi, []byte("k"), []byte("w"), engine.PutNoOverwrite),
			engine.ErrKeyExist)
		assert.ErrorIs(t,
			tx.Put(dbi, []byte("k"), []byte("v"), engine.PutNoDupData),
			engine.ErrKeyExist)

		// plain put still overwrites
		require.NoError(t, tx.Put(dbi, []byte("k"), []byte("w"), 0))
		v, err := tx.Get(dbi, []byte("k"))
		require.NoError(t, err)
		assert.Equal(t, []byte("w"), v)
	})
}

func testAppendMisuse(t *testing.T, open Factory) {
	env := open(t)

	write(t, env, func(tx engine.Txn) {
		dbi := defaultDBI(t, tx)
		require.NoError(t, tx.Put(dbi, []byte("a"), []byte("1"), engine.PutAppend))
		require.NoError(t, tx.Put(dbi, []byte("b"), []byte("2"), engine.PutAppend))
		assert.ErrorIs(t,
			tx.Put(dbi, []byte("b"), []byte("3"), engine.PutAppend),
			engine.ErrKeyExist)
	})
}

func testCommitVisibility(t *testing.T, open Factory) {
	env := open(t)

	write(t, env, func(tx engine.Txn) {
		require.NoError(t, tx.Put(defaultDBI(t, tx), []byte("k"), []byte("v"), 0))
	})

	ro, err := env.Begin(nil, engine.TxnReadOnly)
	require.NoError(t, err)
	v, err := ro.Get(defaultDBI(t, ro), []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), v)
	require.NoError(t, ro.Abort())
}

func testAbortDiscards(t *testing.T, open Factory) {
	env := open(t)

	tx, err := env.Begin(nil, 0)
	require.NoError(t, err)
	dbi := defaultDBI(t, tx)
	require.NoError(t, tx.Put(dbi, []byte("k"), []byte("v"), 0))
	require.NoError(t, tx.Abort())

	write(t, env, func(tx engine.Txn) {
		_, err := tx.Get(defaultDBI(t, tx), []byte("k"))
		assert.ErrorIs(t, err, engine.ErrNotFound)
	})
}

func testEndedTxn(t *testing.T, open Factory) {
	env := open(t)

	tx, err := env.Begin(nil, 0)
	require.NoError(t, err)
	dbi := defaultDBI(t, tx)
	require.NoError(t, tx.Commit())

	assert.ErrorIs(t, tx.Commit(), engine.ErrBadTxn)
	assert.ErrorIs(t, tx.Abort(), engine.ErrBadTxn)
	assert.ErrorIs(t, tx.Put(dbi, []byte("k"), []byte("v"), 0), engine.ErrBadTxn)
	_, err = tx.Get(dbi, []byte("k"))
	assert.ErrorIs(t, err, engine.ErrBadTxn)
	_, err = tx.Stat(dbi)
	assert.ErrorIs(t, err, engine.ErrBadTxn)
}

func testReadOnly(t *testing.T, open Factory) {
	env := open(t)

	ro, err := env.Begin(nil, engine.TxnReadOnly)
	require.NoError(t, err)
	dbi := defaultDBI(t, ro)

	assert.ErrorIs(t, ro.Put(dbi, []byte("k"), []byte("v"), 0), engine.ErrInvalid)
	assert.ErrorIs(t, ro.Del(dbi, []byte("k")), engine.ErrInvalid)
	assert.ErrorIs(t, ro.Empty(dbi), engine.ErrInvalid)

	// read-only transactions do not nest
	_, err = env.Begin(ro, 0)
	assert.Error(t, err)

	require.NoError(t, ro.Commit())
}

func testNested(t *testing.T, open Factory) {
	env := open(t)

	// committed child, committed parent: writes land
	parent, err := env.Begin(nil, 0)
	require.NoError(t, err)
	dbi := defaultDBI(t, parent)
	require.NoError(t, parent.Put(dbi, []byte("p"), []byte("1"), 0))

	child, err := env.Begin(parent, 0)
	require.NoError(t, err)

	// one open child per parent, parent unusable meanwhile
	_, err = env.Begin(parent, 0)
	assert.ErrorIs(t, err, engine.ErrBadTxn)
	assert.ErrorIs(t, parent.Put(dbi, []byte("x"), []byte("x"), 0), engine.ErrBadTxn)

	require.NoError(t, child.Put(dbi, []byte("c"), []byte("2"), 0))
	require.NoError(t, child.Commit())

	// child writes visible to the parent after child commit
	v, err := parent.Get(dbi, []byte("c"))
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), v)

	// aborted child leaves no trace
	child, err = env.Begin(parent, 0)
	require.NoError(t, err)
	require.NoError(t, child.Put(dbi, []byte("gone"), []byte("3"), 0))
	require.NoError(t, child.Abort())

	_, err = parent.Get(dbi, []byte("gone"))
	assert.ErrorIs(t, err, engine.ErrNotFound)
	require.NoError(t, parent.Commit())

	write(t, env, func(tx engine.Txn) {
		dbi := defaultDBI(t, tx)
		for _, k := range []string{"p", "c"} {
			_, err := tx.Get(dbi, []byte(k))
			assert.NoError(t, err, "key %q should have survived", k)
		}
		_, err := tx.Get(dbi, []byte("gone"))
		assert.ErrorIs(t, err, engine.ErrNotFound)
	})
}

func testNamedDBI(t *testing.T, open Factory) {
	env := open(t)

	// opening a missing store without Create is NotFound
	tx, err := env.Begin(nil, 0)
	require.NoError(t, err)
	_, err = tx.OpenDBI("missing", 0)
	assert.ErrorIs(t, err, engine.ErrNotFound)

	dbi, err := tx.OpenDBI("people", engine.DBCreate)
	require.NoError(t, err)
	require.NoError(t, tx.Put(dbi, []byte("k"), []byte("v"), 0))
	require.NoError(t, tx.Commit())

	// reopening resolves the same store
	write(t, env, func(tx engine.Txn) {
		dbi, err := tx.OpenDBI("people", 0)
		require.NoError(t, err)
		v, err := tx.Get(dbi, []byte("k"))
		require.NoError(t, err)
		assert.Equal(t, []byte("v"), v)
	})
}

func testEmptyAndDrop(t *testing.T, open Factory) {
	env := open(t)

	var dbi engine.DBI
	write(t, env, func(tx engine.Txn) {
		var err error
		dbi, err = tx.OpenDBI("scratch", engine.DBCreate)
		require.NoError(t, err)
		require.NoError(t, tx.Put(dbi, []byte("a"), []byte("1"), 0))
		require.NoError(t, tx.Put(dbi, []byte("b"), []byte("2"), 0))
	})

	// Empty clears but the store stays usable
	write(t, env, func(tx engine.Txn) {
		require.NoError(t, tx.Empty(dbi))
	})
	write(t, env, func(tx engine.Txn) {
		st, err := tx.Stat(dbi)
		require.NoError(t, err)
		assert.Zero(t, st.Entries)
		require.NoError(t, tx.Put(dbi, []byte("c"), []byte("3"), 0))
	})

	// Drop removes the store itself
	write(t, env, func(tx engine.Txn) {
		require.NoError(t, tx.Drop(dbi))
	})
	tx, err := env.Begin(nil, 0)
	require.NoError(t, err)
	defer tx.Abort()
	_, err = tx.Get(dbi, []byte("c"))
	assert.ErrorIs(t, err, engine.ErrBadDBI)
	_, err = tx.OpenDBI("scratch", 0)
	assert.ErrorIs(t, err, engine.ErrNotFound)
}

func testStat(t *testing.T, open Factory) {
	env := open(t)

	write(t, env, func(tx engine.Txn) {
		dbi := defaultDBI(t, tx)
		for _, k := range []string{"a", "b", "c"} {
			require.NoError(t, tx.Put(dbi, []byte(k), []byte(k), 0))
		}
		require.NoError(t, tx.Del(dbi, []byte("b")))

		st, err := tx.Stat(dbi)
		require.NoError(t, err)
		assert.Equal(t, uint64(2), st.Entries)
	})

	write(t, env, func(tx engine.Txn) {
		st, err := tx.Stat(defaultDBI(t, tx))
		require.NoError(t, err)
		assert.Equal(t, uint64(2), st.Entries)
	})
}
