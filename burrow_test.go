package burrow

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"burrow/codec"
	"burrow/engine"
	boltengine "burrow/engine/bolt"
	"burrow/engine/memory"
)

func arrange(t *testing.T) (*Database, engine.Env) {
	t.Helper()

	env, err := memory.Open(engine.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = env.Close() })

	db, err := OpenDatabase(env, "products", engine.DBCreate)
	require.NoError(t, err)
	return db, env
}

func TestPutGetRoundtrip(t *testing.T) {
	db, _ := arrange(t)
	prices := NewStore(db, codec.String(), codec.Fixed[int64]())

	require.NoError(t, prices.Put("чайник", 1000, 0))

	got, err := prices.Get("чайник")
	require.NoError(t, err)
	assert.Equal(t, int64(1000), got.MustGet())

	absent, err := prices.Get("сковорода")
	require.NoError(t, err)
	assert.True(t, absent.IsAbsent())
}

func TestTransactAbortRollsBack(t *testing.T) {
	db, _ := arrange(t)
	prices := NewStore(db, codec.String(), codec.Fixed[int64]())

	damn := errors.New("damn")
	err := db.Transact(0, func(t *Txn) error {
		if err := prices.PutIn(t, "a", 1, 0); err != nil {
			return err
		}
		return damn
	})
	assert.ErrorIs(t, err, damn)

	got, err := prices.Get("a")
	require.NoError(t, err)
	assert.True(t, got.IsAbsent())
}

func TestTransactPanicRollsBack(t *testing.T) {
	db, _ := arrange(t)

	assert.Panics(t, func() {
		_ = db.Transact(0, func(t *Txn) error {
			if err := t.Put(db.DBI(), []byte("a"), []byte("1"), 0); err != nil {
				return err
			}
			panic("deep failure")
		})
	})

	got, err := db.Get([]byte("a"))
	require.NoError(t, err)
	assert.True(t, got.IsAbsent())
}

func TestCommitTwice(t *testing.T) {
	db, _ := arrange(t)

	txn, err := db.Begin(0)
	require.NoError(t, err)

	require.NoError(t, txn.Commit())
	assert.ErrorIs(t, txn.Commit(), engine.ErrBadTxn)
	assert.ErrorIs(t, txn.Abort(), engine.ErrBadTxn)

	// a consumed handle refuses data operations too
	_, err = txn.Get(db.DBI(), []byte("k"))
	assert.ErrorIs(t, err, engine.ErrBadTxn)
}

func TestDeleteAbsentAsymmetry(t *testing.T) {
	db, _ := arrange(t)
	key := []byte("ghost")

	// same key, both at once: delete is a hard error, get a soft None
	err := db.Delete(key)
	assert.ErrorIs(t, err, engine.ErrNotFound)

	got, err := db.Get(key)
	require.NoError(t, err)
	assert.True(t, got.IsAbsent())
}

func TestEmptyKeepsDatabaseUsable(t *testing.T) {
	db, _ := arrange(t)

	require.NoError(t, db.Put([]byte("a"), []byte("1"), 0))
	require.NoError(t, db.Put([]byte("b"), []byte("2"), 0))
	require.NoError(t, db.Empty())

	n, err := db.Count()
	require.NoError(t, err)
	assert.Zero(t, n)

	// still usable afterwards
	require.NoError(t, db.Put([]byte("c"), []byte("3"), 0))
	got, err := db.Get([]byte("c"))
	require.NoError(t, err)
	assert.Equal(t, []byte("3"), got.MustGet())
}

func TestDropInvalidatesHandle(t *testing.T) {
	db, _ := arrange(t)

	require.NoError(t, db.Put([]byte("a"), []byte("1"), 0))
	require.NoError(t, db.Drop())

	assert.Error(t, db.Put([]byte("b"), []byte("2"), 0))
	_, err := db.Get([]byte("a"))
	assert.Error(t, err)
	assert.Error(t, db.Empty())
}

func TestNestedTransactions(t *testing.T) {
	db, env := arrange(t)

	parent, err := db.Begin(0)
	require.NoError(t, err)
	require.NoError(t, parent.Put(db.DBI(), []byte("p"), []byte("1"), 0))

	// committed child: writes survive the parent's commit
	child, err := Begin(env, parent, 0)
	require.NoError(t, err)
	require.NoError(t, child.Put(db.DBI(), []byte("c"), []byte("2"), 0))
	require.NoError(t, child.Commit())

	// aborted child: writes vanish even though the parent commits
	child, err = Begin(env, parent, 0)
	require.NoError(t, err)
	require.NoError(t, child.Put(db.DBI(), []byte("gone"), []byte("3"), 0))
	require.NoError(t, child.Abort())

	require.NoError(t, parent.Commit())

	for _, k := range []string{"p", "c"} {
		got, err := db.Get([]byte(k))
		require.NoError(t, err)
		assert.True(t, got.IsPresent(), "key %q", k)
	}
	got, err := db.Get([]byte("gone"))
	require.NoError(t, err)
	assert.True(t, got.IsAbsent())
}

func TestPutNoOverwrite(t *testing.T) {
	db, _ := arrange(t)

	require.NoError(t, db.Put([]byte("k"), []byte("old"), 0))
	err := db.Put([]byte("k"), []byte("new"), engine.PutNoOverwrite)
	assert.ErrorIs(t, err, engine.ErrKeyExist)

	// without the flag the put replaces
	require.NoError(t, db.Put([]byte("k"), []byte("new"), 0))
	got, err := db.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), got.MustGet())
}

func TestDecodeMismatchIsNone(t *testing.T) {
	db, _ := arrange(t)

	texts := NewStore(db, codec.String(), codec.String())
	numbers := NewStore(db, codec.String(), codec.Fixed[int64]())

	require.NoError(t, texts.Put("k", "abc", 0))

	// present but not an int64: None, same as absent
	got, err := numbers.Get("k")
	require.NoError(t, err)
	assert.True(t, got.IsAbsent())

	// the raw form tells the two cases apart
	raw, err := db.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), raw.MustGet())
}

func TestHas(t *testing.T) {
	db, _ := arrange(t)
	users := NewStore(db, codec.Fixed[uint32](), codec.Bson[struct{ Name string }]())

	require.NoError(t, users.Put(7, struct{ Name string }{"ann"}, 0))

	ok, err := users.Has(7)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = users.Has(8)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMultiOpAtomicSequence(t *testing.T) {
	db, _ := arrange(t)
	prices := NewStore(db, codec.String(), codec.Fixed[int64]())

	require.NoError(t, prices.Put("pan", 5000, 0))
	require.NoError(t, prices.Put("kettle", 1000, 0))

	// several operations, one transaction
	err := db.Transact(0, func(t *Txn) error {
		if err := prices.PutIn(t, "pan", 4999, 0); err != nil {
			return err
		}
		return prices.DeleteIn(t, "kettle")
	})
	require.NoError(t, err)

	pan, err := prices.Get("pan")
	require.NoError(t, err)
	assert.Equal(t, int64(4999), pan.MustGet())

	kettle, err := prices.Get("kettle")
	require.NoError(t, err)
	assert.True(t, kettle.IsAbsent())
}

func TestTransactValue(t *testing.T) {
	db, _ := arrange(t)
	require.NoError(t, db.Put([]byte("k"), []byte("v"), 0))

	n, err := Transact(db, engine.TxnReadOnly, func(t *Txn) (int, error) {
		got, err := t.Get(db.DBI(), []byte("k"))
		if err != nil {
			return 0, err
		}
		return len(got.MustGet()), nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestOpenMissingWithoutCreate(t *testing.T) {
	_, env := arrange(t)

	_, err := OpenDatabase(env, "missing", 0)
	assert.ErrorIs(t, err, engine.ErrNotFound)
}

func TestDefaultDatabase(t *testing.T) {
	_, env := arrange(t)

	db, err := OpenDatabase(env, "", 0)
	require.NoError(t, err)
	require.NoError(t, db.Put([]byte("k"), []byte("v"), 0))

	ok, err := db.Has([]byte("k"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCloseKeepsData(t *testing.T) {
	db, env := arrange(t)
	require.NoError(t, db.Put([]byte("k"), []byte("v"), 0))

	db.Close()
	_, err := db.Get([]byte("k"))
	assert.ErrorIs(t, err, engine.ErrBadDBI)

	reopened, err := OpenDatabase(env, "products", 0)
	require.NoError(t, err)
	got, err := reopened.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got.MustGet())
}

func TestOnBoltEngine(t *testing.T) {
	env, err := boltengine.Open(engine.Config{
		Path:      filepath.Join(t.TempDir(), "burrow.db"),
		Checksums: true,
	})
	require.NoError(t, err)
	defer env.Close()

	db, err := OpenDatabase(env, "prices", engine.DBCreate)
	require.NoError(t, err)

	prices := NewStore(db, codec.String(), codec.Fixed[float64]())
	require.NoError(t, prices.Put("pan", 49.99, 0))

	got, err := prices.Get("pan")
	require.NoError(t, err)
	assert.Equal(t, 49.99, got.MustGet())

	n, err := db.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)
}
