// Package burrow is a generic, type-safe transactional access layer over an
// embedded, ordered, single-writer/multi-reader key-value engine.
//
// The engine itself (page management, on-disk format, MVCC internals) is a
// collaborator behind the interfaces in burrow/engine; this package owns the
// transaction lifecycle contract and the value serialization contract.
//
// A Database is one named sub-store. Its operations each run in their own
// transaction; Transact groups several operations into one:
//
//	env, _ := memory.Open(engine.Config{})
//	db, _ := burrow.OpenDatabase(env, "people", engine.DBCreate)
//
//	ages := burrow.NewStore(db, codec.String(), codec.Fixed[int64]())
//	_ = ages.Put("ann", 42, 0)
//
//	age, _ := ages.Get("ann") // mo.Some(42)
//
// Transactions are single-use: Run commits when the operation returns nil
// and aborts when it returns an error or panics, and a handle that has
// ended answers engine.ErrBadTxn to everything. Write transactions nest;
// a child's commit folds its writes into the parent.
package burrow
