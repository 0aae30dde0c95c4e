package engine

// TxnFlag configures Env.Begin.
type TxnFlag uint

const (
	// TxnReadOnly opens a snapshot transaction that can never write.
	TxnReadOnly TxnFlag = 1 << iota
)

// DBFlag configures Txn.OpenDBI. Each bit maps 1:1 to an engine
// configuration bit and is handed to the engine unmodified; an engine that
// does not implement a bit still records it.
type DBFlag uint

const (
	// DBCreate creates the sub-store when it does not exist yet.
	DBCreate DBFlag = 1 << iota
	// DBReverseKey compares keys back-to-front.
	DBReverseKey
	// DBDupSort allows multiple values per key.
	DBDupSort
	// DBIntegerKey declares keys to be fixed-size native integers.
	DBIntegerKey
	// DBDupFixed declares all duplicate values to have the same size
	// (requires DBDupSort).
	DBDupFixed
	// DBIntegerDup declares duplicate values to be fixed-size native
	// integers (requires DBDupSort).
	DBIntegerDup
	// DBReverseDup compares duplicate values back-to-front (requires
	// DBDupSort).
	DBReverseDup
)

// PutFlag configures Txn.Put.
type PutFlag uint

const (
	// PutNoOverwrite fails with ErrKeyExist when the key is present.
	PutNoOverwrite PutFlag = 1 << iota
	// PutNoDupData fails with ErrKeyExist when the exact key/value pair is
	// present (meant for DBDupSort stores).
	PutNoDupData
	// PutReserve asks the engine to allocate space for the value instead of
	// copying it. Pass-through only at this level.
	PutReserve
	// PutAppend asserts the key sorts after everything already stored.
	// Behavior on a violated assertion is the engine's contract; the
	// bundled engines fail fast with ErrKeyExist when they can tell.
	PutAppend
	// PutAppendDup is PutAppend for duplicate values.
	PutAppendDup
)
