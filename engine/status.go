package engine

// Status is an engine error code. Codes travel through the access layer
// verbatim (wrapped with %w at most), so callers can match them with
// errors.Is no matter how deep the failure originated.
type Status int

const (
	// ErrNotFound: the key is not in the sub-store. Get turns this into a
	// soft "no value" one layer up; Del surfaces it as a hard error.
	ErrNotFound Status = iota + 1
	// ErrKeyExist: the key (or exact key/value pair) is already present
	// and the put flags forbid replacing it.
	ErrKeyExist
	// ErrBadTxn: operation on a transaction that has already ended, or on
	// a parent while its child is open.
	ErrBadTxn
	// ErrBadDBI: the sub-store handle is closed, dropped or foreign.
	ErrBadDBI
	// ErrBadValSize: empty key, or key/value beyond the engine's limits.
	ErrBadValSize
	// ErrMapFull: the environment's size budget is exhausted.
	ErrMapFull
	// ErrReadersFull: no reader slot available for a new read transaction.
	ErrReadersFull
	// ErrInvalid: invalid parameter, e.g. nesting under a read-only
	// transaction or writing inside one.
	ErrInvalid
	// ErrCorrupted: stored bytes failed integrity verification.
	ErrCorrupted
	// ErrClosed: the environment is closed.
	ErrClosed
)

func (s Status) Error() string {
	switch s {
	case ErrNotFound:
		return "engine: key not found"
	case ErrKeyExist:
		return "engine: key already exists"
	case ErrBadTxn:
		return "engine: bad transaction"
	case ErrBadDBI:
		return "engine: bad sub-store handle"
	case ErrBadValSize:
		return "engine: bad key/value size"
	case ErrMapFull:
		return "engine: map size limit reached"
	case ErrReadersFull:
		return "engine: reader slots exhausted"
	case ErrInvalid:
		return "engine: invalid parameter"
	case ErrCorrupted:
		return "engine: data corrupted"
	case ErrClosed:
		return "engine: environment closed"
	}
	return "engine: unknown status"
}
