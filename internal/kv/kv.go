// Package kv provides the ordered string-keyed byte stores the memory
// engine keeps committed data in.
package kv

// Store is an ordered key-value store. Implementations are not required to
// be safe for concurrent mutation; the engine serializes writers on top.
type Store interface {
	Get(key string) ([]byte, bool)
	Set(key string, val []byte)
	Del(key string)
	// Len reports the number of live keys.
	Len() int
	// Clear removes everything.
	Clear()
	// Range visits every key with the given prefix in ascending key order
	// until fn returns false. The empty prefix visits the whole store.
	Range(prefix string, fn func(key string, val []byte) bool)
}

// New returns a Store for a backend name: "skipmap" (default) or "trie".
func New(backend string) Store {
	if backend == "trie" {
		return NewTrie()
	}
	return NewSkipmap()
}
