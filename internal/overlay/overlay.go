// Package overlay stages a write transaction's changes to one sub-store
// before they are applied to committed state. Nested transactions chain
// overlays: lookups walk child to parent, a committed child folds into its
// parent, an aborted child is simply discarded.
package overlay

// Verdict is an overlay's answer for one key.
type Verdict int

const (
	// Miss: the overlay says nothing, ask the next layer down.
	Miss Verdict = iota
	// Hit: the overlay holds a staged value for the key.
	Hit
	// Gone: the key is staged as deleted, or the overlay is an emptied
	// barrier; layers below must not be consulted.
	Gone
)

type Overlay struct {
	puts map[string][]byte
	dels map[string]struct{}

	// Emptied marks the sub-store cleared at this layer: everything below
	// is invisible.
	Emptied bool
	// Dropped marks the sub-store deleted as of this transaction.
	Dropped bool
	// LastAppend is the greatest key put with an append flag in this
	// layer, for fast-fail misuse detection.
	LastAppend string
}

func New() *Overlay {
	return &Overlay{
		puts: make(map[string][]byte),
		dels: make(map[string]struct{}),
	}
}

func (o *Overlay) Get(key string) ([]byte, Verdict) {
	if v, ok := o.puts[key]; ok {
		return v, Hit
	}
	if _, ok := o.dels[key]; ok {
		return nil, Gone
	}
	if o.Emptied {
		return nil, Gone
	}
	return nil, Miss
}

func (o *Overlay) Put(key string, val []byte) {
	delete(o.dels, key)
	o.puts[key] = val
}

func (o *Overlay) Del(key string) {
	delete(o.puts, key)
	o.dels[key] = struct{}{}
}

// Clear stages removal of every entry, including everything below.
func (o *Overlay) Clear() {
	o.puts = make(map[string][]byte)
	o.dels = make(map[string]struct{})
	o.Emptied = true
}

// Merge folds a committed child overlay into this one.
func (o *Overlay) Merge(child *Overlay) {
	if child.Emptied || child.Dropped {
		o.Clear()
		o.Dropped = o.Dropped || child.Dropped
	}
	for k := range child.dels {
		o.Del(k)
	}
	for k, v := range child.puts {
		o.Put(k, v)
	}
	if child.LastAppend > o.LastAppend {
		o.LastAppend = child.LastAppend
	}
}

// Apply replays the staged changes onto committed state. clear must remove
// every entry, del one entry, put store one entry.
func (o *Overlay) Apply(clear func(), del func(key string), put func(key string, val []byte)) {
	if o.Emptied || o.Dropped {
		clear()
	}
	for k := range o.dels {
		del(k)
	}
	for k, v := range o.puts {
		put(k, v)
	}
}
