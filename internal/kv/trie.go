package kv

import (
	"sort"

	"github.com/s0rg/trie"
)

func NewTrie() *trieStore {
	return &trieStore{inner: trie.New[[]byte]()}
}

type trieStore struct {
	inner *trie.Trie[[]byte]
	count int
}

func (s *trieStore) Get(key string) ([]byte, bool) {
	return s.inner.Find(key)
}

func (s *trieStore) Set(key string, val []byte) {
	if _, ok := s.inner.Find(key); !ok {
		s.count++
	}
	s.inner.Add(key, val)
}

func (s *trieStore) Del(key string) {
	if _, ok := s.inner.Find(key); ok {
		s.count--
	}
	s.inner.Del(key)
}

func (s *trieStore) Len() int {
	return s.count
}

func (s *trieStore) Clear() {
	s.inner = trie.New[[]byte]()
	s.count = 0
}

func (s *trieStore) Range(prefix string, fn func(key string, val []byte) bool) {
	keys, _ := s.inner.Suggest(prefix)
	sort.Strings(keys)
	for _, k := range keys {
		v, ok := s.inner.Find(k)
		if !ok {
			continue
		}
		if !fn(k, v) {
			return
		}
	}
}
