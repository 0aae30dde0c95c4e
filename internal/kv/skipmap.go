package kv

import (
	"strings"

	"github.com/zhangyunhao116/skipmap"
)

func NewSkipmap() *skipmapStore {
	return &skipmapStore{skipmap.NewString[[]byte]()}
}

type skipmapStore struct {
	inner *skipmap.StringMap[[]byte]
}

func (s *skipmapStore) Get(key string) ([]byte, bool) {
	return s.inner.Load(key)
}

func (s *skipmapStore) Set(key string, val []byte) {
	s.inner.Store(key, val)
}

func (s *skipmapStore) Del(key string) {
	s.inner.Delete(key)
}

func (s *skipmapStore) Len() int {
	return s.inner.Len()
}

func (s *skipmapStore) Clear() {
	s.inner = skipmap.NewString[[]byte]()
}

func (s *skipmapStore) Range(prefix string, fn func(key string, val []byte) bool) {
	// the skiplist iterates in ascending key order already
	s.inner.Range(func(key string, val []byte) bool {
		if !strings.HasPrefix(key, prefix) {
			// keys below the prefix range: keep going, keys above: done
			return key < prefix
		}
		return fn(key, val)
	})
}
