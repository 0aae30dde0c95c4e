// Package codec defines how typed values convert to and from the byte
// sequences the storage engine works with.
//
// A Codec[T] carries the two halves of the contract: Decode builds a value
// from an immutable byte span and answers None (not an error) when the span
// cannot possibly represent one, and Bytes exposes a value's byte form to a
// scoped callback, outside of which the span must not be retained. Decode
// failure being soft keeps "key absent" and "stored bytes unreadable as T"
// apart from real engine failures.
package codec

import (
	"unicode/utf8"

	"github.com/samber/mo"
)

type (
	DecodeFunc[T any] func(data []byte) mo.Option[T]
	BytesFunc[T any]  func(value T, body func([]byte) error) error
)

// Codec converts values of one type to and from bytes.
type Codec[T any] struct {
	decode DecodeFunc[T]
	bytes  BytesFunc[T]
}

// New builds a Codec from the two contract operations.
func New[T any](decode DecodeFunc[T], bytes BytesFunc[T]) Codec[T] {
	return Codec[T]{decode: decode, bytes: bytes}
}

// Decode reconstructs a value from data, or None when data has the wrong
// shape for T.
func (c Codec[T]) Decode(data []byte) mo.Option[T] {
	return c.decode(data)
}

// Bytes calls body with value's byte representation. The slice is only
// valid for the duration of the call.
func (c Codec[T]) Bytes(value T, body func([]byte) error) error {
	return c.bytes(value, body)
}

// Encode is a convenience around Bytes that copies the representation out.
func (c Codec[T]) Encode(value T) ([]byte, error) {
	var out []byte
	err := c.bytes(value, func(b []byte) error {
		out = append([]byte(nil), b...)
		return nil
	})
	return out, err
}

// Raw is the identity codec for byte buffers. Decode copies defensively so
// the result outlives the engine's span.
func Raw() Codec[[]byte] {
	return New(
		func(data []byte) mo.Option[[]byte] {
			return mo.Some(append([]byte(nil), data...))
		},
		func(value []byte, body func([]byte) error) error {
			return body(value)
		},
	)
}

// String is the UTF-8 text codec. Decode answers None on invalid UTF-8.
func String() Codec[string] {
	return New(
		func(data []byte) mo.Option[string] {
			if !utf8.Valid(data) {
				return mo.None[string]()
			}
			return mo.Some(string(data))
		},
		func(value string, body func([]byte) error) error {
			return body([]byte(value))
		},
	)
}
