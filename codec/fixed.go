package codec

import (
	"net/url"
	"time"
	"unicode/utf8"
	"unsafe"

	"github.com/samber/mo"
)

// Scalar covers the fixed-layout types whose byte form is their in-memory
// image. Composite structs are deliberately excluded: padding and pointer
// fields make a blanket memory-image encoding unsafe, so record types go
// through an explicit document codec (Bson, Json) instead.
type Scalar interface {
	~bool |
		~int8 | ~int16 | ~int32 | ~int64 | ~int |
		~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uint | ~uintptr |
		~float32 | ~float64 | ~complex64 | ~complex128
}

// Fixed is the memory-image codec for a fixed-layout scalar. Bytes exposes
// a zero-copy view of the value for the duration of the callback; Decode
// requires the span length to equal the type's size exactly and answers
// None otherwise.
func Fixed[T Scalar]() Codec[T] {
	size := int(unsafe.Sizeof(*new(T)))
	return New(
		func(data []byte) mo.Option[T] {
			if len(data) != size {
				return mo.None[T]()
			}
			var v T
			copy(unsafe.Slice((*byte)(unsafe.Pointer(&v)), size), data)
			return mo.Some(v)
		},
		func(value T, body func([]byte) error) error {
			return body(unsafe.Slice((*byte)(unsafe.Pointer(&value)), size))
		},
	)
}

// Slice is the codec for sequences of a fixed-layout element: the byte form
// is the packed element images. Decode requires the span length to be an
// exact multiple of one element's size.
func Slice[T Scalar]() Codec[[]T] {
	esize := int(unsafe.Sizeof(*new(T)))
	return New(
		func(data []byte) mo.Option[[]T] {
			if len(data)%esize != 0 {
				return mo.None[[]T]()
			}
			out := make([]T, len(data)/esize)
			if len(out) > 0 {
				copy(unsafe.Slice((*byte)(unsafe.Pointer(&out[0])), len(data)), data)
			}
			return mo.Some(out)
		},
		func(value []T, body func([]byte) error) error {
			if len(value) == 0 {
				return body(nil)
			}
			return body(unsafe.Slice((*byte)(unsafe.Pointer(&value[0])), len(value)*esize))
		},
	)
}

// Time stores instants as their 8-byte UnixNano image. Sub-nanosecond
// precision, monotonic readings and location are not round-tripped; decoded
// values compare equal with time.Time.Equal.
func Time() Codec[time.Time] {
	inner := Fixed[int64]()
	return New(
		func(data []byte) mo.Option[time.Time] {
			ns, ok := inner.Decode(data).Get()
			if !ok {
				return mo.None[time.Time]()
			}
			return mo.Some(time.Unix(0, ns).UTC())
		},
		func(value time.Time, body func([]byte) error) error {
			return inner.Bytes(value.UnixNano(), body)
		},
	)
}

// URL stores locators as the UTF-8 bytes of their string form. Decode
// answers None on invalid UTF-8 or an unparsable URL.
func URL() Codec[url.URL] {
	return New(
		func(data []byte) mo.Option[url.URL] {
			if !utf8.Valid(data) {
				return mo.None[url.URL]()
			}
			u, err := url.Parse(string(data))
			if err != nil {
				return mo.None[url.URL]()
			}
			return mo.Some(*u)
		},
		func(value url.URL, body func([]byte) error) error {
			return body([]byte(value.String()))
		},
	)
}
