package codec

import (
	"github.com/samber/mo"
	"gopkg.in/mgo.v2/bson"
)

// Bson is a document codec for arbitrary record types. A value that fails
// to unmarshal answers None, same as any other shape mismatch.
func Bson[T any]() Codec[T] {
	return New(
		func(data []byte) mo.Option[T] {
			var v T
			if err := bson.Unmarshal(data, &v); err != nil {
				return mo.None[T]()
			}
			return mo.Some(v)
		},
		func(value T, body func([]byte) error) error {
			b, err := bson.Marshal(value)
			if err != nil {
				return err
			}
			return body(b)
		},
	)
}
