package codec

import (
	"encoding/json"

	"github.com/samber/mo"
)

// Json is like Bson but with a human-readable stored form.
func Json[T any]() Codec[T] {
	return New(
		func(data []byte) mo.Option[T] {
			var v T
			if err := json.Unmarshal(data, &v); err != nil {
				return mo.None[T]()
			}
			return mo.Some(v)
		},
		func(value T, body func([]byte) error) error {
			b, err := json.Marshal(value)
			if err != nil {
				return err
			}
			return body(b)
		},
	)
}
