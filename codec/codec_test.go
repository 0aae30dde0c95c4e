package codec

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roundtrip[T any](t *testing.T, c Codec[T], v T) T {
	t.Helper()

	b, err := c.Encode(v)
	require.NoError(t, err)

	got := c.Decode(b)
	require.True(t, got.IsPresent(), "decode(encode(%v)) produced no value", v)
	return got.MustGet()
}

func TestFixedRoundtrip(t *testing.T) {
	assert.Equal(t, int64(-42), roundtrip(t, Fixed[int64](), int64(-42)))
	assert.Equal(t, uint16(65535), roundtrip(t, Fixed[uint16](), uint16(65535)))
	assert.Equal(t, 3.14159, roundtrip(t, Fixed[float64](), 3.14159))
	assert.Equal(t, true, roundtrip(t, Fixed[bool](), true))
	assert.Equal(t, complex(1, -2), roundtrip(t, Fixed[complex128](), complex(1, -2)))

	type userID uint32
	assert.Equal(t, userID(7), roundtrip(t, Fixed[userID](), userID(7)))
}

func TestFixedSizeMismatch(t *testing.T) {
	c := Fixed[int64]()

	assert.True(t, c.Decode([]byte{1, 2, 3}).IsAbsent())
	assert.True(t, c.Decode(nil).IsAbsent())
	assert.True(t, c.Decode(make([]byte, 9)).IsAbsent())
}

func TestFixedBytesScoped(t *testing.T) {
	c := Fixed[uint32]()

	var seen int
	err := c.Bytes(0xDEADBEEF, func(b []byte) error {
		seen = len(b)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 4, seen)
}

func TestStringCodec(t *testing.T) {
	c := String()

	assert.Equal(t, "привет", roundtrip(t, c, "привет"))
	assert.Equal(t, "", roundtrip(t, c, ""))

	// broken utf-8 is "no value", not an error
	assert.True(t, c.Decode([]byte{0xff, 0xfe}).IsAbsent())
}

func TestRawCodecCopies(t *testing.T) {
	c := Raw()

	src := []byte("shared")
	got := c.Decode(src).MustGet()
	src[0] = 'X'

	assert.Equal(t, []byte("shared"), got)
}

func TestSliceCodec(t *testing.T) {
	c := Slice[uint32]()

	assert.Equal(t, []uint32{1, 2, 3}, roundtrip(t, c, []uint32{1, 2, 3}))
	assert.Empty(t, roundtrip(t, c, nil))

	// length must be an exact multiple of the element size
	assert.True(t, c.Decode(make([]byte, 6)).IsAbsent())
	assert.True(t, c.Decode(make([]byte, 4)).IsPresent())
}

func TestTimeCodec(t *testing.T) {
	c := Time()
	now := time.Now()

	got := roundtrip(t, c, now)
	assert.True(t, got.Equal(now))

	assert.True(t, c.Decode([]byte("short")).IsAbsent())
}

func TestURLCodec(t *testing.T) {
	c := URL()
	u, err := url.Parse("https://example.com/a?b=c")
	require.NoError(t, err)

	got := roundtrip(t, c, *u)
	assert.Equal(t, u.String(), got.String())

	assert.True(t, c.Decode([]byte{0xff}).IsAbsent())
}

type product struct {
	Title string `bson:"title" json:"title"`
	Price int    `bson:"price" json:"price"`
}

func TestDocumentCodecs(t *testing.T) {
	p := product{Title: "чайник", Price: 1000}

	assert.Equal(t, p, roundtrip(t, Bson[product](), p))
	assert.Equal(t, p, roundtrip(t, Json[product](), p))

	// garbage decodes to None rather than failing hard
	assert.True(t, Bson[product]().Decode([]byte{1, 2, 3}).IsAbsent())
	assert.True(t, Json[product]().Decode([]byte("{broken")).IsAbsent())
}

func TestEncodeDetachesFromValue(t *testing.T) {
	c := Raw()

	v := []byte("abc")
	b, err := c.Encode(v)
	require.NoError(t, err)
	v[0] = 'X'

	assert.Equal(t, []byte("abc"), b)
}
