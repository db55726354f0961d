package tablecodec

import (
	"testing"

	"github.com/pingcap/kvproto/pkg/coprocessor"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdh517/tikv/datum"
)

func TestRowKeyRoundTrip(t *testing.T) {
	for _, h := range []int64{0, 1, -1, 9223372036854775807, -9223372036854775808, 42} {
		key := EncodeRowKey(7, h)
		got, err := DecodeHandle(key)
		require.NoError(t, err, h)
		assert.Equal(t, h, got, h)
	}
}

// Memcmp ordering: signed handles must compare in the same order as their
// encoded bytes (spec §3 "preserves signed integer order bytewise").
func TestRowKeyPreservesSignedOrder(t *testing.T) {
	handles := []int64{-100, -1, 0, 1, 100}
	var keys [][]byte
	for _, h := range handles {
		keys = append(keys, EncodeRowKey(1, h))
	}
	for i := 1; i < len(keys); i++ {
		assert.True(t, lessBytes(keys[i-1], keys[i]), "handle %d should encode before %d", handles[i-1], handles[i])
	}
}

func lessBytes(a, b []byte) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

func TestTruncateAsRowKey(t *testing.T) {
	key := EncodeRowKey(3, 55)
	prefix, err := TruncateAsRowKey(key)
	require.NoError(t, err)
	other := EncodeRowKey(3, 56)
	otherPrefix, err := TruncateAsRowKey(other)
	require.NoError(t, err)
	assert.Equal(t, prefix, otherPrefix)
}

func TestPrefixNext(t *testing.T) {
	assert.Equal(t, []byte{0x01, 0x01}, PrefixNext([]byte{0x01, 0x00}))
	assert.Equal(t, []byte{0xFF, 0x00}, PrefixNext([]byte{0xFE, 0xFF}))
	assert.Equal(t, []byte{0xFF, 0xFF, 0x00}, PrefixNext([]byte{0xFF, 0xFF}))
}

func TestIsPoint(t *testing.T) {
	start := EncodeRowKey(1, 5)
	end := PrefixNext(start)
	assert.True(t, IsPoint(&coprocessor.KeyRange{Start: start, End: end}))

	other := EncodeRowKey(1, 100)
	assert.False(t, IsPoint(&coprocessor.KeyRange{Start: start, End: other}))
}

func TestEncodeDecodeDatumRoundTrip(t *testing.T) {
	cases := []datum.Datum{
		datum.Null(),
		datum.NewI64(-42),
		datum.NewU64(42),
		datum.NewF64(3.25),
		datum.NewBytes([]byte("hello")),
		datum.NewDecimal(decimal.RequireFromString("12.345")),
	}
	for _, d := range cases {
		encoded, err := EncodeDatum(d)
		require.NoError(t, err)
		got, n, err := DecodeDatum(encoded, 0)
		require.NoError(t, err)
		assert.Equal(t, len(encoded), n)
		assert.True(t, d.Equal(got))
	}
}

func TestCutRowProjection(t *testing.T) {
	row := map[int64]datum.Datum{
		1: datum.NewI64(10),
		2: datum.NewBytes([]byte("x")),
		3: datum.NewF64(1.5),
	}
	encoded, err := EncodeRow(row)
	require.NoError(t, err)

	cut, err := CutRow(encoded, map[int64]bool{1: true, 3: true})
	require.NoError(t, err)
	assert.Len(t, cut, 2)
	_, has2 := cut[2]
	assert.False(t, has2)

	d1, _, err := DecodeDatum(cut[1], 0)
	require.NoError(t, err)
	assert.Equal(t, int64(10), d1.I64())
}
