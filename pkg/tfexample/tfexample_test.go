package tfexample

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	e := New()
	e.SetBytes("image/encoded", []byte{0xff, 0xd8, 0xff})
	e.SetText("image/format", "jpeg")
	e.SetText("image/object/class/text", "cat", "dog")
	e.SetInts("image/object/class/label", 1, 2)
	e.SetInts("image/height", 480)
	e.SetFloats("image/object/bbox/xmin", 0.1, 0.25)

	data := e.Marshal()
	got, err := Unmarshal(data)
	require.NoError(t, err)
	require.Equal(t, e.NumFeatures(), got.NumFeatures())
	require.Equal(t, e.Keys(), got.Keys())

	b, ok := got.Bytes("image/encoded")
	require.True(t, ok)
	require.Equal(t, [][]byte{{0xff, 0xd8, 0xff}}, b)

	s, ok := got.Text("image/object/class/text")
	require.True(t, ok)
	require.Equal(t, []string{"cat", "dog"}, s)

	ints, ok := got.Ints("image/object/class/label")
	require.True(t, ok)
	require.Equal(t, []int64{1, 2}, ints)

	floats, ok := got.Floats("image/object/bbox/xmin")
	require.True(t, ok)
	require.Equal(t, []float32{0.1, 0.25}, floats)

	// Wrong-kind lookups miss
	_, ok = got.Floats("image/height")
	require.False(t, ok)
	_, ok = got.Ints("image/encoded")
	require.False(t, ok)
	_, ok = got.Bytes("no/such/key")
	require.False(t, ok)
}

// Spot-check the exact wire bytes of a minimal Example against the proto
// encoding worked out by hand, so encode and decode can't be wrong in the
// same way.
func TestKnownEncoding(t *testing.T) {
	e := New()
	e.SetInts("a", 1)
	expect := []byte{
		0x0a, 0x0c, // Example.features, 12 bytes
		0x0a, 0x0a, // Features.feature map entry, 10 bytes
		0x0a, 0x01, 'a', // key "a"
		0x12, 0x05, // value: Feature, 5 bytes
		0x1a, 0x03, // Feature.int64_list, 3 bytes
		0x0a, 0x01, 0x01, // Int64List.value, packed [1]
	}
	require.Equal(t, expect, e.Marshal())
}

func TestEmptyLists(t *testing.T) {
	e := New()
	e.SetFloats("boxes")
	e.SetInts("labels")
	e.SetBytes("blobs")

	got, err := Unmarshal(e.Marshal())
	require.NoError(t, err)
	require.Equal(t, 3, got.NumFeatures())
	floats, ok := got.Floats("boxes")
	require.True(t, ok)
	require.Len(t, floats, 0)
	ints, ok := got.Ints("labels")
	require.True(t, ok)
	require.Len(t, ints, 0)
}

func TestUnmarshalGarbage(t *testing.T) {
	_, err := Unmarshal([]byte{0xff, 0xff, 0xff})
	require.Error(t, err)
}

func TestNegativeInts(t *testing.T) {
	e := New()
	e.SetInts("v", -5, 1<<40)
	got, err := Unmarshal(e.Marshal())
	require.NoError(t, err)
	ints, ok := got.Ints("v")
	require.True(t, ok)
	require.Equal(t, []int64{-5, 1 << 40}, ints)
}
