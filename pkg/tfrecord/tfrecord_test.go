package tfrecord

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	records := [][]byte{
		[]byte("first"),
		{},
		bytes.Repeat([]byte{0xab}, 1<<16),
		[]byte("last"),
	}

	buf := &bytes.Buffer{}
	w := NewWriter(buf)
	for _, rec := range records {
		require.NoError(t, w.Write(rec))
	}
	require.Equal(t, len(records), w.NumRecords())

	r := NewReader(buf)
	for _, expect := range records {
		got, err := r.Next()
		require.NoError(t, err)
		require.Equal(t, expect, got)
	}
	_, err := r.Next()
	require.Equal(t, io.EOF, err)
}

func TestEmptyStream(t *testing.T) {
	r := NewReader(bytes.NewReader(nil))
	_, err := r.Next()
	require.Equal(t, io.EOF, err)
}

func TestCorruptData(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewWriter(buf)
	require.NoError(t, w.Write([]byte("hello world")))

	// Flip a payload byte. Offset 12 is the first data byte.
	raw := buf.Bytes()
	raw[12] ^= 0xff
	_, err := NewReader(bytes.NewReader(raw)).Next()
	require.ErrorIs(t, err, ErrBadDataChecksum)
}

func TestCorruptLength(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewWriter(buf)
	require.NoError(t, w.Write([]byte("hello world")))

	raw := buf.Bytes()
	raw[0] ^= 0xff
	_, err := NewReader(bytes.NewReader(raw)).Next()
	require.ErrorIs(t, err, ErrBadLengthChecksum)
}

func TestTruncated(t *testing.T) {
	buf := &bytes.Buffer{}
	w := NewWriter(buf)
	require.NoError(t, w.Write([]byte("hello world")))

	raw := buf.Bytes()
	for _, cut := range []int{1, 11, 13, len(raw) - 1} {
		_, err := NewReader(bytes.NewReader(raw[:cut])).Next()
		require.Equal(t, io.ErrUnexpectedEOF, err, "cut at %v", cut)
	}
}
