// Package tfrecord reads and writes the TFRecord container format: a flat
// sequence of length-prefixed records, each guarded by masked CRC32C
// checksums over the length and the payload.
//
// Layout of one record:
//
//	uint64 length        (little endian)
//	uint32 masked crc32c of the length bytes
//	byte   data[length]
//	uint32 masked crc32c of data
package tfrecord

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
)

var ErrBadLengthChecksum = fmt.Errorf("Corrupt record: length checksum mismatch")
var ErrBadDataChecksum = fmt.Errorf("Corrupt record: data checksum mismatch")

const maskDelta = 0xa282ead8

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// maskedCRC is the checksum variant TFRecord uses: CRC32C, rotated and
// offset so that checksums of checksums don't collide.
func maskedCRC(p []byte) uint32 {
	crc := crc32.Checksum(p, castagnoli)
	return ((crc >> 15) | (crc << 17)) + maskDelta
}

// Writer appends records to an underlying stream.
type Writer struct {
	w   io.Writer
	num int
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write appends one record.
func (w *Writer) Write(record []byte) error {
	var header [12]byte
	binary.LittleEndian.PutUint64(header[:8], uint64(len(record)))
	binary.LittleEndian.PutUint32(header[8:], maskedCRC(header[:8]))
	if _, err := w.w.Write(header[:]); err != nil {
		return err
	}
	if _, err := w.w.Write(record); err != nil {
		return err
	}
	var footer [4]byte
	binary.LittleEndian.PutUint32(footer[:], maskedCRC(record))
	if _, err := w.w.Write(footer[:]); err != nil {
		return err
	}
	w.num++
	return nil
}

// NumRecords returns the number of records written so far.
func (w *Writer) NumRecords() int {
	return w.num
}

// Reader iterates over the records of a stream.
type Reader struct {
	r *bufio.Reader
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// Next returns the next record, or io.EOF at the clean end of the stream.
// A truncated stream yields io.ErrUnexpectedEOF.
func (r *Reader) Next() ([]byte, error) {
	var header [12]byte
	if _, err := io.ReadFull(r.r, header[:1]); err != nil {
		// A clean EOF is only possible on a record boundary
		return nil, err
	}
	if _, err := io.ReadFull(r.r, header[1:]); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	length := binary.LittleEndian.Uint64(header[:8])
	if maskedCRC(header[:8]) != binary.LittleEndian.Uint32(header[8:]) {
		return nil, ErrBadLengthChecksum
	}
	data := make([]byte, length)
	if _, err := io.ReadFull(r.r, data); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	var footer [4]byte
	if _, err := io.ReadFull(r.r, footer[:]); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	if maskedCRC(data) != binary.LittleEndian.Uint32(footer[:]) {
		return nil, ErrBadDataChecksum
	}
	return data, nil
}
