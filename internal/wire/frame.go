// Package wire implements the binary framing layer: STREAM frames packed
// into fixed-header packets. Encodings use fixed-width big-endian integers
// throughout; there is no RFC 9000 varint here by design.
package wire

import (
	"sync"

	"github.com/domsolutions/miniquic/internal/binutil"
)

const (
	// FrameHeaderSize is the size in bytes of a StreamFrame header
	// (stream_id + offset + length + flags), excluding payload.
	FrameHeaderSize = 21

	flagFin          byte = 0x1
	flagReservedMask byte = ^flagFin
)

// StreamFrame carries an offsetted byte range for one stream.
//
// Encoding (network byte order):
//
//	8 bytes  stream_id
//	8 bytes  offset
//	4 bytes  length
//	1 byte   flags (bit 0 = FIN)
//	length bytes payload
type StreamFrame struct {
	StreamID uint64
	Offset   uint64
	Length   uint32
	Fin      bool
	Payload  []byte
}

var streamFramePool = sync.Pool{
	New: func() interface{} {
		return new(StreamFrame)
	},
}

// AcquireStreamFrame returns a StreamFrame from the pool, reset to its zero value.
func AcquireStreamFrame() *StreamFrame {
	f := streamFramePool.Get().(*StreamFrame)
	f.Reset()
	return f
}

// ReleaseStreamFrame returns f to the pool. f must not be used afterwards.
func ReleaseStreamFrame(f *StreamFrame) {
	streamFramePool.Put(f)
}

// Reset clears f for reuse.
func (f *StreamFrame) Reset() {
	f.StreamID = 0
	f.Offset = 0
	f.Length = 0
	f.Fin = false
	f.Payload = f.Payload[:0]
}

// EncodedSize returns the number of bytes Encode appends for f.
func (f *StreamFrame) EncodedSize() int {
	return FrameHeaderSize + len(f.Payload)
}

// Encode appends the wire encoding of f to dst and returns the grown slice.
func (f *StreamFrame) Encode(dst []byte) []byte {
	var hdr [FrameHeaderSize]byte
	binutil.Uint64ToBytes(hdr[0:8], f.StreamID)
	binutil.Uint64ToBytes(hdr[8:16], f.Offset)
	binutil.Uint32ToBytes(hdr[16:20], uint32(len(f.Payload)))
	if f.Fin {
		hdr[20] = flagFin
	}
	dst = append(dst, hdr[:]...)
	dst = append(dst, f.Payload...)
	return dst
}

// DecodeFrame parses a StreamFrame from b starting at cursor. It returns the
// frame (acquired from the pool — release it with ReleaseStreamFrame) and the
// cursor advanced past the consumed bytes.
func DecodeFrame(b []byte, cursor int) (*StreamFrame, int, error) {
	if len(b)-cursor < FrameHeaderSize {
		return nil, cursor, ErrTruncatedFrame
	}

	flags := b[cursor+20]
	if flags&flagReservedMask != 0 {
		return nil, cursor, ErrReservedBitsSet
	}

	length := binutil.BytesToUint32(b[cursor+16 : cursor+20])
	start := cursor + FrameHeaderSize
	end := start + int(length)
	if end < start || end > len(b) {
		return nil, cursor, ErrTruncatedFrame
	}

	f := AcquireStreamFrame()
	f.StreamID = binutil.BytesToUint64(b[cursor : cursor+8])
	f.Offset = binutil.BytesToUint64(b[cursor+8 : cursor+16])
	f.Length = length
	f.Fin = flags&flagFin != 0
	f.Payload = append(f.Payload[:0], b[start:end]...)

	return f, end, nil
}
