package wire

import (
	"github.com/valyala/bytebufferpool"
)

// Packet is a PacketHeader followed by zero or more StreamFrames,
// concatenated end-to-end with no frame-count field and no padding.
type Packet struct {
	Header PacketHeader
	Frames []*StreamFrame
}

// EncodedSize returns the number of bytes Encode would produce for p.
func (p *Packet) EncodedSize() int {
	n := HeaderSize
	for _, f := range p.Frames {
		n += f.EncodedSize()
	}
	return n
}

// Encode serializes p into a pooled buffer. The caller releases the buffer
// with ReleasePacketBuffer once the bytes have been written to the wire.
// It fails with ErrPacketTooLarge if the encoding would exceed maxSize.
func (p *Packet) Encode(maxSize int) (*bytebufferpool.ByteBuffer, error) {
	bb := bytebufferpool.Get()
	bb.B = p.Header.Encode(bb.B[:0])
	for _, f := range p.Frames {
		bb.B = f.Encode(bb.B)
	}
	if len(bb.B) > maxSize {
		bytebufferpool.Put(bb)
		return nil, ErrPacketTooLarge
	}
	return bb, nil
}

// ReleasePacketBuffer returns a buffer obtained from Packet.Encode to the pool.
func ReleasePacketBuffer(bb *bytebufferpool.ByteBuffer) {
	bytebufferpool.Put(bb)
}

// DecodePacket parses a header followed by StreamFrames until b is
// exhausted. Trailing bytes that do not form a complete frame are reported
// as ErrTruncatedFrame; any frames already decoded are released.
func DecodePacket(b []byte) (*Packet, error) {
	h, cursor, err := DecodeHeader(b)
	if err != nil {
		return nil, err
	}

	p := &Packet{Header: h}
	for cursor < len(b) {
		f, next, err := DecodeFrame(b, cursor)
		if err != nil {
			p.Release()
			return nil, err
		}
		p.Frames = append(p.Frames, f)
		cursor = next
	}
	return p, nil
}

// Release returns every frame in p to the StreamFrame pool.
func (p *Packet) Release() {
	for _, f := range p.Frames {
		ReleaseStreamFrame(f)
	}
	p.Frames = nil
}
