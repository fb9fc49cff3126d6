package wire

import "github.com/domsolutions/miniquic/internal/binutil"

const (
	// HeaderSize is the size in bytes of a PacketHeader.
	HeaderSize = 16
	// ConnectionIDLength is the fixed width of a connection id, per spec.
	ConnectionIDLength = 8
)

// ConnectionID is an opaque fixed-width connection tag.
type ConnectionID [ConnectionIDLength]byte

// PacketHeader is the fixed-width header prefixed to every packet.
//
// Encoding (network byte order):
//
//	8 bytes packet_number
//	8 bytes connection_id
type PacketHeader struct {
	PacketNumber uint64
	ConnectionID ConnectionID
}

// Encode appends the wire encoding of h to dst.
func (h *PacketHeader) Encode(dst []byte) []byte {
	var hdr [HeaderSize]byte
	binutil.Uint64ToBytes(hdr[0:8], h.PacketNumber)
	copy(hdr[8:16], h.ConnectionID[:])
	return append(dst, hdr[:]...)
}

// DecodeHeader parses a PacketHeader from the start of b.
func DecodeHeader(b []byte) (PacketHeader, int, error) {
	if len(b) < HeaderSize {
		return PacketHeader{}, 0, ErrTruncatedHeader
	}
	var h PacketHeader
	h.PacketNumber = binutil.BytesToUint64(b[0:8])
	copy(h.ConnectionID[:], b[8:16])
	return h, HeaderSize, nil
}
