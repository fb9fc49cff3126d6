package wire

import (
	"bytes"
	"testing"
)

func TestPacketEncodeDecode(t *testing.T) {
	p := &Packet{
		Header: PacketHeader{PacketNumber: 7, ConnectionID: ConnectionID{1, 2, 3, 4, 5, 6, 7, 8}},
		Frames: []*StreamFrame{
			{StreamID: 0, Offset: 0, Length: 5, Payload: []byte("hello")},
			{StreamID: 4, Offset: 0, Length: 0, Fin: true},
		},
	}

	bb, err := p.Encode(4096)
	if err != nil {
		t.Fatal(err)
	}
	defer ReleasePacketBuffer(bb)

	if got := len(bb.B); got != p.EncodedSize() {
		t.Fatalf("encoded len %d != EncodedSize %d", got, p.EncodedSize())
	}

	got, err := DecodePacket(bb.B)
	if err != nil {
		t.Fatal(err)
	}
	defer got.Release()

	if got.Header != p.Header {
		t.Fatalf("header mismatch: got %+v want %+v", got.Header, p.Header)
	}
	if len(got.Frames) != len(p.Frames) {
		t.Fatalf("frame count mismatch: got %d want %d", len(got.Frames), len(p.Frames))
	}
	for i := range p.Frames {
		if got.Frames[i].StreamID != p.Frames[i].StreamID ||
			got.Frames[i].Offset != p.Frames[i].Offset ||
			got.Frames[i].Fin != p.Frames[i].Fin ||
			!bytes.Equal(got.Frames[i].Payload, p.Frames[i].Payload) {
			t.Fatalf("frame %d mismatch: got %+v want %+v", i, got.Frames[i], p.Frames[i])
		}
	}
}

func TestPacketEncodeTooLarge(t *testing.T) {
	p := &Packet{
		Header: PacketHeader{PacketNumber: 1},
		Frames: []*StreamFrame{{StreamID: 0, Offset: 0, Length: 100, Payload: make([]byte, 100)}},
	}
	if _, err := p.Encode(HeaderSize+FrameHeaderSize); err != ErrPacketTooLarge {
		t.Fatalf("expected ErrPacketTooLarge, got %v", err)
	}
}

func TestDecodePacketDropsOnTrailingGarbage(t *testing.T) {
	p := &Packet{Header: PacketHeader{PacketNumber: 2}}
	bb, err := p.Encode(4096)
	if err != nil {
		t.Fatal(err)
	}
	defer ReleasePacketBuffer(bb)

	corrupt := append(bb.B, 1, 2, 3) // a few trailing bytes, not a full frame
	if _, err := DecodePacket(corrupt); err != ErrTruncatedFrame {
		t.Fatalf("expected ErrTruncatedFrame, got %v", err)
	}
}

func TestDecodePacketTruncatedHeader(t *testing.T) {
	if _, err := DecodePacket(make([]byte, HeaderSize-1)); err != ErrTruncatedHeader {
		t.Fatalf("expected ErrTruncatedHeader, got %v", err)
	}
}
