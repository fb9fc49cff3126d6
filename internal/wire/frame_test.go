package wire

import (
	"bytes"
	"testing"
)

func TestStreamFrameEncodeDecode(t *testing.T) {
	cases := []StreamFrame{
		{StreamID: 0, Offset: 0, Length: 11, Fin: true, Payload: []byte("HELLO WORLD")},
		{StreamID: 4, Offset: 100, Length: 0, Fin: true, Payload: nil},
		{StreamID: 1 << 40, Offset: 1 << 32, Length: 3, Fin: false, Payload: []byte{1, 2, 3}},
	}

	for i, want := range cases {
		enc := want.Encode(nil)
		if len(enc) != want.EncodedSize() {
			t.Fatalf("case %d: encoded len %d != EncodedSize %d", i, len(enc), want.EncodedSize())
		}

		got, cursor, err := DecodeFrame(enc, 0)
		if err != nil {
			t.Fatalf("case %d: decode: %s", i, err)
		}
		defer ReleaseStreamFrame(got)

		if cursor != len(enc) {
			t.Fatalf("case %d: cursor %d != %d", i, cursor, len(enc))
		}
		if got.StreamID != want.StreamID || got.Offset != want.Offset || got.Length != want.Length || got.Fin != want.Fin {
			t.Fatalf("case %d: fields mismatch: got %+v want %+v", i, got, want)
		}
		if !bytes.Equal(got.Payload, want.Payload) {
			t.Fatalf("case %d: payload mismatch: got %v want %v", i, got.Payload, want.Payload)
		}
	}
}

func TestDecodeFrameTruncatedHeader(t *testing.T) {
	b := make([]byte, FrameHeaderSize-1)
	if _, _, err := DecodeFrame(b, 0); err != ErrTruncatedFrame {
		t.Fatalf("expected ErrTruncatedFrame, got %v", err)
	}
}

func TestDecodeFrameTruncatedPayload(t *testing.T) {
	f := StreamFrame{StreamID: 1, Offset: 0, Length: 10, Payload: []byte("short")}
	enc := f.Encode(nil)
	// Encode writes the real payload length (5), not the Length field (10);
	// chopping a trailing byte makes that declared length overrun the buffer.
	enc = enc[:len(enc)-1]
	if _, _, err := DecodeFrame(enc, 0); err != ErrTruncatedFrame {
		t.Fatalf("expected ErrTruncatedFrame, got %v", err)
	}
}

func TestDecodeFrameReservedBits(t *testing.T) {
	f := StreamFrame{StreamID: 1, Offset: 0, Payload: []byte("x")}
	enc := f.Encode(nil)
	enc[20] |= 0x2 // set a reserved flag bit
	if _, _, err := DecodeFrame(enc, 0); err != ErrReservedBitsSet {
		t.Fatalf("expected ErrReservedBitsSet, got %v", err)
	}
}

func TestStreamFrameOrderingAtOffsetInPacket(t *testing.T) {
	var buf []byte
	f1 := StreamFrame{StreamID: 0, Offset: 0, Length: 3, Payload: []byte("abc")}
	f2 := StreamFrame{StreamID: 0, Offset: 3, Length: 3, Fin: true, Payload: []byte("def")}
	buf = f1.Encode(buf)
	buf = f2.Encode(buf)

	got1, cursor, err := DecodeFrame(buf, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer ReleaseStreamFrame(got1)

	got2, cursor, err := DecodeFrame(buf, cursor)
	if err != nil {
		t.Fatal(err)
	}
	defer ReleaseStreamFrame(got2)

	if cursor != len(buf) {
		t.Fatalf("cursor %d != %d", cursor, len(buf))
	}
	if !bytes.Equal(got1.Payload, []byte("abc")) || !bytes.Equal(got2.Payload, []byte("def")) {
		t.Fatalf("unexpected payloads: %s %s", got1.Payload, got2.Payload)
	}
}
