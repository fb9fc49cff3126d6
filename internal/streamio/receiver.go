package streamio

import (
	"sort"
	"sync"

	"github.com/domsolutions/miniquic/internal/wire"
)

type segment struct {
	offset uint64
	data   []byte
}

// StreamReceiver reassembles StreamFrames arriving at arbitrary offsets
// into an in-order byte prefix. Overlapping ranges are resolved
// first-writer-wins: bytes already delivered or already buffered are never
// overwritten by a later frame covering the same positions, which makes
// duplicate delivery idempotent.
type StreamReceiver struct {
	mu sync.Mutex

	segments      []segment
	deliveredUpto uint64
	ready         []byte

	finSet    bool
	finOffset uint64
}

// NewStreamReceiver returns an empty receiver.
func NewStreamReceiver() *StreamReceiver {
	return &StreamReceiver{}
}

// ReceiveFrame inserts f's payload at f.Offset, discarding any bytes that
// overlap an already-delivered or already-buffered range. If f.Fin is set,
// fin_offset is recorded as f.Offset+f.Length.
func (r *StreamReceiver) ReceiveFrame(f *wire.StreamFrame) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	end := f.Offset + uint64(f.Length)

	if r.finSet && end > r.finOffset {
		return ErrFinContradicted
	}
	if f.Fin {
		if r.finSet && r.finOffset != end {
			return ErrFinConflict
		}
		r.finSet = true
		r.finOffset = end
	}

	offset := f.Offset
	payload := f.Payload

	if offset < r.deliveredUpto {
		drop := r.deliveredUpto - offset
		if drop >= uint64(len(payload)) {
			payload = nil
		} else {
			payload = payload[drop:]
		}
		offset = r.deliveredUpto
	}

	if len(payload) > 0 {
		r.insertSegment(offset, payload)
		r.advance()
	}

	return nil
}

// insertSegment buffers the portions of [offset, offset+len(data)) not
// already covered by a buffered segment; covered portions are dropped
// (first-writer-wins).
func (r *StreamReceiver) insertSegment(offset uint64, data []byte) {
	covEnd := offset + uint64(len(data))

	type interval struct{ s, e uint64 }
	var overlapping []interval
	for _, seg := range r.segments {
		s := seg.offset
		e := seg.offset + uint64(len(seg.data))
		if e > offset && s < covEnd {
			overlapping = append(overlapping, interval{s, e})
		}
	}
	sort.Slice(overlapping, func(i, j int) bool { return overlapping[i].s < overlapping[j].s })

	cursor := offset
	for _, iv := range overlapping {
		if iv.s > cursor {
			r.addSegment(cursor, data[cursor-offset:iv.s-offset])
		}
		if iv.e > cursor {
			cursor = iv.e
		}
	}
	if cursor < covEnd {
		r.addSegment(cursor, data[cursor-offset:])
	}
}

func (r *StreamReceiver) addSegment(offset uint64, data []byte) {
	owned := make([]byte, len(data))
	copy(owned, data)
	r.segments = append(r.segments, segment{offset: offset, data: owned})
}

// advance repeatedly consumes the buffered segment starting exactly at
// deliveredUpto, appending its bytes to the ready-to-read prefix.
func (r *StreamReceiver) advance() {
	for {
		consumed := false
		for i, seg := range r.segments {
			if seg.offset == r.deliveredUpto {
				r.ready = append(r.ready, seg.data...)
				r.deliveredUpto += uint64(len(seg.data))
				r.segments = append(r.segments[:i], r.segments[i+1:]...)
				consumed = true
				break
			}
		}
		if !consumed {
			return
		}
	}
}

// ReadAvailable returns the in-order bytes accumulated since the last call
// and advances the reader position past them.
func (r *StreamReceiver) ReadAvailable() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.ready) == 0 {
		return nil
	}
	out := r.ready
	r.ready = nil
	return out
}

// IsComplete reports whether FIN has been observed and every byte up to it
// has been delivered into the ready prefix (read or not).
func (r *StreamReceiver) IsComplete() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finSet && r.deliveredUpto == r.finOffset
}

// DeliveredUpto returns the current in-order boundary, for diagnostics.
func (r *StreamReceiver) DeliveredUpto() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.deliveredUpto
}
