package streamio

import (
	"sync"

	"github.com/domsolutions/miniquic/internal/wire"
)

// StreamSender chunks an application byte buffer into StreamFrames in
// strictly increasing, contiguous, non-overlapping offset order, marking
// FIN exactly once.
//
// FIN placement: a frame carries fin=true exactly when Finish has been
// called and that frame's payload drains the buffered remainder to zero.
// If the remainder is already zero by the time Finish takes effect and a
// frame is requested, that frame is an explicit empty-payload terminator
// (spec.md section 4.5); otherwise FIN rides directly on the last
// data-bearing chunk.
type StreamSender struct {
	mu sync.Mutex

	streamID   uint64
	buf        []byte
	nextOffset uint64
	finished   bool
	finSent    bool
	minPayload int
}

// NewStreamSender returns a sender for streamID. minPayload is the
// MIN_PACKET_SIZE-derived lower bound below which a non-final chunk is
// withheld until more data accumulates.
func NewStreamSender(streamID uint64, minPayload int) *StreamSender {
	return &StreamSender{streamID: streamID, minPayload: minPayload}
}

// AddData appends b to the source buffer.
func (s *StreamSender) AddData(b []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finished {
		return ErrWriteAfterFin
	}
	s.buf = append(s.buf, b...)
	return nil
}

// Finish marks the current end of the buffer as final; FIN will be carried
// by the frame that drains the last byte.
func (s *StreamSender) Finish() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finished = true
}

// HasDataToSend reports whether a call to GenerateFrame would currently
// produce a frame.
func (s *StreamSender) HasDataToSend() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasDataToSendLocked()
}

func (s *StreamSender) hasDataToSendLocked() bool {
	if s.finSent {
		return false
	}
	if len(s.buf) > 0 {
		return s.finished || len(s.buf) >= s.minPayload
	}
	return s.finished
}

// Done reports whether this sender has emitted its FIN and has nothing
// outstanding.
func (s *StreamSender) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finSent
}

// GenerateFrame produces the next frame for this stream, whose payload size
// is min(buffered_remaining, maxPayload). It returns (nil, nil) when there
// is currently nothing to send, and ErrFrameTooSmall when maxPayload cannot
// fit at least one byte and no FIN is pending. The returned frame is
// acquired from wire's pool; release it with wire.ReleaseStreamFrame once
// encoded.
func (s *StreamSender) GenerateFrame(maxPayload int) (*wire.StreamFrame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.finSent {
		return nil, nil
	}

	available := len(s.buf)

	if available == 0 {
		if !s.finished {
			return nil, nil
		}
		f := wire.AcquireStreamFrame()
		f.StreamID = s.streamID
		f.Offset = s.nextOffset
		f.Fin = true
		s.finSent = true
		return f, nil
	}

	if !s.finished && available < s.minPayload {
		// Not enough buffered to justify a non-final chunk yet; wait for
		// more data rather than emit something smaller than minPayload.
		return nil, nil
	}

	if maxPayload < 1 {
		return nil, ErrFrameTooSmall
	}

	n := maxPayload
	if n > available {
		n = available
	}
	isFinal := s.finished && n == available

	f := wire.AcquireStreamFrame()
	f.StreamID = s.streamID
	f.Offset = s.nextOffset
	f.Payload = append(f.Payload[:0], s.buf[:n]...)
	f.Length = uint32(n)
	f.Fin = isFinal

	s.buf = s.buf[n:]
	s.nextOffset += uint64(n)
	if isFinal {
		s.finSent = true
	}

	return f, nil
}
