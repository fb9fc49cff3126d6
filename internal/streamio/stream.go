package streamio

import "github.com/domsolutions/miniquic/internal/wire"

// Direction is derived from bit 1 of a stream id and is observable metadata
// only; this core's scheduling and reassembly logic do not branch on it
// beyond rejecting writes/deliveries to the absent half.
type Direction int

const (
	Bidirectional Direction = iota
	Unidirectional
)

func (d Direction) String() string {
	if d == Unidirectional {
		return "unidirectional"
	}
	return "bidirectional"
}

// DirectionOf derives a stream's directionality from its id.
func DirectionOf(streamID uint64) Direction {
	if streamID&0x2 != 0 {
		return Unidirectional
	}
	return Bidirectional
}

// Stream pairs a sender half and a receiver half under one stream id. A
// unidirectional stream owned by one endpoint has only the half it needs;
// the other is nil and operations against it fail with ErrWrongDirection.
type Stream struct {
	ID        uint64
	Dir       Direction
	Sender    *StreamSender
	Receiver  *StreamReceiver
}

// NewStream builds a Stream with the given halves; either may be nil.
func NewStream(id uint64, sender *StreamSender, receiver *StreamReceiver) *Stream {
	return &Stream{ID: id, Dir: DirectionOf(id), Sender: sender, Receiver: receiver}
}

// HasDataToSend reports whether NextFrame would currently produce a frame.
func (s *Stream) HasDataToSend() bool {
	return s.Sender != nil && s.Sender.HasDataToSend()
}

// AddData appends application bytes to this stream's send buffer.
func (s *Stream) AddData(b []byte) error {
	if s.Sender == nil {
		return ErrWrongDirection
	}
	return s.Sender.AddData(b)
}

// Finish marks the stream's send side as complete.
func (s *Stream) Finish() error {
	if s.Sender == nil {
		return ErrWrongDirection
	}
	s.Sender.Finish()
	return nil
}

// ReadAvailable returns the in-order bytes ready since the last call.
func (s *Stream) ReadAvailable() ([]byte, error) {
	if s.Receiver == nil {
		return nil, ErrWrongDirection
	}
	return s.Receiver.ReadAvailable(), nil
}

// IsComplete reports whether this stream's receive half has observed FIN
// and delivered every byte up to it. A send-only stream is never "complete"
// through this call; use IsTerminal for overall lifecycle.
func (s *Stream) IsComplete() bool {
	return s.Receiver != nil && s.Receiver.IsComplete()
}

// NextFrame asks this stream's sender for its next frame.
func (s *Stream) NextFrame(maxPayload int) (*wire.StreamFrame, error) {
	if s.Sender == nil {
		return nil, ErrWrongDirection
	}
	return s.Sender.GenerateFrame(maxPayload)
}

// Deliver hands a received frame to this stream's receiver.
func (s *Stream) Deliver(f *wire.StreamFrame) error {
	if s.Receiver == nil {
		return ErrWrongDirection
	}
	return s.Receiver.ReceiveFrame(f)
}

// IsTerminal reports whether both halves present on this stream (if any)
// have reached their terminal state.
func (s *Stream) IsTerminal() bool {
	senderDone := s.Sender == nil || s.Sender.Done()
	receiverDone := s.Receiver == nil || s.Receiver.IsComplete()
	return senderDone && receiverDone
}
