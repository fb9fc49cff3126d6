// Package streamio implements the per-stream send/receive state engine:
// offset-indexed chunking on the send side, offset-indexed reassembly on
// the receive side, and the Stream type that pairs the two under a shared
// stream id.
package streamio

import "errors"

var (
	// ErrWriteAfterFin is returned by AddData once Finish has been called.
	ErrWriteAfterFin = errors.New("write after fin")
	// ErrFrameTooSmall is returned by GenerateFrame when maxPayload cannot
	// fit at least one byte of payload and no FIN is pending.
	ErrFrameTooSmall = errors.New("max payload too small for a frame")
	// ErrFinContradicted is returned when a frame's range extends past an
	// already-observed FIN offset.
	ErrFinContradicted = errors.New("frame offset exceeds fin offset")
	// ErrFinConflict is returned when two FIN frames disagree on the final size.
	ErrFinConflict = errors.New("fin offset conflicts with previous fin")
	// ErrWrongDirection is returned when a caller tries to write to a
	// receive-only stream half or read from a send-only one. Not part of
	// spec.md's enumerated error kinds, but required by the directionality
	// invariant in spec.md section 3.
	ErrWrongDirection = errors.New("operation not permitted by stream direction")
)
