package miniquic

import (
	"net"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/domsolutions/miniquic/internal/streamio"
	"github.com/domsolutions/miniquic/internal/wire"
	"github.com/valyala/fastrand"
)

// StreamSide tells OpenStream which half of a unidirectional stream this
// endpoint owns. Ignored for bidirectional stream ids, which always get
// both halves.
type StreamSide int

const (
	SideSend StreamSide = iota
	SideReceive
)

// QuicConnection multiplexes a set of streams over a single UDP socket, per
// spec.md section 4.7: one send scheduler packing frames into size-bounded
// packets round-robin across streams with pending data, and one receive
// dispatcher parsing inbound packets and routing frames to stream state.
//
// Grounded on the teacher's Conn: one net.Conn, a guarded stream table, and
// packet-number bookkeeping, generalized from HTTP/2's single ordered stream
// list to round-robin fair scheduling and from stdlib framing to this
// module's fixed-width wire format.
type QuicConnection struct {
	cfg Config

	conn *net.UDPConn
	peer *net.UDPAddr

	connID wire.ConnectionID

	// mu guards streams, failed and rrCursor: per spec.md section 5, the
	// send and receive loops may run on separate goroutines and the stream
	// table must present consistent state to each operation. Individual
	// operations are short and non-blocking, so a single mutex suffices.
	mu       sync.Mutex
	streams  map[uint64]*streamio.Stream
	failed   map[uint64]struct{}
	rrCursor int

	sendPN uint64
	recvPN uint64

	stats *statCounters

	closed bool
}

// NewConnection opens a UDP socket bound to localAddr and targets peerAddr.
// A zero ConnectionID is replaced by an 8-byte identifier drawn from
// fastrand, mirroring the teacher's use of that library for non-protocol
// randomness (this module excludes cryptographic connection ids; see
// spec.md's Non-goals).
func NewConnection(cfg Config, connID wire.ConnectionID, localAddr, peerAddr string) (*QuicConnection, error) {
	cfg = cfg.applyDefaults()

	laddr, err := net.ResolveUDPAddr("udp", localAddr)
	if err != nil {
		return nil, wrapSocketError("resolve local addr", err)
	}
	raddr, err := net.ResolveUDPAddr("udp", peerAddr)
	if err != nil {
		return nil, wrapSocketError("resolve peer addr", err)
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return nil, wrapSocketError("listen", err)
	}

	if connID == (wire.ConnectionID{}) {
		connID = newConnectionID()
	}

	return &QuicConnection{
		cfg:     cfg,
		conn:    conn,
		peer:    raddr,
		connID:  connID,
		streams: make(map[uint64]*streamio.Stream),
		failed:  make(map[uint64]struct{}),
		stats:   newStatCounters(),
	}, nil
}

func newConnectionID() wire.ConnectionID {
	var id wire.ConnectionID
	for i := range id {
		id[i] = byte(fastrand.Uint32n(256))
	}
	return id
}

// ConnectionID returns the id this connection advertises on outbound
// packets.
func (c *QuicConnection) ConnectionID() wire.ConnectionID {
	return c.connID
}

// Stats returns a point-in-time snapshot of this connection's counters.
func (c *QuicConnection) Stats() Stats {
	return c.stats.snapshot()
}

// Close releases the underlying socket. It does not flush pending stream
// data; callers should drain streams to completion first.
func (c *QuicConnection) Close() error {
	c.closed = true
	return c.conn.Close()
}

// OpenStream creates local stream state for id if it does not already
// exist. Bidirectional ids (spec.md section 3) always get both a sender and
// a receiver; unidirectional ids get only the half named by side. Returns
// ErrTooManyStreams once MaxStreams local streams are open.
func (c *QuicConnection) OpenStream(id uint64, side StreamSide) (*streamio.Stream, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.openStreamLocked(id, side)
}

func (c *QuicConnection) openStreamLocked(id uint64, side StreamSide) (*streamio.Stream, error) {
	if st, ok := c.streams[id]; ok {
		return st, nil
	}
	if len(c.streams) >= c.cfg.MaxStreams {
		return nil, ErrTooManyStreams
	}

	var sender *streamio.StreamSender
	var receiver *streamio.StreamReceiver

	minPayload := c.minFramePayload()
	if streamio.DirectionOf(id) == streamio.Bidirectional || side == SideSend {
		sender = streamio.NewStreamSender(id, minPayload)
	}
	if streamio.DirectionOf(id) == streamio.Bidirectional || side == SideReceive {
		receiver = streamio.NewStreamReceiver()
	}

	st := streamio.NewStream(id, sender, receiver)
	c.streams[id] = st
	return st, nil
}

func (c *QuicConnection) getStream(id uint64) (*streamio.Stream, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.streams[id]
	return st, ok
}

// Write appends data to a stream's send buffer. A violation of the send
// side's invariants (e.g. writing after Finish) marks the stream failed and
// excludes it from future scheduling.
func (c *QuicConnection) Write(id uint64, data []byte) error {
	st, ok := c.getStream(id)
	if !ok {
		return ErrUnknownStream
	}
	if err := st.AddData(data); err != nil {
		c.markFailed(id, err)
		return err
	}
	return nil
}

// Finish marks a stream's send side complete; its final frame carries FIN.
func (c *QuicConnection) Finish(id uint64) error {
	st, ok := c.getStream(id)
	if !ok {
		return ErrUnknownStream
	}
	return st.Finish()
}

// Read drains the in-order bytes delivered to a stream since the last call.
func (c *QuicConnection) Read(id uint64) ([]byte, error) {
	st, ok := c.getStream(id)
	if !ok {
		return nil, ErrUnknownStream
	}
	return st.ReadAvailable()
}

// IsStreamTerminal reports whether id has reached its terminal state on
// every half it owns locally.
func (c *QuicConnection) IsStreamTerminal(id uint64) bool {
	st, ok := c.getStream(id)
	return ok && st.IsTerminal()
}

// IsSendComplete reports whether id's send half (if any) has emitted its
// terminal FIN frame. Useful for drivers that only care about their own
// outbound progress rather than full bidirectional termination.
func (c *QuicConnection) IsSendComplete(id uint64) bool {
	st, ok := c.getStream(id)
	return ok && (st.Sender == nil || st.Sender.Done())
}

func (c *QuicConnection) markFailed(id uint64, err error) {
	c.mu.Lock()
	c.failed[id] = struct{}{}
	c.mu.Unlock()
	atomic.AddUint64(&c.stats.streamErrors, 1)
	c.cfg.Logger.Printf("stream %d failed: %s", id, err)
}

func (c *QuicConnection) isFailed(id uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, bad := c.failed[id]
	return bad
}

func (c *QuicConnection) minFramePayload() int {
	n := c.cfg.MinPacketSize - wire.HeaderSize - wire.FrameHeaderSize
	if n < 1 {
		n = 1
	}
	return n
}

// sortedStreamIDs returns a stable snapshot of stream ids under lock. The
// scheduler then offers frames to each id without holding the connection
// mutex, since stream-level operations are independently synchronized.
func (c *QuicConnection) sortedStreamIDs() []uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]uint64, 0, len(c.streams))
	for id := range c.streams {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (c *QuicConnection) streamByID(id uint64) *streamio.Stream {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.streams[id]
}

// SchedulePass runs one round of the send scheduler: it offers every stream
// with pending data a chance to contribute one frame, round-robin starting
// from the stream after the one that started the previous pass, packs the
// result into a single packet bounded by MaxPacketSize, and transmits it if
// non-empty. Returns sent=false when there was nothing to send.
func (c *QuicConnection) SchedulePass() (sent bool, err error) {
	if c.closed {
		return false, nil
	}

	ids := c.sortedStreamIDs()
	n := len(ids)

	c.sendPN++
	pkt := &wire.Packet{Header: wire.PacketHeader{PacketNumber: c.sendPN, ConnectionID: c.connID}}
	remaining := c.cfg.MaxPacketSize - wire.HeaderSize
	minPayload := c.minFramePayload()

	type failure struct {
		id  uint64
		err error
	}
	var failures []failure

	c.mu.Lock()
	cursor := c.rrCursor
	c.mu.Unlock()

	for i := 0; i < n; i++ {
		id := ids[(cursor+i)%n]
		if c.isFailed(id) {
			continue
		}
		st := c.streamByID(id)
		if st == nil || !st.HasDataToSend() {
			continue
		}

		maxPayload := remaining - wire.FrameHeaderSize
		if maxPayload < 1 {
			break
		}

		f, ferr := st.NextFrame(maxPayload)
		if ferr != nil {
			failures = append(failures, failure{id, ferr})
			continue
		}
		if f == nil {
			continue
		}

		pkt.Frames = append(pkt.Frames, f)
		remaining -= f.EncodedSize()
		if remaining < minPayload+wire.FrameHeaderSize {
			break
		}
	}
	if n > 0 {
		c.mu.Lock()
		c.rrCursor = (cursor + 1) % n
		c.mu.Unlock()
	}

	for _, f := range failures {
		c.markFailed(f.id, f.err)
	}

	if len(pkt.Frames) == 0 {
		return false, nil
	}

	bb, encErr := pkt.Encode(c.cfg.MaxPacketSize)
	defer func() {
		pkt.Release()
		if bb != nil {
			wire.ReleasePacketBuffer(bb)
		}
	}()
	if encErr != nil {
		return false, encErr
	}

	if _, werr := c.conn.WriteToUDP(bb.B, c.peer); werr != nil {
		return false, wrapSocketError("write", werr)
	}

	atomic.AddUint64(&c.stats.packetsSent, 1)
	atomic.AddUint64(&c.stats.bytesSent, uint64(len(bb.B)))
	return true, nil
}

// ReceivePass blocks for up to Config.Timeout waiting for one datagram,
// parses it, and dispatches its frames. A datagram that fails to parse is
// dropped and counted rather than tearing down the connection; a frame for
// an unknown stream id auto-creates a receive-only stream half, matching
// spec.md section 5's "unknown ids are accepted, not rejected" stance,
// unless MaxStreams has been reached, in which case it is dropped silently.
// A timeout is returned unwrapped so callers can use net.Error.Timeout() as
// their end-of-traffic heuristic.
func (c *QuicConnection) ReceivePass() error {
	buf := make([]byte, c.cfg.MaxPacketSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(c.cfg.Timeout)); err != nil {
		return wrapSocketError("set read deadline", err)
	}

	n, _, err := c.conn.ReadFromUDP(buf)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return err
		}
		return wrapSocketError("read", err)
	}
	atomic.AddUint64(&c.stats.bytesReceived, uint64(n))

	pkt, perr := wire.DecodePacket(buf[:n])
	if perr != nil {
		atomic.AddUint64(&c.stats.droppedDatagrams, 1)
		c.cfg.Logger.Printf("dropped datagram (%d bytes): %s", n, perr)
		return nil
	}
	defer pkt.Release()

	c.recvPN++
	atomic.AddUint64(&c.stats.packetsRecv, 1)

	for _, f := range pkt.Frames {
		st, exists := c.getStream(f.StreamID)
		if !exists {
			var err error
			st, err = c.OpenStream(f.StreamID, SideReceive)
			if err != nil {
				// MaxStreams reached: drop the frame silently rather than
				// tearing down the connection.
				continue
			}
		}
		if c.isFailed(f.StreamID) {
			continue
		}
		if derr := st.Deliver(f); derr != nil {
			c.markFailed(f.StreamID, derr)
		}
	}
	return nil
}
