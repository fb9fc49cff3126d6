package miniquic

import (
	"sync/atomic"
	"time"
)

// Stats is the connection-wide reporting surface: total bytes, total
// packets, byte rate, packet rate, elapsed time, plus error counters. All
// counters are summed over every stream; no per-stream breakdown is kept.
type Stats struct {
	BytesSent     uint64
	BytesReceived uint64
	PacketsSent   uint64
	PacketsRecv   uint64

	// DroppedDatagrams counts datagrams discarded by the receive
	// dispatcher because they failed to parse.
	DroppedDatagrams uint64
	// StreamErrors counts stream-scope invariant violations (e.g.
	// WriteAfterFin, FinContradicted) that marked a stream failed.
	StreamErrors uint64

	Elapsed time.Duration
}

// ByteRate returns BytesSent+BytesReceived divided by elapsed seconds.
func (s Stats) ByteRate() float64 {
	secs := s.Elapsed.Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(s.BytesSent+s.BytesReceived) / secs
}

// PacketRate returns PacketsSent+PacketsRecv divided by elapsed seconds.
func (s Stats) PacketRate() float64 {
	secs := s.Elapsed.Seconds()
	if secs <= 0 {
		return 0
	}
	return float64(s.PacketsSent+s.PacketsRecv) / secs
}

// statCounters holds the live atomic counters a QuicConnection updates;
// Stats is a point-in-time snapshot taken from these plus a start time.
type statCounters struct {
	bytesSent        uint64
	bytesReceived    uint64
	packetsSent      uint64
	packetsRecv      uint64
	droppedDatagrams uint64
	streamErrors     uint64

	start time.Time
}

func newStatCounters() *statCounters {
	return &statCounters{start: time.Now()}
}

func (c *statCounters) snapshot() Stats {
	return Stats{
		BytesSent:        atomic.LoadUint64(&c.bytesSent),
		BytesReceived:    atomic.LoadUint64(&c.bytesReceived),
		PacketsSent:      atomic.LoadUint64(&c.packetsSent),
		PacketsRecv:      atomic.LoadUint64(&c.packetsRecv),
		DroppedDatagrams: atomic.LoadUint64(&c.droppedDatagrams),
		StreamErrors:     atomic.LoadUint64(&c.streamErrors),
		Elapsed:          time.Since(c.start),
	}
}
