// Command miniquic-send reads a file and drives it across a QuicConnection
// as a single stream, printing throughput statistics once the stream's FIN
// has been sent. There is no acknowledgment from the peer: the driver writes
// the whole file, issues Finish, and keeps scheduling until the stream's
// send half has emitted its FIN frame.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/cobra"

	"github.com/domsolutions/miniquic"
	"github.com/domsolutions/miniquic/internal/wire"
)

var rootCmd = &cobra.Command{
	Use:   "miniquic-send",
	Short: "Send a file over a miniquic connection",
	Run:   runSend,
}

func init() {
	rootCmd.Flags().String("file", "", "path to the file to send")
	rootCmd.Flags().String("local", "127.0.0.1:9001", "local UDP address to bind")
	rootCmd.Flags().String("peer", "127.0.0.1:9000", "peer UDP address to send to")
	rootCmd.Flags().Uint64("stream", 2, "stream id to send on (bit 1 set selects a unidirectional send-only stream)")
	rootCmd.Flags().Int("max-packet-size", miniquic.DefaultMaxPacketSize, "maximum datagram size")
	rootCmd.Flags().Int("min-packet-size", miniquic.DefaultMinPacketSize, "advisory minimum packet fill before flushing")
	_ = rootCmd.MarkFlagRequired("file")
}

func runSend(cmd *cobra.Command, args []string) {
	flags := cmd.Flags()

	filePath, _ := flags.GetString("file")
	local, _ := flags.GetString("local")
	peer, _ := flags.GetString("peer")
	streamIDRaw, _ := flags.GetUint64("stream")
	maxPacketSize, _ := flags.GetInt("max-packet-size")
	minPacketSize, _ := flags.GetInt("min-packet-size")

	streamID := cast.ToUint64(streamIDRaw)

	data, err := os.ReadFile(filePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "miniquic-send: read %s: %v\n", filePath, err)
		os.Exit(1)
	}

	cfg := miniquic.Config{
		MaxPacketSize: maxPacketSize,
		MinPacketSize: minPacketSize,
	}

	conn, err := miniquic.NewConnection(cfg, wire.ConnectionID{}, local, peer)
	if err != nil {
		fmt.Fprintf(os.Stderr, "miniquic-send: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	if _, err := conn.OpenStream(streamID, miniquic.SideSend); err != nil {
		fmt.Fprintf(os.Stderr, "miniquic-send: open stream %d: %v\n", streamID, err)
		os.Exit(1)
	}
	if err := conn.Write(streamID, data); err != nil {
		fmt.Fprintf(os.Stderr, "miniquic-send: write: %v\n", err)
		os.Exit(1)
	}
	if err := conn.Finish(streamID); err != nil {
		fmt.Fprintf(os.Stderr, "miniquic-send: finish: %v\n", err)
		os.Exit(1)
	}

	for !conn.IsSendComplete(streamID) {
		sent, err := conn.SchedulePass()
		if err != nil {
			fmt.Fprintf(os.Stderr, "miniquic-send: %v\n", err)
			os.Exit(1)
		}
		if !sent {
			time.Sleep(time.Millisecond)
		}
	}

	stats := conn.Stats()
	fmt.Printf("sent %d bytes, %d packets, %.0f B/s, %.0f pkt/s, elapsed %s\n",
		stats.BytesSent, stats.PacketsSent, stats.ByteRate(), stats.PacketRate(), stats.Elapsed)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
