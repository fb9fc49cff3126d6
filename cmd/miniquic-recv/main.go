// Command miniquic-recv listens on a UDP address, reassembles a single
// stream's bytes to a file, and exits once that stream's receive half
// observes FIN or the socket falls silent for Config.Timeout.
package main

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/cobra"

	"github.com/domsolutions/miniquic"
	"github.com/domsolutions/miniquic/internal/wire"
)

var rootCmd = &cobra.Command{
	Use:   "miniquic-recv",
	Short: "Receive a stream over a miniquic connection and write it to a file",
	Run:   runRecv,
}

func init() {
	rootCmd.Flags().String("out", "", "path to write the received stream to")
	rootCmd.Flags().String("local", "127.0.0.1:9000", "local UDP address to bind")
	rootCmd.Flags().String("peer", "127.0.0.1:9001", "peer UDP address this connection exchanges with")
	rootCmd.Flags().Uint64("stream", 2, "stream id to receive")
	rootCmd.Flags().Int("max-packet-size", miniquic.DefaultMaxPacketSize, "maximum datagram size")
	rootCmd.Flags().Int("timeout", int(miniquic.DefaultTimeout.Seconds()), "receive socket timeout in seconds, doubling as end-of-connection heuristic")
	_ = rootCmd.MarkFlagRequired("out")
}

func runRecv(cmd *cobra.Command, args []string) {
	flags := cmd.Flags()

	outPath, _ := flags.GetString("out")
	local, _ := flags.GetString("local")
	peer, _ := flags.GetString("peer")
	streamIDRaw, _ := flags.GetUint64("stream")
	maxPacketSize, _ := flags.GetInt("max-packet-size")
	timeoutSecs, _ := flags.GetInt("timeout")

	streamID := cast.ToUint64(streamIDRaw)

	cfg := miniquic.Config{
		MaxPacketSize: maxPacketSize,
		Timeout:       time.Duration(timeoutSecs) * time.Second,
	}

	conn, err := miniquic.NewConnection(cfg, wire.ConnectionID{}, local, peer)
	if err != nil {
		fmt.Fprintf(os.Stderr, "miniquic-recv: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	if _, err := conn.OpenStream(streamID, miniquic.SideReceive); err != nil {
		fmt.Fprintf(os.Stderr, "miniquic-recv: open stream %d: %v\n", streamID, err)
		os.Exit(1)
	}

	out, err := os.Create(outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "miniquic-recv: create %s: %v\n", outPath, err)
		os.Exit(1)
	}
	defer out.Close()

	for {
		if err := conn.ReceivePass(); err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				break
			}
			fmt.Fprintf(os.Stderr, "miniquic-recv: %v\n", err)
			os.Exit(1)
		}

		b, err := conn.Read(streamID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "miniquic-recv: read stream %d: %v\n", streamID, err)
			os.Exit(1)
		}
		if len(b) > 0 {
			if _, err := out.Write(b); err != nil {
				fmt.Fprintf(os.Stderr, "miniquic-recv: write %s: %v\n", outPath, err)
				os.Exit(1)
			}
		}

		if conn.IsStreamTerminal(streamID) {
			break
		}
	}

	stats := conn.Stats()
	fmt.Printf("received %d bytes, %d packets, %d dropped datagrams, %.0f B/s, elapsed %s\n",
		stats.BytesReceived, stats.PacketsRecv, stats.DroppedDatagrams, stats.ByteRate(), stats.Elapsed)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
