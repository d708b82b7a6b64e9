// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/sen6x/pkg/bridge"
)

var rawLogHex bool

var rawLogCmd = &cobra.Command{
	Use:   "raw-log",
	Short: "Display bridge packets in human-readable format",
	Long: `Continuously decode and display bridge packets as they arrive.

Nothing is sent. Useful on a serial tap or a WebSocket shared with another
client to watch the I2C transactions it forwards.`,
	Args: cobra.NoArgs,
	RunE: runRawLog,
}

func init() {
	rootCmd.AddCommand(rawLogCmd)
	rawLogCmd.Flags().BoolVar(&rawLogHex, "hex", false, "Also print the wire bytes of each frame")
}

func runRawLog(cmd *cobra.Command, args []string) error {
	conn, connInfo, err := OpenConnection(cfg.Device)
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("sen6x - Raw Packet Log\n")
	fmt.Printf("Connection: %s\n", connInfo)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	return logPackets(conn)
}

// logPackets prints every packet decoded from r until r fails
func logPackets(r io.Reader) error {
	decoder := bridge.NewDecoder()
	buf := make([]byte, 128)
	var wire []byte

	for {
		n, err := r.Read(buf)
		for i := 0; i < n; i++ {
			if buf[i] == bridge.StartByte {
				wire = wire[:0]
			}
			wire = append(wire, buf[i])

			packet, derr := decoder.DecodeByte(buf[i])
			if derr != nil {
				fmt.Printf("[ERROR] %v\n", derr)
				if rawLogHex {
					fmt.Printf("  wire: % X\n", wire)
				}
				continue
			}
			if packet == nil {
				continue
			}
			fmt.Println(packet)
			if rawLogHex {
				fmt.Printf("  wire: % X\n", wire)
			}
		}

		if err != nil {
			if errors.Is(err, ErrConnectionClosed) || errors.Is(err, io.EOF) {
				logger.Info("Connection closed")
				return nil
			}
			return fmt.Errorf("read error: %w", err)
		}
	}
}
