// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.bug.st/serial"

	"github.com/Thermoquad/sen6x/pkg/sen6x"
)

var discoveryCommands bool

var discoveryCmd = &cobra.Command{
	Use:   "discovery",
	Short: "Find serial ports and detect the attached module",
	Long: `List the serial ports a bridge could be attached to, then probe the
configured connection for a SEN6x module.

Detection always runs, whatever --variant says: the product name is read at
the shared address and, failing that, the SEN60 serial number is read at its
own address.

Examples:
  # Only list serial ports
  sen6x discovery

  # Probe a module behind a serial bridge and show its opcode table
  sen6x discovery --port /dev/ttyUSB0 --commands

Exit codes:
  0 - Module detected (or no connection configured)
  1 - No module responded
  2 - Connection error`,
	Args: cobra.NoArgs,
	RunE: runDiscovery,
}

func init() {
	rootCmd.AddCommand(discoveryCmd)
	discoveryCmd.Flags().BoolVar(&discoveryCommands, "commands", false, "List the opcodes of the detected variant")
}

func runDiscovery(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "SEN6x - Discovery\n\n")

	ports, err := serial.GetPortsList()
	if err != nil {
		fmt.Fprintf(out, "Serial ports: unavailable (%v)\n", err)
	} else if len(ports) == 0 {
		fmt.Fprintf(out, "Serial ports: none found\n")
	} else {
		fmt.Fprintf(out, "Serial ports:\n")
		for _, p := range ports {
			fmt.Fprintf(out, "  %s\n", p)
		}
	}

	dc := cfg.Device
	if dc.I2C == "" && dc.Port == "" && dc.URL == "" {
		return nil
	}
	dc.Variant = "auto"

	fmt.Fprintf(out, "\nProbing...\n")
	s, err := OpenSession(dc)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Discovery failed: %v\n", err)
		if errors.Is(err, errNoModule) {
			os.Exit(1)
		}
		os.Exit(2)
	}
	defer s.Close()

	d := s.Device
	fmt.Fprintf(out, "\nModule found:\n")
	fmt.Fprintf(out, "  Connection: %s\n", s.Info)
	fmt.Fprintf(out, "  Variant:    %s\n", d.Variant())
	fmt.Fprintf(out, "  Address:    0x%02X\n", d.Address())
	if serialNumber, err := d.SerialNumber(); err == nil {
		fmt.Fprintf(out, "  Serial:     %s\n", serialNumber)
	}
	if v, err := d.Version(); err == nil {
		fmt.Fprintf(out, "  Firmware:   %s\n", sen6x.FormatVersion(v))
	}

	if discoveryCommands {
		fmt.Fprintln(out)
		printOpcodes(out, d.Variant())
	}
	return nil
}

// printOpcodes writes the opcode table of v, marking unsupported commands
func printOpcodes(w io.Writer, v sen6x.Variant) {
	fmt.Fprintf(w, "%s opcodes:\n", v)
	for _, c := range sen6x.Commands() {
		op, ok := sen6x.Resolve(v, c)
		if !ok {
			fmt.Fprintf(w, "  %-26s  -\n", c)
			continue
		}
		fmt.Fprintf(w, "  %-26s  0x%04X\n", c, op)
	}
}
