// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/sen6x/pkg/sen6x"
)

var infoClearStatus bool

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show module identity, firmware version and device status",
	Long: `Identify the connected module and print its product name, serial number,
version and device status.

The device status is read without clearing it unless --clear is given.`,
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
	infoCmd.Flags().BoolVar(&infoClearStatus, "clear", false, "Clear the device status after reading it")
}

func runInfo(cmd *cobra.Command, args []string) error {
	s, err := OpenSession(cfg.Device)
	if err != nil {
		return err
	}
	defer s.Close()

	d := s.Device
	fmt.Printf("Connection: %s\n", s.Info)
	fmt.Printf("Variant:    %s (detected: %v, address 0x%02X)\n", d.Variant(), d.Detected(), d.Address())

	name, err := d.ProductName()
	switch {
	case err == nil:
		fmt.Printf("Product:    %s\n", name)
	case errors.Is(err, sen6x.ErrUnknownCommand):
		fmt.Printf("Product:    (not reported by %s)\n", d.Variant())
	default:
		return fmt.Errorf("failed to read product name: %w", err)
	}

	serial, err := d.SerialNumber()
	if err != nil {
		return fmt.Errorf("failed to read serial number: %w", err)
	}
	fmt.Printf("Serial:     %s\n", serial)

	version, err := d.Version()
	if err != nil {
		return fmt.Errorf("failed to read version: %w", err)
	}
	fmt.Printf("Version:    %s\n", sen6x.FormatVersion(version))

	var status sen6x.Status
	if infoClearStatus {
		status, err = d.Status()
	} else {
		status, err = d.PeekStatus()
	}
	switch {
	case err == nil, errors.Is(err, sen6x.ErrOutOfRange):
		// A raised flag is reported as OutOfRange along with the status
		fmt.Printf("Status:     %s\n", sen6x.FormatStatus(status))
	case errors.Is(err, sen6x.ErrFirmwareTooOld), errors.Is(err, sen6x.ErrUnknownCommand):
		fmt.Printf("Status:     unavailable (%v)\n", err)
	default:
		return fmt.Errorf("failed to read device status: %w", err)
	}

	return nil
}
