// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/sen6x/pkg/sen6x"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Run the fan cleaning cycle",
	Long: `Stop any running measurement and accelerate the fan to blow out dust.

The cycle takes about 10 seconds. The measurement is left stopped.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDevice(func(d *sen6x.Device) error {
			if err := d.StartFanCleaning(); err != nil {
				return err
			}
			fmt.Println("Fan cleaning started")
			return nil
		})
	},
}

var heaterCmd = &cobra.Command{
	Use:   "heater",
	Short: "Activate the SHT humidity sensor heater",
	Long: `Heat the SHT humidity sensor for one second to remove condensation.

Only allowed while idle; a running measurement is stopped and restarted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDevice(func(d *sen6x.Device) error {
			if err := d.ActivateHeater(); err != nil {
				return err
			}
			fmt.Println("SHT heater activated")
			return nil
		})
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset the module",
	Long:  `Reset the module. All settings return to their defaults.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDevice(func(d *sen6x.Device) error {
			if err := d.Reset(); err != nil {
				return err
			}
			fmt.Printf("%s reset\n", d.Variant())
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(heaterCmd)
	rootCmd.AddCommand(resetCmd)
}
