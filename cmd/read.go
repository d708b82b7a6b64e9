// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/sen6x/pkg/sen6x"
)

var (
	readRaw           bool
	readConcentration bool
	readCount         int
	readInterval      time.Duration
	readStatsInterval int
)

var readCmd = &cobra.Command{
	Use:   "read",
	Short: "Poll the sensor and print measured values",
	Long: `Start a measurement and print each new reading as it becomes available.

Every reading is checked for implausible values (humidity outside 0 to 100%,
PM mass not cumulative, indices above 500, ...) and anomalies are highlighted.
Raw signals and particle number concentration can be printed alongside.

A count of 0 reads until interrupted. Statistics are printed periodically and
on exit.`,
	RunE: runRead,
}

func init() {
	rootCmd.AddCommand(readCmd)
	readCmd.Flags().BoolVar(&readRaw, "raw", false, "Also print raw humidity, temperature and gas signals")
	readCmd.Flags().BoolVar(&readConcentration, "concentration", false, "Also print particle number concentration")
	readCmd.Flags().IntVarP(&readCount, "count", "n", 0, "Number of readings (0 = until interrupted)")
	readCmd.Flags().DurationVar(&readInterval, "interval", time.Second, "Polling interval")
	readCmd.Flags().IntVar(&readStatsInterval, "stats-interval", 60, "Statistics update interval (seconds, 0 disables)")
}

func runRead(cmd *cobra.Command, args []string) error {
	if err := checkInterval("--interval", readInterval); err != nil {
		return err
	}

	s, err := OpenSession(cfg.Device)
	if err != nil {
		return err
	}
	defer s.Close()

	fmt.Printf("sen6x - Measurement Log\n")
	fmt.Printf("Connection: %s\n", s.Info)
	fmt.Printf("Variant: %s\n", s.Device.Variant())
	fmt.Printf("Press Ctrl+C to exit\n\n")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	stats := sen6x.NewStatistics()
	defer func() {
		fmt.Println()
		fmt.Print(stats.String())
	}()

	ticker := time.NewTicker(readInterval)
	defer ticker.Stop()

	var statsTick <-chan time.Time
	if readStatsInterval > 0 {
		statsTicker := time.NewTicker(time.Duration(readStatsInterval) * time.Second)
		defer statsTicker.Stop()
		statsTick = statsTicker.C
	}

	readings := 0
	for readCount == 0 || readings < readCount {
		select {
		case <-ctx.Done():
			return s.Device.Stop()
		case <-statsTick:
			fmt.Println()
			fmt.Print(stats.String())
			fmt.Println()
			continue
		case <-ticker.C:
		}

		ready, err := s.Device.DataReady()
		if err != nil {
			stats.Update(err, nil)
			printReadError(err)
			continue
		}
		if !ready {
			continue
		}

		readings++
		readOnce(s.Device, stats)
	}

	return s.Device.Stop()
}

// readOnce reads and prints one measurement with the optional extras
func readOnce(d *sen6x.Device, stats *sen6x.Statistics) {
	values, err := d.Values()
	if err != nil {
		stats.Update(err, nil)
		printReadError(err)
		return
	}

	validationErrors := sen6x.ValidateValues(values)
	stats.Update(nil, validationErrors)

	timestamp := time.Now().Format("15:04:05.000")
	fmt.Printf("[%s] %s\n", timestamp, sen6x.FormatValues(values))
	for i, verr := range validationErrors {
		fmt.Printf("  Issue %d: \033[1;33m%s\033[0m\n", i+1, verr.Message)
	}

	if readRaw {
		raw, err := d.RawValues()
		if err != nil {
			printReadError(err)
		} else {
			fmt.Printf("  raw: %s\n", sen6x.FormatRawValues(raw))
		}
	}

	if readConcentration {
		c, err := d.Concentration()
		if err != nil {
			printReadError(err)
		} else {
			fmt.Printf("  number: %s\n", sen6x.FormatConcentration(c))
		}
	}
}

// printReadError prints a failed transaction in highlighted format
func printReadError(err error) {
	timestamp := time.Now().Format("15:04:05.000")
	fmt.Printf("[%s] \033[1;31m%s:\033[0m %v\n", timestamp, sen6x.CodeOf(err), err)
}
