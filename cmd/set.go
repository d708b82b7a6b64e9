// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Thermoquad/sen6x/pkg/sen6x"
)

var setCmd = &cobra.Command{
	Use:   "set",
	Short: "Read or change a sensor setting",
	Long: `Read or change one sensor setting.

Each subcommand prints the current value when called without arguments and
writes the given value otherwise. Settings that may only change while idle
stop the measurement first and restart it afterwards.

Settings are not persisted by the module and are lost on reset or power loss.`,
}

var (
	tempOffsetSlope float64
	tempOffsetTime  uint16
	tempOffsetSlot  uint16
)

func init() {
	rootCmd.AddCommand(setCmd)

	setCmd.AddCommand(&cobra.Command{
		Use:   "voc-tuning [offset learn_offset learn_gain gate_max std_initial gain]",
		Short: "VOC index algorithm parameters",
		Args:  oneOf(0, 6),
		RunE:  tuningRunner(sen6x.VOCTuning),
	})
	setCmd.AddCommand(&cobra.Command{
		Use:   "nox-tuning [offset learn_offset learn_gain gate_max std_initial gain]",
		Short: "NOx index algorithm parameters",
		Args:  oneOf(0, 6),
		RunE:  tuningRunner(sen6x.NOxTuning),
	})

	tempOffsetCmd := &cobra.Command{
		Use:   "temp-offset OFFSET",
		Short: "Temperature compensation offset in °C",
		Args:  cobra.ExactArgs(1),
		RunE:  runSetTemperatureOffset,
	}
	tempOffsetCmd.Flags().Float64Var(&tempOffsetSlope, "slope", 0, "Normalized offset slope")
	tempOffsetCmd.Flags().Uint16Var(&tempOffsetTime, "time", 0, "Time constant in seconds")
	tempOffsetCmd.Flags().Uint16Var(&tempOffsetSlot, "slot", 0, "Offset slot (0 to 4)")
	setCmd.AddCommand(tempOffsetCmd)

	setCmd.AddCommand(&cobra.Command{
		Use:   "temp-accel K P T1 T2",
		Short: "Temperature acceleration parameters",
		Args:  cobra.ExactArgs(4),
		RunE:  runSetTemperatureAcceleration,
	})
	setCmd.AddCommand(&cobra.Command{
		Use:   "pressure [HPA]",
		Short: "Ambient pressure for CO2 compensation (700 to 1200 hPa)",
		Args:  oneOf(0, 1),
		RunE:  runSetPressure,
	})
	setCmd.AddCommand(&cobra.Command{
		Use:   "altitude [METERS]",
		Short: "Sensor altitude for CO2 compensation (0 to 3000 m)",
		Args:  oneOf(0, 1),
		RunE:  runSetAltitude,
	})
	setCmd.AddCommand(&cobra.Command{
		Use:   "co2-asc [on|off]",
		Short: "CO2 automatic self calibration",
		Args:  oneOf(0, 1),
		RunE:  runSetCO2SelfCalibration,
	})
	setCmd.AddCommand(&cobra.Command{
		Use:   "co2-frc PPM",
		Short: "Force CO2 recalibration to a reference concentration",
		Long: `Force CO2 recalibration to a reference concentration.

Operate the sensor for at least 3 minutes in an environment with a stable,
known CO2 concentration before calling this.`,
		Args: cobra.ExactArgs(1),
		RunE: runForceCO2Recalibration,
	})
	setCmd.AddCommand(&cobra.Command{
		Use:   "voc-state [HEX]",
		Short: "VOC algorithm state (8 bytes, hex)",
		Args:  oneOf(0, 1),
		RunE:  runSetVOCState,
	})
}

// oneOf accepts any of the given argument counts
func oneOf(counts ...int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		for _, n := range counts {
			if len(args) == n {
				return nil
			}
		}
		return fmt.Errorf("accepts %v args, received %d", counts, len(args))
	}
}

// withDevice opens a session and runs fn against its device
func withDevice(fn func(d *sen6x.Device) error) error {
	s, err := OpenSession(cfg.Device)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s.Device)
}

func parseUint16(s string) (uint16, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q: %w", s, err)
	}
	return uint16(v), nil
}

func parseInt16s(args []string) ([]int16, error) {
	out := make([]int16, len(args))
	for i, a := range args {
		v, err := strconv.ParseInt(strings.TrimSpace(a), 10, 16)
		if err != nil {
			return nil, fmt.Errorf("invalid value %q: %w", a, err)
		}
		out[i] = int16(v)
	}
	return out, nil
}

func tuningRunner(c sen6x.Command) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		return withDevice(func(d *sen6x.Device) error {
			if len(args) == 0 {
				var t sen6x.Tuning
				var err error
				if c == sen6x.VOCTuning {
					t, err = d.VOCTuning()
				} else {
					t, err = d.NOxTuning()
				}
				if err != nil {
					return err
				}
				fmt.Println(sen6x.FormatTuning(t))
				return nil
			}

			v, err := parseInt16s(args)
			if err != nil {
				return err
			}
			t := sen6x.Tuning{
				IndexOffset:          v[0],
				LearnTimeOffsetHours: v[1],
				LearnTimeGainHours:   v[2],
				GateMaxDurationMin:   v[3],
				StdInitial:           v[4],
				GainFactor:           v[5],
			}
			if c == sen6x.VOCTuning {
				t = sen6x.ClampVOCTuning(t)
				err = d.SetVOCTuning(t)
			} else {
				t = sen6x.ClampNOxTuning(t)
				err = d.SetNOxTuning(t)
			}
			if err != nil {
				return err
			}
			fmt.Printf("%s set: %s\n", c, sen6x.FormatTuning(t))
			return nil
		})
	}
}

func runSetTemperatureOffset(cmd *cobra.Command, args []string) error {
	offset, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("invalid offset %q: %w", args[0], err)
	}
	tc := sen6x.TemperatureCompensation{
		Offset: offset,
		Slope:  tempOffsetSlope,
		Time:   tempOffsetTime,
		Slot:   tempOffsetSlot,
	}
	return withDevice(func(d *sen6x.Device) error {
		if err := d.SetTemperatureOffset(tc); err != nil {
			return err
		}
		fmt.Printf("Temperature offset slot %d set: %.2f°C, slope %.3f, time %ds\n",
			tc.Slot, tc.Offset, tc.Slope, tc.Time)
		return nil
	})
}

func runSetTemperatureAcceleration(cmd *cobra.Command, args []string) error {
	v := make([]uint16, 4)
	for i, a := range args {
		var err error
		if v[i], err = parseUint16(a); err != nil {
			return err
		}
	}
	ta := sen6x.TemperatureAcceleration{K: v[0], P: v[1], T1: v[2], T2: v[3]}
	return withDevice(func(d *sen6x.Device) error {
		if err := d.SetTemperatureAcceleration(ta); err != nil {
			return err
		}
		fmt.Printf("Temperature acceleration set: K=%d P=%d T1=%d T2=%d\n", ta.K, ta.P, ta.T1, ta.T2)
		return nil
	})
}

func runSetPressure(cmd *cobra.Command, args []string) error {
	return withDevice(func(d *sen6x.Device) error {
		if len(args) == 0 {
			p, err := d.AmbientPressure()
			if err != nil {
				return err
			}
			fmt.Printf("Ambient pressure: %d hPa\n", p)
			return nil
		}

		p, err := parseUint16(args[0])
		if err != nil {
			return err
		}
		if err := d.SetAmbientPressure(p); err != nil {
			return err
		}
		fmt.Printf("Ambient pressure set: %d hPa\n", p)
		return nil
	})
}

func runSetAltitude(cmd *cobra.Command, args []string) error {
	return withDevice(func(d *sen6x.Device) error {
		if len(args) == 0 {
			m, err := d.Altitude()
			if err != nil {
				return err
			}
			fmt.Printf("Altitude: %d m\n", m)
			return nil
		}

		m, err := parseUint16(args[0])
		if err != nil {
			return err
		}
		if err := d.SetAltitude(m); err != nil {
			return err
		}
		fmt.Printf("Altitude set: %d m\n", m)
		return nil
	})
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "true", "1", "enable":
		return true, nil
	case "off", "false", "0", "disable":
		return false, nil
	}
	return false, fmt.Errorf("expected on or off, got %q", s)
}

func runSetCO2SelfCalibration(cmd *cobra.Command, args []string) error {
	return withDevice(func(d *sen6x.Device) error {
		if len(args) == 0 {
			on, err := d.CO2SelfCalibration()
			if err != nil {
				return err
			}
			fmt.Printf("CO2 self calibration: %s\n", onOff(on))
			return nil
		}

		on, err := parseOnOff(args[0])
		if err != nil {
			return err
		}
		if err := d.SetCO2SelfCalibration(on); err != nil {
			return err
		}
		fmt.Printf("CO2 self calibration set: %s\n", onOff(on))
		return nil
	})
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

func runForceCO2Recalibration(cmd *cobra.Command, args []string) error {
	ppm, err := parseUint16(args[0])
	if err != nil {
		return err
	}
	return withDevice(func(d *sen6x.Device) error {
		correction, err := d.ForceCO2Recalibration(ppm)
		if err != nil {
			if errors.Is(err, sen6x.ErrCommandNotAllowedInState) {
				return fmt.Errorf("recalibration rejected by the module, run it for 3 minutes first: %w", err)
			}
			return err
		}
		fmt.Printf("CO2 recalibrated to %d ppm, correction %+d ppm\n", ppm, correction)
		return nil
	})
}

func runSetVOCState(cmd *cobra.Command, args []string) error {
	return withDevice(func(d *sen6x.Device) error {
		if len(args) == 0 {
			state, err := d.VOCState()
			if err != nil {
				return err
			}
			fmt.Printf("VOC state: %s\n", hex.EncodeToString(state[:]))
			return nil
		}

		raw, err := hex.DecodeString(strings.TrimPrefix(args[0], "0x"))
		if err != nil {
			return fmt.Errorf("invalid VOC state: %w", err)
		}
		var state [sen6x.VOCStateLength]byte
		if len(raw) != len(state) {
			return fmt.Errorf("VOC state must be %d bytes, got %d", len(state), len(raw))
		}
		copy(state[:], raw)
		if err := d.SetVOCState(state); err != nil {
			return err
		}
		fmt.Printf("VOC state restored: %s\n", hex.EncodeToString(state[:]))
		return nil
	})
}
