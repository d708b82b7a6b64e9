// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// sen6x - Sensirion SEN6x environmental sensor tool
//
// A CLI for reading, configuring and exporting SEN6x sensors attached to a
// local I2C bus or reached through a serial/WebSocket I2C bridge.

package main

import (
	"os"

	"github.com/Thermoquad/sen6x/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
