// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// romloader - FLASH EEPROM programmer host
//
// A CLI tool for erasing, programming, reading and verifying parallel FLASH
// EEPROMs through the AVR programmer's line oriented serial protocol.

package main

import (
	"os"

	"github.com/Thermoquad/romloader/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
