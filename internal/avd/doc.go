// Copyright (C) 2025 Forkbomb B.V.
// License: AGPL-3.0-only

// Package avd drives the Android SDK tool to install system images and create
// one virtual device per image.
//
// Importing this package sets the process-wide gopkg.in/ini.v1 PrettyFormat
// switch to false: the emulator reads hardware.ini as plain key=value lines and
// ini.v1 offers no per-file writer option for it. Other ini.v1 users in the same
// binary get unaligned output as well.
package avd

import "gopkg.in/ini.v1"

func init() {
	ini.PrettyFormat = false
}
