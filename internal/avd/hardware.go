// Copyright (C) 2025 Forkbomb B.V.
// License: AGPL-3.0-only

package avd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/attribute"
	"gopkg.in/ini.v1"
)

const (
	hwKeyboard = "hw.keyboard"
	hwBattery  = "hw.battery"
	hwRAMSize  = "hw.ramSize"
)

const defaultRAMMegabytes = 1024

// HardwareProfile is what gets written into every image's hardware.ini.
// The zero value enables keyboard and battery with 1024 MB of RAM.
type HardwareProfile struct {
	DisableKeyboard bool
	DisableBattery  bool
	// RAMMegabytes is written as hw.ramSize. Zero means 1024.
	RAMMegabytes int64
}

func DefaultHardwareProfile() HardwareProfile {
	return HardwareProfile{RAMMegabytes: defaultRAMMegabytes}
}

func (p HardwareProfile) withDefaults() HardwareProfile {
	if p.RAMMegabytes == 0 {
		p.RAMMegabytes = defaultRAMMegabytes
	}
	return p
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// HardwareConfigPath is the per-image hardware.ini the emulator reads defaults from.
func HardwareConfigPath(env Env, d Descriptor) string {
	return filepath.Join(systemImagesDir(env), d.API, d.Platform, d.Architecture, "hardware.ini")
}

// ConfigureHardware sets keyboard, battery and RAM in the image's hardware.ini.
// A missing file starts empty; every other key is kept as found.
func ConfigureHardware(env Env, d Descriptor, profile HardwareProfile) error {
	profile = profile.withDefaults()
	path := HardwareConfigPath(env, d)
	_, span := startSpan(
		env,
		"avd.ConfigureHardware",
		attribute.String("image", d.Name),
		attribute.String("path", path),
	)
	defer span.End()

	cfg, err := loadHardwareConfig(env.fs(), path)
	if err != nil {
		recordSpanError(span, err)
		return err
	}
	section := cfg.Section(ini.DefaultSection)
	section.Key(hwKeyboard).SetValue(yesNo(!profile.DisableKeyboard))
	section.Key(hwBattery).SetValue(yesNo(!profile.DisableBattery))
	section.Key(hwRAMSize).SetValue(strconv.FormatInt(profile.RAMMegabytes, 10))

	var buf bytes.Buffer
	if _, err := cfg.WriteTo(&buf); err != nil {
		recordSpanError(span, err)
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := afero.WriteFile(env.fs(), path, buf.Bytes(), 0o644); err != nil {
		recordSpanError(span, err)
		return fmt.Errorf("write %s: %w", path, err)
	}
	logEvent(env, "hardware configured", "image", d.Name, "path", path,
		hwKeyboard, yesNo(!profile.DisableKeyboard), hwBattery, yesNo(!profile.DisableBattery), hwRAMSize, profile.RAMMegabytes)
	return nil
}

// hardware.ini values are raw: '#' and ';' are data, not comments, and a key may
// stand alone without '='.
var hardwareLoadOptions = ini.LoadOptions{
	KeyValueDelimiters:      "=",
	IgnoreInlineComment:     true,
	IgnoreContinuation:      true,
	AllowBooleanKeys:        true,
	PreserveSurroundedQuote: true,
}

func loadHardwareConfig(fsys afero.Fs, path string) (*ini.File, error) {
	data, err := afero.ReadFile(fsys, path)
	if os.IsNotExist(err) {
		return ini.Empty(hardwareLoadOptions), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	cfg, err := ini.LoadSources(hardwareLoadOptions, data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}
