// Copyright (C) 2025 Forkbomb B.V.
// License: AGPL-3.0-only

package avd

import (
	"fmt"
	"path/filepath"

	"github.com/containerd/errdefs"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/attribute"
)

const (
	haxmPackage = "extra-intel-Hardware_Accelerated_Execution_Manager"
	xcodePath   = "/Applications/Xcode.app"
)

// acceleratedHost reports whether HAXM is shipped for the host (macOS and Windows only).
func acceleratedHost(env Env) bool {
	switch env.hostOS() {
	case "darwin", "windows":
		return true
	}
	return false
}

// hostFields describes the machine for log records. Lookup failures only drop fields.
func hostFields(env Env) []any {
	fields := []any{"host_os", env.hostOS()}
	info, err := host.InfoWithContext(spanContext(env))
	if err != nil || info == nil {
		return fields
	}
	fields = append(fields, "platform", info.Platform, "platform_version", info.PlatformVersion,
		"kernel_arch", info.KernelArch)
	if info.VirtualizationSystem != "" {
		fields = append(fields, "virtualization", info.VirtualizationSystem, "virtualization_role", info.VirtualizationRole)
	}
	return fields
}

func haxmDir(env Env) string {
	return filepath.Join(env.SDKRoot, "extras", "intel", "Hardware_Accelerated_Execution_Manager")
}

// haxmInstaller returns the privileged installer for the host; ok is false where none exists.
func haxmInstaller(env Env) (Invocation, bool) {
	dir := haxmDir(env)
	switch env.hostOS() {
	case "darwin":
		return Invocation{Path: env.Sudo, Command: "./silent_install.sh", Mode: IOInherit, Dir: dir}, true
	case "windows":
		return Invocation{
			Path:    env.PowerShell,
			Command: "-NoProfile",
			Args: []string{"-Command", fmt.Sprintf(
				"Start-Process -FilePath '%s' -Verb RunAs -Wait", filepath.Join(dir, "silent_install.bat"))},
			Mode: IOInherit,
			Dir:  dir,
		}, true
	}
	return Invocation{}, false
}

// installHardwareAcceleration runs the HAXM installer without acting on its outcome.
// A failed install is logged and the run continues.
func installHardwareAcceleration(env Env) {
	inv, ok := haxmInstaller(env)
	if !ok {
		logEvent(env, "hardware acceleration not applicable", hostFields(env)...)
		return
	}
	logEvent(env, "hardware acceleration installer requested", append(hostFields(env), "installer", inv.String())...)
	if err := RunProcess(env, inv); err != nil {
		logWarn(env, "hardware acceleration installer did not succeed", "installer", inv.String(), "error", err.Error())
	}
}

// CheckIOS verifies the host can run iOS simulators. Only the OS is enforced;
// a missing Xcode is a warning.
func CheckIOS(env Env) error {
	env, span := startSpan(env, "avd.CheckIOS", attribute.String("host_os", env.hostOS()))
	defer span.End()
	if env.hostOS() != "darwin" {
		err := fmt.Errorf("must be on a Mac to simulate iOS devices: %w", errdefs.ErrFailedPrecondition)
		recordSpanError(span, err)
		return err
	}
	if ok, _ := afero.DirExists(env.fs(), xcodePath); !ok {
		logWarn(env, "You must install the xcode commandline tools!", append(hostFields(env), "path", xcodePath)...)
		span.SetAttributes(attribute.Bool("xcode", false))
		return nil
	}
	span.SetAttributes(attribute.Bool("xcode", true))
	return nil
}
