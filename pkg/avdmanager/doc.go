// Copyright (C) 2025 Forkbomb B.V.
// License: AGPL-3.0-only

/*
Package avdmanager provides a Go library for provisioning Android SDK system
images and the virtual devices built on them.

# Overview

A provisioning run drives the legacy SDK command-line tool (<sdk>/tools/android)
through a fixed sequence: download platform tools, install hardware acceleration
where the host supports it, download the requested system images, configure the
hardware of every installed image, create one virtual device per image and record
the result in <sdk>/available_avds.json.

# Quick Start

	import "github.com/forkbombeu/avdprovision/pkg/avdmanager"

	func main() {
		mgr := avdmanager.New()

		err := mgr.Setup(avdmanager.SetupOptions{
			APILevels:      []string{"24"},
			Architectures:  []string{"x86"},
			Platforms:      []string{"default"},
			AcceptLicenses: true,
			Version:        "1",
		})
		if err != nil {
			log.Fatal(err)
		}

		names, _ := mgr.Manifest() // ["android-24-default-x86"]
	}

# Key Concepts

**Descriptor name**: <api>-<platform>-<architecture>, e.g. android-24-google_apis-armeabi-v7a.
The platform "default" (any case) means no specific platform.

**Device name**: <descriptor name>-v<version>-wd-manager. Devices are always deleted
and recreated, so a run can be repeated.

**Target**: an SDK component id passed to `android update sdk -t`, either
android-<level> or sys-img-<architecture>-<platform>-<level>.

**Existing devices**: names from earlier runs (for example the previous manifest)
whose components are downloaded again so the devices stay usable.

# Workflow

 1. Download platform-tool and tool (plus HAXM on macOS and Windows)
 2. Install HAXM with elevated privileges (failures are logged, not fatal)
 3. Download every target plus build-tools-24.0.0
 4. Discover <sdk>/system-images/<api>/<platform>/<architecture>
 5. Set hw.keyboard, hw.battery and hw.ramSize in each image's hardware.ini
 6. Recreate one device per image, answering the hardware profile prompt with "no"
 7. Write the manifest

Every step runs after the previous one finished and the first failure ends the run.
No manifest is written for a failed run.

# Environment Configuration

By default, the manager auto-detects from environment variables:
  - ANDROID_SDK_ROOT (falls back to ANDROID_HOME)
  - AVDCTL_TOOL
  - AVDCTL_CORRELATION_ID

Use NewWithEnv() to override paths, the filesystem or the logger.

# Thread Safety

The SDK tool is not safe to run concurrently against one SDK installation.
Do not call Setup concurrently for the same SDKRoot.

# Requirements

  - Android SDK with the legacy tools/android command
  - sudo (macOS) or an elevated PowerShell (Windows) for HAXM
  - Xcode under /Applications for CheckIOS on macOS

# License

Licensed under AGPL-3.0-only.

Copyright (C) 2025 Forkbomb B.V.
*/
package avdmanager
