// Copyright (C) 2025 Forkbomb B.V.
// License: AGPL-3.0-only

package avd

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/afero"
)

type Env struct {
	SDKRoot    string // ANDROID_SDK_ROOT (falls back to ANDROID_HOME)
	Tool       string // AVDCTL_TOOL, binary name under <SDKRoot>/tools (default android)
	Sudo       string // sudo
	PowerShell string // powershell
	// HostOS decides whether hardware acceleration is installed. Defaults to runtime.GOOS.
	HostOS string
	// FS backs every file read and write done by this package (not the SDK tool itself).
	FS afero.Fs
	// Logger receives progress records. Nil means the package JSON logger.
	Logger *slog.Logger
	// CorrelationID is used to tie logs to a specific workflow/activity.
	CorrelationID string
	// Context is used to parent OpenTelemetry spans.
	Context context.Context
}

func Detect() Env {
	sdk := getenv("ANDROID_SDK_ROOT", os.Getenv("ANDROID_HOME"))
	return Env{
		SDKRoot:       sdk,
		Tool:          getenv("AVDCTL_TOOL", "android"),
		Sudo:          "sudo",
		PowerShell:    "powershell",
		HostOS:        runtime.GOOS,
		FS:            afero.NewOsFs(),
		CorrelationID: os.Getenv("AVDCTL_CORRELATION_ID"),
		Context:       context.Background(),
	}
}

// ToolPath is the SDK command-line tool every stage drives.
func (env Env) ToolPath() string {
	tool := env.Tool
	if tool == "" {
		tool = "android"
	}
	return filepath.Join(env.SDKRoot, "tools", tool)
}

func (env Env) fs() afero.Fs {
	if env.FS == nil {
		return afero.NewOsFs()
	}
	return env.FS
}

func (env Env) hostOS() string {
	if env.HostOS == "" {
		return runtime.GOOS
	}
	return env.HostOS
}

func getenv(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
