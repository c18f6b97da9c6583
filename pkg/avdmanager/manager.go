// Copyright (C) 2025 Forkbomb B.V.
// License: AGPL-3.0-only

// Package avdmanager provides a Go library for provisioning Android SDK system
// images and the virtual devices built on them.
package avdmanager

import (
	"context"
	"log/slog"

	"github.com/spf13/afero"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/forkbombeu/avdprovision/internal/avd"
)

// Manager provides high-level provisioning operations.
type Manager struct {
	env avd.Env
}

// New creates a new Manager with auto-detected environment.
func New() *Manager {
	return &Manager{
		env: avd.Detect(),
	}
}

// NewWithCorrelationID creates a new Manager with a correlation ID for structured logs.
func NewWithCorrelationID(correlationID string) *Manager {
	return NewWithContextAndCorrelationID(context.Background(), correlationID)
}

// NewWithContext creates a new Manager with a custom context for tracing.
func NewWithContext(ctx context.Context) *Manager {
	return NewWithContextAndCorrelationID(ctx, "")
}

// NewWithContextAndCorrelationID creates a new Manager with a custom context and correlation ID.
func NewWithContextAndCorrelationID(ctx context.Context, correlationID string) *Manager {
	env := avd.Detect()
	if ctx == nil {
		ctx = context.Background()
	}
	env.Context = ctx
	env.CorrelationID = correlationID
	return &Manager{
		env: env,
	}
}

// NewWithEnv creates a new Manager with custom environment configuration.
// Empty fields fall back to the detected values.
func NewWithEnv(env Environment) *Manager {
	detected := avd.Detect()
	ctx := env.Context
	if ctx == nil {
		ctx = context.Background()
	}
	out := avd.Env{
		SDKRoot:       firstNonEmpty(env.SDKRoot, detected.SDKRoot),
		Tool:          firstNonEmpty(env.Tool, detected.Tool),
		Sudo:          firstNonEmpty(env.SudoBin, detected.Sudo),
		PowerShell:    firstNonEmpty(env.PowerShellBin, detected.PowerShell),
		HostOS:        firstNonEmpty(env.HostOS, detected.HostOS),
		FS:            env.FS,
		Logger:        env.Logger,
		CorrelationID: env.CorrelationID,
		Context:       ctx,
	}
	if out.FS == nil {
		out.FS = detected.FS
	}
	return &Manager{env: out}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Environment holds configuration for the SDK tool and paths.
type Environment struct {
	SDKRoot       string          // ANDROID_SDK_ROOT
	Tool          string          // Tool name under <SDKRoot>/tools (default: "android")
	SudoBin       string          // Path to sudo (default: "sudo")
	PowerShellBin string          // Path to powershell (default: "powershell")
	HostOS        string          // GOOS value deciding hardware acceleration (default: runtime.GOOS)
	FS            afero.Fs        // Filesystem for images, hardware.ini and the manifest (default: OS)
	Logger        *slog.Logger    // Structured log sink (default: JSON on stdout)
	CorrelationID string          // Correlation ID for log enrichment
	Context       context.Context // Context for tracing
}

// HardwareProfile is written into every system image's hardware.ini.
// Unset fields keep their defaults: keyboard and battery on, 1024 MB of RAM.
type HardwareProfile struct {
	DisableKeyboard bool  // hw.keyboard=no
	DisableBattery  bool  // hw.battery=no
	RAMMegabytes    int64 // hw.ramSize, 0 means 1024
}

// DefaultHardwareProfile enables keyboard and battery with 1024 MB of RAM.
func DefaultHardwareProfile() HardwareProfile {
	hw := avd.DefaultHardwareProfile()
	return HardwareProfile{DisableKeyboard: hw.DisableKeyboard, DisableBattery: hw.DisableBattery, RAMMegabytes: hw.RAMMegabytes}
}

// SetupOptions contains options for a provisioning run.
type SetupOptions struct {
	APILevels      []string        // API levels, e.g. "24" (required)
	Architectures  []string        // e.g. "x86", "armeabi-v7a" (required)
	Platforms      []string        // "default", "google_apis", ... (required)
	AcceptLicenses bool            // Answer license prompts instead of asking the terminal
	Version        string          // Tag embedded in device names (required)
	ExistingAVDs   []string        // Device names from earlier runs to keep installable
	Hardware       HardwareProfile // Unset fields fall back to DefaultHardwareProfile
}

// TargetsOptions contains the inputs of a target computation.
type TargetsOptions struct {
	APILevels     []string
	Architectures []string
	Platforms     []string
	ExistingAVDs  []string
}

// ImageInfo describes one installed system image.
type ImageInfo struct {
	Name         string // Descriptor name, e.g. android-24-default-x86
	API          string // android-<level>
	Platform     string // Platform directory as installed
	Architecture string
	ABI          string // Value passed to device creation
	DeviceName   string // Device name for the requested version
	HardwareINI  string // Path to the image's hardware.ini
}

// Setup downloads SDK packages, configures hardware and creates one device per
// installed system image, then records the device names.
func (m *Manager) Setup(opts SetupOptions) error {
	env, span := m.startSpan(
		"avdmanager.Setup",
		attribute.StringSlice("api_levels", opts.APILevels),
		attribute.String("version", opts.Version),
	)
	defer span.End()
	err := avd.Setup(env, avd.SetupOptions{
		APILevels:      opts.APILevels,
		Architectures:  opts.Architectures,
		Platforms:      opts.Platforms,
		AcceptLicenses: opts.AcceptLicenses,
		Version:        opts.Version,
		ExistingAVDs:   opts.ExistingAVDs,
		Hardware: avd.HardwareProfile{
			DisableKeyboard: opts.Hardware.DisableKeyboard,
			DisableBattery:  opts.Hardware.DisableBattery,
			RAMMegabytes:    opts.Hardware.RAMMegabytes,
		},
	})
	if err != nil {
		span.RecordError(err)
	}
	return err
}

// Targets returns the SDK components a Setup with these inputs would download,
// without running anything.
func (m *Manager) Targets(opts TargetsOptions) ([]string, error) {
	_, span := m.startSpan("avdmanager.Targets")
	defer span.End()
	existing := make([]avd.Descriptor, 0, len(opts.ExistingAVDs))
	for _, name := range opts.ExistingAVDs {
		d, err := avd.ParseDescriptor(name)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		existing = append(existing, d)
	}
	targets := avd.SDKTargets(opts.APILevels, opts.Architectures, opts.Platforms, existing)
	span.SetAttributes(attribute.Int("targets", len(targets)))
	return targets, nil
}

// Images lists the installed system images. version names the devices Setup
// would create for them.
func (m *Manager) Images(version string) ([]ImageInfo, error) {
	env, span := m.startSpan("avdmanager.Images")
	defer span.End()
	descriptors, err := avd.Discover(env)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	result := make([]ImageInfo, len(descriptors))
	for i, d := range descriptors {
		result[i] = ImageInfo{
			Name:         d.Name,
			API:          d.API,
			Platform:     d.Platform,
			Architecture: d.Architecture,
			ABI:          d.ABI,
			DeviceName:   d.AVDName(version),
			HardwareINI:  avd.HardwareConfigPath(env, d),
		}
	}
	return result, nil
}

// Manifest returns the descriptor names recorded by the last successful Setup.
// It is empty when none was recorded.
func (m *Manager) Manifest() ([]string, error) {
	return avd.ReadManifest(m.env)
}

// ManifestPath is where Setup records the device names.
func (m *Manager) ManifestPath() string {
	return avd.ManifestPath(m.env)
}

// CheckIOS fails unless the host can run iOS simulators.
func (m *Manager) CheckIOS() error {
	return avd.CheckIOS(m.env)
}

func (m *Manager) startSpan(name string, attrs ...attribute.KeyValue) (avd.Env, trace.Span) {
	if m.env.CorrelationID != "" {
		attrs = append(attrs, attribute.String("correlation_id", m.env.CorrelationID))
	}
	ctx := m.env.Context
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := otel.Tracer("avdmanager").Start(ctx, name, trace.WithAttributes(attrs...))
	env := m.env
	env.Context = ctx
	return env, span
}
