// Copyright (C) 2025 Forkbomb B.V.
// License: AGPL-3.0-only

package avd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/containerd/errdefs"
	"go.opentelemetry.io/otel/attribute"
)

const buildToolsPackage = "build-tools-24.0.0"

var coreToolPackages = []string{"platform-tool", "tool"}

// SetupOptions is one provisioning request.
type SetupOptions struct {
	APILevels     []string
	Architectures []string
	Platforms     []string
	// AcceptLicenses answers license prompts with "y" instead of handing the terminal over.
	AcceptLicenses bool
	// Version is the tag embedded in install names (<name>-v<Version>-wd-manager).
	Version string
	// ExistingAVDs are device names from earlier runs that must stay installable.
	ExistingAVDs []string
	Hardware     HardwareProfile
}

func (opts SetupOptions) validate(env Env) ([]Descriptor, error) {
	var problems []string
	if env.SDKRoot == "" {
		problems = append(problems, "no SDK root (set ANDROID_SDK_ROOT or ANDROID_HOME)")
	}
	if len(opts.APILevels) == 0 {
		problems = append(problems, "no API levels")
	}
	if len(opts.Architectures) == 0 {
		problems = append(problems, "no architectures")
	}
	if len(opts.Platforms) == 0 {
		problems = append(problems, "no platforms")
	}
	if opts.Version == "" {
		problems = append(problems, "empty version tag")
	}
	if opts.Hardware.RAMMegabytes < 0 {
		problems = append(problems, "negative RAM size")
	}
	if len(problems) > 0 {
		return nil, fmt.Errorf("setup options: %s: %w", strings.Join(problems, ", "), errdefs.ErrInvalidArgument)
	}
	existing := make([]Descriptor, 0, len(opts.ExistingAVDs))
	for _, name := range opts.ExistingAVDs {
		d, err := ParseDescriptor(name)
		if err != nil {
			return nil, err
		}
		existing = append(existing, d)
	}
	return existing, nil
}

// setupRun carries state from one stage to the next.
type setupRun struct {
	env         Env
	opts        SetupOptions
	existing    []Descriptor
	targets     []string
	descriptors []Descriptor
}

type setupStage struct {
	name    string
	message string
	run     func(*setupRun) error
}

var setupStages = []setupStage{
	{"download-tools", "Downloading additional SDK updates", (*setupRun).downloadTools},
	{"hardware-acceleration", "Enabling hardware acceleration", (*setupRun).enableAcceleration},
	{"download-images", "Downloading more additional SDK updates (this may take a while)", (*setupRun).downloadImages},
	{"discover", "Discovering installed system images", (*setupRun).discover},
	{"configure-hardware", "Configuring virtual device hardware", (*setupRun).configureHardware},
	{"create-devices", "Creating virtual devices", (*setupRun).createDevices},
	{"write-manifest", "Recording available virtual devices", (*setupRun).writeManifest},
	{"done", "Android setup complete", (*setupRun).complete},
}

// Setup downloads the SDK packages, configures every installed system image, creates one
// device per image and records the device names. The first failing stage ends the run.
func Setup(env Env, opts SetupOptions) error {
	env, span := startSpan(
		env,
		"avd.Setup",
		attribute.StringSlice("api_levels", opts.APILevels),
		attribute.StringSlice("architectures", opts.Architectures),
		attribute.StringSlice("platforms", opts.Platforms),
		attribute.String("version", opts.Version),
	)
	defer span.End()

	existing, err := opts.validate(env)
	if err != nil {
		recordSpanError(span, err)
		return err
	}
	opts.Hardware = opts.Hardware.withDefaults()
	run := &setupRun{env: env, opts: opts, existing: existing}
	for _, stage := range setupStages {
		if err := run.runStage(stage); err != nil {
			recordSpanError(span, err)
			return err
		}
	}
	return nil
}

func (r *setupRun) runStage(stage setupStage) error {
	env, span := startSpan(r.env, "avd.Setup."+stage.name)
	defer span.End()
	logEvent(env, stage.message, "stage", stage.name)
	outer := r.env
	r.env = env
	defer func() { r.env = outer }()
	if err := stage.run(r); err != nil {
		recordSpanError(span, err)
		return fmt.Errorf("%s: %w", stage.name, err)
	}
	return nil
}

func (r *setupRun) downloadTools() error {
	packages := append([]string{}, coreToolPackages...)
	if acceleratedHost(r.env) {
		packages = append(packages, haxmPackage)
	}
	return downloadPackages(r.env, packages, false, r.opts.AcceptLicenses)
}

func (r *setupRun) enableAcceleration() error {
	installHardwareAcceleration(r.env)
	return nil
}

func (r *setupRun) downloadImages() error {
	r.targets = SDKTargets(r.opts.APILevels, r.opts.Architectures, r.opts.Platforms, r.existing)
	packages := append(append([]string{}, r.targets...), buildToolsPackage)
	return downloadPackages(r.env, packages, true, r.opts.AcceptLicenses)
}

func (r *setupRun) discover() error {
	descriptors, err := Discover(r.env)
	if err != nil {
		return err
	}
	r.descriptors = descriptors
	names := make([]string, 0, len(descriptors))
	for _, d := range descriptors {
		names = append(names, d.Name)
	}
	logEvent(r.env, "system images found", "count", len(names), "images", strings.Join(names, ","))
	return nil
}

func (r *setupRun) configureHardware() error {
	return Sequentially(r.descriptors, func(d Descriptor) error {
		return ConfigureHardware(r.env, d, r.opts.Hardware)
	})
}

func (r *setupRun) createDevices() error {
	return Sequentially(r.descriptors, func(d Descriptor) error {
		return CreateAVD(r.env, d, r.opts.Version)
	})
}

func (r *setupRun) writeManifest() error {
	return WriteManifest(r.env, r.descriptors)
}

func (r *setupRun) complete() error {
	logEvent(r.env, "virtual devices ready", "count", len(r.descriptors), "manifest", ManifestPath(r.env))
	return nil
}

// downloadPackages runs `update sdk` for the given packages. all also searches obsolete packages.
func downloadPackages(env Env, packages []string, all, acceptLicenses bool) error {
	args := []string{"sdk", "-u"}
	if all {
		args = append(args, "-a")
	}
	args = append(args, "-t", strings.Join(packages, ","))
	if acceptLicenses {
		prompt := licensePrompt
		return runTool(env, "update", args, IOPipe, &prompt)
	}
	return runTool(env, "update", args, IOInherit, nil)
}

// DeleteAVDIfExists removes a device by install name. The tool fails when the device
// is absent, so every failure counts as "already gone".
func DeleteAVDIfExists(env Env, avdName string) {
	err := runTool(env, "delete", []string{"avd", "--name", avdName}, IOPipe, nil)
	if err == nil {
		return
	}
	var exitErr *ProcessExitError
	if errors.As(err, &exitErr) {
		logEvent(env, "no previous virtual device", "avd", avdName, "exit_code", exitErr.Code)
		return
	}
	logWarn(env, "virtual device delete failed", "avd", avdName, "error", err.Error())
}

// CreateAVD (re)creates the device for one system image.
func CreateAVD(env Env, d Descriptor, version string) error {
	avdName := d.AVDName(version)
	logEvent(env, "Creating virtual device", "avd", avdName, "image", d.Name, "abi", d.ABI)
	DeleteAVDIfExists(env, avdName)
	prompt := profilePrompt
	if err := runTool(env, "create", []string{"avd", "--name", avdName, "--target", d.API, "--abi", d.ABI}, IOPipe, &prompt); err != nil {
		return fmt.Errorf("create %s: %w", avdName, err)
	}
	return nil
}
