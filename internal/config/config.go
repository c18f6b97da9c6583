// Copyright (C) 2025 Forkbomb B.V.
// License: AGPL-3.0-only

package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/containerd/errdefs"
	"github.com/docker/go-units"
	"github.com/spf13/viper"

	"github.com/forkbombeu/avdprovision/internal/avd"
)

// Config holds all provisioning configuration
type Config struct {
	// SDK location and tool
	SDKRoot string `mapstructure:"sdk-root"`
	Tool    string `mapstructure:"tool"`

	// What to install
	APILevels     []string `mapstructure:"api-levels"`
	Architectures []string `mapstructure:"architectures"`
	Platforms     []string `mapstructure:"platforms"`
	ExistingAVDs  []string `mapstructure:"existing-avds"`

	AcceptLicenses bool   `mapstructure:"accept-licenses"`
	Version        string `mapstructure:"version"`

	// Hardware written to every image
	RAMSize string `mapstructure:"ram-size"`

	// Keep devices recorded by the previous run
	ReuseManifest bool `mapstructure:"reuse-manifest"`

	LogFormat string `mapstructure:"log-format"`
}

// SetDefaults registers every key so environment overrides are visible to Unmarshal.
func SetDefaults() {
	viper.SetDefault("sdk-root", "")
	viper.SetDefault("tool", "android")
	viper.SetDefault("api-levels", []string{"24"})
	viper.SetDefault("architectures", []string{"x86"})
	viper.SetDefault("platforms", []string{"default"})
	viper.SetDefault("existing-avds", []string{})
	viper.SetDefault("accept-licenses", false)
	viper.SetDefault("version", "1")
	viper.SetDefault("ram-size", "1024M")
	viper.SetDefault("reuse-manifest", false)
	viper.SetDefault("log-format", "json")
}

// Load reads configuration from environment, config file, and defaults
func Load() (*Config, error) {
	SetDefaults()

	// Environment variables (AVDCTL_SDK_ROOT, AVDCTL_API_LEVELS, ...)
	viper.SetEnvPrefix("AVDCTL")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	// Config file (optional)
	if viper.ConfigFileUsed() == "" {
		viper.SetConfigName("avdctl")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.avdctl")
	}
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.APILevels = splitList(cfg.APILevels)
	cfg.Architectures = splitList(cfg.Architectures)
	cfg.Platforms = splitList(cfg.Platforms)
	cfg.ExistingAVDs = splitList(cfg.ExistingAVDs)
	return &cfg, nil
}

// splitList accepts both repeated values and comma separated ones.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate checks configuration for errors
func (c *Config) Validate() error {
	if len(c.APILevels) == 0 {
		return fmt.Errorf("api-levels cannot be empty: %w", errdefs.ErrInvalidArgument)
	}
	if len(c.Architectures) == 0 {
		return fmt.Errorf("architectures cannot be empty: %w", errdefs.ErrInvalidArgument)
	}
	if len(c.Platforms) == 0 {
		return fmt.Errorf("platforms cannot be empty: %w", errdefs.ErrInvalidArgument)
	}
	if c.Version == "" {
		return fmt.Errorf("version cannot be empty: %w", errdefs.ErrInvalidArgument)
	}
	if _, err := c.RAMMegabytes(); err != nil {
		return err
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("log-format must be json or text, got %q: %w", c.LogFormat, errdefs.ErrInvalidArgument)
	}
	return nil
}

// RAMMegabytes parses ram-size. A bare number is already in megabytes, as in hardware.ini.
func (c *Config) RAMMegabytes() (int64, error) {
	if mb, err := strconv.ParseInt(strings.TrimSpace(c.RAMSize), 10, 64); err == nil {
		if mb <= 0 {
			return 0, fmt.Errorf("ram-size must be positive: %w", errdefs.ErrInvalidArgument)
		}
		return mb, nil
	}
	size, err := units.RAMInBytes(c.RAMSize)
	if err != nil {
		return 0, fmt.Errorf("ram-size %q: %v: %w", c.RAMSize, err, errdefs.ErrInvalidArgument)
	}
	if size < units.MiB {
		return 0, fmt.Errorf("ram-size %q is below 1MiB: %w", c.RAMSize, errdefs.ErrInvalidArgument)
	}
	return size / units.MiB, nil
}

// Env applies sdk-root and tool over the detected environment.
func (c *Config) Env(base avd.Env) avd.Env {
	if c.SDKRoot != "" {
		base.SDKRoot = c.SDKRoot
	}
	if c.Tool != "" {
		base.Tool = c.Tool
	}
	return base
}

// SetupOptions builds the provisioning request; previous is merged into the
// existing devices when reuse-manifest is on.
func (c *Config) SetupOptions(previous []string) (avd.SetupOptions, error) {
	ram, err := c.RAMMegabytes()
	if err != nil {
		return avd.SetupOptions{}, err
	}
	existing := append([]string{}, c.ExistingAVDs...)
	if c.ReuseManifest {
		seen := make(map[string]bool, len(existing))
		for _, name := range existing {
			seen[name] = true
		}
		for _, name := range previous {
			if !seen[name] {
				seen[name] = true
				existing = append(existing, name)
			}
		}
	}
	hw := avd.DefaultHardwareProfile()
	hw.RAMMegabytes = ram
	return avd.SetupOptions{
		APILevels:      c.APILevels,
		Architectures:  c.Architectures,
		Platforms:      c.Platforms,
		AcceptLicenses: c.AcceptLicenses,
		Version:        c.Version,
		ExistingAVDs:   existing,
		Hardware:       hw,
	}, nil
}
