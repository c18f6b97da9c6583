// Copyright (C) 2025 Forkbomb B.V.
// License: AGPL-3.0-only

package avd

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/containerd/errdefs"
)

// PlatformKind separates the "no specific platform" sentinel from named platforms
// (google_apis, android-wear, ...). It is decided once when a descriptor is built.
type PlatformKind int

const (
	PlatformDefault PlatformKind = iota
	PlatformNamed
)

const (
	defaultPlatformSentinel = "default"
	apiPrefix               = "android"
	avdNameSuffix           = "wd-manager"
)

var armVariant = regexp.MustCompile(`^v[0-9]+[a-z]+$`)

func platformKindOf(platform string) PlatformKind {
	if strings.EqualFold(platform, defaultPlatformSentinel) {
		return PlatformDefault
	}
	return PlatformNamed
}

// Descriptor identifies one virtual device by the system image it is built on.
type Descriptor struct {
	API          string       `json:"api"`
	Platform     string       `json:"platform"`
	Architecture string       `json:"architecture"`
	PlatformKind PlatformKind `json:"-"`
	ABI          string       `json:"abi"`
	Name         string       `json:"name"`
}

func NewDescriptor(api, platform, architecture string) Descriptor {
	d := Descriptor{
		API:          api,
		Platform:     platform,
		Architecture: architecture,
		PlatformKind: platformKindOf(platform),
	}
	d.ABI = d.architectureWithPlatform()
	d.Name = strings.Join([]string{api, platform, architecture}, "-")
	return d
}

// ParseDescriptor decodes a canonical name such as android-24-google_apis-armeabi-v7a.
func ParseDescriptor(name string) (Descriptor, error) {
	parts := strings.Split(name, "-")
	if len(parts) < 4 {
		return Descriptor{}, fmt.Errorf("device name %q: want <api>-<level>-<platform>-<architecture>: %w",
			name, errdefs.ErrInvalidArgument)
	}
	api := parts[0] + "-" + parts[1]
	last := parts[len(parts)-1]
	architecture := last
	if strings.HasPrefix(parts[len(parts)-2], "arm") && armVariant.MatchString(last) {
		architecture = parts[len(parts)-2] + "-" + last
	}
	// android-24-armeabi-v7a leaves nothing between api and architecture.
	start, end := len(api)+1, len(name)-len(architecture)-1
	if start >= end {
		return Descriptor{}, fmt.Errorf("device name %q has no platform segment: %w",
			name, errdefs.ErrInvalidArgument)
	}
	d := NewDescriptor(api, name[start:end], architecture)
	return d, nil
}

func (d Descriptor) architectureWithPlatform() string {
	if d.PlatformKind == PlatformDefault {
		return d.Architecture
	}
	return d.Platform + "/" + d.Architecture
}

// Level is the API level without the android- prefix.
func (d Descriptor) Level() string {
	return strings.TrimPrefix(d.API, apiPrefix+"-")
}

// AVDName is the install name handed to the SDK tool for the given version tag.
func (d Descriptor) AVDName(version string) string {
	return fmt.Sprintf("%s-v%s-%s", d.Name, version, avdNameSuffix)
}

func (d Descriptor) String() string { return d.Name }
