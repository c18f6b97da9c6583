// Copyright (C) 2025 Forkbomb B.V.
// License: AGPL-3.0-only

package avd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/attribute"
)

func systemImagesDir(env Env) string {
	return filepath.Join(env.SDKRoot, "system-images")
}

// Discover lists every installed system image as <api>/<platform>/<architecture>.
// Order follows the filesystem and carries no meaning.
func Discover(env Env) ([]Descriptor, error) {
	_, span := startSpan(env, "avd.Discover")
	defer span.End()
	fsys := env.fs()
	matches, err := afero.Glob(fsys, filepath.Join(systemImagesDir(env), "*", "*", "*"))
	if err != nil {
		recordSpanError(span, err)
		return nil, fmt.Errorf("scan system images: %w", err)
	}
	var out []Descriptor
	for _, match := range matches {
		if isDir, err := afero.IsDir(fsys, match); err != nil || !isDir {
			continue
		}
		architecture := filepath.Base(match)
		platformDir := filepath.Dir(match)
		platform := filepath.Base(platformDir)
		api := filepath.Base(filepath.Dir(platformDir))
		out = append(out, NewDescriptor(api, platform, architecture))
	}
	span.SetAttributes(attribute.Int("images", len(out)))
	return out, nil
}
