// Copyright (C) 2025 Forkbomb B.V.
// License: AGPL-3.0-only

package avd

import (
	"fmt"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"
	"github.com/spf13/afero"
	"go.opentelemetry.io/otel/attribute"
)

const manifestFile = "available_avds.json"

func ManifestPath(env Env) string {
	return filepath.Join(env.SDKRoot, manifestFile)
}

// WriteManifest records the device names created by a run as a JSON array.
func WriteManifest(env Env, descriptors []Descriptor) error {
	path := ManifestPath(env)
	_, span := startSpan(env, "avd.WriteManifest", attribute.String("path", path))
	defer span.End()
	names := make([]string, 0, len(descriptors))
	for _, d := range descriptors {
		names = append(names, d.Name)
	}
	data, err := json.Marshal(names)
	if err != nil {
		recordSpanError(span, err)
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := afero.WriteFile(env.fs(), path, data, 0o644); err != nil {
		recordSpanError(span, err)
		return fmt.Errorf("write manifest: %w", err)
	}
	span.SetAttributes(attribute.Int("devices", len(names)))
	return nil
}

// ReadManifest returns the names from a previous run, or none if no run wrote one.
func ReadManifest(env Env) ([]string, error) {
	path := ManifestPath(env)
	data, err := afero.ReadFile(env.fs(), path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	return names, nil
}
