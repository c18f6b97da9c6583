// Copyright (C) 2025 Forkbomb B.V.
// License: AGPL-3.0-only

package avd

import "strings"

// systemImageTarget names the sys-img package for one architecture/platform/level.
func systemImageTarget(architecture string, kind PlatformKind, platform, level string) string {
	if kind == PlatformDefault {
		platform = apiPrefix
	}
	return strings.Join([]string{"sys-img", architecture, platform, level}, "-")
}

type targetList struct {
	seen  map[string]bool
	items []string
}

func (l *targetList) add(target string) {
	if l.seen[target] {
		return
	}
	l.seen[target] = true
	l.items = append(l.items, target)
}

// SDKTargets lists the SDK packages needed for the requested combinations, plus whatever
// existing devices need so they stay installable after an upgrade.
func SDKTargets(apiLevels, architectures, platforms []string, existing []Descriptor) []string {
	list := &targetList{seen: map[string]bool{}}
	for _, level := range apiLevels {
		list.add(apiPrefix + "-" + level)
	}
	for _, architecture := range architectures {
		for _, platform := range platforms {
			kind := platformKindOf(platform)
			for _, level := range apiLevels {
				list.add(systemImageTarget(architecture, kind, platform, level))
			}
		}
	}
	for _, d := range existing {
		list.add(d.API)
		list.add(systemImageTarget(d.Architecture, d.PlatformKind, d.Platform, d.Level()))
	}
	return list.items
}
