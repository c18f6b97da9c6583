// Copyright (C) 2025 Forkbomb B.V.
// License: AGPL-3.0-only

package avd

import (
	"reflect"
	"testing"
)

func TestSDKTargetsDefaultPlatform(t *testing.T) {
	got := SDKTargets([]string{"24"}, []string{"x86"}, []string{"DEFAULT"}, nil)
	want := []string{"android-24", "sys-img-x86-android-24"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestSDKTargetsCartesianOrder(t *testing.T) {
	got := SDKTargets(
		[]string{"23", "24"},
		[]string{"x86", "armeabi-v7a"},
		[]string{"default", "google_apis"},
		nil,
	)
	want := []string{
		"android-23", "android-24",
		"sys-img-x86-android-23", "sys-img-x86-android-24",
		"sys-img-x86-google_apis-23", "sys-img-x86-google_apis-24",
		"sys-img-armeabi-v7a-android-23", "sys-img-armeabi-v7a-android-24",
		"sys-img-armeabi-v7a-google_apis-23", "sys-img-armeabi-v7a-google_apis-24",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestSDKTargetsIncludesExistingDevicesOnce(t *testing.T) {
	existing := []Descriptor{
		NewDescriptor("android-23", "default", "x86"),
		NewDescriptor("android-23", "default", "x86"),
		NewDescriptor("android-24", "default", "x86"),
	}
	got := SDKTargets([]string{"24"}, []string{"x86"}, []string{"default"}, existing)
	want := []string{"android-24", "sys-img-x86-android-24", "android-23", "sys-img-x86-android-23"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	seen := map[string]bool{}
	for _, target := range got {
		if seen[target] {
			t.Fatalf("duplicate target %s in %v", target, got)
		}
		seen[target] = true
	}
}

func TestSDKTargetsDeduplicatesRequests(t *testing.T) {
	got := SDKTargets([]string{"24", "24"}, []string{"x86"}, []string{"default", "Default"}, nil)
	want := []string{"android-24", "sys-img-x86-android-24"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}
