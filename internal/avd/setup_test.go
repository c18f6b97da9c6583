// Copyright (C) 2025 Forkbomb B.V.
// License: AGPL-3.0-only

package avd

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/containerd/errdefs"
	"github.com/spf13/afero"
)

// fakeSDK installs a stub tools/android that records every call in calls.log,
// answers prompts the way the real tool asks them and creates the system image
// directory when sys-img-x86-android-24 is requested.
func fakeSDK(t *testing.T, createExit int) (Env, *bytes.Buffer) {
	t.Helper()
	root := t.TempDir()
	calls := filepath.Join(root, "calls.log")
	created := filepath.Join(root, "created.log")
	image := filepath.Join(root, "system-images", "android-24", "default", "x86")
	writeScript(t, filepath.Join(root, "tools", "android"), fmt.Sprintf(`echo "$*" >> %q
case "$1" in
update)
  printf "Do you accept the license 'android-sdk-license' [y/n]: "
  read answer
  echo "license $answer" >> %q
  case "$*" in
  *sys-img-x86-android-24*) mkdir -p %q ;;
  esac
  ;;
delete)
  echo "Error: There is no Android Virtual Device named '$4'." >&2
  exit 1
  ;;
create)
  printf "Do you wish to create a custom hardware profile [no]"
  read answer
  echo "$4 $answer" >> %q
  exit %d
  ;;
esac
`, calls, calls, image, created, createExit))

	var logs bytes.Buffer
	env := Env{
		SDKRoot: root,
		HostOS:  "linux",
		FS:      afero.NewOsFs(),
		Logger:  slog.New(slog.NewJSONHandler(&logs, nil)),
	}
	return env, &logs
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func defaultSetupOptions() SetupOptions {
	return SetupOptions{
		APILevels:      []string{"24"},
		Architectures:  []string{"x86"},
		Platforms:      []string{"default"},
		AcceptLicenses: true,
		Version:        "1",
	}
}

func TestSetupEndToEnd(t *testing.T) {
	env, logs := fakeSDK(t, 0)
	if err := Setup(env, defaultSetupOptions()); err != nil {
		t.Fatalf("setup: %v", err)
	}

	wantCalls := []string{
		"update sdk -u -t platform-tool,tool",
		"license y",
		"update sdk -u -a -t android-24,sys-img-x86-android-24,build-tools-24.0.0",
		"license y",
		"delete avd --name android-24-default-x86-v1-wd-manager",
		"create avd --name android-24-default-x86-v1-wd-manager --target android-24 --abi x86",
	}
	gotCalls := readLines(t, filepath.Join(env.SDKRoot, "calls.log"))
	if strings.Join(gotCalls, "\n") != strings.Join(wantCalls, "\n") {
		t.Fatalf("unexpected calls:\n%s\nwant:\n%s", strings.Join(gotCalls, "\n"), strings.Join(wantCalls, "\n"))
	}

	created := readLines(t, filepath.Join(env.SDKRoot, "created.log"))
	if len(created) != 1 || created[0] != "android-24-default-x86-v1-wd-manager no" {
		t.Fatalf("unexpected created.log %v", created)
	}

	hw := readLines(t, filepath.Join(env.SDKRoot, "system-images", "android-24", "default", "x86", "hardware.ini"))
	for _, want := range []string{"hw.keyboard=yes", "hw.battery=yes", "hw.ramSize=1024"} {
		if countLine(hw, want) != 1 {
			t.Fatalf("expected %q in hardware.ini, got %v", want, hw)
		}
	}

	manifest, err := os.ReadFile(filepath.Join(env.SDKRoot, "available_avds.json"))
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	if string(manifest) != `["android-24-default-x86"]` {
		t.Fatalf("unexpected manifest %s", manifest)
	}

	var stages []string
	for _, record := range decodeLogLines(t, logs) {
		if _, ok := record["stage"]; ok {
			stages = append(stages, record["msg"].(string))
		}
	}
	var wantStages []string
	for _, stage := range setupStages {
		wantStages = append(wantStages, stage.message)
	}
	if strings.Join(stages, "|") != strings.Join(wantStages, "|") {
		t.Fatalf("unexpected stage order %v", stages)
	}
}

func TestSetupIncludesExistingDevices(t *testing.T) {
	env, _ := fakeSDK(t, 0)
	opts := defaultSetupOptions()
	opts.ExistingAVDs = []string{"android-23-default-x86"}
	if err := Setup(env, opts); err != nil {
		t.Fatalf("setup: %v", err)
	}
	calls := readLines(t, filepath.Join(env.SDKRoot, "calls.log"))
	want := "update sdk -u -a -t android-24,sys-img-x86-android-24,android-23,sys-img-x86-android-23,build-tools-24.0.0"
	if countLine(calls, want) != 1 {
		t.Fatalf("expected %q in %v", want, calls)
	}
}

func TestSetupStopsWhenCreateFails(t *testing.T) {
	env, _ := fakeSDK(t, 2)
	err := Setup(env, defaultSetupOptions())
	var exitErr *ProcessExitError
	if !errors.As(err, &exitErr) || exitErr.Code != 2 || exitErr.Command != "create" {
		t.Fatalf("expected create exit 2, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "create-devices: ") {
		t.Fatalf("expected stage prefix, got %q", err.Error())
	}
	if _, statErr := os.Stat(filepath.Join(env.SDKRoot, "available_avds.json")); !os.IsNotExist(statErr) {
		t.Fatalf("manifest must not be written after a failure, stat err %v", statErr)
	}
}

func TestSetupMissingTool(t *testing.T) {
	env := quietEnv(t)
	err := Setup(env, defaultSetupOptions())
	var spawnErr *ProcessSpawnError
	if !errors.As(err, &spawnErr) {
		t.Fatalf("expected spawn error, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "download-tools: ") {
		t.Fatalf("expected failure in first stage, got %q", err.Error())
	}
}

func TestSetupContinuesWhenAccelerationInstallFails(t *testing.T) {
	env, logs := fakeSDK(t, 0)
	env.HostOS = "darwin"
	sudo := filepath.Join(t.TempDir(), "sudo")
	writeScript(t, sudo, "exit 1\n")
	env.Sudo = sudo
	if err := os.MkdirAll(haxmDir(env), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	if err := Setup(env, defaultSetupOptions()); err != nil {
		t.Fatalf("setup: %v", err)
	}
	calls := readLines(t, filepath.Join(env.SDKRoot, "calls.log"))
	if calls[0] != "update sdk -u -t platform-tool,tool,extra-intel-Hardware_Accelerated_Execution_Manager" {
		t.Fatalf("expected haxm package on darwin, got %q", calls[0])
	}
	if !strings.Contains(logs.String(), "hardware acceleration installer did not succeed") {
		t.Fatal("expected installer failure to be logged")
	}
}

func TestSetupRejectsBadOptions(t *testing.T) {
	env := quietEnv(t)
	opts := defaultSetupOptions()
	opts.APILevels = nil
	if err := Setup(env, opts); !errdefs.IsInvalidArgument(err) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
	opts = defaultSetupOptions()
	opts.ExistingAVDs = []string{"bogus"}
	if err := Setup(env, opts); !errdefs.IsInvalidArgument(err) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
	opts = defaultSetupOptions()
	opts.Hardware.RAMMegabytes = -1
	if err := Setup(env, opts); !errdefs.IsInvalidArgument(err) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}

func TestSetupRequiresSDKRoot(t *testing.T) {
	sdk, _ := fakeSDK(t, 0)
	dir := t.TempDir()
	t.Chdir(dir)

	env := sdk
	env.SDKRoot = ""
	err := Setup(env, defaultSetupOptions())
	if !errdefs.IsInvalidArgument(err) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(sdk.SDKRoot, "calls.log")); !os.IsNotExist(statErr) {
		t.Fatalf("tool ran without an SDK root: %v", statErr)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "available_avds.json")); !os.IsNotExist(statErr) {
		t.Fatalf("manifest written to the working directory: %v", statErr)
	}
}

func TestSetupPartialHardwareKeepsDevicesEnabled(t *testing.T) {
	env, _ := fakeSDK(t, 0)
	opts := defaultSetupOptions()
	opts.Hardware = HardwareProfile{RAMMegabytes: 2048}
	if err := Setup(env, opts); err != nil {
		t.Fatalf("setup: %v", err)
	}
	hw := readLines(t, filepath.Join(env.SDKRoot, "system-images", "android-24", "default", "x86", "hardware.ini"))
	for _, want := range []string{"hw.keyboard=yes", "hw.battery=yes", "hw.ramSize=2048"} {
		if countLine(hw, want) != 1 {
			t.Fatalf("expected %q in hardware.ini, got %v", want, hw)
		}
	}
}
