// Copyright (C) 2025 Forkbomb B.V.
// License: AGPL-3.0-only

package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	core "github.com/forkbombeu/avdprovision/internal/avd"
	"github.com/forkbombeu/avdprovision/internal/config"
)

func main() {
	shutdown := setupTracing()
	err := newRootCmd().Execute()
	shutdown()
	if err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("%v", err))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configFile string
	root := &cobra.Command{
		Use:           "avdctl",
		Short:         "Android SDK system image and virtual device provisioning (CI-friendly)",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configFile != "" {
				viper.SetConfigFile(configFile)
			}
			return viper.BindPFlags(cmd.Flags())
		},
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "config file (default ./avdctl.yaml, then $HOME/.avdctl/avdctl.yaml)")
	root.PersistentFlags().String("sdk-root", "", "Android SDK root (default $ANDROID_SDK_ROOT or $ANDROID_HOME)")
	root.PersistentFlags().String("tool", "android", "SDK tool name under <sdk-root>/tools")
	root.PersistentFlags().String("log-format", "json", "log format: json or text")

	// setup
	setupCmd := &cobra.Command{
		Use:   "setup",
		Short: "Download SDK packages and system images, then create one AVD per image",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, env, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			var previous []string
			if cfg.ReuseManifest {
				if previous, err = core.ReadManifest(env); err != nil {
					return err
				}
			}
			opts, err := cfg.SetupOptions(previous)
			if err != nil {
				return err
			}
			if err := core.Setup(env, opts); err != nil {
				return err
			}
			names, err := core.ReadManifest(env)
			if err != nil {
				return err
			}
			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "Android setup complete: %d virtual devices recorded in %s\n",
				len(names), core.ManifestPath(env))
			return nil
		},
	}
	addInstallFlags(setupCmd)
	setupCmd.Flags().Bool("accept-licenses", false, "answer SDK license prompts with y")
	setupCmd.Flags().String("version", "1", "version tag embedded in AVD names (<image>-v<version>-wd-manager)")
	setupCmd.Flags().String("ram-size", "1024M", "hw.ramSize for every image (e.g. 1024, 1536M, 2GiB)")
	setupCmd.Flags().Bool("reuse-manifest", false, "keep the AVDs recorded by the previous run installable")
	root.AddCommand(setupCmd)

	// targets
	targetsCmd := &cobra.Command{
		Use:   "targets",
		Short: "Print the SDK targets setup would download",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			existing := make([]core.Descriptor, 0, len(cfg.ExistingAVDs))
			for _, name := range cfg.ExistingAVDs {
				d, err := core.ParseDescriptor(name)
				if err != nil {
					return err
				}
				existing = append(existing, d)
			}
			return renderTargets(cmd.OutOrStdout(), core.SDKTargets(cfg.APILevels, cfg.Architectures, cfg.Platforms, existing))
		},
	}
	addInstallFlags(targetsCmd)
	root.AddCommand(targetsCmd)

	// images
	var imagesVersion string
	imagesCmd := &cobra.Command{
		Use:   "images",
		Short: "List installed system images and the AVD names setup gives them",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, env, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			images, err := core.Discover(env)
			if err != nil {
				return err
			}
			return renderImages(cmd.OutOrStdout(), env, images, imagesVersion)
		},
	}
	imagesCmd.Flags().StringVar(&imagesVersion, "avd-version", "1", "version tag used for the AVD name column")
	root.AddCommand(imagesCmd)

	// manifest
	var manifestJSON bool
	manifestCmd := &cobra.Command{
		Use:   "manifest",
		Short: "Show the AVDs recorded by the last setup",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, env, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			names, err := core.ReadManifest(env)
			if err != nil {
				return err
			}
			if manifestJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if names == nil {
					names = []string{}
				}
				return enc.Encode(names)
			}
			if len(names) == 0 {
				color.New(color.FgYellow).Fprintf(cmd.OutOrStdout(), "No manifest at %s\n", core.ManifestPath(env))
				return nil
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
	manifestCmd.Flags().BoolVar(&manifestJSON, "json", false, "output JSON")
	root.AddCommand(manifestCmd)

	// check-ios
	checkIOSCmd := &cobra.Command{
		Use:   "check-ios",
		Short: "Check that this host can run iOS simulators",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, env, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := core.CheckIOS(env); err != nil {
				return err
			}
			color.New(color.FgGreen).Fprintln(cmd.OutOrStdout(), "iOS simulation available")
			return nil
		},
	}
	root.AddCommand(checkIOSCmd)

	return root
}

func addInstallFlags(cmd *cobra.Command) {
	cmd.Flags().StringSlice("api-levels", []string{"24"}, "Android API levels")
	cmd.Flags().StringSlice("architectures", []string{"x86"}, "system image architectures")
	cmd.Flags().StringSlice("platforms", []string{"default"}, "system image platforms (default, google_apis, android-wear, ...)")
	cmd.Flags().StringSlice("existing-avds", nil, "AVD image names from earlier runs to keep installable")
}

// loadConfig reads flags, environment and config file, and returns the SDK environment
// with the selected logger.
func loadConfig(cmd *cobra.Command) (*config.Config, core.Env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, core.Env{}, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, core.Env{}, err
	}
	env := cfg.Env(core.Detect())
	env.Context = cmd.Context()
	env.Logger = newLogger(cfg.LogFormat, cmd.OutOrStdout(), cmd.ErrOrStderr())
	return cfg, env, nil
}
