package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/oarkflow/apkreleaser"
	"github.com/oarkflow/apkreleaser/internal/config"
	"github.com/oarkflow/apkreleaser/internal/gradle"
	"github.com/oarkflow/apkreleaser/internal/variant"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check configuration and working tree",
	Long: `Check that the configuration is valid and that the files a release
edits are present.

This validates:
  - YAML syntax
  - Required fields
  - Template syntax
  - The version fields of build.gradle
  - The files touched by the variants`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("config validation failed: %w", err)
		}

		data, err := os.ReadFile(filepath.Join(cfg.AppPath(), variant.GradleFile))
		if err != nil {
			return fmt.Errorf("failed to read build.gradle: %w", err)
		}
		code, err := gradle.ExtractVersionCode(string(data))
		if err != nil {
			return err
		}
		name, err := gradle.ExtractVersionName(string(data))
		if err != nil {
			return err
		}

		for _, v := range variant.All() {
			for _, m := range v.Mutations {
				path := filepath.Join(cfg.AppPath(), m.File)
				if _, err := os.Stat(path); err != nil {
					return fmt.Errorf("variant %s: %w", v.Name, err)
				}
				if m.CopyFrom != "" {
					if _, err := os.Stat(filepath.Join(cfg.AppPath(), m.CopyFrom)); err != nil {
						return fmt.Errorf("variant %s: %w", v.Name, err)
					}
				}
			}
		}

		fmt.Printf("✓ Configuration is valid\n")
		fmt.Printf("✓ Current version %s (code %d), next tag %s\n", name, code, cfg.TagPrefix+name)
		return nil
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new configuration file",
	Long: `Initialize a new .apkreleaser.yaml configuration file.

This creates a configuration file holding the defaults that you can
customize for your project.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := config.DefaultFile
		if cfgFile != "" {
			configPath = cfgFile
		}

		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("config file already exists: %s", configPath)
		}

		template := config.DefaultTemplate()
		if err := os.WriteFile(configPath, []byte(template), 0644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}

		fmt.Printf("✓ Created %s\n", configPath)
		fmt.Println("\nEdit this file to customize your release configuration.")
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit, and build date of apkreleaser.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("apkreleaser %s\n", apkreleaser.Version)
		if apkreleaser.GitCommit != "" {
			fmt.Printf("  Commit: %s\n", apkreleaser.GitCommit)
		}
		if apkreleaser.BuildDate != "" {
			fmt.Printf("  Built:  %s\n", apkreleaser.BuildDate)
		}
	},
}
