package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/oarkflow/apkreleaser/internal/changelog"
	"github.com/oarkflow/apkreleaser/internal/config"
	"github.com/oarkflow/apkreleaser/internal/git"
	"github.com/oarkflow/apkreleaser/internal/gradle"
	"github.com/oarkflow/apkreleaser/internal/shell"
	"github.com/oarkflow/apkreleaser/internal/variant"
)

var (
	changelogTag        string
	changelogVersion    string
	changelogPreRelease bool
)

var changelogCmd = &cobra.Command{
	Use:   "changelog",
	Short: "Preview the changelog entry",
	Long: `Print the changelog entry the next release would add.

Without --version the version currently in build.gradle is used. Without
--tag the tag is derived from the version and the configured tag prefix.
The changelog file is not modified.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		version := changelogVersion
		if version == "" {
			data, err := os.ReadFile(filepath.Join(cfg.AppPath(), variant.GradleFile))
			if err != nil {
				return fmt.Errorf("failed to read build.gradle: %w", err)
			}
			if version, err = gradle.ExtractVersionName(string(data)); err != nil {
				return err
			}
		}

		tag := changelogTag
		if tag == "" {
			tag = cfg.TagPrefix + version
		}

		sv, err := gradle.VersionInfo{Name: version}.Semver()
		if err != nil {
			return err
		}

		repo := git.NewRepo(cfg.RootDir, shell.NewExec())
		entry, err := changelog.New(changelog.OptionsFromConfig(cfg), repo).Entry(ctx, sv, tag, changelogPreRelease)
		if err != nil {
			return fmt.Errorf("failed to generate changelog: %w", err)
		}

		fmt.Print(entry)
		return nil
	},
}

func init() {
	changelogCmd.Flags().StringVar(&changelogTag, "tag", "", "release tag (default is tag_prefix + version)")
	changelogCmd.Flags().StringVar(&changelogVersion, "version", "", "release version (default is the versionName in build.gradle)")
	changelogCmd.Flags().BoolVar(&changelogPreRelease, "prerelease", true, "mark the entry as a pre-release")
}
