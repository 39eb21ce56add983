package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oarkflow/apkreleaser/internal/pipeline"
	"github.com/oarkflow/apkreleaser/internal/variant"
)

const (
	releaseTypePre  = "prerelease"
	releaseTypeFull = "full"
)

var (
	releaseType string
	dryRun      bool
)

var releaseCmd = &cobra.Command{
	Use:   "release",
	Short: "Create a release",
	Long: `Create a release by running the entire pipeline.

This includes:
  - Pulling the latest changes
  - Building the app
  - Bumping versionCode and versionName in build.gradle
  - Building one APK per variant
  - Creating the GitHub release and uploading every APK
  - Adding the release to the changelog

The release is a pre-release unless --type full is given.
Use --dry-run to stop once the APKs are built.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		preRelease, err := parseReleaseType(releaseType)
		if err != nil {
			return err
		}

		opts := pipeline.ReleaseOptions{
			ConfigFile: cfgFile,
			PreRelease: preRelease,
			Variant:    releaseName,
			DryRun:     dryRun,
		}

		p, err := pipeline.New(ctx, opts)
		if err != nil {
			return fmt.Errorf("failed to create pipeline: %w", err)
		}

		if err := p.Run(ctx); err != nil {
			return fmt.Errorf("release failed: %w", err)
		}

		return nil
	},
}

func parseReleaseType(s string) (bool, error) {
	switch s {
	case releaseTypePre, "":
		return true, nil
	case releaseTypeFull:
		return false, nil
	}
	return false, fmt.Errorf("invalid --type %q (expected %s or %s)", s, releaseTypePre, releaseTypeFull)
}

func init() {
	releaseCmd.Flags().StringVar(&releaseType, "type", releaseTypePre, "release type (prerelease, full)")
	releaseCmd.Flags().StringVar(&releaseName, "release-name", "", "build a single variant ("+strings.Join(variant.Names(), ", ")+")")
	releaseCmd.Flags().BoolVar(&dryRun, "dry-run", false, "build the APKs without publishing anything")

	releaseCmd.RegisterFlagCompletionFunc("release-name", completeVariants)
	releaseCmd.RegisterFlagCompletionFunc("type", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{releaseTypePre, releaseTypeFull}, cobra.ShellCompDirectiveNoFileComp
	})
}
