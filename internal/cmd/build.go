package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/oarkflow/apkreleaser/internal/pipeline"
	"github.com/oarkflow/apkreleaser/internal/variant"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build APKs only",
	Long: `Bump the version and build the APKs without publishing anything.

This is useful for testing the variant builds locally before creating
an actual release. The version in build.gradle is still incremented.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		opts := pipeline.ReleaseOptions{
			ConfigFile: cfgFile,
			Variant:    releaseName,
			DryRun:     true,
		}

		p, err := pipeline.New(ctx, opts)
		if err != nil {
			return fmt.Errorf("failed to create pipeline: %w", err)
		}

		if err := p.Run(ctx); err != nil {
			return fmt.Errorf("build failed: %w", err)
		}

		for _, a := range p.Artifacts() {
			fmt.Printf("%s  %s\n", a.SHA256, a.Path)
		}
		return nil
	},
}

func init() {
	buildCmd.Flags().StringVar(&releaseName, "release-name", "", "build a single variant ("+strings.Join(variant.Names(), ", ")+")")
	buildCmd.RegisterFlagCompletionFunc("release-name", completeVariants)
}
