/*
Package pipeline drives an Android release from source sync to changelog.

Steps run strictly one after another. Variants share the working tree, so a
variant is fully built and its files restored before the next one starts.
Every failure aborts the run except the initial git pull, which is allowed
to fail.
*/
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/charmbracelet/log"

	"github.com/oarkflow/apkreleaser/internal/artifact"
	"github.com/oarkflow/apkreleaser/internal/builder"
	"github.com/oarkflow/apkreleaser/internal/changelog"
	"github.com/oarkflow/apkreleaser/internal/config"
	"github.com/oarkflow/apkreleaser/internal/git"
	"github.com/oarkflow/apkreleaser/internal/gradle"
	"github.com/oarkflow/apkreleaser/internal/publish"
	"github.com/oarkflow/apkreleaser/internal/shell"
	"github.com/oarkflow/apkreleaser/internal/variant"
)

// ReleaseOptions contains options for the release pipeline
type ReleaseOptions struct {
	ConfigFile string

	// PreRelease flags the GitHub release as not yet stable
	PreRelease bool

	// Variant restricts the build to one variant name
	Variant string

	// DryRun stops after the variants are built
	DryRun bool
}

// Syncer updates the working tree from upstream.
type Syncer interface {
	Pull(ctx context.Context) error
}

// VariantBuilder builds a single variant.
type VariantBuilder interface {
	Build(ctx context.Context, v variant.Variant, version, tag string) (artifact.Artifact, error)
}

// ReleaseAPI creates remote releases.
type ReleaseAPI interface {
	CreateRelease(ctx context.Context, project, tag string, opts publish.ReleaseOptions) (*publish.Release, error)
}

// AssetUploader uploads one release asset.
type AssetUploader interface {
	Upload(ctx context.Context, url string, content []byte, token string) (*publish.Asset, error)
}

// ChangelogCompleter adds the changelog entry for a release.
type ChangelogCompleter interface {
	Complete(ctx context.Context, version *semver.Version, tag string, preRelease bool) (string, error)
}

// Deps are the collaborators of a pipeline.
type Deps struct {
	Runner    shell.Runner
	Syncer    Syncer
	Builder   VariantBuilder
	Uploader  AssetUploader
	Changelog ChangelogCompleter

	// Token returns the GitHub OAuth token. It is called once per run.
	Token func() (string, error)

	// Releases returns a release API authenticated with token.
	Releases func(token string) ReleaseAPI

	// Out receives the final report table and follow-up instructions.
	Out io.Writer
}

// Pipeline orchestrates the release process
type Pipeline struct {
	config    *config.Config
	options   ReleaseOptions
	deps      Deps
	artifacts *artifact.Manager
	report    *Report
}

// New creates a release pipeline wired to git, Gradle and GitHub.
func New(ctx context.Context, opts ReleaseOptions) (*Pipeline, error) {
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	runner := shell.NewExec()
	repo := git.NewRepo(cfg.RootDir, runner)

	deps := Deps{
		Runner:    runner,
		Syncer:    repo,
		Builder:   builder.New(cfg, runner, builder.ProjectContext(cfg)),
		Uploader:  publish.NewUploader(),
		Changelog: changelog.New(changelog.OptionsFromConfig(cfg), repo),
		Token: func() (string, error) {
			return publish.ReadToken(cfg.GitHub.TokenEnv, cfg.TokenFilePath())
		},
		Releases: func(token string) ReleaseAPI {
			return publish.NewGitHubClient(cfg.GitHub.APIURL, cfg.Owner, token)
		},
		Out: os.Stdout,
	}

	return NewWithDeps(cfg, opts, deps)
}

// NewWithDeps creates a pipeline with explicit collaborators.
func NewWithDeps(cfg *config.Config, opts ReleaseOptions, deps Deps) (*Pipeline, error) {
	if _, err := variant.Select(opts.Variant); err != nil {
		return nil, err
	}
	if deps.Out == nil {
		deps.Out = io.Discard
	}

	report := NewReport()
	report.PreRelease = opts.PreRelease
	report.DryRun = opts.DryRun

	return &Pipeline{
		config:    cfg,
		options:   opts,
		deps:      deps,
		artifacts: artifact.NewManager(),
		report:    report,
	}, nil
}

// Report returns the run-state report.
func (p *Pipeline) Report() *Report {
	return p.report
}

// Artifacts returns the artifacts built so far.
func (p *Pipeline) Artifacts() []artifact.Artifact {
	return p.artifacts.All()
}

// Run executes the full release pipeline. The run-state report is saved and
// printed whatever the outcome.
func (p *Pipeline) Run(ctx context.Context) (err error) {
	defer p.finish(&err)

	log.Info("Starting release", "project", p.config.ProjectName, "prerelease", p.options.PreRelease, "run", p.report.RunID)

	variants, err := variant.Select(p.options.Variant)
	if err != nil {
		return err
	}

	p.sync(ctx)

	if err := p.buildProject(ctx); err != nil {
		return err
	}

	info, version, err := p.bumpVersion()
	if err != nil {
		return err
	}
	tag := p.config.TagPrefix + info.Name

	for _, v := range variants {
		v := v
		err := p.report.Run("build "+string(v.Name), func() error {
			a, err := p.deps.Builder.Build(ctx, v, info.Name, tag)
			if err != nil {
				return err
			}
			p.artifacts.Add(a)
			p.report.Artifacts = p.artifacts.All()
			return nil
		})
		if err != nil {
			return err
		}
	}

	if p.options.DryRun {
		for _, name := range []string{"create release", "upload", "changelog"} {
			p.report.Skip(name, "dry run")
		}
		log.Info("Dry run: built artifacts are not published", "count", p.artifacts.Count())
		return nil
	}

	if err := p.publish(ctx, tag); err != nil {
		return err
	}

	if a, ok := p.artifacts.Primary(); ok {
		p.report.DownloadURL = a.DownloadURL
		log.Info("Main download URL", "url", a.DownloadURL)
	}

	return p.report.Run("changelog", func() error {
		cmds, err := p.deps.Changelog.Complete(ctx, version, tag, p.options.PreRelease)
		if err != nil {
			return err
		}
		fmt.Fprintf(p.deps.Out, "\nVerify that the changelog is correct:\n\n  %s\n\nThen run:\n\n  %s\n\n", p.config.ChangelogPath(), cmds)
		return nil
	})
}

// sync pulls upstream changes. A failure is recorded as a warning and the
// run continues with the local tree.
func (p *Pipeline) sync(ctx context.Context) {
	start := time.Now()
	if err := p.deps.Syncer.Pull(ctx); err != nil {
		log.Warn("git pull failed, continuing with local tree", "error", err)
		p.report.Warn("git pull", start, err)
		return
	}
	p.report.Steps = append(p.report.Steps, Step{Name: "git pull", Status: StatusOK, Started: start, Duration: time.Since(start)})
}

func (p *Pipeline) buildProject(ctx context.Context) error {
	fields := strings.Fields(p.config.Build.Command)
	if p.config.Build.SkipCommand || len(fields) == 0 {
		p.report.Skip("project build", "disabled")
		return nil
	}

	return p.report.Run("project build", func() error {
		cmd := shell.Command{
			Name:  fields[0],
			Args:  fields[1:],
			Dir:   p.config.AppPath(),
			Quiet: true,
		}
		if err := p.deps.Runner.Run(ctx, cmd); err != nil {
			return fmt.Errorf("project build failed: %w", err)
		}
		return nil
	})
}

func (p *Pipeline) bumpVersion() (gradle.VersionInfo, *semver.Version, error) {
	var info gradle.VersionInfo
	var version *semver.Version
	err := p.report.Run("bump version", func() error {
		log.Info("Updating version numbers in build.gradle")
		var err error
		if info, err = gradle.Patch(filepath.Join(p.config.AppPath(), variant.GradleFile)); err != nil {
			return err
		}
		version, err = info.Semver()
		return err
	})
	if err != nil {
		return gradle.VersionInfo{}, nil, err
	}
	p.report.Version = info.Name
	p.report.Tag = p.config.TagPrefix + info.Name
	return info, version, nil
}

func (p *Pipeline) publish(ctx context.Context, tag string) error {
	var token string
	var release *publish.Release
	err := p.report.Run("create release", func() error {
		var err error
		token, err = p.deps.Token()
		if err != nil {
			return err
		}
		release, err = p.deps.Releases(token).CreateRelease(ctx, p.config.ProjectName, tag, publish.ReleaseOptions{PreRelease: p.options.PreRelease})
		return err
	})
	if err != nil {
		return err
	}

	for _, a := range p.artifacts.All() {
		a := a
		err := p.report.Run("upload "+a.FileName, func() error {
			url, err := publish.ExpandUploadURL(release.UploadURL, a.FileName)
			if err != nil {
				return err
			}
			content, err := os.ReadFile(a.Path)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", a.Path, err)
			}
			log.Info("Uploading", "file", a.FileName, "url", url)
			_, err = p.deps.Uploader.Upload(ctx, url, content, token)
			return err
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) finish(errp *error) {
	p.report.Finished = time.Now()
	if *errp != nil {
		p.report.Error = (*errp).Error()
	}

	path := filepath.Join(p.config.ReleasePath(), ReportFile)
	if err := p.report.Save(path); err != nil {
		log.Warn("Failed to save run report", "path", path, "error", err)
	} else {
		log.Debug("Saved run report", "path", path)
	}

	if p.artifacts.Count() > 0 {
		path := filepath.Join(p.config.ReleasePath(), ArtifactsFile)
		if err := p.artifacts.Save(path); err != nil {
			log.Warn("Failed to save artifact list", "path", path, "error", err)
		}
	}
	p.report.Render(p.deps.Out)
}
