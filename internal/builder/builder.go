/*
Package builder produces one release APK per variant.

A build edits the working tree for the variant, runs Gradle, copies the APK
into the release directory and puts the working tree back the way it found
it. The edit and the restore are paired by a deferred call so the tree is
restored on every exit path.
*/
package builder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/oarkflow/apkreleaser/internal/artifact"
	"github.com/oarkflow/apkreleaser/internal/checksum"
	"github.com/oarkflow/apkreleaser/internal/config"
	"github.com/oarkflow/apkreleaser/internal/shell"
	"github.com/oarkflow/apkreleaser/internal/tmpl"
	"github.com/oarkflow/apkreleaser/internal/variant"
)

// apkOutput is where Gradle writes the release APK, relative to the
// variant build directory.
const apkOutput = "outputs/apk/release/app-release.apk"

// ArtifactNotFoundError is returned when Gradle succeeded but the APK is not
// where it should be.
type ArtifactNotFoundError struct {
	Variant string
	Path    string
}

func (e *ArtifactNotFoundError) Error() string {
	return fmt.Sprintf("variant %s: built APK not found at %s", e.Variant, e.Path)
}

// Builder builds APK variants.
type Builder struct {
	cfg     *config.Config
	runner  shell.Runner
	tmplCtx *tmpl.Context

	// isWSL reports whether Gradle must be started through cmd.exe.
	isWSL func() bool
}

// New creates a builder. tmplCtx must carry the project-level template
// values; per-variant values are added by Build.
func New(cfg *config.Config, runner shell.Runner, tmplCtx *tmpl.Context) *Builder {
	b := &Builder{
		cfg:     cfg,
		runner:  runner,
		tmplCtx: tmplCtx,
	}
	b.isWSL = func() bool {
		if cfg.Build.WSLShell == "" {
			return false
		}
		_, err := os.Stat(cfg.Build.WSLShell)
		return err == nil
	}
	return b
}

// Build produces the APK for v. The files mutated for v are restored before
// Build returns, whatever the outcome.
func (b *Builder) Build(ctx context.Context, v variant.Variant, version, tag string) (a artifact.Artifact, err error) {
	appDir := b.cfg.AppPath()
	log.Info("Creating release", "variant", v.Name, "version", version+v.Suffix())

	pending, err := variant.Apply(appDir, v)
	if err != nil {
		return artifact.Artifact{}, err
	}
	defer func() {
		if rerr := pending.Restore(); rerr != nil {
			err = errors.Join(err, rerr)
		}
	}()

	buildDir := filepath.Join(appDir, "android", "app", v.BuildDir())
	if err := os.RemoveAll(buildDir); err != nil {
		return artifact.Artifact{}, fmt.Errorf("failed to clean %s: %w", buildDir, err)
	}

	log.Info("Building APK", "variant", v.Name, "build_dir", v.BuildDir())
	if err := b.runner.Run(ctx, b.GradleCommand(v)); err != nil {
		return artifact.Artifact{}, fmt.Errorf("gradle build for %s failed: %w", v.Name, err)
	}

	builtAPK := filepath.Join(buildDir, filepath.FromSlash(apkOutput))
	stat, err := os.Stat(builtAPK)
	if err != nil {
		return artifact.Artifact{}, &ArtifactNotFoundError{Variant: string(v.Name), Path: builtAPK}
	}
	log.Info("Built APK", "path", builtAPK, "size", stat.Size())

	n, err := b.names(v, version, tag)
	if err != nil {
		return artifact.Artifact{}, err
	}

	releaseDir := b.cfg.ReleasePath()
	if err := os.MkdirAll(releaseDir, 0755); err != nil {
		return artifact.Artifact{}, fmt.Errorf("failed to create release dir: %w", err)
	}

	dst := filepath.Join(releaseDir, n.fileName)
	log.Info("Copying APK", "to", dst)
	if err := copyFile(builtAPK, dst); err != nil {
		return artifact.Artifact{}, err
	}

	if v.Primary {
		latest := filepath.Join(releaseDir, n.latest)
		log.Info("Copying APK", "to", latest)
		if err := copyFile(builtAPK, latest); err != nil {
			return artifact.Artifact{}, err
		}
	}

	sum, size, err := checksum.SHA256(dst)
	if err != nil {
		return artifact.Artifact{}, err
	}

	return artifact.Artifact{
		Variant:     string(v.Name),
		FileName:    n.fileName,
		Path:        dst,
		DownloadURL: n.downloadURL,
		Primary:     v.Primary,
		Size:        size,
		SHA256:      sum,
	}, nil
}

// GradleCommand returns the Gradle invocation for v. On a WSL host the
// Windows wrapper is used from the repository root; elsewhere gradlew runs
// from the android directory. Both forms pass the same task and buildDir.
func (b *Builder) GradleCommand(v variant.Variant) shell.Command {
	args := []string{b.cfg.Build.GradleTask, "-PbuildDir=" + v.BuildDir()}
	androidDir := filepath.Join(b.cfg.AppPath(), "android")

	if b.isWSL() {
		rel, err := filepath.Rel(b.cfg.RootDir, androidDir)
		if err != nil {
			rel = androidDir
		}
		winDir := strings.ReplaceAll(filepath.ToSlash(rel), "/", `\`)
		return shell.Command{
			Name: b.cfg.Build.WSLShell,
			Args: []string{"/c", fmt.Sprintf("cd %s && gradlew.bat %s", winDir, strings.Join(args, " "))},
			Dir:  b.cfg.RootDir,
		}
	}

	return shell.Command{
		Name: "./gradlew",
		Args: args,
		Dir:  androidDir,
	}
}

type names struct {
	fileName    string
	latest      string
	downloadURL string
}

func (b *Builder) names(v variant.Variant, version, tag string) (names, error) {
	ctx := b.tmplCtx.With(map[string]interface{}{
		"Version": version,
		"Tag":     tag,
		"Variant": string(v.Name),
		"Suffix":  v.Suffix(),
	})

	var n names
	var err error
	if n.fileName, err = ctx.Apply(b.cfg.NameTemplate); err != nil {
		return names{}, fmt.Errorf("failed to render name_template: %w", err)
	}
	if n.latest, err = ctx.Apply(b.cfg.LatestTemplate); err != nil {
		return names{}, fmt.Errorf("failed to render latest_template: %w", err)
	}
	ctx.Set("FileName", n.fileName)
	if n.downloadURL, err = ctx.Apply(b.cfg.DownloadURLTemplate); err != nil {
		return names{}, fmt.Errorf("failed to render download_url_template: %w", err)
	}
	return n, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy to %s: %w", dst, err)
	}
	return out.Close()
}

// ProjectContext returns the template values shared by every variant.
func ProjectContext(cfg *config.Config) *tmpl.Context {
	return tmpl.New(map[string]interface{}{
		"ProjectName":    cfg.ProjectName,
		"Owner":          cfg.Owner,
		"AppName":        cfg.AppName,
		"ArtifactPrefix": cfg.ArtifactPrefix,
	})
}
