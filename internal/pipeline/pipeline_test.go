package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oarkflow/apkreleaser/internal/artifact"
	"github.com/oarkflow/apkreleaser/internal/config"
	"github.com/oarkflow/apkreleaser/internal/publish"
	"github.com/oarkflow/apkreleaser/internal/shell"
	"github.com/oarkflow/apkreleaser/internal/shell/shelltest"
	"github.com/oarkflow/apkreleaser/internal/variant"
)

const gradleFile = `android {
    defaultConfig {
        versionCode 40
        versionName "2.3.1"
    }
}
`

type fakeSyncer struct {
	err   error
	calls int
}

func (f *fakeSyncer) Pull(ctx context.Context) error {
	f.calls++
	return f.err
}

type fakeBuilder struct {
	dir    string
	builds []string
	tags   []string
	err    error
}

func (f *fakeBuilder) Build(ctx context.Context, v variant.Variant, version, tag string) (artifact.Artifact, error) {
	f.builds = append(f.builds, string(v.Name))
	f.tags = append(f.tags, tag)
	if f.err != nil {
		return artifact.Artifact{}, f.err
	}
	name := "joplin-v" + version + v.Suffix() + ".apk"
	path := filepath.Join(f.dir, name)
	if err := os.WriteFile(path, []byte("apk"), 0644); err != nil {
		return artifact.Artifact{}, err
	}
	return artifact.Artifact{
		Variant:     string(v.Name),
		FileName:    name,
		Path:        path,
		DownloadURL: "https://example.com/" + tag + "/" + name,
		Primary:     v.Primary,
	}, nil
}

type fakeReleases struct {
	token string
	tag   string
	opts  publish.ReleaseOptions
	calls int
}

func (f *fakeReleases) CreateRelease(ctx context.Context, project, tag string, opts publish.ReleaseOptions) (*publish.Release, error) {
	f.calls++
	f.tag = tag
	f.opts = opts
	return &publish.Release{TagName: tag, UploadURL: "https://uploads.example.com/assets{?name,label}"}, nil
}

type fakeUploader struct {
	urls  []string
	err   error
	token string
}

func (f *fakeUploader) Upload(ctx context.Context, url string, content []byte, token string) (*publish.Asset, error) {
	f.urls = append(f.urls, url)
	f.token = token
	if f.err != nil {
		return nil, f.err
	}
	return &publish.Asset{BrowserDownloadURL: url}, nil
}

type fakeChangelog struct {
	calls   int
	version string
	tag     string
	pre     bool
}

func (f *fakeChangelog) Complete(ctx context.Context, version *semver.Version, tag string, preRelease bool) (string, error) {
	f.calls++
	f.version, f.tag, f.pre = version.String(), tag, preRelease
	return "git pull && git push --tags", nil
}

type fixture struct {
	cfg       *config.Config
	runner    *shelltest.Fake
	syncer    *fakeSyncer
	builder   *fakeBuilder
	releases  *fakeReleases
	uploader  *fakeUploader
	changelog *fakeChangelog
	tokenErr  error
	out       bytes.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	cfg := config.Default()
	cfg.RootDir = t.TempDir()

	gradlePath := filepath.Join(cfg.AppPath(), variant.GradleFile)
	require.NoError(t, os.MkdirAll(filepath.Dir(gradlePath), 0755))
	require.NoError(t, os.WriteFile(gradlePath, []byte(gradleFile), 0644))

	apkDir := t.TempDir()
	return &fixture{
		cfg:       &cfg,
		runner:    &shelltest.Fake{},
		syncer:    &fakeSyncer{},
		builder:   &fakeBuilder{dir: apkDir},
		releases:  &fakeReleases{},
		uploader:  &fakeUploader{},
		changelog: &fakeChangelog{},
	}
}

func (f *fixture) pipeline(t *testing.T, opts ReleaseOptions) *Pipeline {
	t.Helper()
	p, err := NewWithDeps(f.cfg, opts, Deps{
		Runner:    f.runner,
		Syncer:    f.syncer,
		Builder:   f.builder,
		Uploader:  f.uploader,
		Changelog: f.changelog,
		Token: func() (string, error) {
			return "secret", f.tokenErr
		},
		Releases: func(token string) ReleaseAPI {
			f.releases.token = token
			return f.releases
		},
		Out: &f.out,
	})
	require.NoError(t, err)
	return p
}

func (f *fixture) savedReport(t *testing.T) Report {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(f.cfg.ReleasePath(), ReportFile))
	require.NoError(t, err)
	var r Report
	require.NoError(t, json.Unmarshal(data, &r))
	return r
}

func TestRunFullRelease(t *testing.T) {
	f := newFixture(t)
	p := f.pipeline(t, ReleaseOptions{PreRelease: true})

	require.NoError(t, p.Run(context.Background()))

	data, err := os.ReadFile(filepath.Join(f.cfg.AppPath(), variant.GradleFile))
	require.NoError(t, err)
	assert.Contains(t, string(data), "versionCode 41")
	assert.Contains(t, string(data), `versionName "2.3.2"`)

	assert.Equal(t, 1, f.syncer.calls)
	assert.Equal(t, []string{"main", "32bit", "vosk"}, f.builder.builds)
	assert.Equal(t, []string{"android-v2.3.2", "android-v2.3.2", "android-v2.3.2"}, f.builder.tags)

	assert.Equal(t, 1, f.releases.calls)
	assert.Equal(t, "secret", f.releases.token)
	assert.Equal(t, "android-v2.3.2", f.releases.tag)
	assert.True(t, f.releases.opts.PreRelease)

	assert.Equal(t, []string{
		"https://uploads.example.com/assets?name=joplin-v2.3.2.apk",
		"https://uploads.example.com/assets?name=joplin-v2.3.2-32bit.apk",
		"https://uploads.example.com/assets?name=joplin-v2.3.2-vosk.apk",
	}, f.uploader.urls)
	assert.Equal(t, "secret", f.uploader.token)

	assert.Equal(t, 1, f.changelog.calls)
	assert.Equal(t, "2.3.2", f.changelog.version)
	assert.Equal(t, "android-v2.3.2", f.changelog.tag)
	assert.True(t, f.changelog.pre)
	assert.Contains(t, f.out.String(), "git pull && git push --tags")

	calls := f.runner.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "yarn", calls[0].Name)
	assert.Equal(t, []string{"run", "build"}, calls[0].Args)
	assert.Equal(t, f.cfg.AppPath(), calls[0].Dir)

	r := f.savedReport(t)
	assert.Equal(t, "2.3.2", r.Version)
	assert.Equal(t, "android-v2.3.2", r.Tag)
	assert.Equal(t, "https://example.com/android-v2.3.2/joplin-v2.3.2.apk", r.DownloadURL)
	assert.Empty(t, r.Error)
	assert.Len(t, r.Artifacts, 3)

	data, err = os.ReadFile(filepath.Join(f.cfg.ReleasePath(), ArtifactsFile))
	require.NoError(t, err)
	var saved []artifact.Artifact
	require.NoError(t, json.Unmarshal(data, &saved))
	require.Len(t, saved, 3)
	assert.True(t, saved[0].Primary)
}

func TestRunSingleVariant(t *testing.T) {
	f := newFixture(t)
	p := f.pipeline(t, ReleaseOptions{Variant: "vosk"})

	require.NoError(t, p.Run(context.Background()))
	assert.Equal(t, []string{"vosk"}, f.builder.builds)
	assert.Len(t, f.uploader.urls, 1)
	assert.False(t, f.releases.opts.PreRelease)
}

func TestNewRejectsUnknownVariant(t *testing.T) {
	f := newFixture(t)
	_, err := NewWithDeps(f.cfg, ReleaseOptions{Variant: "x86"}, Deps{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown variant")
}

func TestRunContinuesWhenPullFails(t *testing.T) {
	f := newFixture(t)
	f.syncer.err = errors.New("no network")
	p := f.pipeline(t, ReleaseOptions{})

	require.NoError(t, p.Run(context.Background()))
	assert.Len(t, f.builder.builds, 3)

	r := p.Report()
	require.NotEmpty(t, r.Steps)
	assert.Equal(t, "git pull", r.Steps[0].Name)
	assert.Equal(t, StatusWarning, r.Steps[0].Status)
	assert.False(t, r.Failed())
}

func TestRunAbortsOnUploadFailure(t *testing.T) {
	f := newFixture(t)
	f.uploader.err = &publish.UploadError{URL: "u", Status: 200, Reason: "missing browser_download_url"}
	p := f.pipeline(t, ReleaseOptions{})

	err := p.Run(context.Background())
	var uerr *publish.UploadError
	require.ErrorAs(t, err, &uerr)

	assert.Len(t, f.uploader.urls, 1)
	assert.Equal(t, 0, f.changelog.calls)

	r := f.savedReport(t)
	assert.Contains(t, r.Error, "browser_download_url")
	assert.Empty(t, r.DownloadURL)
}

func TestRunAbortsOnBuildFailure(t *testing.T) {
	f := newFixture(t)
	f.builder.err = errors.New("gradle exploded")
	p := f.pipeline(t, ReleaseOptions{})

	require.Error(t, p.Run(context.Background()))
	assert.Equal(t, []string{"main"}, f.builder.builds)
	assert.Equal(t, 0, f.releases.calls)
	assert.True(t, p.Report().Failed())
}

func TestRunAbortsOnProjectBuildFailure(t *testing.T) {
	f := newFixture(t)
	f.runner.Handler = func(cmd shell.Command) error {
		return &shell.ExitError{Command: cmd.String(), Code: 1}
	}
	p := f.pipeline(t, ReleaseOptions{})

	err := p.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "project build failed")
	assert.Empty(t, f.builder.builds)

	data, rerr := os.ReadFile(filepath.Join(f.cfg.AppPath(), variant.GradleFile))
	require.NoError(t, rerr)
	assert.Equal(t, gradleFile, string(data))
}

func TestRunSkipsProjectBuild(t *testing.T) {
	f := newFixture(t)
	f.cfg.Build.SkipCommand = true
	p := f.pipeline(t, ReleaseOptions{})

	require.NoError(t, p.Run(context.Background()))
	assert.Empty(t, f.runner.Calls())
}

func TestRunTokenFailure(t *testing.T) {
	f := newFixture(t)
	f.tokenErr = errors.New("no token")
	p := f.pipeline(t, ReleaseOptions{})

	require.Error(t, p.Run(context.Background()))
	assert.Equal(t, 0, f.releases.calls)
	assert.Empty(t, f.uploader.urls)
}

func TestDryRunPublishesNothing(t *testing.T) {
	f := newFixture(t)
	p := f.pipeline(t, ReleaseOptions{DryRun: true})

	require.NoError(t, p.Run(context.Background()))
	assert.Len(t, f.builder.builds, 3)
	assert.Equal(t, 0, f.releases.calls)
	assert.Empty(t, f.uploader.urls)
	assert.Equal(t, 0, f.changelog.calls)

	r := f.savedReport(t)
	assert.True(t, r.DryRun)
	last := r.Steps[len(r.Steps)-1]
	assert.Equal(t, "changelog", last.Name)
	assert.Equal(t, StatusSkipped, last.Status)
}

func TestRunFailsOnBadGradleFile(t *testing.T) {
	f := newFixture(t)
	gradlePath := filepath.Join(f.cfg.AppPath(), variant.GradleFile)
	require.NoError(t, os.WriteFile(gradlePath, []byte("android {}\n"), 0644))
	p := f.pipeline(t, ReleaseOptions{})

	require.Error(t, p.Run(context.Background()))
	assert.Empty(t, f.builder.builds)
	assert.NotEmpty(t, f.savedReport(t).Error)
}
