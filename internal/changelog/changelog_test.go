package changelog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oarkflow/apkreleaser/internal/git"
)

type fakeHistory struct {
	prev    string
	commits []git.Commit
	since   string
	err     error
}

func (f *fakeHistory) PreviousTag(ctx context.Context, prefix string, current *semver.Version) (string, error) {
	return f.prev, f.err
}

func (f *fakeHistory) CommitsSince(ctx context.Context, since string) ([]git.Commit, error) {
	f.since = since
	return f.commits, nil
}

func newCompleter(path string, h History) *Completer {
	c := New(Options{
		Path:        path,
		AppName:     "Android",
		TagPrefix:   "android-v",
		ReleasesURL: "https://github.com/laurent22/joplin/releases/",
		Include:     []string{`(?i)^(all|mobile|android)\b`},
		Exclude:     []string{`^Merge `},
	}, h)
	c.now = func() time.Time { return time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC) }
	return c
}

func TestEntry(t *testing.T) {
	h := &fakeHistory{
		prev: "android-v2.3.1",
		commits: []git.Commit{
			{Subject: "Android: Fixed crash on startup"},
			{Subject: "Desktop: Not relevant"},
			{Subject: "All: Improved sync speed "},
		},
	}

	entry, err := newCompleter("", h).Entry(context.Background(), semver.MustParse("2.3.2"), "android-v2.3.2", true)
	require.NoError(t, err)
	assert.Equal(t, "android-v2.3.1", h.since)
	assert.Equal(t, "## [android-v2.3.2](https://github.com/laurent22/joplin/releases/tag/android-v2.3.2) (Pre-release) - 2024-05-01T08:30:00Z\n\n"+
		"- Android: Fixed crash on startup\n"+
		"- All: Improved sync speed\n", entry)

	full, err := newCompleter("", &fakeHistory{}).Entry(context.Background(), semver.MustParse("2.3.2"), "android-v2.3.2", false)
	require.NoError(t, err)
	assert.NotContains(t, full, "Pre-release")
	assert.Contains(t, full, "- No notable changes\n")
}

func TestEntryErrors(t *testing.T) {
	_, err := newCompleter("", &fakeHistory{err: errors.New("git broke")}).Entry(context.Background(), semver.MustParse("2.3.2"), "android-v2.3.2", false)
	assert.ErrorContains(t, err, "git broke")
}

func TestInsert(t *testing.T) {
	existing := "# Android Changelog\n\n## [android-v2.3.1](url) - 2024-04-01\n\n- Old\n"

	out, err := Insert(existing, "## [android-v2.3.2](url) - now\n\n- New\n", "android-v2.3.2", "Android")
	require.NoError(t, err)
	assert.Equal(t, "# Android Changelog\n\n## [android-v2.3.2](url) - now\n\n- New\n\n## [android-v2.3.1](url) - 2024-04-01\n\n- Old\n", out)

	_, err = Insert(out, "## [android-v2.3.2](url)\n", "android-v2.3.2", "Android")
	assert.Error(t, err, "duplicate entry")

	out, err = Insert("", "## [android-v1.0.0](url)\n", "android-v1.0.0", "Android")
	require.NoError(t, err)
	assert.Equal(t, "# Android Changelog\n\n## [android-v1.0.0](url)\n\n", out)

	out, err = Insert("# Title only\n", "## [t](url)\n", "t", "Android")
	require.NoError(t, err)
	assert.Equal(t, "# Title only\n\n## [t](url)\n\n", out)
}

func TestComplete(t *testing.T) {
	path := filepath.Join(t.TempDir(), "changelog_android.md")
	require.NoError(t, os.WriteFile(path, []byte("# Android Changelog\n\n## [android-v2.3.1](url) - old\n\n- Old\n"), 0644))

	h := &fakeHistory{prev: "android-v2.3.1", commits: []git.Commit{{Subject: "Mobile: New editor"}}}
	cmds, err := newCompleter(path, h).Complete(context.Background(), semver.MustParse("2.3.2"), "android-v2.3.2", false)
	require.NoError(t, err)
	assert.Equal(t, `git pull && git add -A && git commit -m "Android 2.3.2" && git tag "android-v2.3.2" && git push && git push --tags`, cmds)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "## [android-v2.3.2](https://github.com/laurent22/joplin/releases/tag/android-v2.3.2) - 2024-05-01T08:30:00Z\n\n- Mobile: New editor\n\n## [android-v2.3.1]")
}

func TestCompleteCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "changelog.md")

	_, err := newCompleter(path, &fakeHistory{}).Complete(context.Background(), semver.MustParse("1.0.0"), "android-v1.0.0", true)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Android Changelog\n\n## [android-v1.0.0]")
}
