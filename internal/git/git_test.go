package git

import (
	"context"
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oarkflow/apkreleaser/internal/shell/shelltest"
)

func TestPreviousTag(t *testing.T) {
	tags := []string{"android-v2.3.0", "android-v2.10.1", "android-v2.3.1", "android-vbroken", "android-v3.0.0"}

	assert.Equal(t, "android-v2.3.1", previousTag(tags, "android-v", semver.MustParse("2.3.2")))
	assert.Equal(t, "android-v2.10.1", previousTag(tags, "android-v", semver.MustParse("2.11.0")))
	assert.Equal(t, "", previousTag(tags, "android-v", semver.MustParse("1.0.0")))
}

func TestRepoPreviousTag(t *testing.T) {
	fake := &shelltest.Fake{Outputs: map[string]string{
		"git tag --list android-v*": "android-v1.0.0\nandroid-v1.0.1\n",
	}}

	tag, err := NewRepo("/repo", fake).PreviousTag(context.Background(), "android-v", semver.MustParse("1.0.2"))
	require.NoError(t, err)
	assert.Equal(t, "android-v1.0.1", tag)

	calls := fake.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "/repo", calls[0].Dir)
}

func TestCommitsSince(t *testing.T) {
	fake := &shelltest.Fake{Outputs: map[string]string{
		"git log --no-merges --pretty=format:%H%x1f%s%x1f%an%x1f%ci android-v1.0.0..HEAD": "aaa\x1fAndroid: Fixed crash\x1fAlice\x1f2024-05-01 10:00:00 +0200\n" +
			"bbb\x1fDesktop: Something\x1fBob\x1f2024-05-02 10:00:00 +0200\n" +
			"garbage line\n",
	}}

	commits, err := NewRepo("/repo", fake).CommitsSince(context.Background(), "android-v1.0.0")
	require.NoError(t, err)
	require.Len(t, commits, 2)
	assert.Equal(t, "aaa", commits[0].Hash)
	assert.Equal(t, "Android: Fixed crash", commits[0].Subject)
	assert.Equal(t, "Alice", commits[0].AuthorName)
	assert.Equal(t, 2024, commits[0].Date.Year())
}

func TestFilterCommits(t *testing.T) {
	commits := []Commit{
		{Subject: "Android: Fixed sync"},
		{Subject: "All: Improved search"},
		{Subject: "Desktop: New menu"},
		{Subject: "Chore: bump deps"},
		{Subject: "Mobile: chore cleanup"},
	}

	got, err := FilterCommits(commits, []string{`(?i)^(all|mobile|android)\b`}, []string{`(?i)^chore\b`})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "Android: Fixed sync", got[0].Subject)
	assert.Equal(t, "All: Improved search", got[1].Subject)
	assert.Equal(t, "Mobile: chore cleanup", got[2].Subject)

	all, err := FilterCommits(commits, nil, nil)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	_, err = FilterCommits(commits, []string{"("}, nil)
	assert.Error(t, err)
}

func TestPull(t *testing.T) {
	fake := &shelltest.Fake{}
	require.NoError(t, NewRepo("/repo", fake).Pull(context.Background()))
	require.Len(t, fake.Calls(), 1)
	assert.Equal(t, "git pull", fake.Calls()[0].String())
}
