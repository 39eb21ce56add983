/*
Package changelog completes a release by adding an entry for the new version
to the app changelog.
*/
package changelog

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/charmbracelet/log"

	"github.com/oarkflow/apkreleaser/internal/config"
	"github.com/oarkflow/apkreleaser/internal/git"
)

// History is the git data an entry is built from.
type History interface {
	PreviousTag(ctx context.Context, prefix string, current *semver.Version) (string, error)
	CommitsSince(ctx context.Context, since string) ([]git.Commit, error)
}

// Options for changelog completion
type Options struct {
	Path        string
	AppName     string
	TagPrefix   string
	ReleasesURL string
	Include     []string
	Exclude     []string
}

// OptionsFromConfig builds Options from the release configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Path:        cfg.ChangelogPath(),
		AppName:     cfg.AppName,
		TagPrefix:   cfg.TagPrefix,
		ReleasesURL: cfg.Changelog.ReleasesURL,
		Include:     cfg.Changelog.Include,
		Exclude:     cfg.Changelog.Exclude,
	}
}

// Completer writes changelog entries
type Completer struct {
	options Options
	history History
	now     func() time.Time
}

// New creates a new changelog completer
func New(opts Options, history History) *Completer {
	return &Completer{
		options: opts,
		history: history,
		now:     time.Now,
	}
}

// Entry renders the changelog entry for version without touching the file.
func (c *Completer) Entry(ctx context.Context, version *semver.Version, tag string, preRelease bool) (string, error) {
	since, err := c.history.PreviousTag(ctx, c.options.TagPrefix, version)
	if err != nil {
		return "", fmt.Errorf("failed to find previous tag: %w", err)
	}

	commits, err := c.history.CommitsSince(ctx, since)
	if err != nil {
		return "", fmt.Errorf("failed to get commits: %w", err)
	}
	commits, err = git.FilterCommits(commits, c.options.Include, c.options.Exclude)
	if err != nil {
		return "", err
	}
	log.Debug("Collected changelog commits", "since", since, "count", len(commits))

	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf("## [%s](%s/tag/%s)", tag, strings.TrimSuffix(c.options.ReleasesURL, "/"), tag))
	if preRelease {
		buf.WriteString(" (Pre-release)")
	}
	buf.WriteString(fmt.Sprintf(" - %s\n\n", c.now().UTC().Format(time.RFC3339)))

	if len(commits) == 0 {
		buf.WriteString("- No notable changes\n")
	}
	for _, commit := range commits {
		buf.WriteString(fmt.Sprintf("- %s\n", strings.TrimSpace(commit.Subject)))
	}

	return buf.String(), nil
}

// Complete inserts the entry for version into the changelog file and
// returns the git commands the operator runs to finish the release.
func (c *Completer) Complete(ctx context.Context, version *semver.Version, tag string, preRelease bool) (string, error) {
	entry, err := c.Entry(ctx, version, tag, preRelease)
	if err != nil {
		return "", err
	}

	content, err := os.ReadFile(c.options.Path)
	if err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to read changelog: %w", err)
	}

	updated, err := Insert(string(content), entry, tag, c.options.AppName)
	if err != nil {
		return "", err
	}

	if err := os.WriteFile(c.options.Path, []byte(updated), 0644); err != nil {
		return "", fmt.Errorf("failed to write changelog: %w", err)
	}
	log.Info("Updated changelog", "path", c.options.Path, "tag", tag)

	return FinalCommands(c.options.AppName, version.Original(), tag), nil
}

// Insert places entry before the newest existing entry of content. An empty
// content gets a title first. An entry for tag must not already exist.
func Insert(content, entry, tag, appName string) (string, error) {
	if strings.Contains(content, "## ["+tag+"]") {
		return "", fmt.Errorf("changelog already has an entry for %s", tag)
	}

	entry = strings.TrimRight(entry, "\n") + "\n\n"

	if strings.TrimSpace(content) == "" {
		return fmt.Sprintf("# %s Changelog\n\n%s", appName, entry), nil
	}

	if idx := firstEntry(content); idx >= 0 {
		return content[:idx] + entry + content[idx:], nil
	}

	return strings.TrimRight(content, "\n") + "\n\n" + entry, nil
}

// firstEntry returns the offset of the first "## " heading line.
func firstEntry(content string) int {
	if strings.HasPrefix(content, "## ") {
		return 0
	}
	if idx := strings.Index(content, "\n## "); idx >= 0 {
		return idx + 1
	}
	return -1
}

// FinalCommands returns the shell line that commits, tags and pushes the
// release.
func FinalCommands(appName, version, tag string) string {
	cmds := []string{
		"git pull",
		"git add -A",
		fmt.Sprintf("git commit -m %q", appName+" "+version),
		fmt.Sprintf("git tag %q", tag),
		"git push",
		"git push --tags",
	}
	return strings.Join(cmds, " && ")
}
