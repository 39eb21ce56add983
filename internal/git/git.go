/*
Package git wraps the git operations a release needs: pulling, listing
release tags and reading commit subjects for the changelog.
*/
package git

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/oarkflow/apkreleaser/internal/shell"
)

// Commit represents a git commit
type Commit struct {
	Hash       string
	Subject    string
	AuthorName string
	Date       time.Time
}

// Repo runs git in a fixed directory.
type Repo struct {
	dir    string
	runner shell.Runner
}

// NewRepo returns a Repo rooted at dir.
func NewRepo(dir string, runner shell.Runner) *Repo {
	return &Repo{dir: dir, runner: runner}
}

// Pull runs git pull and streams its output.
func (r *Repo) Pull(ctx context.Context) error {
	return r.runner.Run(ctx, shell.Command{Name: "git", Args: []string{"pull"}, Dir: r.dir})
}

// Tags lists tags starting with prefix.
func (r *Repo) Tags(ctx context.Context, prefix string) ([]string, error) {
	out, err := r.output(ctx, "tag", "--list", prefix+"*")
	if err != nil {
		return nil, err
	}
	var tags []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			tags = append(tags, line)
		}
	}
	return tags, nil
}

// PreviousTag returns the highest tag with prefix whose version is lower
// than current. It returns "" when there is none.
func (r *Repo) PreviousTag(ctx context.Context, prefix string, current *semver.Version) (string, error) {
	tags, err := r.Tags(ctx, prefix)
	if err != nil {
		return "", err
	}
	return previousTag(tags, prefix, current), nil
}

func previousTag(tags []string, prefix string, current *semver.Version) string {
	type tagged struct {
		tag string
		v   *semver.Version
	}
	var candidates []tagged
	for _, tag := range tags {
		v, err := semver.NewVersion(strings.TrimPrefix(tag, prefix))
		if err != nil {
			continue
		}
		if v.LessThan(current) {
			candidates = append(candidates, tagged{tag: tag, v: v})
		}
	}
	if len(candidates) == 0 {
		return ""
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].v.LessThan(candidates[j].v)
	})
	return candidates[len(candidates)-1].tag
}

// CommitsSince returns non-merge commits reachable from HEAD but not from
// since. An empty since returns the whole history.
func (r *Repo) CommitsSince(ctx context.Context, since string) ([]Commit, error) {
	args := []string{"log", "--no-merges", "--pretty=format:%H%x1f%s%x1f%an%x1f%ci"}
	if since != "" {
		args = append(args, since+"..HEAD")
	}

	out, err := r.output(ctx, args...)
	if err != nil {
		return nil, err
	}
	return parseLog(out), nil
}

func parseLog(out string) []Commit {
	var commits []Commit
	for _, line := range strings.Split(out, "\n") {
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "\x1f", 4)
		if len(parts) < 4 {
			continue
		}

		date, _ := time.Parse("2006-01-02 15:04:05 -0700", parts[3])
		commits = append(commits, Commit{
			Hash:       parts[0],
			Subject:    parts[1],
			AuthorName: parts[2],
			Date:       date,
		})
	}
	return commits
}

// FilterCommits filters commits based on patterns
func FilterCommits(commits []Commit, include, exclude []string) ([]Commit, error) {
	includeRe, err := compileAll(include)
	if err != nil {
		return nil, err
	}
	excludeRe, err := compileAll(exclude)
	if err != nil {
		return nil, err
	}

	var result []Commit
	for _, c := range commits {
		if matchesAny(excludeRe, c.Subject) {
			continue
		}
		if len(includeRe) > 0 && !matchesAny(includeRe, c.Subject) {
			continue
		}
		result = append(result, c)
	}
	return result, nil
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

func matchesAny(res []*regexp.Regexp, s string) bool {
	for _, re := range res {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

func (r *Repo) output(ctx context.Context, args ...string) (string, error) {
	return r.runner.Output(ctx, shell.Command{Name: "git", Args: args, Dir: r.dir})
}
