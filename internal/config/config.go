/*
Package config provides configuration loading and validation for apkreleaser.
*/
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"

	"github.com/oarkflow/apkreleaser/internal/tmpl"
)

// DefaultFile is looked up in the working directory when no --config is given.
const DefaultFile = ".apkreleaser.yaml"

// Config represents the complete apkreleaser configuration
type Config struct {
	// ProjectName is the GitHub repository that receives the release
	ProjectName string `yaml:"project_name"`

	// Owner is the GitHub user or organisation owning ProjectName
	Owner string `yaml:"owner"`

	// AppName is used in the changelog title and the release commit message
	AppName string `yaml:"app_name,omitempty"`

	// RootDir is the monorepo root. Relative paths below are resolved from it.
	RootDir string `yaml:"root_dir,omitempty"`

	// AppDir is the React Native app directory
	AppDir string `yaml:"app_dir,omitempty"`

	// ReleaseDir receives the renamed APK files and the run report
	ReleaseDir string `yaml:"release_dir,omitempty"`

	// TagPrefix is prepended to the version to form the release tag
	TagPrefix string `yaml:"tag_prefix,omitempty"`

	// ArtifactPrefix is the leading part of every APK file name
	ArtifactPrefix string `yaml:"artifact_prefix,omitempty"`

	// NameTemplate renders the APK file name of a variant
	NameTemplate string `yaml:"name_template,omitempty"`

	// LatestTemplate renders the alias written for the primary variant
	LatestTemplate string `yaml:"latest_template,omitempty"`

	// DownloadURLTemplate renders the public URL of an uploaded APK
	DownloadURLTemplate string `yaml:"download_url_template,omitempty"`

	// Build configuration
	Build Build `yaml:"build,omitempty"`

	// GitHub configuration
	GitHub GitHub `yaml:"github,omitempty"`

	// Changelog configuration
	Changelog Changelog `yaml:"changelog,omitempty"`
}

// Build configures the external build tools.
type Build struct {
	// Command builds the host application before any APK is produced
	Command string `yaml:"command,omitempty"`

	// SkipCommand disables Command
	SkipCommand bool `yaml:"skip_command,omitempty"`

	// GradleTask is the Gradle task producing a release APK
	GradleTask string `yaml:"gradle_task,omitempty"`

	// WSLShell is the Windows shell probed to detect a WSL host. When it
	// exists Gradle is started through gradlew.bat.
	WSLShell string `yaml:"wsl_shell,omitempty"`
}

// GitHub configures the release API.
type GitHub struct {
	// APIURL is the REST API base URL
	APIURL string `yaml:"api_url,omitempty"`

	// TokenEnv names the environment variable holding the OAuth token
	TokenEnv string `yaml:"token_env,omitempty"`

	// TokenFile is read when TokenEnv is unset. A leading ~ expands to the
	// home directory.
	TokenFile string `yaml:"token_file,omitempty"`
}

// Changelog configures changelog completion.
type Changelog struct {
	// Path of the changelog file
	Path string `yaml:"path,omitempty"`

	// ReleasesURL is the page entry headers link to
	ReleasesURL string `yaml:"releases_url,omitempty"`

	// Include keeps only commit subjects matching one of these patterns
	Include []string `yaml:"include,omitempty"`

	// Exclude drops commit subjects matching any of these patterns
	Exclude []string `yaml:"exclude,omitempty"`
}

// Default returns the configuration used for the Joplin mobile app.
func Default() Config {
	return Config{
		ProjectName:         "joplin-android",
		Owner:               "laurent22",
		AppName:             "Android",
		RootDir:             ".",
		AppDir:              "packages/app-mobile",
		ReleaseDir:          "packages/app-mobile/dist",
		TagPrefix:           "android-v",
		ArtifactPrefix:      "joplin",
		NameTemplate:        "{{ .ArtifactPrefix }}-v{{ .Version }}{{ .Suffix }}.apk",
		LatestTemplate:      "{{ .ArtifactPrefix }}-latest.apk",
		DownloadURLTemplate: "https://github.com/{{ .Owner }}/{{ .ProjectName }}/releases/download/{{ .Tag }}/{{ .FileName }}",
		Build: Build{
			Command:    "yarn run build",
			GradleTask: "assembleRelease",
			WSLShell:   "/mnt/c/Windows/System32/cmd.exe",
		},
		GitHub: GitHub{
			APIURL:    "https://api.github.com",
			TokenEnv:  "GITHUB_TOKEN",
			TokenFile: "~/.github-token",
		},
		Changelog: Changelog{
			Path:        "readme/changelog_android.md",
			ReleasesURL: "https://github.com/laurent22/joplin/releases",
			Include:     []string{`(?i)^(all|mobile|android)\b`},
			Exclude:     []string{`^Merge `, `(?i)^(chore|doc|tools)\b`},
		},
	}
}

// Load loads configuration from a file. An empty path loads DefaultFile
// when it exists and falls back to the built-in defaults otherwise.
//
// Fields left empty take their default. tag_prefix, changelog.include and
// changelog.exclude may be set explicitly empty ("" or []) to opt out of the
// default; every other empty field is filled in.
func Load(path string) (*Config, error) {
	var cfg Config
	var raw map[string]interface{}

	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}

	baseDir := "."
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		// Expand environment variables
		data = []byte(os.ExpandEnv(string(data)))

		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		baseDir = filepath.Dir(path)
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	cfg.keepExplicitEmpty(raw)

	if !filepath.IsAbs(cfg.RootDir) {
		cfg.RootDir = filepath.Join(baseDir, cfg.RootDir)
	}
	root, err := filepath.Abs(cfg.RootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root_dir: %w", err)
	}
	cfg.RootDir = root

	return &cfg, nil
}

func (c *Config) applyDefaults() error {
	if err := mergo.Merge(c, Default()); err != nil {
		return fmt.Errorf("failed to apply defaults: %w", err)
	}
	return nil
}

// keepExplicitEmpty clears the optional fields the file sets to an empty
// value, which mergo has just overwritten with their defaults.
func (c *Config) keepExplicitEmpty(raw map[string]interface{}) {
	if isExplicitEmpty(raw, "tag_prefix") {
		c.TagPrefix = ""
	}
	changelog, _ := raw["changelog"].(map[string]interface{})
	if isExplicitEmpty(changelog, "include") {
		c.Changelog.Include = nil
	}
	if isExplicitEmpty(changelog, "exclude") {
		c.Changelog.Exclude = nil
	}
}

func isExplicitEmpty(m map[string]interface{}, key string) bool {
	v, ok := m[key]
	if !ok {
		return false
	}
	switch v := v.(type) {
	case string:
		return v == ""
	case []interface{}:
		return len(v) == 0
	}
	return false
}

var tagPrefixRe = regexp.MustCompile(`^[A-Za-z0-9._/-]*$`)

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.ProjectName == "" {
		return fmt.Errorf("project_name is required")
	}
	if c.Owner == "" {
		return fmt.Errorf("owner is required")
	}
	if !tagPrefixRe.MatchString(c.TagPrefix) {
		return fmt.Errorf("tag_prefix %q contains characters not allowed in a git tag", c.TagPrefix)
	}
	if c.Build.GradleTask == "" {
		return fmt.Errorf("build.gradle_task is required")
	}

	templates := map[string]string{
		"name_template":         c.NameTemplate,
		"latest_template":       c.LatestTemplate,
		"download_url_template": c.DownloadURLTemplate,
	}
	for name, text := range templates {
		if err := tmpl.Validate(name, text); err != nil {
			return fmt.Errorf("invalid template in %s: %w", name, err)
		}
	}

	for _, pattern := range append(append([]string{}, c.Changelog.Include...), c.Changelog.Exclude...) {
		if _, err := regexp.Compile(pattern); err != nil {
			return fmt.Errorf("invalid changelog pattern %q: %w", pattern, err)
		}
	}

	return nil
}

// Path resolves p against RootDir.
func (c *Config) Path(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.RootDir, p)
}

// AppPath is the absolute app directory.
func (c *Config) AppPath() string {
	return c.Path(c.AppDir)
}

// ReleasePath is the absolute release output directory.
func (c *Config) ReleasePath() string {
	return c.Path(c.ReleaseDir)
}

// ChangelogPath is the absolute changelog file path.
func (c *Config) ChangelogPath() string {
	return c.Path(c.Changelog.Path)
}

// TokenFilePath expands a leading ~ in GitHub.TokenFile.
func (c *Config) TokenFilePath() string {
	p := c.GitHub.TokenFile
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}

// DefaultTemplate returns the default configuration template
func DefaultTemplate() string {
	return `# apkreleaser configuration file

project_name: joplin-android
owner: laurent22
app_name: Android

# Paths are relative to root_dir, which is relative to this file.
root_dir: .
app_dir: packages/app-mobile
release_dir: packages/app-mobile/dist

tag_prefix: android-v
artifact_prefix: joplin
name_template: "{{ .ArtifactPrefix }}-v{{ .Version }}{{ .Suffix }}.apk"
latest_template: "{{ .ArtifactPrefix }}-latest.apk"
download_url_template: "https://github.com/{{ .Owner }}/{{ .ProjectName }}/releases/download/{{ .Tag }}/{{ .FileName }}"

build:
  command: yarn run build
  gradle_task: assembleRelease
  wsl_shell: /mnt/c/Windows/System32/cmd.exe

github:
  api_url: https://api.github.com
  token_env: GITHUB_TOKEN
  token_file: ~/.github-token

# Empty fields take their default. Set include or exclude to [] to drop the
# default patterns.
changelog:
  path: readme/changelog_android.md
  releases_url: https://github.com/laurent22/joplin/releases
  include:
    - "(?i)^(all|mobile|android)\\b"
  exclude:
    - "^Merge "
    - "(?i)^(chore|doc|tools)\\b"
`
}
