/*
Package publish creates GitHub releases and uploads APK assets to them.
*/
package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/yosida95/uritemplate/v3"
)

// APKContentType is sent with every uploaded asset.
const APKContentType = "application/vnd.android.package-archive"

// UploadError is returned when an upload response is not a usable asset
// description.
type UploadError struct {
	URL    string
	Status int
	Reason string
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("could not upload file to GitHub (%s, HTTP %d): %s", e.URL, e.Status, e.Reason)
}

// ReleaseOptions controls release creation.
type ReleaseOptions struct {
	PreRelease bool
}

// Release is the subset of the GitHub release object the pipeline uses.
type Release struct {
	ID        int64  `json:"id"`
	TagName   string `json:"tag_name"`
	HTMLURL   string `json:"html_url"`
	UploadURL string `json:"upload_url"`
}

// Asset is the response to an asset upload.
type Asset struct {
	ID                 int64  `json:"id"`
	Name               string `json:"name"`
	Size               int64  `json:"size"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

// GitHubClient talks to the GitHub releases API.
type GitHubClient struct {
	apiURL string
	owner  string
	token  string
	client *http.Client
}

// NewGitHubClient creates a client for repositories owned by owner. The
// http.Client has no timeout: a release waits for GitHub as long as it takes.
func NewGitHubClient(apiURL, owner, token string) *GitHubClient {
	return &GitHubClient{
		apiURL: strings.TrimSuffix(apiURL, "/"),
		owner:  owner,
		token:  token,
		client: &http.Client{},
	}
}

// CreateRelease creates a release for tag in the project repository.
func (c *GitHubClient) CreateRelease(ctx context.Context, project, tag string, opts ReleaseOptions) (*Release, error) {
	body := map[string]interface{}{
		"tag_name":   tag,
		"name":       tag,
		"draft":      false,
		"prerelease": opts.PreRelease,
	}
	bodyJSON, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/repos/%s/%s/releases", c.apiURL, c.owner, project)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyJSON))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "token "+c.token)
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("Content-Type", "application/json")

	log.Info("Creating GitHub release", "repo", c.owner+"/"+project, "tag", tag, "prerelease", opts.PreRelease)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to create release: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to create release: HTTP %d: %s", resp.StatusCode, snippet(data))
	}

	var release Release
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, fmt.Errorf("failed to decode release: %w", err)
	}
	if release.UploadURL == "" {
		return nil, fmt.Errorf("release %s has no upload_url", tag)
	}

	return &release, nil
}

// Uploader posts APK files to a release upload URL.
type Uploader struct {
	client *http.Client
}

// NewUploader creates an uploader without request timeout.
func NewUploader() *Uploader {
	return &Uploader{client: &http.Client{}}
}

// Upload sends content in a single POST. It does not retry.
func (u *Uploader) Upload(ctx context.Context, url string, content []byte, token string) (*Asset, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	req.ContentLength = int64(len(content))
	req.Header.Set("Content-Type", APKContentType)
	req.Header.Set("Authorization", "token "+token)

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload to %s failed: %w", url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UploadError{URL: url, Status: resp.StatusCode, Reason: err.Error()}
	}

	var asset Asset
	if err := json.Unmarshal(data, &asset); err != nil {
		return nil, &UploadError{URL: url, Status: resp.StatusCode, Reason: "response is not JSON: " + snippet(data)}
	}
	if asset.BrowserDownloadURL == "" {
		return nil, &UploadError{URL: url, Status: resp.StatusCode, Reason: "response has no browser_download_url: " + snippet(data)}
	}

	log.Debug("Uploaded asset", "name", asset.Name, "url", asset.BrowserDownloadURL)
	return &asset, nil
}

// ExpandUploadURL expands the RFC 6570 upload_url template of a release with
// the asset name.
func ExpandUploadURL(template, name string) (string, error) {
	t, err := uritemplate.New(template)
	if err != nil {
		return "", fmt.Errorf("invalid upload_url template %q: %w", template, err)
	}
	values := uritemplate.Values{}
	values.Set("name", uritemplate.String(name))
	return t.Expand(values)
}

// ReadToken returns the OAuth token from the environment variable env, or
// from file when the variable is unset.
func ReadToken(env, file string) (string, error) {
	if env != "" {
		if token := strings.TrimSpace(os.Getenv(env)); token != "" {
			return token, nil
		}
	}
	if file == "" {
		return "", fmt.Errorf("no GitHub token: %s is not set", env)
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("no GitHub token: %s is not set and %s cannot be read: %w", env, file, err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", fmt.Errorf("GitHub token file %s is empty", file)
	}
	return token, nil
}

func snippet(data []byte) string {
	s := strings.TrimSpace(string(data))
	if r := []rune(s); len(r) > 200 {
		s = string(r[:200]) + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}
