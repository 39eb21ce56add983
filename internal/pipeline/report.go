package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/oarkflow/apkreleaser/internal/artifact"
)

// ReportFile is written to the release directory at the end of every run.
const ReportFile = "release-report.json"

// ArtifactsFile lists the APKs built by the last run that built any.
const ArtifactsFile = "artifacts.json"

// StepStatus is the outcome of one release step.
type StepStatus string

const (
	StatusOK      StepStatus = "ok"
	StatusWarning StepStatus = "warning"
	StatusFailed  StepStatus = "failed"
	StatusSkipped StepStatus = "skipped"
)

// Step records one release step.
type Step struct {
	Name     string        `json:"name"`
	Status   StepStatus    `json:"status"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`
	Detail   string        `json:"detail,omitempty"`
}

// Report is the run-state report. It shows how far a run got, including
// runs that aborted.
type Report struct {
	RunID       string              `json:"run_id"`
	Version     string              `json:"version,omitempty"`
	Tag         string              `json:"tag,omitempty"`
	PreRelease  bool                `json:"prerelease"`
	DryRun      bool                `json:"dry_run,omitempty"`
	Started     time.Time           `json:"started"`
	Finished    time.Time           `json:"finished"`
	Steps       []Step              `json:"steps"`
	Artifacts   []artifact.Artifact `json:"artifacts,omitempty"`
	DownloadURL string              `json:"download_url,omitempty"`
	Error       string              `json:"error,omitempty"`
}

// NewReport starts a report with a fresh run ID.
func NewReport() *Report {
	return &Report{
		RunID:   uuid.NewString(),
		Started: time.Now(),
	}
}

// Run executes fn as a step named name and records its outcome.
func (r *Report) Run(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	step := Step{Name: name, Status: StatusOK, Started: start, Duration: time.Since(start)}
	if err != nil {
		step.Status = StatusFailed
		step.Detail = err.Error()
	}
	r.Steps = append(r.Steps, step)
	return err
}

// Warn records a step that failed without stopping the run.
func (r *Report) Warn(name string, started time.Time, err error) {
	r.Steps = append(r.Steps, Step{
		Name:     name,
		Status:   StatusWarning,
		Started:  started,
		Duration: time.Since(started),
		Detail:   err.Error(),
	})
}

// Skip records a step that was not run.
func (r *Report) Skip(name, reason string) {
	r.Steps = append(r.Steps, Step{Name: name, Status: StatusSkipped, Started: time.Now(), Detail: reason})
}

// Failed reports whether any step failed.
func (r *Report) Failed() bool {
	for _, s := range r.Steps {
		if s.Status == StatusFailed {
			return true
		}
	}
	return false
}

// Save writes the report as JSON.
func (r *Report) Save(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Render prints the steps as a table.
func (r *Report) Render(w io.Writer) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle(fmt.Sprintf("Release %s (run %s)", orDash(r.Tag), r.RunID))
	t.AppendHeader(table.Row{"#", "Step", "Status", "Duration", "Detail"})
	for i, s := range r.Steps {
		t.AppendRow(table.Row{i + 1, s.Name, s.Status, s.Duration.Round(time.Millisecond), truncate(s.Detail, 80)})
	}
	if r.DownloadURL != "" {
		t.AppendFooter(table.Row{"", "Download", "", "", r.DownloadURL})
	}
	t.SetStyle(table.StyleLight)
	// URLs are case-sensitive; StyleLight upper-cases footers.
	t.Style().Format.Footer = text.FormatDefault
	t.Render()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return text.Trim(s, n-3) + "..."
}
