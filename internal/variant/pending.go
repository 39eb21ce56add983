package variant

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/charmbracelet/log"
)

type snapshot struct {
	data []byte
	mode os.FileMode
}

// Pending holds the original content of every file changed for a variant.
// Restore must be called on every exit path once Apply has returned.
type Pending struct {
	files map[string]snapshot
}

func newPending() *Pending {
	return &Pending{files: make(map[string]snapshot)}
}

// Paths returns the snapshotted paths, sorted.
func (p *Pending) Paths() []string {
	paths := make([]string, 0, len(p.files))
	for path := range p.files {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

func (p *Pending) snapshot(path string) error {
	if _, ok := p.files[path]; ok {
		return nil
	}
	stat, err := os.Stat(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	p.files[path] = snapshot{data: data, mode: stat.Mode().Perm()}
	return nil
}

// Restore writes back every snapshotted file. It attempts all files even when
// some fail and reports the failures together.
func (p *Pending) Restore() error {
	var errs []error
	for _, path := range p.Paths() {
		s := p.files[path]
		if err := os.WriteFile(path, s.data, s.mode); err != nil {
			errs = append(errs, fmt.Errorf("failed to restore %s: %w", path, err))
			continue
		}
		log.Debug("Restored file", "path", path)
	}
	return errors.Join(errs...)
}

// Apply snapshots and edits every file the variant needs, relative to
// appDir. If an edit fails, files already changed are restored before the
// error is returned.
func Apply(appDir string, v Variant) (*Pending, error) {
	p := newPending()
	for _, m := range v.Mutations {
		if err := p.apply(appDir, m); err != nil {
			return nil, errors.Join(fmt.Errorf("variant %s: %w", v.Name, err), p.Restore())
		}
	}
	return p, nil
}

func (p *Pending) apply(appDir string, m Mutation) error {
	path := filepath.Join(appDir, m.File)
	if err := p.snapshot(path); err != nil {
		return err
	}

	current, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var next []byte
	switch {
	case m.CopyFrom != "":
		next, err = os.ReadFile(filepath.Join(appDir, m.CopyFrom))
		if err != nil {
			return err
		}
	case m.Pattern != nil:
		next = replaceFirst(m.Pattern, current, m.Replacement)
		if string(next) == string(current) {
			log.Warn("Pattern did not match, file left as is", "file", m.File, "pattern", m.Pattern.String())
		}
	default:
		return fmt.Errorf("mutation for %s has no pattern or source", m.File)
	}

	log.Debug("Mutating file", "path", path)
	return os.WriteFile(path, next, p.files[path].mode)
}

func replaceFirst(re *regexp.Regexp, src []byte, repl string) []byte {
	loc := re.FindIndex(src)
	if loc == nil {
		return src
	}
	out := make([]byte, 0, len(src)-(loc[1]-loc[0])+len(repl))
	out = append(out, src[:loc[0]]...)
	out = append(out, repl...)
	return append(out, src[loc[1]:]...)
}
