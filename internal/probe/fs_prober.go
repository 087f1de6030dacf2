package probe

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
)

// ErrMissingFiles is returned when required site files are absent.
var ErrMissingFiles = errors.New("required site files missing")

// FSProber verifies required files and directories exist in an fs.FS.
type FSProber struct {
	fsys  fs.FS
	files []string
	dirs  []string
}

func NewFSProber(fsys fs.FS, files, dirs []string) *FSProber {
	return &FSProber{fsys: fsys, files: files, dirs: dirs}
}

func (p *FSProber) Probe(ctx context.Context) (Report, error) {
	report := Report{}

	check := func(name string, wantDir bool) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		report.Checked = append(report.Checked, name)

		info, err := fs.Stat(p.fsys, name)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			report.Missing = append(report.Missing, name)
		case err != nil:
			return fmt.Errorf("stat %s: %w", name, err)
		case info.IsDir() != wantDir:
			report.Missing = append(report.Missing, name)
		}
		return nil
	}

	for _, name := range p.files {
		if err := check(name, false); err != nil {
			return report, err
		}
	}
	for _, name := range p.dirs {
		if err := check(name, true); err != nil {
			return report, err
		}
	}

	if len(report.Missing) > 0 {
		return report, fmt.Errorf("%w: %s", ErrMissingFiles, strings.Join(report.Missing, ", "))
	}
	return report, nil
}
