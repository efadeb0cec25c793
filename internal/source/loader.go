package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"
)

// Files names the three extract files inside a data directory.
type Files struct {
	Jobs string `toml:"jobs"`
	AR   string `toml:"ar"`
	AP   string `toml:"ap"`
}

// DefaultFiles returns the file names the extract job writes.
func DefaultFiles() Files {
	return Files{
		Jobs: "financials_jobs.json",
		AR:   "ar_invoices.json",
		AP:   "ap_invoices.json",
	}
}

func (f Files) withDefaults() Files {
	d := DefaultFiles()
	if f.Jobs == "" {
		f.Jobs = d.Jobs
	}
	if f.AR == "" {
		f.AR = d.AR
	}
	if f.AP == "" {
		f.AP = d.AP
	}
	return f
}

// DirLoader loads extracts from JSON files in a directory.
type DirLoader struct {
	Dir   string
	Files Files
}

// NewDirLoader returns a loader for dir using the given file names,
// falling back to the defaults for any left empty.
func NewDirLoader(dir string, files Files) DirLoader {
	return DirLoader{Dir: dir, Files: files.withDefaults()}
}

// Paths returns the absolute-or-relative paths of the three extracts.
func (l DirLoader) Paths() []string {
	f := l.Files.withDefaults()
	return []string{
		filepath.Join(l.Dir, f.Jobs),
		filepath.Join(l.Dir, f.AR),
		filepath.Join(l.Dir, f.AP),
	}
}

// Load reads and parses the three extracts concurrently.
// Any missing or malformed file fails the whole load.
func (l DirLoader) Load(ctx context.Context) (*Extracts, error) {
	paths := l.Paths()
	out := &Extracts{}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		data, err := readFile(ctx, paths[0])
		if err != nil {
			return err
		}
		out.Jobs, err = ParseJobs(data)
		return err
	})
	g.Go(func() error {
		data, err := readFile(ctx, paths[1])
		if err != nil {
			return err
		}
		out.AR, err = ParseAR(data)
		return err
	})
	g.Go(func() error {
		data, err := readFile(ctx, paths[2])
		if err != nil {
			return err
		}
		out.AP, err = ParseAP(data)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	out.LoadedAt = time.Now()
	return out, nil
}

func readFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading extract: %w", err)
	}
	return data, nil
}

// FileState is the tracked mtime and size for one extract file.
type FileState struct {
	Path      string `json:"path"`
	MtimeNs   int64  `json:"mtime_ns"`
	SizeBytes int64  `json:"size_bytes"`
	Missing   bool   `json:"missing,omitempty"`
}

// Fingerprint stats every extract file. Missing files are reported, not failed.
func (l DirLoader) Fingerprint() []FileState {
	paths := l.Paths()
	states := make([]FileState, 0, len(paths))
	for _, p := range paths {
		st := FileState{Path: p}
		info, err := os.Stat(p)
		if err != nil {
			st.Missing = true
		} else {
			st.MtimeNs = info.ModTime().UnixNano()
			st.SizeBytes = info.Size()
		}
		states = append(states, st)
	}
	return states
}

// Changed reports whether any file differs between two fingerprints.
func Changed(prev, curr []FileState) bool {
	if len(prev) != len(curr) {
		return true
	}
	for i := range prev {
		if prev[i] != curr[i] {
			return true
		}
	}
	return false
}
