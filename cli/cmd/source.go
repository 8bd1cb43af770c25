package cmd

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// stdinSource names standard input in a source list.
const stdinSource = "-"

// Sources is an ordered list of open template files read as one stream.
type Sources struct {
	files []*os.File
	stdin bool
}

// OpenSources opens the templates at paths.
//
// Paths that name the same file, through symlinks or relative paths, are
// opened once, at their first position. Every "-", and any path naming the
// file on standard input, collapses into a single read of stdin after all
// other files. An empty list or a file that cannot be opened is an
// [ErrNoSource] error.
func OpenSources(paths []string) (*Sources, error) {
	if len(paths) == 0 {
		return nil, ErrNoSource
	}

	var (
		s    Sources
		seen []os.FileInfo
	)

	stdinInfo, _ := os.Stdin.Stat()

	for _, path := range paths {
		if path == stdinSource {
			s.stdin = true

			continue
		}

		file, info, err := openResolved(path)
		if err != nil {
			_ = s.Close()

			return nil, ErrNoSource.Wrap(err).With(slog.String("path", path))
		}

		switch {
		case stdinInfo != nil && os.SameFile(info, stdinInfo):
			s.stdin = true

			_ = file.Close()

		case sameAsAny(info, seen):
			_ = file.Close()

		default:
			seen = append(seen, info)
			s.files = append(s.files, file)
		}
	}

	return &s, nil
}

func openResolved(path string) (*os.File, os.FileInfo, error) {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return nil, nil, err
	}

	file, err := os.Open(resolved)
	if err != nil {
		return nil, nil, err
	}

	info, err := file.Stat()
	if err != nil {
		_ = file.Close()

		return nil, nil, err
	}

	return file, info, nil
}

func sameAsAny(info os.FileInfo, seen []os.FileInfo) bool {
	for _, s := range seen {
		if os.SameFile(info, s) {
			return true
		}
	}

	return false
}

// Stdin reports whether standard input is one of the sources.
func (s *Sources) Stdin() bool { return s.stdin }

// Len returns the number of sources, counting stdin once.
func (s *Sources) Len() int {
	if s.stdin {
		return len(s.files) + 1
	}

	return len(s.files)
}

// Reader returns a reader over every source in order.
func (s *Sources) Reader() io.Reader {
	r := make([]io.Reader, 0, s.Len())
	for _, f := range s.files {
		r = append(r, f)
	}

	if s.stdin {
		r = append(r, os.Stdin)
	}

	return io.MultiReader(r...)
}

// Close closes every opened file. Stdin is left open.
func (s *Sources) Close() error {
	errs := make([]error, 0, len(s.files))
	for _, f := range s.files {
		errs = append(errs, f.Close())
	}

	s.files = nil

	return errors.Join(errs...)
}
