package pkg

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
)

var (
	debugBinary = regexp.MustCompile(`^__debug_bin\d*$`)
	testBinary  = regexp.MustCompile(`\.test$`)
)

// Prefix is the base name of the running executable, used to name the
// configuration and cache directories.
//
// Binaries built by dlv ("__debug_bin") and go test ("*.test") are named
// [Name] instead, and leading dots are removed.
//
//nolint:gochecknoglobals
var Prefix = sync.OnceValue(func() string { return prefixOf(executable()) })

// ConfigDir returns the directory holding the configuration file.
//
//nolint:gochecknoglobals
var ConfigDir = sync.OnceValue(func() string {
	return filepath.Join(userDir(os.UserConfigDir, ".config"), Prefix())
})

// CacheDir returns the directory holding history and profiles.
//
//nolint:gochecknoglobals
var CacheDir = sync.OnceValue(func() string {
	return filepath.Join(userDir(os.UserCacheDir, ".cache"), Prefix())
})

func executable() string {
	if exe, err := os.Executable(); err == nil {
		return exe
	}

	return os.Args[0]
}

func prefixOf(path string) string {
	base := filepath.Base(path)
	if testBinary.MatchString(base) {
		return Name
	}

	base = strings.TrimSuffix(base, filepath.Ext(base))
	if debugBinary.MatchString(base) {
		return Name
	}

	if base = strings.TrimLeft(base, "."); base == "" {
		return Name
	}

	return base
}

// userDir returns the directory reported by lookup, or the hidden
// directory named fallback under the home directory, or the working
// directory when neither is known.
func userDir(lookup func() (string, error), fallback string) string {
	if dir, err := lookup(); err == nil {
		return dir
	}

	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, fallback)
	}

	if wd, err := os.Getwd(); err == nil {
		return wd
	}

	return "."
}
