package cli

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/ardnew/stencil/pkg"
)

// baseConfig is the base name of the configuration file.
const baseConfig = "config.yaml"

// DefaultDirMode is the default permission mode for created directories.
var defaultDirMode os.FileMode = 0o700

// configPath returns the absolute path to a file or directory formed by joining
// the global configuration directory path with the given path elements.
//
// If no elements are given, it is equivalent to calling [pkg.ConfigDir].
func configPath(elem ...string) string {
	return filepath.Join(append([]string{pkg.ConfigDir()}, elem...)...)
}

// cacheDir returns the cache directory path used for transient files.
func cacheDir() string { return pkg.CacheDir() }

// mkdirAllRequired creates all required runtime directories.
func mkdirAllRequired() error {
	// Create base config directory
	err := os.MkdirAll(pkg.ConfigDir(), defaultDirMode)
	if err != nil {
		return err
	}

	// Create base cache directory
	err = os.MkdirAll(pkg.CacheDir(), defaultDirMode)
	if err != nil {
		return err
	}

	return nil
}

// scanConfig returns the configuration file named on the command line with
// --config or -c, or def if none is given. Kong loads configuration files
// before it parses flags, so the path must be found ahead of time.
func scanConfig(args []string, def string) string {
	path := def

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if arg == "--" {
			break
		}

		if v, ok := strings.CutPrefix(arg, "--config="); ok {
			path = v

			continue
		}

		if arg == "--config" || arg == "-c" {
			if i+1 < len(args) {
				path = args[i+1]
				i++
			}
		}
	}

	return path
}
