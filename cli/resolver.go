package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/goccy/go-yaml"

	"github.com/ardnew/stencil/log"
)

// resolve is a [kong.ConfigurationLoader] that reads YAML configuration
// files.
//
// It can be used with [kong.Configuration] like this:
//
//	kong.Configuration(resolve, "/path/to/config.yaml")
//
// The file is a flat mapping from flag names to values. Flag names may be
// written with hyphens or underscores:
//
//	log-level: debug
//	log_format: json
//	strict: true
//	data: [site.yaml, local.yaml]
//
// Command-line flags and environment variables override config file
// values. A file that does not decode as a mapping is ignored with a
// warning so that a broken config never blocks `stencil init --force`.
func resolve(r io.Reader) (kong.Resolver, error) {
	var conf config

	if err := yaml.NewDecoder(r).Decode(&conf); err != nil {
		if !errors.Is(err, io.EOF) {
			log.Warn("ignoring configuration file",
				slog.String("error", err.Error()))
		}

		return config{}, nil
	}

	return conf, nil
}

// config implements [kong.Resolver] for YAML configs.
type config map[string]any

// Validate implements [kong.Resolver].
func (config) Validate(*kong.Application) error { return nil }

// Resolve implements [kong.Resolver].
func (r config) Resolve(
	_ *kong.Context,
	_ *kong.Path,
	flag *kong.Flag,
) (any, error) {
	for _, name := range []string{
		flag.Name,
		strings.ReplaceAll(flag.Name, "-", "_"),
	} {
		if value, ok := r[name]; ok {
			return flagString(value), nil
		}
	}

	// Not found: let Kong use the default.
	return nil, nil
}

// flagString converts a decoded YAML value to the string form Kong parses
// from the command line. Sequences become comma-separated lists.
func flagString(v any) any {
	switch x := v.(type) {
	case nil:
		return nil
	case string, bool:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case []any:
		parts := make([]string, 0, len(x))
		for _, e := range x {
			parts = append(parts, fmt.Sprint(flagString(e)))
		}

		return strings.Join(parts, ",")
	}

	return fmt.Sprint(v)
}
