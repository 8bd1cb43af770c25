//nolint:gochecknoglobals
package pkg

import (
	_ "embed"
	"strings"
)

// version is the semantic version of the stencil module embedded at build
// time.
//
//go:embed VERSION
var version string

// Version returns the embedded semantic version with surrounding whitespace
// removed. It is printed by the version subcommand.
func Version() string { return strings.TrimSpace(version) }

const (
	// Name is the canonical command and module identifier used across the
	// project. For example, it appears in help text, default config paths, and
	// the prefix of environment variables.
	Name = "stencil"
	// Description is a short, human-readable summary of the project used in
	// help output and documentation.
	Description = "Embeddable template language renderer"
)

// AuthorInfo represents an individual author's name and email address.
type AuthorInfo struct {
	// Name is the author's preferred name or handle.
	Name string
	// Email is the author's contact email address.
	Email string
}

// String formats the author as "Name <Email>".
func (a AuthorInfo) String() string { return a.Name + " <" + a.Email + ">" }

// Author lists the primary author(s) of the project for display in metadata.
//
//nolint:gochecknoglobals
var Author = []AuthorInfo{
	{"ardnew", "andrew@ardnew.com"},
}
