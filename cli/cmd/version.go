package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/ardnew/stencil/pkg"
)

// Version prints the program name and version.
type Version struct {
	Author bool `help:"Also print the author." short:"a"`
}

// Run executes the version command.
func (v *Version) Run(_ context.Context) error {
	_, err := fmt.Fprintln(os.Stdout, pkg.Name, pkg.Version())
	if err != nil || !v.Author {
		return err
	}

	for _, a := range pkg.Author {
		if _, err := fmt.Fprintln(os.Stdout, a); err != nil {
			return err
		}
	}

	return nil
}
