package cmd

import (
	"context"
	"strings"
	"testing"

	"github.com/ardnew/stencil/pkg"
)

func TestVersion(t *testing.T) {
	tests := []struct {
		name   string
		author bool
		lines  int
	}{
		{"version only", false, 1},
		{"with author", true, 1 + len(pkg.Author)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := captureStdout(t, func() error {
				return (&Version{Author: tt.author}).Run(context.Background())
			})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			lines := strings.Split(strings.TrimSpace(got), "\n")
			if len(lines) != tt.lines {
				t.Errorf("expected %d lines, got %q", tt.lines, got)
			}

			if want := pkg.Name + " " + pkg.Version(); lines[0] != want {
				t.Errorf("expected %q, got %q", want, lines[0])
			}
		})
	}
}
