package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/goccy/go-yaml"

	"github.com/ardnew/stencil/lang"
)

// captureStdout runs fn with os.Stdout redirected and returns what fn wrote.
func captureStdout(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}

	old := os.Stdout
	os.Stdout = w

	done := make(chan string)

	go func() {
		data, _ := io.ReadAll(r)
		done <- string(data)
	}()

	runErr := fn()

	os.Stdout = old

	w.Close()

	out := <-done
	r.Close()

	return out, runErr
}

func defaultSyntax() SyntaxFlags {
	return SyntaxFlags{Delims: []string{lang.DefaultTagOpen, lang.DefaultTagClose}}
}

func sourceOf(t *testing.T, content string) fmtSource {
	t.Helper()

	return fmtSource{SyntaxFlags: defaultSyntax(), Source: writeFiles(t, content)}
}

func TestNativeFmt(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr error
	}{
		{"text", "plain text", "plain text", nil},
		{"canonical terminator", "{% x = 1 %}", "{% x = 1; %}", nil},
		{"filters", "{% print name|upper %}", "{% print name|upper; %}", nil},
		{"block", "{% if a: %}y{% endif %}", "{% if a: %}y{% endif; %}", nil},
		{"unterminated tag", "{% print 1", "", lang.ErrSyntax},
		{"unknown filter", "{% print x|nope %}", "", lang.ErrSyntax},
		{"missing endif", "{% if a: %}y", "", lang.ErrSyntax},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			native := &Native{fmtSource: sourceOf(t, tt.input)}

			got, err := captureStdout(t, func() error {
				return native.Run(context.Background())
			})

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}

				return
			}

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestNativeFmt_DatabaseTags(t *testing.T) {
	native := &Native{fmtSource: sourceOf(t, `{% print query("SELECT 1") %}`)}

	got, err := captureStdout(t, func() error {
		return native.Run(context.Background())
	})
	if err != nil {
		t.Fatalf("expected query to parse without a database, got %v", err)
	}

	if !strings.Contains(got, "query(") {
		t.Errorf("expected query call in output, got %q", got)
	}
}

func TestNativeFmt_Delimiters(t *testing.T) {
	tests := []struct {
		name    string
		delims  []string
		input   string
		want    string
		wantErr error
	}{
		{"custom", []string{"<<", ">>"}, "a<<print 1>>b", "a<< print 1; >>b", nil},
		{"one delimiter", []string{"<<"}, "", "", ErrDelimiters},
		{"three delimiters", []string{"<", ">", "!"}, "", "", ErrDelimiters},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			native := &Native{fmtSource{
				SyntaxFlags: SyntaxFlags{Delims: tt.delims},
				Source:      writeFiles(t, tt.input),
			}}

			got, err := captureStdout(t, func() error {
				return native.Run(context.Background())
			})

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}

				return
			}

			if err != nil || got != tt.want {
				t.Errorf("expected %q, got %q (%v)", tt.want, got, err)
			}
		})
	}
}

func TestNativeFmt_Stdin(t *testing.T) {
	pipeStdin(t, "{% print 1 + 2 %}")

	native := &Native{fmtSource{SyntaxFlags: defaultSyntax(), Source: []string{"-"}}}

	got, err := captureStdout(t, func() error {
		return native.Run(context.Background())
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if got != "{% print 1 + 2; %}" {
		t.Errorf("expected formatted stdin, got %q", got)
	}
}

func TestNativeFmt_NoSource(t *testing.T) {
	native := &Native{fmtSource{
		SyntaxFlags: defaultSyntax(),
		Source:      []string{"/nonexistent/template"},
	}}

	_, err := captureStdout(t, func() error {
		return native.Run(context.Background())
	})
	if !errors.Is(err, ErrNoSource) {
		t.Errorf("expected ErrNoSource, got %v", err)
	}
}

func TestJSONFmt(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		indent  int
		wantErr bool
	}{
		{"compact", "a{% print x %}b", 0, false},
		{"indented", "{% for x in xs: %}{% print x %}{% endfor %}", 2, false},
		{"invalid", "{% print ( %}", 2, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &JSON{fmtSource: sourceOf(t, tt.input), Indent: tt.indent}

			got, err := captureStdout(t, func() error {
				return cmd.Run(context.Background())
			})

			if (err != nil) != tt.wantErr {
				t.Fatalf("expected error %t, got %v", tt.wantErr, err)
			}

			if tt.wantErr {
				return
			}

			if !json.Valid([]byte(got)) {
				t.Errorf("expected valid JSON, got %s", got)
			}

			if multiline := strings.Count(strings.TrimSpace(got), "\n") > 0; multiline != (tt.indent > 0) {
				t.Errorf("expected multiline %t for indent %d, got %s",
					tt.indent > 0, tt.indent, got)
			}
		})
	}
}

func TestYAMLFmt(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"text", "hello", false},
		{"assignment", "{% a = [1, 2]; print a|join(\",\"); %}", false},
		{"invalid", "{% endfor %}", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &YAML{fmtSource: sourceOf(t, tt.input), Indent: 2}

			got, err := captureStdout(t, func() error {
				return cmd.Run(context.Background())
			})

			if (err != nil) != tt.wantErr {
				t.Fatalf("expected error %t, got %v", tt.wantErr, err)
			}

			if tt.wantErr {
				return
			}

			var v any
			if err := yaml.Unmarshal([]byte(got), &v); err != nil {
				t.Errorf("expected valid YAML, got %v:\n%s", err, got)
			}
		})
	}
}

func TestTokensFmt(t *testing.T) {
	cmd := &Tokens{fmtSource: sourceOf(t, "a\n{% print x %}")}

	got, err := captureStdout(t, func() error {
		return cmd.Run(context.Background())
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	lines := strings.Split(strings.TrimSpace(got), "\n")
	if len(lines) < 3 {
		t.Fatalf("expected at least 3 tokens, got %q", got)
	}

	if !strings.HasPrefix(lines[0], "1\ttext ") {
		t.Errorf("expected leading text token on line 1, got %q", lines[0])
	}

	if !strings.Contains(got, "2\t") {
		t.Errorf("expected a token on line 2, got %q", got)
	}
}
