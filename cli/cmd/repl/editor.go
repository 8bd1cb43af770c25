package repl

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/ardnew/stencil/lang"
	"github.com/ardnew/stencil/log"
)

const defaultEditor = "vi"

// editVarsCommand implements [tea.ExecCommand] for the edit-decode-retry
// loop over the session variables. It writes the variables to a temp file
// as YAML, opens the user's editor, and decodes the result. On a decode
// error the user is prompted to re-edit; declining exits the program.
type editVarsCommand struct {
	vars    map[string]any
	ctxFunc func() context.Context
	newVars map[string]any
	logger  log.Logger
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer
}

// SetStdin sets the stdin reader for the command.
func (c *editVarsCommand) SetStdin(r io.Reader) { c.stdin = r }

// SetStdout sets the stdout writer for the command.
func (c *editVarsCommand) SetStdout(w io.Writer) { c.stdout = w }

// SetStderr sets the stderr writer for the command.
func (c *editVarsCommand) SetStderr(w io.Writer) { c.stderr = w }

// Run executes the edit-decode-retry loop. If the user declines to re-edit,
// it returns [ErrEditDeclined]. An empty file leaves newVars nil.
func (c *editVarsCommand) Run() error {
	ctx := c.ctxFunc()

	content, err := encodeVars(ctx, c.vars)
	if err != nil {
		return err
	}

	f, err := os.CreateTemp(os.TempDir(), "stencil-repl-*.yaml")
	if err != nil {
		return err
	}

	tmpPath := f.Name()

	defer os.Remove(tmpPath)

	if err := f.Chmod(0o600); err != nil {
		f.Close()

		return err
	}

	f.Close()

	for {
		if err := os.WriteFile(tmpPath, []byte(content), 0o600); err != nil {
			return err
		}

		data, err := runEditor(ctx, c.stdin, c.stdout, c.stderr, tmpPath)
		if err != nil {
			return err
		}

		if strings.TrimSpace(string(data)) == "" {
			return nil
		}

		vars, decodeErr := decodeVars(ctx, data)
		c.logger.TraceContext(
			ctx,
			"editor decode attempt",
			slog.Int("content_length", len(data)),
			slog.Bool("success", decodeErr == nil),
		)

		if decodeErr == nil {
			c.newVars = vars

			return nil
		}

		fmt.Fprintf(c.stderr, "\nDecode error: %s\n", decodeErr)
		fmt.Fprintf(c.stdout, "Re-edit? [Y/n] ")

		scanner := bufio.NewScanner(c.stdin)
		if !scanner.Scan() {
			return ErrEditDeclined
		}

		response := strings.TrimSpace(strings.ToLower(scanner.Text()))
		if response == "n" || response == "no" {
			return ErrEditDeclined
		}

		content = string(data)
	}
}

// encodeVars writes vars as a YAML mapping.
func encodeVars(ctx context.Context, vars map[string]any) (string, error) {
	if len(vars) == 0 {
		return "{}\n", nil
	}

	data, err := yaml.MarshalContext(ctx, lang.ToNative(vars), yaml.Indent(2))
	if err != nil {
		return "", fmt.Errorf("encode variables: %w", err)
	}

	return string(data), nil
}

// decodeVars reads a YAML mapping of variables.
func decodeVars(ctx context.Context, data []byte) (map[string]any, error) {
	vars := make(map[string]any)

	if err := yaml.UnmarshalContext(ctx, data, &vars); err != nil {
		return nil, err
	}

	return vars, nil
}

// runEditor launches the user's editor on the given file path and returns
// the edited file content.
func runEditor(
	ctx context.Context,
	stdin io.Reader,
	stdout io.Writer,
	stderr io.Writer,
	path string,
) ([]byte, error) {
	editor := os.Getenv("EDITOR")
	if editor == "" {
		editor = defaultEditor
	}

	cmd := exec.CommandContext(ctx, editor, path)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Run(); err != nil {
		return nil, err
	}

	return os.ReadFile(path)
}
