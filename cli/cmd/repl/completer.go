package repl

import (
	"context"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	"github.com/ardnew/stencil/lang"
)

// isWordBoundary returns true if the rune is a word delimiter for completion
// purposes. This includes whitespace, the member-access dot, the filter
// pipe, and the operator and punctuation characters of the template
// language.
func isWordBoundary(r rune) bool {
	switch r {
	case '.', ' ', '\t',
		'(', ')', '[', ']', '{', '}',
		'+', '-', '*', '/', '%', '~',
		'<', '>', '=', '!', '$',
		'&', '|', ',', '?', ':', ';',
		'"', '\'':
		return true
	}

	return false
}

// wordBounds returns the current word at the cursor position and its byte
// boundaries within input.
// Returns an empty word when the cursor sits on a boundary (after a space,
// between dots, start of line, etc.).
func wordBounds(input string, cursor int) (word string, start, end int) {
	if cursor > len(input) {
		cursor = len(input)
	}

	start = cursor

	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(input[:start])
		if isWordBoundary(r) {
			break
		}

		start -= size
	}

	end = cursor

	for end < len(input) {
		r, size := utf8.DecodeRuneInString(input[end:])
		if isWordBoundary(r) {
			break
		}

		end += size
	}

	word = input[start:end]

	return word, start, end
}

// parentPath returns the dot-separated prefix path leading up to the current
// word, considering only the contiguous member-access chain. For input
// "x + server.http.ho" with the word "ho", the parent path is "server.http".
// Returns "" for top-level words.
func parentPath(input string, wordStart int) string {
	prefix := input[:wordStart]
	if !strings.HasSuffix(prefix, ".") {
		return ""
	}

	prefix = strings.TrimRight(prefix, ".")

	end := len(prefix)
	pos := end

	for pos > 0 {
		r, size := utf8.DecodeLastRuneInString(prefix[:pos])
		if r == '.' {
			pos -= size

			continue
		}

		if isWordBoundary(r) {
			break
		}

		pos -= size
	}

	return strings.TrimSpace(prefix[pos:end])
}

// afterPipe reports whether the word starting at wordStart follows a filter
// pipe.
func afterPipe(input string, wordStart int) bool {
	prefix := strings.TrimRight(input[:wordStart], " \t")

	return strings.HasSuffix(prefix, "|") && !strings.HasSuffix(prefix, "||")
}

// candidates returns the names that are valid completions for the word at
// wordStart: filter names after a pipe, member names after a dot, and
// otherwise every variable, tag and keyword.
func (s *Session) candidates(
	ctx context.Context,
	input string,
	wordStart int,
) []string {
	reg := s.reg

	if afterPipe(input, wordStart) {
		return reg.Filters()
	}

	if parent := parentPath(input, wordStart); parent != "" {
		v, ok := s.resolve(ctx, parent)
		if !ok {
			return nil
		}

		return lang.Members(v)
	}

	names := slices.Concat(s.scope.Names(), reg.Tags(), reg.Keywords())
	slices.Sort(names)

	return slices.Compact(names)
}

// resolve evaluates a member-access path such as "file" or "target.os" in
// the session scope.
func (s *Session) resolve(ctx context.Context, path string) (any, bool) {
	if !validPath(path) {
		return nil, false
	}

	open, close := s.engine.Delimiters()

	tmpl, err := s.engine.Parse(ctx, open+" "+path+" "+close)
	if err != nil || len(tmpl.Nodes()) != 1 {
		return nil, false
	}

	v, err := lang.NewState(ctx, s.scope, discard{}).Eval(tmpl.Nodes()[0])
	if err != nil {
		return nil, false
	}

	return v, true
}

// validPath reports whether path is a dot-separated list of identifiers.
func validPath(path string) bool {
	for seg := range strings.SplitSeq(path, ".") {
		if seg == "" {
			return false
		}

		for i, r := range seg {
			switch {
			case r == '_', unicode.IsLetter(r):
			case unicode.IsDigit(r) && i > 0:
			default:
				return false
			}
		}
	}

	return true
}

// discard is an io.Writer that drops everything.
type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

// computeMatches ranks the candidates for the word at the cursor, best
// first, and returns the word's byte offsets. An empty word matches nothing
// at the top level and everything after a dot or pipe.
func (m model) computeMatches() (matches fuzzy.Matches, start, end int) {
	input := m.input.Value()

	word, start, end := wordBounds(input, m.input.Position())

	var candidates []string

	switch {
	case m.mode == modeCtrl:
		if word != "" {
			candidates = commandNames()
		}

	case word == "":
		if parentPath(input, start) == "" && !afterPipe(input, start) {
			return nil, start, end
		}

		candidates = m.session.candidates(m.ctxFunc(), input, start)

		matches = make(fuzzy.Matches, len(candidates))
		for i, c := range candidates {
			matches[i] = fuzzy.Match{Str: c, Index: i}
		}

		return matches, start, end

	default:
		candidates = m.session.candidates(m.ctxFunc(), input, start)
	}

	if len(candidates) == 0 {
		return nil, start, end
	}

	return fuzzy.Find(word, candidates), start, end
}

// renderCandidateBar builds the single-line completion bar, ellipsized to fit
// within the given terminal width. Each candidate is rendered with its matched
// characters highlighted. While cycling, the match at index uses the
// selected style.
func renderCandidateBar(
	matches fuzzy.Matches,
	index int,
	cycling bool,
	width int,
	isCallable func(string) bool,
) string {
	if len(matches) == 0 || width <= 0 {
		return ""
	}

	const sep = "  "

	sepWidth := lipgloss.Width(sep)
	ellipsis := hintStyle.Render("...")
	ellipsisWidth := lipgloss.Width(ellipsis)

	var b strings.Builder

	used := 0

	for i, match := range matches {
		selected := cycling && i == index
		rendered := renderCandidate(match, selected, isCallable(match.Str))
		candidateWidth := lipgloss.Width(rendered)

		entryWidth := candidateWidth
		if i > 0 {
			entryWidth += sepWidth
		}

		if used+entryWidth+ellipsisWidth > width && i > 0 {
			b.WriteString(sep)
			b.WriteString(ellipsis)

			break
		}

		if i > 0 {
			b.WriteString(sep)
		}

		b.WriteString(rendered)

		used += entryWidth

		if i == len(matches)-1 {
			break
		}
	}

	return b.String()
}

// renderCandidate renders a single candidate with matched characters
// highlighted. Callables are displayed with a "()" suffix.
func renderCandidate(match fuzzy.Match, selected, callable bool) string {
	baseStyle := suggestionStyle
	highlightStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("4")).
		Bold(true)

	if selected {
		baseStyle = selectedStyle
		highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("4")).
			Bold(true)
	}

	matchSet := make(map[int]bool, len(match.MatchedIndexes))
	for _, idx := range match.MatchedIndexes {
		matchSet[idx] = true
	}

	var b strings.Builder

	for i, r := range match.Str {
		ch := string(r)
		if matchSet[i] {
			b.WriteString(highlightStyle.Render(ch))
		} else {
			b.WriteString(baseStyle.Render(ch))
		}
	}

	if callable {
		b.WriteString(baseStyle.Render("()"))
	}

	return b.String()
}

// isTag reports whether name is a tag of the session engine.
func (s *Session) isTag(name string) bool {
	_, ok := s.reg.Tag(name)

	return ok
}

// formatPreview generates a one-line preview of a variable value.
func formatPreview(v any) string {
	const maxPreview = 40

	src := formatResult(v)
	if len(src) > maxPreview {
		return src[:maxPreview-3] + "..."
	}

	return src
}
