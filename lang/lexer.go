package lang

import (
	"cmp"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// Default tag delimiters.
const (
	DefaultTagOpen  = "{%"
	DefaultTagClose = "%}"
)

var (
	identifierPattern = regexp.MustCompile(`^\$?[A-Za-z_][A-Za-z0-9_]*`)
	numberPattern     = regexp.MustCompile(`^[0-9]+(?:\.[0-9]+)?`)
)

// Lexer splits template source into [Token] values.
//
// A Lexer is immutable once created and safe for concurrent use.
type Lexer struct {
	symbols  *regexp.Regexp  // registered operator and keyword symbols
	keywords map[string]bool // symbols emitted as TokenKeyword
	open     string
	close    string
}

// NewLexer creates a Lexer recognizing the given tag delimiters and the
// operator and keyword symbols of reg.
func NewLexer(reg *Registry, open, close string) (*Lexer, error) {
	if open == "" || close == "" || open == close {
		return nil, ErrRegistry.Wrap(
			fmt.Errorf("invalid tag delimiters %q and %q", open, close),
		)
	}

	symbols := reg.Symbols()

	alt := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		alt = append(alt, symbolPattern(sym))
	}

	re, err := regexp.Compile(`^(?:` + strings.Join(alt, "|") + `)`)
	if err != nil {
		return nil, ErrRegistry.Wrap(err)
	}

	keywords := make(map[string]bool)
	for _, kw := range reg.Keywords() {
		keywords[kw] = true
	}

	return &Lexer{
		symbols:  re,
		keywords: keywords,
		open:     open,
		close:    close,
	}, nil
}

// symbolPattern returns the regular expression matching sym. Whitespace
// inside a symbol matches any run of whitespace, and a symbol ending in a
// word character must end on a word boundary.
func symbolPattern(sym string) string {
	parts := strings.Fields(sym)
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}

	pattern := strings.Join(parts, `\s+`)
	if isWordByte(sym[len(sym)-1]) {
		pattern += `\b`
	}

	return pattern
}

// sortSymbols orders symbols longest first so that an alternation never
// prefers a prefix of a longer symbol.
func sortSymbols(symbols []string) {
	slices.SortFunc(symbols, func(a, b string) int {
		if c := cmp.Compare(len(b), len(a)); c != 0 {
			return c
		}

		return strings.Compare(a, b)
	})
}

// Delimiters returns the tag-open and tag-close symbols.
func (l *Lexer) Delimiters() (open, close string) { return l.open, l.close }

// Tokenize converts source into a token sequence terminated by a single
// [TokenEOF] token.
func (l *Lexer) Tokenize(source string) ([]Token, error) {
	s := &scanner{
		lexer: l,
		src:   source,
		opens: l.locateTags(source),
		line:  1,
	}

	return s.run()
}

// locateTags returns the offset of every tag-open occurrence in src.
func (l *Lexer) locateTags(src string) []int {
	var pos []int

	for i := 0; i < len(src); {
		j := strings.Index(src[i:], l.open)
		if j < 0 {
			break
		}

		pos = append(pos, i+j)
		i += j + len(l.open)
	}

	return pos
}

// scanner holds the state of a single Tokenize call.
type scanner struct {
	lexer   *Lexer
	src     string
	opens   []int // offsets of tag-open symbols, ascending
	tokens  []Token
	pos     int
	next    int // index into opens of the next candidate tag
	line    int
	tagLine int // line of the tag-open that started language mode
	inLang  bool
}

func (s *scanner) run() ([]Token, error) {
	for s.pos < len(s.src) {
		var err error

		if s.inLang {
			err = s.lang()
		} else {
			s.text()
		}

		if err != nil {
			return nil, err
		}
	}

	if s.inLang {
		return nil, ErrSyntax.At(s.tagLine).Wrap(
			fmt.Errorf("unclosed tag %q", s.lexer.open),
		)
	}

	s.emit(TokenEOF, "", nil)

	return s.tokens, nil
}

// text emits the literal text up to the next tag-open and the tag-open
// itself.
func (s *scanner) text() {
	for s.next < len(s.opens) && s.opens[s.next] < s.pos {
		s.next++
	}

	end, found := len(s.src), false
	if s.next < len(s.opens) {
		end, found = s.opens[s.next], true
		s.next++
	}

	if end > s.pos {
		chunk := s.src[s.pos:end]
		s.emit(TokenText, chunk, chunk)
		s.consume(len(chunk))
	}

	if found {
		s.tagOpen()
	}
}

func (s *scanner) tagOpen() {
	s.tagLine = s.line
	s.emit(TokenTagOpen, s.lexer.open, s.lexer.open)
	s.consume(len(s.lexer.open))
	s.inLang = true
}

// lang emits the next language-mode token.
func (s *scanner) lang() error {
	s.skipSpace()

	if s.pos >= len(s.src) {
		return nil
	}

	rest := s.src[s.pos:]

	switch {
	case strings.HasPrefix(rest, s.lexer.close):
		s.emit(TokenTagClose, s.lexer.close, s.lexer.close)
		s.consume(len(s.lexer.close))
		s.inLang = false

		return nil

	case strings.HasPrefix(rest, s.lexer.open):
		s.tagOpen()

		return nil
	}

	if m := s.lexer.symbols.FindString(rest); m != "" {
		sym := strings.Join(strings.Fields(m), " ")

		kind := TokenOperator
		if s.lexer.keywords[sym] {
			kind = TokenKeyword
		}

		s.emit(kind, sym, sym)
		s.consume(len(m))

		return nil
	}

	if m := identifierPattern.FindString(rest); m != "" {
		s.identifier(m)
		s.consume(len(m))

		return nil
	}

	if m := numberPattern.FindString(rest); m != "" {
		if err := s.number(m); err != nil {
			return err
		}

		s.consume(len(m))

		return nil
	}

	if q := rest[0]; q == '"' || q == '\'' {
		return s.quoted(q)
	}

	if kind, ok := punctuation[rest[0]]; ok {
		s.emit(kind, rest[:1], rest[:1])
		s.consume(1)

		return nil
	}

	return ErrSyntax.At(s.line).Wrap(
		fmt.Errorf("unexpected input %q", snippet(rest)),
	)
}

func (s *scanner) identifier(m string) {
	if name, ok := strings.CutPrefix(m, "$"); ok {
		s.emit(TokenVariable, name, name)

		return
	}

	switch strings.ToLower(m) {
	case "true":
		s.emit(TokenBoolean, m, true)
	case "false":
		s.emit(TokenBoolean, m, false)
	case "null":
		s.emit(TokenNull, m, nil)
	default:
		s.emit(TokenIdentifier, m, m)
	}
}

func (s *scanner) number(m string) error {
	if strings.Contains(m, ".") {
		f, err := strconv.ParseFloat(m, 64)
		if err != nil {
			return ErrSyntax.At(s.line).Wrap(err)
		}

		s.emit(TokenFloat, m, f)

		return nil
	}

	i, err := strconv.ParseInt(m, 10, 64)
	if err != nil {
		return ErrSyntax.At(s.line).Wrap(err)
	}

	s.emit(TokenInteger, m, i)

	return nil
}

// quoted emits a string literal delimited by q. A backslash escapes the
// quote character or another backslash; any other backslash is literal.
func (s *scanner) quoted(q byte) error {
	var b strings.Builder

	for i := s.pos + 1; i < len(s.src); i++ {
		c := s.src[i]

		switch {
		case c == '\\' && i+1 < len(s.src) &&
			(s.src[i+1] == q || s.src[i+1] == '\\'):
			b.WriteByte(s.src[i+1])
			i++

		case c == q:
			str := b.String()
			s.emit(TokenString, str, str)
			s.consume(i + 1 - s.pos)

			return nil

		default:
			b.WriteByte(c)
		}
	}

	return ErrSyntax.At(s.line).Wrap(
		fmt.Errorf("unterminated string %q", snippet(s.src[s.pos:])),
	)
}

func (s *scanner) skipSpace() {
	n := 0
	for s.pos+n < len(s.src) && isSpaceByte(s.src[s.pos+n]) {
		n++
	}

	s.consume(n)
}

func (s *scanner) emit(kind TokenKind, text string, value any) {
	s.tokens = append(s.tokens, Token{
		Kind:  kind,
		Text:  text,
		Value: value,
		Line:  s.line,
	})
}

// consume advances past n bytes, counting the newlines they contain.
func (s *scanner) consume(n int) {
	s.line += strings.Count(s.src[s.pos:s.pos+n], "\n")
	s.pos += n
}

// snippet returns a short prefix of s for error messages.
func snippet(s string) string {
	const limit = 16

	if i := strings.IndexAny(s, " \t\r\n"); i > 0 && i < limit {
		return s[:i]
	}

	if len(s) > limit {
		return s[:limit] + "..."
	}

	return s
}

func isSpaceByte(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' ||
		c == '\v'
}

func isWordByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' ||
		c >= '0' && c <= '9'
}
