package lang

import (
	"slices"
	"strconv"
)

// TokenKind identifies the lexical class of a [Token].
type TokenKind int

const (
	TokenEOF          TokenKind = iota // end of input
	TokenText                          // text
	TokenTagOpen                       // tag open
	TokenTagClose                      // tag close
	TokenIdentifier                    // identifier
	TokenKeyword                       // keyword
	TokenVariable                      // variable
	TokenOperator                      // operator
	TokenInteger                       // integer
	TokenFloat                         // float
	TokenString                        // string
	TokenBoolean                       // boolean
	TokenNull                          // null
	TokenOpenParen                     // (
	TokenCloseParen                    // )
	TokenOpenBracket                   // [
	TokenCloseBracket                  // ]
	TokenOpenBrace                     // {
	TokenCloseBrace                    // }
	TokenComma                         // ,
	TokenColon                         // :
	TokenSemicolon                     // ;
	TokenPipe                          // |
	TokenDot                           // .
)

var tokenKindNames = [...]string{
	TokenEOF:          "end of input",
	TokenText:         "text",
	TokenTagOpen:      "tag open",
	TokenTagClose:     "tag close",
	TokenIdentifier:   "identifier",
	TokenKeyword:      "keyword",
	TokenVariable:     "variable",
	TokenOperator:     "operator",
	TokenInteger:      "integer",
	TokenFloat:        "float",
	TokenString:       "string",
	TokenBoolean:      "boolean",
	TokenNull:         "null",
	TokenOpenParen:    "(",
	TokenCloseParen:   ")",
	TokenOpenBracket:  "[",
	TokenCloseBracket: "]",
	TokenOpenBrace:    "{",
	TokenCloseBrace:   "}",
	TokenComma:        ",",
	TokenColon:        ":",
	TokenSemicolon:    ";",
	TokenPipe:         "|",
	TokenDot:          ".",
}

func (k TokenKind) String() string {
	if k < 0 || int(k) >= len(tokenKindNames) {
		return "TokenKind(" + strconv.Itoa(int(k)) + ")"
	}

	return tokenKindNames[k]
}

// IsPunctuation reports whether k is one of the single-character
// punctuation kinds.
func (k TokenKind) IsPunctuation() bool {
	return k >= TokenOpenParen && k <= TokenDot
}

// punctuation maps each punctuation character to its token kind.
var punctuation = map[byte]TokenKind{
	'(': TokenOpenParen,
	')': TokenCloseParen,
	'[': TokenOpenBracket,
	']': TokenCloseBracket,
	'{': TokenOpenBrace,
	'}': TokenCloseBrace,
	',': TokenComma,
	':': TokenColon,
	';': TokenSemicolon,
	'|': TokenPipe,
	'.': TokenDot,
}

// Token is a single lexical unit produced by the [Lexer].
//
// Text holds the canonical source form of the token (operator symbols with
// internal whitespace collapsed, identifiers without a leading '$').
// Value holds the decoded literal for Integer (int64), Float (float64),
// String (string), Boolean (bool) and Null (nil) tokens, and Text for
// every other kind.
type Token struct {
	Value any
	Text  string
	Kind  TokenKind
	Line  int
}

// Is reports whether the token has kind k and, when texts are given, whether
// its Text equals one of them.
func (t Token) Is(k TokenKind, texts ...string) bool {
	if t.Kind != k {
		return false
	}

	return len(texts) == 0 || slices.Contains(texts, t.Text)
}

// IsWord reports whether the token text has the shape of an identifier.
// Keywords and word operators (and, in, not) qualify.
func (t Token) IsWord() bool {
	switch t.Kind {
	case TokenIdentifier, TokenKeyword, TokenOperator, TokenBoolean, TokenNull:
		return isIdentifier(t.Text)
	}

	return false
}

func (t Token) String() string {
	switch t.Kind {
	case TokenEOF:
		return t.Kind.String()
	case TokenText:
		return "text " + strconv.Quote(t.Text)
	case TokenString:
		return "string " + strconv.Quote(t.Text)
	case TokenVariable:
		return "variable $" + t.Text
	}

	if t.Kind.IsPunctuation() {
		return strconv.Quote(t.Text)
	}

	return t.Kind.String() + " " + strconv.Quote(t.Text)
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}

	for i := range len(s) {
		c := s[i]

		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}

	return true
}
