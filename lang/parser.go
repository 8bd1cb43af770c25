package lang

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/ardnew/stencil/log"
)

// DefaultMaxDepth is the default bound on statement and expression nesting.
//
//nolint:gochecknoglobals
var DefaultMaxDepth = 100

// Parser builds an AST from a token sequence.
//
// Statement grammars registered with [Registry.RegisterStatement] drive the
// parser through its exported methods.
type Parser struct {
	ctx      context.Context
	reg      *Registry
	logger   log.Logger
	tokens   []Token
	pos      int
	depth    int
	maxDepth int
	strict   bool
}

func newParser(
	ctx context.Context,
	tokens []Token,
	reg *Registry,
	strict bool,
	maxDepth int,
	logger log.Logger,
) *Parser {
	if n := len(tokens); n == 0 || tokens[n-1].Kind != TokenEOF {
		line := 1
		if n > 0 {
			line = tokens[n-1].Line
		}

		tokens = append(slices.Clip(tokens), Token{Kind: TokenEOF, Line: line})
	}

	return &Parser{
		ctx:      ctx,
		reg:      reg,
		logger:   logger,
		tokens:   tokens,
		maxDepth: maxDepth,
		strict:   strict,
	}
}

// Peek returns the current token without consuming it.
func (p *Parser) Peek() Token { return p.tokens[p.pos] }

// PeekN returns the token n positions ahead of the current one.
func (p *Parser) PeekN(n int) Token {
	if i := p.pos + n; i < len(p.tokens) {
		return p.tokens[i]
	}

	return p.tokens[len(p.tokens)-1]
}

// Next consumes and returns the current token. At the end of input it keeps
// returning the EOF token.
func (p *Parser) Next() Token {
	t := p.tokens[p.pos]
	if t.Kind != TokenEOF {
		p.pos++
	}

	return t
}

// Accept consumes the current token if it has kind k and, when texts are
// given, one of those texts.
func (p *Parser) Accept(k TokenKind, texts ...string) (Token, bool) {
	if t := p.Peek(); t.Is(k, texts...) {
		return p.Next(), true
	}

	return Token{}, false
}

// Expect consumes a token of kind k (and one of texts, if given) or returns
// a syntax error.
func (p *Parser) Expect(k TokenKind, texts ...string) (Token, error) {
	if t, ok := p.Accept(k, texts...); ok {
		return t, nil
	}

	want := k.String()
	if len(texts) > 0 {
		want = strings.Join(quoteAll(texts), " or ")
	}

	return Token{}, p.Errorf(p.Peek(), "expected %s, found %s", want, p.Peek())
}

// Errorf returns a syntax error located at tok.
func (p *Parser) Errorf(tok Token, format string, args ...any) error {
	return ErrSyntax.At(tok.Line).Wrap(fmt.Errorf(format, args...))
}

// Strict reports whether member access nodes are built in strict mode.
func (p *Parser) Strict() bool { return p.strict }

// Registry returns the registry the parser consults.
func (p *Parser) Registry() *Registry { return p.reg }

// EndStatement consumes a statement terminator. A semicolon is consumed; a
// tag-close or the end of input terminates the statement without being
// consumed.
func (p *Parser) EndStatement() error {
	switch t := p.Peek(); t.Kind {
	case TokenSemicolon:
		p.Next()

		return nil
	case TokenTagClose, TokenEOF:
		return nil
	default:
		return p.Errorf(t, "expected ';' or %q, found %s", p.closeText(), t)
	}
}

func (p *Parser) closeText() string {
	for _, t := range p.tokens {
		if t.Kind == TokenTagClose {
			return t.Text
		}
	}

	return DefaultTagClose
}

// ParseBody parses statements until one of the stop keywords is the
// current token, which is left unconsumed. Without stop keywords it parses
// to the end of input; with stop keywords, reaching the end of input is a
// syntax error.
func (p *Parser) ParseBody(stop ...string) ([]Node, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	var nodes []Node

	for {
		tok := p.Peek()

		switch {
		case tok.Kind == TokenEOF:
			if len(stop) > 0 {
				return nil, p.Errorf(tok, "unexpected end of template, expected %s",
					strings.Join(quoteAll(stop), " or "))
			}

			return nodes, nil

		case tok.Is(TokenKeyword, stop...) && len(stop) > 0:
			return nodes, nil

		case tok.Kind == TokenText:
			p.Next()
			nodes = append(nodes, &Text{Pos: Pos(tok.Line), Content: tok.Text})

		case tok.Kind == TokenTagOpen, tok.Kind == TokenTagClose,
			tok.Kind == TokenSemicolon:
			p.Next()

		case tok.Kind == TokenKeyword:
			node, err := p.parseStatement(tok)
			if err != nil {
				return nil, err
			}

			if node != nil {
				nodes = append(nodes, node)
			}

		default:
			node, err := p.ParseExpression()
			if err != nil {
				return nil, err
			}

			if err := p.EndStatement(); err != nil {
				return nil, err
			}

			nodes = append(nodes, node)
		}
	}
}

func (p *Parser) parseStatement(tok Token) (Node, error) {
	st, ok := p.reg.Statement(tok.Text)
	if !ok {
		return nil, p.Errorf(tok, "unexpected keyword %q", tok.Text)
	}

	p.Next()

	p.logger.TraceContext(p.ctx, "parse statement",
		slog.String("keyword", tok.Text),
		slog.Int("line", tok.Line))

	return st.Parse(p, tok)
}

// ParseExpression parses a complete expression.
func (p *Parser) ParseExpression() (Node, error) {
	return p.parseExpr(0)
}

// parseExpr implements precedence climbing: it parses an operand, then
// folds in every binary operator whose precedence is at least min.
func (p *Parser) parseExpr(minPrec int) (Node, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for {
		tok := p.Peek()
		if tok.Kind != TokenOperator {
			return left, nil
		}

		op, ok := p.reg.Operator(tok.Text)
		if !ok || op.Precedence < minPrec {
			return left, nil
		}

		p.Next()

		next := op.Precedence + 1
		if op.Assoc == AssocRight {
			next = op.Precedence
		}

		right, err := p.parseExpr(next)
		if err != nil {
			return nil, err
		}

		if op.Assign {
			target, ok := left.(*Variable)
			if !ok {
				return nil, p.Errorf(tok, "cannot assign to %s", describe(left))
			}

			left = &Assign{Pos: Pos(tok.Line), Target: target, Value: right}

			continue
		}

		left = NewBinaryOp(tok.Line, op, left, right)
	}
}

// parseUnary parses a prefix operator application or a postfix chain.
func (p *Parser) parseUnary() (Node, error) {
	tok := p.Peek()

	if tok.Kind == TokenOperator {
		if op, ok := p.reg.Unary(tok.Text); ok {
			p.Next()

			operand, err := p.parseExpr(op.Precedence)
			if err != nil {
				return nil, err
			}

			return NewUnaryOp(tok.Line, op, operand), nil
		}
	}

	primary, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	return p.parsePostfix(primary)
}

// parsePostfix wraps expr in property, method, index and filter nodes, left
// to right.
func (p *Parser) parsePostfix(expr Node) (Node, error) {
	for {
		tok := p.Peek()

		switch tok.Kind {
		case TokenDot:
			p.Next()

			name, err := p.memberName()
			if err != nil {
				return nil, err
			}

			nameNode := &Literal{Pos: Pos(name.Line), Value: name.Text}

			if p.Peek().Kind == TokenOpenParen {
				args, err := p.parseArgs()
				if err != nil {
					return nil, err
				}

				expr = &MethodCall{
					Pos:    Pos(tok.Line),
					Base:   expr,
					Name:   nameNode,
					Args:   args,
					Strict: p.strict,
				}
			} else {
				expr = &PropertyAccess{
					Pos:    Pos(tok.Line),
					Base:   expr,
					Name:   nameNode,
					Strict: p.strict,
				}
			}

		case TokenOpenBracket:
			p.Next()

			index, err := p.ParseExpression()
			if err != nil {
				return nil, err
			}

			if _, err := p.Expect(TokenCloseBracket); err != nil {
				return nil, err
			}

			expr = &Index{Pos: Pos(tok.Line), Base: expr, Index: index}

		case TokenPipe:
			p.Next()

			name, err := p.memberName()
			if err != nil {
				return nil, err
			}

			fn, ok := p.reg.Filter(name.Text)
			if !ok {
				return nil, p.Errorf(name, "unknown filter %q", name.Text)
			}

			var args []Node
			if p.Peek().Kind == TokenOpenParen {
				if args, err = p.parseArgs(); err != nil {
					return nil, err
				}
			}

			expr = NewFilterApply(tok.Line, name.Text, fn, expr, args...)

		default:
			return expr, nil
		}
	}
}

// memberName consumes a word following '.' or '|'. Keywords and word
// operators are accepted as names.
func (p *Parser) memberName() (Token, error) {
	tok := p.Peek()
	if !tok.IsWord() {
		return Token{}, p.Errorf(tok, "expected name, found %s", tok)
	}

	return p.Next(), nil
}

// parseArgs parses a parenthesized, comma-separated argument list.
func (p *Parser) parseArgs() ([]Node, error) {
	if _, err := p.Expect(TokenOpenParen); err != nil {
		return nil, err
	}

	var args []Node

	for p.Peek().Kind != TokenCloseParen {
		arg, err := p.ParseExpression()
		if err != nil {
			return nil, err
		}

		args = append(args, arg)

		if _, ok := p.Accept(TokenComma); !ok {
			break
		}
	}

	if _, err := p.Expect(TokenCloseParen); err != nil {
		return nil, err
	}

	return args, nil
}

func (p *Parser) parsePrimary() (Node, error) {
	tok := p.Peek()
	pos := Pos(tok.Line)

	switch tok.Kind {
	case TokenOpenParen:
		p.Next()

		expr, err := p.ParseExpression()
		if err != nil {
			return nil, err
		}

		if _, err := p.Expect(TokenCloseParen); err != nil {
			return nil, err
		}

		return expr, nil

	case TokenOpenBracket:
		return p.parseArray()

	case TokenOpenBrace:
		return p.parseDict()

	case TokenInteger, TokenFloat, TokenString, TokenBoolean, TokenNull:
		p.Next()

		return &Literal{Pos: pos, Value: tok.Value}, nil

	case TokenVariable:
		p.Next()

		return &Variable{Pos: pos, Name: tok.Text}, nil

	case TokenIdentifier:
		p.Next()

		if p.Peek().Kind != TokenOpenParen {
			return &Variable{Pos: pos, Name: tok.Text}, nil
		}

		fn, ok := p.reg.Tag(tok.Text)
		if !ok {
			return nil, p.Errorf(tok, "unknown tag %q", tok.Text)
		}

		args, err := p.parseArgs()
		if err != nil {
			return nil, err
		}

		return NewTagCall(tok.Line, tok.Text, fn, args...), nil
	}

	return nil, p.Errorf(tok, "unexpected %s", tok)
}

// parseArray parses [entry, ...]. An entry followed by ':' is keyed.
func (p *Parser) parseArray() (Node, error) {
	open := p.Next()

	entries, err := p.parseEntries(TokenCloseBracket, false)
	if err != nil {
		return nil, err
	}

	return &ArrayLit{Pos: Pos(open.Line), Entries: entries}, nil
}

// parseDict parses {key: value, ...}.
func (p *Parser) parseDict() (Node, error) {
	open := p.Next()

	entries, err := p.parseEntries(TokenCloseBrace, true)
	if err != nil {
		return nil, err
	}

	return &DictLit{Pos: Pos(open.Line), Entries: entries}, nil
}

func (p *Parser) parseEntries(closer TokenKind, keyed bool) ([]Entry, error) {
	var entries []Entry

	for p.Peek().Kind != closer {
		var (
			first Node
			err   error
		)

		if keyed {
			first, err = p.parseUnary()
		} else {
			first, err = p.ParseExpression()
		}

		if err != nil {
			return nil, err
		}

		entry := Entry{Value: first}

		if _, ok := p.Accept(TokenColon); ok {
			value, err := p.ParseExpression()
			if err != nil {
				return nil, err
			}

			entry = Entry{Key: first, Value: value}
		} else if keyed {
			return nil, p.Errorf(p.Peek(), "expected ':' after dictionary key")
		}

		entries = append(entries, entry)

		if _, ok := p.Accept(TokenComma); !ok {
			break
		}
	}

	if _, err := p.Expect(closer); err != nil {
		return nil, err
	}

	return entries, nil
}

func (p *Parser) enter() error {
	p.depth++
	if p.maxDepth > 0 && p.depth > p.maxDepth {
		return ErrSyntax.At(p.Peek().Line).Wrap(
			ErrMaxDepthExceeded.With(slog.Int("max_depth", p.maxDepth)),
		)
	}

	return nil
}

func (p *Parser) leave() { p.depth-- }

// describe names a node kind for error messages.
func describe(n Node) string {
	switch n := n.(type) {
	case *Literal:
		return "literal " + TypeName(n.Value)
	case *Variable:
		return "variable " + n.Name
	}

	return strings.ToLower(strings.TrimPrefix(fmt.Sprintf("%T", n), "*lang."))
}

func quoteAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = fmt.Sprintf("%q", s)
	}

	return out
}
