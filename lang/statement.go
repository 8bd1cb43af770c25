package lang

// Statement keywords.
const (
	KeywordIf     = "if"
	KeywordElseIf = "elseif"
	KeywordElse   = "else"
	KeywordEndIf  = "endif"
	KeywordFor    = "for"
	KeywordEndFor = "endfor"
	KeywordPrint  = "print"
)

// LoopName is the variable bound to [Loop] metadata inside a for body.
const LoopName = "loop"

func coreStatements() []Statement {
	return []Statement{
		{
			Keyword:  KeywordIf,
			Reserved: []string{KeywordElseIf, KeywordElse, KeywordEndIf},
			Parse:    parseIf,
		},
		{
			Keyword:  KeywordFor,
			Reserved: []string{KeywordEndFor},
			Parse:    parseFor,
		},
		{
			Keyword: KeywordPrint,
			Parse:   parsePrint,
		},
	}
}

// parseIf parses:
//
//	if cond: body (elseif cond: body)* (else: body)? endif;
func parseIf(p *Parser, kw Token) (Node, error) {
	node := &If{Pos: Pos(kw.Line)}
	stops := []string{KeywordElseIf, KeywordElse, KeywordEndIf}

	cond, err := p.ParseExpression()
	if err != nil {
		return nil, err
	}

	for {
		if _, err := p.Expect(TokenColon); err != nil {
			return nil, err
		}

		body, err := p.ParseBody(stops...)
		if err != nil {
			return nil, err
		}

		node.Branches = append(node.Branches, Branch{Cond: cond, Body: body})

		tok := p.Next()

		switch tok.Text {
		case KeywordEndIf:
			return node, p.EndStatement()

		case KeywordElse:
			if cond == nil {
				return nil, p.Errorf(tok, "else must be the last branch")
			}

			cond = nil

		case KeywordElseIf:
			if cond == nil {
				return nil, p.Errorf(tok, "elseif after else")
			}

			if cond, err = p.ParseExpression(); err != nil {
				return nil, err
			}
		}
	}
}

// parseFor parses:
//
//	for (value) in seq: body endfor;
//	for (key, value) in seq: body endfor;
//
// The parentheses around the bindings are optional.
func parseFor(p *Parser, kw Token) (Node, error) {
	_, paren := p.Accept(TokenOpenParen)

	var bindings []string

	for {
		tok := p.Peek()
		if tok.Kind != TokenIdentifier && tok.Kind != TokenVariable {
			return nil, p.Errorf(tok, "for binding must be a variable name, found %s",
				tok)
		}

		if tok.Text == LoopName {
			return nil, p.Errorf(tok, "for binding %q is reserved for loop metadata",
				tok.Text)
		}

		p.Next()

		bindings = append(bindings, tok.Text)

		if _, ok := p.Accept(TokenComma); !ok {
			break
		}
	}

	if len(bindings) > 2 {
		return nil, p.Errorf(kw, "for takes one or two bindings, found %d",
			len(bindings))
	}

	if paren {
		if _, err := p.Expect(TokenCloseParen); err != nil {
			return nil, err
		}
	}

	if _, err := p.Expect(TokenOperator, "in"); err != nil {
		return nil, err
	}

	seq, err := p.ParseExpression()
	if err != nil {
		return nil, err
	}

	if _, err := p.Expect(TokenColon); err != nil {
		return nil, err
	}

	body, err := p.ParseBody(KeywordEndFor)
	if err != nil {
		return nil, err
	}

	p.Next()

	return &For{
		Pos:      Pos(kw.Line),
		Bindings: bindings,
		Seq:      seq,
		Body:     body,
	}, p.EndStatement()
}

// parsePrint parses: print expr;
func parsePrint(p *Parser, kw Token) (Node, error) {
	expr, err := p.ParseExpression()
	if err != nil {
		return nil, err
	}

	return &Print{Pos: Pos(kw.Line), Expr: expr}, p.EndStatement()
}
