package routing

import (
	"fmt"
	"sort"
)

// Diagnostic describes one problem found while parsing a match clause.
type Diagnostic struct {
	Position int    `json:"position"`
	Token    string `json:"token,omitempty"`
	Message  string `json:"message"`
}

func (d Diagnostic) String() string {
	if d.Token == "" {
		return fmt.Sprintf("position %d: %s", d.Position, d.Message)
	}
	return fmt.Sprintf("position %d at %q: %s", d.Position, d.Token, d.Message)
}

// ParseResult is the dual outcome of parsing: a compiled expression when the
// clause is well formed, otherwise a nil expression and every diagnostic
// found in one pass. Rule authors get all problems at once instead of fixing
// them one by one.
type ParseResult struct {
	Expression  Expression
	Diagnostics []Diagnostic
}

func (r ParseResult) OK() bool {
	return r.Expression != nil && len(r.Diagnostics) == 0
}

// Parse compiles a routing match clause. It never panics and never stops at
// the first problem: unknown words, bad structure and trailing garbage each
// contribute their own diagnostic, ordered by position.
func Parse(input string) ParseResult {
	p := &parser{tokens: tokenize(input)}

	for _, t := range p.tokens {
		if t.typ == tokenIllegal {
			p.report(t, "unrecognized token")
		}
	}

	expr := p.parseExpression()

	// Trailing tokens only matter when the expression itself was fine;
	// otherwise the recovery already positioned us mid-stream.
	if t, ok := p.peek(); ok && t.typ != tokenIllegal && len(p.diagnostics) == 0 {
		p.report(t, "unexpected token after end of expression")
	}

	if len(p.diagnostics) > 0 {
		expr = nil
	}

	sort.SliceStable(p.diagnostics, func(i, j int) bool {
		return p.diagnostics[i].Position < p.diagnostics[j].Position
	})

	return ParseResult{Expression: expr, Diagnostics: p.diagnostics}
}

type parser struct {
	tokens      []token
	pos         int
	diagnostics []Diagnostic
}

func (p *parser) next() (token, bool) {
	if p.pos >= len(p.tokens) {
		return token{}, false
	}
	t := p.tokens[p.pos]
	p.pos++
	return t, true
}

func (p *parser) peek() (token, bool) {
	if p.pos >= len(p.tokens) {
		return token{}, false
	}
	return p.tokens[p.pos], true
}

func (p *parser) report(t token, message string) {
	p.diagnostics = append(p.diagnostics, Diagnostic{Position: t.pos, Token: t.text, Message: message})
}

func (p *parser) reportEnd(message string) {
	p.diagnostics = append(p.diagnostics, Diagnostic{Position: p.endPos(), Message: message})
}

func (p *parser) endPos() int {
	if len(p.tokens) == 0 {
		return 0
	}
	last := p.tokens[len(p.tokens)-1]
	return last.pos + len(last.text)
}

// expect consumes the next token and checks its type. Illegal tokens were
// already reported during scanning and produce no second diagnostic.
func (p *parser) expect(typ tokenType) bool {
	t, ok := p.next()
	if !ok {
		p.reportEnd("expected " + typ.String())
		return false
	}
	if t.typ != typ {
		if t.typ != tokenIllegal {
			p.report(t, "expected "+typ.String())
		}
		return false
	}
	return true
}

func (p *parser) parseExpression() Expression {
	t, ok := p.next()
	if !ok {
		p.reportEnd("expected expression")
		return nil
	}
	switch t.typ {
	case tokenAnd:
		return p.parseBoolean(opAnd, t)
	case tokenOr:
		return p.parseBoolean(opOr, t)
	case tokenNot:
		return p.parseNot()
	case tokenEquals:
		return p.parseMatch(opEquals)
	case tokenStartsWith:
		return p.parseMatch(opStartsWith)
	case tokenIllegal:
		return nil
	default:
		p.report(t, "expected 'equals', 'startswith', 'not', '&' or '|'")
		return nil
	}
}

func (p *parser) parseMatch(op matchOp) Expression {
	if !p.expect(tokenLParen) {
		return nil
	}

	attrTok, ok := p.next()
	if !ok {
		p.reportEnd("expected attribute name")
		return nil
	}
	if attrTok.typ != tokenAttribute {
		if attrTok.typ != tokenIllegal {
			p.report(attrTok, "expected attribute name")
		}
		p.syncMatch()
		return nil
	}

	if !p.expect(tokenComma) {
		p.syncMatch()
		return nil
	}

	litTok, ok := p.next()
	if !ok {
		p.reportEnd("expected quoted literal")
		return nil
	}
	if litTok.typ != tokenLiteral {
		if litTok.typ != tokenIllegal {
			p.report(litTok, "expected quoted literal")
		}
		p.syncMatch()
		return nil
	}

	if !p.expect(tokenRParen) {
		p.syncMatch()
		return nil
	}

	attr, _ := ParseAttribute(attrTok.text)
	return &matchExpression{op: op, attribute: attr, value: litTok.text}
}

func (p *parser) parseNot() Expression {
	if !p.expect(tokenLParen) {
		return nil
	}

	operand := p.parseExpression()
	if operand == nil {
		p.syncOperand()
		p.consumeRParen()
		return nil
	}

	if !p.expect(tokenRParen) {
		return nil
	}
	return &notExpression{operand: operand}
}

func (p *parser) parseBoolean(op booleanOp, opTok token) Expression {
	if !p.expect(tokenLParen) {
		return nil
	}

	var operands []Expression
	failed := false
	count := 0

	for {
		operand := p.parseExpression()
		count++
		if operand == nil {
			failed = true
			p.syncOperand()
		} else {
			operands = append(operands, operand)
		}

		t, ok := p.peek()
		if !ok {
			p.reportEnd("expected ',' or ')'")
			return nil
		}
		if t.typ == tokenComma {
			p.pos++
			continue
		}
		if t.typ == tokenRParen {
			p.pos++
			break
		}
		if t.typ != tokenIllegal {
			p.report(t, "expected ',' or ')'")
		}
		failed = true
		p.pos++
	}

	if count < 2 {
		p.report(opTok, "boolean operator needs at least two operands")
		return nil
	}
	if failed {
		return nil
	}
	return &booleanExpression{op: op, operands: operands}
}

// syncOperand skips ahead to the next ',' or ')' of the current nesting
// level so one broken operand yields one diagnostic and parsing of its
// siblings continues.
func (p *parser) syncOperand() {
	depth := 0
	for p.pos < len(p.tokens) {
		switch p.tokens[p.pos].typ {
		case tokenLParen:
			depth++
		case tokenRParen:
			if depth == 0 {
				return
			}
			depth--
		case tokenComma:
			if depth == 0 {
				return
			}
		}
		p.pos++
	}
}

// syncMatch discards the rest of a broken predicate, up to and including its
// own closing paren, so the stranded argument tokens are not re-parsed as
// sibling operands.
func (p *parser) syncMatch() {
	depth := 0
	for p.pos < len(p.tokens) {
		switch p.tokens[p.pos].typ {
		case tokenLParen:
			depth++
		case tokenRParen:
			if depth == 0 {
				p.pos++
				return
			}
			depth--
		}
		p.pos++
	}
}

func (p *parser) consumeRParen() {
	if t, ok := p.peek(); ok && t.typ == tokenRParen {
		p.pos++
	}
}
