// Provides a recursive descent parser for the MQL subset understood by the
// engine.
//
//	query    := [SELECT [DISTINCT] column {, column}] [FROM PROJECT name]
//	            [WHERE cond] [GROUP BY name {, name}]
//	            [ORDER BY name [ASC|DESC] {, ...}]
//	          | cond
//	column   := FUNC '(' ('*' | name) ')' | name
//	cond     := and {OR and}
//	and      := not {AND not}
//	not      := NOT not | '(' cond ')' | name predicate
//	predicate:= op operand | IS [NOT] NULL | [NOT] IN '(' operand {, operand} ')'
//	operand  := TODAY | CURRENT USER | THIS CARD | NULL | '(' name ')' | value

package mql

import (
	"slices"
	"strings"
)

var aggregateFuncs = []string{"COUNT", "SUM", "AVG", "MIN", "MAX"}

var keywords = []string{
	"SELECT", "DISTINCT", "FROM", "PROJECT", "WHERE", "GROUP", "ORDER", "BY",
	"AND", "OR", "NOT", "IS", "NULL", "IN", "ASC", "DESC",
}

func isKeyword(s string) bool {
	return slices.Contains(keywords, strings.ToUpper(s))
}

type parser struct {
	toks []token
	i    int
}

func parse(src string) (*query, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	q, err := p.query()
	if err != nil {
		return nil, err
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, newSyntaxError(t.pos, "unexpected %q", t.text)
	}
	return q, nil
}

func (p *parser) peek() token {
	return p.toks[p.i]
}

func (p *parser) next() token {
	t := p.toks[p.i]
	if t.kind != tokEOF {
		p.i++
	}
	return t
}

// accept consumes the keyword kw if it is next.
func (p *parser) accept(kw string) bool {
	if p.peek().is(kw) {
		p.i++
		return true
	}
	return false
}

func (p *parser) expect(kw string) error {
	if !p.accept(kw) {
		t := p.peek()
		return newSyntaxError(t.pos, "expected %s, got %q", kw, t.text)
	}
	return nil
}

func (p *parser) expectKind(k tokenKind, what string) (token, error) {
	t := p.next()
	if t.kind != k {
		return t, newSyntaxError(t.pos, "expected %s, got %q", what, t.text)
	}
	return t, nil
}

func (p *parser) query() (*query, error) {
	q := &query{}
	if t := p.peek(); t.kind == tokEOF {
		return nil, newSyntaxError(t.pos, "empty query")
	}
	if !p.accept("SELECT") {
		// Bare condition.
		w, err := p.cond()
		if err != nil {
			return nil, err
		}
		q.where = w
		return q, nil
	}
	q.distinct = p.accept("DISTINCT")
	for {
		c, err := p.column()
		if err != nil {
			return nil, err
		}
		q.columns = append(q.columns, c)
		if p.peek().kind != tokComma {
			break
		}
		p.next()
	}
	if p.accept("FROM") {
		if err := p.expect("PROJECT"); err != nil {
			return nil, err
		}
		n, err := p.name()
		if err != nil {
			return nil, err
		}
		q.project, q.projectPos = n.text, n.pos
	}
	if p.accept("WHERE") {
		w, err := p.cond()
		if err != nil {
			return nil, err
		}
		q.where = w
	}
	if p.accept("GROUP") {
		if err := p.expect("BY"); err != nil {
			return nil, err
		}
		for {
			n, err := p.name()
			if err != nil {
				return nil, err
			}
			q.groupBy = append(q.groupBy, n)
			if p.peek().kind != tokComma {
				break
			}
			p.next()
		}
	}
	if p.accept("ORDER") {
		if err := p.expect("BY"); err != nil {
			return nil, err
		}
		for {
			n, err := p.name()
			if err != nil {
				return nil, err
			}
			o := order{name: n}
			if p.accept("DESC") {
				o.desc = true
			} else {
				p.accept("ASC")
			}
			q.orderBy = append(q.orderBy, o)
			if p.peek().kind != tokComma {
				break
			}
			p.next()
		}
	}
	return q, nil
}

func (p *parser) column() (column, error) {
	t := p.peek()
	if t.kind == tokWord && p.toks[p.i+1].kind == tokLParen {
		fn := strings.ToUpper(t.text)
		if !slices.Contains(aggregateFuncs, fn) {
			return column{}, newSyntaxError(t.pos, "unknown function %q", t.text)
		}
		p.next()
		p.next()
		c := column{fn: fn, name: nameRef{pos: t.pos}}
		if p.peek().kind == tokStar {
			if fn != "COUNT" {
				return column{}, newSyntaxError(p.peek().pos, "%s(*) is not supported", fn)
			}
			p.next()
			c.star = true
		} else {
			n, err := p.name()
			if err != nil {
				return column{}, err
			}
			c.name = n
		}
		if _, err := p.expectKind(tokRParen, "')'"); err != nil {
			return column{}, err
		}
		return c, nil
	}
	n, err := p.name()
	if err != nil {
		return column{}, err
	}
	return column{name: n}, nil
}

// name reads a property or project name: a quoted string or a bare word that
// is not a keyword.
func (p *parser) name() (nameRef, error) {
	t := p.next()
	switch t.kind {
	case tokString:
		return nameRef{text: t.text, pos: t.pos}, nil
	case tokWord, tokNumber:
		if isKeyword(t.text) {
			return nameRef{}, newSyntaxError(t.pos, "unexpected keyword %s", strings.ToUpper(t.text))
		}
		return nameRef{text: t.text, pos: t.pos}, nil
	case tokEOF:
		return nameRef{}, newSyntaxError(t.pos, "unexpected end of query")
	}
	return nameRef{}, newSyntaxError(t.pos, "expected a name, got %q", t.text)
}

// variableName reads a project variable name up to the closing parenthesis.
// The name is quoted or a run of words joined by single spaces, so
// (Current Release) names "Current Release".
func (p *parser) variableName() (string, error) {
	if t := p.peek(); t.kind == tokString {
		p.next()
		if _, err := p.expectKind(tokRParen, "')'"); err != nil {
			return "", err
		}
		return t.text, nil
	}
	var words []string
	for {
		t := p.next()
		switch t.kind {
		case tokWord, tokNumber:
			words = append(words, t.text)
			continue
		case tokRParen:
			if len(words) == 0 {
				return "", newSyntaxError(t.pos, "expected a project variable name, got ')'")
			}
			return strings.Join(words, " "), nil
		case tokEOF:
			return "", newSyntaxError(t.pos, "unexpected end of query")
		}
		return "", newSyntaxError(t.pos, "expected ')', got %q", t.text)
	}
}

func (p *parser) cond() (expr, error) {
	left, err := p.and()
	if err != nil {
		return nil, err
	}
	for p.accept("OR") {
		right, err := p.and()
		if err != nil {
			return nil, err
		}
		left = &logicalExpr{left: left, right: right}
	}
	return left, nil
}

func (p *parser) and() (expr, error) {
	left, err := p.not()
	if err != nil {
		return nil, err
	}
	for p.accept("AND") {
		right, err := p.not()
		if err != nil {
			return nil, err
		}
		left = &logicalExpr{and: true, left: left, right: right}
	}
	return left, nil
}

func (p *parser) not() (expr, error) {
	if p.accept("NOT") {
		inner, err := p.not()
		if err != nil {
			return nil, err
		}
		return &notExpr{inner: inner}, nil
	}
	if p.peek().kind == tokLParen {
		p.next()
		e, err := p.cond()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectKind(tokRParen, "')'"); err != nil {
			return nil, err
		}
		return e, nil
	}
	n, err := p.name()
	if err != nil {
		return nil, err
	}
	return p.predicate(n)
}

func (p *parser) predicate(n nameRef) (expr, error) {
	t := p.peek()
	switch {
	case t.kind == tokOp:
		p.next()
		rhs, err := p.operand()
		if err != nil {
			return nil, err
		}
		if rhs.kind == operandNull {
			switch t.text {
			case "=":
				return &nullExpr{name: n}, nil
			case "!=":
				return &nullExpr{name: n, not: true}, nil
			}
			return nil, newSyntaxError(rhs.pos, "NULL can only be compared with = or !=")
		}
		return &compareExpr{name: n, op: t.text, rhs: rhs}, nil
	case t.is("IS"):
		p.next()
		not := p.accept("NOT")
		if err := p.expect("NULL"); err != nil {
			return nil, err
		}
		return &nullExpr{name: n, not: not}, nil
	case t.is("NOT"), t.is("IN"):
		not := p.accept("NOT")
		if err := p.expect("IN"); err != nil {
			return nil, err
		}
		if _, err := p.expectKind(tokLParen, "'('"); err != nil {
			return nil, err
		}
		e := &inExpr{name: n, not: not}
		for {
			o, err := p.operand()
			if err != nil {
				return nil, err
			}
			if o.kind == operandNull {
				return nil, newSyntaxError(o.pos, "NULL is not allowed in IN")
			}
			e.values = append(e.values, o)
			if p.peek().kind != tokComma {
				break
			}
			p.next()
		}
		if _, err := p.expectKind(tokRParen, "')'"); err != nil {
			return nil, err
		}
		return e, nil
	case t.kind == tokEOF:
		return nil, newSyntaxError(t.pos, "unexpected end of query after %q", n.text)
	}
	return nil, newSyntaxError(t.pos, "expected a comparison after %q, got %q", n.text, t.text)
}

func (p *parser) operand() (operand, error) {
	t := p.next()
	switch t.kind {
	case tokString, tokNumber:
		return operand{kind: operandLiteral, text: t.text, pos: t.pos}, nil
	case tokLParen:
		name, err := p.variableName()
		if err != nil {
			return operand{}, err
		}
		return operand{kind: operandProjectVariable, text: name, pos: t.pos}, nil
	case tokWord:
		switch {
		case t.is("TODAY"):
			return operand{kind: operandToday, pos: t.pos}, nil
		case t.is("NULL"):
			return operand{kind: operandNull, pos: t.pos}, nil
		case t.is("CURRENT"):
			if err := p.expect("USER"); err != nil {
				return operand{}, err
			}
			return operand{kind: operandCurrentUser, pos: t.pos}, nil
		case t.is("THIS"):
			if err := p.expect("CARD"); err != nil {
				return operand{}, err
			}
			return operand{kind: operandThisCard, pos: t.pos}, nil
		case isKeyword(t.text):
			return operand{}, newSyntaxError(t.pos, "unexpected keyword %s", strings.ToUpper(t.text))
		}
		return operand{kind: operandLiteral, text: t.text, pos: t.pos}, nil
	case tokEOF:
		return operand{}, newSyntaxError(t.pos, "unexpected end of query")
	}
	return operand{}, newSyntaxError(t.pos, "expected a value, got %q", t.text)
}
