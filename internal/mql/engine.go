package mql

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/maruel/macrokit/internal/macro"
)

// Built-in columns every card has.
const (
	builtinNumber = "Number"
	builtinName   = "Name"
	builtinType   = "Type"
)

// Engine implements macro.QueryEngine over a Source.
type Engine struct {
	src Source
}

// New returns an Engine reading from src.
func New(src Source) *Engine {
	return &Engine{src: src}
}

// Parse parses and validates mql against the active project of scope.
func (e *Engine) Parse(ctx context.Context, scope macro.Scope, mql string, opts macro.QueryOptions) (macro.ParsedQuery, error) {
	q, err := parse(mql)
	if err != nil {
		return nil, err
	}
	active := scope.Project()
	target := active
	if q.project != "" {
		target = q.project
	}
	props, err := e.src.Properties(ctx, target)
	if err != nil {
		if q.project != "" {
			return nil, newSyntaxError(q.projectPos, "unknown project %q", q.project)
		}
		return nil, err
	}
	pq := &Query{
		src:     e.src,
		q:       q,
		active:  active,
		project: target,
		opts:    opts,
		props:   make(map[string]Property, len(props)+3),
	}
	for _, p := range props {
		pq.props[strings.ToLower(p.Name)] = p
	}
	pq.props["number"] = Property{Name: builtinNumber, Type: macro.PropertyTypeAnyNumber}
	pq.props["name"] = Property{Name: builtinName, Type: macro.PropertyTypeAnyText}
	pq.props["type"] = Property{Name: builtinType, Type: macro.PropertyTypeManagedText}
	if err := pq.bind(ctx); err != nil {
		return nil, err
	}
	slog.DebugContext(ctx, "Parsed MQL", "project", target, "mql", mql, "cacheable", pq.CanBeCached())
	return pq, nil
}

// Query is a parsed and validated query.
type Query struct {
	src     Source
	q       *query
	active  string
	project string
	opts    macro.QueryOptions
	// props is keyed by lowercase property name.
	props map[string]Property
	// groupBy holds the plain columns aggregated rows are grouped by.
	groupBy []Property
}

// CanBeCached reports whether the query avoids TODAY, CURRENT USER, THIS CARD
// and other projects.
func (pq *Query) CanBeCached() bool {
	if pq.q.project != "" && pq.q.project != pq.active {
		return false
	}
	if pq.q.where == nil {
		return true
	}
	for _, o := range pq.q.where.operands() {
		if o.contextual() {
			return false
		}
	}
	return true
}

func (pq *Query) alert(format string, args ...any) {
	if pq.opts.AlertReceiver != nil {
		pq.opts.AlertReceiver.Alert(fmt.Sprintf(format, args...))
	}
}

func (pq *Query) lookup(n nameRef) (Property, error) {
	p, ok := pq.props[strings.ToLower(n.text)]
	if !ok {
		return Property{}, newSyntaxError(n.pos, "property %q does not exist", n.text)
	}
	return p, nil
}

// bind resolves names, project variables and grouping, raising alerts for
// suspicious but valid constructs.
func (pq *Query) bind(ctx context.Context) error {
	q := pq.q
	var plain []Property
	var plainPos []int
	hasAggregate := false
	for _, c := range q.columns {
		if c.star {
			hasAggregate = true
			continue
		}
		p, err := pq.lookup(c.name)
		if err != nil {
			return err
		}
		switch c.fn {
		case "":
			plain = append(plain, p)
			plainPos = append(plainPos, c.name.pos)
		case "COUNT":
			hasAggregate = true
		case "SUM", "AVG":
			hasAggregate = true
			if !p.Type.IsNumeric() && !p.Type.IsCalculated() && p.Name != builtinNumber {
				return newSyntaxError(c.name.pos, "%s needs a numeric property, %q is %s", c.fn, p.Name, p.Type.Description())
			}
		case "MIN", "MAX":
			hasAggregate = true
		}
	}
	if q.where != nil {
		if err := pq.bindExpr(ctx, q.where); err != nil {
			return err
		}
	}
	for _, n := range q.groupBy {
		p, err := pq.lookup(n)
		if err != nil {
			return err
		}
		pq.groupBy = append(pq.groupBy, p)
	}
	if hasAggregate && len(plain) > 0 {
		if len(q.groupBy) == 0 {
			pq.alert("No GROUP BY given; grouping by %s", joinNames(plain))
			pq.groupBy = plain
		} else {
			for i, p := range plain {
				if !containsProperty(pq.groupBy, p) {
					return newSyntaxError(plainPos[i], "%q must appear in GROUP BY", p.Name)
				}
			}
		}
	}
	for _, o := range q.orderBy {
		p, err := pq.lookup(o.name)
		if err != nil {
			return err
		}
		if len(q.columns) != 0 && !containsProperty(plain, p) {
			pq.alert("ORDER BY %s: the column is not selected", p.Name)
		}
	}
	return nil
}

func (pq *Query) bindExpr(ctx context.Context, e expr) error {
	switch e := e.(type) {
	case *logicalExpr:
		if err := pq.bindExpr(ctx, e.left); err != nil {
			return err
		}
		return pq.bindExpr(ctx, e.right)
	case *notExpr:
		return pq.bindExpr(ctx, e.inner)
	case *nullExpr:
		_, err := pq.lookup(e.name)
		return err
	case *compareExpr:
		p, err := pq.lookup(e.name)
		if err != nil {
			return err
		}
		if e.rhs, err = pq.bindOperand(ctx, p, e.rhs); err != nil {
			return err
		}
		if e.rhs.kind == operandNull && e.op != "=" && e.op != "!=" {
			return newSyntaxError(e.rhs.pos, "%s has no value; it can only be compared with = or !=", e.rhs.text)
		}
		return nil
	case *inExpr:
		p, err := pq.lookup(e.name)
		if err != nil {
			return err
		}
		for i := range e.values {
			if e.values[i], err = pq.bindOperand(ctx, p, e.values[i]); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("unexpected expression %T", e)
}

// bindOperand replaces project variables by their value and checks literals
// against the property type.
func (pq *Query) bindOperand(ctx context.Context, p Property, o operand) (operand, error) {
	switch o.kind {
	case operandProjectVariable:
		v, ok, err := pq.src.ProjectVariable(ctx, pq.project, o.text)
		if err != nil {
			return o, err
		}
		if !ok {
			return o, newSyntaxError(o.pos, "project variable %q does not exist", o.text)
		}
		if v == "" {
			return operand{kind: operandNull, text: "(" + o.text + ")", pos: o.pos}, nil
		}
		return operand{kind: operandLiteral, text: v, pos: o.pos}, nil
	case operandLiteral:
		switch {
		case isNumericType(p):
			if _, err := strconv.ParseFloat(o.text, 64); err != nil {
				pq.alert("%q is not a number; %s is compared as text", o.text, p.Name)
			}
		case p.Type.IsDate():
			if _, ok := parseDate(o.text); !ok {
				pq.alert("%q is not a date; %s is compared as text", o.text, p.Name)
			}
		}
	case operandToday:
		if !p.Type.IsDate() {
			pq.alert("TODAY used with %s which is not a date property", p.Name)
		}
	case operandCurrentUser:
		if p.Type != macro.PropertyTypeUser {
			pq.alert("CURRENT USER used with %s which is not a user property", p.Name)
		}
	case operandNull, operandThisCard:
	}
	return o, nil
}

func containsProperty(list []Property, p Property) bool {
	for _, l := range list {
		if l.Name == p.Name {
			return true
		}
	}
	return false
}

func joinNames(props []Property) string {
	names := make([]string, 0, len(props))
	for _, p := range props {
		names = append(names, p.Name)
	}
	return strings.Join(names, ", ")
}
