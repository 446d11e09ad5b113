package mql

// query is a parsed MQL statement.
type query struct {
	distinct bool
	// columns is empty for a bare condition such as "type = story".
	columns []column
	// project is set by FROM PROJECT.
	project    string
	projectPos int
	where      expr
	groupBy    []nameRef
	orderBy    []order
}

// column is a selected property or aggregate.
type column struct {
	// fn is the upper-cased aggregate function, empty for a property.
	fn string
	// star is set for COUNT(*).
	star bool
	name nameRef
}

func (c column) isAggregate() bool {
	return c.fn != ""
}

type nameRef struct {
	text string
	pos  int
}

type order struct {
	name nameRef
	desc bool
}

type operandKind int

const (
	operandLiteral operandKind = iota
	operandNull
	operandToday
	operandCurrentUser
	operandThisCard
	operandProjectVariable
)

type operand struct {
	kind operandKind
	text string
	pos  int
}

// contextual reports whether the operand's value depends on when, by whom or
// from which card the query runs.
func (o operand) contextual() bool {
	switch o.kind {
	case operandToday, operandCurrentUser, operandThisCard:
		return true
	case operandLiteral, operandNull, operandProjectVariable:
		return false
	}
	return false
}

// expr is a WHERE condition node.
type expr interface {
	operands() []operand
}

type logicalExpr struct {
	and         bool
	left, right expr
}

func (e *logicalExpr) operands() []operand {
	return append(e.left.operands(), e.right.operands()...)
}

type notExpr struct {
	inner expr
}

func (e *notExpr) operands() []operand {
	return e.inner.operands()
}

type compareExpr struct {
	name nameRef
	op   string
	rhs  operand
}

func (e *compareExpr) operands() []operand {
	return []operand{e.rhs}
}

type nullExpr struct {
	name nameRef
	not  bool
}

func (e *nullExpr) operands() []operand {
	return nil
}

type inExpr struct {
	name   nameRef
	not    bool
	values []operand
}

func (e *inExpr) operands() []operand {
	return e.values
}
