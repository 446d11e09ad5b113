// Provides filtering, grouping, ordering and projection of cards.

package mql

import (
	"cmp"
	"context"
	"errors"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/maruel/macrokit/internal/macro"
)

var (
	errNoCurrentUser = errors.New("CURRENT USER is not available: no user is rendering the macro")
	errNoCurrentCard = errors.New("THIS CARD is not available: the macro is not rendered on a card")
)

// dateLayouts are accepted for date literals, ISO first.
var dateLayouts = []string{"2006-01-02", "02 Jan 2006", "Jan 02 2006", "02/01/2006", "01/02/2006"}

// env holds the values of contextual operands for one execution.
type env struct {
	today       string
	currentUser string
	hasUser     bool
	thisCard    string
	hasCard     bool
}

// ValuesFor executes the query. Column keys follow version.
func (pq *Query) ValuesFor(ctx context.Context, version macro.APIVersion) ([]macro.Row, error) {
	cards, err := pq.src.Cards(ctx, pq.project)
	if err != nil {
		return nil, err
	}
	e := &env{today: pq.src.Now(pq.project).Format(time.DateOnly)}
	e.currentUser, e.hasUser = pq.src.CurrentUser(ctx)
	if n, ok := pq.src.CurrentCard(ctx); ok {
		e.thisCard, e.hasCard = strconv.Itoa(n), true
	}

	matched := make([]*Card, 0, len(cards))
	for i := range cards {
		c := &cards[i]
		if pq.q.where != nil {
			ok, err := pq.match(c, pq.q.where, e)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		matched = append(matched, c)
	}
	// Newest cards first unless ORDER BY says otherwise.
	slices.SortStableFunc(matched, func(a, b *Card) int { return cmp.Compare(b.Number, a.Number) })

	switch {
	case len(pq.q.columns) == 0:
		return pq.rawRows(matched), nil
	case pq.isAggregated():
		return pq.groupRows(matched, version), nil
	default:
		return pq.cardRows(matched, version), nil
	}
}

func (pq *Query) isAggregated() bool {
	if len(pq.q.groupBy) > 0 {
		return true
	}
	for _, c := range pq.q.columns {
		if c.isAggregate() {
			return true
		}
	}
	return false
}

func (pq *Query) prop(n nameRef) Property {
	return pq.props[strings.ToLower(n.text)]
}

// value returns the stored value of p on c.
func value(c *Card, p Property) (string, bool) {
	switch p.Name {
	case builtinNumber:
		return strconv.Itoa(c.Number), true
	case builtinName:
		return c.Name, true
	case builtinType:
		return c.Type, true
	}
	v, ok := c.Values[p.Name]
	return v, ok
}

func (pq *Query) match(c *Card, x expr, e *env) (bool, error) {
	switch x := x.(type) {
	case *logicalExpr:
		l, err := pq.match(c, x.left, e)
		if err != nil {
			return false, err
		}
		if x.and && !l {
			return false, nil
		}
		if !x.and && l {
			return true, nil
		}
		return pq.match(c, x.right, e)
	case *notExpr:
		ok, err := pq.match(c, x.inner, e)
		return !ok, err
	case *nullExpr:
		_, ok := value(c, pq.prop(x.name))
		return ok == x.not, nil
	case *compareExpr:
		p := pq.prop(x.name)
		v, ok := value(c, p)
		if x.rhs.kind == operandNull {
			return ok == (x.op == "!="), nil
		}
		rhs, err := e.resolve(x.rhs)
		if err != nil {
			return false, err
		}
		if !ok {
			return x.op == "!=", nil
		}
		return applyOp(x.op, compareTyped(p, v, rhs)), nil
	case *inExpr:
		p := pq.prop(x.name)
		v, ok := value(c, p)
		if !ok {
			return x.not, nil
		}
		for _, o := range x.values {
			rhs, err := e.resolve(o)
			if err != nil {
				return false, err
			}
			if compareTyped(p, v, rhs) == 0 {
				return !x.not, nil
			}
		}
		return x.not, nil
	}
	return false, errors.New("unexpected expression")
}

func (e *env) resolve(o operand) (string, error) {
	switch o.kind {
	case operandToday:
		return e.today, nil
	case operandCurrentUser:
		if !e.hasUser {
			return "", errNoCurrentUser
		}
		return e.currentUser, nil
	case operandThisCard:
		if !e.hasCard {
			return "", errNoCurrentCard
		}
		return e.thisCard, nil
	case operandLiteral, operandNull, operandProjectVariable:
	}
	return o.text, nil
}

func applyOp(op string, c int) bool {
	switch op {
	case "=":
		return c == 0
	case "!=":
		return c != 0
	case "<":
		return c < 0
	case "<=":
		return c <= 0
	case ">":
		return c > 0
	case ">=":
		return c >= 0
	}
	return false
}

func isNumericType(p Property) bool {
	return p.Type.IsNumeric() || p.Type.IsCalculated()
}

func parseDate(s string) (time.Time, bool) {
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// compareTyped compares a stored value with an operand according to the
// property type, falling back to case insensitive text.
func compareTyped(p Property, a, b string) int {
	switch {
	case isNumericType(p):
		fa, errA := strconv.ParseFloat(a, 64)
		fb, errB := strconv.ParseFloat(b, 64)
		if errA == nil && errB == nil {
			return cmp.Compare(fa, fb)
		}
	case p.Type.IsDate():
		ta, okA := parseDate(a)
		tb, okB := parseDate(b)
		if okA && okB {
			return ta.Compare(tb)
		}
	case p.Type == macro.PropertyTypeCard || p.Type == macro.PropertyTypeTreeRelationship:
		na, errA := strconv.Atoi(strings.TrimPrefix(a, "#"))
		nb, errB := strconv.Atoi(strings.TrimPrefix(b, "#"))
		if errA == nil && errB == nil {
			return cmp.Compare(na, nb)
		}
	}
	return cmp.Compare(strings.ToLower(a), strings.ToLower(b))
}

// compareNullable orders nulls last.
func compareNullable(p Property, a, b *string) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return compareTyped(p, *a, *b)
}

// rawRows renders every field of the cards for a query without SELECT.
func (pq *Query) rawRows(cards []*Card) []macro.Row {
	props := make([]Property, 0, len(pq.props))
	for _, p := range pq.props {
		switch p.Name {
		case builtinNumber, builtinName, builtinType:
			continue
		}
		props = append(props, p)
	}
	rows := make([]macro.Row, 0, len(cards))
	for _, c := range cards {
		r := macro.Row{
			"number":         ptr(strconv.Itoa(c.Number)),
			"name":           ptr(c.Name),
			"card_type_name": ptr(c.Type),
		}
		for _, p := range props {
			k := "cp_" + NormalizeKey(p.Name)
			if v, ok := c.Values[p.Name]; ok {
				r[k] = ptr(v)
			} else {
				r[k] = nil
			}
		}
		rows = append(rows, r)
	}
	return rows
}

// cardRows renders one row per card.
func (pq *Query) cardRows(cards []*Card, version macro.APIVersion) []macro.Row {
	pq.sortCards(cards)
	rows := make([]macro.Row, 0, len(cards))
	seen := map[string]bool{}
	for _, c := range cards {
		r := make(macro.Row, len(pq.q.columns))
		var sig strings.Builder
		for _, col := range pq.q.columns {
			p := pq.prop(col.name)
			var cell *string
			v, ok := value(c, p)
			if ok {
				cell = ptr(v)
			}
			writeSig(&sig, v, ok)
			r[columnKey(col, p.Name, version)] = cell
		}
		if pq.q.distinct {
			if seen[sig.String()] {
				continue
			}
			seen[sig.String()] = true
		}
		rows = append(rows, r)
	}
	return rows
}

func (pq *Query) sortCards(cards []*Card) {
	if len(pq.q.orderBy) == 0 {
		return
	}
	slices.SortStableFunc(cards, func(a, b *Card) int {
		for _, o := range pq.q.orderBy {
			p := pq.prop(o.name)
			va, okA := value(a, p)
			vb, okB := value(b, p)
			c := compareNullable(p, optional(va, okA), optional(vb, okB))
			if o.desc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	})
}

// writeSig appends one cell to a row signature. A null and an empty string
// get different signatures.
func writeSig(sig *strings.Builder, v string, ok bool) {
	if !ok {
		sig.WriteByte('-')
		return
	}
	sig.WriteString(strconv.Quote(v))
}

type group struct {
	key   []*string
	cards []*Card
}

// groupRows renders one row per group of cards sharing the GROUP BY values.
// Without GROUP BY, all cards form a single group.
func (pq *Query) groupRows(cards []*Card, version macro.APIVersion) []macro.Row {
	var groups []*group
	index := map[string]*group{}
	for _, c := range cards {
		key := make([]*string, len(pq.groupBy))
		var sig strings.Builder
		for i, p := range pq.groupBy {
			v, ok := value(c, p)
			if ok {
				key[i] = ptr(v)
			}
			writeSig(&sig, v, ok)
		}
		g := index[sig.String()]
		if g == nil {
			g = &group{key: key}
			index[sig.String()] = g
			groups = append(groups, g)
		}
		g.cards = append(g.cards, c)
	}
	if len(groups) == 0 && len(pq.groupBy) == 0 {
		groups = append(groups, &group{})
	}
	pq.sortGroups(groups)

	rows := make([]macro.Row, 0, len(groups))
	for _, g := range groups {
		r := make(macro.Row, len(pq.q.columns))
		for _, col := range pq.q.columns {
			if col.star {
				r[columnKey(col, "", version)] = ptr(strconv.Itoa(len(g.cards)))
				continue
			}
			p := pq.prop(col.name)
			key := columnKey(col, p.Name, version)
			if !col.isAggregate() {
				for i, gp := range pq.groupBy {
					if gp.Name == p.Name {
						r[key] = g.key[i]
					}
				}
				continue
			}
			r[key] = pq.aggregate(col.fn, p, g.cards)
		}
		rows = append(rows, r)
	}
	return rows
}

func (pq *Query) sortGroups(groups []*group) {
	slices.SortStableFunc(groups, func(a, b *group) int {
		if len(pq.q.orderBy) == 0 {
			for i, p := range pq.groupBy {
				if c := compareNullable(p, a.key[i], b.key[i]); c != 0 {
					return c
				}
			}
			return 0
		}
		for _, o := range pq.q.orderBy {
			p := pq.prop(o.name)
			for i, gp := range pq.groupBy {
				if gp.Name != p.Name {
					continue
				}
				c := compareNullable(p, a.key[i], b.key[i])
				if o.desc {
					c = -c
				}
				if c != 0 {
					return c
				}
			}
		}
		return 0
	})
}

// aggregate computes fn over p for cards. Null values are skipped; an empty
// input yields null except for COUNT.
func (pq *Query) aggregate(fn string, p Property, cards []*Card) *string {
	var values []string
	for _, c := range cards {
		if v, ok := value(c, p); ok {
			values = append(values, v)
		}
	}
	if fn == "COUNT" {
		return ptr(strconv.Itoa(len(values)))
	}
	if len(values) == 0 {
		return nil
	}
	switch fn {
	case "MIN", "MAX":
		best := values[0]
		for _, v := range values[1:] {
			c := compareTyped(p, v, best)
			if (fn == "MIN" && c < 0) || (fn == "MAX" && c > 0) {
				best = v
			}
		}
		return ptr(best)
	case "SUM", "AVG":
		sum, n := 0.0, 0
		for _, v := range values {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil || math.IsNaN(f) {
				continue
			}
			sum += f
			n++
		}
		if n == 0 {
			return nil
		}
		if fn == "AVG" {
			sum /= float64(n)
		}
		return ptr(pq.src.FormatNumber(pq.project, sum))
	}
	return nil
}

func ptr(s string) *string {
	return &s
}

func optional(s string, ok bool) *string {
	if !ok {
		return nil
	}
	return &s
}
