// Defines the built-in macros.

package render

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/maruel/macrokit/internal/macro"
)

// Macro produces the text of a page fragment from a project.
type Macro interface {
	// Key identifies the macro and its parameters within a project.
	Key() string
	Render(ctx context.Context, p *macro.Project) (string, error)
	// CanBeCached reports whether the output may be reused across renders.
	CanBeCached(ctx context.Context, p *macro.Project) (bool, error)
}

// ValueMacro renders the single cell returned by an MQL query, such as
// "SELECT SUM(size) WHERE type = story".
type ValueMacro struct {
	Query   string
	Version macro.APIVersion
}

func (m *ValueMacro) Key() string {
	return "value:" + string(m.Version) + ":" + m.Query
}

// Render returns the empty string when the query matches nothing or the
// value is null.
func (m *ValueMacro) Render(ctx context.Context, p *macro.Project) (string, error) {
	rows, err := p.ExecuteMQL(ctx, m.Query, m.Version)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", nil
	}
	if len(rows[0]) != 1 {
		return "", fmt.Errorf("value macro needs exactly one column, got %d", len(rows[0]))
	}
	for _, v := range rows[0] {
		if v != nil {
			return *v, nil
		}
	}
	return "", nil
}

func (m *ValueMacro) CanBeCached(ctx context.Context, p *macro.Project) (bool, error) {
	return p.CanBeCached(ctx, m.Query)
}

// TableMacro renders the rows of an MQL query as a markdown table.
type TableMacro struct {
	Query   string
	Version macro.APIVersion
	// Columns orders the result keys. When empty, keys are sorted.
	Columns []string
}

func (m *TableMacro) Key() string {
	return "table:" + string(m.Version) + ":" + strings.Join(m.Columns, ",") + ":" + m.Query
}

func (m *TableMacro) Render(ctx context.Context, p *macro.Project) (string, error) {
	rows, err := p.ExecuteMQL(ctx, m.Query, m.Version)
	if err != nil {
		return "", err
	}
	cols := m.Columns
	if len(cols) == 0 {
		seen := map[string]struct{}{}
		for _, r := range rows {
			for k := range r {
				if _, ok := seen[k]; !ok {
					seen[k] = struct{}{}
					cols = append(cols, k)
				}
			}
		}
		slices.Sort(cols)
	}
	if len(cols) == 0 {
		return "", nil
	}
	var b strings.Builder
	writeLine(&b, cols)
	sep := make([]string, len(cols))
	for i := range sep {
		sep[i] = "---"
	}
	writeLine(&b, sep)
	cells := make([]string, len(cols))
	for _, r := range rows {
		for i, c := range cols {
			v, _ := r.Get(c)
			cells[i] = v
		}
		writeLine(&b, cells)
	}
	return b.String(), nil
}

func (m *TableMacro) CanBeCached(ctx context.Context, p *macro.Project) (bool, error) {
	return p.CanBeCached(ctx, m.Query)
}

var cellEscaper = strings.NewReplacer("|", `\|`, "\n", " ")

func writeLine(b *strings.Builder, cells []string) {
	b.WriteString("|")
	for _, c := range cells {
		b.WriteString(" ")
		b.WriteString(cellEscaper.Replace(c))
		b.WriteString(" |")
	}
	b.WriteString("\n")
}

// ProjectVariableMacro renders the display value of a project variable.
type ProjectVariableMacro struct {
	Name string
}

func (m *ProjectVariableMacro) Key() string {
	return "variable:" + m.Name
}

func (m *ProjectVariableMacro) Render(ctx context.Context, p *macro.Project) (string, error) {
	return p.ValueOfProjectVariable(m.Name)
}

// CanBeCached is always true; project variables only change with the
// workspace.
func (m *ProjectVariableMacro) CanBeCached(ctx context.Context, p *macro.Project) (bool, error) {
	return true, nil
}
