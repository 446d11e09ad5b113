package mql

import (
	"context"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/maruel/macrokit/internal/macro"
)

// memSource serves two small projects from memory.
type memSource struct {
	props     map[string][]Property
	cards     map[string][]Card
	variables map[string]map[string]string
	user      string
	card      int
	now       time.Time
}

func newMemSource() *memSource {
	return &memSource{
		props: map[string][]Property{
			"alpha": {
				{Name: "Status", Type: macro.PropertyTypeManagedText},
				{Name: "Size", Type: macro.PropertyTypeAnyNumber},
				{Name: "Story Points", Type: macro.PropertyTypeManagedNumber},
				{Name: "Owner", Type: macro.PropertyTypeUser},
				{Name: "Due", Type: macro.PropertyTypeDate},
				{Name: "Parent", Type: macro.PropertyTypeCard},
			},
			"beta": {
				{Name: "Status", Type: macro.PropertyTypeManagedText},
			},
		},
		cards: map[string][]Card{
			"alpha": {
				{Number: 1, Name: "Login page", Type: "Story", Values: map[string]string{"Status": "Open", "Size": "3", "Story Points": "2", "Owner": "alice", "Due": "2024-03-05"}},
				{Number: 2, Name: "Crash on save", Type: "Defect", Values: map[string]string{"Status": "Closed", "Size": "5", "Owner": "bob", "Parent": "1"}},
				{Number: 3, Name: "Search", Type: "Story", Values: map[string]string{"Status": "Open", "Size": "8", "Story Points": "5", "Due": "2024-04-01"}},
				{Number: 4, Name: "Typo", Type: "Defect", Values: map[string]string{"Status": "Open"}},
			},
			"beta": {
				{Number: 1, Name: "Beta card", Type: "Story", Values: map[string]string{"Status": "Open"}},
			},
		},
		variables: map[string]map[string]string{
			"alpha": {"Current Status": "Open", "Empty": ""},
		},
		now: time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC),
	}
}

func (s *memSource) Properties(ctx context.Context, project string) ([]Property, error) {
	p, ok := s.props[project]
	if !ok {
		return nil, fmt.Errorf("project %q not found", project)
	}
	return p, nil
}

func (s *memSource) Cards(ctx context.Context, project string) ([]Card, error) {
	return s.cards[project], nil
}

func (s *memSource) ProjectVariable(ctx context.Context, project, name string) (string, bool, error) {
	v, ok := s.variables[project][name]
	return v, ok, nil
}

func (s *memSource) FormatNumber(project string, n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

func (s *memSource) CurrentUser(ctx context.Context) (string, bool) {
	return s.user, s.user != ""
}

func (s *memSource) CurrentCard(ctx context.Context) (int, bool) {
	return s.card, s.card != 0
}

func (s *memSource) Now(project string) time.Time {
	return s.now
}

type scope string

func (s scope) Project() string { return string(s) }
func (s scope) Close() error    { return nil }

type alerts []string

func (a *alerts) Alert(message string) {
	*a = append(*a, message)
}

func mustParse(t *testing.T, src Source, q string, a *alerts) *Query {
	t.Helper()
	opts := macro.QueryOptions{}
	if a != nil {
		opts.AlertReceiver = a
	}
	pq, err := New(src).Parse(t.Context(), scope("alpha"), q, opts)
	if err != nil {
		t.Fatalf("Parse(%q) failed: %v", q, err)
	}
	return pq.(*Query)
}

func mustRun(t *testing.T, src Source, q string, version macro.APIVersion) []macro.Row {
	t.Helper()
	rows, err := mustParse(t, src, q, nil).ValuesFor(t.Context(), version)
	if err != nil {
		t.Fatalf("ValuesFor(%q) failed: %v", q, err)
	}
	return rows
}

// numbers returns the "number" column of rows.
func numbers(rows []macro.Row) []string {
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		v, _ := r.Get("number")
		out = append(out, v)
	}
	return out
}

func s(v string) *string {
	return &v
}
