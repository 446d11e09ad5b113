package mql

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/maruel/macrokit/internal/macro"
)

func TestFilter(t *testing.T) {
	tests := []struct {
		query string
		want  []string
	}{
		{"type = story", []string{"3", "1"}},
		{"TYPE = 'STORY'", []string{"3", "1"}},
		{"status NOT IN (Closed)", []string{"4", "3", "1"}},
		{"size IN (3, 5)", []string{"2", "1"}},
		{"size != 3", []string{"4", "3", "2"}},
		{"size < 5", []string{"1"}},
		{"size >= 5", []string{"3", "2"}},
		{"size > 10", []string{}},
		{"number >= 3", []string{"4", "3"}},
		{"due IS NULL", []string{"4", "2"}},
		{"due IS NOT NULL", []string{"3", "1"}},
		{"due = NULL", []string{"4", "2"}},
		{"due = TODAY", []string{"1"}},
		{"due > '01 Mar 2024'", []string{"3", "1"}},
		{"due <= 'Mar 05 2024'", []string{"1"}},
		{"parent = '#1'", []string{"2"}},
		{"status = (Current Status)", []string{"4", "3", "1"}},
		{"due = (Empty)", []string{"4", "2"}},
		{"type = defect AND NOT owner IS NULL", []string{"2"}},
		{"type = defect OR size = 8", []string{"4", "3", "2"}},
		{"'story points' > 2", []string{"3"}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := numbers(mustRun(t, newMemSource(), tt.query, macro.V2))
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("cards mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestContextualOperands(t *testing.T) {
	t.Run("current user", func(t *testing.T) {
		src := newMemSource()
		src.user = "alice"
		if got := numbers(mustRun(t, src, "owner = CURRENT USER", macro.V2)); !cmp.Equal(got, []string{"1"}) {
			t.Fatalf("expected [1], got %v", got)
		}
	})
	t.Run("no current user", func(t *testing.T) {
		pq := mustParse(t, newMemSource(), "owner = CURRENT USER", nil)
		_, err := pq.ValuesFor(t.Context(), macro.V2)
		if !errors.Is(err, errNoCurrentUser) {
			t.Fatalf("expected errNoCurrentUser, got %v", err)
		}
	})
	t.Run("this card", func(t *testing.T) {
		src := newMemSource()
		src.card = 1
		if got := numbers(mustRun(t, src, "parent = THIS CARD", macro.V2)); !cmp.Equal(got, []string{"2"}) {
			t.Fatalf("expected [2], got %v", got)
		}
	})
	t.Run("no card", func(t *testing.T) {
		pq := mustParse(t, newMemSource(), "parent = THIS CARD", nil)
		_, err := pq.ValuesFor(t.Context(), macro.V2)
		if !errors.Is(err, errNoCurrentCard) {
			t.Fatalf("expected errNoCurrentCard, got %v", err)
		}
	})
}

func TestSelect(t *testing.T) {
	tests := []struct {
		query string
		want  []macro.Row
	}{
		{
			"SELECT number, name WHERE type = story",
			[]macro.Row{
				{"number": s("3"), "name": s("Search")},
				{"number": s("1"), "name": s("Login page")},
			},
		},
		{
			"SELECT name, 'Story Points' WHERE type = story ORDER BY 'story points'",
			[]macro.Row{
				{"name": s("Login page"), "story_points": s("2")},
				{"name": s("Search"), "story_points": s("5")},
			},
		},
		{
			"SELECT name, owner WHERE type = defect",
			[]macro.Row{
				{"name": s("Typo"), "owner": nil},
				{"name": s("Crash on save"), "owner": s("bob")},
			},
		},
		{
			"SELECT DISTINCT status",
			[]macro.Row{
				{"status": s("Open")},
				{"status": s("Closed")},
			},
		},
		{
			"SELECT name, size ORDER BY size",
			[]macro.Row{
				{"name": s("Login page"), "size": s("3")},
				{"name": s("Crash on save"), "size": s("5")},
				{"name": s("Search"), "size": s("8")},
				{"name": s("Typo"), "size": nil},
			},
		},
		{
			"SELECT name FROM PROJECT beta",
			[]macro.Row{
				{"name": s("Beta card")},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := mustRun(t, newMemSource(), tt.query, macro.V2)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("rows mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAggregates(t *testing.T) {
	tests := []struct {
		query string
		v1    []macro.Row
		v2    []macro.Row
	}{
		{
			"SELECT COUNT(*)",
			[]macro.Row{{"Count(*)": s("4")}},
			[]macro.Row{{"count": s("4")}},
		},
		{
			"SELECT SUM(size), COUNT(due)",
			[]macro.Row{{"Sum(Size)": s("16"), "Count(Due)": s("2")}},
			[]macro.Row{{"sum_size": s("16"), "count_due": s("2")}},
		},
		{
			"SELECT AVG(size) WHERE type = story",
			[]macro.Row{{"Avg(Size)": s("5.5")}},
			[]macro.Row{{"avg_size": s("5.5")}},
		},
		{
			"SELECT SUM('Story Points')",
			[]macro.Row{{"Sum(Story Points)": s("7")}},
			[]macro.Row{{"sum_story_points": s("7")}},
		},
		{
			"SELECT MIN(due), MAX(size), MIN(size)",
			[]macro.Row{{"Min(Due)": s("2024-03-05"), "Max(Size)": s("8"), "Min(Size)": s("3")}},
			[]macro.Row{{"min_due": s("2024-03-05"), "max_size": s("8"), "min_size": s("3")}},
		},
		{
			"SELECT COUNT(*), SUM(size) WHERE status = nothing",
			[]macro.Row{{"Count(*)": s("0"), "Sum(Size)": nil}},
			[]macro.Row{{"count": s("0"), "sum_size": nil}},
		},
		{
			"SELECT status, COUNT(*) GROUP BY status",
			[]macro.Row{
				{"status": s("Closed"), "Count(*)": s("1")},
				{"status": s("Open"), "Count(*)": s("3")},
			},
			[]macro.Row{
				{"status": s("Closed"), "count": s("1")},
				{"status": s("Open"), "count": s("3")},
			},
		},
		{
			"SELECT status, COUNT(*) GROUP BY status ORDER BY status DESC",
			[]macro.Row{
				{"status": s("Open"), "Count(*)": s("3")},
				{"status": s("Closed"), "Count(*)": s("1")},
			},
			[]macro.Row{
				{"status": s("Open"), "count": s("3")},
				{"status": s("Closed"), "count": s("1")},
			},
		},
		{
			"SELECT owner, COUNT(*) GROUP BY owner",
			[]macro.Row{
				{"owner": s("alice"), "Count(*)": s("1")},
				{"owner": s("bob"), "Count(*)": s("1")},
				{"owner": nil, "Count(*)": s("2")},
			},
			[]macro.Row{
				{"owner": s("alice"), "count": s("1")},
				{"owner": s("bob"), "count": s("1")},
				{"owner": nil, "count": s("2")},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			src := newMemSource()
			if diff := cmp.Diff(tt.v1, mustRun(t, src, tt.query, macro.V1)); diff != "" {
				t.Errorf("v1 rows mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.v2, mustRun(t, src, tt.query, macro.V2)); diff != "" {
				t.Errorf("v2 rows mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestImplicitGroupBy(t *testing.T) {
	var got alerts
	pq := mustParse(t, newMemSource(), "SELECT status, COUNT(*)", &got)
	rows, err := pq.ValuesFor(t.Context(), macro.V2)
	if err != nil {
		t.Fatal(err)
	}
	want := []macro.Row{
		{"status": s("Closed"), "count": s("1")},
		{"status": s("Open"), "count": s("3")},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
	if len(got) != 1 {
		t.Errorf("expected one alert, got %v", got)
	}
}

func TestBareConditionRows(t *testing.T) {
	rows := mustRun(t, newMemSource(), "type = defect", macro.V2)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	want := macro.Row{
		"number":          s("4"),
		"name":            s("Typo"),
		"card_type_name":  s("Defect"),
		"cp_status":       s("Open"),
		"cp_size":         nil,
		"cp_story_points": nil,
		"cp_owner":        nil,
		"cp_due":          nil,
		"cp_parent":       nil,
	}
	if diff := cmp.Diff(want, rows[0]); diff != "" {
		t.Errorf("row mismatch (-want +got):\n%s", diff)
	}
	if v, _ := rows[1].Get("cp_parent"); v != "1" {
		t.Errorf("expected parent 1, got %q", v)
	}
}

func TestValuesForIsRepeatable(t *testing.T) {
	pq := mustParse(t, newMemSource(), "SELECT status, COUNT(*) GROUP BY status", nil)
	v1, err := pq.ValuesFor(t.Context(), macro.V1)
	if err != nil {
		t.Fatal(err)
	}
	v2, err := pq.ValuesFor(t.Context(), macro.V2)
	if err != nil {
		t.Fatal(err)
	}
	if len(v1) != len(v2) {
		t.Fatalf("expected the same number of rows, got %d and %d", len(v1), len(v2))
	}
}

func TestNullAndEmptyAreDistinct(t *testing.T) {
	src := newMemSource()
	src.cards["alpha"] = append(src.cards["alpha"],
		Card{Number: 5, Name: "Blank", Type: "Story", Values: map[string]string{"Status": ""}},
		Card{Number: 6, Name: "Unset", Type: "Story"},
	)
	tests := []struct {
		query string
		want  []macro.Row
	}{
		{
			"SELECT status, COUNT(*) WHERE number >= 5 GROUP BY status",
			[]macro.Row{
				{"status": s(""), "count": s("1")},
				{"status": nil, "count": s("1")},
			},
		},
		{
			"SELECT DISTINCT status WHERE number >= 5",
			[]macro.Row{
				{"status": nil},
				{"status": s("")},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := mustRun(t, src, tt.query, macro.V2)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("rows mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
