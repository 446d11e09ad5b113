package mql

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/maruel/macrokit/internal/macro"
)

func TestEngineParseErrors(t *testing.T) {
	tests := []struct {
		query string
		pos   int
		msg   string
	}{
		{"SELECT color", 7, `property "color" does not exist`},
		{"status = (Nope)", 9, `project variable "Nope" does not exist`},
		{"SELECT name FROM PROJECT gamma", 25, `unknown project "gamma"`},
		{"SELECT SUM(status)", 11, `SUM needs a numeric property, "Status" is Managed text list`},
		{"SELECT status, type, COUNT(*) GROUP BY status", 15, `"Type" must appear in GROUP BY`},
		{"due < (Empty)", 6, "(Empty) has no value; it can only be compared with = or !="},
		{"SELECT name ORDER BY colour", 21, `property "colour" does not exist`},
	}
	e := New(newMemSource())
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			_, err := e.Parse(t.Context(), scope("alpha"), tt.query, macro.QueryOptions{})
			var se *SyntaxError
			if !errors.As(err, &se) {
				t.Fatalf("expected a SyntaxError, got %v", err)
			}
			if se.Pos != tt.pos || se.Msg != tt.msg {
				t.Errorf("expected %q at %d, got %q at %d", tt.msg, tt.pos, se.Msg, se.Pos)
			}
			if !errors.Is(err, macro.ErrQuerySyntax) {
				t.Error("expected the error to match ErrQuerySyntax")
			}
		})
	}
}

func TestEngineUnknownActiveProject(t *testing.T) {
	_, err := New(newMemSource()).Parse(t.Context(), scope("gamma"), "status = open", macro.QueryOptions{})
	if err == nil {
		t.Fatal("expected an error")
	}
	if errors.Is(err, macro.ErrQuerySyntax) {
		t.Fatalf("expected a source error, got %v", err)
	}
}

func TestEngineAlerts(t *testing.T) {
	tests := []struct {
		query string
		want  []string
	}{
		{"status = open", nil},
		{"size = 3", nil},
		{"due = 2024-03-05", nil},
		{"size = big", []string{`"big" is not a number; Size is compared as text`}},
		{"due = soon", []string{`"soon" is not a date; Due is compared as text`}},
		{"status = TODAY", []string{"TODAY used with Status which is not a date property"}},
		{"status = CURRENT USER", []string{"CURRENT USER used with Status which is not a user property"}},
		{"SELECT status, COUNT(*)", []string{"No GROUP BY given; grouping by Status"}},
		{"SELECT name ORDER BY size", []string{"ORDER BY Size: the column is not selected"}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			var got alerts
			mustParse(t, newMemSource(), tt.query, &got)
			if diff := cmp.Diff(tt.want, []string(got)); diff != "" {
				t.Errorf("alerts mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAlertsWithoutReceiver(t *testing.T) {
	// Must not panic.
	mustParse(t, newMemSource(), "size = big", nil)
}

func TestCanBeCached(t *testing.T) {
	tests := []struct {
		query string
		want  bool
	}{
		{"status = open", true},
		{"SELECT COUNT(*)", true},
		{"status = (Current Status)", true},
		{"SELECT name FROM PROJECT alpha", true},
		{"due = TODAY", false},
		{"owner = CURRENT USER", false},
		{"parent = THIS CARD", false},
		{"status = open OR NOT (owner IN (bob, CURRENT USER))", false},
		{"SELECT name FROM PROJECT beta", false},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			if got := mustParse(t, newMemSource(), tt.query, nil).CanBeCached(); got != tt.want {
				t.Fatalf("expected %t, got %t", tt.want, got)
			}
		})
	}
}
