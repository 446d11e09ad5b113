package host

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/hashicorp/go-multierror"

	"github.com/maruel/macrokit/internal/macro"
)

func loadSample(t *testing.T) (*Store, string) {
	t.Helper()
	dir := t.TempDir()
	if err := WriteSample(dir); err != nil {
		t.Fatalf("WriteSample failed: %v", err)
	}
	s, err := LoadWorkspace(t.Context(), dir)
	if err != nil {
		t.Fatalf("LoadWorkspace failed: %v", err)
	}
	return s, dir
}

func TestLoadWorkspace(t *testing.T) {
	s, _ := loadSample(t)

	projects, err := s.Projects()
	if err != nil {
		t.Fatal(err)
	}
	if len(projects) != 1 || projects[0].Identifier != SampleProject {
		t.Fatalf("unexpected projects %+v", projects)
	}

	cts, err := s.CardTypes(SampleProject)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, ct := range cts {
		names = append(names, ct.Name)
	}
	if diff := cmp.Diff([]string{"Story", "Defect", "Release"}, names); diff != "" {
		t.Errorf("card types mismatch (-want +got):\n%s", diff)
	}

	pd, ok, err := s.PropertyDefinition(SampleProject, 4)
	if err != nil || !ok {
		t.Fatalf("expected Due Date, got %v %v", ok, err)
	}
	if pd.Name != "Due Date" || pd.Type != macro.PropertyTypeDate {
		t.Errorf("expected the Due Date date property, got %+v", pd)
	}

	team, err := s.Team(SampleProject)
	if err != nil {
		t.Fatal(err)
	}
	if len(team) != 2 || team[0].Login != "alice" || team[1].Login != "bob" {
		t.Errorf("unexpected team %+v", team)
	}
	if u, ok, _ := s.UserByLogin("carol"); !ok || u.Name != "Carol Danvers" {
		t.Errorf("expected carol to be a user, got %+v", u)
	}

	cards, err := s.Cards(SampleProject)
	if err != nil {
		t.Fatal(err)
	}
	if len(cards) != 5 || cards[4].Properties["Size"] != "0.5" {
		t.Errorf("unexpected cards %+v", cards)
	}
	if cards[0].Project != SampleProject {
		t.Errorf("expected records to carry their project, got %q", cards[0].Project)
	}

	if _, ok, _ := s.Project("nope"); ok {
		t.Error("unexpected project nope")
	}
}

func TestLoadWorkspaceValidation(t *testing.T) {
	dir := t.TempDir()
	if err := WriteSample(dir); err != nil {
		t.Fatal(err)
	}
	cards := []*CardRecord{
		{Number: 1, Name: "A", CardType: "Epic"},
		{Number: 2, Name: "B", CardType: "Story", Properties: map[string]string{"Status": "Closed", "Owner": "carol", "Colour": "x"}},
		{Number: 2, Name: "B again", CardType: "Story"},
		{Number: 3, Name: "C", CardType: "defect", Properties: map[string]string{"Notes": "n", "Release": "42"}},
	}
	if err := writeTable(filepath.Join(dir, SampleProject, CardsFile), cards); err != nil {
		t.Fatal(err)
	}
	_, err := LoadWorkspace(t.Context(), dir)
	var merr *multierror.Error
	if !errors.As(err, &merr) {
		t.Fatalf("expected a multierror, got %v", err)
	}
	var got []string
	for _, e := range merr.Errors {
		got = append(got, e.Error())
	}
	slices.Sort(got)
	want := []string{
		`project demo: card #1: card type "Epic" does not exist`,
		`project demo: card #2 is defined twice`,
		`project demo: card #2: property "Colour" does not exist`,
		`project demo: card #2: property "Owner": "carol" is not a team member`,
		`project demo: card #2: property "Status": "Closed" is not a managed value`,
		`project demo: card #3: card type "defect" must be spelled "Defect"`,
		`project demo: card #3: property "Notes" does not apply to Defect`,
		`project demo: card #3: property "Release" does not apply to Defect`,
		`project demo: card #3: property "Release": "42" is not a card number`,
	}
	slices.Sort(want)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("errors mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadWorkspaceErrors(t *testing.T) {
	t.Run("missing dir", func(t *testing.T) {
		if _, err := LoadWorkspace(t.Context(), filepath.Join(t.TempDir(), "nope")); err == nil {
			t.Fatal("expected an error")
		}
	})
	t.Run("identifier mismatch", func(t *testing.T) {
		dir := t.TempDir()
		if err := WriteSample(dir); err != nil {
			t.Fatal(err)
		}
		if err := os.Rename(filepath.Join(dir, SampleProject), filepath.Join(dir, "other")); err != nil {
			t.Fatal(err)
		}
		_, err := LoadWorkspace(t.Context(), dir)
		if err == nil || !strings.Contains(err.Error(), "does not match the directory name") {
			t.Fatalf("unexpected error %v", err)
		}
	})
	t.Run("dangling references", func(t *testing.T) {
		dir := t.TempDir()
		if err := WriteSample(dir); err != nil {
			t.Fatal(err)
		}
		pdir := filepath.Join(dir, SampleProject)
		if err := writeTable(filepath.Join(pdir, TeamFile), []*MemberRecord{{UserID: 1}, {UserID: 2}, {UserID: 9}}); err != nil {
			t.Fatal(err)
		}
		if err := writeTable(filepath.Join(pdir, ValuesFile), []*EnumerationValueRecord{
			{ID: 1, PropertyDefinitionID: 1, Value: "Open"},
			{ID: 2, PropertyDefinitionID: 1, Value: "In Progress"},
			{ID: 3, PropertyDefinitionID: 1, Value: "Done"},
			{ID: 4, PropertyDefinitionID: 2, Value: "3"},
			{ID: 5, PropertyDefinitionID: 2, Value: "5"},
			{ID: 6, PropertyDefinitionID: 6, Value: "free"},
			{ID: 7, PropertyDefinitionID: 2, Value: "many"},
		}); err != nil {
			t.Fatal(err)
		}
		_, err := LoadWorkspace(t.Context(), dir)
		if err == nil {
			t.Fatal("expected an error")
		}
		for _, want := range []string{
			"team member 9 is not a user",
			`value "free": property "Notes" is Any text and has no managed values`,
			`value "many" of "Estimate" is not a number`,
		} {
			if !strings.Contains(err.Error(), want) {
				t.Errorf("expected %q in %v", want, err)
			}
		}
	})
}

func TestLoadWorkspaceCardTypes(t *testing.T) {
	tests := []struct {
		name      string
		cardTypes []*CardTypeRecord
		want      string
	}{
		{
			"shared position",
			[]*CardTypeRecord{
				{ID: 1, Name: "Story", Position: 2},
				{ID: 2, Name: "Defect", Position: 2},
				{ID: 3, Name: "Release", Position: 3},
			},
			`card types "Story" and "Defect" are both at position 2`,
		},
		{
			"zero position",
			[]*CardTypeRecord{
				{ID: 1, Name: "Story", Position: 0},
				{ID: 2, Name: "Defect", Position: 2},
				{ID: 3, Name: "Release", Position: 3},
			},
			`card type "Story": position must be positive`,
		},
		{
			"negative position",
			[]*CardTypeRecord{
				{ID: 1, Name: "Story", Position: 1},
				{ID: 2, Name: "Defect", Position: -3},
				{ID: 3, Name: "Release", Position: 3},
			},
			`card type "Defect": position must be positive`,
		},
		{
			"no card type",
			nil,
			"a project needs at least one card type",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if err := WriteSample(dir); err != nil {
				t.Fatal(err)
			}
			pdir := filepath.Join(dir, SampleProject)
			path := filepath.Join(pdir, CardTypesFile)
			if tt.cardTypes == nil {
				// Without card types, nothing else in the project can refer to one.
				for _, f := range []string{CardTypesFile, CardTypePropertyDefsFile, CardsFile} {
					if err := os.Remove(filepath.Join(pdir, f)); err != nil {
						t.Fatal(err)
					}
				}
			} else if err := os.WriteFile(path, encodeLines(t, tt.cardTypes), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := LoadWorkspace(t.Context(), dir)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected %q, got %v", tt.want, err)
			}
		})
	}
}

// encodeLines writes rows as JSONL without going through the row validation
// of jsonldb.Table.Replace.
func encodeLines[T any](t *testing.T, rows []T) []byte {
	t.Helper()
	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	for _, r := range rows {
		if err := enc.Encode(r); err != nil {
			t.Fatal(err)
		}
	}
	return b.Bytes()
}
