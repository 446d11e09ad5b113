package macro

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestCardTypePropertyDefinitions(t *testing.T) {
	g := newStoryDefectGraph(t)
	got, err := g.story.PropertyDefinitions()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"Status"}, names(got)); diff != "" {
		t.Fatalf("property definitions (-want +got):\n%s", diff)
	}
	if got[0] != g.status {
		t.Fatal("expected the shared Status instance")
	}
}

// Card type → property definitions keeps loader order while property
// definition → card types sorts by position.
func TestCardTypePropertyDefinitionsKeepLoaderOrder(t *testing.T) {
	ct, w := NewCardType(cardTypeRec{name: "Story", position: 1})
	var joins []*CardTypePropertyDefinition
	for i, name := range []string{"Zeta", "Alpha", "Mid"} {
		pd, _ := NewPropertyDefinition(propDefRec{name: name, typ: PropertyTypeAnyText})
		j, jw := NewCardTypePropertyDefinition(joinRec{position: 3 - i})
		jw.PropertyDefinition(func() (*PropertyDefinition, error) { return pd, nil })
		jw.CardType(func() (*CardType, error) { return ct, nil })
		joins = append(joins, j)
	}
	w.PropertyDefinitions(func() ([]*CardTypePropertyDefinition, error) { return joins, nil })
	got, err := ct.PropertyDefinitions()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"Zeta", "Alpha", "Mid"}, names(got)); diff != "" {
		t.Fatalf("expected loader order (-want +got):\n%s", diff)
	}
	back, err := joins[0].CardType()
	if err != nil {
		t.Fatal(err)
	}
	if back != ct {
		t.Fatal("expected the association to resolve back to the card type")
	}
	if joins[0].Position() != 3 {
		t.Fatalf("expected position 3, got %d", joins[0].Position())
	}
}

func TestCardTypeColor(t *testing.T) {
	for _, tc := range []struct{ in, want string }{
		{"#00FF00", "00FF00"},
		{"ff0000", "ff0000"},
		{"##abc", "abc"},
		{"", ""},
		{"not-a-color", "not-a-color"},
	} {
		ct, _ := NewCardType(cardTypeRec{name: "X", color: tc.in, position: 1})
		got := ct.Color()
		if got != tc.want {
			t.Errorf("Color(%q): expected %q, got %q", tc.in, tc.want, got)
		}
		if strings.Contains(got, "#") {
			t.Errorf("Color(%q) contains '#': %q", tc.in, got)
		}
	}
}

func TestCardTypeString(t *testing.T) {
	g := newStoryDefectGraph(t)
	want := "CardType[name=Story,color=00FF00,position=1]"
	if got := g.story.String(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestUser(t *testing.T) {
	u := NewUser(userRec{login: "bob", name: "Bob", email: "bob@example.com", vcs: "bobby"})
	got := []string{u.Login(), u.Name(), u.Email(), u.VersionControlUserName()}
	if diff := cmp.Diff([]string{"bob", "Bob", "bob@example.com", "bobby"}, got); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}
