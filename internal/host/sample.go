// Writes the demo workspace used by -init and the tests.

package host

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/maruel/macrokit/internal/jsonldb"
	"github.com/maruel/macrokit/internal/macro"
)

// SampleProject is the identifier of the project written by WriteSample.
const SampleProject = "demo"

func samplePrecision() *int {
	p := 2
	return &p
}

// WriteSample writes a small workspace with one project under dir,
// replacing files with the same names.
func WriteSample(dir string) error {
	users := []*UserRecord{
		{ID: 1, Login: "alice", Name: "Alice Liddell", Email: "alice@example.com", VersionControlUserName: "aliddell"},
		{ID: 2, Login: "bob", Name: "Bob Builder", Email: "bob@example.com"},
		{ID: 3, Login: "carol", Name: "Carol Danvers"},
	}
	if err := writeTable(filepath.Join(dir, UsersFile), users); err != nil {
		return err
	}

	cfg := &ProjectConfig{
		Identifier: SampleProject,
		Name:       "Demo Project",
		Precision:  samplePrecision(),
		DateFormat: defaultDateFormat,
		TimeZone:   "UTC",
		Variables: []VariableConfig{
			{Name: "Current Release", Type: macro.PropertyTypeCard.String(), Value: "1"},
			{Name: "Default Owner", Type: macro.PropertyTypeUser.String(), Value: "alice"},
			{Name: "Sprint End", Type: macro.PropertyTypeDate.String(), Value: "2024-03-15"},
			{Name: "Focus Status", Type: macro.PropertyTypeManagedText.String(), Value: "Open"},
			{Name: "Unassigned"},
		},
	}
	pdir := filepath.Join(dir, SampleProject)
	if err := os.MkdirAll(pdir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", pdir, err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal project config: %w", err)
	}
	if err := os.WriteFile(filepath.Join(pdir, ProjectConfigFile), data, 0o644); err != nil {
		return fmt.Errorf("failed to write project config: %w", err)
	}

	cardTypes := []*CardTypeRecord{
		{ID: 1, Name: "Story", Color: "#3366FF", Position: 1},
		{ID: 2, Name: "Defect", Color: "#ff0000", Position: 2},
		{ID: 3, Name: "Release", Position: 3},
	}
	propDefs := []*PropertyDefinitionRecord{
		{ID: 1, Name: "Status", Description: "Where the card is in the workflow", Type: macro.PropertyTypeManagedText},
		{ID: 2, Name: "Estimate", Type: macro.PropertyTypeManagedNumber},
		{ID: 3, Name: "Owner", Type: macro.PropertyTypeUser},
		{ID: 4, Name: "Due Date", Type: macro.PropertyTypeDate},
		{ID: 5, Name: "Release", Type: macro.PropertyTypeCard},
		{ID: 6, Name: "Notes", Type: macro.PropertyTypeAnyText},
		{ID: 7, Name: "Size", Type: macro.PropertyTypeAnyNumber},
	}
	joins := []*CardTypePropertyDefinitionRecord{
		{CardTypeID: 1, PropertyDefinitionID: 1, Position: 1},
		{CardTypeID: 1, PropertyDefinitionID: 2, Position: 2},
		{CardTypeID: 1, PropertyDefinitionID: 3, Position: 3},
		{CardTypeID: 1, PropertyDefinitionID: 4, Position: 4},
		{CardTypeID: 1, PropertyDefinitionID: 5, Position: 5},
		{CardTypeID: 1, PropertyDefinitionID: 6, Position: 6},
		{CardTypeID: 2, PropertyDefinitionID: 3, Position: 1},
		{CardTypeID: 2, PropertyDefinitionID: 1, Position: 2},
		{CardTypeID: 2, PropertyDefinitionID: 7, Position: 3},
		{CardTypeID: 3, PropertyDefinitionID: 4, Position: 1},
	}
	values := []*EnumerationValueRecord{
		{ID: 1, PropertyDefinitionID: 1, Value: "Open", Color: "#33cc66", Position: 1},
		{ID: 2, PropertyDefinitionID: 1, Value: "In Progress", Color: "#ffcc00", Position: 2},
		{ID: 3, PropertyDefinitionID: 1, Value: "Done", Color: "#999999", Position: 3},
		{ID: 4, PropertyDefinitionID: 2, Value: "1", Position: 1},
		{ID: 5, PropertyDefinitionID: 2, Value: "2", Position: 2},
		{ID: 6, PropertyDefinitionID: 2, Value: "3", Position: 3},
		{ID: 7, PropertyDefinitionID: 2, Value: "5", Position: 4},
		{ID: 8, PropertyDefinitionID: 2, Value: "8", Position: 5},
	}
	members := []*MemberRecord{{UserID: 1}, {UserID: 2}}
	cards := []*CardRecord{
		{Number: 1, Name: "Release 1", CardType: "Release", Properties: map[string]string{"Due Date": "2024-06-30"}},
		{Number: 2, Name: "Login page", CardType: "Story", Properties: map[string]string{"Status": "Open", "Estimate": "3", "Owner": "alice", "Release": "1", "Due Date": "2024-03-05"}},
		{Number: 3, Name: "Search", CardType: "Story", Properties: map[string]string{"Status": "In Progress", "Estimate": "5", "Owner": "bob", "Release": "1", "Notes": "Needs design"}},
		{Number: 4, Name: "Crash on save", CardType: "Defect", Properties: map[string]string{"Status": "Open", "Owner": "bob", "Size": "2"}},
		{Number: 5, Name: "Typo in footer", CardType: "Defect", Properties: map[string]string{"Status": "Done", "Size": "0.5"}},
	}
	if err := writeTable(filepath.Join(pdir, CardTypesFile), cardTypes); err != nil {
		return err
	}
	if err := writeTable(filepath.Join(pdir, PropertyDefinitionsFile), propDefs); err != nil {
		return err
	}
	if err := writeTable(filepath.Join(pdir, CardTypePropertyDefsFile), joins); err != nil {
		return err
	}
	if err := writeTable(filepath.Join(pdir, ValuesFile), values); err != nil {
		return err
	}
	if err := writeTable(filepath.Join(pdir, TeamFile), members); err != nil {
		return err
	}
	return writeTable(filepath.Join(pdir, CardsFile), cards)
}

func writeTable[T jsonldb.Row[T]](path string, rows []T) error {
	t, err := jsonldb.NewTable[T](path)
	if err != nil {
		return err
	}
	if err := t.Replace(rows); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
