package mql

import (
	"context"
	"time"

	"github.com/maruel/macrokit/internal/macro"
)

// Card is one card as seen by the engine.
type Card struct {
	Number int
	Name   string
	// Type is the card type name.
	Type string
	// Values maps property names to stored values. Dates are ISO 8601
	// (2006-01-02), user properties hold the login, card properties the card
	// number. A missing key is a null.
	Values map[string]string
}

// Property describes a property definition queries may reference.
type Property struct {
	Name string
	Type macro.PropertyType
}

// Source provides the data the engine queries. The host implements it.
type Source interface {
	// Properties returns the property definitions of project. It fails for
	// an unknown project.
	Properties(ctx context.Context, project string) ([]Property, error)
	// Cards returns every card of project.
	Cards(ctx context.Context, project string) ([]Card, error)
	// ProjectVariable returns the stored value of a project variable.
	ProjectVariable(ctx context.Context, project, name string) (string, bool, error)
	// FormatNumber renders a computed number with the project precision.
	FormatNumber(project string, n float64) string
	// CurrentUser returns the login of the user rendering the macro.
	CurrentUser(ctx context.Context) (string, bool)
	// CurrentCard returns the number of the card being rendered.
	CurrentCard(ctx context.Context) (int, bool)
	// Now returns the current time in the project time zone.
	Now(project string) time.Time
}
