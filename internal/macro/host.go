// Defines the capabilities the host provides to the facades.

package macro

import (
	"context"
	"fmt"
	"time"
)

// ProjectSource is the host's project record.
type ProjectSource interface {
	Identifier() string
	Name() string
	// FormatNumber renders n with the precision configured for the project.
	FormatNumber(n float64) string
	// FormatDate renders t with the date format configured for the project.
	FormatDate(t time.Time) string
	// EnterActiveProject establishes the project as the active one for query
	// parsing and execution. The caller must Close the returned Scope.
	EnterActiveProject(ctx context.Context) (Scope, error)
}

// Scope is an active project context held for the duration of a query.
type Scope interface {
	// Project returns the identifier of the active project.
	Project() string
	Close() error
}

// CardTypeSource is the host's card type record.
type CardTypeSource interface {
	Name() string
	Color() string
	Position() int
}

// CardTypePropertyDefinitionSource is the host's record associating a card
// type with a property definition.
type CardTypePropertyDefinitionSource interface {
	Position() int
}

// PropertyDefinitionSource is the host's property definition record.
type PropertyDefinitionSource interface {
	Name() string
	Description() string
	Type() PropertyType
}

// PropertyValueSource is the host's record for one configured value.
type PropertyValueSource interface {
	DisplayValue() string
	DBIdentifier() string
	URLIdentifier() string
	Color() string
}

// ProjectVariableSource is the host's project variable record. The display
// value is already resolved.
type ProjectVariableSource interface {
	Name() string
	DisplayValue() string
}

// UserSource is the host's user record.
type UserSource interface {
	Login() string
	Name() string
	Email() string
	VersionControlUserName() string
}

// AlertReceiver gets non-fatal warnings raised while handling a query.
type AlertReceiver interface {
	Alert(message string)
}

// QueryOptions are passed to the query engine on every parse.
type QueryOptions struct {
	// AlertReceiver is optional.
	AlertReceiver AlertReceiver
}

// QueryEngine parses MQL. It is provided by the host.
type QueryEngine interface {
	// Parse returns the parsed query. Syntax errors must match ErrQuerySyntax.
	Parse(ctx context.Context, scope Scope, mql string, opts QueryOptions) (ParsedQuery, error)
}

// ParsedQuery is a query ready for execution.
type ParsedQuery interface {
	// ValuesFor executes the query and returns its rows with keys normalized
	// for the given API version.
	ValuesFor(ctx context.Context, version APIVersion) ([]Row, error)
	// CanBeCached reports whether the result does not depend on the current
	// time, the current user, the current card or another project.
	CanBeCached() bool
}

// APIVersion selects how result column names are normalized.
type APIVersion string

const (
	// V1 keeps the legacy names of aggregate columns, e.g. "Count(*)".
	V1 APIVersion = "v1"
	// V2 normalizes every column name: lowercase, runs of non alphanumeric
	// characters replaced by one underscore.
	V2 APIVersion = "v2"
)

// ParseAPIVersion parses "v1" or "v2". The empty string selects V2.
func ParseAPIVersion(s string) (APIVersion, error) {
	switch APIVersion(s) {
	case "", V2:
		return V2, nil
	case V1:
		return V1, nil
	}
	return "", fmt.Errorf("unknown api version %q", s)
}

// Row is one result row; a nil value is a null.
type Row map[string]*string

// Get returns the value of column key. ok is false when the column is
// missing or null.
func (r Row) Get(key string) (string, bool) {
	v := r[key]
	if v == nil {
		return "", false
	}
	return *v, true
}
