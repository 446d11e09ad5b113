// Parses project.yaml files.

package host

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/maruel/macrokit/internal/macro"
)

const (
	defaultPrecision  = 2
	defaultDateFormat = "%d %b %Y"
	maxPrecision      = 10
)

var identifierRe = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// ProjectConfig is the content of a project.yaml file.
type ProjectConfig struct {
	Identifier string `yaml:"identifier"`
	Name       string `yaml:"name"`
	// Precision is the number of decimals of computed numbers. Defaults to 2.
	Precision *int `yaml:"precision,omitempty"`
	// DateFormat uses strftime directives. Defaults to "%d %b %Y".
	DateFormat string `yaml:"date_format,omitempty"`
	// TimeZone is an IANA name. Defaults to UTC.
	TimeZone  string           `yaml:"time_zone,omitempty"`
	Variables []VariableConfig `yaml:"variables,omitempty"`

	location *time.Location
}

// VariableConfig is a project variable.
type VariableConfig struct {
	Name string `yaml:"name"`
	// Type is a property type tag such as "user" or "date". Defaults to
	// any_text.
	Type string `yaml:"type,omitempty"`
	// Value is stored like a card property value: a login for users, a card
	// number for cards and an ISO date for dates. Empty means not set.
	Value string `yaml:"value,omitempty"`
}

// PropertyType returns the parsed variable type.
func (v *VariableConfig) PropertyType() (macro.PropertyType, error) {
	if v.Type == "" {
		return macro.PropertyTypeAnyText, nil
	}
	return macro.ParsePropertyType(v.Type)
}

// ParseProjectConfig reads and validates a project.yaml file.
func ParseProjectConfig(path string) (*ProjectConfig, error) {
	data, err := os.ReadFile(path) //nolint:gosec // Path comes from the workspace directory
	if err != nil {
		return nil, fmt.Errorf("failed to read project config: %w", err)
	}
	return ParseProjectConfigBytes(data)
}

// ParseProjectConfigBytes parses and validates a project.yaml document.
func ParseProjectConfigBytes(data []byte) (*ProjectConfig, error) {
	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse project config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid project config: %w", err)
	}
	return &cfg, nil
}

// Validate checks that the config is valid and resolves the time zone.
func (c *ProjectConfig) Validate() error {
	var errs *multierror.Error
	if c.Identifier == "" {
		errs = multierror.Append(errs, errors.New("identifier is required"))
	} else if !identifierRe.MatchString(c.Identifier) {
		errs = multierror.Append(errs, fmt.Errorf("identifier %q must be lowercase letters, digits and underscores", c.Identifier))
	}
	if c.Name == "" {
		errs = multierror.Append(errs, errors.New("name is required"))
	}
	if c.Precision != nil && (*c.Precision < 0 || *c.Precision > maxPrecision) {
		errs = multierror.Append(errs, fmt.Errorf("precision must be between 0 and %d, got %d", maxPrecision, *c.Precision))
	}
	if err := checkDateFormat(c.dateFormat()); err != nil {
		errs = multierror.Append(errs, err)
	}
	c.location = time.UTC
	if c.TimeZone != "" {
		loc, err := time.LoadLocation(c.TimeZone)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("time zone: %w", err))
		} else {
			c.location = loc
		}
	}
	seen := make(map[string]bool, len(c.Variables))
	for i := range c.Variables {
		v := &c.Variables[i]
		if v.Name == "" {
			errs = multierror.Append(errs, fmt.Errorf("variable %d: name is required", i))
			continue
		}
		lower := strings.ToLower(v.Name)
		if seen[lower] {
			errs = multierror.Append(errs, fmt.Errorf("variable %q is defined twice", v.Name))
		}
		seen[lower] = true
		if _, err := v.PropertyType(); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("variable %q: %w", v.Name, err))
		}
	}
	return errs.ErrorOrNil()
}

func (c *ProjectConfig) precision() int {
	if c.Precision == nil {
		return defaultPrecision
	}
	return *c.Precision
}

func (c *ProjectConfig) dateFormat() string {
	if c.DateFormat == "" {
		return defaultDateFormat
	}
	return c.DateFormat
}

// Location returns the project time zone.
func (c *ProjectConfig) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// FormatNumber renders n with the project precision.
func (c *ProjectConfig) FormatNumber(n float64) string {
	return formatNumber(n, c.precision())
}

// FormatDate renders t with the project date format.
func (c *ProjectConfig) FormatDate(t time.Time) string {
	return strftime(t, c.dateFormat())
}

// variable returns the variable named name, case insensitively.
func (c *ProjectConfig) variable(name string) (*VariableConfig, bool) {
	for i := range c.Variables {
		if strings.EqualFold(c.Variables[i].Name, name) {
			return &c.Variables[i], true
		}
	}
	return nil, false
}
