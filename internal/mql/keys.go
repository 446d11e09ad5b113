package mql

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/maruel/macrokit/internal/macro"
)

var nonAlphanumeric = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// NormalizeKey lowercases s and replaces each run of characters that are not
// letters or digits with one underscore, trimming the ends. "Defect Status"
// becomes "defect_status" and "Count(*)" becomes "count".
func NormalizeKey(s string) string {
	s = cases.Lower(language.Und).String(s)
	return strings.Trim(nonAlphanumeric.ReplaceAllString(s, "_"), "_")
}

// columnKey returns the result key of c for the given API version. name is
// the canonical property name, empty for COUNT(*).
func columnKey(c column, name string, version macro.APIVersion) string {
	if !c.isAggregate() {
		return NormalizeKey(name)
	}
	arg := "*"
	if !c.star {
		arg = name
	}
	legacy := cases.Title(language.Und).String(strings.ToLower(c.fn)) + "(" + arg + ")"
	if version == macro.V1 {
		return legacy
	}
	return NormalizeKey(legacy)
}
