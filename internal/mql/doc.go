// Package mql implements the card query language used by macros.
//
// A query either selects columns:
//
//	SELECT status, COUNT(*) WHERE type = story GROUP BY status
//
// or is a bare condition returning every field of matching cards:
//
//	type = defect AND owner = CURRENT USER
//
// [Engine] implements macro.QueryEngine on top of a [Source] provided by the
// host. Parse errors are reported as *[SyntaxError], which matches
// macro.ErrQuerySyntax. Non-fatal problems, such as a literal that does not
// look like a number for a numeric property, go to the alert receiver of the
// query options.
package mql
