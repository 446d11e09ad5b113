// Package render renders macros against a macro.Project.
//
// The output of a macro whose queries do not use TODAY, CURRENT USER or THIS
// CARD is kept by the [Renderer] until it expires or the workspace changes.
package render
