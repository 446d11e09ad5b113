// Package macro is the read-only model handed to macros.
//
// # Overview
//
// A macro receives a [Project] and walks from it to card types, property
// definitions, property values, project variables and team members. None of
// these types can change host state. Every association is resolved lazily
// through a [Ref], so a render only pays for the parts of the graph it
// touches.
//
// # Wiring
//
// Facades are built in two phases. The host calls a New* constructor, which
// returns the facade together with a wiring handle. The host then installs
// one [Loader] per association through the handle. Only the facade is given
// to macro code; the wiring handles never leave the host. This lets the host
// build the cyclic card type ↔ property definition graph without eagerly
// constructing it.
//
// # Queries
//
// [Project.ExecuteMQL] and [Project.CanBeCached] run inside an active project
// [Scope] acquired from the host. The scope is released on every return path,
// including errors and panics.
package macro
