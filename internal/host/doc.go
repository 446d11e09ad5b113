// Package host serves macro facades from a workspace directory.
//
// A workspace holds users.jsonl and one directory per project:
//
//	workspace/
//	  users.jsonl
//	  demo/
//	    project.yaml
//	    card_types.jsonl
//	    property_definitions.jsonl
//	    card_type_property_definitions.jsonl
//	    values.jsonl
//	    team.jsonl
//	    cards.jsonl
//
// [LoadWorkspace] reads and validates every table into a [Store]. [Host]
// builds *macro.Project values on top of it and answers MQL through the mql
// package.
package host
