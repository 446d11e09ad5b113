// Package jsonldb provides read-mostly JSONL tables with a schema header.
//
// # File Format
//
// Line 1 is a schema header listing the columns of the row type, derived from
// its struct tags. Each following line is one JSON row. A file without a
// header is accepted so tables can be written by hand; [Table.Replace]
// always writes one.
//
// A missing file is an empty table.
package jsonldb
