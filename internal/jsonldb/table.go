package jsonldb

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"sync"
)

// Cloner is implemented by types that can clone themselves.
type Cloner[T any] interface {
	Clone() T
}

// Row is the constraint on table rows.
type Row[T any] interface {
	Cloner[T]
	// Validate reports a row that must not be loaded or stored.
	Validate() error
}

// Table holds every row of a JSONL file in memory.
type Table[T Row[T]] struct {
	path    string
	columns []Column

	mu   sync.RWMutex
	rows []T
}

// NewTable loads the table stored at path. A missing file is an empty table.
func NewTable[T Row[T]](path string) (*Table[T], error) {
	columns, err := schemaFromType[T]()
	if err != nil {
		return nil, err
	}
	t := &Table[T]{path: path, columns: columns}
	if err := t.load(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Table[T]) load() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	f, err := os.Open(t.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			t.rows = []T{}
			return nil
		}
		return fmt.Errorf("failed to open table file %s: %w", t.path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	var rows []T
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		if len(rows) == 0 && isHeader(line) {
			var h schemaHeader
			if err := json.Unmarshal(line, &h); err != nil {
				return fmt.Errorf("%s:%d: invalid schema header: %w", t.path, lineNo, err)
			}
			if err := h.Validate(); err != nil {
				return fmt.Errorf("%s:%d: %w", t.path, lineNo, err)
			}
			if err := h.checkCompatible(t.columns); err != nil {
				return fmt.Errorf("%s:%d: %w", t.path, lineNo, err)
			}
			continue
		}
		var row T
		if err := json.Unmarshal(line, &row); err != nil {
			return fmt.Errorf("%s:%d: failed to unmarshal row: %w", t.path, lineNo, err)
		}
		if err := row.Validate(); err != nil {
			return fmt.Errorf("%s:%d: %w", t.path, lineNo, err)
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read table file %s: %w", t.path, err)
	}
	if rows == nil {
		rows = []T{}
	}
	t.rows = rows
	return nil
}

// isHeader reports whether line is a schema header rather than a row.
func isHeader(line []byte) bool {
	var probe struct {
		Version *string          `json:"version"`
		Columns *json.RawMessage `json:"columns"`
	}
	if err := json.Unmarshal(line, &probe); err != nil {
		return false
	}
	return probe.Version != nil && probe.Columns != nil
}

// Path returns the file backing the table.
func (t *Table[T]) Path() string {
	return t.path
}

// Columns returns the schema of the row type.
func (t *Table[T]) Columns() []Column {
	return append([]Column(nil), t.columns...)
}

// Len returns the number of rows.
func (t *Table[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}

// All returns an iterator over clones of all rows, in file order.
func (t *Table[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		t.mu.RLock()
		defer t.mu.RUnlock()
		for _, row := range t.rows {
			if !yield(row.Clone()) {
				return
			}
		}
	}
}

// Replace validates rows, then rewrites the file with a schema header
// followed by rows.
func (t *Table[T]) Replace(rows []T) error {
	for i, row := range rows {
		if err := row.Validate(); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(t.path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", t.path, err)
	}
	f, err := os.Create(t.path)
	if err != nil {
		return fmt.Errorf("failed to create table file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	writer := bufio.NewWriter(f)
	enc := json.NewEncoder(writer)
	if err := enc.Encode(schemaHeader{Version: currentVersion, Columns: t.columns}); err != nil {
		return fmt.Errorf("failed to write schema header: %w", err)
	}
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	if err := writer.Flush(); err != nil {
		return fmt.Errorf("failed to flush writer: %w", err)
	}

	cloned := make([]T, 0, len(rows))
	for _, row := range rows {
		cloned = append(cloned, row.Clone())
	}
	t.rows = cloned
	return nil
}
