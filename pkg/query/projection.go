// Package query provides SQL query building utilities with projection mapping.
package query

import (
	"strings"
)

// ProjectionMap maps view property names to qualified column references
// (alias.column) for one table.
type ProjectionMap struct {
	schema  string
	table   string
	alias   string
	byView  map[string]string
	byName  map[string]string
	ordered []string
}

// NewProjectionMap creates a ProjectionMap for the given schema, table, and alias.
func NewProjectionMap(schema, table, alias string) *ProjectionMap {
	return &ProjectionMap{
		schema: schema,
		table:  table,
		alias:  alias,
		byView: make(map[string]string),
		byName: make(map[string]string),
	}
}

// Project adds a column mapping from database column to view property name.
// The column list keeps projection order, which is also the scan order.
func (p *ProjectionMap) Project(column, viewName string) *ProjectionMap {
	qualified := p.alias + "." + column
	p.byView[viewName] = qualified
	p.byName[column] = qualified
	p.ordered = append(p.ordered, qualified)
	return p
}

// Alias returns the table alias.
func (p *ProjectionMap) Alias() string {
	return p.alias
}

// From returns the FROM target: the schema-qualified table followed by its alias.
func (p *ProjectionMap) From() string {
	return p.schema + "." + p.table + " " + p.alias
}

// Column returns the qualified column for a view property name, or the
// input unchanged when it is not mapped. Callers pass trusted names only;
// use Resolve for names that come from a request.
func (p *ProjectionMap) Column(viewName string) string {
	if col, ok := p.byView[viewName]; ok {
		return col
	}
	return viewName
}

// Resolve looks name up as a view property ("ProcessAfter") or a column
// ("process_after") and reports whether it is projected.
func (p *ProjectionMap) Resolve(name string) (string, bool) {
	if col, ok := p.byView[name]; ok {
		return col, true
	}
	col, ok := p.byName[name]
	return col, ok
}

// Columns returns all mapped columns as a comma-separated string.
func (p *ProjectionMap) Columns() string {
	return strings.Join(p.ordered, ", ")
}

// ColumnList returns all mapped columns as a slice.
func (p *ProjectionMap) ColumnList() []string {
	return p.ordered
}
