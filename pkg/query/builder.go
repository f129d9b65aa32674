package query

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// SortField is one ORDER BY term. Field is a view or column name known to
// the projection.
type SortField struct {
	Field      string
	Descending bool
}

// params numbers placeholders as conditions render, so clauses never
// carry positional numbers of their own.
type params struct {
	args []any
}

func (p *params) bind(v any) string {
	p.args = append(p.args, v)
	return "$" + strconv.Itoa(len(p.args))
}

// condition renders one WHERE term, binding its arguments on p.
type condition func(p *params) string

// Builder assembles SELECT statements over a projection. Filters that
// receive a nil or empty value are skipped, so callers can pass optional
// request filters straight through.
type Builder struct {
	projection  *ProjectionMap
	conditions  []condition
	sort        []SortField
	defaultSort []SortField
	lock        string
}

// NewBuilder creates a Builder for the given projection with optional default sort fields.
func NewBuilder(projection *ProjectionMap, defaultSort ...SortField) *Builder {
	return &Builder{
		projection:  projection,
		defaultSort: defaultSort,
	}
}

// ParseSortFields reads "barcode,-timestamp" style sort strings. A leading
// "-" sorts descending. Blank entries are ignored.
func ParseSortFields(s string) []SortField {
	var fields []SortField
	for part := range strings.SplitSeq(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, desc := strings.CutPrefix(part, "-")
		fields = append(fields, SortField{Field: name, Descending: desc})
	}
	return fields
}

// Build returns the SELECT with conditions, ordering, and row lock.
func (b *Builder) Build() (string, []any) {
	where, args := b.where()
	return "SELECT " + b.projection.Columns() + " FROM " + b.projection.From() +
		where + b.orderBy() + b.lock, args
}

// BuildCount returns a COUNT(*) over the current conditions.
func (b *Builder) BuildCount() (string, []any) {
	where, args := b.where()
	return "SELECT COUNT(*) FROM " + b.projection.From() + where, args
}

// BuildPage returns one page of the ordered result. Pages start at 1.
func (b *Builder) BuildPage(page, pageSize int) (string, []any) {
	where, args := b.where()
	sql := fmt.Sprintf(
		"SELECT %s FROM %s%s%s LIMIT %d OFFSET %d",
		b.projection.Columns(),
		b.projection.From(),
		where,
		b.orderBy(),
		pageSize,
		(page-1)*pageSize,
	)
	return sql, args
}

// BuildSingle selects one row by key. Other conditions are ignored.
func (b *Builder) BuildSingle(idField string, id any) (string, []any) {
	return "SELECT " + b.projection.Columns() + " FROM " + b.projection.From() +
		" WHERE " + b.projection.Column(idField) + " = $1" + b.lock, []any{id}
}

// OrderByFields replaces the default sort.
func (b *Builder) OrderByFields(fields []SortField) *Builder {
	b.sort = fields
	return b
}

// ForUpdate locks the selected rows for the enclosing transaction.
// With skipLocked, rows already locked by another transaction are left out
// of the result instead of blocking.
func (b *Builder) ForUpdate(skipLocked bool) *Builder {
	b.lock = " FOR UPDATE"
	if skipLocked {
		b.lock += " SKIP LOCKED"
	}
	return b
}

func (b *Builder) compare(field, op string, value any) *Builder {
	col := b.projection.Column(field)
	return b.add(func(p *params) string {
		return col + " " + op + " " + p.bind(value)
	})
}

func (b *Builder) add(c condition) *Builder {
	b.conditions = append(b.conditions, c)
	return b
}

// WhereEquals adds "field = value".
func (b *Builder) WhereEquals(field string, value any) *Builder {
	if isNil(value) {
		return b
	}
	return b.compare(field, "=", value)
}

// WhereAtOrBefore adds "field <= value".
func (b *Builder) WhereAtOrBefore(field string, value any) *Builder {
	if isNil(value) {
		return b
	}
	return b.compare(field, "<=", value)
}

// WhereContains adds a case-insensitive substring match.
func (b *Builder) WhereContains(field string, value *string) *Builder {
	if value == nil || *value == "" {
		return b
	}
	return b.compare(field, "ILIKE", "%"+*value+"%")
}

func (b *Builder) WhereIn(field string, values []any) *Builder {
	if len(values) == 0 {
		return b
	}
	col := b.projection.Column(field)
	return b.add(func(p *params) string {
		marks := make([]string, len(values))
		for i, v := range values {
			marks[i] = p.bind(v)
		}
		return col + " IN (" + strings.Join(marks, ", ") + ")"
	})
}

func (b *Builder) WhereNull(field string) *Builder {
	clause := b.projection.Column(field) + " IS NULL"
	return b.add(func(*params) string { return clause })
}

func (b *Builder) WhereNotNull(field string) *Builder {
	clause := b.projection.Column(field) + " IS NOT NULL"
	return b.add(func(*params) string { return clause })
}

// WhereNullable matches NULL when value is nil and equality otherwise.
func (b *Builder) WhereNullable(field string, value any) *Builder {
	if isNil(value) {
		return b.WhereNull(field)
	}
	return b.WhereEquals(field, value)
}

// WhereSearch matches search as a substring of any of fields.
func (b *Builder) WhereSearch(search *string, fields ...string) *Builder {
	if search == nil || *search == "" || len(fields) == 0 {
		return b
	}

	pattern := "%" + *search + "%"
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = b.projection.Column(f)
	}

	return b.add(func(p *params) string {
		terms := make([]string, len(cols))
		for i, col := range cols {
			terms[i] = col + " ILIKE " + p.bind(pattern)
		}
		return "(" + strings.Join(terms, " OR ") + ")"
	})
}

func (b *Builder) where() (string, []any) {
	if len(b.conditions) == 0 {
		return "", nil
	}

	var p params
	clauses := make([]string, len(b.conditions))
	for i, c := range b.conditions {
		clauses[i] = c(&p)
	}
	return " WHERE " + strings.Join(clauses, " AND "), p.args
}

// orderBy drops sort fields the projection does not know, since they
// usually come straight from a query string. When none survive, the
// default sort applies.
func (b *Builder) orderBy() string {
	terms := b.orderTerms(b.sort)
	if len(terms) == 0 {
		terms = b.orderTerms(b.defaultSort)
	}
	if len(terms) == 0 {
		return ""
	}
	return " ORDER BY " + strings.Join(terms, ", ")
}

func (b *Builder) orderTerms(fields []SortField) []string {
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		col, ok := b.projection.Resolve(f.Field)
		if !ok {
			continue
		}
		if f.Descending {
			terms = append(terms, col+" DESC")
		} else {
			terms = append(terms, col+" ASC")
		}
	}
	return terms
}

func isNil(value any) bool {
	if value == nil {
		return true
	}
	switch v := reflect.ValueOf(value); v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.Interface:
		return v.IsNil()
	}
	return false
}
