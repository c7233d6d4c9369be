package datatable

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/mamadbah2/farmdesk/internal/access"
)

// Column describes one column of a grid. Expr is the SQL expression used for
// search and ordering; columns without Expr are computed by Render.
type Column struct {
	Data       string
	Expr       string
	Title      string
	Searchable bool
	Orderable  bool
	Hidden     bool
	Render     func(Row) any
}

// Action is a row action shown to principals holding its permission.
type Action struct {
	Name       string
	Permission access.Permission
}

// Filter narrows the query by a named request parameter.
type Filter func(db *gorm.DB, value string) (*gorm.DB, error)

// Table is the server-side definition of a grid.
type Table struct {
	Name       string
	Permission access.Permission
	// Query selects the grid rows from db, aliasing each column to its Data key.
	Query func(db *gorm.DB) *gorm.DB
	// ScopeColumns hold the farm ids of the row; empty for unscoped tables.
	ScopeColumns []string
	Columns      []Column
	Filters      map[string]Filter
	DefaultOrder string
	Actions      []Action
}

func (t *Table) column(data string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Data == data {
			return c, true
		}
	}
	return Column{}, false
}

// Equals matches expr against the parameter, as an integer when it parses as one.
func Equals(expr string) Filter {
	return func(db *gorm.DB, value string) (*gorm.DB, error) {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return db.Where(expr+" = ?", n), nil
		}
		return db.Where(expr+" = ?", value), nil
	}
}

// AnyEquals keeps rows where any of the expressions holds the integer parameter.
func AnyEquals(exprs ...string) Filter {
	return func(db *gorm.DB, value string) (*gorm.DB, error) {
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not an id", ErrBadRequest, value)
		}
		clauses := make([]string, len(exprs))
		args := make([]any, len(exprs))
		for i, e := range exprs {
			clauses[i] = e + " = ?"
			args[i] = n
		}
		return db.Where("("+strings.Join(clauses, " OR ")+")", args...), nil
	}
}

// DateFrom keeps rows on or after the given YYYY-MM-DD date.
func DateFrom(expr string) Filter {
	return func(db *gorm.DB, value string) (*gorm.DB, error) {
		d, err := parseDate(value)
		if err != nil {
			return nil, err
		}
		return db.Where(expr+" >= ?", d), nil
	}
}

// DateTo keeps rows on or before the given YYYY-MM-DD date.
func DateTo(expr string) Filter {
	return func(db *gorm.DB, value string) (*gorm.DB, error) {
		d, err := parseDate(value)
		if err != nil {
			return nil, err
		}
		return db.Where(expr+" < ?", d.AddDate(0, 0, 1)), nil
	}
}

func parseDate(value string) (time.Time, error) {
	d, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q", ErrBadRequest, value)
	}
	return d, nil
}

// Registry maps grid names to their definitions.
type Registry struct {
	tables map[string]*Table
}

// NewRegistry builds a registry from table definitions.
func NewRegistry(tables ...*Table) *Registry {
	r := &Registry{tables: make(map[string]*Table, len(tables))}
	for _, t := range tables {
		r.Register(t)
	}
	return r
}

// Register adds or replaces a table.
func (r *Registry) Register(t *Table) {
	r.tables[strings.ToLower(t.Name)] = t
}

// Lookup finds a table by name.
func (r *Registry) Lookup(name string) (*Table, bool) {
	t, ok := r.tables[strings.ToLower(name)]
	return t, ok
}

// Names returns the registered grid names in order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tables))
	for n := range r.tables {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
