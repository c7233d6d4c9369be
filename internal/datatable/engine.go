package datatable

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mamadbah2/farmdesk/internal/access"
)

// CountCache keeps unfiltered row counts per table and farm scope.
type CountCache interface {
	Get(ctx context.Context, key string) (int64, bool)
	Set(ctx context.Context, key string, n int64)
}

// Observer records served grids.
type Observer interface {
	ObserveGrid(table string, outcome string, elapsed time.Duration)
}

// ActionsKey is the cell listing the row actions allowed to the principal.
const ActionsKey = "actions"

// Engine runs grid requests against the database.
type Engine struct {
	db       *gorm.DB
	registry *Registry
	cache    CountCache
	observer Observer
	logger   *zap.Logger
}

// Option customises an Engine.
type Option func(*Engine)

// WithCountCache serves recordsTotal from cache.
func WithCountCache(c CountCache) Option {
	return func(e *Engine) { e.cache = c }
}

// WithObserver reports every served grid.
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// NewEngine creates an engine over the registered tables.
func NewEngine(db *gorm.DB, registry *Registry, logger *zap.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{db: db, registry: registry, logger: logger}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ColumnMeta is the client-facing description of a visible column.
type ColumnMeta struct {
	Data       string `json:"data"`
	Title      string `json:"title"`
	Searchable bool   `json:"searchable"`
	Orderable  bool   `json:"orderable"`
}

// Columns lists the visible columns of a grid.
func (e *Engine) Columns(name string, p access.Principal) ([]ColumnMeta, error) {
	t, err := e.table(name, p)
	if err != nil {
		return nil, err
	}
	out := make([]ColumnMeta, 0, len(t.Columns)+1)
	for _, c := range t.Columns {
		if c.Hidden {
			continue
		}
		out = append(out, ColumnMeta{
			Data:       c.Data,
			Title:      c.Title,
			Searchable: c.Searchable && c.Expr != "",
			Orderable:  c.Orderable && c.Expr != "",
		})
	}
	if len(t.Actions) > 0 {
		out = append(out, ColumnMeta{Data: ActionsKey, Title: "Actions"})
	}
	return out, nil
}

// Serve answers one grid request for the principal.
func (e *Engine) Serve(ctx context.Context, name string, req Request, p access.Principal) (*Response, error) {
	started := time.Now()
	resp, err := e.serve(ctx, name, req, p)
	if e.observer != nil {
		e.observer.ObserveGrid(name, outcome(err), time.Since(started))
	}
	if err != nil {
		e.logger.Warn("datatable request failed",
			zap.String("table", name),
			zap.Uint("user_id", p.UserID),
			zap.Error(err))
		return nil, err
	}
	return resp, nil
}

func (e *Engine) serve(ctx context.Context, name string, req Request, p access.Principal) (*Response, error) {
	t, err := e.table(name, p)
	if err != nil {
		return nil, err
	}

	db := e.db.WithContext(ctx)
	base := func() *gorm.DB {
		q := t.Query(db.Session(&gorm.Session{NewDB: true}))
		return access.ScopeFarms(q, p, t.ScopeColumns...)
	}

	total, err := e.total(ctx, t, p, base)
	if err != nil {
		return nil, err
	}

	filtered := func() (*gorm.DB, error) {
		return applyCriteria(base(), t, req)
	}

	q, err := filtered()
	if err != nil {
		return nil, err
	}
	var count int64
	if err := db.Session(&gorm.Session{NewDB: true}).Table("(?) AS dt", q).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("count filtered %s: %w", t.Name, err)
	}

	q, err = filtered()
	if err != nil {
		return nil, err
	}
	q = applyOrder(q, t, req)
	if req.Length > 0 {
		q = q.Offset(req.Start).Limit(req.Length)
	}

	var raw []map[string]any
	if err := q.Find(&raw).Error; err != nil {
		return nil, fmt.Errorf("query %s: %w", t.Name, err)
	}

	rows := make([]Row, 0, len(raw))
	for _, r := range raw {
		rows = append(rows, render(t, Row(r), p))
	}

	return &Response{
		Draw:            req.Draw,
		RecordsTotal:    total,
		RecordsFiltered: count,
		Data:            rows,
	}, nil
}

func (e *Engine) table(name string, p access.Principal) (*Table, error) {
	t, ok := e.registry.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, name)
	}
	if t.Permission != "" && !p.Can(t.Permission) {
		return nil, fmt.Errorf("%w: %s requires %q", ErrForbidden, t.Name, t.Permission)
	}
	return t, nil
}

func (e *Engine) total(ctx context.Context, t *Table, p access.Principal, base func() *gorm.DB) (int64, error) {
	key := "dt:count:" + t.Name + ":" + p.ScopeKey()
	if e.cache != nil {
		if n, ok := e.cache.Get(ctx, key); ok {
			return n, nil
		}
	}
	var n int64
	if err := e.db.WithContext(ctx).Table("(?) AS dt", base()).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count %s: %w", t.Name, err)
	}
	if e.cache != nil {
		e.cache.Set(ctx, key, n)
	}
	return n, nil
}

func applyCriteria(q *gorm.DB, t *Table, req Request) (*gorm.DB, error) {
	for key, value := range req.Filters {
		f, ok := t.Filters[key]
		if !ok {
			continue
		}
		var err error
		if q, err = f(q, value); err != nil {
			return nil, fmt.Errorf("filter %s: %w", key, err)
		}
	}

	if req.Search != "" {
		var clauses []string
		var args []any
		pattern := likePattern(req.Search)
		for _, c := range t.Columns {
			if !c.Searchable || c.Expr == "" {
				continue
			}
			clauses = append(clauses, searchClause(c.Expr))
			args = append(args, pattern)
		}
		if len(clauses) > 0 {
			q = q.Where("("+strings.Join(clauses, " OR ")+")", args...)
		}
	}

	for _, cr := range req.Columns {
		if cr.Search == "" || !cr.Searchable {
			continue
		}
		c, ok := t.column(cr.Data)
		if !ok || !c.Searchable || c.Expr == "" {
			continue
		}
		q = q.Where(searchClause(c.Expr), likePattern(cr.Search))
	}
	return q, nil
}

func applyOrder(q *gorm.DB, t *Table, req Request) *gorm.DB {
	ordered := false
	for _, o := range req.Order {
		if o.Column >= len(req.Columns) {
			continue
		}
		cr := req.Columns[o.Column]
		if !cr.Orderable {
			continue
		}
		c, ok := t.column(cr.Data)
		if !ok || !c.Orderable || c.Expr == "" {
			continue
		}
		dir := "ASC"
		if o.Dir == "desc" {
			dir = "DESC"
		}
		q = q.Order(c.Expr + " " + dir)
		ordered = true
	}
	if !ordered && t.DefaultOrder != "" {
		q = q.Order(t.DefaultOrder)
	}
	return q
}

func render(t *Table, row Row, p access.Principal) Row {
	for _, c := range t.Columns {
		if c.Render != nil {
			row[c.Data] = c.Render(row)
		}
	}
	if len(t.Actions) > 0 {
		allowed := make([]string, 0, len(t.Actions))
		for _, a := range t.Actions {
			if a.Permission == "" || p.Can(a.Permission) {
				allowed = append(allowed, a.Name)
			}
		}
		row[ActionsKey] = allowed
	}
	for _, c := range t.Columns {
		if c.Hidden {
			delete(row, c.Data)
		}
	}
	normalize(row)
	return row
}

func searchClause(expr string) string {
	return "LOWER(CAST(" + expr + ` AS TEXT)) LIKE ? ESCAPE '\'`
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern matches the search text literally, wildcards included.
func likePattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrBadRequest), errors.Is(err, ErrUnknownTable):
		return "bad_request"
	default:
		return "error"
	}
}
