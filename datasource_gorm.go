package gotable

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultKeyColumn is the row identity column used as ordering tiebreaker and
// for distinct re-filtering.
const DefaultKeyColumn = "id"

type relation struct {
	path   string
	join   string
	toMany bool
}

// GormSource is a DataSource over a gorm model. Reference paths are mapped to
// columns through the column mapping; unmapped paths are used as column names
// verbatim (after validation).
type GormSource[T any] struct {
	conn      *gorm.DB
	root      *gorm.DB
	columns   ColumnMapping
	relations []relation
	preloads  []string
	key       string

	conds  []clause.Expression
	joins  []string
	order  Orderings
	window *Window
	err    error

	// orderJoins are the joins the ordering column needs.
	orderJoins []string
}

// NewGormSource returns a source over every row of the model T.
func NewGormSource[T any](db *gorm.DB) *GormSource[T] {
	return &GormSource[T]{
		conn: db.Session(&gorm.Session{NewDB: true}),
		root: db.Model(new(T)).Session(&gorm.Session{}),
		key:  DefaultKeyColumn,
	}
}

// NewSQLSource returns a source over the rows of a raw SQL statement. The
// statement is wrapped as a derived table, so filters and ordering refer to
// its result columns.
func NewSQLSource[T any](db *gorm.DB, sql string, args ...any) *GormSource[T] {
	conn := db.Session(&gorm.Session{NewDB: true})

	return &GormSource[T]{
		conn: conn,
		root: conn.Table("(?) AS src", conn.Raw(sql, args...)).Session(&gorm.Session{}),
		key:  DefaultKeyColumn,
	}
}

// WithKey sets the row identity column.
func (s *GormSource[T]) WithKey(column string) *GormSource[T] {
	s.key = column

	return s
}

// WithColumns maps reference paths to SQL columns. Use it when bare names
// would be ambiguous once relations are joined.
func (s *GormSource[T]) WithColumns(mapping ColumnMapping) *GormSource[T] {
	s.columns = mapping

	return s
}

// WithRelation declares a relation reachable under path. The join clause is
// added the first time a filter or ordering refers to the path. toMany marks
// relations that multiply rows.
//
// Example:
//
//	src.WithRelation("tags", "JOIN event_tags AS tags ON tags.event_id = events.id", true)
func (s *GormSource[T]) WithRelation(path, join string, toMany bool) *GormSource[T] {
	s.relations = append(s.relations, relation{path: normalizePath(path), join: join, toMany: toMany})

	return s
}

// WithPreload preloads gorm associations of the fetched rows.
func (s *GormSource[T]) WithPreload(associations ...string) *GormSource[T] {
	s.preloads = append(s.preloads, associations...)

	return s
}

// Filter - implements DataSource.
func (s *GormSource[T]) Filter(p Predicate) DataSource {
	return s.addCondition(p, false)
}

// Exclude - implements DataSource.
func (s *GormSource[T]) Exclude(p Predicate) DataSource {
	return s.addCondition(p, true)
}

func (s *GormSource[T]) addCondition(p Predicate, negate bool) DataSource {
	if s.err != nil {
		return s
	}

	expr, err := toGORMExpression(p, s.column, s.dialect())
	if err != nil {
		s.err = fmt.Errorf("build condition: %w", err)
		return s
	}

	if expr == nil {
		return s
	}

	if negate {
		expr = clause.Not(expr)
	}
	s.conds = append(s.conds, expr)

	return s
}

// SetOrder - implements DataSource.
func (s *GormSource[T]) SetOrder(ref string, asc bool) DataSource {
	if s.err != nil {
		return s
	}

	column, err := s.column(ref)
	if err != nil {
		s.err = fmt.Errorf("set order: %w", err)
		return s
	}

	order := Orderings{{Column: column, Direction: DirectionOf(asc)}}.WithTiebreaker(s.key)
	if err = order.validate(); err != nil {
		s.err = fmt.Errorf("set order: %w", err)
		return s
	}
	s.order = order
	s.orderJoins = s.relationJoins(normalizePath(ref))

	return s
}

// SetLimit - implements DataSource.
func (s *GormSource[T]) SetLimit(start, end int) DataSource {
	if s.err != nil {
		return s
	}

	window := NewWindow(start, end)
	if err := window.validate(); err != nil {
		s.err = fmt.Errorf("set limit: %w", err)
		return s
	}
	s.window = window

	return s
}

// Distinct - implements DataSource.
//
// The filtered keys are collected in a subquery and the original source is
// re-filtered by them, so the result carries no duplicates:
//
//	SELECT * FROM events WHERE id IN (SELECT DISTINCT id FROM events JOIN ... WHERE ...)
//
// Only the joins of the ordering column are kept on the outer query.
func (s *GormSource[T]) Distinct(original DataSource) DataSource {
	base, ok := original.(*GormSource[T])
	if !ok || base == nil {
		base = s
	}

	ret := base.clone()
	ret.joins = slices.Clone(s.orderJoins)
	ret.conds = nil
	ret.order = slices.Clone(s.order)
	ret.orderJoins = slices.Clone(s.orderJoins)
	ret.window = s.window
	if ret.err == nil {
		ret.err = s.err
	}

	if ret.err != nil {
		return ret
	}

	if err := validateColumnName(s.key); err != nil {
		ret.err = fmt.Errorf("distinct: %w", err)
		return ret
	}

	keys := s.build(s.root.Session(&gorm.Session{}), false, false).Distinct(s.key)
	ret.conds = append(ret.conds, clause.Expr{
		SQL:  fmt.Sprintf("%s IN (?)", s.key),
		Vars: []any{keys},
	})

	return ret
}

// CrossesToMany - implements DataSource.
func (s *GormSource[T]) CrossesToMany(path string) bool {
	path = normalizePath(path)
	for _, rel := range s.relations {
		if rel.toMany && pathHasPrefix(path, rel.path) {
			return true
		}
	}

	return false
}

// Rows - implements DataSource.
func (s *GormSource[T]) Rows(ctx context.Context) ([]any, error) {
	if s.err != nil {
		return nil, s.err
	}

	db := s.root.WithContext(ctx)
	for _, association := range s.preloads {
		db = db.Preload(association)
	}

	var rows []T
	if err := s.build(db, true, true).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("fetch rows: %w", err)
	}

	ret := make([]any, len(rows))
	for i := range rows {
		ret[i] = &rows[i]
	}

	return ret, nil
}

// Count - implements Counter. A windowed source is counted through a
// subquery so that the window bounds the count.
func (s *GormSource[T]) Count(ctx context.Context) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}

	var count int64
	if s.window == nil {
		if err := s.build(s.root.WithContext(ctx), false, false).Count(&count).Error; err != nil {
			return 0, fmt.Errorf("count rows: %w", err)
		}

		return count, nil
	}

	windowed := s.build(s.root.Session(&gorm.Session{}), false, true).Select(s.key)
	if err := s.conn.WithContext(ctx).Table("(?) AS w", windowed).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count rows: %w", err)
	}

	return count, nil
}

// Clone - implements DataSource.
func (s *GormSource[T]) Clone() DataSource {
	return s.clone()
}

// Err - implements DataSource.
func (s *GormSource[T]) Err() error {
	return s.err
}

func (s *GormSource[T]) clone() *GormSource[T] {
	ret := *s
	ret.relations = slices.Clone(s.relations)
	ret.preloads = slices.Clone(s.preloads)
	ret.conds = slices.Clone(s.conds)
	ret.joins = slices.Clone(s.joins)
	ret.order = slices.Clone(s.order)
	ret.orderJoins = slices.Clone(s.orderJoins)
	if s.window != nil {
		window := *s.window
		ret.window = &window
	}

	return &ret
}

// build applies joins, conditions and optionally ordering and window to db.
func (s *GormSource[T]) build(db *gorm.DB, withOrder, withWindow bool) *gorm.DB {
	for _, join := range s.joins {
		db = db.Joins(join)
	}

	for _, cond := range s.conds {
		db = db.Clauses(cond)
	}

	if withOrder {
		db = s.order.Apply(db)
	}

	if withWindow {
		db = s.window.Apply(db)
	}

	return db
}

// column resolves a reference path to a validated column and marks the
// relations on the path as joined.
func (s *GormSource[T]) column(path string) (string, error) {
	path = normalizePath(path)

	column := s.columns[path]
	if column == "" {
		column = path
	}

	if err := validateColumnName(column); err != nil {
		return "", err
	}

	for _, join := range s.relationJoins(path) {
		if !slices.Contains(s.joins, join) {
			s.joins = append(s.joins, join)
		}
	}

	return column, nil
}

// relationJoins returns the join clauses of the relations on path.
func (s *GormSource[T]) relationJoins(path string) []string {
	var ret []string
	for _, rel := range s.relations {
		if pathHasPrefix(path, rel.path) {
			ret = append(ret, rel.join)
		}
	}

	return ret
}

func (s *GormSource[T]) dialect() string {
	if s.conn == nil || s.conn.Dialector == nil {
		return ""
	}

	return s.conn.Dialector.Name()
}

// normalizePath converts legacy "__" separators to dots.
func normalizePath(path string) string {
	return strings.Join(SplitPath(path), ".")
}

func pathHasPrefix(path, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+".")
}

var (
	_ DataSource = (*GormSource[struct{}])(nil)
	_ Counter    = (*GormSource[struct{}])(nil)
)
