package gotable

import (
	"cmp"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/google/safehtml"
	"github.com/samber/lo"
)

// Default templates of a table type.
const (
	DefaultTemplate          = "table.html"
	DefaultBodyTemplate      = "table_body_content.html"
	DefaultPaginatorTemplate = "table_paginator.html"
)

// Column binds a widget to a column key and carries the optional per-column
// callbacks. A nil callback selects the default behaviour.
type Column struct {
	Key    string
	Widget Widget

	// Render replaces the widget cell rendering.
	Render func(ctx CellContext) safehtml.HTML
	// RenderCSV replaces the tag-stripped cell rendering in CSV exports.
	RenderCSV func(ctx CellContext) string
	CellClass func(ctx CellContext) string
	CellStyle func(ctx CellContext) safehtml.Style
	// ToValue converts the resolved value before it reaches the other
	// callbacks and the widget.
	ToValue func(row any, value any) any
	// OrderBy replaces the default ordering by the column reference.
	OrderBy func(col *Column, src DataSource, asc bool) DataSource
}

// Ref returns the reference path of the column: the widget reference or the
// column key.
func (c *Column) Ref() string {
	if ref := c.Widget.Ref(); ref != "" {
		return ref
	}

	return c.Key
}

// Value resolves the column value of row. Absent values are nil.
func (c *Column) Value(row any) any {
	value, ok := ResolvePath(row, c.Ref())
	if !ok {
		value = nil
	}

	if c.ToValue != nil {
		value = c.ToValue(row, value)
	}

	return value
}

// KeySet is a set of column keys, or the sentinel of all columns which
// always expands to the current column set.
type KeySet struct {
	all  bool
	set  bool
	keys []string
}

// AllColumns returns the sentinel set of every declared column.
func AllColumns() KeySet {
	return KeySet{all: true, set: true}
}

// Keys returns a set of the given column keys.
func Keys(keys ...string) KeySet {
	return KeySet{set: true, keys: slices.Clone(keys)}
}

// IsAll reports whether the set is the all-columns sentinel.
func (s KeySet) IsAll() bool {
	return s.all
}

func (s KeySet) isZero() bool {
	return !s.set
}

// Expand returns the keys of the set, following the order of columns for the
// sentinel.
func (s KeySet) Expand(columns []string) []string {
	if s.all {
		return slices.Clone(columns)
	}

	return slices.Clone(s.keys)
}

// Contains reports whether key is in the set.
func (s KeySet) Contains(key string) bool {
	return s.all || slices.Contains(s.keys, key)
}

// FilterForm validates filter form submissions.
type FilterForm interface {
	// Validate returns the cleaned filter payload and whether data is valid.
	Validate(data url.Values) (map[string]any, bool)
}

// HTMLFilterForm is a FilterForm that renders its own fields.
type HTMLFilterForm interface {
	FilterForm
	HTML() safehtml.HTML
}

// FilterFormFactory builds the filter form of a request. initial holds the
// filter payload currently applied.
type FilterFormFactory func(req Request, src DataSource, initial map[string]any) FilterForm

// CSVDialect configures CSV exports.
type CSVDialect struct {
	Comma   rune
	UseCRLF bool
}

// AjaxFunc serves a named ajax callback.
type AjaxFunc func(req Request) (Response, error)

// Meta is the table type configuration.
type Meta struct {
	Title string

	// Sortable lists the column keys the table can be sorted by.
	Sortable []string
	// Permanent columns are always shown.
	Permanent KeySet
	// DefaultVisible columns are shown when no state selects any. Defaults
	// to AllColumns.
	DefaultVisible KeySet

	// Search lists the reference paths searched by the search box, each
	// optionally prefixed with a lookup sigil (see ParseSearchField).
	Search []string

	FilterForm FilterFormFactory
	// ApplyFilter translates a validated filter payload into predicates.
	ApplyFilter func(filter map[string]any, src DataSource) DataSource

	CSVAllow   bool
	CSVDialect CSVDialect

	Template          string
	BodyTemplate      string
	PaginatorTemplate string

	ReloadInterval time.Duration
	// GlobalProfile shares the profiles of the table between all users.
	GlobalProfile bool
	// Paginator overrides the paginator of controllers that set none.
	Paginator   PaginatorFactory
	UseKeyboard bool

	RowClass        func(row any) string
	AjaxFuncs       map[string]AjaxFunc
	TemplateContext func(req Request) map[string]any
}

// TableType is an immutable table declaration: ordered columns plus
// configuration. It is shared by every table instance of the type.
type TableType struct {
	columns []*Column
	index   map[string]*Column
	keys    []string
	meta    Meta
}

// Declare freezes columns and meta into a table type. Columns are ordered by
// widget creation. Column keys must be unique and the keys named by meta
// must be declared.
func Declare(columns []*Column, meta Meta) (*TableType, error) {
	t := &TableType{
		columns: slices.Clone(columns),
		index:   make(map[string]*Column, len(columns)),
		meta:    meta,
	}

	for i, col := range t.columns {
		if col == nil || col.Widget == nil {
			return nil, fmt.Errorf("column %d: widget is required", i)
		}

		if col.Key == "" {
			return nil, fmt.Errorf("column %d: key is required", i)
		}

		if _, ok := t.index[col.Key]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateColumn, col.Key)
		}
		t.index[col.Key] = col
	}

	slices.SortStableFunc(t.columns, func(a, b *Column) int {
		return cmp.Compare(a.Widget.Order(), b.Widget.Order())
	})
	t.keys = lo.Map(t.columns, func(col *Column, _ int) string { return col.Key })

	if t.meta.DefaultVisible.isZero() {
		t.meta.DefaultVisible = AllColumns()
	}

	t.meta.Template = lo.CoalesceOrEmpty(t.meta.Template, DefaultTemplate)
	t.meta.BodyTemplate = lo.CoalesceOrEmpty(t.meta.BodyTemplate, DefaultBodyTemplate)
	t.meta.PaginatorTemplate = lo.CoalesceOrEmpty(t.meta.PaginatorTemplate, DefaultPaginatorTemplate)

	if t.meta.CSVDialect.Comma == 0 {
		t.meta.CSVDialect.Comma = ','
	}

	if err := t.checkKeys("sortable", t.meta.Sortable); err != nil {
		return nil, err
	}

	if err := t.checkKeys("permanent", t.meta.Permanent.keys); err != nil {
		return nil, err
	}

	if err := t.checkKeys("default visible", t.meta.DefaultVisible.keys); err != nil {
		return nil, err
	}

	for _, field := range t.meta.Search {
		if path, _ := ParseSearchField(field); path == "" {
			return nil, fmt.Errorf("search field %q: empty path", field)
		}
	}

	return t, nil
}

// MustDeclare is like Declare but panics on error. It is meant for package
// level table declarations.
func MustDeclare(columns []*Column, meta Meta) *TableType {
	t, err := Declare(columns, meta)
	if err != nil {
		panic(err)
	}

	return t
}

func (t *TableType) checkKeys(name string, keys []string) error {
	var errs []error
	for _, key := range keys {
		if _, ok := t.index[key]; !ok {
			errs = append(errs, fmt.Errorf("%w in %s: %q, closest: %q", ErrUnknownColumn, name, key, closestAlias(key, t.keys)))
		}
	}

	return errors.Join(errs...)
}

// Meta returns the configuration of the table type.
func (t *TableType) Meta() Meta {
	return t.meta
}

// Keys returns the column keys in column order.
func (t *TableType) Keys() []string {
	return slices.Clone(t.keys)
}

// Columns returns the columns in column order.
func (t *TableType) Columns() []*Column {
	return slices.Clone(t.columns)
}

// Column returns the column with the given key.
func (t *TableType) Column(key string) (*Column, bool) {
	col, ok := t.index[key]

	return col, ok
}

// IsSortable reports whether the table can be sorted by the column.
func (t *TableType) IsSortable(key string) bool {
	_, ok := t.index[key]

	return ok && slices.Contains(t.meta.Sortable, key)
}

// IsPermanent reports whether the column is always shown.
func (t *TableType) IsPermanent(key string) bool {
	_, ok := t.index[key]

	return ok && t.meta.Permanent.Contains(key)
}

// Permanent returns the keys of the always shown columns.
func (t *TableType) Permanent() []string {
	return t.meta.Permanent.Expand(t.keys)
}

// DefaultVisible returns the keys of the columns shown by default.
func (t *TableType) DefaultVisible() []string {
	return t.meta.DefaultVisible.Expand(t.keys)
}

// TableView is a table instance: a table type bound to an id. The id scopes
// the session state, the profiles and the html ids of the instance.
type TableView struct {
	*TableType
	id string
}

// NewTableView returns the instance id of the table type t.
func NewTableView(t *TableType, id string) *TableView {
	return &TableView{TableType: t, id: id}
}

// ID returns the instance id.
func (v *TableView) ID() string {
	return v.id
}

// ApplySearch filters src by value over the search fields, OR-combined. A
// search over a to-many relation de-duplicates the result.
func (v *TableView) ApplySearch(value string, src DataSource) DataSource {
	if value == "" || len(v.meta.Search) == 0 {
		return src
	}

	original := src.Clone()

	var (
		search   = make(AnyOf, 0, len(v.meta.Search))
		distinct bool
	)
	for _, field := range v.meta.Search {
		path, op := ParseSearchField(field)
		search = append(search, Lookup{Path: path, Op: op, Value: value})
		distinct = distinct || src.CrossesToMany(path)
	}

	src = src.Filter(search)
	if distinct {
		src = src.Distinct(original)
	}

	return src
}

// ApplyFilter applies a validated filter payload to src through the
// ApplyFilter hook of the table type. Without a hook it does nothing.
func (v *TableView) ApplyFilter(filter map[string]any, src DataSource) DataSource {
	if v.meta.ApplyFilter == nil {
		return src
	}

	return v.meta.ApplyFilter(filter, src)
}

// RowClass returns the css class of a row.
func (v *TableView) RowClass(row any) string {
	if v.meta.RowClass == nil {
		return ""
	}

	return v.meta.RowClass(row)
}

// titleText returns the plain text of a column title.
func titleText(col *Column) string {
	return strings.TrimSpace(stripTags(col.Widget.HTMLTitle().String()))
}
