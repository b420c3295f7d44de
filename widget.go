package gotable

import (
	"fmt"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/google/safehtml"
	"github.com/google/safehtml/uncheckedconversions"
	"github.com/samber/lo"
	"golang.org/x/net/html"
)

// nbsp is the placeholder rendered for absent values.
var nbsp = uncheckedconversions.HTMLFromStringKnownToSatisfyTypeContract("&nbsp;")

// _widgetCounter orders widgets by creation across the process.
var _widgetCounter atomic.Uint64

// HTMLRenderer renders a named template to HTML.
type HTMLRenderer interface {
	RenderHTML(name string, data any) (safehtml.HTML, error)
}

// CellContext is everything a cell renderer may look at.
type CellContext struct {
	// Index is the 1-based position of the row on the current page.
	Index int
	Key   string
	Row   any
	// Value is the resolved (and converted) cell value, nil when absent.
	Value    any
	Request  Request
	Router   Router
	Renderer HTMLRenderer
}

// Widget describes how a column extracts and renders its values.
type Widget interface {
	Label() string
	// Ref returns the reference path the widget reads, empty if it should
	// default to the column key.
	Ref() string
	Width() string
	// Order returns the widget creation order.
	Order() uint64
	HTMLTitle() safehtml.HTML
	HTMLTitleAttr() string
	HTMLCellAttr() string
	HTMLCell(ctx CellContext) (safehtml.HTML, error)
}

// WidgetOption configures the common widget attributes.
type WidgetOption func(*BaseWidget)

// WithRef sets the reference path of the widget.
func WithRef(ref string) WidgetOption {
	return func(w *BaseWidget) {
		w.ref = ref
	}
}

// WithWidth sets a fixed column width, e.g. "120px".
func WithWidth(width string) WidgetOption {
	return func(w *BaseWidget) {
		w.width = width
	}
}

// WithTitleAttr sets extra attributes of the header cell.
func WithTitleAttr(attrs map[string]string) WidgetOption {
	return func(w *BaseWidget) {
		w.titleAttr = attrs
	}
}

// WithCellAttr sets extra attributes of every body cell.
func WithCellAttr(attrs map[string]string) WidgetOption {
	return func(w *BaseWidget) {
		w.cellAttr = attrs
	}
}

// BaseWidget carries the attributes shared by all widgets and renders values
// as escaped text.
type BaseWidget struct {
	label     string
	ref       string
	width     string
	titleAttr map[string]string
	cellAttr  map[string]string
	order     uint64
}

func newBaseWidget(label string, opts ...WidgetOption) BaseWidget {
	w := BaseWidget{
		label: label,
		order: _widgetCounter.Add(1),
	}

	for _, opt := range opts {
		opt(&w)
	}

	return w
}

func (w *BaseWidget) Label() string { return w.label }
func (w *BaseWidget) Ref() string   { return w.ref }
func (w *BaseWidget) Width() string { return w.width }
func (w *BaseWidget) Order() uint64 { return w.order }

// GetValue resolves path, or the widget reference when path is empty,
// against row. def is returned when nothing can be resolved.
func (w *BaseWidget) GetValue(row any, path string, def any) any {
	if path == "" {
		path = w.ref
	}

	if path == "" {
		return def
	}

	return GetValue(row, path, def)
}

func (w *BaseWidget) HTMLTitle() safehtml.HTML {
	return safehtml.HTMLEscaped(w.label)
}

func (w *BaseWidget) HTMLTitleAttr() string {
	return attrString(w.titleAttr)
}

func (w *BaseWidget) HTMLCellAttr() string {
	return attrString(w.cellAttr)
}

// HTMLCell renders the value as escaped text, or a non-breaking space when it
// is absent.
func (w *BaseWidget) HTMLCell(ctx CellContext) (safehtml.HTML, error) {
	return valueHTML(ctx.Value), nil
}

// LabelWidget renders the plain value.
type LabelWidget struct {
	BaseWidget
}

func NewLabelWidget(label string, opts ...WidgetOption) *LabelWidget {
	return &LabelWidget{BaseWidget: newBaseWidget(label, opts...)}
}

// attrString renders attributes as ` k="v"` pairs ordered by key.
func attrString(attrs map[string]string) string {
	if len(attrs) == 0 {
		return ""
	}

	keys := lo.Keys(attrs)
	slices.Sort(keys)

	var sb strings.Builder
	for _, key := range keys {
		fmt.Fprintf(&sb, ` %s="%s"`, html.EscapeString(key), html.EscapeString(attrs[key]))
	}

	return sb.String()
}

// valueHTML renders a resolved value. safehtml.HTML values are trusted,
// everything else is escaped.
func valueHTML(value any) safehtml.HTML {
	switch v := value.(type) {
	case nil:
		return nbsp
	case safehtml.HTML:
		return v
	}

	return safehtml.HTMLEscaped(valueText(value))
}

// valueText formats a resolved value as plain text. Materialized relations
// are joined with commas.
func valueText(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case []any:
		return strings.Join(lo.Map(v, func(item any, _ int) string { return valueText(item) }), ", ")
	default:
		return fmt.Sprint(v)
	}
}

var (
	_ Widget = (*BaseWidget)(nil)
	_ Widget = (*LabelWidget)(nil)
)
