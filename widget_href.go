package gotable

import (
	"github.com/google/safehtml"
	"github.com/google/safehtml/template"
)

// NoReverseMatchHref is rendered as the link target when the route of an
// HrefWidget cannot be reversed.
const NoReverseMatchHref = "#NoReverseMatch"

var _anchorTemplate = template.Must(template.New("anchor").Parse(`<a href="{{.Href}}">{{.Value}}</a>`))

type anchorData struct {
	Href  string
	Value safehtml.HTML
}

// HrefWidget renders the value as a link. The target is either a static href
// or a named route reversed with values of the row.
type HrefWidget struct {
	BaseWidget
	href           string
	route          string
	reverseColumns []string
}

func NewHrefWidget(label string, opts ...WidgetOption) *HrefWidget {
	return &HrefWidget{
		BaseWidget:     newBaseWidget(label, opts...),
		reverseColumns: []string{"id"},
	}
}

// WithHref sets a static link target.
func (w *HrefWidget) WithHref(href string) *HrefWidget {
	w.href = href

	return w
}

// WithReverse links to the named route. The route arguments are read from the
// given reference paths of the row, "id" when none are given.
func (w *HrefWidget) WithReverse(route string, columns ...string) *HrefWidget {
	w.route = route
	if len(columns) > 0 {
		w.reverseColumns = columns
	}

	return w
}

// Href returns the link target for the row of ctx.
func (w *HrefWidget) Href(ctx CellContext) string {
	if w.route == "" {
		return w.href
	}

	if ctx.Router == nil {
		return NoReverseMatchHref
	}

	args := make([]any, 0, len(w.reverseColumns))
	for _, column := range w.reverseColumns {
		args = append(args, w.GetValue(ctx.Row, column, nil))
	}

	href, err := ctx.Router.Reverse(w.route, args...)
	if err != nil {
		return NoReverseMatchHref
	}

	return href
}

func (w *HrefWidget) HTMLCell(ctx CellContext) (safehtml.HTML, error) {
	return anchor(w.Href(ctx), valueHTML(ctx.Value))
}

func anchor(href string, value safehtml.HTML) (safehtml.HTML, error) {
	return _anchorTemplate.ExecuteToHTML(anchorData{Href: href, Value: value})
}

// ConditionHrefWidget is an HrefWidget that renders the plain value instead of
// a link unless the row condition holds and the request user holds the
// required permission.
type ConditionHrefWidget struct {
	HrefWidget
	condition  func(row any, req Request) bool
	permission string
}

func NewConditionHrefWidget(label string, opts ...WidgetOption) *ConditionHrefWidget {
	return &ConditionHrefWidget{HrefWidget: *NewHrefWidget(label, opts...)}
}

// WithHref sets a static link target.
func (w *ConditionHrefWidget) WithHref(href string) *ConditionHrefWidget {
	w.HrefWidget.WithHref(href)

	return w
}

// WithReverse links to the named route, see HrefWidget.WithReverse.
func (w *ConditionHrefWidget) WithReverse(route string, columns ...string) *ConditionHrefWidget {
	w.HrefWidget.WithReverse(route, columns...)

	return w
}

// WithCondition sets the row predicate.
func (w *ConditionHrefWidget) WithCondition(condition func(row any, req Request) bool) *ConditionHrefWidget {
	w.condition = condition

	return w
}

// WithPermission requires the request user to hold the named permission.
func (w *ConditionHrefWidget) WithPermission(name string) *ConditionHrefWidget {
	w.permission = name

	return w
}

// IsLinked reports whether the row of ctx is rendered as a link.
func (w *ConditionHrefWidget) IsLinked(ctx CellContext) bool {
	if w.condition != nil && !w.condition(ctx.Row, ctx.Request) {
		return false
	}

	if w.permission != "" {
		if ctx.Request == nil || !ctx.Request.User().HasPermission(w.permission) {
			return false
		}
	}

	return true
}

func (w *ConditionHrefWidget) HTMLCell(ctx CellContext) (safehtml.HTML, error) {
	value := valueHTML(ctx.Value)
	if !w.IsLinked(ctx) {
		return value, nil
	}

	return anchor(w.Href(ctx), value)
}

var (
	_ Widget = (*HrefWidget)(nil)
	_ Widget = (*ConditionHrefWidget)(nil)
)
