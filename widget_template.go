package gotable

import (
	"fmt"

	"github.com/google/safehtml"
)

// BooleanTemplate is the template rendered by BooleanWidget.
const BooleanTemplate = "boolean.html"

// TemplateCellData is the data handed to cell templates.
type TemplateCellData struct {
	Item    any
	Value   any
	Index   int
	Request Request
	// Nullable is set by BooleanWidget: a nil value is shown as unknown
	// instead of false.
	Nullable bool
}

// TemplateWidget delegates cell rendering to a named template.
type TemplateWidget struct {
	BaseWidget
	template string
	nullable bool
}

func NewTemplateWidget(label, template string, opts ...WidgetOption) *TemplateWidget {
	return &TemplateWidget{
		BaseWidget: newBaseWidget(label, opts...),
		template:   template,
	}
}

// Template returns the template name.
func (w *TemplateWidget) Template() string {
	return w.template
}

func (w *TemplateWidget) HTMLCell(ctx CellContext) (safehtml.HTML, error) {
	if ctx.Renderer == nil {
		return safehtml.HTML{}, fmt.Errorf("render cell template '%s': %w", w.template, ErrRendererMissing)
	}

	out, err := ctx.Renderer.RenderHTML(w.template, TemplateCellData{
		Item:     ctx.Row,
		Value:    ctx.Value,
		Index:    ctx.Index,
		Request:  ctx.Request,
		Nullable: w.nullable,
	})
	if err != nil {
		return safehtml.HTML{}, fmt.Errorf("render cell template '%s': %w", w.template, err)
	}

	return out, nil
}

// BooleanWidget renders boolean values through BooleanTemplate.
type BooleanWidget struct {
	TemplateWidget
}

func NewBooleanWidget(label string, opts ...WidgetOption) *BooleanWidget {
	return &BooleanWidget{TemplateWidget: *NewTemplateWidget(label, BooleanTemplate, opts...)}
}

// WithNullable renders a nil value as unknown rather than false.
func (w *BooleanWidget) WithNullable() *BooleanWidget {
	w.nullable = true

	return w
}

// Nullable reports whether nil values are rendered as unknown.
func (w *BooleanWidget) Nullable() bool {
	return w.nullable
}

var (
	_ Widget = (*TemplateWidget)(nil)
	_ Widget = (*BooleanWidget)(nil)
)
