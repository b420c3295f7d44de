package gotable

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/google/safehtml"
	"github.com/google/safehtml/uncheckedconversions"
	"github.com/samber/lo"
	"golang.org/x/net/html"
)

var _lineBreaks = regexp.MustCompile(`\n\r|\r\n|\r|\n`)

// CellTitle is a column header as seen by one controller.
type CellTitle struct {
	Key    string
	Column *Column

	sortable  bool
	sorted    bool
	asc       bool
	permanent bool
	visible   bool
}

func (t *CellTitle) IsSortable() bool  { return t.sortable }
func (t *CellTitle) IsSorted() bool    { return t.sorted }
func (t *CellTitle) IsAsc() bool       { return t.sorted && t.asc }
func (t *CellTitle) IsPermanent() bool { return t.permanent }
func (t *CellTitle) IsVisible() bool   { return t.visible }

func (t *CellTitle) HTMLTitle() safehtml.HTML {
	return t.Column.Widget.HTMLTitle()
}

func (t *CellTitle) HTMLTitleAttr() string {
	return t.Column.Widget.HTMLTitleAttr()
}

// SortSpec returns the sort specification selecting this column, toggling
// the direction when the column is already sorted ascending.
func (t *CellTitle) SortSpec() string {
	return FormatSortSpec(t.Key, !t.IsAsc())
}

// TH renders the header cell. Sortable titles link to the sort toggle of
// the column within query.
func (t *CellTitle) TH(query url.Values) safehtml.HTML {
	classes := make([]string, 0, 3)
	if t.sortable {
		classes = append(classes, "sortable")
	}

	if t.sorted {
		classes = append(classes, "sorted", lo.Ternary(t.asc, "asc", "desc"))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `<th data-key="%s"`, html.EscapeString(t.Key))
	if len(classes) > 0 {
		fmt.Fprintf(&sb, ` class="%s"`, strings.Join(classes, " "))
	}

	if width := t.Column.Widget.Width(); width != "" {
		fmt.Fprintf(&sb, ` style="width: %s"`, html.EscapeString(width))
	}
	sb.WriteString(t.HTMLTitleAttr())
	sb.WriteString(">")
	if t.sortable {
		fmt.Fprintf(&sb, `<a href="%s">%s</a>`, html.EscapeString(Args(query, ParamSortBy, t.SortSpec())), t.HTMLTitle())
	} else {
		sb.WriteString(t.HTMLTitle().String())
	}
	sb.WriteString("</th>")

	return uncheckedconversions.HTMLFromStringKnownToSatisfyTypeContract(sb.String())
}

// Text returns the title without markup.
func (t *CellTitle) Text() string {
	return titleText(t.Column)
}

// BoundRow is a data row bound to the visible columns of a controller.
type BoundRow struct {
	// Index is the 1-based position of the row on the page.
	Index int
	Row   any

	view    *TableView
	columns []*Column
	base    CellContext
}

func newBoundRow(view *TableView, columns []*Column, base CellContext, index int, row any) *BoundRow {
	return &BoundRow{
		Index:   index,
		Row:     row,
		view:    view,
		columns: columns,
		base:    base,
	}
}

// ID returns the html id of the row: <table id>_row_<index>.
func (r *BoundRow) ID() string {
	return fmt.Sprintf("%s_row_%d", lo.CoalesceOrEmpty(r.view.ID(), "table"), r.Index)
}

// Class returns the css class of the row.
func (r *BoundRow) Class() string {
	return r.view.RowClass(r.Row)
}

// Cells returns the cells of the row in column order.
func (r *BoundRow) Cells() []*BoundCell {
	return lo.Map(r.columns, func(col *Column, _ int) *BoundCell {
		return &BoundCell{row: r, Column: col}
	})
}

// BoundCell is one cell of a bound row.
type BoundCell struct {
	Column *Column

	row      *BoundRow
	ctx      CellContext
	resolved bool
}

// ID returns the column key.
func (c *BoundCell) ID() string {
	return c.Column.Key
}

// Context returns the cell context, resolving the value on first use.
func (c *BoundCell) Context() CellContext {
	if !c.resolved {
		c.ctx = c.row.base
		c.ctx.Index = c.row.Index
		c.ctx.Key = c.Column.Key
		c.ctx.Row = c.row.Row
		c.ctx.Value = c.Column.Value(c.row.Row)
		c.resolved = true
	}

	return c.ctx
}

func (c *BoundCell) Class() string {
	if c.Column.CellClass == nil {
		return ""
	}

	return c.Column.CellClass(c.Context())
}

func (c *BoundCell) Style() safehtml.Style {
	if c.Column.CellStyle == nil {
		return safehtml.Style{}
	}

	return c.Column.CellStyle(c.Context())
}

func (c *BoundCell) HTMLCellAttr() string {
	return c.Column.Widget.HTMLCellAttr()
}

// HTML renders the cell content.
func (c *BoundCell) HTML() (safehtml.HTML, error) {
	if c.Column.Render != nil {
		return c.Column.Render(c.Context()), nil
	}

	out, err := c.Column.Widget.HTMLCell(c.Context())
	if err != nil {
		return safehtml.HTML{}, fmt.Errorf("render cell %s of row %d: %w", c.Column.Key, c.row.Index, err)
	}

	return out, nil
}

// TD renders the whole data cell.
func (c *BoundCell) TD() (safehtml.HTML, error) {
	content, err := c.HTML()
	if err != nil {
		return safehtml.HTML{}, err
	}

	var sb strings.Builder
	sb.WriteString("<td")
	if class := c.Class(); class != "" {
		fmt.Fprintf(&sb, ` class="%s"`, html.EscapeString(class))
	}

	if style := c.Style().String(); style != "" {
		fmt.Fprintf(&sb, ` style="%s"`, html.EscapeString(style))
	}
	sb.WriteString(c.HTMLCellAttr())
	sb.WriteString(">")
	sb.WriteString(content.String())
	sb.WriteString("</td>")

	return uncheckedconversions.HTMLFromStringKnownToSatisfyTypeContract(sb.String()), nil
}

// CSV returns the cell as CSV text: the RenderCSV callback, or the rendered
// cell with markup stripped and line breaks collapsed to spaces.
func (c *BoundCell) CSV() (string, error) {
	if c.Column.RenderCSV != nil {
		return c.Column.RenderCSV(c.Context()), nil
	}

	out, err := c.HTML()
	if err != nil {
		return "", err
	}

	return plainText(out.String()), nil
}

// plainText converts rendered html to single-line text.
func plainText(s string) string {
	s = strings.ReplaceAll(s, "&nbsp;", " ")

	return _lineBreaks.ReplaceAllString(stripTags(s), " ")
}

// stripTags drops markup from s and unescapes the remaining text.
func stripTags(s string) string {
	var (
		z  = html.NewTokenizer(strings.NewReader(s))
		sb strings.Builder
	)

	for {
		switch z.Next() {
		case html.ErrorToken:
			return sb.String()
		case html.TextToken:
			sb.Write(z.Text())
		}
	}
}
