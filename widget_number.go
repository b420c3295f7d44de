package gotable

import (
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/google/safehtml"
)

// NumberWidget renders numbers with thousands separators.
type NumberWidget struct {
	BaseWidget
	decimals int
}

func NewNumberWidget(label string, opts ...WidgetOption) *NumberWidget {
	return &NumberWidget{
		BaseWidget: newBaseWidget(label, opts...),
		decimals:   -1,
	}
}

// WithDecimals fixes the number of decimals of floating point values.
func (w *NumberWidget) WithDecimals(decimals int) *NumberWidget {
	w.decimals = decimals

	return w
}

func (w *NumberWidget) HTMLCell(ctx CellContext) (safehtml.HTML, error) {
	text, ok := w.format(ctx.Value)
	if !ok {
		return valueHTML(ctx.Value), nil
	}

	return safehtml.HTMLEscaped(text), nil
}

func (w *NumberWidget) format(value any) (string, bool) {
	switch v := value.(type) {
	case int:
		return humanize.Comma(int64(v)), true
	case int8:
		return humanize.Comma(int64(v)), true
	case int16:
		return humanize.Comma(int64(v)), true
	case int32:
		return humanize.Comma(int64(v)), true
	case int64:
		return humanize.Comma(v), true
	case uint:
		return humanize.Comma(int64(v)), true
	case uint8:
		return humanize.Comma(int64(v)), true
	case uint16:
		return humanize.Comma(int64(v)), true
	case uint32:
		return humanize.Comma(int64(v)), true
	case uint64:
		return humanize.Comma(int64(v)), true
	case float32:
		return w.formatFloat(float64(v)), true
	case float64:
		return w.formatFloat(v), true
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return "", false
		}

		return w.formatFloat(f), true
	default:
		return "", false
	}
}

func (w *NumberWidget) formatFloat(f float64) string {
	if w.decimals < 0 {
		return humanize.Commaf(f)
	}

	return humanize.CommafWithDigits(f, w.decimals)
}

var _ Widget = (*NumberWidget)(nil)
