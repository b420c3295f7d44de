package gotable

import (
	"database/sql"
	"time"

	"github.com/araddon/dateparse"
	"github.com/google/safehtml"
)

const (
	DefaultDateTimeLayout = "02/01/06 15:04"
	DefaultDateLayout     = "02/01/06"
	// DefaultLocalDateTimeLayout is used by LocalDateTimeWidget.
	DefaultLocalDateTimeLayout = "Jan. 2, 2006, 15:04"
)

// DateTimeWidget renders time values with a layout. Without an explicit
// layout, values at midnight are rendered as dates and everything else as
// date and time.
type DateTimeWidget struct {
	BaseWidget
	layout string
}

func NewDateTimeWidget(label string, opts ...WidgetOption) *DateTimeWidget {
	return &DateTimeWidget{BaseWidget: newBaseWidget(label, opts...)}
}

// WithLayout sets a fixed time layout.
func (w *DateTimeWidget) WithLayout(layout string) *DateTimeWidget {
	w.layout = layout

	return w
}

// Layout returns the layout used for t.
func (w *DateTimeWidget) Layout(t time.Time) string {
	if w.layout != "" {
		return w.layout
	}

	if isMidnight(t) {
		return DefaultDateLayout
	}

	return DefaultDateTimeLayout
}

func (w *DateTimeWidget) HTMLCell(ctx CellContext) (safehtml.HTML, error) {
	t, ok := asTime(ctx.Value, time.UTC)
	if !ok {
		return nbsp, nil
	}

	return safehtml.HTMLEscaped(t.Format(w.Layout(t))), nil
}

// LocalDateTimeWidget converts time values to the request time zone, or to a
// fixed location when one is set, before rendering them.
type LocalDateTimeWidget struct {
	BaseWidget
	layout   string
	location *time.Location
}

func NewLocalDateTimeWidget(label string, opts ...WidgetOption) *LocalDateTimeWidget {
	return &LocalDateTimeWidget{
		BaseWidget: newBaseWidget(label, opts...),
		layout:     DefaultLocalDateTimeLayout,
	}
}

// WithLayout sets the time layout.
func (w *LocalDateTimeWidget) WithLayout(layout string) *LocalDateTimeWidget {
	w.layout = layout

	return w
}

// WithLocation pins the time zone, ignoring the request one.
func (w *LocalDateTimeWidget) WithLocation(loc *time.Location) *LocalDateTimeWidget {
	w.location = loc

	return w
}

func (w *LocalDateTimeWidget) HTMLCell(ctx CellContext) (safehtml.HTML, error) {
	loc := w.location
	if loc == nil && ctx.Request != nil {
		loc = ctx.Request.Location()
	}

	if loc == nil {
		loc = time.Local
	}

	t, ok := asTime(ctx.Value, loc)
	if !ok {
		return nbsp, nil
	}

	return safehtml.HTMLEscaped(t.In(loc).Format(w.layout)), nil
}

// asTime converts supported values to a non-zero time. Strings are parsed in
// loc when they carry no zone of their own.
func asTime(value any, loc *time.Location) (time.Time, bool) {
	var t time.Time

	switch v := value.(type) {
	case time.Time:
		t = v
	case *time.Time:
		if v == nil {
			return time.Time{}, false
		}
		t = *v
	case sql.NullTime:
		if !v.Valid {
			return time.Time{}, false
		}
		t = v.Time
	case string:
		if v == "" {
			return time.Time{}, false
		}

		parsed, err := dateparse.ParseIn(v, loc)
		if err != nil {
			return time.Time{}, false
		}
		t = parsed
	default:
		return time.Time{}, false
	}

	return t, !t.IsZero()
}

func isMidnight(t time.Time) bool {
	return t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0
}

var (
	_ Widget = (*DateTimeWidget)(nil)
	_ Widget = (*LocalDateTimeWidget)(nil)
)
