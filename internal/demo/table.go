package demo

import (
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/google/safehtml"
	"github.com/google/safehtml/uncheckedconversions"
	"github.com/spf13/cast"
	"golang.org/x/net/html"
	"gorm.io/gorm"

	"github.com/Alp4ka/gotable"
)

// EventsTableID is the instance id of the events table.
const EventsTableID = "events"

// EventsTable is the sample table type.
var EventsTable = gotable.MustDeclare([]*gotable.Column{
	{Key: "id", Widget: gotable.NewNumberWidget("#", gotable.WithWidth("60px"))},
	{Key: "title", Widget: gotable.NewLabelWidget("Title")},
	{Key: "kind", Widget: gotable.NewLabelWidget("Kind")},
	{
		Key:    "severity",
		Widget: gotable.NewNumberWidget("Severity"),
		CellClass: func(ctx gotable.CellContext) string {
			if severity, err := cast.ToIntE(ctx.Value); err == nil && severity >= 3 {
				return "severity-high"
			}

			return ""
		},
	},
	{Key: "host", Widget: gotable.NewLabelWidget("Host", gotable.WithRef("host.name"))},
	{Key: "acknowledged", Widget: gotable.NewBooleanWidget("Acknowledged").WithNullable()},
	{Key: "happened_at", Widget: gotable.NewDateTimeWidget("Happened at").WithLayout("2006-01-02 15:04")},
}, gotable.Meta{
	Title:          "Events",
	Sortable:       []string{"id", "title", "kind", "severity", "host", "happened_at"},
	Permanent:      gotable.Keys("title"),
	DefaultVisible: gotable.Keys("id", "title", "kind", "severity", "host", "happened_at"),
	Search:         []string{"title", "^kind", "host.name"},
	FilterForm:     newEventFilterForm,
	ApplyFilter:    applyEventFilter,
	CSVAllow:       true,
	RowClass: func(row any) string {
		if event, ok := row.(*Event); ok && event.Acknowledged == nil {
			return "pending"
		}

		return ""
	},
	AjaxFuncs: map[string]gotable.AjaxFunc{
		"kinds": func(gotable.Request) (gotable.Response, error) {
			return gotable.JSON(Kinds), nil
		},
	},
})

// NewEventSource returns the data source of the events table.
func NewEventSource(db *gorm.DB) *gotable.GormSource[Event] {
	return gotable.NewGormSource[Event](db).
		WithKey("events.id").
		WithColumns(gotable.ColumnMapping{
			"id":           "events.id",
			"title":        "events.title",
			"kind":         "events.kind",
			"severity":     "events.severity",
			"acknowledged": "events.acknowledged",
			"happened_at":  "events.happened_at",
			"host.name":    "host.name",
		}).
		WithRelation("host", "LEFT JOIN hosts AS host ON host.id = events.host_id", false).
		WithPreload("Host")
}

const (
	filterKind        = "kind"
	filterSeverityMin = "severity_min"
)

func applyEventFilter(filter map[string]any, src gotable.DataSource) gotable.DataSource {
	if kind, ok := filter[filterKind].(string); ok && kind != "" {
		src = src.Filter(gotable.Eq("kind", kind))
	}

	if raw, ok := filter[filterSeverityMin]; ok {
		if severity, err := cast.ToIntE(raw); err == nil {
			src = src.Filter(gotable.Where{SQL: "events.severity >= ?", Args: []any{severity}})
		}
	}

	return src
}

// eventFilterForm filters by kind and minimal severity.
type eventFilterForm struct {
	values map[string]any
	errs   map[string]string
}

func newEventFilterForm(_ gotable.Request, _ gotable.DataSource, initial map[string]any) gotable.FilterForm {
	values := make(map[string]any, len(initial))
	for k, v := range initial {
		values[k] = v
	}

	return &eventFilterForm{values: values, errs: map[string]string{}}
}

func (f *eventFilterForm) Validate(data url.Values) (map[string]any, bool) {
	cleaned := map[string]any{}
	f.errs = map[string]string{}

	if kind := strings.TrimSpace(data.Get(filterKind)); kind != "" {
		if !slices.Contains(Kinds, kind) {
			f.errs[filterKind] = fmt.Sprintf("unknown kind %q", kind)
		}
		cleaned[filterKind] = kind
	}

	if raw := strings.TrimSpace(data.Get(filterSeverityMin)); raw != "" {
		severity, err := strconv.Atoi(raw)
		if err != nil || severity < 0 {
			f.errs[filterSeverityMin] = "severity must be a non-negative number"
		}
		cleaned[filterSeverityMin] = severity
	}

	f.values = cleaned

	return cleaned, len(f.errs) == 0
}

// Errors returns the validation errors by field.
func (f *eventFilterForm) Errors() map[string]string {
	return f.errs
}

func (f *eventFilterForm) HTML() safehtml.HTML {
	var sb strings.Builder

	kind, _ := f.values[filterKind].(string)
	fmt.Fprintf(&sb, `<label>Kind <select name="%s"><option value="">any</option>`, filterKind)
	for _, k := range Kinds {
		selected := ""
		if k == kind {
			selected = " selected"
		}
		fmt.Fprintf(&sb, `<option value="%s"%s>%s</option>`, html.EscapeString(k), selected, html.EscapeString(k))
	}
	sb.WriteString(`</select></label>`)

	severity := ""
	if raw, ok := f.values[filterSeverityMin]; ok {
		severity = cast.ToString(raw)
	}
	fmt.Fprintf(&sb, `<label>Min severity <input type="number" name="%s" value="%s"></label>`, filterSeverityMin, html.EscapeString(severity))

	for _, field := range []string{filterKind, filterSeverityMin} {
		if msg, ok := f.errs[field]; ok {
			fmt.Fprintf(&sb, `<span class="error">%s</span>`, html.EscapeString(msg))
		}
	}

	return uncheckedconversions.HTMLFromStringKnownToSatisfyTypeContract(sb.String())
}

var _ gotable.HTMLFilterForm = (*eventFilterForm)(nil)
