// Package htmlrender renders tables with safehtml templates. The default
// templates are embedded; applications may override any of them by name.
package htmlrender

import (
	"embed"
	"fmt"
	"reflect"

	"github.com/Masterminds/sprig/v3"
	"github.com/dustin/go-humanize"
	"github.com/google/safehtml"
	"github.com/google/safehtml/template"

	"github.com/Alp4ka/gotable"
)

//go:embed templates/*
var templateFS embed.FS

// Option configures an Engine.
type Option func(*Engine)

// WithFS parses the templates matching patterns from fsys after the
// defaults, so a template with a default name replaces it.
func WithFS(fsys template.TrustedFS, patterns ...string) Option {
	return func(e *Engine) {
		e.overrides = append(e.overrides, source{fsys: fsys, patterns: patterns})
	}
}

// WithFuncs adds template functions.
func WithFuncs(funcs template.FuncMap) Option {
	return func(e *Engine) {
		for name, fn := range funcs {
			e.funcs[name] = fn
		}
	}
}

type source struct {
	fsys     template.TrustedFS
	patterns []string
}

// Engine is a gotable.HTMLRenderer over a template set.
type Engine struct {
	tmpl      *template.Template
	funcs     template.FuncMap
	overrides []source
}

// New parses the embedded templates and the overrides.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{funcs: defaultFuncs()}
	for _, opt := range opts {
		opt(e)
	}

	tmpl, err := template.New("gotable").
		Funcs(e.funcs).
		ParseFS(template.TrustedFSFromEmbed(templateFS), "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse default templates: %w", err)
	}

	for _, src := range e.overrides {
		if tmpl, err = tmpl.ParseFS(src.fsys, src.patterns...); err != nil {
			return nil, fmt.Errorf("parse templates %v: %w", src.patterns, err)
		}
	}
	e.tmpl = tmpl

	return e, nil
}

// Must is New that panics on error.
func Must(opts ...Option) *Engine {
	e, err := New(opts...)
	if err != nil {
		panic(err)
	}

	return e
}

func (e *Engine) RenderHTML(name string, data any) (safehtml.HTML, error) {
	if e.tmpl.Lookup(name) == nil {
		return safehtml.HTML{}, fmt.Errorf("template '%s' is not defined", name)
	}

	return e.tmpl.ExecuteTemplateToHTML(name, data)
}

func defaultFuncs() template.FuncMap {
	funcs := template.FuncMap(sprig.GenericFuncMap())
	funcs["args"] = gotable.Args
	funcs["comma"] = humanize.Comma
	funcs["boolState"] = boolState

	return funcs
}

// boolState classifies a cell value as "yes", "no" or "none" (nil).
func boolState(v any) string {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return "none"
		}
		rv = rv.Elem()
	}

	switch {
	case !rv.IsValid():
		return "none"
	case rv.Kind() == reflect.Bool:
		if rv.Bool() {
			return "yes"
		}
		return "no"
	case rv.IsZero():
		return "no"
	default:
		return "yes"
	}
}

var _ gotable.HTMLRenderer = (*Engine)(nil)
