package gotable

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type resolveTags []string

func (t resolveTags) All() []any {
	ret := make([]any, len(t))
	for i, tag := range t {
		ret[i] = tag
	}

	return ret
}

type resolveHost struct {
	Name string
}

type resolveRow struct {
	ID        uint
	Name      string
	CreatedAt string
	HostID    uint
	Code      string `gorm:"column:ext_code;size:16"`
	Comment   string `json:"note,omitempty"`
	Flag      *bool
	Host      *resolveHost
	Tags      resolveTags
	Attrs     map[string]any
	secret    string
}

func (r resolveRow) Label() string { return "#" + r.Name }

func (r *resolveRow) Upper() string { return "UP " + r.Name }

func (r resolveRow) Checked() (string, error) { return "ok", nil }

func (r resolveRow) Broken() (string, error) { return "", errors.New("broken") }

func Test_ResolvePath(t *testing.T) {
	flag := true
	row := resolveRow{
		ID:        7,
		Name:      "alpha",
		CreatedAt: "yesterday",
		HostID:    3,
		Code:      "X1",
		Comment:   "hello",
		Flag:      &flag,
		Host:      &resolveHost{Name: "h1"},
		Tags:      resolveTags{"red", "blue"},
		Attrs:     map[string]any{"color": "green", "nested": map[string]any{"deep": 1}},
		secret:    "hidden",
	}

	tests := []struct {
		name   string
		row    any
		path   string
		want   any
		wantOK bool
	}{
		{"exact field", row, "Name", "alpha", true},
		{"case-insensitive field", row, "name", "alpha", true},
		{"snake case field", row, "created_at", "yesterday", true},
		{"initialism", row, "host_id", uint(3), true},
		{"gorm column tag", row, "ext_code", "X1", true},
		{"json tag", row, "note", "hello", true},
		{"pointer leaf is dereferenced", row, "flag", true, true},
		{"relation", row, "host.name", "h1", true},
		{"legacy separator", row, "host__name", "h1", true},
		{"pointer row", &row, "host.name", "h1", true},
		{"value method", row, "label", "#alpha", true},
		{"pointer method on value", row, "upper", "UP alpha", true},
		{"method with nil error", row, "checked", "ok", true},
		{"method with error", row, "broken", nil, false},
		{"map key", row, "attrs.color", "green", true},
		{"nested map", row, "attrs.nested.deep", 1, true},
		{"missing map key", row, "attrs.size", nil, false},
		{"related set", row, "tags", []any{"red", "blue"}, true},
		{"unexported field", row, "secret", nil, false},
		{"unknown field", row, "missing", nil, false},
		{"nil relation", resolveRow{}, "host.name", nil, false},
		{"nil pointer leaf", resolveRow{}, "flag", nil, false},
		{"nil row", nil, "name", nil, false},
		{"empty path", row, "", nil, false},
		{"plain map row", map[string]any{"a": map[string]string{"b": "c"}}, "a.b", "c", true},
		{"scalar row", 5, "name", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ResolvePath(tt.row, tt.path)
			require.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func Test_GetValue(t *testing.T) {
	row := resolveRow{Name: "alpha"}

	assert.Equal(t, "alpha", GetValue(row, "name", "-"))
	assert.Equal(t, "-", GetValue(row, "host.name", "-"))
	assert.Equal(t, "-", GetValue(map[string]any{"x": nil}, "x", "-"))
}

func Test_SplitPath(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, SplitPath("a.b__c"))
	assert.Equal(t, []string{"a"}, SplitPath(".a."))
	assert.Empty(t, SplitPath(""))
}

func Test_snakeToCamel(t *testing.T) {
	tests := map[string]string{
		"created_stamp": "CreatedStamp",
		"id":            "ID",
		"host_id":       "HostID",
		"api_url":       "APIURL",
		"name":          "Name",
		"__x":           "X",
	}

	for in, want := range tests {
		assert.Equal(t, want, snakeToCamel(in), in)
	}
}

func Test_SearchField(t *testing.T) {
	tests := []struct {
		field string
		path  string
		op    LookupOp
	}{
		{"name", "name", LookupContains},
		{"^code", "code", LookupStartsWith},
		{"=email", "email", LookupExact},
		{"@body", "body", LookupSearch},
		{"$title", "title", LookupRegex},
		{" host.name ", "host.name", LookupContains},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			path, op := ParseSearchField(tt.field)
			require.Equal(t, tt.path, path)
			require.Equal(t, tt.op, op)
			require.True(t, op.Valid())
			require.True(t, op.IsText())

			formatted, err := FormatSearchField(path, op)
			require.NoError(t, err)

			reparsed, reop := ParseSearchField(formatted)
			assert.Equal(t, path, reparsed)
			assert.Equal(t, op, reop)
		})
	}

	_, err := FormatSearchField("id", LookupIn)
	require.ErrorIs(t, err, ErrUnsupportedPredicate)

	assert.False(t, LookupEq.IsText())
	assert.True(t, LookupIn.Valid())
	assert.False(t, LookupOp("gt").Valid())
}
