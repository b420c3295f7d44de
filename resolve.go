package gotable

import (
	"reflect"
	"strings"
	"unicode"
)

// RelatedSet is implemented by to-many relation handles. ResolvePath
// materializes them instead of returning the handle itself.
type RelatedSet interface {
	All() []any
}

var _errorType = reflect.TypeOf((*error)(nil)).Elem()

// ResolvePath resolves a dot-separated reference path against row. The legacy
// "__" separator is accepted as well.
//
// Each hop is looked up as, in order:
//   - a key of a map with string keys;
//   - an exported zero-argument method (its first result is used; a non-nil
//     trailing error result makes the hop missing);
//   - an exported struct field, matched exactly, case-insensitively, from
//     snake_case to CamelCase, or by its gorm column or json tag.
//
// Missing hops and nil pointers or interfaces short-circuit to (nil, false).
func ResolvePath(row any, path string) (any, bool) {
	if row == nil || path == "" {
		return nil, false
	}

	current := reflect.ValueOf(row)
	for _, hop := range SplitPath(path) {
		next, ok := resolveHop(current, hop)
		if !ok {
			return nil, false
		}

		current = next
	}

	current, ok := indirect(current)
	if !ok {
		return nil, false
	}

	if related, ok := current.Interface().(RelatedSet); ok {
		return related.All(), true
	}

	for current.Kind() == reflect.Pointer && !current.IsNil() {
		current = current.Elem()
	}

	return current.Interface(), true
}

// GetValue resolves path against row, returning def when it cannot be
// resolved or resolves to nil.
func GetValue(row any, path string, def any) any {
	value, ok := ResolvePath(row, path)
	if !ok || value == nil {
		return def
	}

	return value
}

// SplitPath splits a reference path into hops.
func SplitPath(path string) []string {
	path = strings.ReplaceAll(path, "__", ".")

	return strings.FieldsFunc(path, func(r rune) bool { return r == '.' })
}

// indirect dereferences interfaces until a concrete value is reached. Pointers
// are kept so that method sets stay intact, but nil ones are rejected.
func indirect(v reflect.Value) (reflect.Value, bool) {
	for v.IsValid() && v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Value{}, false
		}

		v = v.Elem()
	}

	if !v.IsValid() {
		return reflect.Value{}, false
	}

	if v.Kind() == reflect.Pointer && v.IsNil() {
		return reflect.Value{}, false
	}

	return v, true
}

func resolveHop(v reflect.Value, name string) (reflect.Value, bool) {
	v, ok := indirect(v)
	if !ok {
		return reflect.Value{}, false
	}

	if v.Kind() == reflect.Map {
		if v.Type().Key().Kind() != reflect.String {
			return reflect.Value{}, false
		}

		item := v.MapIndex(reflect.ValueOf(name).Convert(v.Type().Key()))
		if !item.IsValid() {
			return reflect.Value{}, false
		}

		return item, true
	}

	if result, ok := callMethod(v, name); ok {
		return result, true
	}

	for v.Kind() == reflect.Pointer {
		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		return reflect.Value{}, false
	}

	field, ok := findField(v.Type(), name)
	if !ok {
		return reflect.Value{}, false
	}

	value, err := v.FieldByIndexErr(field.Index)
	if err != nil {
		return reflect.Value{}, false
	}

	return value, true
}

func callMethod(v reflect.Value, name string) (reflect.Value, bool) {
	// Pointer receivers are only reachable through an addressable value.
	if v.Kind() != reflect.Pointer {
		if v.CanAddr() {
			v = v.Addr()
		} else {
			ptr := reflect.New(v.Type())
			ptr.Elem().Set(v)
			v = ptr
		}
	}

	for _, candidate := range nameCandidates(name) {
		method := v.MethodByName(candidate)
		if !method.IsValid() {
			continue
		}

		mt := method.Type()
		if mt.NumIn() != 0 || mt.NumOut() == 0 || mt.NumOut() > 2 {
			continue
		}

		if mt.NumOut() == 2 && !mt.Out(1).Implements(_errorType) {
			continue
		}

		out := method.Call(nil)
		if len(out) == 2 && !out[1].IsNil() {
			return reflect.Value{}, false
		}

		return out[0], true
	}

	return reflect.Value{}, false
}

func findField(t reflect.Type, name string) (reflect.StructField, bool) {
	fields := reflect.VisibleFields(t)
	candidates := nameCandidates(name)

	for _, candidate := range candidates {
		for _, f := range fields {
			if f.IsExported() && !f.Anonymous && f.Name == candidate {
				return f, true
			}
		}
	}

	for _, f := range fields {
		if !f.IsExported() || f.Anonymous {
			continue
		}

		if strings.EqualFold(f.Name, name) || tagName(f) == name {
			return f, true
		}
	}

	return reflect.StructField{}, false
}

// tagName returns the column name from a gorm tag, or the json name.
func tagName(f reflect.StructField) string {
	for _, part := range strings.Split(f.Tag.Get("gorm"), ";") {
		if column, ok := strings.CutPrefix(strings.TrimSpace(part), "column:"); ok {
			return column
		}
	}

	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}

	return name
}

// nameCandidates returns the exact name and its CamelCase spelling.
func nameCandidates(name string) []string {
	camel := snakeToCamel(name)
	if camel == name {
		return []string{name}
	}

	return []string{name, camel}
}

// snakeToCamel converts "created_stamp" to "CreatedStamp" and "id" to "ID".
func snakeToCamel(name string) string {
	var sb strings.Builder
	for _, part := range strings.Split(name, "_") {
		if part == "" {
			continue
		}

		if _commonInitialisms[strings.ToUpper(part)] {
			sb.WriteString(strings.ToUpper(part))
			continue
		}

		runes := []rune(part)
		runes[0] = unicode.ToUpper(runes[0])
		sb.WriteString(string(runes))
	}

	return sb.String()
}

var _commonInitialisms = map[string]bool{
	"ID":   true,
	"URL":  true,
	"URI":  true,
	"UUID": true,
	"IP":   true,
	"HTML": true,
	"JSON": true,
	"API":  true,
	"SQL":  true,
}
