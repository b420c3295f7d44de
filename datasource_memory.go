package gotable

import (
	"cmp"
	"context"
	"fmt"
	"iter"
	"reflect"
	"regexp"
	"slices"
	"sort"
	"strings"
	"time"
)

type memFilter func(row any) bool

type memOrder struct {
	ref string
	asc bool
}

// memQuery holds the filter, order and window state shared by the in-memory
// sources.
type memQuery struct {
	filters  []memFilter
	order    *memOrder
	key      string
	window   *Window
	distinct bool
	err      error
}

func (q *memQuery) addCondition(p Predicate, negate bool) {
	if q.err != nil {
		return
	}

	f, err := compileMemFilter(p)
	if err != nil {
		q.err = fmt.Errorf("build condition: %w", err)
		return
	}

	if negate {
		q.filters = append(q.filters, func(row any) bool { return !f(row) })
		return
	}
	q.filters = append(q.filters, f)
}

func (q *memQuery) setLimit(start, end int) {
	if q.err != nil {
		return
	}

	window := NewWindow(start, end)
	if err := window.validate(); err != nil {
		q.err = fmt.Errorf("set limit: %w", err)
		return
	}
	q.window = window
}

func (q *memQuery) clone() memQuery {
	ret := *q
	ret.filters = slices.Clone(q.filters)
	if q.order != nil {
		order := *q.order
		ret.order = &order
	}
	if q.window != nil {
		window := *q.window
		ret.window = &window
	}

	return ret
}

func (q *memQuery) match(row any) bool {
	for _, f := range q.filters {
		if !f(row) {
			return false
		}
	}

	return true
}

// run evaluates the query over seq. Unordered queries stream and stop at the
// end of the window; ordered ones are materialized and sorted first.
func (q *memQuery) run(ctx context.Context, seq iter.Seq[any]) ([]any, error) {
	if q.err != nil {
		return nil, q.err
	}

	seen := make(map[any]struct{})
	accept := func(row any) bool {
		if !q.match(row) {
			return false
		}

		if !q.distinct {
			return true
		}

		id := identity(row, q.key)
		if id == nil {
			return true
		}

		if _, ok := seen[id]; ok {
			return false
		}
		seen[id] = struct{}{}

		return true
	}

	if q.order == nil {
		offset := q.window.GetOffset()
		limit := q.window.GetDatasetLimit()

		var ret []any
		skipped := 0
		for row := range seq {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			if limit != NoEnd && len(ret) >= limit {
				break
			}

			if !accept(row) {
				continue
			}

			if skipped < offset {
				skipped++
				continue
			}

			ret = append(ret, row)
		}

		return ret, nil
	}

	var rows []any
	for row := range seq {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if accept(row) {
			rows = append(rows, row)
		}
	}

	ref, asc, key := q.order.ref, q.order.asc, q.key
	sort.SliceStable(rows, func(i, j int) bool {
		a, _ := ResolvePath(rows[i], ref)
		b, _ := ResolvePath(rows[j], ref)
		if c := compareValues(a, b); c != 0 {
			return (c < 0) == asc
		}

		// Tiebreaker.
		a, _ = ResolvePath(rows[i], key)
		b, _ = ResolvePath(rows[j], key)

		return compareValues(a, b) < 0
	})

	from, to := q.window.Bounds(len(rows))

	return rows[from:to], nil
}

// SliceSource is a DataSource over an in-memory row slice.
type SliceSource struct {
	memQuery
	rows []any
}

// NewSliceSource returns a source over rows. The slice is not copied.
func NewSliceSource[S ~[]E, E any](rows S) *SliceSource {
	items := make([]any, len(rows))
	for i := range rows {
		items[i] = rows[i]
	}

	return &SliceSource{
		memQuery: memQuery{key: DefaultKeyColumn},
		rows:     items,
	}
}

// WithKey sets the reference path of the row identity.
func (s *SliceSource) WithKey(path string) *SliceSource {
	s.key = path

	return s
}

// Filter - implements DataSource.
func (s *SliceSource) Filter(p Predicate) DataSource {
	s.addCondition(p, false)

	return s
}

// Exclude - implements DataSource.
func (s *SliceSource) Exclude(p Predicate) DataSource {
	s.addCondition(p, true)

	return s
}

// SetOrder - implements DataSource.
func (s *SliceSource) SetOrder(ref string, asc bool) DataSource {
	s.order = &memOrder{ref: ref, asc: asc}

	return s
}

// SetLimit - implements DataSource.
func (s *SliceSource) SetLimit(start, end int) DataSource {
	s.setLimit(start, end)

	return s
}

// Distinct - implements DataSource. In-memory rows are never multiplied by
// joins, so rows are de-duplicated by key in place.
func (s *SliceSource) Distinct(DataSource) DataSource {
	s.distinct = true

	return s
}

// CrossesToMany - implements DataSource.
func (s *SliceSource) CrossesToMany(string) bool {
	return false
}

// Rows - implements DataSource.
func (s *SliceSource) Rows(ctx context.Context) ([]any, error) {
	return s.run(ctx, slices.Values(s.rows))
}

// Count - implements Counter.
func (s *SliceSource) Count(ctx context.Context) (int64, error) {
	rows, err := s.Rows(ctx)
	if err != nil {
		return 0, err
	}

	return int64(len(rows)), nil
}

// Clone - implements DataSource.
func (s *SliceSource) Clone() DataSource {
	return &SliceSource{memQuery: s.clone(), rows: s.rows}
}

// Err - implements DataSource.
func (s *SliceSource) Err() error {
	return s.err
}

// SeqSource is a DataSource over rows produced by an iterator. It has no
// native count. The iterator is ranged over once per Rows call and must be
// restartable.
type SeqSource struct {
	memQuery
	seq iter.Seq[any]
}

func NewSeqSource(seq iter.Seq[any]) *SeqSource {
	return &SeqSource{
		memQuery: memQuery{key: DefaultKeyColumn},
		seq:      seq,
	}
}

// WithKey sets the reference path of the row identity.
func (s *SeqSource) WithKey(path string) *SeqSource {
	s.key = path

	return s
}

// Filter - implements DataSource.
func (s *SeqSource) Filter(p Predicate) DataSource {
	s.addCondition(p, false)

	return s
}

// Exclude - implements DataSource.
func (s *SeqSource) Exclude(p Predicate) DataSource {
	s.addCondition(p, true)

	return s
}

// SetOrder - implements DataSource.
func (s *SeqSource) SetOrder(ref string, asc bool) DataSource {
	s.order = &memOrder{ref: ref, asc: asc}

	return s
}

// SetLimit - implements DataSource.
func (s *SeqSource) SetLimit(start, end int) DataSource {
	s.setLimit(start, end)

	return s
}

// Distinct - implements DataSource.
func (s *SeqSource) Distinct(DataSource) DataSource {
	s.distinct = true

	return s
}

// CrossesToMany - implements DataSource.
func (s *SeqSource) CrossesToMany(string) bool {
	return false
}

// Rows - implements DataSource.
func (s *SeqSource) Rows(ctx context.Context) ([]any, error) {
	return s.run(ctx, s.seq)
}

// Clone - implements DataSource.
func (s *SeqSource) Clone() DataSource {
	return &SeqSource{memQuery: s.clone(), seq: s.seq}
}

// Err - implements DataSource.
func (s *SeqSource) Err() error {
	return s.err
}

var (
	_ DataSource = (*SliceSource)(nil)
	_ Counter    = (*SliceSource)(nil)
	_ DataSource = (*SeqSource)(nil)
)

func compileMemFilter(p Predicate) (memFilter, error) {
	switch v := p.(type) {
	case Lookup:
		return compileLookup(v)
	case AnyOf:
		filters, err := compileMemFilters(v)
		if err != nil {
			return nil, err
		}

		if len(filters) == 0 {
			return func(any) bool { return true }, nil
		}

		return func(row any) bool {
			return slices.ContainsFunc(filters, func(f memFilter) bool { return f(row) })
		}, nil
	case AllOf:
		filters, err := compileMemFilters(v)
		if err != nil {
			return nil, err
		}

		return func(row any) bool {
			return !slices.ContainsFunc(filters, func(f memFilter) bool { return !f(row) })
		}, nil
	case Match:
		return memFilter(v), nil
	default:
		return nil, fmt.Errorf("%w: %T on an in-memory source", ErrUnsupportedPredicate, p)
	}
}

func compileMemFilters(ps []Predicate) ([]memFilter, error) {
	filters := make([]memFilter, 0, len(ps))
	for _, p := range ps {
		f, err := compileMemFilter(p)
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}

	return filters, nil
}

func compileLookup(l Lookup) (memFilter, error) {
	var test func(value any) bool

	needle := strings.ToLower(textValue(l.Value))
	switch l.Op {
	case LookupContains, LookupSearch:
		test = func(value any) bool { return strings.Contains(strings.ToLower(valueText(value)), needle) }
	case LookupStartsWith:
		test = func(value any) bool { return strings.HasPrefix(strings.ToLower(valueText(value)), needle) }
	case LookupExact:
		test = func(value any) bool { return strings.ToLower(valueText(value)) == needle }
	case LookupRegex:
		re, err := regexp.Compile("(?i)" + textValue(l.Value))
		if err != nil {
			return nil, fmt.Errorf("compile regex lookup on '%s': %w", l.Path, err)
		}
		test = func(value any) bool { return re.MatchString(valueText(value)) }
	case LookupEq:
		test = func(value any) bool { return compareValues(value, l.Value) == 0 }
	case LookupIn:
		rv := reflect.ValueOf(l.Value)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return nil, fmt.Errorf("%w: 'in' lookup on '%s' needs a slice, got %T", ErrUnsupportedPredicate, l.Path, l.Value)
		}

		candidates := make([]any, rv.Len())
		for i := range candidates {
			candidates[i] = rv.Index(i).Interface()
		}
		test = func(value any) bool {
			return slices.ContainsFunc(candidates, func(c any) bool { return compareValues(value, c) == 0 })
		}
	default:
		return nil, fmt.Errorf("%w: lookup operator '%s'", ErrUnsupportedPredicate, l.Op)
	}

	return func(row any) bool {
		value, ok := ResolvePath(row, l.Path)
		if !ok {
			return l.Op == LookupEq && l.Value == nil
		}

		// Collections match when any element does.
		if items, ok := value.([]any); ok {
			return slices.ContainsFunc(items, test)
		}

		return test(value)
	}, nil
}

// identity returns a map key for the row identity at path, nil if it cannot
// be resolved.
func identity(row any, path string) any {
	value, ok := ResolvePath(row, path)
	if !ok || value == nil {
		return nil
	}

	if !reflect.TypeOf(value).Comparable() {
		return fmt.Sprint(value)
	}

	return value
}

// compareValues orders values of the same family: numbers, strings, times and
// booleans. nil sorts first; mixed families compare by their text form.
func compareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}

	if fa, ok := asFloat(a); ok {
		if fb, ok := asFloat(b); ok {
			return cmp.Compare(fa, fb)
		}
	}

	if ta, ok := a.(time.Time); ok {
		if tb, ok := b.(time.Time); ok {
			return ta.Compare(tb)
		}
	}

	if ba, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			switch {
			case ba == bb:
				return 0
			case !ba:
				return -1
			default:
				return 1
			}
		}
	}

	return strings.Compare(valueText(a), valueText(b))
}

func asFloat(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	default:
		return 0, false
	}
}
