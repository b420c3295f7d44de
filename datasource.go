package gotable

import (
	"context"
)

// DataSource abstracts a row backend: filtering, ordering, windowing and
// iteration. Mutating methods change the source in place and return it, so
// calls can be chained; use Clone to fork.
//
// Errors are accumulated like *gorm.DB does and surface on Rows, Count or
// Err.
type DataSource interface {
	Filter(p Predicate) DataSource
	Exclude(p Predicate) DataSource
	// SetOrder orders rows by the reference path. A tiebreaker on the row
	// identity is always appended to keep pagination stable.
	SetOrder(ref string, asc bool) DataSource
	// SetLimit restricts rows to the half-open window [start, end). Use NoEnd
	// for an unbounded tail.
	SetLimit(start, end int) DataSource
	// Distinct removes duplicate rows introduced by to-many joins. The
	// returned source is derived from original, the source before filtering.
	Distinct(original DataSource) DataSource
	// CrossesToMany reports whether the reference path traverses a to-many
	// relation, which makes filtering on it produce duplicate rows.
	CrossesToMany(path string) bool
	Rows(ctx context.Context) ([]any, error)
	Clone() DataSource
	Err() error
}

// Counter is implemented by sources with a native count.
type Counter interface {
	Count(ctx context.Context) (int64, error)
}

// Count returns the number of rows of src. Sources without a native count
// are materialized and measured.
func Count(ctx context.Context, src DataSource) (int64, error) {
	if counter, ok := src.(Counter); ok {
		return counter.Count(ctx)
	}

	rows, err := src.Rows(ctx)
	if err != nil {
		return 0, err
	}

	return int64(len(rows)), nil
}

// Predicate is a filter condition understood by data sources.
type Predicate interface {
	isPredicate()
}

type (
	// Lookup compares the value at Path with Value using Op.
	Lookup struct {
		Path  string
		Op    LookupOp
		Value any
	}

	// AnyOf holds when at least one of its predicates holds. An empty AnyOf
	// matches every row.
	AnyOf []Predicate

	// AllOf holds when all of its predicates hold.
	AllOf []Predicate

	// Where is a raw SQL condition. SQL backends only.
	Where struct {
		SQL  string
		Args []any
	}

	// Match is an arbitrary row predicate. In-memory backends only.
	Match func(row any) bool
)

func (Lookup) isPredicate() {}
func (AnyOf) isPredicate()  {}
func (AllOf) isPredicate()  {}
func (Where) isPredicate()  {}
func (Match) isPredicate()  {}

// Eq is shorthand for an equality Lookup.
func Eq(path string, value any) Lookup {
	return Lookup{Path: path, Op: LookupEq, Value: value}
}

// In is shorthand for a membership Lookup.
func In(path string, values any) Lookup {
	return Lookup{Path: path, Op: LookupIn, Value: values}
}

// Contains is shorthand for a case-insensitive substring Lookup.
func Contains(path string, value string) Lookup {
	return Lookup{Path: path, Op: LookupContains, Value: value}
}

// predicatePaths returns every lookup path of p.
func predicatePaths(p Predicate) []string {
	switch v := p.(type) {
	case Lookup:
		return []string{v.Path}
	case AnyOf:
		return collectPaths(v)
	case AllOf:
		return collectPaths(v)
	default:
		return nil
	}
}

func collectPaths(ps []Predicate) []string {
	var ret []string
	for _, p := range ps {
		ret = append(ret, predicatePaths(p)...)
	}

	return ret
}
