package gotable

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm/clause"
)

const (
	dialectPostgres = "postgres"
	dialectMySQL    = "mysql"
	dialectSQLite   = "sqlite"
)

// columnResolver maps a reference path to a validated SQL column.
type columnResolver func(path string) (string, error)

// toGORMExpression converts a predicate tree into a clause.Expression.
// AnyOf nodes become OR groups, AllOf nodes AND groups and lookups single
// conditions with a "?" placeholder. A nil expression means "no condition".
//
// Example:
//
//	AnyOf{Contains("name", "foo"), Lookup{Path: "code", Op: LookupStartsWith, Value: "foo"}}
//
// Result (mysql):
//
//	(LOWER(name) LIKE ? OR LOWER(code) LIKE ?), ["%foo%", "foo%"]
func toGORMExpression(p Predicate, resolve columnResolver, dialect string) (clause.Expression, error) {
	switch v := p.(type) {
	case Lookup:
		column, err := resolve(v.Path)
		if err != nil {
			return nil, err
		}

		return lookupExpression(v, column, dialect)
	case AnyOf:
		exprs, err := toGORMExpressions(v, resolve, dialect)
		if err != nil {
			return nil, err
		}

		if len(exprs) == 1 {
			return exprs[0], nil
		} else if len(exprs) > 1 {
			return clause.Or(exprs...), nil
		}

		return nil, nil
	case AllOf:
		exprs, err := toGORMExpressions(v, resolve, dialect)
		if err != nil {
			return nil, err
		}

		if len(exprs) == 1 {
			return exprs[0], nil
		} else if len(exprs) > 1 {
			return clause.And(exprs...), nil
		}

		return nil, nil
	case Where:
		return clause.Expr{SQL: v.SQL, Vars: v.Args}, nil
	default:
		return nil, fmt.Errorf("%w: %T on a SQL source", ErrUnsupportedPredicate, p)
	}
}

func toGORMExpressions(ps []Predicate, resolve columnResolver, dialect string) ([]clause.Expression, error) {
	exprs := make([]clause.Expression, 0, len(ps))
	for _, p := range ps {
		expr, err := toGORMExpression(p, resolve, dialect)
		if err != nil {
			return nil, err
		}

		if expr == nil {
			continue
		}

		exprs = append(exprs, expr)
	}

	return exprs, nil
}

// lookupExpression converts a lookup on column into a single SQL condition.
// Regex and full-text lookups fall back to substring matching on dialects
// without native support.
func lookupExpression(l Lookup, column, dialect string) (clause.Expression, error) {
	switch l.Op {
	case LookupContains:
		return likeExpression(column, "%"+escapeLike(textValue(l.Value))+"%", dialect), nil
	case LookupStartsWith:
		return likeExpression(column, escapeLike(textValue(l.Value))+"%", dialect), nil
	case LookupExact:
		return clause.Expr{
			SQL:  fmt.Sprintf("LOWER(%s) = LOWER(?)", column),
			Vars: []any{textValue(l.Value)},
		}, nil
	case LookupSearch:
		switch dialect {
		case dialectPostgres:
			return clause.Expr{
				SQL:  fmt.Sprintf("to_tsvector(%s) @@ plainto_tsquery(?)", column),
				Vars: []any{textValue(l.Value)},
			}, nil
		case dialectMySQL:
			return clause.Expr{
				SQL:  fmt.Sprintf("MATCH (%s) AGAINST (? IN NATURAL LANGUAGE MODE)", column),
				Vars: []any{textValue(l.Value)},
			}, nil
		default:
			return likeExpression(column, "%"+escapeLike(textValue(l.Value))+"%", dialect), nil
		}
	case LookupRegex:
		switch dialect {
		case dialectPostgres:
			return clause.Expr{SQL: fmt.Sprintf("%s ~* ?", column), Vars: []any{textValue(l.Value)}}, nil
		case dialectMySQL:
			return clause.Expr{SQL: fmt.Sprintf("%s REGEXP ?", column), Vars: []any{textValue(l.Value)}}, nil
		default:
			return likeExpression(column, "%"+escapeLike(textValue(l.Value))+"%", dialect), nil
		}
	case LookupIn:
		return clause.Expr{SQL: fmt.Sprintf("%s IN ?", column), Vars: []any{l.Value}}, nil
	case LookupEq:
		if l.Value == nil {
			return clause.Expr{SQL: fmt.Sprintf("%s IS NULL", column)}, nil
		}

		return clause.Expr{SQL: fmt.Sprintf("%s = ?", column), Vars: []any{parseAnyValue(l.Value)}}, nil
	default:
		return nil, fmt.Errorf("%w: lookup operator '%s'", ErrUnsupportedPredicate, l.Op)
	}
}

func likeExpression(column, pattern, dialect string) clause.Expression {
	switch dialect {
	case dialectPostgres:
		return clause.Expr{SQL: fmt.Sprintf("%s ILIKE ?", column), Vars: []any{pattern}}
	case dialectSQLite:
		return clause.Expr{SQL: fmt.Sprintf(`LOWER(%s) LIKE ? ESCAPE '\'`, column), Vars: []any{strings.ToLower(pattern)}}
	default:
		return clause.Expr{SQL: fmt.Sprintf("LOWER(%s) LIKE ?", column), Vars: []any{strings.ToLower(pattern)}}
	}
}

var _likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return _likeEscaper.Replace(s)
}

func textValue(v any) string {
	if s, ok := v.(string); ok {
		return s
	}

	return valueText(v)
}

func parseAnyValue(v any) any {
	// Try parsing a value as time.Time. If it succeeds, return time.Time.
	// Otherwise return the original value.
	fnParseBytesToTimeOrValue := func(vBytes []byte) any {
		dst := time.Time{}
		err := dst.UnmarshalText(vBytes)
		if err == nil {
			return dst
		}

		return v
	}

	switch vt := v.(type) {
	case string:
		return fnParseBytesToTimeOrValue([]byte(vt))
	case []byte:
		return fnParseBytesToTimeOrValue(vt)
	default:
		return v
	}
}
