package gotable

import (
	"fmt"
	"math"
	"strings"

	"github.com/samber/lo"
	"gorm.io/gorm"
)

// Direction defines the sort direction for the requested dataset.
type Direction string

const (
	DirectionASC  Direction = "ASC"
	DirectionDESC Direction = "DESC"
)

func (o Direction) Valid() bool {
	return o == DirectionASC || o == DirectionDESC
}

// DirectionOf maps an ascending flag to a Direction.
func DirectionOf(asc bool) Direction {
	return lo.Ternary(asc, DirectionASC, DirectionDESC)
}

type (
	Orderings []OrderBy
	OrderBy   struct {
		Column    string
		Direction Direction
	}

	ColumnAlias = string

	// ColumnMapping maps external column aliases (reference paths) to fully
	// qualified column names. Use it when bare column names could cause an
	// "ambiguous column name" error once relations are joined.
	ColumnMapping = map[ColumnAlias]string
)

var _availableColumnNameSymbols = append([]rune("_.'`\""), lo.AlphanumericCharset...)

// validateColumnName guards against SQL injection by restricting allowed
// characters in column names.
func validateColumnName(column string) error {
	if column == "" {
		return fmt.Errorf("%w: empty column name", ErrInvalidColumnName)
	}

	if !lo.Every(_availableColumnNameSymbols, []rune(column)) {
		return fmt.Errorf("%w: column name contains forbidden symbols '%s'", ErrInvalidColumnName, column)
	}

	return nil
}

func (o OrderBy) validate() error {
	if !o.Direction.Valid() {
		return fmt.Errorf("invalid ordering direction '%s'", o.Direction)
	}

	return validateColumnName(o.Column)
}

// ToSQLSlice converts Orderings to a slice of strings in the form
// "<order_column> <order_direction>" suitable for SQL query builders.
//
// Example: for Orderings: [{"a", "ASC"}, {"b", "DESC"}] returns ["a ASC", "b DESC"].
func (o Orderings) ToSQLSlice() []string {
	ret := make([]string, 0, len(o))
	for _, ordering := range o {
		ret = append(ret, fmt.Sprintf("%s %s", ordering.Column, ordering.Direction))
	}

	return ret
}

// ToSQL converts Orderings to a single string
// "<order_column_1> <order_direction_1>, <order_column_2> <order_direction_2>"
// suitable for embedding into an SQL query.
// Example: for [{"a", "ASC"}, {"b", "DESC"}] returns "a ASC, b DESC".
func (o Orderings) ToSQL() string {
	return strings.Join(o.ToSQLSlice(), ", ")
}

// Apply applies the ordering to a gorm query. Empty orderings leave the query
// untouched.
func (o Orderings) Apply(db *gorm.DB) *gorm.DB {
	if len(o) == 0 {
		return db
	}

	return db.Order(o.ToSQL())
}

// WithTiebreaker returns the orderings with an ascending ordering on the
// tiebreaker column appended, unless that column is already ordered on.
func (o Orderings) WithTiebreaker(column string) Orderings {
	if column == "" || lo.ContainsBy(o, func(ob OrderBy) bool { return ob.Column == column }) {
		return o
	}

	return append(o, OrderBy{Column: column, Direction: DirectionASC})
}

func (o Orderings) validate() error {
	var err error
	for _, ordering := range o {
		err = ordering.validate()
		if err != nil {
			return err
		}
	}

	return nil
}

// ParseSortSpec splits a sort specification of the form "column" or
// "-column" into the column key and the ascending flag.
func ParseSortSpec(spec string) (string, bool) {
	spec = strings.TrimSpace(spec)
	if strings.HasPrefix(spec, "-") {
		return spec[1:], false
	}

	return spec, true
}

// FormatSortSpec is the inverse of ParseSortSpec.
func FormatSortSpec(key string, asc bool) string {
	if key == "" {
		return ""
	}

	return lo.Ternary(asc, "", "-") + key
}

func closestAlias(input ColumnAlias, dataSet []ColumnAlias) ColumnAlias {
	minDist := math.MaxInt
	closest := ""

	for _, dataSetAlias := range dataSet {
		dist := levenshtein([]rune(dataSetAlias), []rune(input))
		if dist < minDist || (dist == minDist && dataSetAlias < closest) {
			minDist = dist
			closest = dataSetAlias
		}
	}

	return closest
}
