package gotable

import (
	"fmt"
	"strings"
)

// LookupOp defines how a Lookup compares a row value with the lookup value.
// All text operators are case-insensitive.
type LookupOp string

const (
	LookupContains   LookupOp = "icontains"
	LookupStartsWith LookupOp = "istartswith"
	LookupExact      LookupOp = "iexact"
	LookupSearch     LookupOp = "search"
	LookupRegex      LookupOp = "iregex"
	LookupIn         LookupOp = "in"
	LookupEq         LookupOp = "eq"
)

func (o LookupOp) Valid() bool {
	switch o {
	case LookupContains, LookupStartsWith, LookupExact, LookupSearch, LookupRegex, LookupIn, LookupEq:
		return true
	default:
		return false
	}
}

// IsText returns true if the operator compares text case-insensitively.
func (o LookupOp) IsText() bool {
	switch o {
	case LookupContains, LookupStartsWith, LookupExact, LookupSearch, LookupRegex:
		return true
	default:
		return false
	}
}

// Search field sigils.
const (
	sigilStartsWith = '^'
	sigilExact      = '='
	sigilSearch     = '@'
	sigilRegex      = '$'
)

// ParseSearchField splits a search field declaration into the reference path
// and the lookup operator selected by its leading sigil:
//
//	^name  -> istartswith
//	=name  -> iexact
//	@name  -> search (full-text)
//	$name  -> iregex
//	name   -> icontains
func ParseSearchField(field string) (string, LookupOp) {
	field = strings.TrimSpace(field)
	if field == "" {
		return "", LookupContains
	}

	switch field[0] {
	case sigilStartsWith:
		return field[1:], LookupStartsWith
	case sigilExact:
		return field[1:], LookupExact
	case sigilSearch:
		return field[1:], LookupSearch
	case sigilRegex:
		return field[1:], LookupRegex
	default:
		return field, LookupContains
	}
}

// FormatSearchField is the inverse of ParseSearchField.
func FormatSearchField(path string, op LookupOp) (string, error) {
	switch op {
	case LookupContains:
		return path, nil
	case LookupStartsWith:
		return string(sigilStartsWith) + path, nil
	case LookupExact:
		return string(sigilExact) + path, nil
	case LookupSearch:
		return string(sigilSearch) + path, nil
	case LookupRegex:
		return string(sigilRegex) + path, nil
	default:
		return "", fmt.Errorf("%w: operator '%s' has no search sigil", ErrUnsupportedPredicate, op)
	}
}
